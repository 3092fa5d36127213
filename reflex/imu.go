package reflex

import (
	"fmt"
	"time"

	"periph.io/x/conn/v3/i2c"
)

// imuRegOut is the first data register of a six-axis burst read
// (gyro Z + 3-axis accel), consistent with the MPU6050/ICM20602 family
// of sensors this firmware targets.
const imuRegOut = 0x3B

// imuMaxConsecutiveErrs bounds how many back-to-back I2C failures the bus
// recovery state machine tolerates before it gives up on a cycle and
// reports the error count upward for the safety supervisor to latch
// FaultImuFail (spec §4.3, §4.4).
const imuMaxConsecutiveErrs = 5

// ImuReader runs the Reflex MCU's ~240Hz IMU sampling task (spec §4.4):
// burst-read the sensor, convert to engineering units, and publish into a
// DoubleBuffer for the control loop to consume lock-free.
type ImuReader struct {
	dev  *i2c.Dev
	buf  *DoubleBuffer[ImuSample]
	Now  func() uint64
	errs int
}

// NewImuReader wraps an already-opened i2c.Dev (address bound by the
// caller) and the DoubleBuffer the control loop reads from.
func NewImuReader(dev *i2c.Dev, buf *DoubleBuffer[ImuSample], now func() uint64) *ImuReader {
	return &ImuReader{dev: dev, buf: buf, Now: now}
}

// ConsecutiveErrors reports the bus recovery state machine's current
// streak, for the safety supervisor's Inputs.ImuConsecutiveErrs.
func (r *ImuReader) ConsecutiveErrors() int { return r.errs }

// Latest returns the most recently published sample, for consumers that
// don't hold their own reference to the DoubleBuffer.
func (r *ImuReader) Latest() ImuSample { return r.buf.Load() }

// sample performs one burst read and decodes it. Register layout mirrors
// the MPU6050 family: 14 bytes starting at imuRegOut, big-endian
// signed 16-bit values in accel(x,y,z), temp, gyro(x,y,z) order; this
// driver only needs accel xyz and gyro z.
func (r *ImuReader) sample() (ImuSample, error) {
	var raw [14]byte
	if err := r.dev.Tx([]byte{imuRegOut}, raw[:]); err != nil {
		return ImuSample{}, fmt.Errorf("imu burst read: %w", err)
	}
	be16 := func(hi, lo byte) int16 { return int16(uint16(hi)<<8 | uint16(lo)) }
	const accelLSBPerG = 16384.0  // +/-2g full scale
	const gyroLSBPerDegS = 131.0  // +/-250 deg/s full scale
	const degToRad = 3.14159265358979 / 180

	ax := float32(be16(raw[0], raw[1])) / accelLSBPerG
	ay := float32(be16(raw[2], raw[3])) / accelLSBPerG
	az := float32(be16(raw[4], raw[5])) / accelLSBPerG
	gz := float32(be16(raw[12], raw[13])) / gyroLSBPerDegS * degToRad

	var ts uint64
	if r.Now != nil {
		ts = r.Now()
	}
	return ImuSample{GyroZ: gz, AccelX: ax, AccelY: ay, AccelZ: az, TimestampUs: ts}, nil
}

// Tick runs one sampling attempt and publishes on success. On failure it
// bumps the consecutive-error counter and leaves the last good sample
// published, so a momentarily wedged bus doesn't feed stale-but-wrong
// zeros into the control loop (spec §4.4: "on repeated failure, keep
// publishing the last known-good sample while counting errors for the
// supervisor").
func (r *ImuReader) Tick() error {
	s, err := r.sample()
	if err != nil {
		if r.errs < imuMaxConsecutiveErrs {
			r.errs++
		}
		return err
	}
	r.errs = 0
	r.buf.Publish(s)
	return nil
}

// Run blocks at period, calling Tick, until stop is closed. Errors are
// swallowed here: they surface through ConsecutiveErrors and the
// supervisor, not as a fatal condition for this task (spec §4.4's
// bus-recovery state machine treats repeated I2C failure as degraded
// operation, not a crash).
func (r *ImuReader) Run(period time.Duration, stop <-chan struct{}) {
	t := time.NewTicker(period)
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case <-t.C:
			r.Tick()
		}
	}
}
