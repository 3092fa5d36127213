// Package reflex implements the Reflex MCU's deterministic locomotion
// core: encoder odometry, IMU ingest, feed-forward+PI per-wheel control,
// the safety supervisor, and the lock-free state exchange between them
// (spec §1 pt. 1, §3, §4.2-§4.5, §4.11).
package reflex

// ImuSample is one gyro+accel reading (spec §3).
type ImuSample struct {
	GyroZ     float32 // rad/s
	AccelX    float32 // g
	AccelY    float32 // g
	AccelZ    float32 // g
	TimestampUs uint64
}

// EncoderCounts is a pair of quadrature accumulators sampled "as close
// as possible" to each other (spec §3, §4.2 step 1).
type EncoderCounts struct {
	Left, Right int32
}

// Command is the latest commanded twist, with the envelope sequence
// number it arrived with so telemetry can echo it back as cmd_seq (spec
// §3, §6.2 SET_TWIST).
type Command struct {
	VMmS    int16 // v_mm_s
	WMradS  int16 // w_mrad_s
	Seq     uint32
	LastUs  uint64 // monotonic time the command was latched
}

// RangeStatus is the rangefinder's per-sample health (spec §3, §4.5).
type RangeStatus uint8

const (
	RangeOK RangeStatus = iota
	RangeTimeout
	RangeOutOfRange
	RangeNotReady
)

// RangeSample is the rangefinder's latest measurement (spec §3).
type RangeSample struct {
	RangeMm     int32
	Status      RangeStatus
	TimestampUs uint64
}

// Fault is the latched fault bitset (spec §3).
type Fault uint16

const (
	FaultCmdTimeout Fault = 1 << iota
	FaultEstop
	FaultTilt
	FaultStall
	FaultImuFail
	FaultBrownout
	FaultObstacle
)

// Has reports whether every bit in mask is set in f.
func (f Fault) Has(mask Fault) bool { return f&mask == mask }

// TelemetryState is the control loop's per-tick publication (spec §3).
// Seq is managed by the seqlock in buffers.go; callers never set it
// directly.
type TelemetryState struct {
	SpeedLMmS     float32
	SpeedRMmS     float32
	GyroZMradS    int32
	AccelXMg      int32
	AccelYMg      int32
	AccelZMg      int32
	BatteryMv     uint16
	FaultFlags    Fault
	RangeMm       int32
	RangeStatus   RangeStatus
	CmdSeqApplied uint32
	AppliedUs     uint64
	NowUs         uint64
}
