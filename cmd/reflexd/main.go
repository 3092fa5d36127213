// command reflexd is the Reflex MCU's firmware core: it owns the
// differential-drive control loop, the safety supervisor, and the host
// link, each running as its own goroutine sharing state only through the
// lock-free primitives in package reflex.
package main

import (
	"fmt"
	"log"
	"os"
	"sync/atomic"
	"time"

	"github.com/0mdb/robot-buddy-sub000/reflex"
	"github.com/0mdb/robot-buddy-sub000/transport"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "run: %v", err)
		os.Exit(2)
	}
}

// safetyStatus is the safety loop's per-tick publication to the control
// loop: whether to gate output, and the fault bits to echo in telemetry.
type safetyStatus struct {
	Mode   reflex.StopMode
	Faults reflex.Fault
}

func run() error {
	log.SetFlags(log.Flags() &^ (log.Ldate | log.Ltime))
	log.Println("reflexd: starting")

	plat, err := Init()
	if err != nil {
		return err
	}
	defer plat.Close()

	port, err := transport.OpenSerial("")
	if err != nil {
		return fmt.Errorf("host link: %w", err)
	}
	defer port.Close()
	codec := transport.NewCodec(port, nowMicros)

	cfgBuf := reflex.NewDoubleBuffer[reflex.Config]()
	cfgBuf.Publish(reflex.DefaultConfig())
	cmdBuf := reflex.NewDoubleBuffer[reflex.Command]()
	safetyBuf := reflex.NewDoubleBuffer[safetyStatus]()
	var telemetry reflex.Seqlock

	clearFaults := make(chan reflex.Fault, 4)
	var softEstop atomic.Bool
	stop := make(chan struct{})

	go hostLink(codec, cmdBuf, cfgBuf, clearFaults, &softEstop, stop)
	go safetyLoop(plat, cfgBuf, cmdBuf, safetyBuf, clearFaults, &softEstop, stop)
	go telemetryLoop(codec, cfgBuf, &telemetry, stop)

	controlLoop(plat, cfgBuf, cmdBuf, safetyBuf, &telemetry)
	return nil
}

// controlLoop runs forever at Config.ControlPeriod (re-read each tick so
// a SET_CONFIG can retune the period live), executing one reflex.Loop
// tick and publishing the result into telemetry (spec §4.2).
func controlLoop(plat *Platform, cfgBuf *reflex.DoubleBuffer[reflex.Config], cmdBuf *reflex.DoubleBuffer[reflex.Command], safetyBuf *reflex.DoubleBuffer[safetyStatus], telemetry *reflex.Seqlock) {
	var loop reflex.Loop
	last := time.Now()
	for {
		cfg := cfgBuf.Load()
		time.Sleep(cfg.ControlPeriod)
		now := time.Now()
		dt := float32(now.Sub(last).Seconds())
		last = now

		cmd := cmdBuf.Load()
		status := safetyBuf.Load()

		var counts reflex.EncoderCounts
		var gyroZ float32
		if plat.Encoders != nil {
			counts = plat.Encoders.Sample()
		}
		if plat.Imu != nil {
			gyroZ = plat.Imu.Latest().GyroZ
		}

		out := loop.Tick(cfg, cmd, counts, gyroZ, dt, status.Mode == reflex.StopHard)
		if status.Mode == reflex.StopSoft {
			// Soft-stop still runs the loop (so the rate limiter ramps
			// down smoothly) but against a zero commanded twist.
			out = loop.Tick(cfg, reflex.Command{}, counts, gyroZ, dt, false)
		}

		if plat.Drive != nil {
			if err := plat.Drive.Actuate(out, status.Mode); err != nil {
				log.Printf("reflexd: actuate: %v", err)
			}
		}

		speedL, speedR := loop.MeasuredSpeeds()
		telemetry.Write(func(s *reflex.TelemetryState) {
			s.SpeedLMmS = speedL
			s.SpeedRMmS = speedR
			s.GyroZMradS = int32(gyroZ * 1000)
			s.FaultFlags = status.Faults
			s.CmdSeqApplied = cmd.Seq
			s.AppliedUs = cmd.LastUs
			s.NowUs = nowMicros()
			s.BatteryMv = plat.BatteryMv()
		})
	}
}

// safetyLoop runs the supervisor at Config.SafetyPeriod and publishes its
// verdict for the control loop to gate on (spec §4.3).
func safetyLoop(plat *Platform, cfgBuf *reflex.DoubleBuffer[reflex.Config], cmdBuf *reflex.DoubleBuffer[reflex.Command], safetyBuf *reflex.DoubleBuffer[safetyStatus], clearFaults <-chan reflex.Fault, softEstop *atomic.Bool, stop <-chan struct{}) {
	var sup reflex.Supervisor
	for {
		cfg := cfgBuf.Load()
		select {
		case <-stop:
			return
		case mask := <-clearFaults:
			sup.ClearFaults(mask)
		case <-time.After(cfg.SafetyPeriod):
		}

		cmd := cmdBuf.Load()
		var rng reflex.RangeSample
		if plat.Rangefinder != nil {
			rng = plat.Rangefinder.Sample()
		}
		errs := 0
		var imu reflex.ImuSample
		haveImu := false
		if plat.Imu != nil {
			errs = plat.Imu.ConsecutiveErrors()
			imu = plat.Imu.Latest()
			haveImu = true
		}
		estop := softEstop.Swap(false)
		if plat.Estop != nil {
			estop = estop || plat.Estop()
		}
		mode := sup.Evaluate(cfg, reflex.Inputs{
			NowUs:              nowMicros(),
			CmdLastUs:          cmd.LastUs,
			CommandedNonzero:   cmd.VMmS != 0 || cmd.WMradS != 0,
			EstopAsserted:      estop,
			Imu:                imu,
			HaveImu:            haveImu,
			ImuConsecutiveErrs: errs,
			Range:              rng,
			BatteryMv:          plat.BatteryMv(),
			BrownoutMv:         6000,
		})
		safetyBuf.Publish(safetyStatus{Mode: mode, Faults: sup.Faults()})
	}
}

// telemetryLoop periodically pushes a STATE record to the host, echoing
// the codec's currently negotiated wire version (spec §6.3).
func telemetryLoop(codec *transport.Codec, cfgBuf *reflex.DoubleBuffer[reflex.Config], telemetry *reflex.Seqlock, stop <-chan struct{}) {
	const period = 20 * time.Millisecond
	t := time.NewTicker(period)
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case <-t.C:
		}
		snap, ok := telemetry.Read()
		if !ok {
			continue
		}
		ver := codec.Version()
		payload := reflex.EncodeState(ver, snap)
		typ := byte(reflex.TypeState)
		if ver == transport.V2 {
			typ = reflex.TypeStateV2
		}
		if err := codec.WriteRecord(typ, payload); err != nil {
			log.Printf("reflexd: telemetry write: %v", err)
		}
	}
}

// hostLink owns the codec's read side: it decodes every incoming record,
// answers shared records inline, and fans out Reflex-specific commands to
// the appropriate shared buffer or channel (spec §6.2).
func hostLink(codec *transport.Codec, cmdBuf *reflex.DoubleBuffer[reflex.Command], cfgBuf *reflex.DoubleBuffer[reflex.Config], clearFaults chan<- reflex.Fault, softEstop *atomic.Bool, stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		default:
		}
		rec, err := codec.ReadRecord()
		if err != nil {
			continue
		}
		if codec.HandleShared(rec) {
			continue
		}
		switch rec.Type {
		case reflex.TypeSetTwist:
			st, ok := reflex.DecodeSetTwist(rec.Payload)
			if !ok {
				continue
			}
			cmdBuf.Publish(reflex.Command{VMmS: st.VMmS, WMradS: st.WMradS, Seq: rec.Seq, LastUs: nowMicros()})
		case reflex.TypeStop:
			cur := cmdBuf.Load()
			cmdBuf.Publish(reflex.Command{Seq: cur.Seq, LastUs: nowMicros()})
		case reflex.TypeEstop:
			softEstop.Store(true)
		case reflex.TypeClearFaults:
			mask, ok := reflex.DecodeClearFaults(rec.Payload)
			if !ok {
				continue
			}
			clearFaults <- mask
		case reflex.TypeSetLimits, reflex.TypeSetConfig:
			sc, ok := reflex.DecodeSetConfig(rec.Payload)
			if !ok {
				continue
			}
			cfg := cfgBuf.Load()
			sc.Apply(&cfg)
			cfgBuf.Publish(cfg)
		}
	}
}
