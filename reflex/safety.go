package reflex

// StopMode is what the safety supervisor currently demands of the
// actuator path (spec §4.3).
type StopMode uint8

const (
	StopNone StopMode = iota
	StopSoft          // ramp to zero over SoftStopRampMs, then hold
	StopHard          // brake and disable drivers immediately
)

// Inputs is everything the supervisor reads once per safety tick (spec
// §4.3). NowUs and the wheel speeds come from the control loop's latest
// publication; EstopAsserted comes from the GPIO pin; HaveImu/HaveRange
// report whether a fresh sample arrived since the last tick.
type Inputs struct {
	NowUs              uint64
	CmdLastUs          uint64
	LeftSpeedMmS       float32
	RightSpeedMmS      float32
	CommandedNonzero   bool
	EstopAsserted      bool
	Imu                ImuSample
	HaveImu            bool
	ImuConsecutiveErrs int
	Range              RangeSample
	BatteryMv          uint16
	BrownoutMv         uint16
}

// Supervisor holds the per-tick latches and hysteresis timers a stateless
// Evaluate call alone cannot express (spec §4.3: tilt must persist for
// TiltHoldMs, stall must persist for StallThreshMs, obstacle release uses
// a wider threshold than trip).
type Supervisor struct {
	latched Fault

	tiltSinceUs     uint64
	tiltActive      bool
	stallSinceUs    uint64
	stallActive     bool
	obstacleLatched bool

	softStopStartUs uint64
	softStopping    bool
}

// Faults returns the currently latched fault bitset.
func (s *Supervisor) Faults() Fault { return s.latched }

// ClearFaults clears every bit in mask that is clearable: FaultEstop only
// clears once the pin has actually released (checked by the caller before
// calling this), matching spec §4.3 "latched faults clear only on an
// explicit CLEAR_FAULTS once their triggering condition is gone".
func (s *Supervisor) ClearFaults(mask Fault) {
	s.latched &^= mask
}

// Evaluate runs one safety-supervisor tick (spec §4.3) and returns the
// stop mode the actuator path must honor this tick.
func (s *Supervisor) Evaluate(cfg Config, in Inputs) StopMode {
	// Command timeout. A zero CmdLastUs means no command has ever been
	// received yet, which the control loop already drives as zero twist;
	// don't latch a fault for it (spec §4.3; matches the original
	// firmware's `if (last_cmd == 0) return;` guard in safety.cpp).
	if in.CmdLastUs != 0 && in.NowUs-in.CmdLastUs > uint64(cfg.CmdTimeoutMs)*1000 {
		s.latched |= FaultCmdTimeout
	}

	// E-stop: level-latched while asserted, and latches the fault even
	// after release so CLEAR_FAULTS is required to resume (spec §4.3).
	if in.EstopAsserted {
		s.latched |= FaultEstop
	}

	// IMU failure: consecutive bus errors past a small bound (spec §4.4's
	// bus-recovery state machine feeds this counter).
	if in.ImuConsecutiveErrs >= 5 {
		s.latched |= FaultImuFail
	}

	// Tilt: must persist continuously for TiltHoldMs before latching,
	// so a single jolt doesn't trip it (spec §4.3).
	if in.HaveImu {
		if angle, ok := TiltAngleDeg(in.Imu); ok && angle >= float64(cfg.TiltThreshDeg) {
			if !s.tiltActive {
				s.tiltActive = true
				s.tiltSinceUs = in.NowUs
			} else if in.NowUs-s.tiltSinceUs >= uint64(cfg.TiltHoldMs)*1000 {
				s.latched |= FaultTilt
			}
		} else {
			s.tiltActive = false
		}
	}

	// Stall: commanded to move but measured speed pinned near zero for
	// StallThreshMs (spec §4.3).
	moving := abs32(in.LeftSpeedMmS) >= cfg.StallSpeedThresh || abs32(in.RightSpeedMmS) >= cfg.StallSpeedThresh
	if in.CommandedNonzero && !moving {
		if !s.stallActive {
			s.stallActive = true
			s.stallSinceUs = in.NowUs
		} else if in.NowUs-s.stallSinceUs >= uint64(cfg.StallThreshMs)*1000 {
			s.latched |= FaultStall
		}
	} else {
		s.stallActive = false
	}

	// Brownout: instantaneous, not latched sticky beyond recovery, but
	// still reported so the host can react (spec §4.3, §3 FaultBrownout).
	if in.BrownoutMv != 0 && in.BatteryMv <= in.BrownoutMv {
		s.latched |= FaultBrownout
	} else {
		s.latched &^= FaultBrownout
	}

	// Obstacle: hysteretic trip/release so a sensor hovering at the
	// boundary does not chatter (spec §4.3, §8 property "obstacle release
	// hysteresis").
	switch {
	case !s.obstacleLatched && in.Range.Status == RangeOK && int32(in.Range.RangeMm) <= int32(cfg.RangeStopMm):
		s.obstacleLatched = true
	case s.obstacleLatched && in.Range.Status == RangeOK && int32(in.Range.RangeMm) >= int32(cfg.RangeReleaseMm):
		s.obstacleLatched = false
	}
	if s.obstacleLatched {
		s.latched |= FaultObstacle
	} else {
		s.latched &^= FaultObstacle
	}

	hardFaults := s.latched.Has(FaultEstop) || s.latched.Has(FaultTilt) || s.latched.Has(FaultImuFail)
	softFaults := s.latched.Has(FaultCmdTimeout) || s.latched.Has(FaultStall) || s.latched.Has(FaultObstacle) || s.latched.Has(FaultBrownout)

	switch {
	case hardFaults:
		s.softStopping = false
		return StopHard
	case softFaults:
		if !s.softStopping {
			s.softStopping = true
			s.softStopStartUs = in.NowUs
		}
		return StopSoft
	default:
		s.softStopping = false
		return StopNone
	}
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
