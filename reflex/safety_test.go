package reflex

import "testing"

func TestCmdTimeoutTripsSoftStop(t *testing.T) {
	cfg := DefaultConfig()
	var s Supervisor
	in := Inputs{NowUs: 1_000_000, CmdLastUs: 1}
	mode := s.Evaluate(cfg, in)
	if mode != StopSoft {
		t.Fatalf("expected soft stop on command timeout, got %v", mode)
	}
	if !s.Faults().Has(FaultCmdTimeout) {
		t.Fatal("expected FaultCmdTimeout latched")
	}
}

// TestNoCommandEverReceivedDoesNotTimeOut is spec §4.3: a zero CmdLastUs
// means no command has ever been received, which the control loop
// already drives as zero twist, so it must not latch FaultCmdTimeout at
// boot before the host's first packet arrives.
func TestNoCommandEverReceivedDoesNotTimeOut(t *testing.T) {
	cfg := DefaultConfig()
	var s Supervisor
	in := Inputs{NowUs: 1_000_000, CmdLastUs: 0}
	mode := s.Evaluate(cfg, in)
	if mode != StopNone {
		t.Fatalf("expected no stop before any command has been received, got %v", mode)
	}
	if s.Faults().Has(FaultCmdTimeout) {
		t.Fatal("expected FaultCmdTimeout not latched before any command has been received")
	}
}

func TestEstopTripsHardStop(t *testing.T) {
	cfg := DefaultConfig()
	var s Supervisor
	in := Inputs{NowUs: 100, CmdLastUs: 100, EstopAsserted: true}
	if mode := s.Evaluate(cfg, in); mode != StopHard {
		t.Fatalf("expected hard stop on e-stop, got %v", mode)
	}
}

// TestTiltRequiresHoldDuration is spec §8 property 7 (soft/hard stop
// monotonicity split): a momentary tilt spike under TiltHoldMs must not
// latch the fault.
func TestTiltRequiresHoldDuration(t *testing.T) {
	cfg := DefaultConfig()
	var s Supervisor
	tilted := ImuSample{AccelX: 1} // ~90 degrees, well past threshold

	base := uint64(0)
	mode := s.Evaluate(cfg, Inputs{NowUs: base, CmdLastUs: base, HaveImu: true, Imu: tilted})
	if mode != StopNone {
		t.Fatalf("expected no stop on first tilted sample, got %v", mode)
	}
	// Resolve before the hold duration elapses.
	mode = s.Evaluate(cfg, Inputs{NowUs: base + 10_000, CmdLastUs: base + 10_000, HaveImu: true, Imu: ImuSample{AccelZ: 1}})
	if mode != StopNone || s.Faults().Has(FaultTilt) {
		t.Fatalf("expected tilt to reset before hold duration, got mode=%v faults=%v", mode, s.Faults())
	}
}

func TestTiltPersistsPastHoldLatches(t *testing.T) {
	cfg := DefaultConfig()
	var s Supervisor
	tilted := ImuSample{AccelX: 1}

	base := uint64(0)
	s.Evaluate(cfg, Inputs{NowUs: base, CmdLastUs: base, HaveImu: true, Imu: tilted})
	holdUs := uint64(cfg.TiltHoldMs) * 1000
	mode := s.Evaluate(cfg, Inputs{NowUs: base + holdUs + 1000, CmdLastUs: base, HaveImu: true, Imu: tilted})
	if mode != StopHard {
		t.Fatalf("expected hard stop once tilt persists past hold duration, got %v", mode)
	}
}

// TestObstacleHysteresis is spec §8's obstacle release hysteresis
// property: release threshold is strictly wider than the trip threshold,
// so a reading sitting between them must not chatter the fault.
func TestObstacleHysteresis(t *testing.T) {
	cfg := DefaultConfig()
	var s Supervisor
	now := uint64(0)
	tick := func(rangeMm int32) StopMode {
		now += 20_000
		return s.Evaluate(cfg, Inputs{
			NowUs: now, CmdLastUs: now,
			Range: RangeSample{RangeMm: rangeMm, Status: RangeOK},
		})
	}

	if mode := tick(int32(cfg.RangeStopMm) - 1); mode != StopSoft {
		t.Fatalf("expected soft stop when closer than stop threshold, got %v", mode)
	}
	mid := (int32(cfg.RangeStopMm) + int32(cfg.RangeReleaseMm)) / 2
	if mode := tick(mid); mode != StopSoft {
		t.Fatalf("expected obstacle fault to persist in the hysteresis band, got %v", mode)
	}
	if mode := tick(int32(cfg.RangeReleaseMm) + 1); mode != StopNone {
		t.Fatalf("expected release once past release threshold, got %v", mode)
	}
}

func TestClearFaultsClearsMask(t *testing.T) {
	var s Supervisor
	s.latched = FaultCmdTimeout | FaultStall
	s.ClearFaults(FaultCmdTimeout)
	if s.Faults().Has(FaultCmdTimeout) {
		t.Fatal("expected FaultCmdTimeout cleared")
	}
	if !s.Faults().Has(FaultStall) {
		t.Fatal("expected FaultStall to remain latched")
	}
}

func TestStallRequiresHoldDuration(t *testing.T) {
	cfg := DefaultConfig()
	var s Supervisor
	base := uint64(0)
	in := Inputs{NowUs: base, CmdLastUs: base, CommandedNonzero: true}
	if mode := s.Evaluate(cfg, in); mode != StopNone {
		t.Fatalf("expected no stop on first stalled sample, got %v", mode)
	}
	in.NowUs = base + uint64(cfg.StallThreshMs)*1000 + 1000
	if mode := s.Evaluate(cfg, in); mode != StopSoft {
		t.Fatalf("expected soft stop once stall persists, got %v", mode)
	}
}
