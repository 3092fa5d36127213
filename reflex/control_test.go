package reflex

import "testing"

// TestZeroCommandStaysStill is spec §8 property 5: with no command ever
// issued (the zero-value Command) and no fault, the loop commands zero
// duty and never drifts.
func TestZeroCommandStaysStill(t *testing.T) {
	cfg := DefaultConfig()
	var loop Loop
	counts := EncoderCounts{}
	for i := 0; i < 50; i++ {
		out := loop.Tick(cfg, Command{}, counts, 0, 0.01, false)
		if out.DutyL != 0 || out.DutyR != 0 {
			t.Fatalf("tick %d: expected zero duty at rest, got %+v", i, out)
		}
	}
}

// TestFaultGatesOutput is spec §8 property 6: whenever faulted is true,
// output is forced to zero and integrators are cleared, regardless of
// the commanded twist.
func TestFaultGatesOutput(t *testing.T) {
	cfg := DefaultConfig()
	var loop Loop
	cmd := Command{VMmS: 300, WMradS: 500}
	counts := EncoderCounts{}
	out := loop.Tick(cfg, cmd, counts, 0, 0.01, true)
	if out.DutyL != 0 || out.DutyR != 0 {
		t.Fatalf("expected zero duty while faulted, got %+v", out)
	}
	if loop.Left.Integral != 0 || loop.Right.Integral != 0 {
		t.Fatalf("expected integrators cleared while faulted")
	}
}

// TestRateLimitBoundsAcceleration checks that a step command never moves
// the rate-limited target by more than MaxAMmS2*dt in a single tick
// (spec §4.2 step 4).
func TestRateLimitBoundsAcceleration(t *testing.T) {
	cfg := DefaultConfig()
	var loop Loop
	cmd := Command{VMmS: int16(cfg.MaxVMmS)}
	counts := EncoderCounts{}
	dt := float32(0.01)
	maxDelta := float32(cfg.MaxAMmS2) * dt

	prevL, prevR := float32(0), float32(0)
	for i := 0; i < 5; i++ {
		loop.Tick(cfg, cmd, counts, 0, dt, false)
		if d := loop.Left.RateLimited - prevL; d > maxDelta+1e-3 {
			t.Fatalf("tick %d: left rate-limited target jumped by %v > max %v", i, d, maxDelta)
		}
		if d := loop.Right.RateLimited - prevR; d > maxDelta+1e-3 {
			t.Fatalf("tick %d: right rate-limited target jumped by %v > max %v", i, d, maxDelta)
		}
		prevL, prevR = loop.Left.RateLimited, loop.Right.RateLimited
	}
}

// TestKinematicsSplitsTwist checks v,w -> per-wheel targets follow
// v_L,R = v -+ w*W/2 before rate limiting clamps them (spec §4.2 step 3).
func TestKinematicsSplitsTwist(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxAMmS2 = 1 << 20 // effectively unlimited, isolate kinematics
	var loop Loop
	cmd := Command{VMmS: 100, WMradS: 0}
	counts := EncoderCounts{}
	loop.Tick(cfg, cmd, counts, 0, 1, false)
	if loop.Left.RateLimited != loop.Right.RateLimited {
		t.Fatalf("pure forward twist should drive both wheels equally: left=%v right=%v",
			loop.Left.RateLimited, loop.Right.RateLimited)
	}
}

func TestTiltAngleFlatIsZero(t *testing.T) {
	angle, ok := TiltAngleDeg(ImuSample{AccelZ: 1})
	if !ok {
		t.Fatal("expected valid reading")
	}
	if angle > 1 {
		t.Fatalf("expected near-zero tilt when flat, got %v", angle)
	}
}

func TestTiltAngleOnSideIsNinety(t *testing.T) {
	angle, ok := TiltAngleDeg(ImuSample{AccelX: 1})
	if !ok {
		t.Fatal("expected valid reading")
	}
	if angle < 89 || angle > 91 {
		t.Fatalf("expected ~90 degrees on side, got %v", angle)
	}
}

func TestTiltAngleFreefallInvalid(t *testing.T) {
	if _, ok := TiltAngleDeg(ImuSample{}); ok {
		t.Fatal("expected invalid reading at zero gravity magnitude")
	}
}
