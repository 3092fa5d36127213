package face

import "testing"

// TestAttentionSweepThenListeningBreathes is spec S5: ATTENTION runs a
// 0.4s edge sweep then LISTENING settles into sinusoidal breathing.
func TestAttentionSweepThenListeningBreathes(t *testing.T) {
	b := NewBorder()
	b.SetState(ConvAttention, 0)

	b.Tick(100000, 0.1, 0) // 0.1s into attention: still ramping
	if b.Alpha <= 0 || b.Alpha >= 1 {
		t.Fatalf("mid-sweep alpha = %v, want strictly between 0 and 1", b.Alpha)
	}

	b.Tick(500000, 0.1, 0) // past the 0.4s sweep window
	if b.Alpha != 1 {
		t.Fatalf("post-sweep alpha = %v, want 1", b.Alpha)
	}

	b.SetState(ConvListening, 500000)
	var sawBelowHalf, sawAboveHalf bool
	for us := uint64(500000); us < 3000000; us += 16667 {
		b.Tick(us, 0.016667, 0)
		if b.Alpha < 0.4 {
			sawBelowHalf = true
		}
		if b.Alpha > 0.6 {
			sawAboveHalf = true
		}
	}
	if !sawBelowHalf || !sawAboveHalf {
		t.Fatalf("expected listening alpha to breathe across the midpoint, saw below=%v above=%v", sawBelowHalf, sawAboveHalf)
	}
}

func TestHandleTouchPTTTogglesOnRelease(t *testing.T) {
	b := NewBorder()
	events := b.HandleTouch(true, HitPTT, false)
	if len(events) != 1 || events[0].Event != ButtonPress {
		t.Fatalf("press events = %+v, want single ButtonPress", events)
	}
	events = b.HandleTouch(false, HitPTT, false)
	if len(events) != 2 || events[0].Event != ButtonRelease || events[1].Event != ButtonToggle {
		t.Fatalf("release events = %+v, want [Release, Toggle]", events)
	}
}

func TestHandleTouchActionClicksOnRelease(t *testing.T) {
	b := NewBorder()
	b.HandleTouch(true, HitAction, false)
	events := b.HandleTouch(false, HitAction, false)
	if len(events) != 2 || events[1].Event != ButtonClick {
		t.Fatalf("release events = %+v, want second event ButtonClick", events)
	}
}

func TestHandleTouchSuppressedDuringSystemOverlay(t *testing.T) {
	b := NewBorder()
	events := b.HandleTouch(true, HitPTT, true)
	if events != nil {
		t.Fatalf("events = %+v, want nil while suppressed", events)
	}
}
