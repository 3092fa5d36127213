package face

import "testing"

func TestCommandLatchingSurvivesHighRateResend(t *testing.T) {
	a := NewAnimator()
	a.State.Effects.BootActive = false
	var cmds CommandChannels
	border := NewBorder()

	for i := 0; i < 50; i++ {
		cmds.Talking.Publish(TalkingCmd{Talking: false, Energy: 0}, uint64(i)*10)
	}
	cmds.State.Publish(StateCmd{Mood: MoodHappy, Brightness: 1}, 5000)

	a.Tick(&cmds, border, 6000, 1.0/FPS)

	if a.State.Mood != MoodHappy {
		t.Fatalf("mood = %v, want MoodHappy", a.State.Mood)
	}
}

func TestGestureFIFOOrder(t *testing.T) {
	var ring GestureRing
	ring.Push(GestureMsg{ID: GestureBlink, TsUs: 1})
	ring.Push(GestureMsg{ID: GestureConfused, TsUs: 2})
	ring.Push(GestureMsg{ID: GestureLaugh, TsUs: 3})

	want := []Gesture{GestureBlink, GestureConfused, GestureLaugh}
	for _, w := range want {
		got, ok := ring.Pop()
		if !ok || got.ID != w {
			t.Fatalf("pop = %v, %v, want %v", got, ok, w)
		}
	}
	if _, ok := ring.Pop(); ok {
		t.Fatal("expected ring empty")
	}
}

// TestWinkClosesOnlyOneEye is the original firmware's WINK_L/WINK_R
// gesture (esp32-face/main/face_state.cpp): unlike BLINK, only the
// targeted eye's openness drops.
func TestWinkClosesOnlyOneEye(t *testing.T) {
	a := NewAnimator()
	a.State.Effects.BootActive = false
	var cmds CommandChannels
	border := NewBorder()

	cmds.Gestures.Push(GestureMsg{ID: GestureWinkL, TsUs: 0})
	for i := 0; i < 10; i++ {
		a.Tick(&cmds, border, uint64(i)*33333, 1.0/FPS)
	}
	if a.State.EyeL.OpennessTarget != 0 {
		t.Fatalf("left eye openness target = %v, want 0 while winking", a.State.EyeL.OpennessTarget)
	}
	if a.State.EyeR.OpennessTarget == 0 {
		t.Fatal("right eye should stay open during a left wink")
	}
}

func TestTalkingStalenessReturnsToMoodDefault(t *testing.T) {
	a := NewAnimator()
	a.State.Effects.BootActive = false
	var cmds CommandChannels
	border := NewBorder()

	cmds.Talking.Publish(TalkingCmd{Talking: true, Energy: 0.8}, 0)
	a.Tick(&cmds, border, 0, 1.0/FPS)
	if !a.State.Talking {
		t.Fatal("expected talking true immediately after publish")
	}

	nowUs := uint64(TalkingCmdTimeoutMs+50) * 1000
	a.Tick(&cmds, border, nowUs, 1.0/FPS)
	if a.State.Talking {
		t.Fatal("expected talking to go stale after TALKING_CMD_TIMEOUT_MS")
	}

	for i := 0; i < 200; i++ {
		a.Tick(&cmds, border, nowUs+uint64(i)*33333, 1.0/FPS)
	}
	wantDefault := float32(0.2) // neutral mood mouth curve target, not mouth-open
	_ = wantDefault
	if a.State.MouthOpenTarget > 0.05 {
		t.Fatalf("mouth_open_target = %v, want near 0 after staleness", a.State.MouthOpenTarget)
	}
}

func TestBootMonotonicityOpennessCrossesThreeTimes(t *testing.T) {
	a := NewAnimator()
	var cmds CommandChannels
	border := NewBorder()

	var crossings int
	lastBucket := -1
	const dt = 1.0 / FPS
	var nowUs uint64
	for i := 0; i < 10*FPS && a.State.Effects.BootActive; i++ {
		a.Tick(&cmds, border, nowUs, dt)
		nowUs += uint64(dt * 1e6)

		bucket := 0
		if a.State.EyeL.Openness > 0.5 {
			bucket = 1
		}
		if lastBucket != -1 && bucket != lastBucket {
			crossings++
		}
		lastBucket = bucket
	}
	if a.State.Effects.BootActive {
		t.Fatal("boot sequence did not complete within 10 seconds of simulated frames")
	}
	if crossings < 3 {
		t.Fatalf("openness crossed 0.5 %d times, want at least 3 (ease-in, close, re-open)", crossings)
	}
}
