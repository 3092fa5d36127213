package face

import "testing"

func TestLatchedLoadBeforePublishReturnsZeroEpoch(t *testing.T) {
	var l Latched[StateCmd]
	v, epoch := l.Load()
	if epoch != 0 {
		t.Fatalf("epoch = %d, want 0 before any publish", epoch)
	}
	if v != (StateCmd{}) {
		t.Fatalf("value = %+v, want zero value", v)
	}
}

func TestLatchedLastWriterWins(t *testing.T) {
	var l Latched[StateCmd]
	l.Publish(StateCmd{Mood: MoodSad}, 10)
	l.Publish(StateCmd{Mood: MoodHappy}, 20)
	v, epoch := l.Load()
	if v.Mood != MoodHappy || epoch != 20 {
		t.Fatalf("got %+v @%d, want MoodHappy @20", v, epoch)
	}
}

func TestGestureRingDropsOldestOnOverflow(t *testing.T) {
	var ring GestureRing
	for i := 0; i < gestureRingCapacity+3; i++ {
		ring.Push(GestureMsg{TsUs: uint64(i)})
	}
	first, ok := ring.Pop()
	if !ok {
		t.Fatal("expected at least one message")
	}
	if first.TsUs != 3 {
		t.Fatalf("first.TsUs = %d, want 3 (oldest 3 dropped)", first.TsUs)
	}
	count := 1
	for {
		_, ok := ring.Pop()
		if !ok {
			break
		}
		count++
	}
	if count != gestureRingCapacity {
		t.Fatalf("drained %d messages, want %d", count, gestureRingCapacity)
	}
}
