package face

import "testing"

func TestSpeakerQueueDropsOldestOnOverflow(t *testing.T) {
	var q SpeakerQueue
	for i := 0; i < audioQueueDepth+2; i++ {
		var c PCMChunk
		c[0] = int16(i)
		q.Enqueue(c)
	}
	if q.Pending() != audioQueueDepth {
		t.Fatalf("pending = %d, want %d", q.Pending(), audioQueueDepth)
	}
	first, ok := q.Dequeue()
	if !ok || first[0] != 2 {
		t.Fatalf("first chunk = %v, want sample 2 (oldest two dropped)", first[0])
	}
}

func TestToneGeneratorFillsExpectedSampleCount(t *testing.T) {
	gen := NewToneGenerator(440, 1.0, 100, 5, 5)
	var total int
	for !gen.Done() {
		var c PCMChunk
		total += gen.FillChunk(&c)
	}
	want := 100 * SampleRateHz / 1000
	if total != want {
		t.Fatalf("wrote %d samples, want %d", total, want)
	}
}

func TestActivityProbeSilenceIsLowLevel(t *testing.T) {
	var p ActivityProbe
	var silent PCMChunk
	for i := 0; i < 10; i++ {
		p.Update(silent)
	}
	if p.Level() > 0.01 {
		t.Fatalf("level = %v, want near 0 for silence", p.Level())
	}
}

func TestActivityProbeLoudSignalRisesTowardOne(t *testing.T) {
	var p ActivityProbe
	var loud PCMChunk
	for i := range loud {
		if i%2 == 0 {
			loud[i] = 32000
		} else {
			loud[i] = -32000
		}
	}
	var level float32
	for i := 0; i < 30; i++ {
		level = p.Update(loud)
	}
	if level < 0.5 {
		t.Fatalf("level = %v, want it to rise well above 0.5 for a loud signal", level)
	}
}
