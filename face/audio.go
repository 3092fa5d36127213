package face

import "math"

// PCM sample rate and chunk sizing for the audio-capable variant (spec
// §5 "Memory": "audio chunk queues sized to ~100 ms of PCM").
const (
	SampleRateHz  = 16000
	ChunkDurationMs = 100
	ChunkSamples  = SampleRateHz * ChunkDurationMs / 1000
	audioQueueDepth = 4
)

// PCMChunk is one fixed-size block of signed 16-bit mono samples.
type PCMChunk [ChunkSamples]int16

// pcmRing is a fixed-depth SPSC ring of PCMChunk, drop-oldest on
// overflow (same policy as GestureRing, since both are single-writer
// single-reader queues feeding a real-time task that must never block).
type pcmRing struct {
	buf        [audioQueueDepth]PCMChunk
	head, tail uint32
}

func (r *pcmRing) Push(c PCMChunk) {
	if r.tail-r.head >= audioQueueDepth {
		r.head++
	}
	r.buf[r.tail%audioQueueDepth] = c
	r.tail++
}

func (r *pcmRing) Pop() (PCMChunk, bool) {
	if r.head == r.tail {
		return PCMChunk{}, false
	}
	c := r.buf[r.head%audioQueueDepth]
	r.head++
	return c, true
}

func (r *pcmRing) Len() int {
	return int(r.tail - r.head)
}

// SpeakerQueue buffers outbound PCM chunks awaiting playback.
type SpeakerQueue struct{ ring pcmRing }

func (q *SpeakerQueue) Enqueue(c PCMChunk) { q.ring.Push(c) }
func (q *SpeakerQueue) Dequeue() (PCMChunk, bool) { return q.ring.Pop() }
func (q *SpeakerQueue) Pending() int { return q.ring.Len() }

// MicQueue buffers captured PCM chunks awaiting host drain.
type MicQueue struct{ ring pcmRing }

func (q *MicQueue) Enqueue(c PCMChunk) { q.ring.Push(c) }
func (q *MicQueue) Dequeue() (PCMChunk, bool) { return q.ring.Pop() }
func (q *MicQueue) Pending() int { return q.ring.Len() }

// ToneGenerator synthesizes a sine tone with a linear attack/release
// envelope (spec §1's Non-goal carve-out: "no audio DSP beyond envelope
// shaping for playback").
type ToneGenerator struct {
	FreqHz     float64
	Amplitude  float64 // 0..1
	AttackMs   int
	ReleaseMs  int
	sampleIdx  int
	totalSamples int
}

// NewToneGenerator returns a generator for a tone of durationMs.
func NewToneGenerator(freqHz, amplitude float64, durationMs, attackMs, releaseMs int) *ToneGenerator {
	return &ToneGenerator{
		FreqHz:       freqHz,
		Amplitude:    amplitude,
		AttackMs:     attackMs,
		ReleaseMs:    releaseMs,
		totalSamples: durationMs * SampleRateHz / 1000,
	}
}

// Done reports whether the tone has finished.
func (t *ToneGenerator) Done() bool {
	return t.sampleIdx >= t.totalSamples
}

// FillChunk writes up to len(c) samples and returns how many were
// written (fewer than ChunkSamples on the tone's final chunk).
func (t *ToneGenerator) FillChunk(c *PCMChunk) int {
	attackSamples := t.AttackMs * SampleRateHz / 1000
	releaseSamples := t.ReleaseMs * SampleRateHz / 1000
	n := 0
	for n < len(c) && t.sampleIdx < t.totalSamples {
		env := 1.0
		if attackSamples > 0 && t.sampleIdx < attackSamples {
			env = float64(t.sampleIdx) / float64(attackSamples)
		}
		remaining := t.totalSamples - t.sampleIdx
		if releaseSamples > 0 && remaining < releaseSamples {
			env = math.Min(env, float64(remaining)/float64(releaseSamples))
		}
		phase := 2 * math.Pi * t.FreqHz * float64(t.sampleIdx) / SampleRateHz
		c[n] = int16(math.Sin(phase) * t.Amplitude * env * math.MaxInt16)
		t.sampleIdx++
		n++
	}
	return n
}

// ActivityProbe computes per-chunk RMS for voice-activity detection
// (spec §2's Audio pipeline row: "activity probe").
type ActivityProbe struct {
	level float32
}

// Update feeds one chunk through the probe and returns the smoothed
// activity level in [0,1].
func (p *ActivityProbe) Update(c PCMChunk) float32 {
	var sumSq float64
	for _, s := range c {
		v := float64(s) / math.MaxInt16
		sumSq += v * v
	}
	rms := float32(math.Sqrt(sumSq / float64(len(c))))
	p.level = tween(p.level, clamp01(rms*4), 0.3)
	return p.level
}

// Level returns the last computed activity level without updating it.
func (p *ActivityProbe) Level() float32 { return p.level }
