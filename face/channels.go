package face

import "sync/atomic"

// StateCmd is the latched SET_STATE payload (spec §4.10, §6.2).
type StateCmd struct {
	Mood       Mood
	Intensity  float32
	GazeX      float32
	GazeY      float32
	Brightness float32
}

// SystemCmd is the latched SET_SYSTEM payload.
type SystemCmd struct {
	Mode  SystemMode
	Phase uint8
	Param float32
}

// TalkingCmd is the latched SET_TALKING payload.
type TalkingCmd struct {
	Talking bool
	Energy  float32
}

// FlagsCmd is the latched SET_FLAGS bitset.
type FlagsCmd uint8

const (
	FlagCalibration FlagsCmd = 1 << iota
	FlagSolidEye
	FlagHFlicker
	FlagVFlicker
	FlagNoAfterglow
)

// Latched publishes the most recent value of T along with the monotonic
// microsecond time it was published, used as a version/epoch a reader
// can compare against its own "last seen" to decide whether anything
// changed (spec §4.10: "a tuple of atomic fields plus a published
// microsecond atomic used as version/epoch").
type Latched[T any] struct {
	value     atomic.Pointer[T]
	publishUs atomic.Uint64
}

// Publish stores v and bumps the epoch. Multiple concurrent publishers
// are safe (last one to store wins), though spec §4.10 assumes a single
// host-RX writer per channel.
func (l *Latched[T]) Publish(v T, nowUs uint64) {
	l.value.Store(&v)
	l.publishUs.Store(nowUs)
}

// Load returns the most recently published value and its epoch. Before
// any publish, it returns the zero value and epoch 0.
func (l *Latched[T]) Load() (T, uint64) {
	p := l.value.Load()
	if p == nil {
		var zero T
		return zero, 0
	}
	return *p, l.publishUs.Load()
}

const gestureRingCapacity = 16

// GestureMsg is one queued gesture activation (spec §4.10).
type GestureMsg struct {
	ID       Gesture
	Duration uint64 // microseconds; 0 means per-gesture default
	TsUs     uint64
}

// GestureRing is an SPSC FIFO with drop-oldest-on-overflow semantics
// (spec §4.10: "queued because each one-shot gesture is semantically
// distinct"). A single host-RX task pushes; a single animation task
// pops.
type GestureRing struct {
	buf        [gestureRingCapacity]GestureMsg
	head, tail atomic.Uint32 // head: next pop index; tail: next push index
}

// Push enqueues msg, dropping the oldest entry if the ring is full.
func (r *GestureRing) Push(msg GestureMsg) {
	tail := r.tail.Load()
	head := r.head.Load()
	if tail-head >= gestureRingCapacity {
		r.head.Store(head + 1) // drop oldest
	}
	r.buf[tail%gestureRingCapacity] = msg
	r.tail.Store(tail + 1)
}

// Pop removes and returns the oldest queued gesture, if any.
func (r *GestureRing) Pop() (GestureMsg, bool) {
	head := r.head.Load()
	tail := r.tail.Load()
	if head == tail {
		return GestureMsg{}, false
	}
	msg := r.buf[head%gestureRingCapacity]
	r.head.Store(head + 1)
	return msg, true
}

// CommandChannels groups every latched/queued channel the host-RX task
// publishes into and the animation task drains each frame (spec §4.10).
type CommandChannels struct {
	State      Latched[StateCmd]
	System     Latched[SystemCmd]
	Talking    Latched[TalkingCmd]
	Flags      Latched[FlagsCmd]
	ConvState  Latched[ConvState]
	Gestures   GestureRing
}
