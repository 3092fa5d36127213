package reflex

import "sync/atomic"

// DoubleBuffer publishes the latest value of T from a single writer to
// any number of readers without locks: the writer stores into the slot
// not currently published, then swaps the published pointer with a
// release store; readers take an acquire load (spec §4.11, §9 "Cross-task
// sharing without locks").
type DoubleBuffer[T any] struct {
	slots   [2]T
	writeAt int
	current atomic.Pointer[T]
}

// NewDoubleBuffer returns a buffer pre-published with the zero value, so
// a reader never observes a nil pointer.
func NewDoubleBuffer[T any]() *DoubleBuffer[T] {
	b := &DoubleBuffer[T]{}
	b.current.Store(&b.slots[0])
	b.writeAt = 1
	return b
}

// Publish writes v into the non-published slot and swaps it in. Only the
// single owning writer task may call this.
func (b *DoubleBuffer[T]) Publish(v T) {
	b.slots[b.writeAt] = v
	b.current.Store(&b.slots[b.writeAt])
	b.writeAt ^= 1
}

// Load returns a snapshot of the most recently published value.
func (b *DoubleBuffer[T]) Load() T {
	return *b.current.Load()
}

// Seqlock publishes a larger record (TelemetryState) using an
// even/odd sequence counter instead of a second buffer slot, matching
// spec §3/§4.11/§9: readers retry on a torn (odd or mismatched) read
// instead of dereferencing a second pointer.
type Seqlock struct {
	seq   atomic.Uint32
	state TelemetryState
}

// Write performs the full seqlock write protocol: bump to odd, run fn to
// mutate the shared state, bump to even (spec §4.2 step 10).
func (s *Seqlock) Write(fn func(*TelemetryState)) {
	s.seq.Add(1) // now odd: readers must retry
	fn(&s.state)
	s.seq.Add(1) // now even: stable again
}

// MaxRetries bounds how many times Read will retry a torn snapshot
// before giving up on this tick (spec §4.11, §5: "retry up to a small
// bound and skip the tick").
const MaxRetries = 3

// Read attempts to take a consistent snapshot, retrying up to
// MaxRetries times. It reports false if every attempt observed a torn
// state (the writer was mid-update throughout).
func (s *Seqlock) Read() (TelemetryState, bool) {
	for range MaxRetries {
		s1 := s.seq.Load()
		if s1&1 != 0 {
			continue
		}
		snap := s.state
		s2 := s.seq.Load()
		if s1 == s2 {
			return snap, true
		}
	}
	return TelemetryState{}, false
}
