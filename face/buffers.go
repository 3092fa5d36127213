package face

import "sync/atomic"

// DoubleBuffer publishes the latest value of T from a single writer to
// any number of readers without locks (spec §9's cross-task sharing
// pattern, reimplemented here since the Face MCU is an independent
// firmware image from Reflex and carries its own copy of every shared
// primitive rather than importing the other MCU's package).
type DoubleBuffer[T any] struct {
	slots   [2]T
	writeAt int
	current atomic.Pointer[T]
}

// NewDoubleBuffer returns a buffer pre-published with the zero value.
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
