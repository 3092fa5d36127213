package reflex

import (
	"sync/atomic"

	"periph.io/x/conn/v3/gpio"
)

// QuadratureEncoder accumulates a single wheel's signed tick count from a
// two-channel quadrature sensor, sampled on channel A's edges with B's
// level giving direction (spec §3, §4.2 step 1: "a pair of quadrature
// accumulators").
type QuadratureEncoder struct {
	a, b  gpio.PinIn
	count atomic.Int32
}

// NewQuadratureEncoder configures both pins for edge-triggered input and
// returns the encoder. Call Run in its own goroutine to start counting.
func NewQuadratureEncoder(a, b gpio.PinIn) (*QuadratureEncoder, error) {
	if err := a.In(gpio.PullUp, gpio.BothEdges); err != nil {
		return nil, err
	}
	if err := b.In(gpio.PullUp, gpio.NoEdge); err != nil {
		return nil, err
	}
	return &QuadratureEncoder{a: a, b: b}, nil
}

// Run blocks, counting edges on channel A until stop is closed. It is
// meant to be the entire body of its owning goroutine; no other code
// touches the pins concurrently.
func (e *QuadratureEncoder) Run(stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		default:
		}
		if !e.a.WaitForEdge(-1) {
			continue
		}
		if e.b.Read() == gpio.High {
			e.count.Add(1)
		} else {
			e.count.Add(-1)
		}
	}
}

// Count returns the current signed accumulator. Safe to call from any
// goroutine.
func (e *QuadratureEncoder) Count() int32 { return e.count.Load() }

// Encoders pairs both wheels' accumulators for one atomic-ish sample
// (spec §4.2 step 1: "sampled as close as possible to each other" — the
// two loads are not synchronized beyond being adjacent in program order,
// which is the best two independent atomics can offer).
type Encoders struct {
	Left, Right *QuadratureEncoder
}

func (e *Encoders) Sample() EncoderCounts {
	return EncoderCounts{Left: e.Left.Count(), Right: e.Right.Count()}
}
