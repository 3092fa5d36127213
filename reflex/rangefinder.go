package reflex

import (
	"time"

	"periph.io/x/conn/v3/gpio"
)

// speedOfSoundMmPerUs is used to convert an HC-SR04-style echo pulse
// width into a one-way distance (round trip halved below).
const speedOfSoundMmPerUs = 0.343

// rangeMinMm/rangeMaxMm bound plausible echo readings; outside this band
// the sample is reported RangeOutOfRange rather than trusted (spec §4.5).
const (
	rangeMinMm = 20
	rangeMaxMm = 4000
)

// rangeEchoTimeout is how long Trigger waits for the echo pin to return
// low before giving up on this cycle (spec §4.5: "a trigger/echo cycle
// that can simply time out without wedging the task").
const rangeEchoTimeout = 30 * time.Millisecond

// Rangefinder drives one HC-SR04-style trigger/echo ultrasonic sensor.
type Rangefinder struct {
	trig gpio.PinOut
	echo gpio.PinIn
	Now  func() uint64
}

// NewRangefinder configures the echo pin for edge capture and returns the
// driver.
func NewRangefinder(trig gpio.PinOut, echo gpio.PinIn, now func() uint64) (*Rangefinder, error) {
	if err := trig.Out(gpio.Low); err != nil {
		return nil, err
	}
	if err := echo.In(gpio.Float, gpio.BothEdges); err != nil {
		return nil, err
	}
	return &Rangefinder{trig: trig, echo: echo, Now: now}, nil
}

// Sample runs one trigger/echo cycle (spec §4.5): a 10us trigger pulse,
// then measure the echo pin's high duration via edge capture. Returns a
// RangeSample classified as RangeTimeout, RangeOutOfRange, or RangeOK.
func (r *Rangefinder) Sample() RangeSample {
	var ts uint64
	if r.Now != nil {
		ts = r.Now()
	}
	r.trig.Out(gpio.High)
	time.Sleep(10 * time.Microsecond)
	r.trig.Out(gpio.Low)

	if !r.echo.WaitForEdge(rangeEchoTimeout) || r.echo.Read() != gpio.High {
		return RangeSample{Status: RangeTimeout, TimestampUs: ts}
	}
	start := time.Now()
	if !r.echo.WaitForEdge(rangeEchoTimeout) {
		return RangeSample{Status: RangeTimeout, TimestampUs: ts}
	}
	elapsed := time.Since(start)

	distMm := int32(float64(elapsed.Microseconds()) * speedOfSoundMmPerUs / 2)
	if distMm < rangeMinMm || distMm > rangeMaxMm {
		return RangeSample{RangeMm: distMm, Status: RangeOutOfRange, TimestampUs: ts}
	}
	return RangeSample{RangeMm: distMm, Status: RangeOK, TimestampUs: ts}
}

// Run blocks, sampling at period and publishing into buf, until stop is
// closed (spec §4.5's periodic trigger/echo task).
func (r *Rangefinder) Run(period time.Duration, buf *DoubleBuffer[RangeSample], stop <-chan struct{}) {
	t := time.NewTicker(period)
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case <-t.C:
			buf.Publish(r.Sample())
		}
	}
}
