package face

import (
	"image/color"
	"math"
)

// borderColors gives each ConvState its resting color (spec §4.8).
var borderColors = map[ConvState]color.RGBA{
	ConvIdle:      {R: 0x20, G: 0x20, B: 0x20, A: 0xff},
	ConvAttention: {R: 0x4f, G: 0xc3, B: 0xf7, A: 0xff},
	ConvListening: {R: 0x3d, G: 0xd9, B: 0x5a, A: 0xff},
	ConvPTT:       {R: 0xff, G: 0xb3, B: 0x00, A: 0xff},
	ConvThinking:  {R: 0x8e, G: 0x8e, B: 0x93, A: 0xff},
	ConvSpeaking:  {R: 0x5a, G: 0xd8, B: 0xe6, A: 0xff},
	ConvError:     {R: 0xe7, G: 0x3b, B: 0x2c, A: 0xff},
	ConvDone:      {R: 0x20, G: 0x20, B: 0x20, A: 0xff},
}

const attentionSweepSec = 0.4

// OrbitDot is one of THINKING's three dots orbiting the frame perimeter.
type OrbitDot struct {
	PhaseOffset float32
}

// Border implements the conversation border state machine (spec §4.8).
type Border struct {
	State      ConvState
	Color      color.RGBA
	Alpha      float32
	sinceUs    uint64
	enteredUs  uint64

	pttDown, actionDown bool
	pttZoneActive       bool
	actionZoneActive    bool
}

// NewBorder returns a border at rest in ConvIdle with zero alpha.
func NewBorder() *Border {
	return &Border{State: ConvIdle, Color: borderColors[ConvIdle]}
}

// SetState transitions the border to state, resetting its phase timer
// (spec §4.8: "On state change, reset timer").
func (b *Border) SetState(state ConvState, nowUs uint64) {
	if state == b.State {
		return
	}
	b.State = state
	b.enteredUs = nowUs
}

// Tick advances the border's color/alpha/motion by dt, given the latest
// published talking energy for SPEAKING (spec §4.8).
func (b *Border) Tick(nowUs uint64, dtSec float32, talkingEnergy float32) {
	elapsed := float32(nowUs-b.enteredUs) / 1e6
	target := borderColors[b.State]

	switch b.State {
	case ConvAttention:
		// 0.4s edge sweep: alpha ramps up then the state naturally
		// continues to whatever the host sends next.
		t := elapsed / attentionSweepSec
		if t > 1 {
			t = 1
		}
		b.Alpha = t
		b.Color = target
	case ConvListening, ConvPTT:
		b.Alpha = 0.5 + 0.5*float32(math.Sin(float64(elapsed)*2*math.Pi/1.6))
		b.Color = blendColor(b.Color, target, BorderBlendRate*dtSec)
	case ConvThinking:
		b.Alpha = 0.85
		b.Color = blendColor(b.Color, target, BorderBlendRate*dtSec)
	case ConvSpeaking:
		b.Alpha = clamp01(0.2 + 0.8*talkingEnergy)
		b.Color = blendColor(b.Color, target, BorderBlendRate*dtSec)
	case ConvError:
		// Flash bright then exponentially decay.
		decay := float32(math.Exp(-float64(elapsed) * 3))
		b.Alpha = decay
		b.Color = target
	case ConvDone, ConvIdle:
		b.Alpha -= dtSec / 0.6
		if b.Alpha < 0 {
			b.Alpha = 0
		}
		b.Color = blendColor(b.Color, target, BorderBlendRate*dtSec)
	}
}

// OrbitPositions returns the three THINKING orbit dots' phase angles in
// radians, for the renderer to place around the perimeter.
func (b *Border) OrbitPositions(nowUs uint64) [3]float32 {
	t := float32(nowUs) / 1e6
	var out [3]float32
	for i := range out {
		out[i] = t*2*math.Pi/1.2 + float32(i)*2*math.Pi/3
	}
	return out
}

// LEDColor returns the onboard status LED color: the border color scaled
// by alpha*LedScale (spec §4.8).
func (b *Border) LEDColor() color.RGBA {
	scale := b.Alpha * LedScale
	return color.RGBA{
		R: scaleChan(b.Color.R, scale),
		G: scaleChan(b.Color.G, scale),
		B: scaleChan(b.Color.B, scale),
		A: 0xff,
	}
}

func scaleChan(c uint8, scale float32) uint8 {
	v := float32(c) * scale
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

func blendColor(from, to color.RGBA, rate float32) color.RGBA {
	rate = clamp01(rate)
	lerp := func(a, b uint8) uint8 {
		return uint8(float32(a) + (float32(b)-float32(a))*rate)
	}
	return color.RGBA{R: lerp(from.R, to.R), G: lerp(from.G, to.G), B: lerp(from.B, to.B), A: 0xff}
}

// HitZone identifies which corner zone a touch point fell in.
type HitZone int

const (
	HitNone HitZone = iota
	HitPTT
	HitAction
)

// PressEvent is what hit-testing emits for the animation task to forward
// as BUTTON_EVENT telemetry (spec §4.8).
type PressEvent struct {
	Zone  HitZone
	Event ButtonEventType
}

// HandleTouch runs the border's hit testing for one touch transition.
// suppressed is true while a system overlay owns the screen (spec §4.8:
// "During a system overlay, hit testing is suppressed").
func (b *Border) HandleTouch(pressed bool, zone HitZone, suppressed bool) []PressEvent {
	if suppressed || zone == HitNone {
		return nil
	}
	var events []PressEvent
	switch zone {
	case HitPTT:
		if pressed && !b.pttDown {
			b.pttDown = true
			b.pttZoneActive = true
			events = append(events, PressEvent{Zone: HitPTT, Event: ButtonPress})
		} else if !pressed && b.pttDown {
			b.pttDown = false
			events = append(events, PressEvent{Zone: HitPTT, Event: ButtonRelease})
			if b.pttZoneActive {
				events = append(events, PressEvent{Zone: HitPTT, Event: ButtonToggle})
			}
			b.pttZoneActive = false
		}
	case HitAction:
		if pressed && !b.actionDown {
			b.actionDown = true
			b.actionZoneActive = true
			events = append(events, PressEvent{Zone: HitAction, Event: ButtonPress})
		} else if !pressed && b.actionDown {
			b.actionDown = false
			events = append(events, PressEvent{Zone: HitAction, Event: ButtonRelease})
			if b.actionZoneActive {
				events = append(events, PressEvent{Zone: HitAction, Event: ButtonClick})
			}
			b.actionZoneActive = false
		}
	}
	return events
}
