// Package face implements the Face MCU's animation and rendering core: a
// fixed-rate state machine that maps mood/gesture/system-mode commands
// into a continuous face pose, tweens it frame by frame, and rasterizes
// it into an RGB565 framebuffer (spec §1 pt. 2, §3-§4.10).
package face

import (
	"image"
	"image/color"
)

// Mood is the face's top-level emotional register (spec §3).
type Mood uint8

const (
	MoodNeutral Mood = iota
	MoodHappy
	MoodExcited
	MoodCurious
	MoodSad
	MoodScared
	MoodAngry
	MoodSurprised
	MoodSleepy
	MoodLove
	MoodSilly
	MoodThinking
)

// Gesture is a one-shot overlay animation (spec §3, §4.6).
type Gesture uint8

const (
	GestureNone Gesture = iota
	GestureBlink
	GestureConfused
	GestureLaugh
	GestureSurprise
	GestureHeart
	GestureXEyes
	GestureSleepy
	GestureRage
	// GestureWinkL and GestureWinkR close only one eye, supplementing
	// spec.md's gesture set with the original firmware's WINK_L/WINK_R
	// (esp32-face/main/face_state.cpp's GestureId enum and
	// face_wink_left/face_wink_right).
	GestureWinkL
	GestureWinkR
)

// gesturePriority resolves simultaneously-active gestures: higher wins
// (spec §3 invariant: "rage > heart > surprise > x_eyes > sleepy > laugh
// > confused"; winks slot in beside blink since both are single-eyelid
// reflexes rather than whole-face expressions).
var gesturePriority = map[Gesture]int{
	GestureRage:     8,
	GestureHeart:    7,
	GestureSurprise: 6,
	GestureXEyes:    5,
	GestureSleepy:   4,
	GestureLaugh:    3,
	GestureConfused: 2,
	GestureBlink:    1,
	GestureWinkL:    1,
	GestureWinkR:    1,
}

// SystemMode is a full-screen or icon-overlay mode that overrides the
// regular mood-driven pose (spec §3, §4.6).
type SystemMode uint8

const (
	SystemNone SystemMode = iota
	SystemBooting
	SystemError
	SystemLowBattery
	SystemUpdating
	SystemShuttingDown
)

// ConvState drives the conversation border (spec §4.8).
type ConvState uint8

const (
	ConvIdle ConvState = iota
	ConvAttention
	ConvListening
	ConvPTT
	ConvThinking
	ConvSpeaking
	ConvError
	ConvDone
)

// EyeState is one eye's continuous pose (spec §3).
type EyeState struct {
	Openness, OpennessTarget         float32
	GazeX, GazeXTarget                float32
	GazeY, GazeYTarget                float32
	WidthScale, WidthScaleTarget      float32
	HeightScale, HeightScaleTarget    float32
	IsOpen                             bool
}

// EyelidState is one eye's lid coverage and legacy mood overlays (spec §3).
type EyelidState struct {
	TopCoverage, TopCoverageTarget       float32
	BottomCoverage, BottomCoverageTarget float32
	Slope, SlopeTarget                   float32
	Tired, TiredTarget                   float32
	Angry, AngryTarget                   float32
	Happy, HappyTarget                   float32
}

// GestureTimer tracks one gesture's activation window.
type GestureTimer struct {
	Active   bool
	StartUs  uint64
	Duration uint64 // microseconds; 0 resolves to a per-gesture default
}

// FlickerState is an alternating-sign jitter offset (spec §3 AnimTimers).
type FlickerState struct {
	Enabled bool
	Amp     float32
	sign    float32
}

// AnimTimers holds gesture activation state, blink/gaze scheduling, and
// flicker (spec §3).
type AnimTimers struct {
	Gestures [11]GestureTimer // indexed by Gesture

	HFlicker, VFlicker FlickerState

	NextBlinkUs uint64
	NextIdleUs  uint64
	AutoBlink   bool
	Idle        bool
}

// SparkleParticle is a single-pixel highlight (spec §3 EffectsState).
type SparkleParticle struct {
	X, Y float32
	Life float32
}

// FireParticle is one ember of the rage overlay (spec §3 EffectsState).
type FireParticle struct {
	X, Y float32
	Life float32
	Heat float32
}

const (
	maxSparkles = 24
	maxFire     = 48
)

// EffectsState holds breathing phase and the particle systems (spec §3).
type EffectsState struct {
	Breathing      bool
	BreathPhase    float32
	EdgeGlow       bool
	Afterglow      bool
	Sparkle        bool
	Sparkles       [maxSparkles]SparkleParticle
	Fire           [maxFire]FireParticle
	BootPhase      int
	BootTimerUs    uint64
	BootActive     bool
}

// SystemState is the current system-mode overlay (spec §3).
type SystemState struct {
	Mode     SystemMode
	EnteredUs uint64
	Param    float32
}

// FaceState is the complete animation pose at one instant, owned and
// mutated only by the animation task (spec §3 Lifecycle).
type FaceState struct {
	EyeL, EyeR       EyeState
	LidL, LidR       EyelidState
	Timers           AnimTimers
	Effects          EffectsState
	System           SystemState

	Mood       Mood
	Brightness float32
	SolidEye   bool
	ShowMouth  bool

	Talking       bool
	TalkingEnergy float32
	talkingLastUs uint64

	MouthCurve, MouthCurveTarget   float32
	MouthOpen, MouthOpenTarget     float32
	MouthWave, MouthWaveTarget     float32
	MouthOffset, MouthOffsetTarget float32
	MouthWidth, MouthWidthTarget   float32

	ConvState ConvState

	calibrationFlags FlagsCmd
	calibrationTouch image.Point

	NowUs uint64
}

// NewFaceState returns a FaceState at rest: eyes open, neutral mood,
// boot sequence armed.
func NewFaceState() *FaceState {
	f := &FaceState{
		Mood:       MoodNeutral,
		Brightness: 1,
		ShowMouth:  true,
		MouthWidth: 1, MouthWidthTarget: 1,
	}
	f.EyeL.WidthScale, f.EyeL.WidthScaleTarget = 1, 1
	f.EyeL.HeightScale, f.EyeL.HeightScaleTarget = 1, 1
	f.EyeR.WidthScale, f.EyeR.WidthScaleTarget = 1, 1
	f.EyeR.HeightScale, f.EyeR.HeightScaleTarget = 1, 1
	f.Timers.AutoBlink = true
	f.Timers.Idle = true
	f.Effects.Breathing = true
	f.Effects.Afterglow = true
	f.Effects.BootActive = true
	return f
}

// Flags returns the most recently applied SET_FLAGS bitset, for
// telemetry to echo back (spec §6.3).
func (f *FaceState) Flags() FlagsCmd { return f.calibrationFlags }

// clamp01 restricts v to [0,1].
func clamp01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func clampSym(v, limit float32) float32 {
	if v > limit {
		return limit
	}
	if v < -limit {
		return -limit
	}
	return v
}

// moodColor maps a Mood to its constant eye/mouth color (spec §4.6
// "twelve colors").
func moodColor(m Mood) color.RGBA {
	switch m {
	case MoodHappy:
		return color.RGBA{R: 0x3d, G: 0xd9, B: 0x5a, A: 0xff}
	case MoodExcited:
		return color.RGBA{R: 0xff, G: 0xb3, B: 0x00, A: 0xff}
	case MoodCurious:
		return color.RGBA{R: 0x4f, G: 0xc3, B: 0xf7, A: 0xff}
	case MoodSad:
		return color.RGBA{R: 0x3f, G: 0x5c, B: 0x8a, A: 0xff}
	case MoodScared:
		return color.RGBA{R: 0x9b, G: 0x59, B: 0xb6, A: 0xff}
	case MoodAngry:
		return color.RGBA{R: 0xe7, G: 0x3b, B: 0x2c, A: 0xff}
	case MoodSurprised:
		return color.RGBA{R: 0xff, G: 0xe6, B: 0x66, A: 0xff}
	case MoodSleepy:
		return color.RGBA{R: 0x6c, G: 0x6a, B: 0x9e, A: 0xff}
	case MoodLove:
		return color.RGBA{R: 0xff, G: 0x6f, B: 0x91, A: 0xff}
	case MoodSilly:
		return color.RGBA{R: 0xff, G: 0x7f, B: 0x50, A: 0xff}
	case MoodThinking:
		return color.RGBA{R: 0x8e, G: 0x8e, B: 0x93, A: 0xff}
	default: // MoodNeutral
		return color.RGBA{R: 0x5a, G: 0xd8, B: 0xe6, A: 0xff}
	}
}
