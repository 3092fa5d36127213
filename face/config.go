package face

import "time"

// FPS is the nominal render/animation rate (spec §4.6: "fixed-rate
// (30 FPS nominal)").
const FPS = 30

// FrameInterval is the animation task's tick period.
const FrameInterval = time.Second / FPS

// Tunables for the per-frame tween and gesture waveforms (spec §4.6,
// §9's open question on frame-rate-dependent tween rates: these are
// calibrated for FPS above and should be rescaled if FPS changes).
const (
	MaxGaze = 0.6

	BreathSpeed  = 0.8 // radians/sec
	BreathAmount = 0.04

	BlinkIntervalMs  = 3500
	BlinkVariationMs = 2500

	IdleGazeIntervalMs    = 2200
	IdleGazeVariationMs   = 1800
	IdleGazeYScale        = 0.6

	TalkingCmdTimeoutMs = 400

	// Tween rates, per spec §4.6 "tween everything".
	TweenRateOpenness  = 0.5
	TweenRateGaze      = 0.35
	TweenRateScale     = 0.3
	TweenRateMouthOpen = 0.3
	TweenRateMouthWave = 0.3
	TweenRateCurve     = 0.25
	TweenRateWidth     = 0.25
	TweenRateOffset    = 0.25

	MouthThickness = 0.06

	BorderBlendRate = 4.0 // per second
	LedScale        = 0.8

	GestureMinDurationMs = 80
)

// defaultGestureDurationMs is used when a GESTURE command's duration_ms
// is 0 (spec §4.6: "duration 0 means use default for this gesture").
var defaultGestureDurationMs = map[Gesture]uint64{
	GestureBlink:     220,
	GestureConfused:  1200,
	GestureLaugh:     900,
	GestureSurprise:  500,
	GestureHeart:     1500,
	GestureXEyes:     1500,
	GestureSleepy:    2000,
	GestureRage:      1200,
	GestureWinkL:     220,
	GestureWinkR:     220,
}
