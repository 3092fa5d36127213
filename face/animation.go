package face

import (
	"image"
	"math"
	"math/rand"
	"time"
)

// Animator owns a FaceState and the per-frame tick that turns latched
// commands into the next pose (spec §4.6: "a single task owns
// FaceState").
type Animator struct {
	State *FaceState
	rand  *rand.Rand
}

// NewAnimator seeds the animator's jitter/idle-gaze RNG the same way the
// teacher's screensaver seeds its own (spec §4.6's randomized wander and
// gesture waveforms have no determinism requirement).
func NewAnimator() *Animator {
	return &Animator{
		State: NewFaceState(),
		rand:  rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Tick consumes cmds (draining in the order spec §4.6 requires) and
// advances the face pose by one frame of dt seconds.
func (a *Animator) Tick(cmds *CommandChannels, border *Border, nowUs uint64, dt float32) {
	s := a.State
	s.NowUs = nowUs

	a.drainGestures(cmds, nowUs)
	a.applyState(cmds, nowUs)
	a.applySystem(cmds, nowUs)
	a.applyTalking(cmds, nowUs)
	flags := a.applyFlags(cmds)
	a.applyConvState(cmds, border, nowUs)

	switch {
	case s.Effects.BootActive:
		a.tickBoot(dt)
	case s.System.Mode != SystemNone:
		a.tickBreathing(dt)
		a.tickSystemMode(dt)
		a.tickGestures(nowUs)
		a.tickSquashStretch()
	default:
		a.tickBreathing(dt)
		a.tickAutoBlink(nowUs)
		a.tickIdleGaze(nowUs)
		a.applyMoodTargets()
		a.tickGestures(nowUs)
		a.applyTalkingOverlay()
		a.tickSquashStretch()
	}

	a.tweenAll(dt)
	a.tickFlicker(flags)
}

// drainGestures pops every queued gesture and starts its activation
// window (spec §4.6 step 1).
func (a *Animator) drainGestures(cmds *CommandChannels, nowUs uint64) {
	s := a.State
	for {
		msg, ok := cmds.Gestures.Pop()
		if !ok {
			return
		}
		dur := msg.Duration
		if dur == 0 {
			dur = defaultGestureDurationMs[msg.ID] * 1000
		}
		if dur < GestureMinDurationMs*1000 {
			dur = GestureMinDurationMs * 1000
		}
		s.Timers.Gestures[msg.ID] = GestureTimer{Active: true, StartUs: nowUs, Duration: dur}
	}
}

func (a *Animator) applyState(cmds *CommandChannels, nowUs uint64) {
	cmd, epoch := cmds.State.Load()
	if epoch == 0 {
		return
	}
	s := a.State
	s.Mood = cmd.Mood
	s.EyeL.GazeXTarget, s.EyeR.GazeXTarget = cmd.GazeX, cmd.GazeX
	s.EyeL.GazeYTarget, s.EyeR.GazeYTarget = cmd.GazeY, cmd.GazeY
	s.Brightness = clamp01(cmd.Brightness)
}

func (a *Animator) applySystem(cmds *CommandChannels, nowUs uint64) {
	cmd, epoch := cmds.System.Load()
	if epoch == 0 {
		return
	}
	s := a.State
	if cmd.Mode != s.System.Mode {
		s.System.EnteredUs = nowUs
	}
	s.System.Mode = cmd.Mode
	s.System.Param = cmd.Param
}

func (a *Animator) applyTalking(cmds *CommandChannels, nowUs uint64) {
	cmd, epoch := cmds.Talking.Load()
	s := a.State
	wasTalking := s.Talking

	switch {
	case epoch != 0 && cmd.Talking:
		s.Talking = true
		s.TalkingEnergy = clamp01(cmd.Energy)
		s.talkingLastUs = nowUs
	case epoch != 0 && !cmd.Talking:
		s.Talking = false
		s.TalkingEnergy = 0
	case s.Talking && nowUs-s.talkingLastUs > TalkingCmdTimeoutMs*1000:
		s.Talking = false
		s.TalkingEnergy = 0
	}

	if wasTalking && !s.Talking {
		s.MouthOpenTarget = 0
	}
}

func (a *Animator) applyFlags(cmds *CommandChannels) FlagsCmd {
	flags, _ := cmds.Flags.Load()
	a.State.SolidEye = flags&FlagSolidEye != 0
	a.State.Effects.Afterglow = flags&FlagNoAfterglow == 0
	a.State.calibrationFlags = flags
	return flags
}

// SetTouch records the latest touch point for the calibration-mode
// crosshair (spec §4.7 step 2).
func (a *Animator) SetTouch(pt image.Point) {
	a.State.calibrationTouch = pt
}

func (a *Animator) applyConvState(cmds *CommandChannels, border *Border, nowUs uint64) {
	state, epoch := cmds.ConvState.Load()
	if epoch == 0 {
		return
	}
	a.State.ConvState = state
	if border != nil {
		border.SetState(state, nowUs)
	}
}

// tickBoot advances the three-phase boot drape (spec §4.6 "Boot phase").
func (a *Animator) tickBoot(dt float32) {
	s := a.State
	s.Effects.BootTimerUs += uint64(dt * 1e6)
	t := float32(s.Effects.BootTimerUs) / 1e6

	switch s.Effects.BootPhase {
	case 0: // ease-in eye-open
		progress := clamp01(t / 0.6)
		s.EyeL.Openness, s.EyeR.Openness = progress, progress
		s.EyeL.OpennessTarget, s.EyeR.OpennessTarget = 1, 1
		if progress >= 1 {
			s.Effects.BootPhase = 1
			s.Effects.BootTimerUs = 0
		}
	case 1: // blink down and up
		const half = 0.25
		if t < half {
			v := 1 - clamp01(t/half)
			s.EyeL.Openness, s.EyeR.Openness = v, v
		} else {
			v := clamp01((t - half) / half)
			s.EyeL.Openness, s.EyeR.Openness = v, v
		}
		if t >= 2*half {
			s.Effects.BootPhase = 2
			s.Effects.BootTimerUs = 0
		}
	case 2: // look left-right-center then deactivate
		const leg = 0.35
		switch {
		case t < leg:
			s.EyeL.GazeX, s.EyeR.GazeX = -MaxGaze, -MaxGaze
		case t < 2*leg:
			s.EyeL.GazeX, s.EyeR.GazeX = MaxGaze, MaxGaze
		case t < 3*leg:
			s.EyeL.GazeX, s.EyeR.GazeX = 0, 0
		default:
			s.Effects.BootActive = false
			s.Effects.BootTimerUs = 0
		}
	}
}

func (a *Animator) tickBreathing(dt float32) {
	if !a.State.Effects.Breathing {
		return
	}
	e := &a.State.Effects
	e.BreathPhase += BreathSpeed / FPS
	if e.BreathPhase > 2*math.Pi {
		e.BreathPhase -= 2 * math.Pi
	}
	scale := 1 + float32(math.Sin(float64(e.BreathPhase)))*BreathAmount
	a.State.EyeL.HeightScaleTarget = scale
	a.State.EyeR.HeightScaleTarget = scale
}

func (a *Animator) tickAutoBlink(nowUs uint64) {
	s := a.State
	if !s.Timers.AutoBlink {
		return
	}
	if nowUs >= s.Timers.NextBlinkUs {
		s.EyeL.OpennessTarget, s.EyeR.OpennessTarget = 0, 0
		variation := uint64(a.rand.Int63n(BlinkVariationMs))
		s.Timers.NextBlinkUs = nowUs + (BlinkIntervalMs+variation)*1000
	}
	if s.EyeL.IsOpen && s.EyeL.Openness < 0.05 {
		s.EyeL.OpennessTarget = 1
	}
	if s.EyeR.IsOpen && s.EyeR.Openness < 0.05 {
		s.EyeR.OpennessTarget = 1
	}
	s.EyeL.IsOpen = s.EyeL.OpennessTarget >= 1
	s.EyeR.IsOpen = s.EyeR.OpennessTarget >= 1
}

func (a *Animator) tickIdleGaze(nowUs uint64) {
	s := a.State
	if !s.Timers.Idle {
		return
	}
	if nowUs < s.Timers.NextIdleUs {
		return
	}
	gx := (a.rand.Float32()*2 - 1) * MaxGaze
	gy := (a.rand.Float32()*2 - 1) * MaxGaze * IdleGazeYScale
	s.EyeL.GazeXTarget, s.EyeR.GazeXTarget = gx, gx
	s.EyeL.GazeYTarget, s.EyeR.GazeYTarget = gy, gy
	variation := uint64(a.rand.Int63n(IdleGazeVariationMs))
	s.Timers.NextIdleUs = nowUs + (IdleGazeIntervalMs+variation)*1000
}

// applyMoodTargets is the mood -> eyelid/mouth target table (spec §4.6).
func (a *Animator) applyMoodTargets() {
	s := a.State
	resetEyelids := func() {
		s.LidL.Happy, s.LidR.Happy = 0, 0
		s.LidL.HappyTarget, s.LidR.HappyTarget = 0, 0
		s.LidL.Angry, s.LidR.Angry = 0, 0
		s.LidL.AngryTarget, s.LidR.AngryTarget = 0, 0
		s.LidL.Tired, s.LidR.Tired = 0, 0
		s.LidL.TiredTarget, s.LidR.TiredTarget = 0, 0
	}
	resetEyelids()
	s.Effects.Sparkle = s.Mood == MoodLove || s.Mood == MoodExcited || s.Mood == MoodSilly
	setLids := func(top, bottom, slope float32) {
		s.LidL.TopCoverageTarget, s.LidR.TopCoverageTarget = top, top
		s.LidL.BottomCoverageTarget, s.LidR.BottomCoverageTarget = bottom, bottom
		s.LidL.SlopeTarget, s.LidR.SlopeTarget = slope, -slope
	}
	switch s.Mood {
	case MoodHappy, MoodExcited, MoodLove, MoodSilly:
		s.MouthCurveTarget = 0.8
		s.LidL.HappyTarget, s.LidR.HappyTarget = 1, 1
		setLids(0, 0.25, 0)
	case MoodAngry, MoodScared:
		s.MouthCurveTarget = -0.6
		s.LidL.AngryTarget, s.LidR.AngryTarget = 1, 1
		setLids(0.35, 0, 0.3)
	case MoodSad, MoodSleepy:
		s.MouthCurveTarget = -0.3
		s.LidL.TiredTarget, s.LidR.TiredTarget = 1, 1
		setLids(0.3, 0, -0.15)
	case MoodCurious, MoodThinking:
		s.MouthCurveTarget = 0.1
		setLids(0.1, 0, 0)
	case MoodSurprised:
		s.MouthCurveTarget = 0
		setLids(0, 0, 0)
	default: // neutral
		s.MouthCurveTarget = 0.2
		setLids(0, 0, 0)
	}
}

// tickSystemMode writes this frame's pose targets for the active
// system-mode drape; the regular tween pass then eases toward them
// (spec §4.6: "the regular per-frame tween runs but on pose targets
// that the system-mode routine writes first").
func (a *Animator) tickSystemMode(dt float32) {
	s := a.State
	elapsed := float64(s.NowUs-s.System.EnteredUs) / 1e6

	switch s.System.Mode {
	case SystemBooting:
		// Sleepy-to-awake yawn.
		progress := clamp01(float32(elapsed) / 1.5)
		s.EyeL.OpennessTarget = 0.3 + 0.7*progress
		s.EyeR.OpennessTarget = 0.3 + 0.7*progress
		s.MouthCurveTarget = -0.2 + 0.2*progress
		s.LidL.TiredTarget, s.LidR.TiredTarget = 1-progress, 1-progress
	case SystemError:
		// Confused shake.
		shake := float32(math.Sin(elapsed*2*math.Pi*4)) * 0.2
		s.EyeL.GazeXTarget, s.EyeR.GazeXTarget = shake, shake
		s.MouthCurveTarget = -0.5
		s.LidL.AngryTarget, s.LidR.AngryTarget = 0.6, 0.6
	case SystemLowBattery:
		// Droopy.
		s.EyeL.OpennessTarget, s.EyeR.OpennessTarget = 0.55, 0.55
		s.LidL.TiredTarget, s.LidR.TiredTarget = 1, 1
		s.MouthCurveTarget = -0.25
		s.EyeL.GazeYTarget, s.EyeR.GazeYTarget = 0.2, 0.2
	case SystemUpdating:
		// Upward-thinking.
		s.EyeL.GazeYTarget, s.EyeR.GazeYTarget = -0.4, -0.4
		s.MouthCurveTarget = 0.1
	case SystemShuttingDown:
		// Close-eyes fade.
		progress := clamp01(float32(elapsed) / 1.2)
		s.EyeL.OpennessTarget = 1 - progress
		s.EyeR.OpennessTarget = 1 - progress
		s.Brightness = clamp01(1 - progress)
	}
}

// tickGestures applies each active gesture's waveform overlay and
// expires ones past their window (spec §4.6 "Gesture overlays").
func (a *Animator) tickGestures(nowUs uint64) {
	s := a.State
	active := GestureNone
	for g, timer := range s.Timers.Gestures {
		if !timer.Active {
			continue
		}
		if nowUs >= timer.StartUs+timer.Duration {
			s.Timers.Gestures[g].Active = false
			continue
		}
		if gesturePriority[Gesture(g)] > gesturePriority[active] {
			active = Gesture(g)
		}
	}
	if active == GestureNone {
		return
	}
	timer := s.Timers.Gestures[active]
	elapsed := float64(nowUs-timer.StartUs) / 1e6
	t := float32(0)
	if timer.Duration > 0 {
		t = float32(elapsed) / (float32(timer.Duration) / 1e6)
	}

	switch active {
	case GestureBlink:
		s.EyeL.OpennessTarget, s.EyeR.OpennessTarget = 0, 0
	case GestureWinkL:
		s.EyeL.OpennessTarget = 0
	case GestureWinkR:
		s.EyeR.OpennessTarget = 0
	case GestureRage:
		shake := float32(math.Sin(elapsed*2*math.Pi*30)) * 0.08
		s.EyeL.GazeXTarget += shake
		s.EyeR.GazeXTarget += shake
		s.LidL.AngryTarget, s.LidR.AngryTarget = 1, 1
	case GestureSleepy:
		s.LidL.TiredTarget, s.LidR.TiredTarget = 1, 1
		sway := float32(math.Sin(elapsed*2*math.Pi*0.3)) * 0.15
		s.EyeL.GazeYTarget += sway
		s.EyeR.GazeYTarget += sway
	case GestureLaugh:
		chatter := 0.5 + 0.5*float32(math.Sin(elapsed*2*math.Pi*50))
		s.MouthOpenTarget = 0.3 + 0.5*chatter
	case GestureConfused:
		s.MouthOffsetTarget = float32(math.Sin(elapsed*2*math.Pi*12)) * 0.1
	case GestureSurprise:
		const easeWindow = 0.15
		mag := float32(1)
		if t > 1-easeWindow {
			mag = clamp01((1 - t) / easeWindow)
		}
		s.EyeL.WidthScaleTarget = 1 + 0.3*mag
		s.EyeR.WidthScaleTarget = 1 + 0.3*mag
		s.EyeL.HeightScaleTarget = 1 + 0.25*mag
		s.EyeR.HeightScaleTarget = 1 + 0.25*mag
	case GestureHeart, GestureXEyes:
		// hold: no continuous pose change, rendered specially per §4.7.
	}
}

// applyTalkingOverlay pulses the mouth and eye height while talking
// (spec §4.6 "Talking overlay").
func (a *Animator) applyTalkingOverlay() {
	s := a.State
	if !s.Talking {
		return
	}
	e := s.TalkingEnergy
	chatter := 0.5 + 0.5*float32(math.Sin(float64(s.NowUs)/1e6*2*math.Pi*9))
	target := 0.18 + 0.72*e*chatter
	if target > s.MouthOpenTarget {
		s.MouthOpenTarget = target
	}
	pulse := e * 0.05 * chatter
	s.EyeL.HeightScaleTarget += pulse
	s.EyeR.HeightScaleTarget += pulse
}

// tickSquashStretch adjusts width/height scale as openness crosses
// closing/opening thresholds (spec §4.6).
func (a *Animator) tickSquashStretch() {
	for _, eye := range []*EyeState{&a.State.EyeL, &a.State.EyeR} {
		closing := eye.OpennessTarget < eye.Openness
		switch {
		case eye.Openness > 0.98:
			eye.WidthScaleTarget, eye.HeightScaleTarget = 1, 1
		case closing:
			eye.WidthScaleTarget, eye.HeightScaleTarget = 1.15, 0.85
		default:
			eye.WidthScaleTarget, eye.HeightScaleTarget = 0.9, 1.1
		}
	}
}

func tween(x, target, rate float32) float32 {
	return x + (target-x)*rate
}

// tweenAll runs the first-order filter over every continuous field
// (spec §4.6 "Tween everything").
func (a *Animator) tweenAll(dt float32) {
	s := a.State
	for _, eye := range []*EyeState{&s.EyeL, &s.EyeR} {
		eye.Openness = tween(eye.Openness, eye.OpennessTarget, TweenRateOpenness)
		eye.GazeX = tween(eye.GazeX, clampSym(eye.GazeXTarget, MaxGaze), TweenRateGaze)
		eye.GazeY = tween(eye.GazeY, clampSym(eye.GazeYTarget, MaxGaze), TweenRateGaze)
		eye.WidthScale = tween(eye.WidthScale, eye.WidthScaleTarget, TweenRateScale)
		eye.HeightScale = tween(eye.HeightScale, eye.HeightScaleTarget, TweenRateScale)
	}
	for _, lid := range []*EyelidState{&s.LidL, &s.LidR} {
		lid.TopCoverage = tween(lid.TopCoverage, lid.TopCoverageTarget, TweenRateOpenness)
		lid.BottomCoverage = tween(lid.BottomCoverage, lid.BottomCoverageTarget, TweenRateOpenness)
		lid.Slope = tween(lid.Slope, lid.SlopeTarget, TweenRateOpenness)
		lid.Tired = tween(lid.Tired, lid.TiredTarget, TweenRateOpenness)
		lid.Angry = tween(lid.Angry, lid.AngryTarget, TweenRateOpenness)
		lid.Happy = tween(lid.Happy, lid.HappyTarget, TweenRateOpenness)
	}
	s.MouthCurve = tween(s.MouthCurve, s.MouthCurveTarget, TweenRateCurve)
	s.MouthOpen = tween(s.MouthOpen, s.MouthOpenTarget, TweenRateMouthOpen)
	s.MouthWave = tween(s.MouthWave, s.MouthWaveTarget, TweenRateMouthWave)
	s.MouthOffset = tween(s.MouthOffset, s.MouthOffsetTarget, TweenRateOffset)
	s.MouthWidth = tween(s.MouthWidth, s.MouthWidthTarget, TweenRateWidth)
}

// tickFlicker alternates the gaze-x/gaze-y flicker jitter each frame
// (spec §4.6 "Flicker offsets").
func (a *Animator) tickFlicker(flags FlagsCmd) {
	s := a.State
	s.Timers.HFlicker.Enabled = flags&FlagHFlicker != 0
	s.Timers.VFlicker.Enabled = flags&FlagVFlicker != 0

	apply := func(fl *FlickerState, target *float32, other *float32) {
		if !fl.Enabled {
			return
		}
		if fl.Amp == 0 {
			fl.Amp = 0.03
		}
		fl.sign = -fl.sign
		if fl.sign == 0 {
			fl.sign = 1
		}
		*target += fl.Amp * fl.sign
		*other += fl.Amp * fl.sign
	}
	apply(&s.Timers.HFlicker, &s.EyeL.GazeX, &s.EyeR.GazeX)
	apply(&s.Timers.VFlicker, &s.EyeL.GazeY, &s.EyeR.GazeY)
}
