package reflex

import "math"

// WheelState is the per-wheel memory that must survive from one control
// tick to the next: the rate-limited target and the PI integrator (spec
// §4.2's "stateless across ticks except for the integrators and the
// rate-limited targets").
type WheelState struct {
	RateLimited float32 // mm/s, last tick's slewed target
	Integral    float32 // PI integrator, mm/s
	lastMeas    float32
}

// Loop is the fixed-rate control loop's persistent state (spec §4.2).
type Loop struct {
	Left, Right WheelState

	prevLeftCount, prevRightCount int32
	haveCounts                    bool
}

// WheelOutputs is what one control tick computes for the actuators.
type WheelOutputs struct {
	DutyL, DutyR int32 // signed PWM duty, already clamped to ±MaxPwm
}

// clamp restricts v to [-lim, +lim].
func clamp(v, lim float32) float32 {
	if v > lim {
		return lim
	}
	if v < -lim {
		return -lim
	}
	return v
}

func sign(v float32) float32 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

func rateLimit(prev, target, maxDelta float32) float32 {
	d := target - prev
	if d > maxDelta {
		d = maxDelta
	} else if d < -maxDelta {
		d = -maxDelta
	}
	return prev + d
}

// MeasureWheelSpeeds converts a pair of encoder deltas over dtSeconds
// into mm/s (spec §4.2 step 1).
func MeasureWheelSpeeds(cfg Config, prev, cur EncoderCounts, dtSeconds float32) (leftMmS, rightMmS float32) {
	if dtSeconds <= 0 {
		return 0, 0
	}
	toSpeed := func(delta int32) float32 {
		return (float32(delta) * cfg.WheelCircumferenceMm) / (float32(cfg.CountsPerRev) * dtSeconds)
	}
	return toSpeed(cur.Left - prev.Left), toSpeed(cur.Right - prev.Right)
}

// piWheel implements step 6-7 of spec §4.2 for a single wheel: FF+PI with
// anti-windup back-calculation and deadband/stiction compensation.
func piWheel(cfg Config, w *WheelState, target, measured, dtSeconds float32, faulted bool) int32 {
	if faulted {
		w.Integral = 0
		return 0
	}
	e := target - measured
	w.Integral += e * dtSeconds

	uPre := cfg.KV*target + sign(target)*cfg.KS + cfg.Kp*e + cfg.Ki*w.Integral
	maxPwm := float32(cfg.MaxPwm)
	u := clamp(uPre, maxPwm)
	if u != uPre && cfg.Ki != 0 {
		// Anti-windup: half back-calculation bleed (spec §4.2 step 6).
		w.Integral -= (uPre - u) / cfg.Ki * 0.5
	}

	// Deadband / stiction compensation (spec §4.2 step 7).
	minPwm := float32(cfg.MinPwm)
	if target != 0 {
		if u == 0 {
			u = sign(target) * minPwm
		} else {
			u += sign(u) * minPwm
		}
	}
	u = clamp(u, maxPwm)
	return int32(u)
}

// Tick advances the control loop by one period (spec §4.2). dtSeconds is
// the elapsed time measured from the monotonic clock, not assumed fixed.
// gyroZ is the latest IMU reading in rad/s. faulted gates PWM output to
// zero and resets integrators/rate limiters together (spec §4.2 step 8).
func (l *Loop) Tick(cfg Config, cmd Command, counts EncoderCounts, gyroZ float32, dtSeconds float32, faulted bool) WheelOutputs {
	if !l.haveCounts {
		l.prevLeftCount, l.prevRightCount = counts.Left, counts.Right
		l.haveCounts = true
	}
	prev := EncoderCounts{Left: l.prevLeftCount, Right: l.prevRightCount}
	measL, measR := MeasureWheelSpeeds(cfg, prev, counts, dtSeconds)
	l.prevLeftCount, l.prevRightCount = counts.Left, counts.Right
	l.Left.lastMeas, l.Right.lastMeas = measL, measR

	if faulted {
		l.Left.RateLimited = 0
		l.Right.RateLimited = 0
		l.Left.Integral = 0
		l.Right.Integral = 0
		return WheelOutputs{}
	}

	vCmd := float32(cmd.VMmS)
	wCmd := float32(cmd.WMradS) / 1000 // mrad/s -> rad/s

	// Kinematics (spec §4.2 step 3).
	halfW := cfg.WheelbaseMm / 2
	targetL := clamp(vCmd-wCmd*halfW, float32(cfg.MaxVMmS))
	targetR := clamp(vCmd+wCmd*halfW, float32(cfg.MaxVMmS))

	// Rate limiting (spec §4.2 step 4).
	maxDelta := float32(cfg.MaxAMmS2) * dtSeconds
	l.Left.RateLimited = rateLimit(l.Left.RateLimited, targetL, maxDelta)
	l.Right.RateLimited = rateLimit(l.Right.RateLimited, targetR, maxDelta)

	// Yaw damping (spec §4.2 step 5).
	dv := cfg.KYaw * (wCmd - gyroZ)
	leftTarget := l.Left.RateLimited - dv
	rightTarget := l.Right.RateLimited + dv

	dutyL := piWheel(cfg, &l.Left, leftTarget, measL, dtSeconds, false)
	dutyR := piWheel(cfg, &l.Right, rightTarget, measR, dtSeconds, false)
	return WheelOutputs{DutyL: dutyL, DutyR: dutyR}
}

// MeasuredSpeeds returns the most recently measured wheel speeds, for
// telemetry publication.
func (l *Loop) MeasuredSpeeds() (left, right float32) {
	return l.Left.lastMeas, l.Right.lastMeas
}

// TiltAngleDeg computes the tilt angle from gravity per spec §4.3: theta
// = acos(|az| / |a|) when |a| > 0.1g. It returns (0, false) when the
// accelerometer magnitude is too small to trust (free fall / clipping).
func TiltAngleDeg(s ImuSample) (float64, bool) {
	az := float64(s.AccelZ)
	mag := math.Sqrt(float64(s.AccelX)*float64(s.AccelX) + float64(s.AccelY)*float64(s.AccelY) + az*az)
	if mag <= 0.1 {
		return 0, false
	}
	ratio := math.Abs(az) / mag
	if ratio > 1 {
		ratio = 1
	}
	return math.Acos(ratio) * 180 / math.Pi, true
}
