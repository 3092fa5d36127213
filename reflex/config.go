package reflex

import "time"

// Config holds every runtime tunable from spec §6.4. None of it is
// persisted (spec §6.5); it always starts at DefaultConfig and is
// mutated only by SET_CONFIG/SET_LIMITS records.
type Config struct {
	// Gains.
	KV, KS, Kp, Ki, KYaw float32

	// PWM.
	MinPwm, MaxPwm uint16

	// Limits.
	MaxVMmS    int32
	MaxAMmS2   int32
	MaxWMradS  int32
	MaxAwMradS2 int32

	// Safety.
	CmdTimeoutMs     uint32
	SoftStopRampMs   uint32
	TiltThreshDeg    float32
	TiltHoldMs       uint32
	StallThreshMs    uint32
	StallSpeedThresh float32

	// Range.
	RangeStopMm    uint16
	RangeReleaseMm uint16

	// Geometry, not host-tunable but needed by the kinematics (§4.2).
	WheelbaseMm         float32
	WheelCircumferenceMm float32
	CountsPerRev        int32
	ControlPeriod       time.Duration
	SafetyPeriod        time.Duration
}

// DefaultConfig returns conservative defaults matching the magnitudes
// implied by spec §4.2-§4.3 and §6.4.
func DefaultConfig() Config {
	return Config{
		KV: 0.6, KS: 12, Kp: 1.2, Ki: 4.0, KYaw: 0.15,
		MinPwm: 30, MaxPwm: 4095,
		MaxVMmS: 500, MaxAMmS2: 2000, MaxWMradS: 3000, MaxAwMradS2: 8000,
		CmdTimeoutMs: 500, SoftStopRampMs: 400,
		TiltThreshDeg: 35, TiltHoldMs: 150,
		StallThreshMs: 300, StallSpeedThresh: 20,
		RangeStopMm: 250, RangeReleaseMm: 350,
		WheelbaseMm: 150, WheelCircumferenceMm: 204, CountsPerRev: 1200,
		ControlPeriod: 10 * time.Millisecond, // 100 Hz
		SafetyPeriod:  20 * time.Millisecond, // 50 Hz
	}
}

// ConfigParam identifies a SET_CONFIG{param_id,value[4]} target (spec §6.4).
type ConfigParam uint8

const (
	ParamKV ConfigParam = iota
	ParamKS
	ParamKp
	ParamKi
	ParamKYaw
	ParamMinPwm
	ParamMaxPwm
	ParamMaxV
	ParamMaxA
	ParamMaxW
	ParamMaxAw
	ParamCmdTimeoutMs
	ParamSoftStopRampMs
	ParamTiltThreshDeg
	ParamTiltHoldMs
	ParamStallThreshMs
	ParamStallSpeedThresh
	ParamRangeStopMm
	ParamRangeReleaseMm
)

// ApplyFloat32 and ApplyInt32 let SET_CONFIG's raw little-endian value[4]
// bytes be reinterpreted per parameter without the transport layer
// knowing the parameter's Go type.
func (c *Config) ApplyFloat32(p ConfigParam, v float32) {
	switch p {
	case ParamKV:
		c.KV = v
	case ParamKS:
		c.KS = v
	case ParamKp:
		c.Kp = v
	case ParamKi:
		c.Ki = v
	case ParamKYaw:
		c.KYaw = v
	case ParamTiltThreshDeg:
		c.TiltThreshDeg = v
	case ParamStallSpeedThresh:
		c.StallSpeedThresh = v
	}
}

func (c *Config) ApplyInt32(p ConfigParam, v int32) {
	switch p {
	case ParamMinPwm:
		c.MinPwm = uint16(v)
	case ParamMaxPwm:
		c.MaxPwm = uint16(v)
	case ParamMaxV:
		c.MaxVMmS = v
	case ParamMaxA:
		c.MaxAMmS2 = v
	case ParamMaxW:
		c.MaxWMradS = v
	case ParamMaxAw:
		c.MaxAwMradS2 = v
	case ParamCmdTimeoutMs:
		c.CmdTimeoutMs = uint32(v)
	case ParamSoftStopRampMs:
		c.SoftStopRampMs = uint32(v)
	case ParamTiltHoldMs:
		c.TiltHoldMs = uint32(v)
	case ParamStallThreshMs:
		c.StallThreshMs = uint32(v)
	case ParamRangeStopMm:
		c.RangeStopMm = uint16(v)
	case ParamRangeReleaseMm:
		c.RangeReleaseMm = uint16(v)
	}
}

// floatParams is the set of ConfigParam values whose value[4] bytes are
// an IEEE-754 float32 rather than a little-endian signed integer.
var floatParams = map[ConfigParam]bool{
	ParamKV: true, ParamKS: true, ParamKp: true, ParamKi: true, ParamKYaw: true,
	ParamTiltThreshDeg: true, ParamStallSpeedThresh: true,
}

func (p ConfigParam) IsFloat() bool { return floatParams[p] }
