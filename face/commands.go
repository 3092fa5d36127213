package face

import (
	"encoding/binary"

	"github.com/0mdb/robot-buddy-sub000/transport"
)

// Face-specific record type IDs (spec §6.2, §6.3).
const (
	TypeSetState     = 0x20
	TypeGesture      = 0x21
	TypeSetSystem    = 0x22
	TypeSetTalking   = 0x23
	TypeSetFlags     = 0x24
	TypeSetConvState = 0x25

	TypeFaceStatus  = 0x90
	TypeTouchEvent  = 0x91
	TypeButtonEvent = 0x92
	TypeHeartbeat   = 0x93
)

func u8ToUnit(v uint8) float32  { return float32(v) / 255 }
func i8ToSigned(v int8) float32 { return float32(v) / 127 }

// DecodeSetState parses SET_STATE{mood_id, intensity, gaze_x, gaze_y,
// brightness} (spec §6.2).
func DecodeSetState(payload []byte) (StateCmd, bool) {
	if len(payload) < 5 {
		return StateCmd{}, false
	}
	return StateCmd{
		Mood:       Mood(payload[0]),
		Intensity:  u8ToUnit(payload[1]),
		GazeX:      i8ToSigned(int8(payload[2])) * MaxGaze,
		GazeY:      i8ToSigned(int8(payload[3])) * MaxGaze,
		Brightness: u8ToUnit(payload[4]),
	}, true
}

// DecodeGesture parses GESTURE{gesture_id, duration_ms} (spec §6.2).
func DecodeGesture(payload []byte) (GestureMsg, bool) {
	if len(payload) < 3 {
		return GestureMsg{}, false
	}
	return GestureMsg{
		ID:       Gesture(payload[0]),
		Duration: uint64(binary.LittleEndian.Uint16(payload[1:3])) * 1000,
	}, true
}

// DecodeSetSystem parses SET_SYSTEM{mode, phase, param} (spec §6.2).
func DecodeSetSystem(payload []byte) (SystemCmd, bool) {
	if len(payload) < 3 {
		return SystemCmd{}, false
	}
	return SystemCmd{
		Mode:  SystemMode(payload[0]),
		Phase: payload[1],
		Param: u8ToUnit(payload[2]),
	}, true
}

// DecodeSetTalking parses SET_TALKING{talking, energy} (spec §6.2).
func DecodeSetTalking(payload []byte) (TalkingCmd, bool) {
	if len(payload) < 2 {
		return TalkingCmd{}, false
	}
	return TalkingCmd{
		Talking: payload[0] != 0,
		Energy:  u8ToUnit(payload[1]),
	}, true
}

// DecodeSetFlags parses SET_FLAGS{flags} (spec §6.2).
func DecodeSetFlags(payload []byte) (FlagsCmd, bool) {
	if len(payload) < 1 {
		return 0, false
	}
	return FlagsCmd(payload[0]), true
}

// DecodeSetConvState parses SET_CONV_STATE{state} (spec §6.2).
func DecodeSetConvState(payload []byte) (ConvState, bool) {
	if len(payload) < 1 {
		return 0, false
	}
	return ConvState(payload[0]), true
}

// TouchEventType distinguishes TOUCH_EVENT's type byte.
type TouchEventType uint8

const (
	TouchPress TouchEventType = iota
	TouchRelease
	TouchMove
)

// EncodeTouchEvent builds TOUCH_EVENT{type, x, y} (spec §6.3).
func EncodeTouchEvent(typ TouchEventType, x, y uint16) []byte {
	b := make([]byte, 5)
	b[0] = byte(typ)
	binary.LittleEndian.PutUint16(b[1:3], x)
	binary.LittleEndian.PutUint16(b[3:5], y)
	return b
}

// ButtonID identifies a physical or virtual button (spec §4.8's PTT/Action
// corner zones plus any discrete hardware buttons).
type ButtonID uint8

const (
	ButtonPTT ButtonID = iota
	ButtonAction
)

// ButtonEventType is BUTTON_EVENT's event byte.
type ButtonEventType uint8

const (
	ButtonPress ButtonEventType = iota
	ButtonRelease
	ButtonClick
	ButtonToggle
)

// EncodeButtonEvent builds BUTTON_EVENT{button, event, state, reserved}
// (spec §6.3). state carries the post-event latched state for toggle
// buttons (0/1), and is 0 for momentary press/release/click.
func EncodeButtonEvent(btn ButtonID, evt ButtonEventType, state uint8) []byte {
	return []byte{byte(btn), byte(evt), state, 0}
}

// EncodeFaceStatus builds FACE_STATUS (spec §6.3): the face's analogue of
// the Reflex STATE record. v2 additionally echoes the last-applied
// command sequence and its applied timestamp.
func EncodeFaceStatus(ver transport.Version, mood Mood, sys SystemMode, conv ConvState, flags FlagsCmd, talking bool, cmdSeq uint32, appliedUs uint64) []byte {
	n := 4
	if ver == transport.V2 {
		n += 4 + 8
	}
	b := make([]byte, n)
	b[0] = byte(mood)
	b[1] = byte(sys)
	b[2] = byte(conv)
	b[3] = byte(flags)
	if talking {
		b[3] |= 0x80
	}
	if ver == transport.V2 {
		binary.LittleEndian.PutUint32(b[4:8], cmdSeq)
		binary.LittleEndian.PutUint64(b[8:16], appliedUs)
	}
	return b
}

// HeartbeatCounters is everything HEARTBEAT reports about transport
// health and uptime (spec §6.3, §7).
type HeartbeatCounters struct {
	UptimeMs  uint32
	BadCRC    uint32
	Overruns  uint32
	UnknownTy uint32
}

// EncodeHeartbeat builds HEARTBEAT (spec §6.3): uptime + transport
// counters. The optional perf tail mentioned in the spec is omitted here
// since this firmware core has no frame-time profiler to report.
func EncodeHeartbeat(c HeartbeatCounters) []byte {
	b := make([]byte, 16)
	binary.LittleEndian.PutUint32(b[0:4], c.UptimeMs)
	binary.LittleEndian.PutUint32(b[4:8], c.BadCRC)
	binary.LittleEndian.PutUint32(b[8:12], c.Overruns)
	binary.LittleEndian.PutUint32(b[12:16], c.UnknownTy)
	return b
}
