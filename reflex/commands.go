package reflex

import (
	"encoding/binary"
	"math"

	"github.com/0mdb/robot-buddy-sub000/transport"
)

// Reflex-specific record type IDs (spec §6.2, §6.3).
const (
	TypeSetTwist     = 0x10
	TypeStop         = 0x11
	TypeEstop        = 0x12
	TypeSetLimits    = 0x13
	TypeClearFaults  = 0x14
	TypeSetConfig    = 0x15

	TypeState   = 0x80
	TypeStateV2 = 0x81
)

// SetTwist is the decoded SET_TWIST payload.
type SetTwist struct {
	VMmS   int16
	WMradS int16
}

func DecodeSetTwist(payload []byte) (SetTwist, bool) {
	if len(payload) < 4 {
		return SetTwist{}, false
	}
	return SetTwist{
		VMmS:   int16(binary.LittleEndian.Uint16(payload[0:2])),
		WMradS: int16(binary.LittleEndian.Uint16(payload[2:4])),
	}, true
}

// ClearFaults is the decoded CLEAR_FAULTS payload.
func DecodeClearFaults(payload []byte) (Fault, bool) {
	if len(payload) < 2 {
		return 0, false
	}
	return Fault(binary.LittleEndian.Uint16(payload)), true
}

// SetConfig is the decoded SET_CONFIG payload.
type SetConfig struct {
	Param ConfigParam
	Raw   [4]byte
}

func DecodeSetConfig(payload []byte) (SetConfig, bool) {
	if len(payload) < 5 {
		return SetConfig{}, false
	}
	var sc SetConfig
	sc.Param = ConfigParam(payload[0])
	copy(sc.Raw[:], payload[1:5])
	return sc, true
}

// Apply mutates cfg according to sc, interpreting the raw bytes as
// float32 or int32 per the parameter (spec §6.4: "All little-endian, 4
// bytes per value").
func (sc SetConfig) Apply(cfg *Config) {
	if sc.Param.IsFloat() {
		bits := binary.LittleEndian.Uint32(sc.Raw[:])
		cfg.ApplyFloat32(sc.Param, math.Float32frombits(bits))
		return
	}
	cfg.ApplyInt32(sc.Param, int32(binary.LittleEndian.Uint32(sc.Raw[:])))
}

// EncodeStateV1 builds the legacy STATE payload (spec §6.3): no cmd-seq
// or applied timestamp fields.
func EncodeStateV1(t TelemetryState) []byte {
	b := make([]byte, 19)
	binary.LittleEndian.PutUint16(b[0:2], uint16(int16(t.SpeedLMmS)))
	binary.LittleEndian.PutUint16(b[2:4], uint16(int16(t.SpeedRMmS)))
	binary.LittleEndian.PutUint32(b[4:8], uint32(t.GyroZMradS))
	binary.LittleEndian.PutUint32(b[8:12], uint32(t.AccelXMg))
	binary.LittleEndian.PutUint16(b[12:14], t.BatteryMv)
	binary.LittleEndian.PutUint16(b[14:16], uint16(t.FaultFlags))
	binary.LittleEndian.PutUint16(b[16:18], uint16(t.RangeMm))
	b[18] = byte(t.RangeStatus)
	return b
}

// EncodeStateV2 builds the extended STATE_V2 payload, which also carries
// the last-applied command sequence and its applied timestamp (spec
// §6.3).
func EncodeStateV2(t TelemetryState) []byte {
	b := make([]byte, 41)
	binary.LittleEndian.PutUint16(b[0:2], uint16(int16(t.SpeedLMmS)))
	binary.LittleEndian.PutUint16(b[2:4], uint16(int16(t.SpeedRMmS)))
	binary.LittleEndian.PutUint32(b[4:8], uint32(t.GyroZMradS))
	binary.LittleEndian.PutUint32(b[8:12], uint32(t.AccelXMg))
	binary.LittleEndian.PutUint32(b[12:16], uint32(t.AccelYMg))
	binary.LittleEndian.PutUint32(b[16:20], uint32(t.AccelZMg))
	binary.LittleEndian.PutUint16(b[20:22], t.BatteryMv)
	binary.LittleEndian.PutUint16(b[22:24], uint16(t.FaultFlags))
	binary.LittleEndian.PutUint32(b[24:28], uint32(t.RangeMm))
	b[28] = byte(t.RangeStatus)
	binary.LittleEndian.PutUint32(b[29:33], t.CmdSeqApplied)
	binary.LittleEndian.PutUint64(b[33:41], t.AppliedUs)
	return b
}

// EncodeState picks the wire form appropriate for ver.
func EncodeState(ver transport.Version, t TelemetryState) []byte {
	if ver == transport.V2 {
		return EncodeStateV2(t)
	}
	return EncodeStateV1(t)
}
