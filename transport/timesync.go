package transport

import "encoding/binary"

// TimeSyncReq is the payload of TIME_SYNC_REQ (spec §4.1, §6.2).
type TimeSyncReq struct {
	PingSeq  uint32
	Reserved uint32
}

// EncodeTimeSyncReq builds the TIME_SYNC_REQ payload.
func EncodeTimeSyncReq(pingSeq uint32) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint32(b[0:4], pingSeq)
	return b
}

func DecodeTimeSyncReq(payload []byte) (TimeSyncReq, bool) {
	if len(payload) < 8 {
		return TimeSyncReq{}, false
	}
	return TimeSyncReq{
		PingSeq:  binary.LittleEndian.Uint32(payload[0:4]),
		Reserved: binary.LittleEndian.Uint32(payload[4:8]),
	}, true
}

// EncodeTimeSyncResp builds the TIME_SYNC_RESP payload: the echoed ping
// sequence and the sender's monotonic microsecond clock.
func EncodeTimeSyncResp(pingSeq uint32, tSrcUs uint64) []byte {
	b := make([]byte, 12)
	binary.LittleEndian.PutUint32(b[0:4], pingSeq)
	binary.LittleEndian.PutUint64(b[4:12], tSrcUs)
	return b
}

// TimeSyncResp is the decoded payload of TIME_SYNC_RESP.
type TimeSyncResp struct {
	PingSeq uint32
	TSrcUs  uint64
}

func DecodeTimeSyncResp(payload []byte) (TimeSyncResp, bool) {
	if len(payload) < 12 {
		return TimeSyncResp{}, false
	}
	return TimeSyncResp{
		PingSeq: binary.LittleEndian.Uint32(payload[0:4]),
		TSrcUs:  binary.LittleEndian.Uint64(payload[4:12]),
	}, true
}

// EncodeProtocolVersionAck builds the PROTOCOL_VERSION_ACK payload.
func EncodeProtocolVersionAck(v Version) []byte {
	return []byte{byte(v)}
}

// DecodeSetProtocolVersion parses the SET_PROTOCOL_VERSION payload.
func DecodeSetProtocolVersion(payload []byte) (Version, bool) {
	if len(payload) < 1 {
		return 0, false
	}
	return Version(payload[0]), true
}

// HandleShared answers the two record types common to both MCUs
// (TIME_SYNC_REQ, SET_PROTOCOL_VERSION) as soon as they arrive, per spec
// §4.1 ("answered ... as soon as possible after arrival"). It reports
// whether rec was one of the shared types.
func (c *Codec) HandleShared(rec Record) bool {
	switch rec.Type {
	case TypeTimeSyncReq:
		req, ok := DecodeTimeSyncReq(rec.Payload)
		if !ok {
			return true
		}
		var now uint64
		if c.Now != nil {
			now = c.Now()
		}
		c.WriteRecord(TypeTimeSyncResp, EncodeTimeSyncResp(req.PingSeq, now))
		return true
	case TypeSetProtocolVer:
		v, ok := DecodeSetProtocolVersion(rec.Payload)
		if !ok {
			return true
		}
		c.SetVersion(v)
		c.WriteRecord(TypeProtocolVerAck, EncodeProtocolVersionAck(v))
		return true
	}
	return false
}
