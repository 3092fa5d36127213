// Package transport implements the byte-stuffed host-link framing shared
// by both MCU firmwares (spec §4.1, §6.1-§6.3): COBS framing terminated by
// a zero byte, a CRC16 integrity check, and the versioned v1/v2 envelope.
package transport

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/0mdb/robot-buddy-sub000/internal/cobs"
	"github.com/0mdb/robot-buddy-sub000/internal/crc16"
)

// Version identifies the envelope layout of a record.
type Version int

const (
	V1 Version = 1
	V2 Version = 2
)

// Shared command/telemetry type IDs (spec §6.2, §6.3). Reflex- and
// face-specific IDs live beside the commands that use them.
const (
	TypeTimeSyncReq    = 0x06
	TypeSetProtocolVer = 0x07
	TypeTimeSyncResp   = 0x86
	TypeProtocolVerAck = 0x87
)

// Record is a decoded host-link record. Seq and TSrcUs are always
// populated: for a v1 record Seq is the 8-bit sequence widened to
// uint32, and TSrcUs is zero (v1 carries no timestamp).
type Record struct {
	Version Version
	Type    byte
	Seq     uint32
	TSrcUs  uint64
	Payload []byte
}

const (
	v1HeaderLen = 1 + 1 // type, seq
	v2HeaderLen = 1 + 4 + 8
	crcLen      = 2
)

// maxRecordLen bounds a single raw (pre-CRC, pre-COBS) record: header +
// the largest payload among §6.2/§6.3 wire types, rounded up.
const maxRecordLen = v2HeaderLen + 32

// encodeRaw builds the raw (un-stuffed) bytes of a record: header,
// payload, and trailing CRC16 computed over everything preceding it.
func encodeRaw(dst []byte, ver Version, typ byte, seq uint32, tSrcUs uint64, payload []byte) []byte {
	start := len(dst)
	dst = append(dst, typ)
	switch ver {
	case V1:
		dst = append(dst, byte(seq))
	default:
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], seq)
		dst = append(dst, b[:]...)
		var t [8]byte
		binary.LittleEndian.PutUint64(t[:], tSrcUs)
		dst = append(dst, t[:]...)
	}
	dst = append(dst, payload...)
	crc := crc16.Checksum(dst[start:])
	var c [2]byte
	binary.LittleEndian.PutUint16(c[:], crc)
	return append(dst, c[:]...)
}

// decodeRaw parses a raw (un-stuffed) record assumed to be in version
// ver. It returns an error if the record is too short or its CRC does
// not match; both are silently-dropped conditions at the framing layer
// per spec §4.1 ("Fails with BAD_CRC -> drop").
func decodeRaw(raw []byte, ver Version) (Record, error) {
	hdr := v1HeaderLen
	if ver == V2 {
		hdr = v2HeaderLen
	}
	if len(raw) < hdr+crcLen {
		return Record{}, fmt.Errorf("transport: short record (%d bytes)", len(raw))
	}
	body := raw[:len(raw)-crcLen]
	want := binary.LittleEndian.Uint16(raw[len(raw)-crcLen:])
	if got := crc16.Checksum(body); got != want {
		return Record{}, fmt.Errorf("transport: %w", ErrBadCRC)
	}
	r := Record{Version: ver, Type: body[0]}
	if ver == V1 {
		r.Seq = uint32(body[1])
		r.Payload = body[v1HeaderLen:]
	} else {
		r.Seq = binary.LittleEndian.Uint32(body[1:5])
		r.TSrcUs = binary.LittleEndian.Uint64(body[5:13])
		r.Payload = body[v2HeaderLen:]
	}
	return r, nil
}

// Errors surfaced by the framing layer; all are drop-and-count
// conditions, never propagated past the RX task (spec §7).
var (
	ErrBadCRC  = fmt.Errorf("bad crc")
	ErrOverrun = fmt.Errorf("frame overrun")
)

// Codec drives one side of the host-link: it frames outgoing records and
// reassembles incoming ones from an io.ReadWriter, tracking the
// negotiated envelope version and transmit sequence counter.
type Codec struct {
	w  io.Writer
	rd *bufio.Reader

	version atomic.Int32 // holds Version
	txSeq   atomic.Uint32
	Now     func() uint64 // monotonic microsecond clock; overridable for tests

	// Counters, surfaced in HEARTBEAT telemetry (spec §7's "counted").
	BadCRC    atomic.Uint64
	Overruns  atomic.Uint64
	UnknownTy atomic.Uint64

	// Separate scratch buffers for the write and read paths: telemetry
	// emission and host-RX reassembly run from different tasks (spec
	// §5) and must not share mutable state.
	txRaw []byte
	txEnc []byte

	rxBuf []byte
	rxRaw []byte
}

// NewCodec wraps rw. Both sides assume v1 until SetVersion is called.
func NewCodec(rw io.ReadWriter, now func() uint64) *Codec {
	c := &Codec{w: rw, rd: bufio.NewReaderSize(rw, maxRecordLen*4), Now: now}
	c.version.Store(int32(V1))
	c.rxBuf = make([]byte, 0, maxRecordLen*2)
	return c
}

// Version returns the envelope currently agreed with the peer.
func (c *Codec) Version() Version {
	return Version(c.version.Load())
}

// SetVersion switches the agreed envelope for both transmit and the
// assumed receive format (spec §4.1: negotiation is symmetric once
// acted on by either side).
func (c *Codec) SetVersion(v Version) {
	c.version.Store(int32(v))
}

// WriteRecord frames and transmits typ/payload, stamping the record with
// the next global monotonic transmit sequence number and the sender's
// current monotonic microsecond clock.
func (c *Codec) WriteRecord(typ byte, payload []byte) error {
	ver := c.Version()
	seq := c.txSeq.Add(1) - 1
	var now uint64
	if c.Now != nil {
		now = c.Now()
	}
	raw := encodeRaw(c.txRaw[:0], ver, typ, seq, now, payload)
	c.txRaw = raw[:0]
	enc := cobs.Encode(c.txEnc[:0], raw)
	enc = append(enc, 0)
	c.txEnc = enc[:0]
	_, err := c.w.Write(enc)
	return err
}

// ReadRecord scans the incoming stream for the next well-formed,
// CRC-valid record, silently dropping garbage fragments, overlong
// frames, and CRC failures along the way (spec §4.1, §8 property 3). It
// only returns once a valid record is found or the underlying reader
// fails.
func (c *Codec) ReadRecord() (Record, error) {
	buf := c.rxBuf[:0]
	for {
		b, err := c.rd.ReadByte()
		if err != nil {
			return Record{}, err
		}
		if b != 0 {
			if len(buf) >= maxRecordLen*2 {
				// Overlong frame: discard until the next terminator.
				c.Overruns.Add(1)
				buf = buf[:0]
				for b != 0 {
					if b, err = c.rd.ReadByte(); err != nil {
						return Record{}, err
					}
				}
				continue
			}
			buf = append(buf, b)
			continue
		}
		raw, ok := cobs.Decode(c.rxRaw[:0], buf)
		c.rxRaw = raw[:0]
		c.rxBuf = buf[:0]
		buf = buf[:0]
		if !ok {
			c.BadCRC.Add(1)
			continue
		}
		rec, err := decodeRaw(raw, c.Version())
		if err != nil {
			c.BadCRC.Add(1)
			continue
		}
		return rec, nil
	}
}
