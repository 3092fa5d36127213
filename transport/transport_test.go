package transport

import (
	"bytes"
	"io"
	"testing"

	"github.com/0mdb/robot-buddy-sub000/internal/cobs"
)

type pipe struct {
	in  bytes.Buffer
	out bytes.Buffer
}

func (p *pipe) Read(b []byte) (int, error)  { return p.in.Read(b) }
func (p *pipe) Write(b []byte) (int, error) { return p.out.Write(b) }

func fakeClock() func() uint64 {
	var t uint64
	return func() uint64 {
		t += 1000
		return t
	}
}

func TestWriteReadRoundTripV1(t *testing.T) {
	p := &pipe{}
	tx := NewCodec(p, fakeClock())
	payload := []byte{1, 2, 3, 4}
	if err := tx.WriteRecord(0x80, payload); err != nil {
		t.Fatal(err)
	}
	rxPipe := &pipe{in: p.out}
	rx := NewCodec(rxPipe, fakeClock())
	rec, err := rx.ReadRecord()
	if err != nil {
		t.Fatal(err)
	}
	if rec.Type != 0x80 || rec.Seq != 0 || !bytes.Equal(rec.Payload, payload) {
		t.Fatalf("got %+v", rec)
	}
}

func TestVersionNegotiationSequenceWidth(t *testing.T) {
	p := &pipe{}
	tx := NewCodec(p, fakeClock())
	tx.SetVersion(V2)
	for i := 0; i < 3; i++ {
		if err := tx.WriteRecord(0x80, []byte{byte(i)}); err != nil {
			t.Fatal(err)
		}
	}
	rx := NewCodec(&pipe{in: p.out}, fakeClock())
	rx.SetVersion(V2)
	var last uint32
	for i := 0; i < 3; i++ {
		rec, err := rx.ReadRecord()
		if err != nil {
			t.Fatal(err)
		}
		if rec.Version != V2 {
			t.Fatalf("record %d: version = %v, want v2", i, rec.Version)
		}
		if rec.TSrcUs == 0 {
			t.Fatalf("record %d: missing 64-bit timestamp", i)
		}
		if i > 0 && rec.Seq != last+1 {
			t.Fatalf("record %d: seq = %d, want %d", i, rec.Seq, last+1)
		}
		last = rec.Seq
	}
}

// TestFramingSkipsGarbage implements spec §8 property 3: a stream
// [garbage, 0, valid, 0, valid, 0] yields exactly the two valid packets.
func TestFramingSkipsGarbage(t *testing.T) {
	var stream bytes.Buffer
	// Garbage fragment: arbitrary non-zero bytes, not a valid record, so
	// it will decode (COBS has no structure requirement) but fail CRC.
	stream.Write([]byte{0x11, 0x22, 0x33})
	stream.WriteByte(0)

	mk := func(typ byte, payload []byte) []byte {
		raw := encodeRaw(nil, V1, typ, 0, 0, payload)
		enc := cobs.Encode(nil, raw)
		return append(enc, 0)
	}
	stream.Write(mk(0x80, []byte{9, 9}))
	stream.Write(mk(0x80, []byte{7, 7}))

	rx := NewCodec(&pipe{in: stream}, fakeClock())
	rec1, err := rx.ReadRecord()
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(rec1.Payload, []byte{9, 9}) {
		t.Fatalf("first record payload = %v", rec1.Payload)
	}
	rec2, err := rx.ReadRecord()
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(rec2.Payload, []byte{7, 7}) {
		t.Fatalf("second record payload = %v", rec2.Payload)
	}
	if _, err := rx.ReadRecord(); err != io.EOF {
		t.Fatalf("expected EOF after two records, got %v", err)
	}
	if rx.BadCRC.Load() != 1 {
		t.Fatalf("BadCRC = %d, want 1", rx.BadCRC.Load())
	}
}

func TestBadCRCDropped(t *testing.T) {
	raw := encodeRaw(nil, V1, 0x80, 0, 0, []byte{1})
	raw[len(raw)-1] ^= 0xff // corrupt the CRC
	enc := cobs.Encode(nil, raw)
	enc = append(enc, 0)

	good := encodeRaw(nil, V1, 0x80, 0, 0, []byte{2})
	goodEnc := append(cobs.Encode(nil, good), 0)

	var stream bytes.Buffer
	stream.Write(enc)
	stream.Write(goodEnc)

	rx := NewCodec(&pipe{in: stream}, fakeClock())
	rec, err := rx.ReadRecord()
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(rec.Payload, []byte{2}) {
		t.Fatalf("got payload %v, want the second (valid) record", rec.Payload)
	}
	if rx.BadCRC.Load() != 1 {
		t.Fatalf("BadCRC = %d, want 1", rx.BadCRC.Load())
	}
}

// TestHandleSharedNegotiation implements scenario S6.
func TestHandleSharedNegotiation(t *testing.T) {
	p := &pipe{}
	mcu := NewCodec(p, fakeClock())

	setVer := encodeRaw(nil, V1, TypeSetProtocolVer, 0, 0, []byte{2})
	enc := append(cobs.Encode(nil, setVer), 0)
	p.in.Write(enc)

	rec, err := mcu.ReadRecord()
	if err != nil {
		t.Fatal(err)
	}
	if !mcu.HandleShared(rec) {
		t.Fatal("SET_PROTOCOL_VERSION not recognized as shared")
	}
	if mcu.Version() != V2 {
		t.Fatalf("version = %v, want v2", mcu.Version())
	}

	// A single reader drains everything the mcu codec writes, in order:
	// first the ACK, then (after the TIME_SYNC_REQ below) the response.
	hostRx := NewCodec(&pipe{in: p.out}, fakeClock())
	ack, err := hostRx.ReadRecord()
	if err != nil {
		t.Fatal(err)
	}
	if ack.Type != TypeProtocolVerAck || len(ack.Payload) != 1 || ack.Payload[0] != 2 {
		t.Fatalf("unexpected ack: %+v", ack)
	}

	// TIME_SYNC_REQ{42,0} now round-trips in v2.
	req := encodeRaw(nil, V2, TypeTimeSyncReq, 1, 0, EncodeTimeSyncReq(42))
	p.in.Write(append(cobs.Encode(nil, req), 0))
	rec2, err := mcu.ReadRecord()
	if err != nil {
		t.Fatal(err)
	}
	if !mcu.HandleShared(rec2) {
		t.Fatal("TIME_SYNC_REQ not handled")
	}
	hostRx.SetVersion(V2)
	resp, err := hostRx.ReadRecord()
	if err != nil {
		t.Fatal(err)
	}
	if resp.Type != TypeTimeSyncResp {
		t.Fatalf("expected TIME_SYNC_RESP, got %#x", resp.Type)
	}
	got, ok := DecodeTimeSyncResp(resp.Payload)
	if !ok || got.PingSeq != 42 {
		t.Fatalf("echoed ping_seq = %+v, want 42", got)
	}
}
