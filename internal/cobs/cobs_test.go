package cobs

import (
	"bytes"
	"math/rand"
	"testing"
)

func TestRoundTrip(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	for n := 0; n <= MaxRaw; n++ {
		for trial := 0; trial < 8; trial++ {
			src := make([]byte, n)
			r.Read(src)
			enc := Encode(nil, src)
			for _, b := range enc {
				if b == 0 {
					t.Fatalf("Encode(%v) contains a zero byte: %v", src, enc)
				}
			}
			framed := append(append([]byte{}, enc...), 0)
			if c := bytes.Count(framed, []byte{0}); c != 1 {
				t.Fatalf("Encode(%v)+[0] has %d zero bytes, want 1", src, c)
			}
			dec, ok := Decode(nil, enc)
			if !ok {
				t.Fatalf("Decode(Encode(%v)) failed", src)
			}
			if !bytes.Equal(dec, src) && !(len(dec) == 0 && len(src) == 0) {
				t.Fatalf("Decode(Encode(%v)) = %v", src, dec)
			}
		}
	}
}

func TestEncodeAppends(t *testing.T) {
	dst := []byte{0xaa}
	enc := Encode(dst, []byte{1, 2, 3})
	if !bytes.Equal(enc[:1], []byte{0xaa}) {
		t.Fatalf("Encode did not preserve prefix: %v", enc)
	}
}

func TestDecodeRejectsEmbeddedZero(t *testing.T) {
	if _, ok := Decode(nil, []byte{0x02, 0x01, 0x00}); ok {
		t.Fatal("Decode accepted a block containing a zero byte")
	}
}
