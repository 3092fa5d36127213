package crc16

import "testing"

func TestKnownAnswers(t *testing.T) {
	tests := []struct {
		in   string
		want uint16
	}{
		{"", 0xFFFF},
		{"123456789", 0x29B1},
	}
	for _, tt := range tests {
		if got := Checksum([]byte(tt.in)); got != tt.want {
			t.Errorf("Checksum(%q) = %#04x, want %#04x", tt.in, got, tt.want)
		}
	}
}

func TestUpdateMatchesChecksum(t *testing.T) {
	b := []byte{0x10, 0x01, 0x02, 0x03, 0x04, 0x05}
	want := Checksum(b)
	got := Update(Init, b[:3])
	got = Update(got, b[3:])
	if got != want {
		t.Errorf("split update = %#04x, want %#04x", got, want)
	}
}
