// Package cobs implements Consistent Overhead Byte Stuffing: an encoding
// that removes every zero byte from a record so a single zero byte can
// terminate it unambiguously on the wire (spec §4.1).
package cobs

// MaxRaw is the largest raw record the host-link transport ever frames.
// Encode itself has no such limit (it chains 0xff blocks for longer
// input), but every record type in §6 fits comfortably under this bound,
// which keeps the RX reassembly buffer a fixed size.
const MaxRaw = 253

// Encode appends the COBS encoding of src to dst and returns the
// extended slice. The result contains no zero bytes. It does not append
// the terminating zero; callers append it once to delimit the packet.
func Encode(dst, src []byte) []byte {
	start := len(dst)
	dst = append(dst, 0) // placeholder for first length code
	codeIdx := start
	code := byte(1)
	for _, b := range src {
		if b == 0 {
			dst[codeIdx] = code
			codeIdx = len(dst)
			dst = append(dst, 0)
			code = 1
			continue
		}
		dst = append(dst, b)
		code++
		if code == 0xff {
			dst[codeIdx] = code
			codeIdx = len(dst)
			dst = append(dst, 0)
			code = 1
		}
	}
	dst[codeIdx] = code
	return dst
}

// Decode reverses Encode: src must be a COBS-encoded block with no
// terminating zero byte included. It appends the raw record to dst.
func Decode(dst, src []byte) ([]byte, bool) {
	for i := 0; i < len(src); {
		code := src[i]
		if code == 0 {
			return dst, false
		}
		i++
		n := int(code) - 1
		if i+n > len(src) {
			return dst, false
		}
		dst = append(dst, src[i:i+n]...)
		i += n
		if code != 0xff && i < len(src) {
			dst = append(dst, 0)
		}
	}
	return dst, true
}
