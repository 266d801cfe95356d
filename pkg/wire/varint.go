// Package wire implements the on-wire encodings RaleighSL uses for its
// master block, its object field framing, and its RPC envelope: a
// Google-style base-128 varint with ZigZag for signed values, a bit-packed
// field codec, and a length-prefixed envelope frame.
package wire

// PutUvarint appends the base-128, little-endian-group varint encoding of v
// to buf and returns the extended slice. Each byte carries 7 value bits in
// its low bits and a continuation flag in bit 7, set on every byte but the
// last.
func PutUvarint(buf []byte, v uint64) []byte {
	for v >= 0x80 {
		buf = append(buf, byte(v)|0x80)
		v >>= 7
	}
	return append(buf, byte(v))
}

// UvarintSize returns the number of bytes PutUvarint would emit for v.
func UvarintSize(v uint64) int {
	n := 1
	for v >= 0x80 {
		v >>= 7
		n++
	}
	return n
}

// Uvarint decodes a varint from the head of buf, returning the value and
// the number of bytes consumed. It returns (0, 0) if buf ends before a
// terminating byte is found.
func Uvarint(buf []byte) (uint64, int) {
	var result uint64
	var shift uint
	for i, b := range buf {
		if b < 0x80 {
			result |= uint64(b) << shift
			return result, i + 1
		}
		result |= uint64(b&0x7f) << shift
		shift += 7
		if shift > 63 {
			return 0, 0
		}
	}
	return 0, 0
}

// ZigZagEncode maps a signed integer to an unsigned one so small magnitude
// negative values still encode in few varint bytes: 0,-1,1,-2,2 -> 0,1,2,3,4.
func ZigZagEncode(v int64) uint64 {
	return uint64((v << 1) ^ (v >> 63))
}

// ZigZagDecode reverses ZigZagEncode.
func ZigZagDecode(v uint64) int64 {
	return int64(v>>1) ^ -int64(v&1)
}

// PutVarint appends the ZigZag+varint encoding of a signed value.
func PutVarint(buf []byte, v int64) []byte {
	return PutUvarint(buf, ZigZagEncode(v))
}

// Varint decodes a ZigZag+varint-encoded signed value.
func Varint(buf []byte) (int64, int) {
	u, n := Uvarint(buf)
	if n == 0 {
		return 0, 0
	}
	return ZigZagDecode(u), n
}
