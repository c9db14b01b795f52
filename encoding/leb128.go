package encoding

// Leb128 decodes an unsigned LEB128 varint from the front of buf:
// 7 payload bits per byte, least-significant group first, continuation
// flag in bit 7. The result accumulates into a 32-bit word.
//
// Returns the decoded value and the number of bytes consumed. A consumed
// count of 0 means the buffer ended mid-varint or the varint overflowed
// 32 bits; callers treat either as corruption.
func Leb128(buf []byte) (uint32, int) {
	var v uint32
	for i := 0; i < len(buf); i++ {
		b := buf[i]
		if i*7 >= 32 || (i*7 == 28 && b&0x7f > 0x0f) {
			// does not fit in 32 bits
			return 0, 0
		}
		v |= uint32(b&0x7f) << (i * 7)
		if b&0x80 == 0 {
			return v, i + 1
		}
	}

	return 0, 0
}

// AppendLeb128 appends the unsigned LEB128 encoding of v to buf.
//
// The decoder only needs Leb128; the append side exists for the fixture
// builders that write well-formed logs in tests and for rendering tools
// that reconstruct payloads.
func AppendLeb128(buf []byte, v uint32) []byte {
	for v > 0x7f {
		buf = append(buf, byte(v&0x7f)|0x80)
		v >>= 7
	}

	return append(buf, byte(v))
}
