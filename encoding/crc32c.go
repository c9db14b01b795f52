package encoding

import "math/bits"

// crc32cPoly is the reflected CRC32C (Castagnoli) polynomial.
const crc32cPoly = 0x82F63B78

// Crc32c updates a running CRC32C over data, one byte at a time with
// eight internal shifts.
//
// The chain is seeded with 0 and carries no final xor, so the value is
// not interchangeable with hash/crc32's Castagnoli checksum, which pre-
// and post-conditions with ^0. The on-disk format stores the raw
// unconditioned register, and the parity bit of every tag word is
// derived from it, so the register must be observable mid-stream.
func Crc32c(crc uint32, data []byte) uint32 {
	for _, b := range data {
		crc ^= uint32(b)
		for i := 0; i < 8; i++ {
			if crc&1 != 0 {
				crc = (crc >> 1) ^ crc32cPoly
			} else {
				crc >>= 1
			}
		}
	}

	return crc
}

// Parity returns the popcount parity of the running checksum, the value
// every tag word's valid bit must match at the point it is decoded.
func Parity(crc uint32) uint16 {
	return uint16(bits.OnesCount32(crc) & 1)
}
