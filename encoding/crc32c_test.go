package encoding

import (
	"hash/crc32"
	"math/bits"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCrc32cPolynomial(t *testing.T) {
	require := require.New(t)

	// seeded with all ones and inverted afterwards, the chain matches
	// the conventional Castagnoli checksum exactly
	table := crc32.MakeTable(crc32.Castagnoli)
	for _, data := range [][]byte{
		[]byte(""),
		[]byte("123456789"),
		[]byte("The quick brown fox jumps over the lazy dog"),
		{0x00, 0xff, 0x55, 0xaa},
	} {
		got := Crc32c(0xffffffff, data) ^ 0xffffffff
		require.Equal(crc32.Checksum(data, table), got, "data %q", data)
	}
}

func TestCrc32cIncremental(t *testing.T) {
	require := require.New(t)

	data := []byte("a running checksum is updated one record at a time")
	whole := Crc32c(0, data)
	for split := 0; split <= len(data); split++ {
		part := Crc32c(Crc32c(0, data[:split]), data[split:])
		require.Equal(whole, part, "split %d", split)
	}

	require.Equal(uint32(0), Crc32c(0, nil))
}

func TestParity(t *testing.T) {
	require := require.New(t)

	for _, crc := range []uint32{0, 1, 0x80000000, 0xffffffff, 0xdeadbeef, 0x12345678} {
		require.Equal(uint16(bits.OnesCount32(crc)&1), Parity(crc), "crc %#x", crc)
	}
}
