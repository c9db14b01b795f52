package endian

import (
	"encoding/binary"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"
)

func TestEngines(t *testing.T) {
	require := require.New(t)

	le := GetLittleEndianEngine()
	be := GetBigEndianEngine()

	buf := le.AppendUint32(nil, 0x01020304)
	require.Equal([]byte{0x04, 0x03, 0x02, 0x01}, buf)
	require.Equal(uint32(0x01020304), le.Uint32(buf))
	require.Equal(uint32(0x04030201), be.Uint32(buf))

	require.Equal(uint16(0x0102), be.Uint16([]byte{0x01, 0x02}))
}

func TestCheckEndianness(t *testing.T) {
	require := require.New(t)

	var probe uint16 = 0x0102
	native := (*[2]byte)(unsafe.Pointer(&probe))[0] == 0x02

	if native {
		require.Equal(binary.ByteOrder(binary.LittleEndian), CheckEndianness())
	} else {
		require.Equal(binary.ByteOrder(binary.BigEndian), CheckEndianness())
	}
	require.Equal(native, IsNativeLittleEndian())

	// repeated probes stay consistent
	for range 16 {
		require.Equal(native, IsNativeLittleEndian())
	}
}
