package disk_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/flashdbg/rbydkit/compress"
	"github.com/flashdbg/rbydkit/disk"
	"github.com/flashdbg/rbydkit/errs"
)

// testImage is four 64-byte blocks with recognizable first bytes.
func testImage() []byte {
	image := make([]byte, 4*64)
	for i := range 4 {
		image[i*64] = byte(0xa0 + i)
	}

	return image
}

func TestNew(t *testing.T) {
	require := require.New(t)

	d, err := disk.New(testImage(), disk.WithBlockSize(64))
	require.NoError(err)
	require.Equal(uint32(64), d.BlockSize())
	require.Equal(uint32(4), d.BlockCount())

	for i := range uint32(4) {
		b, err := d.ReadBlock(i)
		require.NoError(err)
		require.Len(b, 64)
		require.Equal(byte(0xa0+i), b[0])
	}

	_, err = d.ReadBlock(4)
	require.ErrorIs(err, errs.ErrBlockOutOfRange)
}

func TestNewValidation(t *testing.T) {
	require := require.New(t)

	_, err := disk.New(testImage())
	require.ErrorIs(err, errs.ErrInvalidBlockSize)

	_, err = disk.New(testImage(), disk.WithBlockSize(0))
	require.ErrorIs(err, errs.ErrInvalidBlockSize)

	_, err = disk.New(make([]byte, 32), disk.WithBlockSize(64))
	require.ErrorIs(err, errs.ErrTruncatedImage)
}

func TestBlockCountOverride(t *testing.T) {
	require := require.New(t)

	d, err := disk.New(testImage(), disk.WithBlockSize(64), disk.WithBlockCount(2))
	require.NoError(err)
	require.Equal(uint32(2), d.BlockCount())

	_, err = d.ReadBlock(2)
	require.ErrorIs(err, errs.ErrBlockOutOfRange)

	_, err = disk.New(testImage(), disk.WithBlockSize(64), disk.WithBlockCount(9))
	require.ErrorIs(err, errs.ErrInvalidBlockCount)
}

func TestOpenRaw(t *testing.T) {
	require := require.New(t)

	path := filepath.Join(t.TempDir(), "disk.img")
	require.NoError(os.WriteFile(path, testImage(), 0o644))

	d, err := disk.Open(path, disk.WithBlockSize(64))
	require.NoError(err)
	require.Equal(uint32(4), d.BlockCount())

	_, err = disk.Open(filepath.Join(t.TempDir(), "missing.img"), disk.WithBlockSize(64))
	require.Error(err)
}

func TestOpenCompressed(t *testing.T) {
	exts := map[string]compress.Type{
		".zst": compress.TypeZstd,
		".s2":  compress.TypeS2,
		".lz4": compress.TypeLZ4,
	}
	for ext, typ := range exts {
		t.Run(ext, func(t *testing.T) {
			require := require.New(t)

			codec, err := compress.GetCodec(typ)
			require.NoError(err)
			packed, err := codec.Compress(testImage())
			require.NoError(err)

			path := filepath.Join(t.TempDir(), "disk.img"+ext)
			require.NoError(os.WriteFile(path, packed, 0o644))

			d, err := disk.Open(path, disk.WithBlockSize(64))
			require.NoError(err)
			require.Equal(uint32(4), d.BlockCount())

			b, err := d.ReadBlock(3)
			require.NoError(err)
			require.Equal(byte(0xa3), b[0])
		})
	}
}

func TestOpenCompressionOverride(t *testing.T) {
	require := require.New(t)

	codec, err := compress.GetCodec(compress.TypeS2)
	require.NoError(err)
	packed, err := codec.Compress(testImage())
	require.NoError(err)

	// extension lies, the flag wins
	path := filepath.Join(t.TempDir(), "disk.img")
	require.NoError(os.WriteFile(path, packed, 0o644))

	d, err := disk.Open(path, disk.WithBlockSize(64), disk.WithCompression(compress.TypeS2))
	require.NoError(err)
	require.Equal(uint32(4), d.BlockCount())
}
