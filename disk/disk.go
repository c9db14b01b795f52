// Package disk provides random-access block reads over a raw flash
// image file. Images may be compressed (.zst, .s2, .lz4); Open inflates
// them into memory before the first block is fetched, so every read is
// an independent slice of the same immutable byte array.
package disk

import (
	"fmt"
	"os"

	"github.com/flashdbg/rbydkit/compress"
	"github.com/flashdbg/rbydkit/errs"
	"github.com/flashdbg/rbydkit/internal/options"
)

// Disk is one open image. It is immutable after construction and safe
// for concurrent reads.
type Disk struct {
	data       []byte
	blockSize  uint32
	blockCount uint32
}

type config struct {
	blockSize   uint32
	blockCount  uint32
	compression compress.Type
}

// Option configures Open and New.
type Option = options.Option[*config]

// WithBlockSize sets the block size of the image. Required; there is no
// way to infer it from a raw image.
func WithBlockSize(size uint32) Option {
	return options.New(func(c *config) error {
		if size == 0 {
			return errs.ErrInvalidBlockSize
		}
		c.blockSize = size

		return nil
	})
}

// WithBlockCount overrides the block count inferred from the image
// length. Useful for images padded past the filesystem's configured
// geometry.
func WithBlockCount(count uint32) Option {
	return options.NoError(func(c *config) {
		c.blockCount = count
	})
}

// WithCompression overrides the compression type inferred from the file
// extension.
func WithCompression(t compress.Type) Option {
	return options.NoError(func(c *config) {
		c.compression = t
	})
}

// Open reads (and, if needed, inflates) the image at path.
//
// The compression type is inferred from the file extension unless
// overridden with WithCompression. Missing or unreadable files are fatal
// I/O errors; nothing in this package inspects block contents.
func Open(path string, opts ...Option) (*Disk, error) {
	cfg := config{}
	if err := options.Apply(&cfg, opts...); err != nil {
		return nil, err
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading image: %w", err)
	}

	compression := cfg.compression
	if compression == 0 {
		compression = compress.TypeForPath(path)
	}
	codec, err := compress.GetCodec(compression)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", errs.ErrInvalidCompression, compression)
	}

	data, err := codec.Decompress(raw)
	if err != nil {
		return nil, fmt.Errorf("inflating %s image: %w", compression, err)
	}

	return newDisk(data, cfg)
}

// New wraps an in-memory image. The data is not copied and must not be
// modified afterwards.
func New(data []byte, opts ...Option) (*Disk, error) {
	cfg := config{}
	if err := options.Apply(&cfg, opts...); err != nil {
		return nil, err
	}

	return newDisk(data, cfg)
}

func newDisk(data []byte, cfg config) (*Disk, error) {
	if cfg.blockSize == 0 {
		return nil, errs.ErrInvalidBlockSize
	}
	if uint32(len(data)) < cfg.blockSize {
		return nil, errs.ErrTruncatedImage
	}

	count := uint32(len(data)) / cfg.blockSize
	if cfg.blockCount != 0 {
		if cfg.blockCount > count {
			return nil, fmt.Errorf("%w: %d blocks requested, image holds %d",
				errs.ErrInvalidBlockCount, cfg.blockCount, count)
		}
		count = cfg.blockCount
	}

	return &Disk{
		data:       data,
		blockSize:  cfg.blockSize,
		blockCount: count,
	}, nil
}

// BlockSize returns the configured block size.
func (d *Disk) BlockSize() uint32 {
	return d.blockSize
}

// BlockCount returns the number of addressable blocks.
func (d *Disk) BlockCount() uint32 {
	return d.blockCount
}

// ReadBlock returns the raw bytes of one block. The returned slice
// aliases the image and must be treated as read-only.
func (d *Disk) ReadBlock(block uint32) ([]byte, error) {
	if block >= d.blockCount {
		return nil, fmt.Errorf("%w: block %d of %d", errs.ErrBlockOutOfRange, block, d.blockCount)
	}
	off := block * d.blockSize

	return d.data[off : off+d.blockSize], nil
}
