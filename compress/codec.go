// Package compress implements the image codecs behind transparent
// compressed-image input: debug dumps of flash images routinely ship as
// .zst, .s2, or .lz4 files, and the disk layer inflates them into memory
// before any block is fetched.
//
// The codecs operate on whole images, not blocks; the rbyd format itself
// is uncompressed on flash.
package compress

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Type identifies an image compression algorithm.
type Type uint8

const (
	TypeNone Type = iota + 1
	TypeZstd
	TypeS2
	TypeLZ4
)

func (t Type) String() string {
	switch t {
	case TypeNone:
		return "None"
	case TypeZstd:
		return "Zstd"
	case TypeS2:
		return "S2"
	case TypeLZ4:
		return "LZ4"
	default:
		return "Unknown"
	}
}

// Compressor compresses a whole image.
type Compressor interface {
	// Compress compresses the input data and returns the compressed
	// result as a newly allocated slice. The input is not modified.
	Compress(data []byte) ([]byte, error)
}

// Decompressor inflates a whole image.
type Decompressor interface {
	// Decompress decompresses the input data and returns the original
	// image as a newly allocated slice. Returns an error if the data is
	// corrupted or was compressed with a different algorithm.
	Decompress(data []byte) ([]byte, error)
}

// Codec combines both directions. Inspectors only ever decompress, but
// the fixture side of the test suite round-trips through Compress.
type Codec interface {
	Compressor
	Decompressor
}

// GetCodec returns the built-in codec for the given compression type.
func GetCodec(compressionType Type) (Codec, error) {
	switch compressionType {
	case TypeNone:
		return NewNoOpCodec(), nil
	case TypeZstd:
		return NewZstdCodec(), nil
	case TypeS2:
		return NewS2Codec(), nil
	case TypeLZ4:
		return NewLZ4Codec(), nil
	default:
		return nil, fmt.Errorf("invalid image compression: %s", compressionType)
	}
}

// TypeForPath infers the compression type from a file extension.
// Unrecognized extensions mean an uncompressed raw image.
func TypeForPath(path string) Type {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".zst", ".zstd":
		return TypeZstd
	case ".s2":
		return TypeS2
	case ".lz4":
		return TypeLZ4
	default:
		return TypeNone
	}
}
