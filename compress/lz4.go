package compress

import (
	"bytes"
	"io"

	"github.com/pierrec/lz4/v4"

	"github.com/flashdbg/rbydkit/internal/pool"
)

// LZ4Codec handles .lz4 images in the lz4 frame format, the format
// produced by the lz4 command-line tool.
type LZ4Codec struct{}

var _ Codec = (*LZ4Codec)(nil)

// NewLZ4Codec creates a new LZ4 frame codec.
func NewLZ4Codec() LZ4Codec {
	return LZ4Codec{}
}

// Compress compresses the image into a single lz4 frame.
func (c LZ4Codec) Compress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}

	var out bytes.Buffer
	w := lz4.NewWriter(&out)
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	return out.Bytes(), nil
}

// Decompress inflates an lz4-framed image.
//
// The frame header does not always carry the content size, so the
// inflate goes through a pooled buffer and the result is copied out once
// the final size is known.
func (c LZ4Codec) Decompress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}

	bb := pool.GetBlockBuffer()
	defer pool.PutBlockBuffer(bb)

	r := lz4.NewReader(bytes.NewReader(data))
	chunk := make([]byte, 64*1024)
	for {
		n, err := r.Read(chunk)
		bb.MustWrite(chunk[:n])
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
	}

	out := make([]byte, bb.Len())
	copy(out, bb.Bytes())

	return out, nil
}
