// Package pool provides pooled byte buffers for the decompression
// path, where scratch buffers churn quickly.
package pool

import "sync"

const (
	// BlockBufferDefaultSize is the default capacity of a buffer obtained
	// from the pool, sized for a typical flash block.
	BlockBufferDefaultSize = 1024 * 4
	// BlockBufferMaxThreshold caps what is returned to the pool; anything
	// larger (whole decompressed images) is left to the GC.
	BlockBufferMaxThreshold = 1024 * 256
)

// ByteBuffer is a minimal append-oriented byte buffer.
type ByteBuffer struct {
	// B is the underlying byte slice.
	B []byte
}

// NewByteBuffer creates a new ByteBuffer with the specified initial capacity.
func NewByteBuffer(size int) *ByteBuffer {
	return &ByteBuffer{B: make([]byte, 0, size)}
}

// Bytes returns the underlying byte slice.
func (bb *ByteBuffer) Bytes() []byte {
	return bb.B
}

// Len returns the length of the buffer.
func (bb *ByteBuffer) Len() int {
	return len(bb.B)
}

// Reset resets the buffer to be empty, retaining the allocation.
func (bb *ByteBuffer) Reset() {
	bb.B = bb.B[:0]
}

// MustWrite appends data to the buffer, growing it if necessary.
func (bb *ByteBuffer) MustWrite(data []byte) {
	bb.B = append(bb.B, data...)
}

// Grow ensures capacity for at least n more bytes.
func (bb *ByteBuffer) Grow(n int) {
	if cap(bb.B)-len(bb.B) < n {
		grown := make([]byte, len(bb.B), len(bb.B)+n)
		copy(grown, bb.B)
		bb.B = grown
	}
}

var blockBufferPool = sync.Pool{
	New: func() any {
		return NewByteBuffer(BlockBufferDefaultSize)
	},
}

// GetBlockBuffer obtains a reset buffer from the pool.
func GetBlockBuffer() *ByteBuffer {
	bb, _ := blockBufferPool.Get().(*ByteBuffer)
	bb.Reset()

	return bb
}

// PutBlockBuffer returns a buffer to the pool unless it has grown past
// the retention threshold.
func PutBlockBuffer(bb *ByteBuffer) {
	if cap(bb.B) > BlockBufferMaxThreshold {
		return
	}
	blockBufferPool.Put(bb)
}
