package btree

import (
	"fmt"

	"github.com/flashdbg/rbydkit/encoding"
	"github.com/flashdbg/rbydkit/errs"
)

// Bptr is the decoded payload of a data block record: a byte range
// inside a raw data block.
type Bptr struct {
	Size  uint32
	Block uint32
	Off   uint32
}

// DecodeBptr decodes a data block payload: LEB128 size, LEB128 block
// number, LEB128 byte offset within the block.
func DecodeBptr(data []byte) (Bptr, error) {
	var bp Bptr

	size, n := encoding.Leb128(data)
	if n == 0 {
		return Bptr{}, fmt.Errorf("%w: bptr size", errs.ErrInvalidPayload)
	}
	bp.Size = size
	data = data[n:]

	block, n := encoding.Leb128(data)
	if n == 0 {
		return Bptr{}, fmt.Errorf("%w: bptr block", errs.ErrInvalidPayload)
	}
	bp.Block = block
	data = data[n:]

	off, n := encoding.Leb128(data)
	if n == 0 {
		return Bptr{}, fmt.Errorf("%w: bptr off", errs.ErrInvalidPayload)
	}
	bp.Off = off

	return bp, nil
}

// AppendBptr encodes a data block payload; the fixture builders use it.
func AppendBptr(buf []byte, bp Bptr) []byte {
	buf = encoding.AppendLeb128(buf, bp.Size)
	buf = encoding.AppendLeb128(buf, bp.Block)

	return encoding.AppendLeb128(buf, bp.Off)
}
