package btree

import (
	"fmt"

	"github.com/flashdbg/rbydkit/disk"
	"github.com/flashdbg/rbydkit/encoding"
	"github.com/flashdbg/rbydkit/endian"
	"github.com/flashdbg/rbydkit/errs"
	"github.com/flashdbg/rbydkit/rbyd"
)

// Branch is the decoded payload of a branch or btree record: the
// location and expected identity of a child rbyd.
type Branch struct {
	Weight int
	Trunk  uint32
	Block  uint32
	Cksum  uint32
}

// DecodeBranch decodes a branch payload: LEB128 weight, LEB128 trunk
// offset, LEB128 block number, then the child commit's checksum as four
// little-endian bytes.
func DecodeBranch(data []byte) (Branch, error) {
	var br Branch

	weight, n := encoding.Leb128(data)
	if n == 0 {
		return Branch{}, fmt.Errorf("%w: branch weight", errs.ErrInvalidPayload)
	}
	br.Weight = int(weight)
	data = data[n:]

	trunk, n := encoding.Leb128(data)
	if n == 0 {
		return Branch{}, fmt.Errorf("%w: branch trunk", errs.ErrInvalidPayload)
	}
	br.Trunk = trunk
	data = data[n:]

	block, n := encoding.Leb128(data)
	if n == 0 {
		return Branch{}, fmt.Errorf("%w: branch block", errs.ErrInvalidPayload)
	}
	br.Block = block
	data = data[n:]

	if len(data) < 4 {
		return Branch{}, fmt.Errorf("%w: branch cksum", errs.ErrInvalidPayload)
	}
	br.Cksum = endian.GetLittleEndianEngine().Uint32(data[0:4])

	return br, nil
}

// AppendBranch encodes a branch payload; the inverse of DecodeBranch,
// used by the fixture builders.
func AppendBranch(buf []byte, br Branch) []byte {
	buf = encoding.AppendLeb128(buf, uint32(br.Weight))
	buf = encoding.AppendLeb128(buf, br.Trunk)
	buf = encoding.AppendLeb128(buf, br.Block)

	return endian.GetLittleEndianEngine().AppendUint32(buf, br.Cksum)
}

// FetchBranch fetches and verifies the child rbyd a branch names. The
// child must be readable at the named trunk, match the stored checksum,
// and span the stored weight; anything else reports as unfetchable.
func FetchBranch(d *disk.Disk, br Branch) (rbyd.Rbyd, bool) {
	child := rbyd.Fetch(d, br.Block, rbyd.WithTrunk(br.Trunk))
	if !child.Readable() || child.Cksum != br.Cksum || child.Weight != br.Weight {
		return child, false
	}

	return child, true
}
