package mtree

import (
	"fmt"
	"sort"

	"github.com/flashdbg/rbydkit/encoding"
	"github.com/flashdbg/rbydkit/errs"
	"github.com/flashdbg/rbydkit/format"
	"github.com/flashdbg/rbydkit/rbyd"
)

// Delta is one gstate contribution: the block it was read from and its
// raw payload.
type Delta struct {
	Block uint32
	Data  []byte
}

// GState is the filesystem's aggregated global state. Every mroot and
// mdir may carry gstate deltas on its weightless rid; the committed
// state for each tag kind is the XOR of all of them, shorter payloads
// zero-padded to the longest.
type GState struct {
	States map[format.Tag][]byte
	Deltas map[format.Tag][]Delta

	corrupt bool
}

// Corrupt reports whether any mdir's deltas were missing from the fold
// because the mdir could not be read. The folded states are then a
// partial view.
func (g *GState) Corrupt() bool {
	return g.corrupt
}

// Tags returns the gstate tag kinds present, in ascending tag order.
func (g *GState) Tags() []format.Tag {
	tags := make([]format.Tag, 0, len(g.States))
	for tag := range g.States {
		tags = append(tags, tag)
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i] < tags[j] })

	return tags
}

// GState folds the gstate deltas of every mroot and mdir.
func (fs *FS) GState() *GState {
	g := &GState{
		States: make(map[format.Tag][]byte),
		Deltas: make(map[format.Tag][]Delta),
	}

	for _, mroot := range fs.mroots {
		g.fold(mroot)
	}
	for mdir := range fs.Mdirs() {
		if mdir.Corrupt {
			g.corrupt = true
			continue
		}
		g.fold(mdir.Rbyd)
	}

	return g
}

func (g *GState) fold(r rbyd.Rbyd) {
	for _, ent := range r.RidTags(-1) {
		if ent.Tag.Classify() != format.ClassGState {
			continue
		}
		g.States[ent.Tag] = xorInto(g.States[ent.Tag], ent.Data)
		g.Deltas[ent.Tag] = append(g.Deltas[ent.Tag], Delta{
			Block: r.Block,
			Data:  ent.Data,
		})
	}
}

// xorInto xors src into dst, growing dst to cover src.
func xorInto(dst, src []byte) []byte {
	if len(src) > len(dst) {
		grown := make([]byte, len(src))
		copy(grown, dst)
		dst = grown
	}
	for i, b := range src {
		dst[i] ^= b
	}

	return dst
}

// GRM is the decoded grm gstate: the mids queued for removal.
type GRM struct {
	Mids []GRMEntry
}

// GRMEntry is one queued removal, as an (mdir, rid) pair.
type GRMEntry struct {
	Mid uint32
	Rid uint32
}

// DecodeGRM decodes a folded grm payload: a LEB128 count followed by
// count (LEB128 mid, LEB128 rid) pairs. Trailing zero padding left by
// the fold is accepted.
func DecodeGRM(data []byte) (GRM, error) {
	off := 0
	count, n := encoding.Leb128(data[off:])
	if n == 0 {
		return GRM{}, fmt.Errorf("%w: grm count", errs.ErrInvalidPayload)
	}
	off += n

	// a pair needs at least two bytes, so the payload bounds the count
	// regardless of what the count field claims
	grm := GRM{Mids: make([]GRMEntry, 0, min(int(count), len(data[off:])/2))}
	for i := uint32(0); i < count; i++ {
		mid, n := encoding.Leb128(data[off:])
		if n == 0 {
			return GRM{}, fmt.Errorf("%w: grm mid %d", errs.ErrInvalidPayload, i)
		}
		off += n
		rid, n := encoding.Leb128(data[off:])
		if n == 0 {
			return GRM{}, fmt.Errorf("%w: grm rid %d", errs.ErrInvalidPayload, i)
		}
		off += n
		grm.Mids = append(grm.Mids, GRMEntry{Mid: mid, Rid: rid})
	}

	for _, b := range data[off:] {
		if b != 0 {
			return GRM{}, fmt.Errorf("%w: grm trailing bytes", errs.ErrInvalidPayload)
		}
	}

	return grm, nil
}

// AppendGRM encodes a grm payload; the fixture builders use it.
func AppendGRM(buf []byte, grm GRM) []byte {
	buf = encoding.AppendLeb128(buf, uint32(len(grm.Mids)))
	for _, e := range grm.Mids {
		buf = encoding.AppendLeb128(buf, e.Mid)
		buf = encoding.AppendLeb128(buf, e.Rid)
	}

	return buf
}
