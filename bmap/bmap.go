// Package bmap builds a physical usage map of a disk image: which
// blocks the filesystem's metadata and data structures occupy, and
// optionally which byte ranges inside them are actually committed.
package bmap

import (
	"sort"

	"github.com/flashdbg/rbydkit/btree"
	"github.com/flashdbg/rbydkit/disk"
	"github.com/flashdbg/rbydkit/format"
	"github.com/flashdbg/rbydkit/internal/hash"
	"github.com/flashdbg/rbydkit/internal/options"
	"github.com/flashdbg/rbydkit/mtree"
	"github.com/flashdbg/rbydkit/rbyd"
)

// Kind classifies what a block is used as.
type Kind int

const (
	// KindMdir marks a metadata log block (mroot or mdir copy).
	KindMdir Kind = iota
	// KindBTree marks an inner node of the mtree or of a file btree.
	KindBTree
	// KindData marks a raw file data block.
	KindData
)

func (k Kind) String() string {
	switch k {
	case KindMdir:
		return "mdir"
	case KindBTree:
		return "btree"
	case KindData:
		return "data"
	default:
		return "unknown"
	}
}

// Range is a committed byte range inside a block.
type Range struct {
	Off uint32
	Len uint32
}

// Usage describes one in-use block. Ranges is populated only when the
// map was built in in-use mode; a nil Ranges means the whole block.
// The fingerprint hashes the block's full raw contents, so two
// redundant copies are bit-identical iff their fingerprints match.
type Usage struct {
	Block       uint32
	Kind        Kind
	Ranges      []Range
	Fingerprint uint64
}

// Map is the result of a usage walk.
type Map struct {
	usages  map[uint32]*Usage
	corrupt bool
}

type mapConfig struct {
	inUse bool
}

// Option configures Build.
type Option = options.Option[*mapConfig]

// WithInUse records committed byte sub-ranges instead of whole blocks.
func WithInUse(inUse bool) Option {
	return options.NoError(func(c *mapConfig) {
		c.inUse = inUse
	})
}

// Build walks every structure reachable from fs and maps the blocks it
// touches. Corruption encountered on the way is absorbed into the
// map's corrupt flag; the walk itself never fails.
func Build(d *disk.Disk, fs *mtree.FS, opts ...Option) *Map {
	var cfg mapConfig
	_ = options.Apply(&cfg, opts...)

	b := &builder{
		d:     d,
		inUse: cfg.inUse,
		m: &Map{
			usages:  make(map[uint32]*Usage),
			corrupt: fs.Corrupt(),
		},
	}

	for _, mroot := range fs.MRoots() {
		b.mdirBlocks(mroot)
	}
	if tree := fs.MTree(); tree != nil {
		b.innerNodes(tree)
	}
	for mdir := range fs.Mdirs() {
		if mdir.Corrupt {
			b.m.corrupt = true
			continue
		}
		b.mdirBlocks(mdir.Rbyd)
		b.fileStructs(mdir.Rbyd)
	}

	return b.m
}

// Lookup returns the usage recorded for a block.
func (m *Map) Lookup(block uint32) (Usage, bool) {
	u, ok := m.usages[block]
	if !ok {
		return Usage{}, false
	}

	return *u, true
}

// Blocks returns every recorded usage in ascending block order.
func (m *Map) Blocks() []Usage {
	blocks := make([]Usage, 0, len(m.usages))
	for _, u := range m.usages {
		blocks = append(blocks, *u)
	}
	sort.Slice(blocks, func(i, j int) bool { return blocks[i].Block < blocks[j].Block })

	return blocks
}

// Corrupt reports whether any corruption was seen during the walk.
func (m *Map) Corrupt() bool {
	return m.corrupt
}

// Identical reports whether two recorded blocks hold bit-identical
// contents. Redundant mdir copies normally differ, since the loser
// lags the winner by at least one commit.
func (m *Map) Identical(a, b uint32) bool {
	ua, oka := m.usages[a]
	ub, okb := m.usages[b]

	return oka && okb && ua.Fingerprint == ub.Fingerprint
}

type builder struct {
	d     *disk.Disk
	inUse bool
	m     *Map
}

// mdirBlocks records the winner and every redundant copy of one
// metadata log.
func (b *builder) mdirBlocks(r rbyd.Rbyd) {
	b.record(r.Block, KindMdir, r.Eoff)
	for _, block := range r.Redund {
		copyR := rbyd.Fetch(b.d, block)
		if !copyR.Readable() {
			b.record(block, KindMdir, 0)
			continue
		}
		b.record(block, KindMdir, copyR.Eoff)
	}
}

// innerNodes records every inner node a full walk of tree visits.
func (b *builder) innerNodes(tree *btree.Walker) {
	root := tree.Root()
	b.record(root.Block, KindBTree, root.Eoff)
	for leaf := range tree.All() {
		if leaf.Corrupt {
			b.m.corrupt = true
		}
		for _, frame := range leaf.Path {
			b.record(frame.Node.Block, KindBTree, frame.Node.Eoff)
		}
		b.record(leaf.Node.Block, KindBTree, leaf.Node.Eoff)
	}
}

// fileStructs records the data blocks and file btrees referenced by
// one mdir's entries.
func (b *builder) fileStructs(r rbyd.Rbyd) {
	for rid := 0; rid < r.Weight; {
		ent, ok := r.LookupNext(rid, format.TagNull+1)
		if !ok {
			return
		}
		for _, t := range r.RidTags(ent.Rid) {
			b.fileStruct(t)
		}
		rid = ent.Rid + 1
	}
}

func (b *builder) fileStruct(ent rbyd.Entry) {
	switch ent.Tag {
	case format.TagBlock:
		bp, err := btree.DecodeBptr(ent.Data)
		if err != nil {
			b.m.corrupt = true
			return
		}
		b.recordRange(bp.Block, KindData, bp.Off, bp.Size)

	case format.TagBTree:
		br, err := btree.DecodeBranch(ent.Data)
		if err != nil {
			b.m.corrupt = true
			return
		}
		root, ok := btree.FetchBranch(b.d, br)
		if !ok {
			b.m.corrupt = true
			return
		}
		b.fileTree(btree.NewWalker(b.d, root))
	}
}

// fileTree records a file btree's inner nodes and the data blocks its
// leaves point at.
func (b *builder) fileTree(tree *btree.Walker) {
	root := tree.Root()
	b.record(root.Block, KindBTree, root.Eoff)
	for leaf := range tree.All() {
		if leaf.Corrupt {
			b.m.corrupt = true
			continue
		}
		for _, frame := range leaf.Path {
			b.record(frame.Node.Block, KindBTree, frame.Node.Eoff)
		}
		b.record(leaf.Node.Block, KindBTree, leaf.Node.Eoff)
		for _, t := range leaf.Tags {
			if t.Tag != format.TagBlock {
				continue
			}
			bp, err := btree.DecodeBptr(t.Data)
			if err != nil {
				b.m.corrupt = true
				continue
			}
			b.recordRange(bp.Block, KindData, bp.Off, bp.Size)
		}
	}
}

// record marks block as kind, committed through eoff.
func (b *builder) record(block uint32, kind Kind, eoff uint32) {
	b.recordRange(block, kind, 0, eoff)
}

func (b *builder) recordRange(block uint32, kind Kind, off, size uint32) {
	u, ok := b.m.usages[block]
	if !ok {
		u = &Usage{Block: block, Kind: kind}
		if data, err := b.d.ReadBlock(block); err == nil {
			u.Fingerprint = hash.Fingerprint(data)
		} else {
			b.m.corrupt = true
		}
		b.m.usages[block] = u
	}
	// one block claimed as two different kinds means the structures
	// overlap, which a consistent image never does
	if u.Kind != kind {
		b.m.corrupt = true
	}
	if !b.inUse || size == 0 {
		return
	}
	u.Ranges = mergeRange(u.Ranges, Range{Off: off, Len: size})
}

// mergeRange inserts r, keeping ranges sorted by offset and coalescing
// overlaps.
func mergeRange(ranges []Range, r Range) []Range {
	ranges = append(ranges, r)
	sort.Slice(ranges, func(i, j int) bool { return ranges[i].Off < ranges[j].Off })

	merged := ranges[:1]
	for _, next := range ranges[1:] {
		last := &merged[len(merged)-1]
		if next.Off <= last.Off+last.Len {
			if end := next.Off + next.Len; end > last.Off+last.Len {
				last.Len = end - last.Off
			}
			continue
		}
		merged = append(merged, next)
	}

	return merged
}
