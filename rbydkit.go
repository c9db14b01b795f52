// Package rbydkit decodes and traverses rbyd-based disk images: block
// logs protected by a CRC32C checksum chain, copy-on-write btrees built
// from them, and the metadata tree layered on top.
//
// Everything here is strictly read-only. Corruption never surfaces as
// an error; a bad block decodes to an unreadable rbyd, a bad branch to
// a corrupt leaf, and traversal continues around it.
//
// # Core Features
//
//   - Fail-closed rbyd fetch with checksum-chain replay and historical
//     trunk addressing
//   - Red-black alt-pointer lookup inside a block, bit-identical across
//     repeated fetches
//   - Revision-based redundancy resolution for mirrored block sets
//   - Bounded btree and mtree walks that survive cycles and bad links
//   - Name lookup, directory enumeration, XOR-folded global state, and
//     block usage mapping
//
// # Basic Usage
//
// Opening an image and walking the filesystem:
//
//	import "github.com/flashdbg/rbydkit"
//
//	d, _ := rbydkit.Open("disk.img", rbydkit.WithBlockSize(4096))
//	fs, _ := rbydkit.OpenFS(d)
//
//	for mdir := range fs.Mdirs() {
//	    fmt.Printf("mdir at mid %d, weight %d\n", mdir.Base, mdir.Weight())
//	}
//
// Fetching one raw block log:
//
//	r := rbydkit.Fetch(d, 2)
//	for ent := range r.All() {
//	    fmt.Printf("rid=%d tag=%s size=%d\n", ent.Rid, ent.Tag, len(ent.Data))
//	}
//
// # Package Structure
//
// This package wraps the most common entry points. For fine-grained
// control use the underlying packages directly: disk for image access,
// rbyd for block logs, btree for tree walks, mtree for the filesystem
// layer, and bmap for usage maps.
package rbydkit

import (
	"github.com/flashdbg/rbydkit/bmap"
	"github.com/flashdbg/rbydkit/disk"
	"github.com/flashdbg/rbydkit/mtree"
	"github.com/flashdbg/rbydkit/rbyd"
)

// Open opens a disk image file. Compressed images are inflated
// transparently based on their file extension.
func Open(path string, opts ...disk.Option) (*disk.Disk, error) {
	return disk.Open(path, opts...)
}

// WithBlockSize sets the image's block size.
func WithBlockSize(size uint32) disk.Option {
	return disk.WithBlockSize(size)
}

// WithBlockCount overrides the block count inferred from the image size.
func WithBlockCount(count uint32) disk.Option {
	return disk.WithBlockCount(count)
}

// Fetch decodes the block log at block, replaying its checksum chain to
// the last valid commit. The result is unreadable, never an error, when
// no valid commit exists.
func Fetch(d *disk.Disk, block uint32, opts ...rbyd.Option) rbyd.Rbyd {
	return rbyd.Fetch(d, block, opts...)
}

// FetchSet decodes a redundant block set and returns the copy with the
// newest revision.
func FetchSet(d *disk.Disk, blocks []uint32, opts ...rbyd.Option) (rbyd.Rbyd, error) {
	return rbyd.FetchSet(d, blocks, opts...)
}

// OpenFS resolves the filesystem reachable from the image's mroot
// anchor.
func OpenFS(d *disk.Disk, opts ...mtree.Option) (*mtree.FS, error) {
	return mtree.Open(d, opts...)
}

// BuildBmap maps every block the filesystem occupies.
func BuildBmap(d *disk.Disk, fs *mtree.FS, opts ...bmap.Option) *bmap.Map {
	return bmap.Build(d, fs, opts...)
}
