// Package mtree resolves the filesystem's metadata structures: the
// mroot chain, the mtree of redundant metadata directories (mdirs),
// name-based directory lookup, and XOR-folded global state.
package mtree

import (
	"fmt"
	"iter"

	"github.com/flashdbg/rbydkit/btree"
	"github.com/flashdbg/rbydkit/disk"
	"github.com/flashdbg/rbydkit/encoding"
	"github.com/flashdbg/rbydkit/errs"
	"github.com/flashdbg/rbydkit/format"
	"github.com/flashdbg/rbydkit/internal/options"
	"github.com/flashdbg/rbydkit/rbyd"
)

// DefaultMRootChainLimit bounds how many successor mroots are followed
// before the chain is declared runaway. Honest filesystems chain a
// handful at most.
const DefaultMRootChainLimit = 32

// DefaultAnchor is the block pair the filesystem's first mroot lives in.
var DefaultAnchor = []uint32{0, 1}

// FS is a resolved filesystem: the mroot chain and whichever of an
// inline mdir or an mtree the final mroot carries.
type FS struct {
	d          *disk.Disk
	mroots     []rbyd.Rbyd
	inline     *rbyd.Rbyd
	tree       *btree.Walker
	depthLimit int
	corrupt    bool
}

type fsConfig struct {
	anchor     disk.Addr
	depthLimit int
	chainLimit int
}

// Option configures Open.
type Option = options.Option[*fsConfig]

// WithAnchor sets the mroot anchor address. Defaults to blocks {0,1}.
func WithAnchor(addr disk.Addr) Option {
	return options.NoError(func(c *fsConfig) {
		c.anchor = addr
	})
}

// WithDepthLimit bounds mtree descent depth, passed through to the
// underlying btree walker.
func WithDepthLimit(limit int) Option {
	return options.NoError(func(c *fsConfig) {
		c.depthLimit = limit
	})
}

// WithMRootChainLimit bounds mroot chain following. Zero means
// DefaultMRootChainLimit.
func WithMRootChainLimit(limit int) Option {
	return options.NoError(func(c *fsConfig) {
		c.chainLimit = limit
	})
}

// Open resolves the filesystem reachable from the mroot anchor.
//
// The resolver follows "next mroot" records from the anchor until
// absent (or the chain limit trips, which marks the filesystem corrupt
// and keeps the last good mroot). From the final mroot it prefers an
// inline mdir record, then an mtree record; carrying neither is an
// error since there is no metadata to inspect.
func Open(d *disk.Disk, opts ...Option) (*FS, error) {
	cfg := fsConfig{}
	if err := options.Apply(&cfg, opts...); err != nil {
		return nil, err
	}
	if len(cfg.anchor.Blocks) == 0 {
		cfg.anchor.Blocks = DefaultAnchor
	}
	if cfg.chainLimit <= 0 {
		cfg.chainLimit = DefaultMRootChainLimit
	}
	if cfg.depthLimit <= 0 {
		cfg.depthLimit = btree.DefaultDepthLimit
	}

	var fetchOpts []rbyd.Option
	if cfg.anchor.Trunk != 0 {
		fetchOpts = append(fetchOpts, rbyd.WithTrunk(cfg.anchor.Trunk))
	}
	mroot, err := rbyd.FetchSet(d, cfg.anchor.Blocks, fetchOpts...)
	if err != nil {
		return nil, err
	}
	if !mroot.Readable() {
		return nil, fmt.Errorf("%w: %s", errs.ErrNoMRoot, cfg.anchor)
	}

	fs := &FS{d: d, depthLimit: cfg.depthLimit}
	fs.mroots = append(fs.mroots, mroot)

	// follow the mroot chain; a cycle revisits a block set and is cut
	// by the chain limit
	for range cfg.chainLimit {
		ent, ok := mroot.LookupNext(-1, format.TagMRoot)
		if !ok || ent.Rid != -1 || ent.Tag != format.TagMRoot {
			break
		}
		blocks, err := DecodeMPtr(ent.Data)
		if err != nil {
			fs.corrupt = true
			break
		}
		next, err := rbyd.FetchSet(d, blocks)
		if err != nil || !next.Readable() {
			fs.corrupt = true
			break
		}
		mroot = next
		fs.mroots = append(fs.mroots, mroot)
	}
	if ent, ok := mroot.LookupNext(-1, format.TagMRoot); ok && ent.Rid == -1 && ent.Tag == format.TagMRoot {
		// chain limit tripped with more chain left
		fs.corrupt = true
	}

	// inline mdir takes priority over an mtree
	if ent, ok := mroot.LookupNext(-1, format.TagMDir); ok && ent.Rid == -1 && ent.Tag == format.TagMDir {
		blocks, err := DecodeMPtr(ent.Data)
		if err != nil {
			return nil, fmt.Errorf("%w: inline mdir", errs.ErrInvalidPayload)
		}
		mdir, err := rbyd.FetchSet(d, blocks)
		if err != nil {
			return nil, err
		}
		if !mdir.Readable() {
			fs.corrupt = true
		}
		fs.inline = &mdir

		return fs, nil
	}

	if ent, ok := mroot.LookupNext(-1, format.TagMTree); ok && ent.Rid == -1 && ent.Tag == format.TagMTree {
		br, err := btree.DecodeBranch(ent.Data)
		if err != nil {
			return nil, fmt.Errorf("%w: mtree root", errs.ErrInvalidPayload)
		}
		root, ok := btree.FetchBranch(d, br)
		if !ok {
			fs.corrupt = true
		}
		fs.tree = btree.NewWalker(d, root, btree.WithDepthLimit(cfg.depthLimit))

		return fs, nil
	}

	return nil, errs.ErrNoMTree
}

// MRoots returns the resolved mroot chain, anchor first.
func (fs *FS) MRoots() []rbyd.Rbyd {
	return fs.mroots
}

// MRoot returns the final mroot of the chain.
func (fs *FS) MRoot() rbyd.Rbyd {
	return fs.mroots[len(fs.mroots)-1]
}

// MTree returns the mtree walker, or nil for inline-mdir filesystems.
func (fs *FS) MTree() *btree.Walker {
	return fs.tree
}

// Corrupt reports whether any corruption was seen while resolving the
// filesystem's structure. Per-query corruption (unreadable mdirs,
// unfetchable btree children) is reported on the individual results.
func (fs *FS) Corrupt() bool {
	return fs.corrupt
}

// Mdir is one resolved metadata directory: the winning rbyd of its
// redundant set, the local rid a queried mid resolved to, and the
// global mid of the mdir's rid 0.
type Mdir struct {
	Rbyd    rbyd.Rbyd
	Rid     int
	Base    int
	Corrupt bool
}

// Weight returns the number of entries the mdir holds.
func (m Mdir) Weight() int {
	return m.Rbyd.Weight
}

// Mid resolves a logical metadata id to its concrete mdir. The boolean
// result is false when mid is past the end of the mtree.
func (fs *FS) Mid(mid int) (Mdir, bool) {
	if fs.inline != nil {
		if mid < 0 || mid >= fs.inline.Weight {
			return Mdir{}, false
		}

		return Mdir{Rbyd: *fs.inline, Rid: mid, Corrupt: !fs.inline.Readable()}, true
	}

	leaf, ok := fs.tree.Lookup(mid)
	if !ok {
		return Mdir{}, false
	}
	base := leaf.Bid - leaf.Weight + 1
	if leaf.Corrupt {
		return Mdir{Rid: mid - base, Base: base, Corrupt: true}, true
	}

	mdir, ok := fs.mdirAt(leaf)
	if !ok {
		return Mdir{Rid: mid - base, Base: base, Corrupt: true}, true
	}
	mdir.Rid = mid - base

	return mdir, true
}

// Mdirs iterates every mdir of the filesystem in mid order. Corrupt
// mtree leaves yield an Mdir with Corrupt set so walks can report and
// carry on.
func (fs *FS) Mdirs() iter.Seq[Mdir] {
	return func(yield func(Mdir) bool) {
		if fs.inline != nil {
			yield(Mdir{Rbyd: *fs.inline, Corrupt: !fs.inline.Readable()})
			return
		}

		for leaf := range fs.tree.All() {
			base := leaf.Bid - leaf.Weight + 1
			mdir, ok := fs.mdirAt(leaf)
			if leaf.Corrupt || !ok {
				if !yield(Mdir{Base: base, Corrupt: true}) {
					return
				}
				continue
			}
			if !yield(mdir) {
				return
			}
		}
	}
}

// mdirAt decodes and fetches the mdir named by an mtree leaf.
func (fs *FS) mdirAt(leaf btree.Leaf) (Mdir, bool) {
	base := leaf.Bid - leaf.Weight + 1
	for _, ent := range leaf.Tags {
		if ent.Tag != format.TagMDir {
			continue
		}
		blocks, err := DecodeMPtr(ent.Data)
		if err != nil {
			return Mdir{}, false
		}
		mdir, err := rbyd.FetchSet(fs.d, blocks)
		if err != nil || !mdir.Readable() {
			return Mdir{}, false
		}

		return Mdir{Rbyd: mdir, Base: base}, true
	}

	return Mdir{}, false
}

// DecodeMPtr decodes an mdir pointer payload: a sequence of LEB128
// block numbers, one per redundant copy.
func DecodeMPtr(data []byte) ([]uint32, error) {
	var blocks []uint32
	for len(data) > 0 {
		block, n := encoding.Leb128(data)
		if n == 0 {
			return nil, fmt.Errorf("%w: mdir pointer", errs.ErrInvalidPayload)
		}
		blocks = append(blocks, block)
		data = data[n:]
	}
	if len(blocks) == 0 {
		return nil, fmt.Errorf("%w: empty mdir pointer", errs.ErrInvalidPayload)
	}

	return blocks, nil
}

// AppendMPtr encodes an mdir pointer payload; the fixture builders use
// it.
func AppendMPtr(buf []byte, blocks []uint32) []byte {
	for _, block := range blocks {
		buf = encoding.AppendLeb128(buf, block)
	}

	return buf
}
