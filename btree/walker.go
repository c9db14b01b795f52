// Package btree generalizes the in-block rbyd lookup across blocks:
// inner nodes hold branch records naming child rbyds, leaves hold the
// actual entries. The walker is read-only, depth-bounded, and treats an
// unfetchable child as a corrupted leaf rather than a failure of the
// whole walk.
package btree

import (
	"iter"

	"github.com/flashdbg/rbydkit/disk"
	"github.com/flashdbg/rbydkit/format"
	"github.com/flashdbg/rbydkit/internal/options"
	"github.com/flashdbg/rbydkit/rbyd"
)

// DefaultDepthLimit bounds descent when no explicit limit is given.
// It doubles as cycle and DoS protection for adversarial images; no
// honest tree on a finite disk comes near it.
const DefaultDepthLimit = 64

// Frame records one visited inner node during a lookup: the global id
// bucket it was entered through and the full tag set at that bucket.
// The tree renderers consume frames to draw inner nodes.
type Frame struct {
	Bid    int
	Weight int
	Node   rbyd.Rbyd
	Rid    int
	Tags   []rbyd.Entry
}

// Leaf is the result of one lookup: the resolved global id bucket, the
// leaf node and local rid, every tag sharing the bucket, and the inner
// frames visited on the way down.
//
// Corrupt marks a bucket whose child could not be fetched or verified
// (including a cycle back to an ancestor); Tags then belong to the
// parent bucket holding the bad branch.
type Leaf struct {
	Bid     int
	Weight  int
	Node    rbyd.Rbyd
	Rid     int
	Tags    []rbyd.Entry
	Path    []Frame
	Corrupt bool
}

// Walker traverses one btree from a root rbyd.
type Walker struct {
	d          *disk.Disk
	root       rbyd.Rbyd
	depthLimit int
}

type walkerConfig struct {
	depthLimit int
}

// WalkerOption configures NewWalker.
type WalkerOption = options.Option[*walkerConfig]

// WithDepthLimit bounds the descent depth. Zero means DefaultDepthLimit.
func WithDepthLimit(limit int) WalkerOption {
	return options.NoError(func(c *walkerConfig) {
		c.depthLimit = limit
	})
}

// NewWalker creates a walker over the tree rooted at root.
func NewWalker(d *disk.Disk, root rbyd.Rbyd, opts ...WalkerOption) *Walker {
	cfg := walkerConfig{}
	_ = options.Apply(&cfg, opts...)
	if cfg.depthLimit <= 0 {
		cfg.depthLimit = DefaultDepthLimit
	}

	return &Walker{d: d, root: root, depthLimit: cfg.depthLimit}
}

// Root returns the walker's root rbyd.
func (w *Walker) Root() rbyd.Rbyd {
	return w.root
}

// Lookup resolves the leaf bucket containing (or first after) the
// global id bid. The boolean result is false when no bucket at or after
// bid exists.
func (w *Walker) Lookup(bid int) (Leaf, bool) {
	node := w.root
	base := 0
	visited := map[uint64]bool{nodeKey(node): true}

	var path []Frame

	for depth := 0; ; depth++ {
		ent, ok := node.LookupNext(bid-base, format.TagNull+1)
		if !ok {
			return Leaf{}, false
		}
		rid, weight := ent.Rid, ent.Weight
		tags := node.RidTags(rid)

		branch, hasBranch := findBranch(tags)
		if !hasBranch || depth+1 >= w.depthLimit {
			return Leaf{
				Bid:    base + rid,
				Weight: weight,
				Node:   node,
				Rid:    rid,
				Tags:   tags,
				Path:   path,
			}, true
		}

		br, err := DecodeBranch(branch.Data)
		if err != nil {
			return w.corruptLeaf(base, rid, weight, node, tags, path), true
		}
		child, ok := FetchBranch(w.d, br)
		if !ok || visited[nodeKey(child)] {
			return w.corruptLeaf(base, rid, weight, node, tags, path), true
		}
		visited[nodeKey(child)] = true

		path = append(path, Frame{
			Bid:    base + rid,
			Weight: weight,
			Node:   node,
			Rid:    rid,
			Tags:   tags,
		})
		// rebase onto the child's local id space
		base += rid - weight + 1
		node = child
	}
}

func (w *Walker) corruptLeaf(base, rid, weight int, node rbyd.Rbyd, tags []rbyd.Entry, path []Frame) Leaf {
	return Leaf{
		Bid:     base + rid,
		Weight:  weight,
		Node:    node,
		Rid:     rid,
		Tags:    tags,
		Path:    path,
		Corrupt: true,
	}
}

// All iterates every leaf bucket in increasing bid order. A corrupted
// bucket is yielded exactly once and the walk advances past it instead
// of looping.
func (w *Walker) All() iter.Seq[Leaf] {
	return func(yield func(Leaf) bool) {
		bid := 0
		for {
			leaf, ok := w.Lookup(bid)
			if !ok {
				return
			}
			if !yield(leaf) {
				return
			}
			bid = leaf.Bid + 1
		}
	}
}

// findBranch picks the branch record out of a bucket's tag set.
func findBranch(tags []rbyd.Entry) (rbyd.Entry, bool) {
	for _, ent := range tags {
		if ent.Tag == format.TagBranch {
			return ent, true
		}
	}

	return rbyd.Entry{}, false
}

func nodeKey(r rbyd.Rbyd) uint64 {
	return uint64(r.Block)<<32 | uint64(r.Trunk)
}
