package mtree

import (
	"bytes"
	"fmt"
	"iter"

	"github.com/flashdbg/rbydkit/btree"
	"github.com/flashdbg/rbydkit/encoding"
	"github.com/flashdbg/rbydkit/errs"
	"github.com/flashdbg/rbydkit/format"
	"github.com/flashdbg/rbydkit/rbyd"
)

// DirEntry is one resolved directory entry.
//
// Weight greater than 1 marks a bucket of ids sharing the name, as the
// directory-start sentinel does. When a lookup misses, the returned
// DirEntry holds the entry immediately preceding the insertion point
// (Rid -1 when the miss sorts before the mdir's first entry).
//
// A Corrupt entry marks a spot where enumeration could not continue:
// the walk stops there, so earlier entries are complete but later ones
// are lost.
type DirEntry struct {
	Did     uint32
	Name    string
	Mid     int
	Mdir    Mdir
	Rid     int
	Tag     format.Tag
	Weight  int
	Corrupt bool
}

// DecodeName decodes a name payload: LEB128 directory id followed by
// the raw name bytes.
func DecodeName(data []byte) (uint32, []byte, error) {
	did, n := encoding.Leb128(data)
	if n == 0 {
		return 0, nil, fmt.Errorf("%w: name did", errs.ErrInvalidPayload)
	}

	return did, data[n:], nil
}

// AppendName encodes a name payload; the fixture builders use it.
func AppendName(buf []byte, did uint32, name []byte) []byte {
	buf = encoding.AppendLeb128(buf, did)

	return append(buf, name...)
}

// NameLookup searches the whole filesystem for (did, name).
//
// Across the mtree the descent picks the child whose name range
// contains the query: each inner bucket's name record is its subtree's
// smallest name, and a bucket without one (the id-0 sentinel) is a
// catch-all sorting before everything. Within the resolved mdir a
// binary search narrows to the exact entry.
func (fs *FS) NameLookup(did uint32, name string) (DirEntry, bool) {
	mdir, ok := fs.nameMdir(did, name)
	if !ok || mdir.Corrupt {
		return DirEntry{Mdir: mdir, Rid: -1}, false
	}

	return fs.mdirNameLookup(mdir, did, name)
}

// nameMdir descends to the mdir whose name range contains the query.
func (fs *FS) nameMdir(did uint32, name string) (Mdir, bool) {
	if fs.inline != nil {
		return Mdir{Rbyd: *fs.inline, Corrupt: !fs.inline.Readable()}, true
	}

	node := fs.tree.Root()
	base := 0
	visited := map[uint64]bool{uint64(node.Block)<<32 | uint64(node.Trunk): true}

	for depth := 0; depth < fs.depthLimit; depth++ {
		rid, tags, ok := pickByName(node, did, name)
		if !ok {
			return Mdir{}, false
		}

		var branchEnt, mdirEnt *rbyd.Entry
		for i := range tags {
			switch tags[i].Tag {
			case format.TagBranch:
				branchEnt = &tags[i]
			case format.TagMDir:
				mdirEnt = &tags[i]
			}
		}

		bucketBase := base + rid - bucketWeight(tags) + 1

		switch {
		case branchEnt != nil:
			br, err := btree.DecodeBranch(branchEnt.Data)
			if err != nil {
				return Mdir{Base: bucketBase, Corrupt: true}, true
			}
			child, ok := btree.FetchBranch(fs.d, br)
			key := uint64(child.Block)<<32 | uint64(child.Trunk)
			if !ok || visited[key] {
				return Mdir{Base: bucketBase, Corrupt: true}, true
			}
			visited[key] = true
			base = bucketBase
			node = child

		case mdirEnt != nil:
			blocks, err := DecodeMPtr(mdirEnt.Data)
			if err != nil {
				return Mdir{Base: bucketBase, Corrupt: true}, true
			}
			mdir, err := rbyd.FetchSet(fs.d, blocks)
			if err != nil || !mdir.Readable() {
				return Mdir{Base: bucketBase, Corrupt: true}, true
			}

			return Mdir{Rbyd: mdir, Base: bucketBase}, true

		default:
			return Mdir{Base: bucketBase, Corrupt: true}, true
		}
	}

	return Mdir{Corrupt: true}, true
}

// pickByName chooses the last bucket of node whose name sorts at or
// before the query, falling back to the first bucket when everything
// sorts after it.
func pickByName(node rbyd.Rbyd, did uint32, name string) (int, []rbyd.Entry, bool) {
	chosenRid := -1
	var chosen []rbyd.Entry

	rid := 0
	for {
		ent, ok := node.LookupNext(rid, format.TagNull+1)
		if !ok {
			break
		}
		tags := node.RidTags(ent.Rid)
		if chosenRid < 0 || cmpBucketName(tags, did, name) <= 0 {
			chosenRid = ent.Rid
			chosen = tags
		} else {
			break
		}
		rid = ent.Rid + 1
	}

	if chosenRid < 0 {
		return 0, nil, false
	}

	return chosenRid, chosen, true
}

// cmpBucketName orders a bucket's name key against the query. A bucket
// without a name record sorts before everything.
func cmpBucketName(tags []rbyd.Entry, did uint32, name string) int {
	for _, ent := range tags {
		if ent.Tag.Classify() != format.ClassName {
			continue
		}
		entDid, entName, err := DecodeName(ent.Data)
		if err != nil {
			return -1
		}

		return cmpName(entDid, entName, did, []byte(name))
	}

	return -1
}

// cmpName orders (did, name) pairs lexicographically.
func cmpName(aDid uint32, aName []byte, bDid uint32, bName []byte) int {
	switch {
	case aDid < bDid:
		return -1
	case aDid > bDid:
		return 1
	default:
		return bytes.Compare(aName, bName)
	}
}

// mdirNameLookup binary-searches one mdir for (did, name).
func (fs *FS) mdirNameLookup(mdir Mdir, did uint32, name string) (DirEntry, bool) {
	query := []byte(name)

	// lo converges on the first bucket sorting at or after the query
	lo, hi := 0, mdir.Rbyd.Weight
	for lo < hi {
		probe := lo + (hi-lo)/2
		ent, ok := mdir.Rbyd.LookupNext(probe, format.TagNull+1)
		if !ok {
			hi = probe
			continue
		}
		tags := mdir.Rbyd.RidTags(ent.Rid)
		if cmpBucketName(tags, did, name) < 0 {
			lo = ent.Rid + 1
		} else {
			hi = ent.Rid - bucketWeight(tags) + 1
		}
	}

	miss := DirEntry{Mdir: mdir, Rid: lo - 1, Mid: mdir.Base + lo - 1}
	if lo >= mdir.Rbyd.Weight {
		return miss, false
	}

	ent, ok := mdir.Rbyd.LookupNext(lo, format.TagNull+1)
	if !ok {
		return miss, false
	}
	tags := mdir.Rbyd.RidTags(ent.Rid)
	for _, t := range tags {
		if t.Tag.Classify() != format.ClassName {
			continue
		}
		entDid, entName, err := DecodeName(t.Data)
		if err != nil {
			return miss, false
		}
		if cmpName(entDid, entName, did, query) != 0 {
			return miss, false
		}

		return DirEntry{
			Did:    entDid,
			Name:   string(entName),
			Mid:    mdir.Base + ent.Rid,
			Mdir:   mdir,
			Rid:    ent.Rid,
			Tag:    t.Tag,
			Weight: ent.Weight,
		}, true
	}

	return miss, false
}

// bucketWeight returns the id span of a bucket's tag set.
func bucketWeight(tags []rbyd.Entry) int {
	for _, ent := range tags {
		if ent.Weight > 0 {
			return ent.Weight
		}
	}

	return 1
}

// Dir enumerates a directory: it finds the empty-name start sentinel
// for did and advances rid by each entry's weight, rolling into the
// mtree's next mdir at the end of each one, until the directory id
// changes. The sentinel itself is not yielded.
//
// An unreadable mdir or a malformed entry mid-walk yields one final
// Corrupt DirEntry, so callers can tell a truncated listing from a
// complete one.
func (fs *FS) Dir(did uint32) iter.Seq[DirEntry] {
	return func(yield func(DirEntry) bool) {
		start, found := fs.NameLookup(did, "")
		if !found || start.Tag != format.TagBookmark {
			if start.Mdir.Corrupt {
				yield(DirEntry{Did: did, Mdir: start.Mdir, Rid: -1, Corrupt: true})
			}
			return
		}

		mdir := start.Mdir
		rid := start.Rid + start.Weight
		for {
			if rid >= mdir.Rbyd.Weight {
				next, ok := fs.Mid(mdir.Base + mdir.Rbyd.Weight)
				if !ok {
					return
				}
				if next.Corrupt {
					yield(DirEntry{Did: did, Mdir: next, Rid: -1, Corrupt: true})
					return
				}
				rid -= mdir.Rbyd.Weight
				mdir = next
			}

			ent, ok := mdir.Rbyd.LookupNext(rid, format.TagNull+1)
			if !ok {
				return
			}
			tags := mdir.Rbyd.RidTags(ent.Rid)

			var entry *DirEntry
			for _, t := range tags {
				if t.Tag.Classify() != format.ClassName {
					continue
				}
				entDid, entName, err := DecodeName(t.Data)
				if err != nil {
					yield(DirEntry{Did: did, Mdir: mdir, Rid: ent.Rid, Corrupt: true})
					return
				}
				if entDid != did {
					return
				}
				entry = &DirEntry{
					Did:    entDid,
					Name:   string(entName),
					Mid:    mdir.Base + ent.Rid,
					Mdir:   mdir,
					Rid:    ent.Rid,
					Tag:    t.Tag,
					Weight: ent.Weight,
				}
				break
			}
			if entry == nil {
				// a bucket past the sentinel with no name record
				yield(DirEntry{Did: did, Mdir: mdir, Rid: ent.Rid, Corrupt: true})
				return
			}
			if !yield(*entry) {
				return
			}
			rid = ent.Rid + 1
		}
	}
}
