package rbyd

import (
	"iter"

	"github.com/flashdbg/rbydkit/encoding"
	"github.com/flashdbg/rbydkit/endian"
	"github.com/flashdbg/rbydkit/format"
)

// Entry is one found record: its resolved id, tag, the weight of the id
// bucket it spans, and its payload.
//
// Weightless records (gstate deltas, block-level config) resolve to
// Rid -1; a Weight greater than 1 marks a bucket of ids sharing the
// record.
type Entry struct {
	Rid    int
	Tag    format.Tag
	Weight int
	Data   []byte
}

// PathStep records one traversed alt during a lookup: which record was
// visited, where control went next, whether the branch was taken, and
// the alt's color. The path is diagnostic only; the tree renderers
// consume it.
type PathStep struct {
	From  uint32
	To    uint32
	Taken bool
	Black bool
}

// LookupNext searches the committed tree for the smallest entry at or
// after (rid, tag) in (id, tag) order.
//
// The descent starts at the trunk and follows alt records: each alt
// compares the query against a (weight threshold, tag key) pivot in its
// direction and either jumps backward into a subtree or falls through,
// narrowing the id window either way. The first non-alt record is the
// result.
//
// The boolean result is false when no entry at or after the query
// exists, or when the block is unreadable or its tree malformed.
func (r *Rbyd) LookupNext(rid int, tag format.Tag) (Entry, bool) {
	ent, ok, _ := r.lookupNext(rid, tag, false)

	return ent, ok
}

// LookupNextPath is LookupNext plus the traversed search path.
func (r *Rbyd) LookupNextPath(rid int, tag format.Tag) (Entry, bool, []PathStep) {
	return r.lookupNext(rid, tag, true)
}

func (r *Rbyd) lookupNext(rid int, tag format.Tag, wantPath bool) (Entry, bool, []PathStep) {
	if !r.Readable() {
		return Entry{}, false, nil
	}

	engine := endian.GetLittleEndianEngine()
	lower, upper := 0, r.Weight
	off := r.Trunk

	var path []PathStep

	// a well-formed tree never visits more records than fit in the block
	for steps := 0; steps <= len(r.Data); steps++ {
		if off < 4 || off >= uint32(len(r.Data)) {
			return Entry{}, false, path
		}
		hdr, ok := encoding.DecodeTag(engine, r.Data[off:])
		if !ok {
			return Entry{}, false, path
		}
		t := hdr.Tag.Key()

		if !t.IsAlt() {
			end := off + uint32(hdr.Len) + hdr.Size
			if end > uint32(len(r.Data)) {
				return Entry{}, false, path
			}
			ent := Entry{
				Rid:    upper - 1,
				Tag:    t,
				Weight: upper - lower,
				Data:   r.Data[off+uint32(hdr.Len) : end],
			}
			done := t == format.TagNull ||
				t.Classify() == format.ClassCksum ||
				cmpIDTag(ent.Rid, ent.Tag, rid, tag) < 0

			return ent, !done, path
		}

		// an alt splits the window at a (weight threshold, tag key)
		// pivot; following and falling through shrink the window from
		// opposite ends
		w := int(hdr.Weight)
		var follow bool
		if t.IsGt() {
			follow = cmpIDTag(rid, tag, upper-w-1, t.AltKey()) > 0
		} else {
			follow = cmpIDTag(rid, tag, lower+w-1, t.AltKey()) <= 0
		}

		if follow {
			jump := hdr.Size
			if jump == 0 || jump > off {
				return Entry{}, false, path
			}
			if t.IsGt() {
				lower = upper - w
			} else {
				upper = lower + w
			}
			if wantPath {
				path = append(path, PathStep{From: off, To: off - jump, Taken: true, Black: t.IsBlack()})
			}
			off -= jump
		} else {
			if t.IsGt() {
				upper -= w
			} else {
				lower += w
			}
			if wantPath {
				path = append(path, PathStep{From: off, To: off + uint32(hdr.Len), Taken: false, Black: t.IsBlack()})
			}
			off += uint32(hdr.Len)
		}
	}

	// descent looped, which a committed tree cannot do
	return Entry{}, false, path
}

// cmpIDTag orders (id, tag) pairs lexicographically.
func cmpIDTag(aRid int, aTag format.Tag, bRid int, bTag format.Tag) int {
	switch {
	case aRid != bRid:
		if aRid < bRid {
			return -1
		}
		return 1
	case aTag != bTag:
		if aTag < bTag {
			return -1
		}
		return 1
	default:
		return 0
	}
}

// All iterates every committed entry in increasing (id, tag) order by
// repeatedly querying one past the previous result.
func (r *Rbyd) All() iter.Seq[Entry] {
	return func(yield func(Entry) bool) {
		rid, tag := -1, format.TagNull
		for {
			ent, ok := r.LookupNext(rid, tag+1)
			if !ok {
				return
			}
			if !yield(ent) {
				return
			}
			rid, tag = ent.Rid, ent.Tag
		}
	}
}

// RidTags collects every entry sharing the id bucket that rid resolves
// to. The btree walker uses this to gather a leaf's full tag set.
func (r *Rbyd) RidTags(rid int) []Entry {
	ent, ok := r.LookupNext(rid, format.TagNull+1)
	if !ok {
		return nil
	}

	resolved := ent.Rid
	entries := []Entry{ent}
	for {
		next, ok := r.LookupNext(resolved, ent.Tag+1)
		if !ok || next.Rid != resolved {
			return entries
		}
		entries = append(entries, next)
		ent = next
	}
}
