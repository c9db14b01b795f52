// Package logbuild writes well-formed rbyd logs for the test suites:
// revision headers, tag parity bits, alt chains, and committed
// checksums, byte-exact against the canonical format.
//
// This is fixture support, not a write path: nothing here balances
// trees, allocates blocks, or preserves previous commits' semantics.
// Tests describe entries and the builder lays out a valid (if naively
// shaped) search tree over them.
package logbuild

import (
	"github.com/flashdbg/rbydkit/encoding"
	"github.com/flashdbg/rbydkit/endian"
	"github.com/flashdbg/rbydkit/format"
)

// Log accumulates one block image.
type Log struct {
	engine endian.EndianEngine
	buf    []byte
	size   int
	crc    uint32
}

// New starts a block of the given size with the given revision counter.
// The checksum chain starts at offset 4, seeded 0.
func New(size int, rev uint32) *Log {
	l := &Log{
		engine: endian.GetLittleEndianEngine(),
		size:   size,
	}
	l.buf = l.engine.AppendUint32(l.buf, rev)

	return l
}

// Off returns the offset the next record will be written at.
func (l *Log) Off() uint32 {
	return uint32(len(l.buf))
}

func (l *Log) appendHeader(tag format.Tag, weight, size uint32) {
	if encoding.Parity(l.crc) != 0 {
		tag |= format.TagValid
	}
	start := len(l.buf)
	l.buf = encoding.AppendTag(l.engine, l.buf, tag, weight, size)
	l.crc = encoding.Crc32c(l.crc, l.buf[start:])
}

// Tag appends a non-alt record with the given payload and returns its
// offset.
func (l *Log) Tag(tag format.Tag, weight uint32, payload []byte) uint32 {
	off := l.Off()
	l.appendHeader(tag, weight, uint32(len(payload)))
	l.buf = append(l.buf, payload...)
	l.crc = encoding.Crc32c(l.crc, payload)

	return off
}

// Alt appends an alt record jumping back to target and returns its
// offset.
func (l *Log) Alt(gt, black bool, key format.Tag, weight uint32, target uint32) uint32 {
	tag := format.TagAlt | key&format.TagAltKeyMask
	if gt {
		tag |= format.TagGt
	}
	if black {
		tag |= format.TagB
	}

	off := l.Off()
	l.appendHeader(tag, weight, off-target)

	return off
}

// Commit appends a checksum record committing everything written so
// far, and returns its offset.
func (l *Log) Commit() uint32 {
	off := l.Off()
	l.appendHeader(format.TagCksum, 0, 4)
	// the stored value is the running checksum after this record's own
	// header; the payload itself stays outside the chain
	l.buf = l.engine.AppendUint32(l.buf, l.crc)

	return off
}

// CorruptCommit appends a checksum record whose stored value is wrong,
// for exercising the fail-closed replay.
func (l *Log) CorruptCommit() uint32 {
	off := l.Off()
	l.appendHeader(format.TagCksum, 0, 4)
	l.buf = l.engine.AppendUint32(l.buf, l.crc^0xdeadbeef)

	return off
}

// Bytes returns the block image padded with 0xff (erased flash) to the
// block size.
func (l *Log) Bytes() []byte {
	out := make([]byte, l.size)
	for i := range out {
		out[i] = 0xff
	}
	copy(out, l.buf)

	return out
}

// Entry describes one record of a bucket for the tree builders.
type Entry struct {
	Tag     format.Tag
	Payload []byte
}

// Bucket describes one logical id's records: the bucket weight and its
// tags in increasing order. The first tag carries the bucket weight on
// disk; the rest are weightless.
type Bucket struct {
	Weight  uint32
	Entries []Entry
}

// Tree writes a committed search tree over the given buckets, in
// increasing (id, tag) order, and returns the trunk offset. Tree does
// not commit; callers follow with Commit.
//
// The shape is a left spine: one less-or-equal alt per bucket keyed by
// the bucket's greatest tag, jumping to an intra-bucket chain that
// routes individual tags. Queries past a bucket's greatest tag fall
// through to the next bucket, which is what LookupNext's ordering
// contract requires.
func (l *Log) Tree(buckets []Bucket) uint32 {
	if len(buckets) == 0 {
		return 0
	}

	// jump targets are backward, so every record referenced from the
	// trunk run is written before it: full chains for the leading
	// buckets, bare leaves for the final bucket's intra-chain
	n := len(buckets)
	chains := make([]uint32, n-1)
	for i, bucket := range buckets[:n-1] {
		chains[i] = l.chain(bucket)
	}
	last := buckets[n-1]
	var lastLeaves []uint32
	if len(last.Entries) > 1 {
		lastLeaves = l.leaves(last)
	}

	trunk := l.Off()
	for i, bucket := range buckets[:n-1] {
		maxTag := bucket.Entries[len(bucket.Entries)-1].Tag
		l.Alt(false, true, maxTag, bucket.Weight, chains[i])
	}
	if len(last.Entries) == 1 {
		l.Tag(last.Entries[0].Tag, last.Weight, last.Entries[0].Payload)
	} else {
		for i, ent := range last.Entries[:len(last.Entries)-1] {
			l.Alt(false, true, ent.Tag, bucketWeight(last, i), lastLeaves[i])
		}
		tail := last.Entries[len(last.Entries)-1]
		l.Tag(tail.Tag, 0, tail.Payload)
	}

	return trunk
}

// bucketWeight returns the on-disk weight of a bucket's i-th record:
// the first record carries the bucket weight, the rest are weightless.
func bucketWeight(bucket Bucket, i int) uint32 {
	if i == 0 {
		return bucket.Weight
	}
	return 0
}

// leaves writes a multi-entry bucket's jump-target records (all but the
// last entry) and returns their offsets.
func (l *Log) leaves(bucket Bucket) []uint32 {
	offs := make([]uint32, len(bucket.Entries)-1)
	for i, ent := range bucket.Entries[:len(bucket.Entries)-1] {
		offs[i] = l.Tag(ent.Tag, bucketWeight(bucket, i), ent.Payload)
	}

	return offs
}

// chain writes a bucket's leaves and intra-bucket alt chain, returning
// the chain's start offset. Single-entry buckets are just their leaf.
func (l *Log) chain(bucket Bucket) uint32 {
	if len(bucket.Entries) == 1 {
		return l.Tag(bucket.Entries[0].Tag, bucket.Weight, bucket.Entries[0].Payload)
	}

	offs := l.leaves(bucket)
	start := l.Off()
	for i, ent := range bucket.Entries[:len(bucket.Entries)-1] {
		l.Alt(false, true, ent.Tag, bucketWeight(bucket, i), offs[i])
	}
	last := bucket.Entries[len(bucket.Entries)-1]
	l.Tag(last.Tag, 0, last.Payload)

	return start
}
