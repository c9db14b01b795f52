package mtree_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/flashdbg/rbydkit/btree"
	"github.com/flashdbg/rbydkit/disk"
	"github.com/flashdbg/rbydkit/format"
	"github.com/flashdbg/rbydkit/internal/logbuild"
	"github.com/flashdbg/rbydkit/mtree"
	"github.com/flashdbg/rbydkit/rbyd"
)

const testBlockSize = 512

func testDisk(t *testing.T, blocks ...[]byte) *disk.Disk {
	t.Helper()

	image := make([]byte, 0, len(blocks)*testBlockSize)
	for _, b := range blocks {
		require.Len(t, b, testBlockSize)
		image = append(image, b...)
	}

	d, err := disk.New(image, disk.WithBlockSize(testBlockSize))
	require.NoError(t, err)

	return d
}

func erased() []byte {
	b := make([]byte, testBlockSize)
	for i := range b {
		b[i] = 0xff
	}

	return b
}

// nameEntry describes one directory entry for the mdir builders.
type nameEntry struct {
	tag  format.Tag
	did  uint32
	name string
}

// mdirBlock commits an mdir: an optional weightless gstate delta, then
// one weight-1 bucket per entry in (did, name) order.
func mdirBlock(t *testing.T, rev uint32, gdelta []byte, entries ...nameEntry) []byte {
	t.Helper()

	var buckets []logbuild.Bucket
	if gdelta != nil {
		buckets = append(buckets, logbuild.Bucket{Weight: 0, Entries: []logbuild.Entry{
			{Tag: format.TagGRMDelta, Payload: gdelta},
		}})
	}
	for _, e := range entries {
		buckets = append(buckets, logbuild.Bucket{Weight: 1, Entries: []logbuild.Entry{
			{Tag: e.tag, Payload: mtree.AppendName(nil, e.did, []byte(e.name))},
		}})
	}

	l := logbuild.New(testBlockSize, rev)
	l.Tree(buckets)
	l.Commit()

	return l.Bytes()
}

// probeBranch learns a built block's committed identity for branch
// payloads.
func probeBranch(t *testing.T, blockBytes []byte, block uint32) btree.Branch {
	t.Helper()

	d, err := disk.New(blockBytes, disk.WithBlockSize(testBlockSize))
	require.NoError(t, err)
	r := rbyd.Fetch(d, 0)
	require.True(t, r.Readable())

	return btree.Branch{Weight: r.Weight, Trunk: r.Trunk, Block: block, Cksum: r.Cksum}
}

// mrootBlock commits an mroot whose weightless bucket carries the given
// records in increasing tag order.
func mrootBlock(t *testing.T, rev uint32, entries ...logbuild.Entry) []byte {
	t.Helper()

	l := logbuild.New(testBlockSize, rev)
	l.Tree([]logbuild.Bucket{{Weight: 0, Entries: entries}})
	l.Commit()

	return l.Bytes()
}

// inlineImage is a filesystem whose final mroot carries an inline mdir:
//
//	blocks 0,1: mroot pair (revs 2, 1), gstate delta 0x01
//	blocks 2,3: mdir pair, gstate delta 0x00 0x01, entries "", a, b, c
func inlineImage(t *testing.T) *disk.Disk {
	t.Helper()

	mdir := func(rev uint32) []byte {
		return mdirBlock(t, rev, []byte{0x00, 0x01},
			nameEntry{format.TagBookmark, 0, ""},
			nameEntry{format.TagReg, 0, "a"},
			nameEntry{format.TagReg, 0, "b"},
			nameEntry{format.TagReg, 0, "c"},
		)
	}
	mroot := func(rev uint32) []byte {
		return mrootBlock(t, rev,
			logbuild.Entry{Tag: format.TagGRMDelta, Payload: []byte{0x01}},
			logbuild.Entry{Tag: format.TagMDir, Payload: mtree.AppendMPtr(nil, []uint32{2, 3})},
		)
	}

	return testDisk(t, mroot(2), mroot(1), mdir(2), mdir(1))
}

// treeImage is a filesystem whose mroot carries an mtree over two
// mdirs:
//
//	block 0: mroot (block 1 is an erased loser)
//	blocks 2,3: mdir pair "", a, b   (mids 0-2)
//	block 4: mdir c, dir-1 ""        (mids 3-4)
//	block 5: mtree inner node
func treeImage(t *testing.T) *disk.Disk {
	return buildTreeImage(t, false)
}

// truncatedTreeImage is treeImage with the second mdir's block erased,
// so the mtree points at an unreadable mdir.
func truncatedTreeImage(t *testing.T) *disk.Disk {
	return buildTreeImage(t, true)
}

func buildTreeImage(t *testing.T, eraseB bool) *disk.Disk {
	t.Helper()

	mdirA := func(rev uint32) []byte {
		return mdirBlock(t, rev, []byte{0x00, 0x01},
			nameEntry{format.TagBookmark, 0, ""},
			nameEntry{format.TagReg, 0, "a"},
			nameEntry{format.TagReg, 0, "b"},
		)
	}
	a1 := mdirA(2)
	mdirB := mdirBlock(t, 1, nil,
		nameEntry{format.TagReg, 0, "c"},
		nameEntry{format.TagBookmark, 1, ""},
	)

	brA := probeBranch(t, a1, 2)
	brB := probeBranch(t, mdirB, 4)

	// mtree leaf buckets carry the subtree's smallest name as the
	// search key next to the mdir pointer
	node := logbuild.New(testBlockSize, 1)
	node.Tree([]logbuild.Bucket{
		{Weight: uint32(brA.Weight), Entries: []logbuild.Entry{
			{Tag: format.TagBookmark, Payload: mtree.AppendName(nil, 0, nil)},
			{Tag: format.TagMDir, Payload: mtree.AppendMPtr(nil, []uint32{2, 3})},
		}},
		{Weight: uint32(brB.Weight), Entries: []logbuild.Entry{
			{Tag: format.TagReg, Payload: mtree.AppendName(nil, 0, []byte("c"))},
			{Tag: format.TagMDir, Payload: mtree.AppendMPtr(nil, []uint32{4})},
		}},
	})
	node.Commit()

	root := probeBranch(t, node.Bytes(), 5)
	mroot := mrootBlock(t, 1,
		logbuild.Entry{Tag: format.TagGRMDelta, Payload: []byte{0x01}},
		logbuild.Entry{Tag: format.TagMTree, Payload: btree.AppendBranch(nil, root)},
	)

	b := mdirB
	if eraseB {
		b = erased()
	}

	return testDisk(t, mroot, erased(), a1, mdirA(1), b, node.Bytes())
}
