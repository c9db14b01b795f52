package mtree_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/flashdbg/rbydkit/disk"
	"github.com/flashdbg/rbydkit/errs"
	"github.com/flashdbg/rbydkit/format"
	"github.com/flashdbg/rbydkit/internal/logbuild"
	"github.com/flashdbg/rbydkit/mtree"
)

func TestOpenInline(t *testing.T) {
	require := require.New(t)
	d := inlineImage(t)

	fs, err := mtree.Open(d)
	require.NoError(err)
	require.False(fs.Corrupt())

	require.Len(fs.MRoots(), 1)
	require.Equal(uint32(0), fs.MRoot().Block)
	require.Equal(uint32(2), fs.MRoot().Rev)
	require.Nil(fs.MTree())

	var mdirs []mtree.Mdir
	for mdir := range fs.Mdirs() {
		mdirs = append(mdirs, mdir)
	}
	require.Len(mdirs, 1)
	require.Equal(uint32(2), mdirs[0].Rbyd.Block)
	require.Equal(4, mdirs[0].Weight())
}

func TestOpenTree(t *testing.T) {
	require := require.New(t)
	d := treeImage(t)

	fs, err := mtree.Open(d)
	require.NoError(err)
	require.False(fs.Corrupt())
	require.NotNil(fs.MTree())

	var mdirs []mtree.Mdir
	for mdir := range fs.Mdirs() {
		require.False(mdir.Corrupt)
		mdirs = append(mdirs, mdir)
	}
	require.Len(mdirs, 2)
	require.Equal(uint32(2), mdirs[0].Rbyd.Block)
	require.Equal(0, mdirs[0].Base)
	require.Equal([]uint32{3}, mdirs[0].Rbyd.Redund)
	require.Equal(uint32(4), mdirs[1].Rbyd.Block)
	require.Equal(3, mdirs[1].Base)
}

func TestMid(t *testing.T) {
	require := require.New(t)
	d := treeImage(t)

	fs, err := mtree.Open(d)
	require.NoError(err)

	cases := []struct {
		mid   int
		block uint32
		rid   int
		base  int
	}{
		{0, 2, 0, 0},
		{2, 2, 2, 0},
		{3, 4, 0, 3},
		{4, 4, 1, 3},
	}
	for _, tc := range cases {
		mdir, ok := fs.Mid(tc.mid)
		require.True(ok, "mid %d", tc.mid)
		require.False(mdir.Corrupt)
		require.Equal(tc.block, mdir.Rbyd.Block, "mid %d", tc.mid)
		require.Equal(tc.rid, mdir.Rid, "mid %d", tc.mid)
		require.Equal(tc.base, mdir.Base, "mid %d", tc.mid)
	}

	_, ok := fs.Mid(5)
	require.False(ok)
}

func TestMidInline(t *testing.T) {
	require := require.New(t)
	d := inlineImage(t)

	fs, err := mtree.Open(d)
	require.NoError(err)

	mdir, ok := fs.Mid(3)
	require.True(ok)
	require.Equal(3, mdir.Rid)

	_, ok = fs.Mid(4)
	require.False(ok)
}

func TestOpenMRootChain(t *testing.T) {
	require := require.New(t)

	// mroot 0,1 points at mroot 2,3 which carries the inline mdir
	mdir := mdirBlock(t, 1, nil, nameEntry{format.TagBookmark, 0, ""})
	head := mrootBlock(t, 1,
		logbuild.Entry{Tag: format.TagMRoot, Payload: mtree.AppendMPtr(nil, []uint32{2, 3})},
	)
	next := mrootBlock(t, 1,
		logbuild.Entry{Tag: format.TagMDir, Payload: mtree.AppendMPtr(nil, []uint32{4})},
	)
	d := testDisk(t, head, erased(), next, erased(), mdir)

	fs, err := mtree.Open(d)
	require.NoError(err)
	require.False(fs.Corrupt())
	require.Len(fs.MRoots(), 2)
	require.Equal(uint32(0), fs.MRoots()[0].Block)
	require.Equal(uint32(2), fs.MRoots()[1].Block)
	require.Equal(uint32(2), fs.MRoot().Block)

	got, ok := fs.Mid(0)
	require.True(ok)
	require.Equal(uint32(4), got.Rbyd.Block)
}

func TestOpenChainLimit(t *testing.T) {
	require := require.New(t)

	// each chain mroot carries both a successor and an inline mdir, so
	// cutting the chain early still resolves but flags corruption
	mdir := mdirBlock(t, 1, nil, nameEntry{format.TagBookmark, 0, ""})
	head := mrootBlock(t, 1,
		logbuild.Entry{Tag: format.TagMRoot, Payload: mtree.AppendMPtr(nil, []uint32{2})},
		logbuild.Entry{Tag: format.TagMDir, Payload: mtree.AppendMPtr(nil, []uint32{4})},
	)
	next := mrootBlock(t, 1,
		logbuild.Entry{Tag: format.TagMRoot, Payload: mtree.AppendMPtr(nil, []uint32{3})},
		logbuild.Entry{Tag: format.TagMDir, Payload: mtree.AppendMPtr(nil, []uint32{4})},
	)
	last := mrootBlock(t, 1,
		logbuild.Entry{Tag: format.TagMDir, Payload: mtree.AppendMPtr(nil, []uint32{4})},
	)
	d := testDisk(t, head, erased(), next, last, mdir)

	full, err := mtree.Open(d, mtree.WithAnchor(disk.Addr{Blocks: []uint32{0}}))
	require.NoError(err)
	require.False(full.Corrupt())
	require.Len(full.MRoots(), 3)

	cut, err := mtree.Open(d,
		mtree.WithAnchor(disk.Addr{Blocks: []uint32{0}}),
		mtree.WithMRootChainLimit(1))
	require.NoError(err)
	require.True(cut.Corrupt())
	require.Len(cut.MRoots(), 2)
}

func TestOpenNoMRoot(t *testing.T) {
	require := require.New(t)

	d := testDisk(t, erased(), erased())
	_, err := mtree.Open(d)
	require.ErrorIs(err, errs.ErrNoMRoot)
}

func TestOpenNoMTree(t *testing.T) {
	require := require.New(t)

	// a valid rbyd that is not an mroot
	plain := mdirBlock(t, 1, nil, nameEntry{format.TagReg, 0, "x"})
	d := testDisk(t, plain, erased())

	_, err := mtree.Open(d)
	require.ErrorIs(err, errs.ErrNoMTree)
}

func TestMPtrRoundTrip(t *testing.T) {
	require := require.New(t)

	blocks := []uint32{2, 3, 300}
	got, err := mtree.DecodeMPtr(mtree.AppendMPtr(nil, blocks))
	require.NoError(err)
	require.Equal(blocks, got)

	_, err = mtree.DecodeMPtr(nil)
	require.ErrorIs(err, errs.ErrInvalidPayload)

	_, err = mtree.DecodeMPtr([]byte{0x80})
	require.ErrorIs(err, errs.ErrInvalidPayload)
}
