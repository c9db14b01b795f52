package mtree_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/flashdbg/rbydkit/errs"
	"github.com/flashdbg/rbydkit/format"
	"github.com/flashdbg/rbydkit/internal/logbuild"
	"github.com/flashdbg/rbydkit/mtree"
)

func TestGStateFold(t *testing.T) {
	require := require.New(t)

	fs, err := mtree.Open(inlineImage(t))
	require.NoError(err)

	g := fs.GState()
	require.Equal([]format.Tag{format.TagGRMDelta}, g.Tags())

	// 0x01 from the mroot, 0x00 0x01 from the mdir, zero-padded xor
	require.Equal([]byte{0x01, 0x01}, g.States[format.TagGRMDelta])

	deltas := g.Deltas[format.TagGRMDelta]
	require.Len(deltas, 2)
	require.Equal(uint32(0), deltas[0].Block)
	require.Equal([]byte{0x01}, deltas[0].Data)
	require.Equal(uint32(2), deltas[1].Block)
	require.Equal([]byte{0x00, 0x01}, deltas[1].Data)
}

func TestGStateFoldAcrossMTree(t *testing.T) {
	require := require.New(t)

	fs, err := mtree.Open(treeImage(t))
	require.NoError(err)

	g := fs.GState()
	require.Equal([]byte{0x01, 0x01}, g.States[format.TagGRMDelta])
	require.Len(g.Deltas[format.TagGRMDelta], 2)
}

func TestGStateCancellation(t *testing.T) {
	require := require.New(t)

	// identical deltas cancel to zero, matching an applied-and-cleared
	// pending state
	mdir := mdirBlock(t, 1, []byte{0x05}, nameEntry{format.TagBookmark, 0, ""})
	mroot := mrootBlock(t, 1,
		logbuild.Entry{Tag: format.TagGRMDelta, Payload: []byte{0x05}},
		logbuild.Entry{Tag: format.TagMDir, Payload: mtree.AppendMPtr(nil, []uint32{2})},
	)
	d := testDisk(t, mroot, erased(), mdir)

	fs, err := mtree.Open(d)
	require.NoError(err)

	g := fs.GState()
	require.Equal([]byte{0x00}, g.States[format.TagGRMDelta])
	require.Len(g.Deltas[format.TagGRMDelta], 2)
}

func TestDecodeGRM(t *testing.T) {
	require := require.New(t)

	payload := mtree.AppendGRM(nil, mtree.GRM{Mids: []mtree.GRMEntry{
		{Mid: 3, Rid: 1},
		{Mid: 300, Rid: 0},
	}})

	grm, err := mtree.DecodeGRM(payload)
	require.NoError(err)
	require.Len(grm.Mids, 2)
	require.Equal(mtree.GRMEntry{Mid: 3, Rid: 1}, grm.Mids[0])
	require.Equal(mtree.GRMEntry{Mid: 300, Rid: 0}, grm.Mids[1])
}

func TestDecodeGRMPadding(t *testing.T) {
	require := require.New(t)

	// zero padding left by the fold is fine, nonzero tail is not
	payload := mtree.AppendGRM(nil, mtree.GRM{Mids: []mtree.GRMEntry{{Mid: 1, Rid: 2}}})
	padded := append(append([]byte(nil), payload...), 0x00, 0x00)

	grm, err := mtree.DecodeGRM(padded)
	require.NoError(err)
	require.Len(grm.Mids, 1)

	bad := append(append([]byte(nil), payload...), 0x01)
	_, err = mtree.DecodeGRM(bad)
	require.ErrorIs(err, errs.ErrInvalidPayload)
}

func TestDecodeGRMTruncated(t *testing.T) {
	require := require.New(t)

	_, err := mtree.DecodeGRM(nil)
	require.ErrorIs(err, errs.ErrInvalidPayload)

	// count promises more pairs than the payload holds
	_, err = mtree.DecodeGRM([]byte{0x02, 0x01, 0x01})
	require.ErrorIs(err, errs.ErrInvalidPayload)
}

func TestGStateCorruptMdir(t *testing.T) {
	require := require.New(t)

	fs, err := mtree.Open(truncatedTreeImage(t))
	require.NoError(err)

	// the erased mdir's deltas are missing from the fold, so the
	// result is marked partial
	g := fs.GState()
	require.True(g.Corrupt())
	require.Equal([]byte{0x01, 0x01}, g.States[format.TagGRMDelta])
}

func TestDecodeGRMHugeCount(t *testing.T) {
	require := require.New(t)

	// a count field claiming 2^32-1 pairs with no pair bytes behind it
	// must fail cleanly instead of sizing a giant allocation
	_, err := mtree.DecodeGRM([]byte{0xff, 0xff, 0xff, 0xff, 0x0f})
	require.ErrorIs(err, errs.ErrInvalidPayload)
}
