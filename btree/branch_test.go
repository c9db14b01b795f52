package btree_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/flashdbg/rbydkit/btree"
	"github.com/flashdbg/rbydkit/errs"
)

func TestBranchRoundTrip(t *testing.T) {
	require := require.New(t)

	want := btree.Branch{Weight: 300, Trunk: 0x1234, Block: 7, Cksum: 0xcafebabe}
	buf := btree.AppendBranch(nil, want)

	got, err := btree.DecodeBranch(buf)
	require.NoError(err)
	require.Equal(want, got)
}

func TestBranchTruncated(t *testing.T) {
	require := require.New(t)

	buf := btree.AppendBranch(nil, btree.Branch{Weight: 300, Trunk: 0x1234, Block: 7, Cksum: 1})
	for i := 0; i < len(buf); i++ {
		_, err := btree.DecodeBranch(buf[:i])
		require.ErrorIs(err, errs.ErrInvalidPayload, "prefix %d", i)
	}
}

func TestBptrRoundTrip(t *testing.T) {
	require := require.New(t)

	want := btree.Bptr{Size: 4096, Block: 12, Off: 128}
	buf := btree.AppendBptr(nil, want)

	got, err := btree.DecodeBptr(buf)
	require.NoError(err)
	require.Equal(want, got)
}

func TestBptrTruncated(t *testing.T) {
	require := require.New(t)

	buf := btree.AppendBptr(nil, btree.Bptr{Size: 4096, Block: 12, Off: 128})
	for i := 0; i < len(buf); i++ {
		_, err := btree.DecodeBptr(buf[:i])
		require.ErrorIs(err, errs.ErrInvalidPayload, "prefix %d", i)
	}
}

func TestFetchBranchVerifies(t *testing.T) {
	require := require.New(t)

	leaf := leafBlock(t, 1, "a")
	good := probe(t, leaf, 1)
	d := testDisk(t, leafBlock(t, 1, "pad"), leaf)

	child, ok := btree.FetchBranch(d, good)
	require.True(ok)
	require.Equal(good.Cksum, child.Cksum)

	bad := good
	bad.Cksum ^= 1
	_, ok = btree.FetchBranch(d, bad)
	require.False(ok)

	bad = good
	bad.Weight++
	_, ok = btree.FetchBranch(d, bad)
	require.False(ok)

	_, ok = btree.FetchBranch(d, btree.Branch{Weight: 1, Trunk: 8, Block: 99})
	require.False(ok)
}
