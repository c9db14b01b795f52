package rbyd

import (
	"github.com/flashdbg/rbydkit/disk"
	"github.com/flashdbg/rbydkit/errs"
)

// FetchSet fetches every block of a redundant set independently and
// returns the winning copy, with the losers recorded in Redund.
//
// The winner is the readable copy with the greatest revision under
// sequence-wraparound comparison: (a.Rev - b.Rev) interpreted as a
// signed 32-bit value is positive exactly when a is newer, even across
// the 2^31 boundary where the numerically smaller revision wins. A
// revision tie goes to the larger trunk offset, the copy whose log
// carries the later compaction.
//
// If no copy is readable, the result is an unreadable Rbyd on the first
// block. The only error is an empty block set.
func FetchSet(d *disk.Disk, blocks []uint32, opts ...Option) (Rbyd, error) {
	if len(blocks) == 0 {
		return Rbyd{}, errs.ErrNoRedundantBlocks
	}

	winner := Rbyd{Block: blocks[0]}
	for _, block := range blocks {
		candidate := Fetch(d, block, opts...)
		if newer(&candidate, &winner) {
			winner = candidate
		}
	}

	for _, block := range blocks {
		if block != winner.Block {
			winner.Redund = append(winner.Redund, block)
		}
	}

	return winner, nil
}

// newer reports whether a supersedes b.
func newer(a, b *Rbyd) bool {
	switch {
	case !a.Readable():
		return false
	case !b.Readable():
		return true
	case a.Rev != b.Rev:
		return int32(a.Rev-b.Rev) > 0
	default:
		return a.Trunk > b.Trunk
	}
}
