// Package errs defines the sentinel errors shared across the rbydkit
// packages. Disk corruption is deliberately not represented here:
// corrupt structures decode to explicit unreadable/corrupted markers and
// traversal continues, so only I/O and configuration failures surface as
// errors.
package errs

import "errors"

var (
	// ErrInvalidBlockSize indicates a zero or non-positive block size.
	ErrInvalidBlockSize = errors.New("invalid block size")

	// ErrInvalidBlockCount indicates a block count that does not cover the image.
	ErrInvalidBlockCount = errors.New("invalid block count")

	// ErrBlockOutOfRange indicates a block index past the end of the image.
	ErrBlockOutOfRange = errors.New("block index out of range")

	// ErrTruncatedImage indicates an image shorter than one block.
	ErrTruncatedImage = errors.New("truncated image")

	// ErrNoRedundantBlocks indicates an empty redundant block set.
	ErrNoRedundantBlocks = errors.New("no redundant blocks given")

	// ErrNoMRoot indicates that no readable mroot was found at the anchor.
	ErrNoMRoot = errors.New("no readable mroot")

	// ErrNoMTree indicates an mroot carrying neither an inline mdir nor an mtree.
	ErrNoMTree = errors.New("mroot has no mdir or mtree")

	// ErrInvalidAddr indicates an unparsable block address argument.
	ErrInvalidAddr = errors.New("invalid block address")

	// ErrInvalidPayload indicates a pointer payload too short or malformed
	// for its record type.
	ErrInvalidPayload = errors.New("invalid record payload")

	// ErrInvalidCompression indicates an unsupported image compression.
	ErrInvalidCompression = errors.New("invalid or unsupported image compression")
)
