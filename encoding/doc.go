// Package encoding implements the primitive codecs of the rbyd on-disk
// format: LEB128 varints, the tagged record header, and the CRC32C
// parity chain that protects every block's log.
//
// Everything here operates on raw byte slices with explicit offsets and
// consumed-byte counts; no I/O, no allocation beyond returned values.
// Higher layers (rbyd, btree, mtree) compose these codecs into log
// replay and tree traversal.
package encoding
