// Package format defines the canonical on-disk bit layout decoded by this
// module: the 16-bit tag word, its record classes, and the payload shapes
// of the pointer-carrying struct records.
//
// # Block layout
//
// A block is a fixed-size append-only log:
//
//	offset 0   uint32 little-endian revision counter
//	offset 4-  a sequence of tagged records, each a 16-bit little-endian
//	           tag word followed by a LEB128 weight and a LEB128 size
//
// Alt records carry no payload; their size field is a backward jump,
// in bytes, from the record's own offset. All other records are followed
// by size payload bytes.
//
// A CRC32C (reflected polynomial 0x82F63B78, seed 0) runs from offset 4
// over every record header and over the payload of every non-alt,
// non-checksum record. Every tag word's top bit must equal the popcount
// parity of the running checksum at the point the word is read. A cksum
// record whose 4-byte little-endian payload matches the running checksum
// commits the log up to and including itself.
//
// # Pointer payloads
//
// Branch and btree records encode a child rbyd as, in order: LEB128
// weight, LEB128 trunk offset, LEB128 block number, then the child
// commit's checksum as 4 little-endian bytes. Mroot and mdir records
// encode a redundant block set as a plain sequence of LEB128 block
// numbers, one per copy. Data block records encode, in order: LEB128
// size, LEB128 block number, LEB128 byte offset within the block.
//
// Name records encode a LEB128 directory id followed by the raw name
// bytes. Gstate deltas are opaque here; their XOR-folded meaning is
// defined by the consumer (see the mtree package).
//
// # Compatibility
//
// Earlier format generations differ in two ways this package does not
// attempt to paper over: branch payloads stored the block number before
// the trunk offset, and the alt color bit lived on the record following
// the alt rather than on the alt itself. Images written by those
// generations decode as unreadable here and need the generation's own
// tooling.
package format

// Magic is the filesystem identification string carried by TagMagic
// in the anchor mroot.
const Magic = "rbydfs"
