package format

import "fmt"

// Tag is the 16-bit type field at the start of every rbyd log record.
//
// Bit layout (canonical, format revision 1):
//
//	bit 15     valid/parity bit, must match the popcount parity of the
//	           running CRC32C at the point the tag is decoded
//	bit 14     alt bit, selects a red-black search branch record
//
// For alt tags (bit 14 set):
//
//	bit 13     direction: greater-than if set, less-or-equal otherwise
//	bit 12     color: black if set, red otherwise
//	bits 0-11  tag key threshold compared against the query tag
//
// For non-alt tags, the remaining 15 bits select a record type grouped
// into classes by their upper bits:
//
//	0x0000-0x00ff  config records (magic, geometry)
//	0x0100-0x01ff  gstate deltas (XOR-folded global state)
//	0x0200-0x02ff  name records (did + utf8 name payload)
//	0x0300-0x03ff  struct records (inline data, block/btree/mdir pointers)
//	0x3000-0x3fff  checksum records (commit boundaries)
//
// Earlier format generations stored the branch payload fields in a
// different order and derived the alt color from the following tag; those
// layouts are not decoded by this package. See the package documentation
// for the compatibility notes.
type Tag uint16

const (
	// TagValid is the parity bit of the on-disk tag word.
	TagValid Tag = 0x8000

	// TagAlt marks a red-black search branch record.
	TagAlt Tag = 0x4000
	// TagGt selects the greater-than direction of an alt record.
	TagGt Tag = 0x2000
	// TagB marks a black alt record; red when clear.
	TagB Tag = 0x1000
	// TagAltKeyMask extracts the tag key threshold of an alt record.
	TagAltKeyMask Tag = 0x0fff

	TagNull  Tag = 0x0000 // TagNull is the absent tag, never stored.
	TagMagic Tag = 0x0003 // TagMagic carries the filesystem magic string.

	TagGRMDelta Tag = 0x0100 // TagGRMDelta is the pending-removal gstate delta.

	TagBookmark Tag = 0x0200 // TagBookmark is the empty-name directory-start sentinel.
	TagReg      Tag = 0x0201 // TagReg names a regular file entry.
	TagDir      Tag = 0x0202 // TagDir names a directory entry.

	TagData   Tag = 0x0300 // TagData carries inline file data.
	TagBlock  Tag = 0x0304 // TagBlock points at a raw data block.
	TagBranch Tag = 0x0308 // TagBranch points at a child rbyd of a btree.
	TagBTree  Tag = 0x030c // TagBTree points at the root rbyd of a btree.
	TagMRoot  Tag = 0x0310 // TagMRoot points at the successor mroot pair.
	TagMDir   Tag = 0x0314 // TagMDir points at a redundant mdir block set.
	TagMTree  Tag = 0x0318 // TagMTree points at the root of the mtree.
	TagDid    Tag = 0x031c // TagDid carries the directory id opened by a TagDir.

	TagCksum  Tag = 0x3000 // TagCksum commits the log up to its own offset.
	TagECksum Tag = 0x3100 // TagECksum pre-checksums the next erased region.
)

// Class partitions the tag space into the closed set of record kinds the
// decoder dispatches on. Unknown bit patterns are a decoder/format
// mismatch, not disk corruption, and classification fails loud on them.
type Class uint8

const (
	ClassAlt Class = iota + 1
	ClassConfig
	ClassGState
	ClassName
	ClassStruct
	ClassCksum
)

// Key returns the tag with the valid bit stripped.
func (t Tag) Key() Tag {
	return t &^ TagValid
}

// IsAlt reports whether the tag is a red-black search branch record.
func (t Tag) IsAlt() bool {
	return t&TagAlt != 0
}

// IsGt reports the direction of an alt record.
func (t Tag) IsGt() bool {
	return t&TagGt != 0
}

// IsBlack reports the color of an alt record.
func (t Tag) IsBlack() bool {
	return t&TagB != 0
}

// AltKey returns the tag key threshold encoded in an alt record.
func (t Tag) AltKey() Tag {
	return t & TagAltKeyMask
}

// Classify maps the tag onto the closed set of record classes.
//
// Classify panics on bit patterns outside the documented layout: a tag
// that decoded with valid parity but has no class means this decoder does
// not understand the image's format generation, which is a programmer
// error rather than disk corruption.
func (t Tag) Classify() Class {
	k := t.Key()
	switch {
	case k&TagAlt != 0:
		return ClassAlt
	case k >= 0x3000 && k <= 0x3fff:
		return ClassCksum
	case k <= 0x00ff:
		return ClassConfig
	case k >= 0x0100 && k <= 0x01ff:
		return ClassGState
	case k >= 0x0200 && k <= 0x02ff:
		return ClassName
	case k >= 0x0300 && k <= 0x03ff:
		return ClassStruct
	default:
		panic(fmt.Sprintf("format: unclassifiable tag 0x%04x", uint16(t)))
	}
}

func (c Class) String() string {
	switch c {
	case ClassAlt:
		return "alt"
	case ClassConfig:
		return "config"
	case ClassGState:
		return "gstate"
	case ClassName:
		return "name"
	case ClassStruct:
		return "struct"
	case ClassCksum:
		return "cksum"
	default:
		return "unknown"
	}
}

func (t Tag) String() string {
	k := t.Key()
	if k.IsAlt() {
		dir := "le"
		if k.IsGt() {
			dir = "gt"
		}
		color := "r"
		if k.IsBlack() {
			color = "b"
		}
		return fmt.Sprintf("alt%s%s 0x%03x", dir, color, uint16(k.AltKey()))
	}

	switch k {
	case TagNull:
		return "null"
	case TagMagic:
		return "magic"
	case TagGRMDelta:
		return "grmdelta"
	case TagBookmark:
		return "bookmark"
	case TagReg:
		return "reg"
	case TagDir:
		return "dir"
	case TagData:
		return "data"
	case TagBlock:
		return "block"
	case TagBranch:
		return "branch"
	case TagBTree:
		return "btree"
	case TagMRoot:
		return "mroot"
	case TagMDir:
		return "mdir"
	case TagMTree:
		return "mtree"
	case TagDid:
		return "did"
	case TagCksum:
		return "cksum"
	case TagECksum:
		return "ecksum"
	default:
		return fmt.Sprintf("tag 0x%04x", uint16(k))
	}
}
