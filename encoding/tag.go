package encoding

import (
	"github.com/flashdbg/rbydkit/endian"
	"github.com/flashdbg/rbydkit/format"
)

// TagHeader is one decoded record header: the stored tag word (valid bit
// included), its LEB128 weight and size fields, and the total header
// length in bytes.
//
// For alt records the size field is a backward jump and no payload
// follows; for all other records size counts the payload bytes after
// the header.
type TagHeader struct {
	Tag    format.Tag
	Weight uint32
	Size   uint32
	Len    int
}

// DecodeTag decodes one record header from the front of buf.
//
// Returns the header and true, or a zero header and false when buf is
// too short or a varint is malformed. DecodeTag performs no parity or
// class validation; the log replay in the rbyd package owns those
// checks because they depend on the running checksum.
func DecodeTag(engine endian.EndianEngine, buf []byte) (TagHeader, bool) {
	if len(buf) < 2 {
		return TagHeader{}, false
	}

	h := TagHeader{Tag: format.Tag(engine.Uint16(buf[0:2]))}
	n := 2

	weight, wn := Leb128(buf[n:])
	if wn == 0 {
		return TagHeader{}, false
	}
	h.Weight = weight
	n += wn

	size, sn := Leb128(buf[n:])
	if sn == 0 {
		return TagHeader{}, false
	}
	h.Size = size
	h.Len = n + sn

	return h, true
}

// IsAlt reports whether the header is a red-black search branch record.
func (h TagHeader) IsAlt() bool {
	return h.Tag.IsAlt()
}

// Valid returns the stored valid bit as 0 or 1.
func (h TagHeader) Valid() uint16 {
	return uint16(h.Tag&format.TagValid) >> 15
}

// AppendTag appends a record header to buf: the tag word as stored
// (caller sets the valid bit), then LEB128 weight and size.
//
// Decode-only consumers never call this; it backs the fixture builders
// that write well-formed logs for tests.
func AppendTag(engine endian.EndianEngine, buf []byte, tag format.Tag, weight, size uint32) []byte {
	buf = engine.AppendUint16(buf, uint16(tag))
	buf = AppendLeb128(buf, weight)

	return AppendLeb128(buf, size)
}
