package compress

// ZstdCodec handles .zst images in the Zstandard frame format.
//
// Two implementations back this type: a pure-Go one
// (klauspost/compress/zstd, the default) and a cgo one (valyala/gozstd)
// selected with the cgozstd build tag for very large images where the C
// decoder is measurably faster.
type ZstdCodec struct{}

var _ Codec = (*ZstdCodec)(nil)

// NewZstdCodec creates a new Zstandard codec.
func NewZstdCodec() ZstdCodec {
	return ZstdCodec{}
}
