package compress

// NoOpCodec passes image bytes through untouched. It backs raw,
// uncompressed images so the disk layer has a single code path.
type NoOpCodec struct{}

var _ Codec = (*NoOpCodec)(nil)

// NewNoOpCodec creates a new pass-through codec.
func NewNoOpCodec() NoOpCodec {
	return NoOpCodec{}
}

// Compress returns the input slice as-is, without copying.
func (c NoOpCodec) Compress(data []byte) ([]byte, error) {
	return data, nil
}

// Decompress returns the input slice as-is, without copying.
//
// The returned slice shares memory with the input; the disk layer treats
// image bytes as immutable so this is safe.
func (c NoOpCodec) Decompress(data []byte) ([]byte, error) {
	return data, nil
}
