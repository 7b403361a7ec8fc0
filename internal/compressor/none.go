package compressor

// NoneCompressor passes bytes through unchanged.
type NoneCompressor struct{}

func (NoneCompressor) Compress(src []byte) ([]byte, error) {
	return src, nil
}

func (NoneCompressor) Decompress(src []byte) ([]byte, error) {
	return src, nil
}
