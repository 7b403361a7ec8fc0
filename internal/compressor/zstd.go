package compressor

import (
	"github.com/klauspost/compress/zstd"
)

// ZstdCompressor is the pure-Go zstd codec.
type ZstdCompressor struct{}

func (z *ZstdCompressor) Compress(src []byte) ([]byte, error) {
	// nil writer: EncodeAll with an internal buffer only.
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, ErrIncompressible
	}
	defer enc.Close()

	compressed := enc.EncodeAll(src, nil)

	if len(compressed) >= len(src) {
		return nil, ErrNotShrunk
	}

	return compressed, nil
}

func (z *ZstdCompressor) Decompress(src []byte) ([]byte, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	return dec.DecodeAll(src, nil)
}
