package compressor

import (
	ddzstd "github.com/DataDog/zstd"
)

// DdzstdCompressor is the cgo zstd codec. Faster on large payloads than
// the pure-Go backend, at the cost of a cgo build.
type DdzstdCompressor struct{}

func (z *DdzstdCompressor) Compress(src []byte) ([]byte, error) {
	buf := make([]byte, ddzstd.CompressBound(len(src)))

	compressed, err := ddzstd.CompressLevel(buf, src, ddzstd.DefaultCompression)
	if err != nil {
		return nil, err
	}
	if len(compressed) >= len(src) {
		return nil, ErrNotShrunk
	}
	return compressed, nil
}

func (z *DdzstdCompressor) Decompress(src []byte) ([]byte, error) {
	// nil dst: the library sizes the output from the frame header.
	return ddzstd.Decompress(nil, src)
}
