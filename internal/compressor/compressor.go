// Package compressor holds the codecs the snapshot filer can write
// through: zstd (two backends), lz4, or none.
package compressor

import "github.com/cockroachdb/errors"

type Compresser interface {
	Compress(src []byte) ([]byte, error)
	Decompress(src []byte) ([]byte, error)
}

var ErrIncompressible = errors.New("compress error")

// ErrNotShrunk is returned when compression would not reduce the size;
// callers keep the original bytes instead.
var ErrNotShrunk = errors.New("compressed size not reduced")

// ForName maps a config knob value to a codec. Unknown names fall back
// to no compression.
func ForName(name string) Compresser {
	switch name {
	case "zstd":
		return &ZstdCompressor{}
	case "ddzstd":
		return &DdzstdCompressor{}
	case "lz4":
		return Lz4Compressor{}
	default:
		return NoneCompressor{}
	}
}
