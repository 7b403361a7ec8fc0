// Package filer persists Go values as JSON files, optionally compressed.
// The snapshot command uses it to dump analytics objects to disk.
package filer

import (
	"encoding/json"
	"os"

	"github.com/cockroachdb/errors"

	"github.com/anyotin/queueline/internal/compressor"
)

// JsonFiler saves and loads a value as a JSON file.
type JsonFiler interface {
	Save(name string, i any) error
	Load(name string, in any) error
}

type jsonFiler struct{}

// NewJsonFiler returns the plain, uncompressed implementation. Whole-file
// reads keep it to payloads in the tens of MB at most.
func NewJsonFiler() JsonFiler {
	return &jsonFiler{}
}

func (e jsonFiler) Save(name string, i any) error {
	b, err := json.Marshal(i)
	if err != nil {
		return errors.Wrap(err, "json marshal")
	}

	if err := os.WriteFile(name, b, 0o644); err != nil {
		return errors.Wrapf(err, "write file %q", name)
	}

	return nil
}

func (e jsonFiler) Load(name string, in any) error {
	b, err := os.ReadFile(name)
	if err != nil {
		return errors.Wrap(err, "read file")
	}

	if err := json.Unmarshal(b, in); err != nil {
		return errors.Wrap(err, "json unmarshal")
	}

	return nil
}

type compressedJSONFiler struct {
	comp compressor.Compresser
}

// NewCompressedJSONFiler wraps the JSON filer with a compression codec.
// A Save whose payload the codec refuses to shrink falls back to the
// plain bytes; Load detects that by attempting decompression first.
func NewCompressedJSONFiler(comp compressor.Compresser) JsonFiler {
	return &compressedJSONFiler{comp: comp}
}

func (e compressedJSONFiler) Save(name string, i any) error {
	b, err := json.Marshal(i)
	if err != nil {
		return errors.Wrap(err, "json marshal")
	}

	out, err := e.comp.Compress(b)
	if err != nil {
		if !errors.Is(err, compressor.ErrNotShrunk) {
			return errors.Wrap(err, "compress")
		}
		out = b
	}

	if err := os.WriteFile(name, out, 0o644); err != nil {
		return errors.Wrapf(err, "write file %q", name)
	}

	return nil
}

func (e compressedJSONFiler) Load(name string, in any) error {
	b, err := os.ReadFile(name)
	if err != nil {
		return errors.Wrap(err, "read file")
	}

	if plain, err := e.comp.Decompress(b); err == nil {
		b = plain
	}

	if err := json.Unmarshal(b, in); err != nil {
		return errors.Wrap(err, "json unmarshal")
	}

	return nil
}
