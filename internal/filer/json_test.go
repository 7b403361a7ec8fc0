package filer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anyotin/queueline/internal/compressor"
)

type snapshot struct {
	Date    string  `json:"date"`
	Service string  `json:"service"`
	Counter string  `json:"counter"`
	Count   int64   `json:"count"`
	AvgSvc  float64 `json:"avg_svc"`
}

func sampleRows() []snapshot {
	rows := make([]snapshot, 0, 64)
	for i := 0; i < 64; i++ {
		rows = append(rows, snapshot{
			Date:    "20260801",
			Service: "register",
			Counter: "c1",
			Count:   int64(i),
			AvgSvc:  42.5,
		})
	}
	return rows
}

func TestJsonFilerRoundTrip(t *testing.T) {
	f := NewJsonFiler()
	path := filepath.Join(t.TempDir(), "stats.json")

	in := sampleRows()
	require.NoError(t, f.Save(path, in))

	var out []snapshot
	require.NoError(t, f.Load(path, &out))
	assert.Equal(t, in, out)
}

func TestJsonFilerLoadMissingFile(t *testing.T) {
	f := NewJsonFiler()
	var out []snapshot
	assert.Error(t, f.Load(filepath.Join(t.TempDir(), "absent.json"), &out))
}

func TestCompressedJSONFilerRoundTrip(t *testing.T) {
	for name, codec := range map[string]compressor.Compresser{
		"zstd": &compressor.ZstdCompressor{},
		"lz4":  compressor.Lz4Compressor{},
		"none": compressor.NoneCompressor{},
	} {
		t.Run(name, func(t *testing.T) {
			f := NewCompressedJSONFiler(codec)
			path := filepath.Join(t.TempDir(), "stats.json."+name)

			in := sampleRows()
			require.NoError(t, f.Save(path, in))

			var out []snapshot
			require.NoError(t, f.Load(path, &out))
			assert.Equal(t, in, out)
		})
	}
}

func TestCompressedJSONFilerShrinks(t *testing.T) {
	plainPath := filepath.Join(t.TempDir(), "plain.json")
	compPath := filepath.Join(t.TempDir(), "comp.json.zst")

	in := sampleRows()
	require.NoError(t, NewJsonFiler().Save(plainPath, in))
	require.NoError(t, NewCompressedJSONFiler(&compressor.ZstdCompressor{}).Save(compPath, in))

	plainInfo, err := os.Stat(plainPath)
	require.NoError(t, err)
	compInfo, err := os.Stat(compPath)
	require.NoError(t, err)

	assert.Less(t, compInfo.Size(), plainInfo.Size())
}
