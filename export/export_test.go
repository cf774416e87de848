package export

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/automoto/tsxkit/assets"
	"github.com/automoto/tsxkit/shared/tileset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixture(t *testing.T) *tileset.Tileset {
	t.Helper()
	ts, err := tileset.Load(assets.FS(), assets.TilesetPath)
	require.NoError(t, err)
	return ts
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{
		"tsx": FormatTSX, "XML": FormatTSX, "json": FormatJSON,
		"yml": FormatYAML, " yaml ": FormatYAML, "CBOR": FormatCBOR,
	} {
		got, err := ParseFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseFormat("toml")
	assert.ErrorContains(t, err, `unknown format "toml"`)
}

func TestWriteReadPreservesTileset(t *testing.T) {
	ts := fixture(t)

	for _, f := range Formats {
		t.Run(string(f), func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, Write(&buf, ts, f))

			back, err := Read(&buf, f)
			require.NoError(t, err)
			assert.NoError(t, tileset.Equivalent(ts, back))
			assert.Empty(t, back.Path)
		})
	}

	assert.Equal(t, assets.TilesetPath, ts.Path, "Write must not modify its input")
}

func TestWriteJSONShape(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, fixture(t), FormatJSON))

	var doc map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, "Tiles", doc["name"])
	assert.NotContains(t, doc, "path")

	tiles := doc["tiles"].([]any)
	require.Len(t, tiles, 13)
	first := tiles[0].(map[string]any)
	assert.Equal(t, float64(156), first["id"])
	assert.NotContains(t, first, "properties")
}

func TestWriteUnknownFormat(t *testing.T) {
	assert.Error(t, Write(&bytes.Buffer{}, fixture(t), Format("toml")))
	_, err := Read(&bytes.Buffer{}, Format("toml"))
	assert.Error(t, err)
}

func TestBinary(t *testing.T) {
	assert.True(t, FormatCBOR.Binary())
	assert.False(t, FormatYAML.Binary())
}
