package tileset

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"io/fs"
	"testing"
	"testing/fstest"

	"github.com/automoto/tsxkit/assets"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))))
	return buf.Bytes()
}

func TestResolveImage(t *testing.T) {
	ts := &Tileset{Path: "maps/images/tiles/Tiles.tsx"}

	assert.Equal(t, "maps/images/tiles/Coin.png", ResolveImage(ts, &Tile{Image: Image{Source: "Coin.png"}}))
	assert.Equal(t, "maps/images/Coin.png", ResolveImage(ts, &Tile{Image: Image{Source: "../Coin.png"}}))

	root := &Tileset{Path: "Tiles.tsx"}
	assert.Equal(t, "Coin.png", ResolveImage(root, &Tile{Image: Image{Source: "./Coin.png"}}))
}

func TestCheckResourcesFixture(t *testing.T) {
	ts := loadFixture(t)

	report, err := CheckResources(context.Background(), assets.FS(), ts, ResourceOptions{DecodeImages: true, Concurrency: 4})
	require.NoError(t, err)
	assert.Empty(t, report.Issues)
}

func TestCheckResourcesMissing(t *testing.T) {
	fsys := fstest.MapFS{
		"set/a.png":     {Data: pngBytes(t, 16, 16)},
		"set/small.png": {Data: pngBytes(t, 8, 8)},
		"set/junk.png":  {Data: []byte("not an image")},
		"set/dir.png":   {Mode: fs.ModeDir},
	}
	ts := &Tileset{Name: "set", Path: "set/set.tsx", Tiles: []Tile{
		{ID: 1, Image: Image{Width: 16, Height: 16, Source: "a.png"}},
		{ID: 2, Image: Image{Width: 16, Height: 16, Source: "gone.png"}},
		{ID: 3, Image: Image{Width: 16, Height: 16, Source: "small.png"}},
		{ID: 4, Image: Image{Width: 16, Height: 16, Source: "junk.png"}},
		{ID: 5, Image: Image{Width: 16, Height: 16, Source: "../../escape.png"}},
		{ID: 6, Image: Image{Width: 16, Height: 16, Source: "dir.png"}},
	}}

	report, err := CheckResources(context.Background(), fsys, ts, ResourceOptions{DecodeImages: true})
	require.Error(t, err)

	var missing *MissingResourceError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, uint32(2), missing.TileID)
	assert.Equal(t, "set/gone.png", missing.Resolved)
	assert.ErrorIs(t, err, fs.ErrNotExist)
	assert.ErrorIs(t, err, fs.ErrInvalid)

	byTile := map[uint32]string{}
	for _, issue := range report.Issues {
		require.NotNil(t, issue.TileID)
		byTile[*issue.TileID] = issue.Rule
	}
	assert.Equal(t, map[uint32]string{
		2: RuleImageMissing,
		3: RuleImageDimensions,
		4: RuleImageDecode,
		5: RuleImageMissing,
		6: RuleImageMissing,
	}, byTile)

	// Without decoding only existence is checked.
	report, err = CheckResources(context.Background(), fsys, ts, ResourceOptions{})
	require.Error(t, err)
	assert.Len(t, report.Issues, 3)
}

func TestCheckResourcesCanceled(t *testing.T) {
	ts := loadFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := CheckResources(ctx, assets.FS(), ts, ResourceOptions{})
	assert.ErrorIs(t, err, context.Canceled)
}
