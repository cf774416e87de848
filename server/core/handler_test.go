package core

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/automoto/tsxkit/shared/tileset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testMux(t *testing.T) http.Handler {
	t.Helper()
	cat := NewCatalog(os.DirFS(tilesetDir(t)), Options{Validate: tileset.ValidateOptions{BoundsTolerance: 2}})
	_ = cat.LoadDir(context.Background(), ".")
	return NewMux(cat, nil)
}

func get(t *testing.T, h http.Handler, url string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, url, nil))
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func TestHealthAndList(t *testing.T) {
	h := testMux(t)

	rec := get(t, h, "/health")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","tilesets":2}`, rec.Body.String())

	rec = get(t, h, "/tilesets")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	var list []Summary
	decode(t, rec, &list)
	require.Len(t, list, 2)
	assert.Equal(t, "Tiles", list[0].Name)
	assert.Equal(t, 1, list[0].Warnings)
}

func TestGetTileset(t *testing.T) {
	h := testMux(t)

	rec := get(t, h, "/tilesets/Tiles")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var ts tileset.Tileset
	decode(t, rec, &ts)
	assert.Equal(t, "Tiles", ts.Name)
	assert.Len(t, ts.Tiles, 13)

	rec = get(t, h, "/tilesets/Tiles?format=tsx")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/xml", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), `<tileset version="1.5"`)

	rec = get(t, h, "/tilesets/Tiles?format=toml")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = get(t, h, "/tilesets/nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"unknown tileset \"nope\""}`, rec.Body.String())

	rec = get(t, h, "/tilesets/broken")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestGetTile(t *testing.T) {
	h := testMux(t)

	rec := get(t, h, "/tilesets/Tiles/tiles/166")
	require.Equal(t, http.StatusOK, rec.Code)
	var coin TileView
	decode(t, rec, &coin)
	assert.Equal(t, tileset.ClassCollectible, coin.Class)
	assert.Equal(t, uint32(166), coin.Tile.ID)
	assert.Empty(t, coin.Hitboxes)
	assert.Empty(t, coin.Issues)

	rec = get(t, h, "/tilesets/Tiles/tiles/162")
	require.Equal(t, http.StatusOK, rec.Code)
	var zap TileView
	decode(t, rec, &zap)
	assert.Equal(t, tileset.ClassNeutral, zap.Class)
	require.Len(t, zap.Hitboxes, 1)
	require.Len(t, zap.Issues, 1)
	assert.Equal(t, tileset.RuleHitboxBounds, zap.Issues[0].Rule)

	assert.Equal(t, http.StatusBadRequest, get(t, h, "/tilesets/Tiles/tiles/abc").Code)
	assert.Equal(t, http.StatusNotFound, get(t, h, "/tilesets/Tiles/tiles/159").Code)
	assert.Equal(t, http.StatusNotFound, get(t, h, "/tilesets/nope/tiles/1").Code)
}

func TestGetReport(t *testing.T) {
	h := testMux(t)

	rec := get(t, h, "/tilesets/Tiles/report")
	require.Equal(t, http.StatusOK, rec.Code)
	var report tileset.Report
	decode(t, rec, &report)
	assert.Equal(t, "Tiles", report.Tileset)
	require.Len(t, report.Issues, 1)
	assert.Equal(t, uint32(162), *report.Issues[0].TileID)

	rec = get(t, h, "/tilesets/broken/report")
	require.Equal(t, http.StatusOK, rec.Code)
	decode(t, rec, &report)
	assert.Equal(t, tileset.RuleParse, report.Issues[0].Rule)

	assert.Equal(t, http.StatusMethodNotAllowed, func() int {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/tilesets", nil))
		return rec.Code
	}())
}
