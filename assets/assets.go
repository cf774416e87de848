// Package assets embeds the platformer tileset and a sample level. Tests and
// the CLI's built-in examples read from it.
package assets

import (
	"embed"
	"io/fs"
)

//go:embed all:maps
var mapsFS embed.FS

const (
	// TilesetPath is the embedded Tiles tileset.
	TilesetPath = "maps/images/tiles/Tiles.tsx"
	// LevelsDir holds the embedded .tmx levels.
	LevelsDir = "maps"
	// LevelPath is the first sample level.
	LevelPath = "maps/level_1.tmx"
)

// FS returns the embedded asset tree.
func FS() fs.FS {
	return mapsFS
}

// MustRead returns an embedded file or panics. Only for static paths.
func MustRead(name string) []byte {
	data, err := mapsFS.ReadFile(name)
	if err != nil {
		panic(err)
	}
	return data
}
