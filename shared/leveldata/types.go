// Package leveldata audits how TMX levels use a tileset.
// It has no dependencies on ebitengine or donburi, pure data only.
package leveldata

import (
	"sort"

	"github.com/automoto/tsxkit/shared/collision"
)

// Usage holds the tileset-relevant data parsed from one TMX level file.
type Usage struct {
	Level      string
	Tileset    string
	Width      int // tiles
	Height     int // tiles
	TileWidth  int
	TileHeight int
	Layers     []LayerUsage
	Missing    []MissingTile
}

// LayerUsage counts tile ids used by one tile layer.
type LayerUsage struct {
	Name       string
	Counts     map[uint32]int
	Placements []collision.Placement
}

// MissingTile is a cell referencing an id the tileset does not define.
type MissingTile struct {
	Layer  string
	TileID uint32
	Col    int
	Row    int
}

// Layer returns the usage of the named layer.
func (u *Usage) Layer(name string) (*LayerUsage, bool) {
	for i := range u.Layers {
		if u.Layers[i].Name == name {
			return &u.Layers[i], true
		}
	}
	return nil, false
}

// Placements returns the placements of the named layers, or of every layer
// when none are named.
func (u *Usage) Placements(layers ...string) []collision.Placement {
	want := make(map[string]bool, len(layers))
	for _, l := range layers {
		want[l] = true
	}
	var out []collision.Placement
	for _, l := range u.Layers {
		if len(want) > 0 && !want[l.Name] {
			continue
		}
		out = append(out, l.Placements...)
	}
	return out
}

// Totals sums tile counts across layers.
func (u *Usage) Totals() map[uint32]int {
	totals := make(map[uint32]int)
	for _, l := range u.Layers {
		for id, n := range l.Counts {
			totals[id] += n
		}
	}
	return totals
}

// Unused returns the ids in ids that no level in usages places, ascending.
func Unused(ids []uint32, usages ...*Usage) []uint32 {
	used := make(map[uint32]bool)
	for _, u := range usages {
		for id := range u.Totals() {
			used[id] = true
		}
	}
	var out []uint32
	for _, id := range ids {
		if !used[id] {
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
