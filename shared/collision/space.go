// Package collision lays tileset hitboxes out in a resolv.Space so tools can
// ask which placed tiles a rectangle touches.
package collision

import (
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/automoto/tsxkit/shared/tileset"
	"github.com/solarlune/resolv"
)

// DefaultScale matches the platformer's TILE_SCALING: 128px art drawn at 64px.
const DefaultScale = 0.5

const defaultCellSize = 16

// cellMargin grows every resolv object, probes included, on each side.
// resolv assigns cells from X to X+W-1, so without it a rectangle reaching
// less than a pixel into a neighbouring cell is not registered there.
const cellMargin = 1.0

// Resolv tags attached to every hitbox object.
const (
	TagHitbox = "hitbox"

	classTagPrefix = "class:"
	tileTagPrefix  = "tile:"
	layerTagPrefix = "layer:"
)

// ClassTag is the resolv tag for a tile class.
func ClassTag(c tileset.Class) string { return classTagPrefix + string(c) }

// TileTag is the resolv tag for a tile id.
func TileTag(id uint32) string { return tileTagPrefix + strconv.FormatUint(uint64(id), 10) }

// LayerTag is the resolv tag for a map layer.
func LayerTag(name string) string { return layerTagPrefix + name }

// Placement puts a tile in a grid cell.
type Placement struct {
	TileID uint32
	Col    int
	Row    int
	Layer  string
}

// Options tunes NewSpace.
type Options struct {
	// Scale applied to positions and hitboxes; 0 means DefaultScale.
	Scale float64
	// FullTile gives tiles without an object group a full-cell hitbox.
	FullTile bool
	// CellSize of the resolv grid in scaled pixels; 0 means 16.
	CellSize int
}

// Hit is one placed hitbox, in scaled world coordinates.
type Hit struct {
	TileID uint32
	Class  tileset.Class
	Layer  string
	Col    int
	Row    int
	Rect   tileset.Rect
}

// Space wraps a resolv.Space holding the hitboxes of a set of placements.
// The resolv space is padded by one tile on every side so hitboxes that
// bleed past the grid edge are still registered. Objects in Space are
// cellMargin larger than their hitbox; Hit.Rect is exact.
type Space struct {
	Space      *resolv.Space
	Scale      float64
	TileWidth  float64
	TileHeight float64
	Width      float64
	Height     float64

	pad  float64
	hits []Hit
}

// NewSpace builds a resolv.Space from placements of ts tiles.
func NewSpace(ts *tileset.Tileset, c *tileset.Classifier, placements []Placement, opts Options) (*Space, error) {
	if c == nil {
		c = tileset.NewClassifier(nil, tileset.PolicyDefault)
	}
	scale := opts.Scale
	if scale == 0 {
		scale = DefaultScale
	}
	if scale < 0 {
		return nil, fmt.Errorf("negative scale %v", scale)
	}
	cellSize := opts.CellSize
	if cellSize <= 0 {
		cellSize = defaultCellSize
	}

	tileW := float64(ts.TileWidth) * scale
	tileH := float64(ts.TileHeight) * scale

	cols, rows := 0, 0
	for _, p := range placements {
		if p.Col < 0 || p.Row < 0 {
			return nil, fmt.Errorf("placement of tile %d at %d,%d is outside the grid", p.TileID, p.Col, p.Row)
		}
		cols = max(cols, p.Col+1)
		rows = max(rows, p.Row+1)
	}

	pad := math.Max(tileW, tileH)
	s := &Space{
		Scale:      scale,
		TileWidth:  tileW,
		TileHeight: tileH,
		Width:      float64(cols) * tileW,
		Height:     float64(rows) * tileH,
		pad:        pad,
	}
	s.Space = resolv.NewSpace(
		int(math.Ceil(s.Width+2*pad)),
		int(math.Ceil(s.Height+2*pad)),
		cellSize, cellSize,
	)

	for _, p := range placements {
		tile, ok := ts.Tile(p.TileID)
		if !ok {
			return nil, fmt.Errorf("placement %d,%d: tile %d not in tileset %q", p.Col, p.Row, p.TileID, ts.Name)
		}
		class, err := c.Classify(tile)
		if err != nil {
			return nil, err
		}

		for _, box := range tileset.HitboxFor(tile, opts.FullTile) {
			r := box.Scale(scale).Offset(float64(p.Col)*tileW, float64(p.Row)*tileH)
			hit := Hit{TileID: p.TileID, Class: class, Layer: p.Layer, Col: p.Col, Row: p.Row, Rect: r}

			tags := []string{TagHitbox, ClassTag(class), TileTag(p.TileID)}
			if p.Layer != "" {
				tags = append(tags, LayerTag(p.Layer))
			}
			obj := s.object(r, tags...)
			obj.SetShape(resolv.NewRectangle(0, 0, obj.W, obj.H))
			obj.Data = hit
			s.Space.Add(obj)
			s.hits = append(s.hits, hit)
		}
	}

	return s, nil
}

// object converts a world rectangle to a resolv object in space
// coordinates, widened by cellMargin.
func (s *Space) object(r tileset.Rect, tags ...string) *resolv.Object {
	return resolv.NewObject(
		r.X+s.pad-cellMargin,
		r.Y+s.pad-cellMargin,
		r.W+2*cellMargin,
		r.H+2*cellMargin,
		tags...,
	)
}

// Hits returns every placed hitbox in placement order.
func (s *Space) Hits() []Hit {
	return append([]Hit(nil), s.hits...)
}

// Probe returns the hitboxes overlapping r (scaled world coordinates),
// restricted to objects carrying the given tags. Results are ordered by row,
// column and tile id.
func (s *Space) Probe(r tileset.Rect, tags ...string) []Hit {
	probe := s.object(r)
	s.Space.Add(probe)
	defer s.Space.Remove(probe)

	check := probe.Check(0, 0, tags...)
	if check == nil {
		return nil
	}

	seen := make(map[*resolv.Object]bool, len(check.Objects))
	var hits []Hit
	for _, o := range check.Objects {
		if seen[o] {
			continue
		}
		seen[o] = true
		hit, ok := o.Data.(Hit)
		if !ok || !hit.Rect.Overlaps(r) {
			continue
		}
		hits = append(hits, hit)
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Row != hits[j].Row {
			return hits[i].Row < hits[j].Row
		}
		if hits[i].Col != hits[j].Col {
			return hits[i].Col < hits[j].Col
		}
		return hits[i].TileID < hits[j].TileID
	})
	return hits
}

// ProbeCell returns the hitboxes overlapping one grid cell.
func (s *Space) ProbeCell(col, row int, tags ...string) []Hit {
	r := tileset.Rect{
		X: float64(col) * s.TileWidth,
		Y: float64(row) * s.TileHeight,
		W: s.TileWidth,
		H: s.TileHeight,
	}
	return s.Probe(r, tags...)
}
