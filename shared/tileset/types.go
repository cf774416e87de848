// Package tileset reads, validates and writes Tiled tilesets (.tsx).
// It has no dependencies on ebitengine or resolv, pure data only.
package tileset

import (
	"encoding/xml"
	"sort"
)

// Tileset is a named catalog of tile definitions sharing a nominal tile size.
type Tileset struct {
	XMLName      xml.Name   `xml:"tileset" json:"-" yaml:"-" cbor:"-"`
	Version      string     `xml:"version,attr,omitempty" json:"version,omitempty" yaml:"version,omitempty" cbor:"version,omitempty"`
	TiledVersion string     `xml:"tiledversion,attr,omitempty" json:"tiledVersion,omitempty" yaml:"tiledVersion,omitempty" cbor:"tiledVersion,omitempty"`
	Name         string     `xml:"name,attr" json:"name" yaml:"name" cbor:"name"`
	TileWidth    int        `xml:"tilewidth,attr" json:"tileWidth" yaml:"tileWidth" cbor:"tileWidth"`
	TileHeight   int        `xml:"tileheight,attr" json:"tileHeight" yaml:"tileHeight" cbor:"tileHeight"`
	TileCount    int        `xml:"tilecount,attr" json:"tileCount" yaml:"tileCount" cbor:"tileCount"`
	Columns      int        `xml:"columns,attr" json:"columns" yaml:"columns" cbor:"columns"`
	Grid         *Grid      `xml:"grid" json:"grid,omitempty" yaml:"grid,omitempty" cbor:"grid,omitempty"`
	Properties   Properties `xml:"properties>property" json:"properties,omitempty" yaml:"properties,omitempty" cbor:"properties,omitempty"`
	Tiles        []Tile     `xml:"tile" json:"tiles" yaml:"tiles" cbor:"tiles"`

	// Attrs and Extra hold what tsxkit does not model (spacing, margin,
	// tileoffset, wangsets, transformations, ...), written back unchanged.
	Attrs []xml.Attr   `xml:",any,attr" json:"attrs,omitempty" yaml:"attrs,omitempty" cbor:"attrs,omitempty"`
	Extra []RawElement `xml:",any" json:"extra,omitempty" yaml:"extra,omitempty" cbor:"extra,omitempty"`

	// Path is the slash-separated location the tileset was loaded from.
	// Image sources resolve against its directory.
	Path string `xml:"-" json:"path,omitempty" yaml:"path,omitempty" cbor:"path,omitempty"`
}

// Grid is the editor grid hint. Meaningless for image-collection tilesets.
type Grid struct {
	Orientation string     `xml:"orientation,attr" json:"orientation" yaml:"orientation" cbor:"orientation"`
	Width       int        `xml:"width,attr" json:"width" yaml:"width" cbor:"width"`
	Height      int        `xml:"height,attr" json:"height" yaml:"height" cbor:"height"`
	Attrs       []xml.Attr `xml:",any,attr" json:"attrs,omitempty" yaml:"attrs,omitempty" cbor:"attrs,omitempty"`
}

// Tile is one addressable image plus optional collision and gameplay metadata.
type Tile struct {
	ID          uint32       `xml:"id,attr" json:"id" yaml:"id" cbor:"id"`
	Properties  Properties   `xml:"properties>property" json:"properties,omitempty" yaml:"properties,omitempty" cbor:"properties,omitempty"`
	Image       Image        `xml:"image" json:"image" yaml:"image" cbor:"image"`
	ObjectGroup *ObjectGroup `xml:"objectgroup" json:"objectGroup,omitempty" yaml:"objectGroup,omitempty" cbor:"objectGroup,omitempty"`

	// Attrs and Extra keep class, probability, animation and the like.
	Attrs []xml.Attr   `xml:",any,attr" json:"attrs,omitempty" yaml:"attrs,omitempty" cbor:"attrs,omitempty"`
	Extra []RawElement `xml:",any" json:"extra,omitempty" yaml:"extra,omitempty" cbor:"extra,omitempty"`
}

// Image references the tile's image file.
type Image struct {
	Width  int        `xml:"width,attr" json:"width" yaml:"width" cbor:"width"`
	Height int        `xml:"height,attr" json:"height" yaml:"height" cbor:"height"`
	Source string     `xml:"source,attr" json:"source" yaml:"source" cbor:"source"`
	Attrs  []xml.Attr `xml:",any,attr" json:"attrs,omitempty" yaml:"attrs,omitempty" cbor:"attrs,omitempty"`
}

// ObjectGroup holds the collision shapes attached to a tile.
type ObjectGroup struct {
	ID        int          `xml:"id,attr,omitempty" json:"id,omitempty" yaml:"id,omitempty" cbor:"id,omitempty"`
	DrawOrder string       `xml:"draworder,attr,omitempty" json:"drawOrder,omitempty" yaml:"drawOrder,omitempty" cbor:"drawOrder,omitempty"`
	Objects   []Object     `xml:"object" json:"objects" yaml:"objects" cbor:"objects"`
	Attrs     []xml.Attr   `xml:",any,attr" json:"attrs,omitempty" yaml:"attrs,omitempty" cbor:"attrs,omitempty"`
	Extra     []RawElement `xml:",any" json:"extra,omitempty" yaml:"extra,omitempty" cbor:"extra,omitempty"`
}

// Object is a collision shape in tile-local coordinates. Without a shape
// element it is a rectangle.
type Object struct {
	ID         int        `xml:"id,attr,omitempty" json:"id,omitempty" yaml:"id,omitempty" cbor:"id,omitempty"`
	Name       string     `xml:"name,attr,omitempty" json:"name,omitempty" yaml:"name,omitempty" cbor:"name,omitempty"`
	Type       string     `xml:"type,attr,omitempty" json:"type,omitempty" yaml:"type,omitempty" cbor:"type,omitempty"`
	X          float64    `xml:"x,attr" json:"x" yaml:"x" cbor:"x"`
	Y          float64    `xml:"y,attr" json:"y" yaml:"y" cbor:"y"`
	Width      float64    `xml:"width,attr,omitempty" json:"width" yaml:"width" cbor:"width"`
	Height     float64    `xml:"height,attr,omitempty" json:"height" yaml:"height" cbor:"height"`
	Properties Properties `xml:"properties>property" json:"properties,omitempty" yaml:"properties,omitempty" cbor:"properties,omitempty"`
	Ellipse    *Marker    `xml:"ellipse" json:"ellipse,omitempty" yaml:"ellipse,omitempty" cbor:"ellipse,omitempty"`
	Point      *Marker    `xml:"point" json:"point,omitempty" yaml:"point,omitempty" cbor:"point,omitempty"`
	Polygon    *Points    `xml:"polygon" json:"polygon,omitempty" yaml:"polygon,omitempty" cbor:"polygon,omitempty"`
	Polyline   *Points    `xml:"polyline" json:"polyline,omitempty" yaml:"polyline,omitempty" cbor:"polyline,omitempty"`

	Attrs []xml.Attr   `xml:",any,attr" json:"attrs,omitempty" yaml:"attrs,omitempty" cbor:"attrs,omitempty"`
	Extra []RawElement `xml:",any" json:"extra,omitempty" yaml:"extra,omitempty" cbor:"extra,omitempty"`
}

// Marker is an empty shape element such as <ellipse/>.
type Marker struct{}

// Points is a polygon or polyline vertex list, "x1,y1 x2,y2 ...", relative
// to the object position.
type Points struct {
	Points string `xml:"points,attr" json:"points" yaml:"points" cbor:"points"`
}

// RawElement is an element kept verbatim: its name, attributes and inner
// markup are written back as read.
type RawElement struct {
	XMLName xml.Name   `json:"name" yaml:"name" cbor:"name"`
	Attrs   []xml.Attr `xml:",any,attr" json:"attrs,omitempty" yaml:"attrs,omitempty" cbor:"attrs,omitempty"`
	Inner   string     `xml:",innerxml" json:"inner,omitempty" yaml:"inner,omitempty" cbor:"inner,omitempty"`
}

// Tile returns the tile with the given id.
func (ts *Tileset) Tile(id uint32) (*Tile, bool) {
	for i := range ts.Tiles {
		if ts.Tiles[i].ID == id {
			return &ts.Tiles[i], true
		}
	}
	return nil, false
}

// IDs returns every tile id in ascending order.
func (ts *Tileset) IDs() []uint32 {
	ids := make([]uint32, 0, len(ts.Tiles))
	for _, t := range ts.Tiles {
		ids = append(ids, t.ID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// HasCollision reports whether the tile declares any collision object.
func (t *Tile) HasCollision() bool {
	return t.ObjectGroup != nil && len(t.ObjectGroup.Objects) > 0
}
