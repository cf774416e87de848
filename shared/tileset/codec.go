package tileset

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
)

// rawTileset mirrors the document loosely so structural rules (one image per
// tile, at most one object group) can be checked after decoding.
type rawTileset struct {
	XMLName      xml.Name     `xml:"tileset"`
	Version      string       `xml:"version,attr"`
	TiledVersion string       `xml:"tiledversion,attr"`
	Name         string       `xml:"name,attr"`
	TileWidth    int          `xml:"tilewidth,attr"`
	TileHeight   int          `xml:"tileheight,attr"`
	TileCount    int          `xml:"tilecount,attr"`
	Columns      int          `xml:"columns,attr"`
	Grid         *Grid        `xml:"grid"`
	Properties   Properties   `xml:"properties>property"`
	Tiles        []rawTile    `xml:"tile"`
	Attrs        []xml.Attr   `xml:",any,attr"`
	Extra        []RawElement `xml:",any"`
}

type rawTile struct {
	ID           uint32        `xml:"id,attr"`
	Properties   Properties    `xml:"properties>property"`
	Images       []Image       `xml:"image"`
	ObjectGroups []ObjectGroup `xml:"objectgroup"`
	Attrs        []xml.Attr    `xml:",any,attr"`
	Extra        []RawElement  `xml:",any"`
}

// Decode parses a TSX document. Failures are returned as *ParseError.
func Decode(r io.Reader) (*Tileset, error) {
	var raw rawTileset
	if err := xml.NewDecoder(r).Decode(&raw); err != nil {
		return nil, newParseError(err)
	}

	ts := &Tileset{
		Version:      raw.Version,
		TiledVersion: raw.TiledVersion,
		Name:         raw.Name,
		TileWidth:    raw.TileWidth,
		TileHeight:   raw.TileHeight,
		TileCount:    raw.TileCount,
		Columns:      raw.Columns,
		Grid:         raw.Grid,
		Properties:   raw.Properties,
		Tiles:        make([]Tile, 0, len(raw.Tiles)),
		Attrs:        raw.Attrs,
		Extra:        raw.Extra,
	}

	for _, rt := range raw.Tiles {
		if len(rt.Images) != 1 {
			return nil, &ParseError{Err: fmt.Errorf("tile %d: %w (found %d)", rt.ID, ErrImageCount, len(rt.Images))}
		}
		if len(rt.ObjectGroups) > 1 {
			return nil, &ParseError{Err: fmt.Errorf("tile %d: %w", rt.ID, ErrObjectGroupCount)}
		}

		tile := Tile{
			ID:         rt.ID,
			Properties: rt.Properties,
			Image:      rt.Images[0],
			Attrs:      rt.Attrs,
			Extra:      rt.Extra,
		}
		if len(rt.ObjectGroups) == 1 {
			og := rt.ObjectGroups[0]
			tile.ObjectGroup = &og
		}
		ts.Tiles = append(ts.Tiles, tile)
	}

	return ts, nil
}

func newParseError(err error) *ParseError {
	if errors.Is(err, io.EOF) {
		return &ParseError{Err: errors.New("empty document")}
	}
	pe := &ParseError{Err: err}
	var syntax *xml.SyntaxError
	if errors.As(err, &syntax) {
		pe.Line = syntax.Line
	}
	return pe
}

// Parse decodes data and records name as the tileset path.
func Parse(data []byte, name string) (*Tileset, error) {
	ts, err := Decode(bytes.NewReader(data))
	if err != nil {
		var pe *ParseError
		if errors.As(err, &pe) {
			pe.Path = name
		}
		return nil, err
	}
	ts.Path = name
	return ts, nil
}

// Load reads a tileset from fsys. It takes an fs.FS so callers can pass
// embed.FS or os.DirFS.
func Load(fsys fs.FS, name string) (*Tileset, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, fmt.Errorf("read tileset %s: %w", name, err)
	}
	return Parse(data, name)
}

// OpenDir splits an OS path into a filesystem rooted at its directory and
// the file name inside it.
func OpenDir(path string) (fs.FS, string) {
	dir, name := filepath.Split(path)
	if dir == "" {
		dir = "."
	}
	return os.DirFS(dir), name
}

// LoadFile loads a tileset from an OS path.
func LoadFile(path string) (*Tileset, error) {
	fsys, name := OpenDir(path)
	return Load(fsys, name)
}

// Encode writes ts as a TSX document with Tiled's one-space indentation.
func Encode(w io.Writer, ts *Tileset) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", " ")
	if err := enc.Encode(ts); err != nil {
		return fmt.Errorf("encode tileset %s: %w", ts.Name, err)
	}
	if err := enc.Flush(); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}

// Marshal returns the TSX encoding of ts.
func Marshal(ts *Tileset) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, ts); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// MarshalXML writes the modeled children first and the unmodeled ones after
// the tiles; Tiled does not depend on element order.
func (ts Tileset) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	start.Name = xml.Name{Local: "tileset"}
	start.Attr = nil
	if ts.Version != "" {
		start.Attr = append(start.Attr, attr("version", ts.Version))
	}
	if ts.TiledVersion != "" {
		start.Attr = append(start.Attr, attr("tiledversion", ts.TiledVersion))
	}
	start.Attr = append(start.Attr,
		attr("name", ts.Name),
		attr("tilewidth", strconv.Itoa(ts.TileWidth)),
		attr("tileheight", strconv.Itoa(ts.TileHeight)),
		attr("tilecount", strconv.Itoa(ts.TileCount)),
		attr("columns", strconv.Itoa(ts.Columns)),
	)
	start.Attr = append(start.Attr, ts.Attrs...)
	if err := e.EncodeToken(start); err != nil {
		return err
	}

	if ts.Grid != nil {
		if err := e.EncodeElement(ts.Grid, element("grid")); err != nil {
			return err
		}
	}
	if err := encodeProperties(e, ts.Properties); err != nil {
		return err
	}
	for _, t := range ts.Tiles {
		if err := e.EncodeElement(t, element("tile")); err != nil {
			return err
		}
	}
	if err := encodeRaw(e, ts.Extra); err != nil {
		return err
	}

	return e.EncodeToken(start.End())
}

// MarshalXML writes children in Tiled's order and skips the properties
// wrapper when there are none.
func (t Tile) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	start.Attr = []xml.Attr{attr("id", strconv.FormatUint(uint64(t.ID), 10))}
	start.Attr = append(start.Attr, t.Attrs...)
	if err := e.EncodeToken(start); err != nil {
		return err
	}

	if err := encodeProperties(e, t.Properties); err != nil {
		return err
	}
	if err := e.EncodeElement(t.Image, element("image")); err != nil {
		return err
	}
	if t.ObjectGroup != nil {
		if err := e.EncodeElement(t.ObjectGroup, element("objectgroup")); err != nil {
			return err
		}
	}
	if err := encodeRaw(e, t.Extra); err != nil {
		return err
	}

	return e.EncodeToken(start.End())
}

// MarshalXML writes coordinates without exponents so hand-tuned values such
// as 0.666667 survive a round trip unchanged.
func (o Object) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	start.Attr = nil
	if o.ID != 0 {
		start.Attr = append(start.Attr, attr("id", strconv.Itoa(o.ID)))
	}
	if o.Name != "" {
		start.Attr = append(start.Attr, attr("name", o.Name))
	}
	if o.Type != "" {
		start.Attr = append(start.Attr, attr("type", o.Type))
	}
	start.Attr = append(start.Attr, attr("x", formatFloat(o.X)), attr("y", formatFloat(o.Y)))
	// Tiled leaves out a zero size, which points and polygons always have.
	if o.Width != 0 {
		start.Attr = append(start.Attr, attr("width", formatFloat(o.Width)))
	}
	if o.Height != 0 {
		start.Attr = append(start.Attr, attr("height", formatFloat(o.Height)))
	}
	start.Attr = append(start.Attr, o.Attrs...)
	if err := e.EncodeToken(start); err != nil {
		return err
	}

	if err := encodeProperties(e, o.Properties); err != nil {
		return err
	}
	shapes := []struct {
		name  string
		value any
		set   bool
	}{
		{"ellipse", o.Ellipse, o.Ellipse != nil},
		{"point", o.Point, o.Point != nil},
		{"polygon", o.Polygon, o.Polygon != nil},
		{"polyline", o.Polyline, o.Polyline != nil},
	}
	for _, sh := range shapes {
		if !sh.set {
			continue
		}
		if err := e.EncodeElement(sh.value, element(sh.name)); err != nil {
			return err
		}
	}
	if err := encodeRaw(e, o.Extra); err != nil {
		return err
	}

	return e.EncodeToken(start.End())
}

func encodeRaw(e *xml.Encoder, elems []RawElement) error {
	for _, raw := range elems {
		if err := e.EncodeElement(raw, xml.StartElement{Name: raw.XMLName}); err != nil {
			return err
		}
	}
	return nil
}

func element(name string) xml.StartElement {
	return xml.StartElement{Name: xml.Name{Local: name}}
}

func attr(name, value string) xml.Attr {
	return xml.Attr{Name: xml.Name{Local: name}, Value: value}
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
