package tileset

import (
	"encoding/xml"
	"fmt"
	"reflect"
	"sort"
)

// Equivalent reports the first difference between a and b in the data a
// round trip must preserve: tile ids, image references, collision shapes,
// properties and the unmodeled attributes and elements carried along.
// Tile order and property order are not significant.
func Equivalent(a, b *Tileset) error {
	if a.Name != b.Name {
		return fmt.Errorf("name %q != %q", a.Name, b.Name)
	}
	if a.TileWidth != b.TileWidth || a.TileHeight != b.TileHeight {
		return fmt.Errorf("tile size %dx%d != %dx%d", a.TileWidth, a.TileHeight, b.TileWidth, b.TileHeight)
	}
	if err := equivalentProperties(a.Properties, b.Properties); err != nil {
		return fmt.Errorf("tileset: %w", err)
	}
	if err := equivalentExtras(a.Attrs, b.Attrs, a.Extra, b.Extra); err != nil {
		return fmt.Errorf("tileset: %w", err)
	}
	if len(a.Tiles) != len(b.Tiles) {
		return fmt.Errorf("tile entries %d != %d", len(a.Tiles), len(b.Tiles))
	}

	for i := range a.Tiles {
		ta := &a.Tiles[i]
		tb, ok := b.Tile(ta.ID)
		if !ok {
			return fmt.Errorf("tile %d missing", ta.ID)
		}
		if err := equivalentImages(ta.Image, tb.Image); err != nil {
			return fmt.Errorf("tile %d: %w", ta.ID, err)
		}
		if err := equivalentObjects(ta, tb); err != nil {
			return fmt.Errorf("tile %d: %w", ta.ID, err)
		}
		if err := equivalentProperties(ta.Properties, tb.Properties); err != nil {
			return fmt.Errorf("tile %d: %w", ta.ID, err)
		}
		if err := equivalentExtras(ta.Attrs, tb.Attrs, ta.Extra, tb.Extra); err != nil {
			return fmt.Errorf("tile %d: %w", ta.ID, err)
		}
	}
	return nil
}

func equivalentImages(a, b Image) error {
	if a.Width != b.Width || a.Height != b.Height || a.Source != b.Source || !sameAttrs(a.Attrs, b.Attrs) {
		return fmt.Errorf("image %+v != %+v", a, b)
	}
	return nil
}

func equivalentObjects(a, b *Tile) error {
	if (a.ObjectGroup == nil) != (b.ObjectGroup == nil) {
		return fmt.Errorf("object group presence differs")
	}
	if a.ObjectGroup == nil {
		return nil
	}
	ga, gb := a.ObjectGroup, b.ObjectGroup
	if err := equivalentExtras(ga.Attrs, gb.Attrs, ga.Extra, gb.Extra); err != nil {
		return fmt.Errorf("object group: %w", err)
	}

	oa, ob := ga.Objects, gb.Objects
	if len(oa) != len(ob) {
		return fmt.Errorf("objects %d != %d", len(oa), len(ob))
	}
	for i := range oa {
		if err := equivalentObject(oa[i], ob[i]); err != nil {
			return fmt.Errorf("object %d: %w", i, err)
		}
	}
	return nil
}

func equivalentObject(a, b Object) error {
	if err := equivalentProperties(a.Properties, b.Properties); err != nil {
		return err
	}
	if err := equivalentExtras(a.Attrs, b.Attrs, a.Extra, b.Extra); err != nil {
		return err
	}
	a.Properties, b.Properties = nil, nil
	a.Attrs, b.Attrs = nil, nil
	a.Extra, b.Extra = nil, nil
	if !reflect.DeepEqual(a, b) {
		return fmt.Errorf("%+v != %+v", a, b)
	}
	return nil
}

func equivalentProperties(a, b Properties) error {
	if len(a) != len(b) {
		return fmt.Errorf("properties %d != %d", len(a), len(b))
	}
	sa, sb := sortedProperties(a), sortedProperties(b)
	for i := range sa {
		pa, pb := sa[i], sb[i]
		if pa.Name != pb.Name || pa.Type != pb.Type || pa.PropertyType != pb.PropertyType ||
			pa.Value != pb.Value || !sameAttrs(pa.Attrs, pb.Attrs) {
			return fmt.Errorf("property %+v != %+v", pa, pb)
		}
		if err := equivalentProperties(pa.Properties, pb.Properties); err != nil {
			return fmt.Errorf("property %q: %w", pa.Name, err)
		}
	}
	return nil
}

func equivalentExtras(attrsA, attrsB []xml.Attr, extraA, extraB []RawElement) error {
	if !sameAttrs(attrsA, attrsB) {
		return fmt.Errorf("attributes %v != %v", attrsA, attrsB)
	}
	if len(extraA) != len(extraB) {
		return fmt.Errorf("unmodeled elements %d != %d", len(extraA), len(extraB))
	}
	for i := range extraA {
		ea, eb := extraA[i], extraB[i]
		if ea.XMLName != eb.XMLName || ea.Inner != eb.Inner || !sameAttrs(ea.Attrs, eb.Attrs) {
			return fmt.Errorf("element <%s> differs", ea.XMLName.Local)
		}
	}
	return nil
}

func sameAttrs(a, b []xml.Attr) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func sortedProperties(p Properties) Properties {
	out := append(Properties(nil), p...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
