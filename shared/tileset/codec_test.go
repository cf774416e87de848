package tileset

import (
	"bytes"
	"encoding/xml"
	"errors"
	"strings"
	"testing"

	"github.com/automoto/tsxkit/assets"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadFixture(t *testing.T) *Tileset {
	t.Helper()
	ts, err := Load(assets.FS(), assets.TilesetPath)
	require.NoError(t, err)
	return ts
}

func TestLoadFixture(t *testing.T) {
	ts := loadFixture(t)

	assert.Equal(t, "Tiles", ts.Name)
	assert.Equal(t, "1.5", ts.Version)
	assert.Equal(t, "1.6.0", ts.TiledVersion)
	assert.Equal(t, 128, ts.TileWidth)
	assert.Equal(t, 128, ts.TileHeight)
	assert.Equal(t, 13, ts.TileCount)
	assert.Equal(t, 0, ts.Columns)
	assert.Equal(t, assets.TilesetPath, ts.Path)
	require.NotNil(t, ts.Grid)
	assert.Equal(t, Grid{Orientation: "orthogonal", Width: 1, Height: 1}, *ts.Grid)

	assert.Equal(t, []uint32{156, 157, 158, 160, 161, 162, 163, 164, 166, 167, 168, 169, 170}, ts.IDs())

	for _, tile := range ts.Tiles {
		assert.Equal(t, 128, tile.Image.Width, "tile %d", tile.ID)
		assert.Equal(t, 128, tile.Image.Height, "tile %d", tile.ID)
		assert.NotEmpty(t, tile.Image.Source, "tile %d", tile.ID)
	}

	electric, ok := ts.Tile(162)
	require.True(t, ok)
	assert.Equal(t, "ConcreteElectric.png", electric.Image.Source)
	require.NotNil(t, electric.ObjectGroup)
	assert.Equal(t, "index", electric.ObjectGroup.DrawOrder)
	assert.Equal(t, 2, electric.ObjectGroup.ID)
	assert.Equal(t, []Object{{ID: 1, X: 0.666667, Y: -5, Width: 128, Height: 133.333}}, electric.ObjectGroup.Objects)

	coin, ok := ts.Tile(166)
	require.True(t, ok)
	assert.Nil(t, coin.ObjectGroup)
	assert.Equal(t, Properties{{Name: "Type", Type: "int", Value: "1"}}, coin.Properties)

	_, ok = ts.Tile(159)
	assert.False(t, ok)
}

func TestDecodeErrors(t *testing.T) {
	cases := []struct {
		name   string
		doc    string
		target error
		line   bool
	}{
		{"empty", "", nil, false},
		{"malformed", "<tileset name=\"x\">\n<tile id=\"1\">\n</tileset>", nil, true},
		{"wrong_root", `<map width="1"/>`, nil, false},
		{"no_image", `<tileset name="x"><tile id="1"/></tileset>`, ErrImageCount, false},
		{"two_images", `<tileset name="x"><tile id="1"><image width="1" height="1" source="a.png"/><image width="1" height="1" source="b.png"/></tile></tileset>`, ErrImageCount, false},
		{"two_groups", `<tileset name="x"><tile id="1"><image width="1" height="1" source="a.png"/><objectgroup/><objectgroup/></tile></tileset>`, ErrObjectGroupCount, false},
		{"negative_id", `<tileset name="x"><tile id="-1"><image width="1" height="1" source="a.png"/></tile></tileset>`, nil, false},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := Parse([]byte(c.doc), "bad.tsx")
			require.Error(t, err)

			var pe *ParseError
			require.True(t, errors.As(err, &pe), "want *ParseError, got %T", err)
			assert.Equal(t, "bad.tsx", pe.Path)
			assert.Contains(t, err.Error(), "bad.tsx")
			if c.target != nil {
				assert.ErrorIs(t, err, c.target)
			}
			if c.line {
				assert.Greater(t, pe.Line, 0)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(assets.FS(), "maps/nope.tsx")
	require.Error(t, err)
	var pe *ParseError
	assert.False(t, errors.As(err, &pe))
}

func TestRoundTrip(t *testing.T) {
	ts := loadFixture(t)

	out, err := Marshal(ts)
	require.NoError(t, err)

	text := string(out)
	assert.True(t, strings.HasPrefix(text, `<?xml version="1.0" encoding="UTF-8"?>`))
	assert.Contains(t, text, `x="0.666667"`)
	assert.Contains(t, text, `height="133.333"`)
	assert.Contains(t, text, `source="OrangeBUtton.png"`)
	assert.Contains(t, text, "\n <tile id=\"156\">")

	again, err := Parse(out, ts.Path)
	require.NoError(t, err)
	assert.NoError(t, Equivalent(ts, again))
	assert.Equal(t, ts.IDs(), again.IDs())

	// A second pass is byte-stable.
	second, err := Marshal(again)
	require.NoError(t, err)
	assert.Equal(t, out, second)
}

func TestEquivalentDetectsChanges(t *testing.T) {
	base := loadFixture(t)

	mutations := map[string]func(ts *Tileset){
		"image_source": func(ts *Tileset) { ts.Tiles[0].Image.Source = "other.png" },
		"rect":         func(ts *Tileset) { ts.Tiles[5].ObjectGroup.Objects[0].Width = 1 },
		"property":     func(ts *Tileset) { ts.Tiles[8].Properties[0].Value = "2" },
		"drop_tile":    func(ts *Tileset) { ts.Tiles = ts.Tiles[1:] },
		"drop_group":   func(ts *Tileset) { ts.Tiles[7].ObjectGroup = nil },
		"tile_id":      func(ts *Tileset) { ts.Tiles[12].ID = 171 },
	}

	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			data, err := Marshal(base)
			require.NoError(t, err)
			changed, err := Parse(data, base.Path)
			require.NoError(t, err)

			mutate(changed)
			assert.Error(t, Equivalent(base, changed))
		})
	}
}

func TestEquivalentIgnoresOrder(t *testing.T) {
	a := &Tileset{Name: "x", Tiles: []Tile{
		{ID: 1, Image: Image{Width: 1, Height: 1, Source: "a.png"}, Properties: Properties{{Name: "A", Value: "1"}, {Name: "B", Value: "2"}}},
		{ID: 2, Image: Image{Width: 1, Height: 1, Source: "b.png"}},
	}}
	b := &Tileset{Name: "x", Tiles: []Tile{
		{ID: 2, Image: Image{Width: 1, Height: 1, Source: "b.png"}},
		{ID: 1, Image: Image{Width: 1, Height: 1, Source: "a.png"}, Properties: Properties{{Name: "B", Value: "2"}, {Name: "A", Value: "1"}}},
	}}
	assert.NoError(t, Equivalent(a, b))
}

func TestObjectCoordinatesWithoutExponent(t *testing.T) {
	ts := &Tileset{Name: "big", TileWidth: 1, TileHeight: 1, Tiles: []Tile{{
		ID:    0,
		Image: Image{Width: 1, Height: 1, Source: "a.png"},
		ObjectGroup: &ObjectGroup{Objects: []Object{
			{X: 1e6, Y: 0.00001, Width: 2.5, Height: 1e21},
		}},
	}}}

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, ts))
	assert.Contains(t, buf.String(), `x="1000000"`)
	assert.Contains(t, buf.String(), `y="0.00001"`)
	assert.NotContains(t, buf.String(), "e+")

	again, err := Decode(&buf)
	require.NoError(t, err)
	assert.NoError(t, Equivalent(ts, again))
}

const richTSX = `<?xml version="1.0" encoding="UTF-8"?>
<tileset version="1.10" tiledversion="1.10.2" name="Rich" tilewidth="16" tileheight="16" spacing="2" margin="1" tilecount="2" columns="0">
 <tileoffset x="0" y="4"/>
 <properties>
  <property name="author" value="level team"/>
  <property name="spawn" type="class" propertytype="Spawn">
   <properties>
    <property name="count" type="int" value="3"/>
   </properties>
  </property>
 </properties>
 <tile id="1" type="Coin" probability="0.5">
  <properties>
   <property name="desc">line one
line two</property>
  </properties>
  <image width="16" height="16" source="coin.png"/>
  <objectgroup draworder="index" id="2">
   <object id="1" x="1" y="2" width="10" height="8">
    <ellipse/>
   </object>
   <object id="2" x="4" y="4">
    <polygon points="0,0 8,0 4,6"/>
   </object>
  </objectgroup>
  <animation>
   <frame tileid="1" duration="100"/>
   <frame tileid="2" duration="100"/>
  </animation>
 </tile>
 <tile id="2">
  <image width="16" height="16" source="spike.png"/>
 </tile>
 <wangsets>
  <wangset name="ground" type="corner" tile="-1"/>
 </wangsets>
</tileset>
`

func TestDecodeKeepsUnmodeledData(t *testing.T) {
	ts, err := Parse([]byte(richTSX), "rich.tsx")
	require.NoError(t, err)

	assert.Equal(t, "level team", ts.Properties.String("author"))
	spawn, ok := ts.Properties.Get("spawn")
	require.True(t, ok)
	assert.Equal(t, "Spawn", spawn.PropertyType)
	assert.Empty(t, spawn.Value)
	count, ok, err := spawn.Properties.Int("count")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 3, count)

	assert.Equal(t, []xml.Attr{
		{Name: xml.Name{Local: "spacing"}, Value: "2"},
		{Name: xml.Name{Local: "margin"}, Value: "1"},
	}, ts.Attrs)
	require.Len(t, ts.Extra, 2)
	assert.Equal(t, "tileoffset", ts.Extra[0].XMLName.Local)
	assert.Equal(t, "wangsets", ts.Extra[1].XMLName.Local)

	coin, ok := ts.Tile(1)
	require.True(t, ok)
	desc, ok := coin.Properties.Get("desc")
	require.True(t, ok)
	assert.Equal(t, "line one\nline two", desc.Value)
	assert.True(t, desc.TextValue)
	require.Len(t, coin.Extra, 1)
	assert.Equal(t, "animation", coin.Extra[0].XMLName.Local)
	assert.Contains(t, coin.Extra[0].Inner, `<frame tileid="2" duration="100"/>`)
	assert.Len(t, coin.Attrs, 2)

	objs := coin.ObjectGroup.Objects
	require.Len(t, objs, 2)
	assert.NotNil(t, objs[0].Ellipse)
	require.NotNil(t, objs[1].Polygon)
	assert.Equal(t, "0,0 8,0 4,6", objs[1].Polygon.Points)
	assert.Equal(t, []Rect{{X: 1, Y: 2, W: 10, H: 8}, {X: 4, Y: 4, W: 8, H: 6}}, coin.Hitboxes())
}

func TestRoundTripKeepsUnmodeledData(t *testing.T) {
	ts, err := Parse([]byte(richTSX), "rich.tsx")
	require.NoError(t, err)

	out, err := Marshal(ts)
	require.NoError(t, err)

	text := string(out)
	assert.Contains(t, text, "line one\nline two</property>")
	assert.Contains(t, text, `<property name="author" value="level team"></property>`)
	assert.Contains(t, text, `spacing="2" margin="1"`)
	assert.Contains(t, text, `probability="0.5"`)
	assert.Contains(t, text, "<ellipse></ellipse>")
	assert.Contains(t, text, `<polygon points="0,0 8,0 4,6"></polygon>`)
	assert.Contains(t, text, `<wangset name="ground" type="corner" tile="-1"/>`)
	assert.NotContains(t, text, `width="0"`)

	assert.NoError(t, DiffDocuments([]byte(richTSX), out))

	again, err := Parse(out, ts.Path)
	require.NoError(t, err)
	assert.NoError(t, Equivalent(ts, again))

	second, err := Marshal(again)
	require.NoError(t, err)
	assert.Equal(t, out, second)
}

func TestEquivalentDetectsUnmodeledChanges(t *testing.T) {
	mutations := map[string]func(ts *Tileset){
		"tileset_property": func(ts *Tileset) { ts.Properties[0].Value = "someone else" },
		"class_member":     func(ts *Tileset) { ts.Properties[1].Properties[0].Value = "4" },
		"text_property":    func(ts *Tileset) { ts.Tiles[0].Properties[0].Value = "line one" },
		"tileset_attr":     func(ts *Tileset) { ts.Attrs = ts.Attrs[:1] },
		"extra_element":    func(ts *Tileset) { ts.Extra = ts.Extra[1:] },
		"tile_extra":       func(ts *Tileset) { ts.Tiles[0].Extra[0].Inner = "" },
		"ellipse":          func(ts *Tileset) { ts.Tiles[0].ObjectGroup.Objects[0].Ellipse = nil },
		"polygon":          func(ts *Tileset) { ts.Tiles[0].ObjectGroup.Objects[1].Polygon.Points = "0,0 1,1" },
	}

	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			base, err := Parse([]byte(richTSX), "rich.tsx")
			require.NoError(t, err)
			changed, err := Parse([]byte(richTSX), "rich.tsx")
			require.NoError(t, err)

			mutate(changed)
			assert.Error(t, Equivalent(base, changed))
		})
	}
}
