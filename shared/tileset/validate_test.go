package tileset

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rulesOf(issues []Issue) []string {
	out := make([]string, 0, len(issues))
	for _, i := range issues {
		out = append(out, i.Rule)
	}
	return out
}

func TestValidateFixtureIsClean(t *testing.T) {
	ts := loadFixture(t)

	report := Validate(ts, DefaultValidateOptions())
	assert.Empty(t, report.Issues)
	assert.NoError(t, report.Err())
	assert.Equal(t, "Tiles", report.Tileset)
}

func TestValidateHitboxTolerance(t *testing.T) {
	ts := loadFixture(t)

	opts := DefaultValidateOptions()
	opts.BoundsTolerance = 2
	report := Validate(ts, opts)

	require.Len(t, report.Issues, 1)
	issue := report.Issues[0]
	assert.Equal(t, RuleHitboxBounds, issue.Rule)
	assert.Equal(t, SeverityWarning, issue.Severity)
	require.NotNil(t, issue.TileID)
	assert.Equal(t, uint32(162), *issue.TileID)
	assert.NoError(t, report.Err(), "warnings alone do not fail")

	opts.BoundsTolerance = -1
	assert.Empty(t, Validate(ts, opts).Issues)
}

func TestValidateRules(t *testing.T) {
	img := Image{Width: 16, Height: 16, Source: "a.png"}

	cases := []struct {
		name  string
		ts    *Tileset
		rules []string
	}{
		{
			name: "duplicate_id",
			ts: &Tileset{Name: "d", TileWidth: 16, TileHeight: 16, TileCount: 2, Tiles: []Tile{
				{ID: 3, Image: img}, {ID: 3, Image: img},
			}},
			rules: []string{RuleUniqueID},
		},
		{
			name: "bad_image",
			ts: &Tileset{Name: "i", TileWidth: 16, TileHeight: 16, TileCount: 1, Tiles: []Tile{
				{ID: 1, Image: Image{Width: 0, Height: 16}},
			}},
			rules: []string{RuleImageSize, RuleImageSource},
		},
		{
			name: "negative_rect",
			ts: &Tileset{Name: "r", TileWidth: 16, TileHeight: 16, TileCount: 1, Tiles: []Tile{
				{ID: 1, Image: img, ObjectGroup: &ObjectGroup{Objects: []Object{{ID: 4, Width: -1, Height: 3}}}},
			}},
			rules: []string{RuleRectSize},
		},
		{
			name: "non_finite_rect",
			ts: &Tileset{Name: "n", TileWidth: 16, TileHeight: 16, TileCount: 1, Tiles: []Tile{
				{ID: 1, Image: img, ObjectGroup: &ObjectGroup{Objects: []Object{
					{ID: 1, Width: math.NaN(), Height: 3},
					{ID: 2, Width: 3, Height: math.Inf(1)},
					{ID: 3, X: math.NaN(), Width: 3, Height: 3},
					{ID: 4, Width: 3, Height: math.NaN()},
				}}},
			}},
			rules: []string{RuleRectSize, RuleRectSize, RuleRectSize, RuleRectSize},
		},
		{
			name: "bad_polygon",
			ts: &Tileset{Name: "s", TileWidth: 16, TileHeight: 16, TileCount: 1, Tiles: []Tile{
				{ID: 1, Image: img, ObjectGroup: &ObjectGroup{Objects: []Object{
					{ID: 1, Polygon: &Points{Points: "0,0 4"}},
					{ID: 2, Polyline: &Points{Points: "0,0 NaN,2"}},
					{ID: 3, X: 2, Y: 2, Polygon: &Points{Points: "0,0 8,0 4,6"}},
				}}},
			}},
			rules: []string{RuleShapePoints, RuleShapePoints},
		},
		{
			name: "property_types",
			ts: &Tileset{Name: "p", TileWidth: 16, TileHeight: 16, TileCount: 1, Tiles: []Tile{
				{ID: 1, Image: img, Properties: Properties{
					{Name: "Count", Type: "int", Value: "1.5"},
					{Name: "Speed", Type: "float", Value: "fast"},
					{Name: "On", Type: "bool", Value: "yes"},
					{Name: "Label", Value: "anything"},
				}},
			}},
			rules: []string{RulePropertyType, RulePropertyType, RulePropertyType},
		},
		{
			name: "tileset_header",
			ts: &Tileset{Name: "h", TileCount: 5, Tiles: []Tile{
				{ID: 1, Image: img},
			}},
			rules: []string{RuleTileSize, RuleTileCount},
		},
		{
			name: "unknown_type",
			ts: &Tileset{Name: "u", TileWidth: 16, TileHeight: 16, TileCount: 2, Tiles: []Tile{
				{ID: 1, Image: img, Properties: Properties{{Name: "Type", Type: "int", Value: "9"}}},
				{ID: 2, Image: img, Properties: Properties{{Name: "Type", Type: "int", Value: "2"}}},
			}},
			rules: []string{RuleUnknownType},
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			report := Validate(c.ts, DefaultValidateOptions())
			assert.ElementsMatch(t, c.rules, rulesOf(report.Issues))
		})
	}
}

func TestValidateUnknownTypePolicy(t *testing.T) {
	ts := &Tileset{Name: "u", TileWidth: 16, TileHeight: 16, TileCount: 1, Tiles: []Tile{
		{ID: 7, Image: Image{Width: 16, Height: 16, Source: "a.png"}, Properties: Properties{{Name: "Type", Type: "int", Value: "3"}}},
	}}

	lenient := Validate(ts, DefaultValidateOptions())
	require.Len(t, lenient.Issues, 1)
	assert.Equal(t, SeverityWarning, lenient.Issues[0].Severity)
	assert.NoError(t, lenient.Err())

	opts := DefaultValidateOptions()
	opts.Classifier = NewClassifier(nil, PolicyStrict)
	strict := Validate(ts, opts)
	require.Len(t, strict.Issues, 1)
	assert.Equal(t, SeverityError, strict.Issues[0].Severity)

	err := strict.Err()
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "u", ve.Tileset)
	assert.Len(t, ve.Issues, 1)
	assert.Contains(t, err.Error(), "tile 7")

	opts.Classifier = nil
	assert.Empty(t, Validate(ts, opts).Issues)
}

func TestReportFilters(t *testing.T) {
	r := Report{Tileset: "x"}
	r.Add(TileIssue(1, RuleRectSize, SeverityError, "a"), TileIssue(2, RuleHitboxBounds, SeverityWarning, "b"))
	r.Merge(Report{Issues: []Issue{{Rule: RuleTileCount, Severity: SeverityWarning, Message: "c"}}})

	assert.Len(t, r.Errors(), 1)
	assert.Len(t, r.Warnings(), 2)
	assert.Equal(t, "error [rect-size] tile 1: a", r.Issues[0].String())
	assert.Equal(t, "warning [tile-count] c", r.Issues[2].String())
}
