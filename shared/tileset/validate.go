package tileset

import (
	"errors"
	"fmt"
	"math"
)

// Severity of a validation issue.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Rule names reported by Validate and CheckResources.
const (
	RuleUniqueID        = "unique-id"
	RuleImageSize       = "image-size"
	RuleImageSource     = "image-source"
	RuleImageMissing    = "image-missing"
	RuleImageDecode     = "image-decode"
	RuleImageDimensions = "image-dimensions"
	RuleRectSize        = "rect-size"
	RuleShapePoints     = "shape-points"
	RulePropertyType    = "property-type"
	RuleTileCount       = "tile-count"
	RuleTileSize        = "tile-size"
	RuleHitboxBounds    = "hitbox-bounds"
	RuleUnknownType     = "unknown-type"
	RuleParse           = "parse"
)

// DefaultBoundsTolerance is how many pixels a hitbox may reach outside its
// image before RuleHitboxBounds fires.
const DefaultBoundsTolerance = 8.0

// Issue is a single finding.
type Issue struct {
	Rule     string   `json:"rule"`
	Severity Severity `json:"severity"`
	TileID   *uint32  `json:"tileId,omitempty"`
	Message  string   `json:"message"`
}

func (i Issue) String() string {
	if i.TileID != nil {
		return fmt.Sprintf("%s [%s] tile %d: %s", i.Severity, i.Rule, *i.TileID, i.Message)
	}
	return fmt.Sprintf("%s [%s] %s", i.Severity, i.Rule, i.Message)
}

// TileIssue builds an issue attached to a tile.
func TileIssue(id uint32, rule string, sev Severity, format string, args ...any) Issue {
	return Issue{Rule: rule, Severity: sev, TileID: &id, Message: fmt.Sprintf(format, args...)}
}

// Report collects the issues found for one tileset.
type Report struct {
	Tileset string  `json:"tileset"`
	Issues  []Issue `json:"issues"`
}

// Add appends issues to the report.
func (r *Report) Add(issues ...Issue) {
	r.Issues = append(r.Issues, issues...)
}

// Merge appends every issue of o.
func (r *Report) Merge(o Report) {
	r.Issues = append(r.Issues, o.Issues...)
}

// Errors returns the error-severity issues.
func (r Report) Errors() []Issue { return r.filter(SeverityError) }

// Warnings returns the warning-severity issues.
func (r Report) Warnings() []Issue { return r.filter(SeverityWarning) }

func (r Report) filter(sev Severity) []Issue {
	var out []Issue
	for _, i := range r.Issues {
		if i.Severity == sev {
			out = append(out, i)
		}
	}
	return out
}

// Err returns a *ValidationError when the report holds errors.
func (r Report) Err() error {
	errs := r.Errors()
	if len(errs) == 0 {
		return nil
	}
	return &ValidationError{Tileset: r.Tileset, Issues: errs}
}

// ValidateOptions tunes Validate.
type ValidateOptions struct {
	// Classifier enables RuleUnknownType when set. Its policy picks the
	// severity: strict is an error, default a warning.
	Classifier *Classifier

	// BoundsTolerance in pixels; negative disables RuleHitboxBounds.
	BoundsTolerance float64
}

// DefaultValidateOptions uses the default class table and tolerance.
func DefaultValidateOptions() ValidateOptions {
	return ValidateOptions{
		Classifier:      NewClassifier(nil, PolicyDefault),
		BoundsTolerance: DefaultBoundsTolerance,
	}
}

// Validate checks the data invariants of a tileset. It never touches the
// filesystem; see CheckResources for image resolution.
func Validate(ts *Tileset, opts ValidateOptions) Report {
	report := Report{Tileset: ts.Name}

	if ts.TileWidth <= 0 || ts.TileHeight <= 0 {
		report.Add(Issue{
			Rule:     RuleTileSize,
			Severity: SeverityWarning,
			Message:  fmt.Sprintf("tile size %dx%d is not positive", ts.TileWidth, ts.TileHeight),
		})
	}
	if ts.TileCount != len(ts.Tiles) {
		report.Add(Issue{
			Rule:     RuleTileCount,
			Severity: SeverityWarning,
			Message:  fmt.Sprintf("tilecount is %d but %d tiles are defined", ts.TileCount, len(ts.Tiles)),
		})
	}

	seen := make(map[uint32]bool, len(ts.Tiles))
	for i := range ts.Tiles {
		t := &ts.Tiles[i]
		if seen[t.ID] {
			report.Add(TileIssue(t.ID, RuleUniqueID, SeverityError, "duplicate tile id"))
		}
		seen[t.ID] = true

		report.Add(validateTile(t, opts)...)
	}

	return report
}

func validateTile(t *Tile, opts ValidateOptions) []Issue {
	var issues []Issue

	if t.Image.Width <= 0 || t.Image.Height <= 0 {
		issues = append(issues, TileIssue(t.ID, RuleImageSize, SeverityError,
			"image size %dx%d is not positive", t.Image.Width, t.Image.Height))
	}
	if t.Image.Source == "" {
		issues = append(issues, TileIssue(t.ID, RuleImageSource, SeverityError, "image has no source"))
	}

	if t.ObjectGroup != nil {
		for _, o := range t.ObjectGroup.Objects {
			switch {
			case !finite(o.X) || !finite(o.Y):
				issues = append(issues, TileIssue(t.ID, RuleRectSize, SeverityError,
					"object %d has non-finite position %s,%s", o.ID, formatFloat(o.X), formatFloat(o.Y)))
				continue
			case !(o.Width >= 0) || !(o.Height >= 0) || math.IsInf(o.Width, 1) || math.IsInf(o.Height, 1):
				issues = append(issues, TileIssue(t.ID, RuleRectSize, SeverityError,
					"object %d size %sx%s is not a finite non-negative size", o.ID, formatFloat(o.Width), formatFloat(o.Height)))
				continue
			}
			if pts := o.shapePoints(); pts != nil {
				if _, err := pts.Vertices(); err != nil {
					issues = append(issues, TileIssue(t.ID, RuleShapePoints, SeverityError, "object %d: %v", o.ID, err))
					continue
				}
			}
			if opts.BoundsTolerance < 0 {
				continue
			}
			bleed := o.Bounds().Bleed(float64(t.Image.Width), float64(t.Image.Height))
			if bleed.Max() > opts.BoundsTolerance {
				issues = append(issues, TileIssue(t.ID, RuleHitboxBounds, SeverityWarning,
					"object %d reaches %spx outside the image", o.ID, formatFloat(bleed.Max())))
			}
		}
	}

	for _, p := range t.Properties {
		if err := p.check(); err != nil {
			issues = append(issues, TileIssue(t.ID, RulePropertyType, SeverityError, "%s value %q: %v", p.Type, p.Value, errors.Unwrap(err)))
		}
	}

	if opts.Classifier != nil {
		class, err := opts.Classifier.Classify(t)
		if err != nil {
			issues = append(issues, TileIssue(t.ID, RuleUnknownType, SeverityError, "%v", err))
		} else if class == ClassUnknown {
			issues = append(issues, TileIssue(t.ID, RuleUnknownType, SeverityWarning,
				"%s value %q is not in the class table", opts.Classifier.Property, t.Properties.String(opts.Classifier.Property)))
		}
	}

	return issues
}
