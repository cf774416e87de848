// Package rules runs project-specific validation rules written in Tengo.
//
// A rule script is run once per tile. It sees two globals, `tile` and
// `tileset`, and reports findings through `report(rule, message)` (error
// severity) or `warn(rule, message)`:
//
//	if tile.properties.Type == 1 && len(tile.hitboxes) == 0 {
//		report("coin-hitbox", "collectibles need a hitbox")
//	}
package rules

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/automoto/tsxkit/shared/tileset"
	"github.com/d5/tengo/v2"
	"github.com/d5/tengo/v2/stdlib"
)

// Ext is the file extension LoadDir looks for.
const Ext = ".tengo"

// Rule is a compiled rule script.
type Rule struct {
	Name     string
	compiled *tengo.Compiled
}

// Load compiles src. The script may import any Tengo stdlib module.
func Load(name string, src []byte) (*Rule, error) {
	script := tengo.NewScript(src)
	_ = script.Add("tile", map[string]interface{}{})
	_ = script.Add("tileset", map[string]interface{}{})
	_ = script.Add("report", noop)
	_ = script.Add("warn", noop)

	script.SetImports(stdlib.GetModuleMap(stdlib.AllModuleNames()...))

	compiled, err := script.Compile()
	if err != nil {
		return nil, fmt.Errorf("compile rule %s: %w", name, err)
	}
	return &Rule{Name: name, compiled: compiled}, nil
}

// LoadDir compiles every *.tengo file in dir, ordered by name.
func LoadDir(fsys fs.FS, dir string) ([]*Rule, error) {
	matches, err := fs.Glob(fsys, path.Join(dir, "*"+Ext))
	if err != nil {
		return nil, fmt.Errorf("glob %s: %w", dir, err)
	}
	sort.Strings(matches)

	out := make([]*Rule, 0, len(matches))
	for _, m := range matches {
		src, err := fs.ReadFile(fsys, m)
		if err != nil {
			return nil, fmt.Errorf("read rule %s: %w", m, err)
		}
		r, err := Load(strings.TrimSuffix(path.Base(m), Ext), src)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// LoadPath compiles a single .tengo file, or every one in a directory.
func LoadPath(p string) ([]*Rule, error) {
	info, err := os.Stat(p)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return LoadDir(os.DirFS(p), ".")
	}
	src, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("read rule %s: %w", p, err)
	}
	r, err := Load(strings.TrimSuffix(filepath.Base(p), Ext), src)
	if err != nil {
		return nil, err
	}
	return []*Rule{r}, nil
}

// Run evaluates the rule against every tile of ts.
func (r *Rule) Run(ts *tileset.Tileset) ([]tileset.Issue, error) {
	return r.RunContext(context.Background(), ts)
}

// RunContext is Run with a context that aborts a long-running script.
func (r *Rule) RunContext(ctx context.Context, ts *tileset.Tileset) ([]tileset.Issue, error) {
	c := r.compiled.Clone()
	if err := c.Set("tileset", tilesetObject(ts)); err != nil {
		return nil, err
	}

	var issues []tileset.Issue
	for i := range ts.Tiles {
		tile := &ts.Tiles[i]
		if err := c.Set("tile", tileObject(tile)); err != nil {
			return nil, err
		}
		if err := c.Set("report", reporter("report", tile.ID, tileset.SeverityError, &issues)); err != nil {
			return nil, err
		}
		if err := c.Set("warn", reporter("warn", tile.ID, tileset.SeverityWarning, &issues)); err != nil {
			return nil, err
		}
		if err := c.RunContext(ctx); err != nil {
			return issues, fmt.Errorf("rule %s on tile %d: %w", r.Name, tile.ID, err)
		}
	}
	return issues, nil
}

// RunAll runs every rule and collects the issues into one report.
func RunAll(ctx context.Context, rules []*Rule, ts *tileset.Tileset) (tileset.Report, error) {
	report := tileset.Report{Tileset: ts.Name}
	for _, r := range rules {
		issues, err := r.RunContext(ctx, ts)
		report.Add(issues...)
		if err != nil {
			return report, err
		}
	}
	return report, nil
}

var noop = &tengo.UserFunction{Name: "noop", Value: func(args ...tengo.Object) (tengo.Object, error) {
	return tengo.UndefinedValue, nil
}}

func reporter(name string, id uint32, sev tileset.Severity, issues *[]tileset.Issue) *tengo.UserFunction {
	return &tengo.UserFunction{Name: name, Value: func(args ...tengo.Object) (tengo.Object, error) {
		if len(args) != 2 {
			return nil, tengo.ErrWrongNumArguments
		}
		rule := strings.TrimSpace(objectAsString(args[0]))
		if rule == "" {
			return tengo.FalseValue, nil
		}
		*issues = append(*issues, tileset.TileIssue(id, rule, sev, "%s", objectAsString(args[1])))
		return tengo.TrueValue, nil
	}}
}

func tilesetObject(ts *tileset.Tileset) map[string]interface{} {
	return map[string]interface{}{
		"name":        ts.Name,
		"tile_width":  ts.TileWidth,
		"tile_height": ts.TileHeight,
		"tile_count":  ts.TileCount,
	}
}

func tileObject(t *tileset.Tile) map[string]interface{} {
	props := make(map[string]interface{}, len(t.Properties))
	for _, p := range t.Properties {
		props[p.Name] = propertyValue(p)
	}

	var boxes []interface{}
	for _, r := range t.Hitboxes() {
		boxes = append(boxes, map[string]interface{}{
			"x": r.X, "y": r.Y, "width": r.W, "height": r.H,
		})
	}

	return map[string]interface{}{
		"id":         int64(t.ID),
		"image":      t.Image.Source,
		"width":      t.Image.Width,
		"height":     t.Image.Height,
		"properties": props,
		"hitboxes":   boxes,
	}
}

// propertyValue converts a typed property to its Go value, falling back to
// the raw string when the value does not parse.
func propertyValue(p tileset.Property) interface{} {
	switch p.Type {
	case "int":
		if v, err := p.Int(); err == nil {
			return v
		}
	case "float":
		if v, err := p.Float(); err == nil {
			return v
		}
	case "bool":
		if v, err := p.Bool(); err == nil {
			return v
		}
	}
	return p.Value
}

func objectAsString(obj tengo.Object) string {
	if obj == nil {
		return ""
	}
	switch v := obj.(type) {
	case *tengo.String:
		return v.Value
	default:
		return strings.Trim(v.String(), "\"")
	}
}
