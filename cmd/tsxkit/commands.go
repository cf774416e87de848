package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/automoto/tsxkit/cache"
	"github.com/automoto/tsxkit/config"
	"github.com/automoto/tsxkit/export"
	"github.com/automoto/tsxkit/rules"
	"github.com/automoto/tsxkit/server/core"
	"github.com/automoto/tsxkit/shared/collision"
	"github.com/automoto/tsxkit/shared/leveldata"
	"github.com/automoto/tsxkit/shared/tileset"
	"github.com/rs/zerolog/log"
)

type ValidateCmd struct {
	Files []string `arg:"" type:"existingfile" help:"Tileset files."`

	Resources bool     `negatable:"" default:"${resources}" help:"Check that every image exists."`
	Decode    bool     `negatable:"" default:"${decode}" help:"Decode images and compare their size."`
	Policy    string   `enum:"default,strict" default:"${policy}" help:"How to treat unknown Type values (default, strict)."`
	Tolerance float64  `default:"${tolerance}" help:"Pixels a hitbox may reach outside its image; negative disables."`
	Rules     []string `type:"path" help:"Tengo rule files or directories, added to the configured ones."`
	Cache     bool     `negatable:"" default:"${cache}" help:"Reuse reports of unchanged files."`
	JSON      bool     `help:"Print reports as JSON."`
}

// apply copies the flags onto the active configuration.
func (c *ValidateCmd) apply() {
	config.Validate.CheckResources = c.Resources
	config.Validate.DecodeImages = c.Decode
	config.Validate.Policy = c.Policy
	config.Validate.BoundsTolerance = c.Tolerance
	config.Validate.Rules = append(config.Validate.Rules, c.Rules...)
	config.Cache.Enabled = c.Cache
}

func (c *ValidateCmd) Run(g *Globals) error {
	c.apply()

	opts, err := config.ValidateOptions()
	if err != nil {
		return err
	}

	var ruleSet []*rules.Rule
	for _, p := range config.Validate.Rules {
		loaded, err := rules.LoadPath(p)
		if err != nil {
			return err
		}
		ruleSet = append(ruleSet, loaded...)
	}

	var reports *cache.Cache
	if config.Cache.Enabled {
		reports, _ = cache.Open(config.Cache.AppName)
	}

	catOpts := core.Options{
		Validate:       opts,
		CheckResources: config.Validate.CheckResources,
		Resources:      config.ResourceOptions(),
		Rules:          ruleSet,
		Cache:          reports,
		Fingerprint:    config.Fingerprint(),
	}

	ctx := context.Background()
	failed := false
	var all []tileset.Report
	for _, file := range c.Files {
		fsys, name := tileset.OpenDir(file)
		entry, err := core.NewCatalog(fsys, catOpts).Load(ctx, name)
		if entry == nil {
			return err
		}
		entry.Report.Tileset = file
		log.Debug().Str("file", file).Bool("cached", entry.Cached).Msg("validated")

		if len(entry.Report.Errors()) > 0 {
			failed = true
		}
		if c.JSON {
			all = append(all, entry.Report)
			continue
		}
		printReport(g, entry.Report)
	}

	if c.JSON {
		enc := json.NewEncoder(g.Out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(all); err != nil {
			return err
		}
	}
	if failed {
		return errIssues
	}
	return nil
}

func printReport(g *Globals, r tileset.Report) {
	if len(r.Issues) == 0 {
		fmt.Fprintf(g.Out, "%s: ok\n", r.Tileset)
		return
	}
	fmt.Fprintf(g.Out, "%s: %d errors, %d warnings\n", r.Tileset, len(r.Errors()), len(r.Warnings()))
	for _, issue := range r.Issues {
		fmt.Fprintf(g.Out, "  %s\n", issue)
	}
}

type DumpCmd struct {
	File   string `arg:"" type:"existingfile" help:"Tileset file."`
	Format string `short:"f" enum:"tsx,json,yaml,cbor" default:"json" help:"Output format (tsx, json, yaml, cbor)."`
	Output string `short:"o" type:"path" help:"Write to a file instead of stdout."`
}

func (c *DumpCmd) Run(g *Globals) error {
	ts, err := tileset.LoadFile(c.File)
	if err != nil {
		return err
	}
	format, err := export.ParseFormat(c.Format)
	if err != nil {
		return err
	}

	if c.Output == "" {
		return export.Write(g.Out, ts, format)
	}
	var buf bytes.Buffer
	if err := export.Write(&buf, ts, format); err != nil {
		return err
	}
	return os.WriteFile(c.Output, buf.Bytes(), 0o644)
}

type FmtCmd struct {
	Files []string `arg:"" type:"existingfile" help:"Tileset files."`
	Write bool     `short:"w" help:"Write the result back to the file instead of stdout."`
	List  bool     `short:"l" help:"List files whose formatting differs. Combines with -w."`
}

func (c *FmtCmd) Run(g *Globals) error {
	for _, file := range c.Files {
		orig, err := os.ReadFile(file)
		if err != nil {
			return err
		}
		ts, err := tileset.Parse(orig, file)
		if err != nil {
			return err
		}
		out, err := tileset.Marshal(ts)
		if err != nil {
			return err
		}

		back, err := tileset.Parse(out, file)
		if err != nil {
			return fmt.Errorf("%s: formatted output does not parse: %w", file, err)
		}
		if err := tileset.Equivalent(ts, back); err != nil {
			return fmt.Errorf("%s: formatting would change the tileset: %w", file, err)
		}
		if err := tileset.DiffDocuments(orig, out); err != nil {
			return fmt.Errorf("%s: formatting would lose data: %w", file, err)
		}

		changed := !bytes.Equal(orig, out)
		if c.List && changed {
			fmt.Fprintln(g.Out, file)
		}
		if c.Write && changed {
			if err := os.WriteFile(file, out, 0o644); err != nil {
				return err
			}
		}
		if !c.List && !c.Write {
			if _, err := g.Out.Write(out); err != nil {
				return err
			}
		}
	}
	return nil
}

type ClassifyCmd struct {
	File   string `arg:"" type:"existingfile" help:"Tileset file."`
	Policy string `enum:"default,strict" default:"${policy}" help:"How to treat unknown Type values (default, strict)."`
}

func (c *ClassifyCmd) Run(g *Globals) error {
	config.Validate.Policy = c.Policy

	ts, err := tileset.LoadFile(c.File)
	if err != nil {
		return err
	}
	classifier, err := config.Classifier()
	if err != nil {
		return err
	}

	index, err := classifier.ClassifyAll(ts)
	for _, class := range tileset.SortedClasses(index) {
		fmt.Fprintf(g.Out, "%s: %s\n", class, joinIDs(index[class]))
	}
	return err
}

type HitboxesCmd struct {
	File     string  `arg:"" type:"existingfile" help:"Tileset file."`
	Scale    float64 `default:"${scale}" help:"Multiply rectangles by this factor."`
	FullTile bool    `negatable:"" default:"${fulltile}" help:"Give tiles without an object group a full-image box."`
}

func (c *HitboxesCmd) Run(g *Globals) error {
	ts, err := tileset.LoadFile(c.File)
	if err != nil {
		return err
	}
	for i := range ts.Tiles {
		t := &ts.Tiles[i]
		boxes := tileset.HitboxFor(t, c.FullTile)
		if len(boxes) == 0 {
			fmt.Fprintf(g.Out, "%d: none\n", t.ID)
			continue
		}
		parts := make([]string, 0, len(boxes))
		for _, b := range boxes {
			b = b.Scale(c.Scale)
			parts = append(parts, fmt.Sprintf("(%g,%g %gx%g)", b.X, b.Y, b.W, b.H))
		}
		fmt.Fprintf(g.Out, "%d: %s\n", t.ID, strings.Join(parts, " "))
	}
	return nil
}

type AuditCmd struct {
	Tileset string `arg:"" type:"existingfile" help:"Tileset file."`
	Levels  string `arg:"" type:"existingdir" help:"Directory of .tmx levels."`
	Root    string `type:"existingdir" default:"." help:"Directory the levels and their tileset references live under."`
	JSON    bool   `help:"Print usage as JSON."`
}

func (c *AuditCmd) Run(g *Globals) error {
	ts, err := tileset.LoadFile(c.Tileset)
	if err != nil {
		return err
	}
	dir, err := relTo(c.Root, c.Levels)
	if err != nil {
		return err
	}

	levels, names, err := leveldata.LoadAllUsage(os.DirFS(c.Root), dir, ts)
	if err != nil {
		return err
	}

	usages := make([]*leveldata.Usage, 0, len(names))
	for _, name := range names {
		usages = append(usages, levels[name])
	}
	unused := leveldata.Unused(ts.IDs(), usages...)

	if c.JSON {
		enc := json.NewEncoder(g.Out)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{"levels": levels, "unused": unused})
	}

	for _, name := range names {
		u := levels[name]
		fmt.Fprintf(g.Out, "%s (%dx%d)\n", name, u.Width, u.Height)
		for _, layer := range u.Layers {
			if len(layer.Counts) == 0 {
				continue
			}
			fmt.Fprintf(g.Out, "  %s: %s\n", layer.Name, formatCounts(layer.Counts))
		}
		for _, m := range u.Missing {
			fmt.Fprintf(g.Out, "  missing tile %d in %s at %d,%d\n", m.TileID, m.Layer, m.Col, m.Row)
		}
	}
	fmt.Fprintf(g.Out, "unused: %s\n", joinIDs(unused))
	return nil
}

type ProbeCmd struct {
	Tileset string   `arg:"" type:"existingfile" help:"Tileset file."`
	Level   string   `arg:"" type:"existingfile" help:"Level .tmx file."`
	Root    string   `type:"existingdir" default:"." help:"Directory the level and its tileset reference live under."`
	Layer   []string `help:"Only consider these layers."`
	Class   string   `help:"Only report tiles of this class."`
	X       float64  `help:"Probe left edge, in scaled pixels."`
	Y       float64  `help:"Probe top edge, in scaled pixels."`
	W       float64  `default:"1" help:"Probe width."`
	H       float64  `default:"1" help:"Probe height."`
	Cell    []int    `help:"Probe a whole grid cell given as col,row instead of a rectangle."`
	Scale   float64  `default:"${scale}" help:"World scale of the level."`
}

func (c *ProbeCmd) Run(g *Globals) error {
	ts, err := tileset.LoadFile(c.Tileset)
	if err != nil {
		return err
	}
	level, err := relTo(c.Root, c.Level)
	if err != nil {
		return err
	}
	usage, err := leveldata.LoadUsage(os.DirFS(c.Root), level, ts)
	if err != nil {
		return err
	}
	classifier, err := config.Classifier()
	if err != nil {
		return err
	}

	opts := config.CollisionOptions()
	opts.Scale = c.Scale
	space, err := collision.NewSpace(ts, classifier, usage.Placements(c.Layer...), opts)
	if err != nil {
		return err
	}

	var tags []string
	if c.Class != "" {
		tags = append(tags, collision.ClassTag(tileset.Class(c.Class)))
	}

	var hits []collision.Hit
	switch len(c.Cell) {
	case 0:
		hits = space.Probe(tileset.Rect{X: c.X, Y: c.Y, W: c.W, H: c.H}, tags...)
	case 2:
		hits = space.ProbeCell(c.Cell[0], c.Cell[1], tags...)
	default:
		return fmt.Errorf("--cell wants col,row")
	}

	if len(hits) == 0 {
		fmt.Fprintln(g.Out, "no hits")
		return nil
	}
	for _, h := range hits {
		fmt.Fprintf(g.Out, "tile %d (%s) in %s at %d,%d: (%g,%g %gx%g)\n",
			h.TileID, h.Class, h.Layer, h.Col, h.Row, h.Rect.X, h.Rect.Y, h.Rect.W, h.Rect.H)
	}
	return nil
}

// relTo turns an OS path into a slash path inside root for os.DirFS.
func relTo(root, p string) (string, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", err
	}
	absPath, err := filepath.Abs(p)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(absRoot, absPath)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s is outside %s; pass --root", p, root)
	}
	return filepath.ToSlash(rel), nil
}

func joinIDs(ids []uint32) string {
	if len(ids) == 0 {
		return "-"
	}
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprint(id)
	}
	return strings.Join(parts, " ")
}

func formatCounts(counts map[uint32]int) string {
	ids := make([]uint32, 0, len(counts))
	for id := range counts {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprintf("%dx%d", id, counts[id])
	}
	return strings.Join(parts, " ")
}
