package core

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/automoto/tsxkit/cache"
	"github.com/automoto/tsxkit/rules"
	"github.com/automoto/tsxkit/shared/tileset"
	"github.com/rs/zerolog/log"
	"github.com/sasha-s/go-deadlock"
	"golang.org/x/sync/errgroup"
)

// Options controls how the catalog validates what it loads.
type Options struct {
	Validate       tileset.ValidateOptions
	CheckResources bool
	Resources      tileset.ResourceOptions
	Rules          []*rules.Rule

	// Cache, when set, skips the structural checks of unchanged files.
	// Image and rule checks depend on other files and always run.
	// Fingerprint must change whenever Validate does.
	Cache       *cache.Cache
	Fingerprint string

	// LoadConcurrency bounds LoadDir; 0 means 4.
	LoadConcurrency int
}

// Entry is one tileset file known to the catalog.
type Entry struct {
	Name     string
	Path     string
	Tileset  *tileset.Tileset
	Report   tileset.Report
	LoadedAt time.Time
	Cached   bool

	// Err is set when the file could not be parsed; Tileset is nil then.
	Err error
}

// Summary is the listing view of an entry.
type Summary struct {
	Name     string    `json:"name"`
	Path     string    `json:"path"`
	Tileset  string    `json:"tileset,omitempty"`
	Tiles    int       `json:"tiles"`
	Errors   int       `json:"errors"`
	Warnings int       `json:"warnings"`
	LoadedAt time.Time `json:"loadedAt"`
	Error    string    `json:"error,omitempty"`
}

func (e *Entry) summary() Summary {
	s := Summary{
		Name:     e.Name,
		Path:     e.Path,
		Errors:   len(e.Report.Errors()),
		Warnings: len(e.Report.Warnings()),
		LoadedAt: e.LoadedAt,
	}
	if e.Tileset != nil {
		s.Tileset = e.Tileset.Name
		s.Tiles = len(e.Tileset.Tiles)
	}
	if e.Err != nil {
		s.Error = e.Err.Error()
	}
	return s
}

// Catalog is an in-memory store of the tilesets in one directory, keyed by
// file name without extension.
type Catalog struct {
	mu      deadlock.RWMutex
	fsys    fs.FS
	opts    Options
	entries map[string]*Entry
}

func NewCatalog(fsys fs.FS, opts Options) *Catalog {
	return &Catalog{
		fsys:    fsys,
		opts:    opts,
		entries: make(map[string]*Entry),
	}
}

// EntryName is the catalog key for a tileset path.
func EntryName(p string) string {
	return strings.TrimSuffix(path.Base(p), path.Ext(p))
}

// LoadDir loads every .tsx file directly inside dir. Files that fail to parse
// are still listed; their errors are joined into the returned error.
func (c *Catalog) LoadDir(ctx context.Context, dir string) error {
	matches, err := fs.Glob(c.fsys, path.Join(dir, "*.tsx"))
	if err != nil {
		return fmt.Errorf("glob %s: %w", dir, err)
	}

	limit := c.opts.LoadConcurrency
	if limit <= 0 {
		limit = 4
	}

	errs := make([]error, len(matches))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, m := range matches {
		g.Go(func() error {
			_, err := c.Load(gctx, m)
			if gctx.Err() != nil {
				return gctx.Err()
			}
			errs[i] = err
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	log.Info().Str("component", "catalog").Str("dir", dir).Int("tilesets", len(matches)).Msg("loaded directory")
	return errors.Join(errs...)
}

// Load parses and validates one file and stores the result, replacing any
// previous entry of the same name.
func (c *Catalog) Load(ctx context.Context, p string) (*Entry, error) {
	entry := &Entry{Name: EntryName(p), Path: p, LoadedAt: time.Now()}

	data, err := fs.ReadFile(c.fsys, p)
	if err != nil {
		return nil, fmt.Errorf("read tileset %s: %w", p, err)
	}

	ts, err := tileset.Parse(data, p)
	if err != nil {
		entry.Err = err
		entry.Report = tileset.Report{Issues: []tileset.Issue{{
			Rule:     tileset.RuleParse,
			Severity: tileset.SeverityError,
			Message:  err.Error(),
		}}}
		c.put(entry)
		log.Warn().Str("component", "catalog").Str("path", p).Err(err).Msg("tileset rejected")
		return entry, err
	}
	entry.Tileset = ts

	key := cache.Key(data, c.opts.Fingerprint)
	report, ok := c.opts.Cache.Lookup(key)
	if ok {
		entry.Cached = true
	} else {
		report = tileset.Validate(ts, c.opts.Validate)
		_ = c.opts.Cache.Store(key, report)
	}

	external, err := c.checkExternal(ctx, ts)
	if err != nil {
		return nil, err
	}
	report.Merge(external)
	entry.Report = report

	c.put(entry)
	log.Debug().Str("component", "catalog").Str("path", p).
		Int("errors", len(report.Errors())).Int("warnings", len(report.Warnings())).
		Msg("tileset loaded")
	return entry, nil
}

// checkExternal runs the checks whose outcome depends on more than the
// tileset bytes: image files and rule scripts.
func (c *Catalog) checkExternal(ctx context.Context, ts *tileset.Tileset) (tileset.Report, error) {
	report := tileset.Report{Tileset: ts.Name}

	if c.opts.CheckResources {
		res, err := tileset.CheckResources(ctx, c.fsys, ts, c.opts.Resources)
		if ctx.Err() != nil {
			return report, ctx.Err()
		}
		if err != nil {
			log.Debug().Str("component", "catalog").Str("tileset", ts.Name).Err(err).Msg("missing resources")
		}
		report.Merge(res)
	}

	if len(c.opts.Rules) > 0 {
		res, err := rules.RunAll(ctx, c.opts.Rules, ts)
		if err != nil {
			return report, err
		}
		report.Merge(res)
	}

	return report, nil
}

func (c *Catalog) put(e *Entry) {
	e.Report.Tileset = e.Name
	if e.Tileset != nil {
		e.Report.Tileset = e.Tileset.Name
	}
	c.mu.Lock()
	c.entries[e.Name] = e
	c.mu.Unlock()
}

// Remove drops the entry for path. It reports whether one existed.
func (c *Catalog) Remove(p string) bool {
	name := EntryName(p)

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[name]; !ok {
		return false
	}
	delete(c.entries, name)
	return true
}

// Get returns the entry with the given name.
func (c *Catalog) Get(name string) (*Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[name]
	return e, ok
}

// List returns a summary of every entry, ordered by name.
func (c *Catalog) List() []Summary {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make([]Summary, 0, len(c.entries))
	for _, e := range c.entries {
		result = append(result, e.summary())
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

// Len is the number of entries.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
