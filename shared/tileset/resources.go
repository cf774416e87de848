package tileset

import (
	"context"
	"errors"
	"image"
	"io/fs"
	"path"
	"runtime"

	// Decoders for image.DecodeConfig.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"golang.org/x/sync/errgroup"
)

// ResolveImage returns the fs.FS path of the tile's image, resolved against
// the directory of the tileset file.
func ResolveImage(ts *Tileset, t *Tile) string {
	return path.Join(path.Dir(ts.Path), t.Image.Source)
}

// ResourceOptions tunes CheckResources.
type ResourceOptions struct {
	// DecodeImages reads each image header and compares its size with the
	// declared width and height.
	DecodeImages bool

	// Concurrency bounds the number of files checked at once; <= 0 uses
	// GOMAXPROCS.
	Concurrency int
}

type resourceResult struct {
	missing *MissingResourceError
	issues  []Issue
}

// CheckResources verifies that every tile image resolves inside fsys.
// Missing images are reported both as issues and as joined
// *MissingResourceError values; decode problems are issues only. The error
// is ctx.Err() if the context ends first.
func CheckResources(ctx context.Context, fsys fs.FS, ts *Tileset, opts ResourceOptions) (Report, error) {
	report := Report{Tileset: ts.Name}

	limit := opts.Concurrency
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}

	results := make([]resourceResult, len(ts.Tiles))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i := range ts.Tiles {
		t := &ts.Tiles[i]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = checkTileResource(fsys, ts, t, opts.DecodeImages)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return report, err
	}

	var missing []error
	for _, res := range results {
		if res.missing != nil {
			missing = append(missing, res.missing)
		}
		report.Add(res.issues...)
	}
	return report, errors.Join(missing...)
}

func checkTileResource(fsys fs.FS, ts *Tileset, t *Tile, decode bool) resourceResult {
	var res resourceResult
	if t.Image.Source == "" {
		return res
	}

	resolved := ResolveImage(ts, t)
	fail := func(err error) resourceResult {
		res.missing = &MissingResourceError{TileID: t.ID, Source: t.Image.Source, Resolved: resolved, Err: err}
		res.issues = append(res.issues, TileIssue(t.ID, RuleImageMissing, SeverityError, "%q does not resolve: %v", t.Image.Source, err))
		return res
	}

	if path.IsAbs(t.Image.Source) || !fs.ValidPath(resolved) {
		return fail(fs.ErrInvalid)
	}
	info, err := fs.Stat(fsys, resolved)
	if err != nil {
		return fail(err)
	}
	if info.IsDir() {
		return fail(errors.New("is a directory"))
	}

	if !decode {
		return res
	}

	f, err := fsys.Open(resolved)
	if err != nil {
		return fail(err)
	}
	defer f.Close()

	cfg, format, err := image.DecodeConfig(f)
	if err != nil {
		res.issues = append(res.issues, TileIssue(t.ID, RuleImageDecode, SeverityError, "%q: %v", t.Image.Source, err))
		return res
	}
	if cfg.Width != t.Image.Width || cfg.Height != t.Image.Height {
		res.issues = append(res.issues, TileIssue(t.ID, RuleImageDimensions, SeverityWarning,
			"%s %q is %dx%d, declared %dx%d", format, t.Image.Source, cfg.Width, cfg.Height, t.Image.Width, t.Image.Height))
	}
	return res
}
