package leveldata

import (
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/automoto/tsxkit/shared/collision"
	"github.com/automoto/tsxkit/shared/tileset"
	"github.com/lafriks/go-tiled"
)

// LoadUsage parses a TMX file and records where it places tiles of ts.
// Tiles are matched to ts by tileset name. It takes an fs.FS so callers can
// pass embed.FS or os.DirFS.
func LoadUsage(fsys fs.FS, tmxPath string, ts *tileset.Tileset) (*Usage, error) {
	levelMap, err := tiled.LoadFile(tmxPath, tiled.WithFileSystem(fsys))
	if err != nil {
		return nil, fmt.Errorf("load TMX %s: %w", tmxPath, err)
	}

	usage := &Usage{
		Level:      tmxPath,
		Tileset:    ts.Name,
		Width:      levelMap.Width,
		Height:     levelMap.Height,
		TileWidth:  levelMap.TileWidth,
		TileHeight: levelMap.TileHeight,
	}

	if err := usage.addLayers(levelMap, levelMap.Layers, "", ts); err != nil {
		return nil, fmt.Errorf("%s: %w", tmxPath, err)
	}
	for _, g := range levelMap.Groups {
		if err := usage.addGroup(levelMap, g, "", ts); err != nil {
			return nil, fmt.Errorf("%s: %w", tmxPath, err)
		}
	}

	return usage, nil
}

// addGroup records the tile layers of a group layer and its subgroups.
// Their names are prefixed with the group path, "Group/Layer".
func (u *Usage) addGroup(m *tiled.Map, g *tiled.Group, prefix string, ts *tileset.Tileset) error {
	prefix += g.Name + "/"
	if err := u.addLayers(m, g.Layers, prefix, ts); err != nil {
		return err
	}
	for _, sub := range g.Groups {
		if err := u.addGroup(m, sub, prefix, ts); err != nil {
			return err
		}
	}
	return nil
}

func (u *Usage) addLayers(m *tiled.Map, layers []*tiled.Layer, prefix string, ts *tileset.Tileset) error {
	for _, layer := range layers {
		name := prefix + layer.Name
		if len(layer.Tiles) < m.Width*m.Height {
			return fmt.Errorf("layer %q: infinite maps are not supported", name)
		}

		lu := LayerUsage{Name: name, Counts: make(map[uint32]int)}
		for y := 0; y < m.Height; y++ {
			for x := 0; x < m.Width; x++ {
				tile := layer.Tiles[y*m.Width+x]
				if tile.IsNil() || tile.Tileset == nil || tile.Tileset.Name != ts.Name {
					continue
				}

				if _, ok := ts.Tile(tile.ID); !ok {
					u.Missing = append(u.Missing, MissingTile{
						Layer:  name,
						TileID: tile.ID,
						Col:    x,
						Row:    y,
					})
					continue
				}

				lu.Counts[tile.ID]++
				lu.Placements = append(lu.Placements, collision.Placement{
					TileID: tile.ID,
					Col:    x,
					Row:    y,
					Layer:  name,
				})
			}
		}
		u.Layers = append(u.Layers, lu)
	}
	return nil
}

// LoadAllUsage discovers all .tmx files in levelsDir within fsys, audits each
// against ts, and returns a map keyed by stem name plus a sorted list of names.
func LoadAllUsage(fsys fs.FS, levelsDir string, ts *tileset.Tileset) (map[string]*Usage, []string, error) {
	pattern := path.Join(levelsDir, "*.tmx")
	matches, err := fs.Glob(fsys, pattern)
	if err != nil {
		return nil, nil, fmt.Errorf("glob %s: %w", pattern, err)
	}
	if len(matches) == 0 {
		return nil, nil, fmt.Errorf("no .tmx files found in %s", levelsDir)
	}

	levels := make(map[string]*Usage, len(matches))
	names := make([]string, 0, len(matches))

	for _, m := range matches {
		usage, err := LoadUsage(fsys, m, ts)
		if err != nil {
			return nil, nil, fmt.Errorf("load %s: %w", m, err)
		}
		stem := strings.TrimSuffix(path.Base(m), ".tmx")
		levels[stem] = usage
		names = append(names, stem)
	}

	sort.Strings(names)
	return levels, names, nil
}
