package core

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/automoto/tsxkit/export"
	"github.com/automoto/tsxkit/shared/tileset"
	"github.com/rs/zerolog/log"
)

// TileView is the per-tile response.
type TileView struct {
	Tileset  string          `json:"tileset"`
	Tile     tileset.Tile    `json:"tile"`
	Class    tileset.Class   `json:"class"`
	Hitboxes []tileset.Rect  `json:"hitboxes"`
	Issues   []tileset.Issue `json:"issues"`
}

var contentTypes = map[export.Format]string{
	export.FormatTSX:  "application/xml",
	export.FormatJSON: "application/json",
	export.FormatYAML: "application/yaml",
	export.FormatCBOR: "application/cbor",
}

func setHeaders(w http.ResponseWriter, contentType string) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Access-Control-Allow-Origin", "*")
}

func writeJSON(w http.ResponseWriter, v any) {
	setHeaders(w, "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Str("component", "http").Err(err).Msg("encode error")
	}
}

func writeError(w http.ResponseWriter, code int, msg string) {
	setHeaders(w, "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// lookup resolves {name} and writes the error response when it fails.
func lookup(cat *Catalog, w http.ResponseWriter, r *http.Request) (*Entry, bool) {
	name := r.PathValue("name")
	entry, ok := cat.Get(name)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("unknown tileset %q", name))
		return nil, false
	}
	return entry, true
}

func ListTilesets(cat *Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, cat.List())
	}
}

// GetTileset writes the tileset in the encoding named by ?format (json by
// default).
func GetTileset(cat *Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entry, ok := lookup(cat, w, r)
		if !ok {
			return
		}
		if entry.Tileset == nil {
			writeError(w, http.StatusUnprocessableEntity, entry.Err.Error())
			return
		}

		format := export.FormatJSON
		if q := r.URL.Query().Get("format"); q != "" {
			f, err := export.ParseFormat(q)
			if err != nil {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			format = f
		}

		setHeaders(w, contentTypes[format])
		if err := export.Write(w, entry.Tileset, format); err != nil {
			log.Warn().Str("component", "http").Str("tileset", entry.Name).Err(err).Msg("export error")
		}
	}
}

func GetTile(cat *Catalog, classifier *tileset.Classifier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entry, ok := lookup(cat, w, r)
		if !ok {
			return
		}
		if entry.Tileset == nil {
			writeError(w, http.StatusUnprocessableEntity, entry.Err.Error())
			return
		}

		id, err := strconv.ParseUint(r.PathValue("id"), 10, 32)
		if err != nil {
			writeError(w, http.StatusBadRequest, "tile id must be a non-negative integer")
			return
		}
		tile, ok := entry.Tileset.Tile(uint32(id))
		if !ok {
			writeError(w, http.StatusNotFound, fmt.Sprintf("tileset %q has no tile %d", entry.Name, id))
			return
		}

		view := TileView{
			Tileset:  entry.Tileset.Name,
			Tile:     *tile,
			Hitboxes: tile.Hitboxes(),
			Issues:   []tileset.Issue{},
		}
		view.Class, err = classifier.Classify(tile)
		if err != nil {
			view.Class = tileset.ClassUnknown
		}
		for _, issue := range entry.Report.Issues {
			if issue.TileID != nil && *issue.TileID == tile.ID {
				view.Issues = append(view.Issues, issue)
			}
		}
		writeJSON(w, view)
	}
}

func GetReport(cat *Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entry, ok := lookup(cat, w, r)
		if !ok {
			return
		}
		writeJSON(w, entry.Report)
	}
}

func Health(cat *Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, map[string]any{"status": "ok", "tilesets": cat.Len()})
	}
}

// NewMux routes the catalog API.
func NewMux(cat *Catalog, classifier *tileset.Classifier) *http.ServeMux {
	if classifier == nil {
		classifier = tileset.NewClassifier(nil, tileset.PolicyDefault)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /tilesets", ListTilesets(cat))
	mux.HandleFunc("GET /tilesets/{name}", GetTileset(cat))
	mux.HandleFunc("GET /tilesets/{name}/tiles/{id}", GetTile(cat, classifier))
	mux.HandleFunc("GET /tilesets/{name}/report", GetReport(cat))
	mux.HandleFunc("GET /health", Health(cat))
	return mux
}
