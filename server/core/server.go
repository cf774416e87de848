package core

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/automoto/tsxkit/shared/tileset"
	"github.com/rs/zerolog/log"
)

// ServerConfig configures a catalog server.
type ServerConfig struct {
	Dir        string
	Watch      bool
	Debounce   time.Duration
	Classifier *tileset.Classifier
	Catalog    Options
}

// Server serves the tilesets of one directory over HTTP and keeps the
// catalog in sync with the files on disk.
type Server struct {
	Catalog *Catalog

	cfg     ServerConfig
	http    *http.Server
	watcher *Watcher
}

func NewServer(cfg ServerConfig) *Server {
	if cfg.Dir == "" {
		cfg.Dir = "."
	}
	return &Server{
		Catalog: NewCatalog(os.DirFS(cfg.Dir), cfg.Catalog),
		cfg:     cfg,
	}
}

// Handler is the HTTP API.
func (s *Server) Handler() http.Handler {
	return NewMux(s.Catalog, s.cfg.Classifier)
}

// Start loads the directory, starts the watcher and serves until Stop.
func (s *Server) Start(ctx context.Context, port int) error {
	if err := s.Catalog.LoadDir(ctx, "."); err != nil {
		if ctx.Err() != nil {
			return err
		}
		log.Warn().Str("component", "server").Err(err).Msg("some tilesets failed to load")
	}

	if s.cfg.Watch {
		w, err := NewWatcher(s.cfg.Debounce, s.cfg.Dir)
		if err != nil {
			return fmt.Errorf("watch %s: %w", s.cfg.Dir, err)
		}
		s.watcher = w
		go s.reloadLoop(ctx, w)
	}

	s.http = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	log.Info().Str("component", "server").Str("addr", s.http.Addr).Str("dir", s.cfg.Dir).
		Int("tilesets", s.Catalog.Len()).Msg("starting")

	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.watcher != nil {
		_ = s.watcher.Close()
	}
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

func (s *Server) reloadLoop(ctx context.Context, w *Watcher) {
	for {
		select {
		case name, ok := <-w.Events:
			if !ok {
				return
			}
			s.HandleChange(ctx, name)
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			log.Warn().Str("component", "watch").Err(err).Msg("watcher error")
		case <-ctx.Done():
			return
		}
	}
}

// HandleChange reloads or drops the tileset at osPath, a file inside the
// served directory.
func (s *Server) HandleChange(ctx context.Context, osPath string) {
	rel, err := filepath.Rel(s.cfg.Dir, osPath)
	if err != nil || filepath.Dir(rel) != "." || !isTilesetFile(rel) {
		return
	}
	name := filepath.ToSlash(rel)

	if _, err := os.Stat(osPath); errors.Is(err, fs.ErrNotExist) {
		if s.Catalog.Remove(name) {
			log.Info().Str("component", "watch").Str("path", name).Msg("tileset removed")
		}
		return
	}

	entry, err := s.Catalog.Load(ctx, name)
	if err != nil {
		log.Warn().Str("component", "watch").Str("path", name).Err(err).Msg("reload failed")
		return
	}
	log.Info().Str("component", "watch").Str("path", name).
		Int("errors", len(entry.Report.Errors())).Msg("tileset reloaded")
}
