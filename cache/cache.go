// Package cache stores validation reports between runs, keyed by a hash of
// the tileset bytes and the options that produced the report.
package cache

import (
	"encoding/json"
	"fmt"

	"github.com/automoto/tsxkit/shared/tileset"
	"github.com/cespare/xxhash/v2"
	"github.com/quasilyte/gdata"
	"github.com/rs/zerolog/log"
)

// DefaultAppName is the gdata application directory.
const DefaultAppName = "tsxkit"

// Store is the subset of gdata.Manager the cache needs.
type Store interface {
	LoadItem(itemKey string) ([]byte, error)
	SaveItem(itemKey string, data []byte) error
	DeleteItem(itemKey string) error
}

// Cache is a report cache. A nil *Cache is valid and caches nothing.
type Cache struct {
	store Store
}

// Open initializes a gdata-backed cache.
func Open(appName string) (*Cache, error) {
	if appName == "" {
		appName = DefaultAppName
	}
	m, err := gdata.Open(gdata.Config{
		AppName: appName,
	})
	if err != nil {
		log.Warn().Err(err).Str("component", "cache").Msg("could not initialize report cache")
		return nil, err
	}
	return New(m), nil
}

// New wraps an existing store.
func New(s Store) *Cache {
	return &Cache{store: s}
}

// Key derives the cache key for tileset bytes validated under the given
// options fingerprint parts.
func Key(data []byte, parts ...string) string {
	d := xxhash.New()
	_, _ = d.Write(data)
	for _, p := range parts {
		_, _ = d.WriteString("\x00")
		_, _ = d.WriteString(p)
	}
	return fmt.Sprintf("report-%016x", d.Sum64())
}

// Lookup returns the cached report for key, or false when there is none.
// Read and decode failures are logged and treated as a miss.
func (c *Cache) Lookup(key string) (tileset.Report, bool) {
	if c == nil || c.store == nil {
		return tileset.Report{}, false
	}

	data, err := c.store.LoadItem(key)
	if err != nil {
		log.Warn().Err(err).Str("component", "cache").Str("key", key).Msg("could not load cached report")
		return tileset.Report{}, false
	}
	if len(data) == 0 {
		return tileset.Report{}, false
	}

	var report tileset.Report
	if err := json.Unmarshal(data, &report); err != nil {
		log.Warn().Err(err).Str("component", "cache").Str("key", key).Msg("could not parse cached report")
		return tileset.Report{}, false
	}
	return report, true
}

// Store saves report under key.
func (c *Cache) Store(key string, report tileset.Report) error {
	if c == nil || c.store == nil {
		return nil
	}

	data, err := json.Marshal(report)
	if err != nil {
		log.Warn().Err(err).Str("component", "cache").Msg("could not serialize report")
		return err
	}

	if err := c.store.SaveItem(key, data); err != nil {
		log.Warn().Err(err).Str("component", "cache").Str("key", key).Msg("could not save report")
		return err
	}
	return nil
}

// Clear drops the entry for key.
func (c *Cache) Clear(key string) error {
	if c == nil || c.store == nil {
		return nil
	}
	if err := c.store.DeleteItem(key); err != nil {
		log.Warn().Err(err).Str("component", "cache").Str("key", key).Msg("could not delete report")
		return err
	}
	return nil
}
