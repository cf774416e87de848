package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/automoto/tsxkit/shared/collision"
	"github.com/automoto/tsxkit/shared/tileset"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// EnvFile names the environment variable binaries read the config path from.
const EnvFile = "TSXKIT_CONFIG"

// ValidateConfig contains everything that changes a validation report
type ValidateConfig struct {
	// Classification
	TypeProperty string         `yaml:"typeProperty"`
	Policy       string         `yaml:"policy"` // "default" or "strict"
	Classes      map[int]string `yaml:"classes"`

	// Hitboxes
	BoundsTolerance float64 `yaml:"boundsTolerance"` // Pixels; negative disables the check

	// Resources
	CheckResources bool `yaml:"checkResources"`
	DecodeImages   bool `yaml:"decodeImages"`
	Concurrency    int  `yaml:"concurrency"`

	// Extra rule scripts: .tengo files or directories of them
	Rules []string `yaml:"rules"`
}

// CollisionConfig contains hitbox layout settings for audit and probe
type CollisionConfig struct {
	Scale    float64 `yaml:"scale"`
	FullTile bool    `yaml:"fullTile"` // Tiles without an object group collide on the whole cell
	CellSize int     `yaml:"cellSize"`
}

// CacheConfig contains report cache settings
type CacheConfig struct {
	Enabled bool   `yaml:"enabled"`
	AppName string `yaml:"appName"`
}

// ServerConfig contains catalog server settings
type ServerConfig struct {
	Port     int           `yaml:"port"`
	Dir      string        `yaml:"dir"`
	Watch    bool          `yaml:"watch"`
	Debounce time.Duration `yaml:"debounce"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"` // Console writer instead of JSON lines
}

// Config is the file layout read by Load.
type Config struct {
	Validate  ValidateConfig  `yaml:"validate"`
	Collision CollisionConfig `yaml:"collision"`
	Cache     CacheConfig     `yaml:"cache"`
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
}

var Validate ValidateConfig
var Collision CollisionConfig
var Cache CacheConfig
var Server ServerConfig
var Log LogConfig

func init() {
	Reset()
}

// Reset restores the built-in defaults.
func Reset() {
	Validate = ValidateConfig{
		TypeProperty: tileset.DefaultTypeProperty,
		Policy:       tileset.PolicyDefault.String(),
		Classes: map[int]string{
			1: string(tileset.ClassCollectible),
			2: string(tileset.ClassInteractive),
		},

		BoundsTolerance: tileset.DefaultBoundsTolerance,

		CheckResources: true,
		DecodeImages:   true,
		Concurrency:    8,
	}

	// Platformer draws 128px art at half size
	Collision = CollisionConfig{
		Scale:    collision.DefaultScale,
		FullTile: true,
		CellSize: 16,
	}

	Cache = CacheConfig{
		Enabled: false,
		AppName: "tsxkit",
	}

	Server = ServerConfig{
		Port:     8080,
		Dir:      ".",
		Watch:    true,
		Debounce: 100 * time.Millisecond,
	}

	Log = LogConfig{
		Level:  "info",
		Pretty: true,
	}
}

// Current returns a copy of the active settings.
func Current() Config {
	c := Config{
		Validate:  Validate,
		Collision: Collision,
		Cache:     Cache,
		Server:    Server,
		Log:       Log,
	}
	c.Validate.Classes = make(map[int]string, len(Validate.Classes))
	for k, v := range Validate.Classes {
		c.Validate.Classes[k] = v
	}
	c.Validate.Rules = append([]string(nil), Validate.Rules...)
	return c
}

// Load overlays the YAML file at path on the active settings. Keys missing
// from the file keep their current value; a classes table is merged.
func Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	return LoadBytes(data, path)
}

// LoadBytes is Load for an in-memory document; name is used in errors.
func LoadBytes(data []byte, name string) error {
	c := Current()
	if err := yaml.Unmarshal(data, &c); err != nil {
		return fmt.Errorf("parse config %s: %w", name, err)
	}
	if err := c.check(); err != nil {
		return fmt.Errorf("config %s: %w", name, err)
	}

	Validate = c.Validate
	Collision = c.Collision
	Cache = c.Cache
	Server = c.Server
	Log = c.Log
	return nil
}

// LoadEnv loads the file named by TSXKIT_CONFIG, if set. It returns the path
// it loaded.
func LoadEnv() (string, error) {
	path := strings.TrimSpace(os.Getenv(EnvFile))
	if path == "" {
		return "", nil
	}
	return path, Load(path)
}

func (c Config) check() error {
	if _, err := tileset.ParseTypePolicy(c.Validate.Policy); err != nil {
		return err
	}
	if c.Collision.Scale <= 0 {
		return fmt.Errorf("collision scale must be positive, got %v", c.Collision.Scale)
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server port %d out of range", c.Server.Port)
	}
	if _, err := zerolog.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	return nil
}

// Classifier builds the classifier described by Validate.
func Classifier() (*tileset.Classifier, error) {
	policy, err := tileset.ParseTypePolicy(Validate.Policy)
	if err != nil {
		return nil, err
	}
	classes := make(map[int]tileset.Class, len(Validate.Classes))
	for k, v := range Validate.Classes {
		classes[k] = tileset.Class(v)
	}
	c := tileset.NewClassifier(classes, policy)
	if Validate.TypeProperty != "" {
		c.Property = Validate.TypeProperty
	}
	return c, nil
}

// ValidateOptions returns the options for tileset.Validate.
func ValidateOptions() (tileset.ValidateOptions, error) {
	c, err := Classifier()
	if err != nil {
		return tileset.ValidateOptions{}, err
	}
	return tileset.ValidateOptions{
		Classifier:      c,
		BoundsTolerance: Validate.BoundsTolerance,
	}, nil
}

// ResourceOptions returns the options for tileset.CheckResources.
func ResourceOptions() tileset.ResourceOptions {
	return tileset.ResourceOptions{
		DecodeImages: Validate.DecodeImages,
		Concurrency:  Validate.Concurrency,
	}
}

// CollisionOptions returns the options for collision.NewSpace.
func CollisionOptions() collision.Options {
	return collision.Options{
		Scale:    Collision.Scale,
		FullTile: Collision.FullTile,
		CellSize: Collision.CellSize,
	}
}

// Fingerprint summarizes the settings that affect the structural part of a
// validation report, for cache keys.
func Fingerprint() string {
	data, _ := yaml.Marshal(Validate)
	return string(data)
}

// LogLevel parses Log.Level, falling back to info.
func LogLevel() zerolog.Level {
	lvl, err := zerolog.ParseLevel(Log.Level)
	if err != nil {
		return zerolog.InfoLevel
	}
	return lvl
}
