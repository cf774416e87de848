package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/alecthomas/kong"
	"github.com/automoto/tsxkit/config"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Globals are available to every command.
type Globals struct {
	Debug bool `help:"Whether to enable debug logging."`

	Out io.Writer `kong:"-"`
}

var CLI struct {
	Globals

	Validate ValidateCmd `cmd:"" help:"Check tilesets for structural and gameplay problems."`
	Dump     DumpCmd     `cmd:"" help:"Write a tileset as TSX, JSON, YAML or CBOR."`
	Fmt      FmtCmd      `cmd:"" help:"Rewrite tilesets in canonical TSX form."`
	Classify ClassifyCmd `cmd:"" help:"List tile ids per gameplay class."`
	Hitboxes HitboxesCmd `cmd:"" help:"Print the collision rectangles of each tile."`
	Audit    AuditCmd    `cmd:"" help:"Report which tiles a directory of TMX levels uses."`
	Probe    ProbeCmd    `cmd:"" help:"List the placed hitboxes a rectangle overlaps in a level."`
}

// errIssues makes the process exit non-zero without printing anything more.
var errIssues = errors.New("issues found")

func writeError(err error) {
	fmt.Fprintf(os.Stderr, "%s\n", err)
	os.Exit(1)
}

// vars exposes config defaults to flag tags as ${name}.
func vars() kong.Vars {
	return kong.Vars{
		"resources": strconv.FormatBool(config.Validate.CheckResources),
		"decode":    strconv.FormatBool(config.Validate.DecodeImages),
		"policy":    config.Validate.Policy,
		"tolerance": strconv.FormatFloat(config.Validate.BoundsTolerance, 'f', -1, 64),
		"cache":     strconv.FormatBool(config.Cache.Enabled),
		"scale":     strconv.FormatFloat(config.Collision.Scale, 'f', -1, 64),
		"fulltile":  strconv.FormatBool(config.Collision.FullTile),
	}
}

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	if path, err := config.LoadEnv(); err != nil {
		writeError(err)
	} else if path != "" {
		log.Debug().Str("path", path).Msg("loaded config")
	}
	zerolog.SetGlobalLevel(config.LogLevel())

	ctx := kong.Parse(&CLI,
		kong.Name("tsxkit"),
		kong.Description("Validate, inspect and convert Tiled tilesets."),
		kong.UsageOnError(),
		vars(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
			Summary: true,
		}))

	if CLI.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		log.Warn().Msg("debug logging enabled")
	}

	CLI.Globals.Out = os.Stdout
	if err := ctx.Run(&CLI.Globals); err != nil {
		if errors.Is(err, errIssues) {
			os.Exit(1)
		}
		writeError(err)
	}
}
