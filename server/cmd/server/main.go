package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/automoto/tsxkit/cache"
	"github.com/automoto/tsxkit/config"
	"github.com/automoto/tsxkit/rules"
	"github.com/automoto/tsxkit/server/core"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})

	configPath := flag.String("config", os.Getenv(config.EnvFile), "YAML config file")
	port := flag.Int("port", 0, "HTTP listen port (default from config)")
	dir := flag.String("dir", "", "Directory of .tsx files to serve (default from config)")
	watch := flag.Bool("watch", true, "Reload tilesets when files change")
	flag.Parse()

	if *configPath != "" {
		if err := config.Load(*configPath); err != nil {
			log.Fatal().Err(err).Msg("could not load config")
		}
	}
	if *port != 0 {
		config.Server.Port = *port
	}
	if *dir != "" {
		config.Server.Dir = *dir
	}
	config.Server.Watch = config.Server.Watch && *watch

	zerolog.SetGlobalLevel(config.LogLevel())
	if !config.Log.Pretty {
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	}

	classifier, err := config.Classifier()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid classification settings")
	}
	validateOpts, err := config.ValidateOptions()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid validation settings")
	}

	var ruleSet []*rules.Rule
	for _, p := range config.Validate.Rules {
		loaded, err := rules.LoadPath(p)
		if err != nil {
			log.Fatal().Err(err).Str("path", p).Msg("could not load rules")
		}
		ruleSet = append(ruleSet, loaded...)
	}

	var reports *cache.Cache
	if config.Cache.Enabled {
		// Cache failures only cost speed.
		reports, _ = cache.Open(config.Cache.AppName)
	}

	server := core.NewServer(core.ServerConfig{
		Dir:        config.Server.Dir,
		Watch:      config.Server.Watch,
		Debounce:   config.Server.Debounce,
		Classifier: classifier,
		Catalog: core.Options{
			Validate:       validateOpts,
			CheckResources: config.Validate.CheckResources,
			Resources:      config.ResourceOptions(),
			Rules:          ruleSet,
			Cache:          reports,
			Fingerprint:    config.Fingerprint(),
		},
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		log.Info().Msg("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Stop(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("shutdown error")
		}
	}()

	if err := server.Start(ctx, config.Server.Port); err != nil {
		log.Fatal().Err(err).Msg("server error")
	}
}
