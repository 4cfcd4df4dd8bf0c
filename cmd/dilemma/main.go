package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/pprof"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"

	"github.com/domino14/dilemma/cache"
	"github.com/domino14/dilemma/config"
	"github.com/domino14/dilemma/report"
	"github.com/domino14/dilemma/strategy"
	"github.com/domino14/dilemma/tournament"
)

var (
	GitVersion string
)

func main() {
	// Relative data paths that don't exist under the working directory are
	// looked up next to the executable.
	ex, err := os.Executable()
	if err != nil {
		panic(err)
	}
	exPath := filepath.Dir(ex)

	cfg := &config.Config{}
	if err := cfg.Load(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	setupLogging(cfg.GetBool(config.ConfigDebug))
	log.Info().Str("version", GitVersion).Str("executable-path", exPath).Msg("starting")

	cfg.AdjustRelativePaths(exPath, func(p string) bool {
		_, err := os.Stat(p)
		return err == nil
	})
	log.Debug().Interface("settings", cfg.SanitizedSettings()).Msg("loaded-config")
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("bad-config")
	}

	if p := cfg.GetString(config.ConfigCPUProfile); p != "" {
		f, err := os.Create(p)
		if err != nil {
			panic("could not create CPU profile: " + err.Error())
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			panic("could not start CPU profile: " + err.Error())
		}
		defer pprof.StopCPUProfile()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		// log.Fatal would skip the deferred profile flush.
		log.Error().Err(err).Msg("tournament-failed")
		pprof.StopCPUProfile()
		os.Exit(1)
	}
}

func setupLogging(debug bool) {
	output := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	output.FormatLevel = func(i interface{}) string {
		return strings.ToUpper(fmt.Sprintf("| %-6s|", i))
	}
	output.FormatMessage = func(i interface{}) string {
		return fmt.Sprintf("%s", i)
	}
	output.FormatFieldName = func(i interface{}) string {
		return fmt.Sprintf("%s:", i)
	}

	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)
	logger := zerolog.New(output).Level(level).With().Timestamp().Logger()
	zerolog.DefaultContextLogger = &logger
	log.Logger = logger
	logger.Debug().Msg("Debug logging is on")
}

func run(ctx context.Context, cfg *config.Config) error {
	start := time.Now()

	reg := strategy.NewRegistry()
	if err := strategy.RegisterBuiltins(reg); err != nil {
		return err
	}
	root := cfg.GetString(config.ConfigStrategyPath)
	if err := reg.LoadDir(root); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return err
		}
		log.Warn().Str("path", root).Msg("no-script-strategies")
	}
	var skip []string
	if cfg.GetBool(config.ConfigSkipSlow) {
		skip = append(skip, cfg.GetString(config.ConfigSlowGroup))
	}

	backend := cfg.GetString(config.ConfigCacheBackend)
	cacheFile := cfg.GetString(config.ConfigCacheFile)
	if cfg.GetBool(config.ConfigDeleteCache) {
		if err := cache.Remove(backend, cacheFile); err != nil {
			return fmt.Errorf("deleting cache: %w", err)
		}
		log.Info().Str("backend", backend).Msg("cache-deleted")
	}

	var shared *cache.Shared
	if cfg.GetBool(config.ConfigCache) {
		b, err := cache.New(backend, cacheFile)
		if err != nil {
			return err
		}
		shared = cache.NewShared(b, cache.Fingerprint(
			cfg.GetInt(config.ConfigNumRuns),
			cfg.GetInt(config.ConfigDetTurns),
			cfg.GetInt(config.ConfigMinTurns),
			cfg.GetFloat64(config.ConfigLengthScale),
		))
		if err := shared.Setup(ctx); err != nil {
			return fmt.Errorf("setting up cache: %w", err)
		}
		defer shared.Close()
	}

	t := tournament.New(cfg, reg, shared, skip...)
	if cfg.GetBool(config.ConfigProgress) {
		t.OnProgress = report.ProgressPrinter(os.Stdout)
	}
	log.Info().Str("strategy-path", root).Int("strategies", len(t.Names)).
		Msg("tournament-configured")

	res, err := t.Run(ctx)
	if err != nil {
		return err
	}
	out := cfg.GetString(config.ConfigOutputDir)
	err = report.WriteAll(out, res, report.Options{
		ViewerTemplate: cfg.GetString(config.ConfigViewerTemplate),
		YAML:           cfg.GetBool(config.ConfigYAMLOutput),
	})
	if err != nil {
		return err
	}
	if len(res.Standings) > 0 {
		log.Info().Str("winner", res.Standings[0].Name).Float64("score", res.Standings[0].Score).
			Msg("tournament-winner")
	}
	log.Info().Dur("elapsed", time.Since(start)).
		Str("results", filepath.Join(out, report.ResultsFile)).Msg("done")
	return nil
}
