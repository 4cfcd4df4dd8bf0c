package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	ConfigNumRuns        = "num-runs"
	ConfigDetTurns       = "det-turns"
	ConfigMinTurns       = "min-turns"
	ConfigLengthScale    = "length-scale"
	ConfigWorkers        = "workers"
	ConfigStrategies     = "strategies"
	ConfigCache          = "cache"
	ConfigDeleteCache    = "delete-cache"
	ConfigCacheBackend   = "cache-backend"
	ConfigCacheFile      = "cache-file"
	ConfigSkipSlow       = "skip-slow"
	ConfigSlowGroup      = "slow-group"
	ConfigStrategyPath   = "strategy-path"
	ConfigOutputDir      = "output-dir"
	ConfigViewerTemplate = "viewer-template"
	ConfigYAMLOutput     = "yaml-output"
	ConfigProgress       = "progress"
	ConfigDebug          = "debug"
	ConfigCPUProfile     = "cpu-profile"
)

const (
	// MinDetTurns is the fewest turns a deterministic run may be configured
	// with.
	MinDetTurns = 200
)

var (
	ErrTooFewDetTurns = errors.New("det-turns must be at least 200")
	ErrBadNumRuns     = errors.New("num-runs must be at least 1")
)

// Config is the run configuration. Values come from, in increasing order
// of precedence: defaults, a dilemma.yaml config file, DILEMMA_* environment
// variables and command-line flags.
type Config struct {
	*viper.Viper
}

// DefaultConfig returns a config with only the defaults set.
func DefaultConfig() Config {
	c := Config{Viper: viper.New()}
	c.setDefaults()
	return c
}

func (c *Config) setDefaults() {
	c.SetDefault(ConfigNumRuns, 100)
	c.SetDefault(ConfigDetTurns, 500)
	c.SetDefault(ConfigMinTurns, 200)
	c.SetDefault(ConfigLengthScale, 40.0)
	c.SetDefault(ConfigWorkers, runtime.NumCPU())
	c.SetDefault(ConfigStrategies, []string{})
	c.SetDefault(ConfigCache, true)
	c.SetDefault(ConfigDeleteCache, false)
	c.SetDefault(ConfigCacheBackend, "sqlite")
	c.SetDefault(ConfigCacheFile, "")
	c.SetDefault(ConfigSkipSlow, false)
	c.SetDefault(ConfigSlowGroup, "slow")
	c.SetDefault(ConfigStrategyPath, "./strategies")
	c.SetDefault(ConfigOutputDir, ".")
	c.SetDefault(ConfigViewerTemplate, "")
	c.SetDefault(ConfigYAMLOutput, false)
	c.SetDefault(ConfigProgress, true)
	c.SetDefault(ConfigDebug, false)
	c.SetDefault(ConfigCPUProfile, "")
}

// FlagSet returns the command-line flags understood by Load.
func FlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("dilemma", pflag.ContinueOnError)
	fs.IntP(ConfigNumRuns, "n", 100, "number of runs to average out for non-deterministic pairings")
	fs.IntP(ConfigDetTurns, "d", 500, "number of turns in a deterministic run (at least 200)")
	fs.Int(ConfigMinTurns, 200, "minimum game length")
	fs.Float64(ConfigLengthScale, 40, "mean number of turns played past the minimum")
	fs.IntP(ConfigWorkers, "j", runtime.NumCPU(), "number of pairings computed in parallel")
	fs.StringSliceP(ConfigStrategies, "s", nil,
		"only play these strategies against each other; a single strategy is paired against every other one")
	fs.Bool(ConfigCache, true, "use the pairing cache")
	fs.Bool(ConfigDeleteCache, false, "delete the pairing cache before running")
	fs.StringP(ConfigCacheBackend, "k", "sqlite", "cache backend (sqlite, json or memory)")
	fs.String(ConfigCacheFile, "", "cache file to use instead of the backend default")
	fs.Bool(ConfigSkipSlow, false, "skip the slow strategy group")
	fs.String(ConfigSlowGroup, "slow", "name of the slow strategy group")
	fs.String(ConfigStrategyPath, "./strategies", "directory holding script strategies")
	fs.String(ConfigOutputDir, ".", "directory the reports are written to")
	fs.String(ConfigViewerTemplate, "", "HTML viewer template; the built-in one is used if empty")
	fs.Bool(ConfigYAMLOutput, false, "also write results.yaml")
	fs.Bool(ConfigProgress, true, "print a progress bar")
	fs.Bool(ConfigDebug, false, "debug logging on")
	fs.String(ConfigCPUProfile, "", "write a CPU profile to this file")
	return fs
}

// Load parses args and reads the config file and environment.
func (c *Config) Load(args []string) error {
	c.Viper = viper.New()
	c.setDefaults()

	fs := FlagSet()
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := c.BindPFlags(fs); err != nil {
		return err
	}

	c.SetConfigName("dilemma")
	c.SetConfigType("yaml")
	c.AddConfigPath(".")
	c.AddConfigPath("$HOME/.dilemma")

	c.SetEnvPrefix("dilemma")
	c.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	c.AutomaticEnv()

	if err := c.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("reading config file: %w", err)
		}
		log.Debug().Msg("no config file found, using defaults")
	}
	return nil
}

// Validate checks option constraints. It must pass before any simulation
// work starts.
func (c *Config) Validate() error {
	if c.GetInt(ConfigNumRuns) < 1 {
		return ErrBadNumRuns
	}
	det := c.GetInt(ConfigDetTurns)
	if det < MinDetTurns {
		return fmt.Errorf("%w (got %d)", ErrTooFewDetTurns, det)
	}
	minTurns := c.GetInt(ConfigMinTurns)
	if minTurns < 1 {
		return fmt.Errorf("min-turns must be positive (got %d)", minTurns)
	}
	if det < minTurns {
		return fmt.Errorf("det-turns (%d) must be at least min-turns (%d)", det, minTurns)
	}
	if c.GetFloat64(ConfigLengthScale) <= 0 {
		return errors.New("length-scale must be positive")
	}
	if c.GetInt(ConfigWorkers) < 1 {
		return errors.New("workers must be at least 1")
	}
	return nil
}

// AdjustRelativePaths resolves relative strategy and template paths
// against basepath, if they don't exist relative to the working directory.
func (c *Config) AdjustRelativePaths(basepath string, exists func(string) bool) {
	for _, key := range []string{ConfigStrategyPath, ConfigViewerTemplate} {
		p := c.GetString(key)
		if p == "" || filepath.IsAbs(p) || exists(p) {
			continue
		}
		adjusted := filepath.Join(basepath, p)
		log.Debug().Str("key", key).Str("path", adjusted).Msg("adjusted-relative-path")
		c.Set(key, adjusted)
	}
}

// SanitizedSettings returns all settings for logging.
func (c *Config) SanitizedSettings() map[string]any {
	return c.AllSettings()
}
