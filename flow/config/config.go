// Package config loads runner settings from the environment, an optional
// .env file and an optional config file.
//
// Precedence, highest first: process environment, .env file, config file,
// defaults. Environment variables carry the PARFLOW_ prefix, with nested
// keys joined by underscores (chunk.size is PARFLOW_CHUNK_SIZE).
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/lguimbarda/parflow/flow/core"
	"github.com/lguimbarda/parflow/flow/logging"
	"github.com/lguimbarda/parflow/flow/runner"
)

// EnvPrefix prefixes every environment variable the loader reads.
const EnvPrefix = "PARFLOW"

// Chunk modes.
const (
	ChunkModeAuto  = "auto"
	ChunkModeExact = "exact"
	ChunkModeMin   = "min"
)

// ChunkSettings selects the chunk policy.
type ChunkSettings struct {
	Size int    `mapstructure:"size"`
	Mode string `mapstructure:"mode"`
}

// Settings are the loaded runner settings.
type Settings struct {
	// Threads is the default thread cap of every computation: 0 = auto, 1 = sequential.
	Threads int `mapstructure:"threads"`
	// MaxThreads bounds every computation of the runner, whatever its params ask for.
	MaxThreads int           `mapstructure:"max_threads"`
	Chunk      ChunkSettings `mapstructure:"chunk"`
	Ordering   string        `mapstructure:"ordering"`
	SpawnDelay time.Duration `mapstructure:"spawn_delay"`
	Log        logging.Config `mapstructure:"log"`
}

var defaults = map[string]any{
	"threads":     0,
	"max_threads": 0,
	"chunk.size":  0,
	"chunk.mode":  ChunkModeAuto,
	"ordering":    core.Ordered.String(),
	"spawn_delay": runner.DefaultSpawnDelay,
	"log.level":   "none",
	"log.format":  "json",
}

// EnvName returns the environment variable bound to a settings key.
func EnvName(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// LoaderConfig holds the optional file overrides of Load.
type LoaderConfig struct {
	ConfigFile string // yaml, json or toml, by extension
	EnvFile    string
}

// LoaderOption is a functional option for Load.
type LoaderOption func(*LoaderConfig)

// WithConfigFile reads settings from path. A missing file is an error.
func WithConfigFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.ConfigFile = path }
}

// WithEnvFile reads PARFLOW_ variables from a .env file at path.
// Variables already set in the process environment win.
func WithEnvFile(path string) LoaderOption {
	return func(lc *LoaderConfig) { lc.EnvFile = path }
}

// Load builds Settings from defaults, the optional files and the environment.
func Load(opts ...LoaderOption) (Settings, error) {
	var lc LoaderConfig
	for _, opt := range opts {
		opt(&lc)
	}

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if lc.ConfigFile != "" {
		v.SetConfigFile(lc.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return Settings{}, fmt.Errorf("reading config file %s: %w", lc.ConfigFile, err)
		}
	}

	if lc.EnvFile != "" {
		env, err := godotenv.Read(lc.EnvFile)
		if err != nil {
			return Settings{}, fmt.Errorf("reading env file %s: %w", lc.EnvFile, err)
		}
		for key := range defaults {
			name := EnvName(key)
			value, ok := env[name]
			if !ok {
				continue
			}
			if _, set := os.LookupEnv(name); set {
				continue
			}
			v.Set(key, value)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return Settings{}, fmt.Errorf("decoding settings: %w", err)
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Validate reports every invalid field. Out-of-range thread counts and
// chunk sizes are not errors: they select the automatic policy.
func (s Settings) Validate() error {
	var errs []error
	switch s.Chunk.Mode {
	case "", ChunkModeAuto, ChunkModeExact, ChunkModeMin:
	default:
		errs = append(errs, fmt.Errorf("unknown chunk.mode %q", s.Chunk.Mode))
	}
	switch s.Ordering {
	case "", core.Ordered.String(), core.Arbitrary.String():
	default:
		errs = append(errs, fmt.Errorf("unknown ordering %q", s.Ordering))
	}
	if s.SpawnDelay < 0 {
		errs = append(errs, fmt.Errorf("spawn_delay must not be negative, got %s", s.SpawnDelay))
	}
	if _, _, err := logging.ParseLevel(s.Log.Level); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// ChunkSize returns the chunk policy. A mode without a size is automatic.
func (s Settings) ChunkSize() core.ChunkSize {
	switch s.Chunk.Mode {
	case ChunkModeExact:
		return core.ExactChunk(s.Chunk.Size)
	case ChunkModeMin:
		return core.MinChunk(s.Chunk.Size)
	default:
		return core.AutoChunk()
	}
}

// Params returns the default execution parameters the settings describe.
func (s Settings) Params() core.Params {
	ordering := core.Ordered
	if s.Ordering == core.Arbitrary.String() {
		ordering = core.Arbitrary
	}
	return core.NewParams(
		core.WithThreads(s.Threads),
		core.WithChunk(s.ChunkSize()),
		core.WithOrdering(ordering),
	)
}

// RunnerOptions returns the runner options the settings describe. A nil
// logger is replaced by one built from s.Log.
func (s Settings) RunnerOptions(logger *zap.Logger) ([]runner.Option, error) {
	if logger == nil {
		var err error
		if logger, err = logging.New(s.Log); err != nil {
			return nil, err
		}
	}
	return []runner.Option{
		runner.WithLogger(logger),
		runner.WithThreadLimit(s.MaxThreads),
		runner.WithSpawnDelay(s.SpawnDelay),
	}, nil
}

// NewRunner builds a runner from the settings, with extra options applied last.
func (s Settings) NewRunner(extra ...runner.Option) (*runner.Runner, error) {
	opts, err := s.RunnerOptions(nil)
	if err != nil {
		return nil, err
	}
	return runner.New(append(opts, extra...)...), nil
}
