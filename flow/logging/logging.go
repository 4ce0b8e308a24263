// Package logging builds the zap loggers parflow runners log through.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config selects the log level and output format.
type Config struct {
	// Level is one of none, debug, info, warn, error. Empty means none.
	Level string `mapstructure:"level"`
	// Format is json or console ("text" is accepted too). Empty means json.
	Format string `mapstructure:"format"`
}

// ParseLevel maps a level name to a zap level. ok is false for "none" and
// the empty string, which disable logging.
func ParseLevel(name string) (level zapcore.Level, ok bool, err error) {
	switch name {
	case "", "none":
		return zapcore.InfoLevel, false, nil
	case "debug":
		return zap.DebugLevel, true, nil
	case "info":
		return zap.InfoLevel, true, nil
	case "warn":
		return zap.WarnLevel, true, nil
	case "error":
		return zap.ErrorLevel, true, nil
	default:
		return zapcore.InfoLevel, false, fmt.Errorf("unknown log level: %s", name)
	}
}

// New builds a logger from cfg. Logging is disabled unless a level is set.
func New(cfg Config) (*zap.Logger, error) {
	level, enabled, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	if !enabled {
		return zap.NewNop(), nil
	}

	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(level)
	zcfg.EncoderConfig.TimeKey = "timestamp"
	zcfg.EncoderConfig.CallerKey = ""
	zcfg.DisableStacktrace = true
	zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	switch cfg.Format {
	case "", "json":
	case "console", "text":
		zcfg.Encoding = "console"
		zcfg.DisableCaller = true
		zcfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	default:
		return nil, fmt.Errorf("unknown log format: %s", cfg.Format)
	}

	log, err := zcfg.Build()
	if err != nil {
		return nil, err
	}
	return log.Named("parflow"), nil
}

// MustNew is New that panics on error.
func MustNew(cfg Config) *zap.Logger {
	log, err := New(cfg)
	if err != nil {
		panic(err)
	}
	return log
}
