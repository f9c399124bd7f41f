// Package logging builds zerolog loggers for the embetter client and its
// storage backends.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

// Output formats.
const (
	FormatJSON   = "json"
	FormatPretty = "pretty"
)

// Config holds logging configuration.
type Config struct {
	Level      string `json:"level" yaml:"level"`             // trace, debug, info, warn, error, disabled
	Format     string `json:"format" yaml:"format"`           // json, pretty
	OutputFile string `json:"output_file" yaml:"output_file"` // optional log file, appended to
	Console    bool   `json:"console" yaml:"console"`         // also log to stderr
}

// DefaultConfig returns info-level JSON logging to stderr.
func DefaultConfig() *Config {
	return &Config{
		Level:   "info",
		Format:  FormatJSON,
		Console: true,
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// New builds a logger from cfg. A nil cfg uses DefaultConfig. With neither
// console nor file output the logger discards everything.
//
// The returned closer releases the log file, if any; it is never nil.
func New(cfg *Config) (zerolog.Logger, io.Closer, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	level := zerolog.InfoLevel
	if cfg.Level != "" {
		l, err := zerolog.ParseLevel(cfg.Level)
		if err != nil {
			return zerolog.Nop(), nil, fmt.Errorf("parse log level %q: %w", cfg.Level, err)
		}
		level = l
	}

	var writers []io.Writer
	var closer io.Closer = nopCloser{}
	if cfg.Console {
		switch cfg.Format {
		case FormatPretty:
			writers = append(writers, zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
		case FormatJSON, "":
			writers = append(writers, os.Stderr)
		default:
			return zerolog.Nop(), nil, fmt.Errorf("unknown log format %q", cfg.Format)
		}
	}

	if cfg.OutputFile != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.OutputFile), 0o755); err != nil {
			return zerolog.Nop(), nil, fmt.Errorf("create log directory: %w", err)
		}
		f, err := os.OpenFile(cfg.OutputFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return zerolog.Nop(), nil, fmt.Errorf("open log file: %w", err)
		}
		writers = append(writers, f)
		closer = f
	}

	switch len(writers) {
	case 0:
		return zerolog.Nop(), closer, nil
	case 1:
		return zerolog.New(writers[0]).Level(level).With().Timestamp().Logger(), closer, nil
	default:
		return zerolog.New(io.MultiWriter(writers...)).Level(level).With().Timestamp().Logger(), closer, nil
	}
}

// Component returns a child logger tagged with the component name.
func Component(logger zerolog.Logger, name string) zerolog.Logger {
	return logger.With().Str("component", name).Logger()
}

// Storage returns a child logger for a checkpoint store backend.
func Storage(logger zerolog.Logger, backend string) zerolog.Logger {
	return logger.With().
		Str("component", "storage").
		Str("backend", backend).
		Logger()
}
