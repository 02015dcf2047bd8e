// Package logging configures the zerolog logger shared by the client.
//
// The TUI owns the terminal, so the default output is a log file rather than
// stderr. Headless commands may pass os.Stderr instead.
//
//	closeLog, err := logging.Init(logging.Config{Level: "debug", File: "~/.local/state/fadeapi/client.log"})
//	defer closeLog()
//
//	log := logging.WithComponent("fadeapi")
//	log.Info().Str("path", "records/").Msg("request")
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Config holds logging configuration.
type Config struct {
	// Level is the minimum level: trace, debug, info, warn, error, disabled.
	Level string

	// Format is json or console.
	Format string

	// File is where logs go when Output is nil. Empty discards logs.
	File string

	// Output overrides File.
	Output io.Writer
}

var (
	mu     sync.RWMutex
	logger = zerolog.Nop()
)

// Init configures the global logger. The returned func closes the log file,
// if one was opened.
func Init(cfg Config) (func() error, error) {
	out := cfg.Output
	closer := func() error { return nil }
	if out == nil {
		if strings.TrimSpace(cfg.File) == "" {
			out = io.Discard
		} else {
			f, err := openLogFile(cfg.File)
			if err != nil {
				return closer, err
			}
			out = f
			closer = f.Close
		}
	}

	if strings.EqualFold(cfg.Format, "console") {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05", NoColor: true}
	}

	zerolog.TimeFieldFormat = time.RFC3339

	l := zerolog.New(out).Level(ParseLevel(cfg.Level)).With().Timestamp().Logger()

	mu.Lock()
	logger = l
	mu.Unlock()
	return closer, nil
}

// Logger returns the global logger.
func Logger() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// WithComponent returns a child logger tagged with component.
func WithComponent(component string) zerolog.Logger {
	return Logger().With().Str("component", component).Logger()
}

// ParseLevel converts a level name to a zerolog level, defaulting to info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "disabled", "off":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return f, nil
}
