// Package logging builds the process-wide zerolog logger from config.
// Every log line carries the app name, environment, and version so records
// from the API and the sync agent can be told apart in aggregated output.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"fixam/internal/config"

	"github.com/rs/zerolog"
)

// New returns the root logger plus a closer for file-backed output. The
// closer is nil when logging goes to a standard stream. Unrecognized levels
// fall back to info rather than failing startup.
func New(cfg config.LoggingConfig, app config.AppConfig) (*zerolog.Logger, io.Closer, error) {
	sink, closer, err := openSink(cfg)
	if err != nil {
		return nil, nil, err
	}

	if normalize(cfg.Format) == "console" {
		sink = zerolog.ConsoleWriter{Out: sink, TimeFormat: time.RFC3339}
	}

	zerolog.TimeFieldFormat = time.RFC3339Nano
	logger := zerolog.New(sink).
		Level(levelOrInfo(cfg.Level)).
		With().
		Timestamp().
		Str("app", app.Name).
		Str("env", app.Environment).
		Str("version", app.Version).
		Logger()

	return &logger, closer, nil
}

func openSink(cfg config.LoggingConfig) (io.Writer, io.Closer, error) {
	switch normalize(cfg.Output) {
	case "stderr":
		return os.Stderr, nil, nil
	case "file":
		if cfg.FilePath == "" {
			return nil, nil, fmt.Errorf("logging.output=file requires logging.file_path")
		}
		file, err := os.OpenFile(cfg.FilePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		return file, file, nil
	default:
		return os.Stdout, nil, nil
	}
}

func levelOrInfo(raw string) zerolog.Level {
	parsed, err := zerolog.ParseLevel(normalize(raw))
	if err != nil {
		return zerolog.InfoLevel
	}
	return parsed
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
