package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/abgdnv/shopbot/internal/store"
	"github.com/abgdnv/shopbot/pkg/logger"
)

// NewLogger creates a new slog.Logger instance with the specified log level.
func NewLogger(level string) *slog.Logger {
	logLevel := toLevel(level)
	loggerOpts := &slog.HandlerOptions{
		AddSource: logLevel == slog.LevelDebug,
		Level:     logLevel,
	}
	logHandler := logger.NewContextHandler(slog.NewJSONHandler(os.Stdout, loggerOpts))
	return slog.New(logHandler)
}

// NewFileStore opens the document store at the given path and performs one
// eager load so a missing file is initialized and a corrupt one fails fast
// at startup instead of on the first user action.
func NewFileStore(ctx context.Context, path string) (*store.FileStore, error) {
	fileStore := store.NewFileStore(path)
	if _, err := fileStore.Load(ctx); err != nil {
		return nil, fmt.Errorf("failed to open store file %s: %w", path, err)
	}
	return fileStore, nil
}

// toLevel converts a string representation of a log level to slog.Level.
func toLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
