package backend

import (
	"context"
	"fmt"
	"log/slog"

	"wealthwise/internal/storage"
)

const defaultDataDir = "data"

type opener func(Config) (storage.Store, string, error)

var openers = map[Kind]opener{
	Memory: func(Config) (storage.Store, string, error) {
		return storage.NewMemoryStore(), "process memory", nil
	},
	File: func(c Config) (storage.Store, string, error) {
		dir := c.DataDir
		if dir == "" {
			dir = defaultDataDir
		}
		s, err := storage.NewFileStore(dir)
		return s, dir, err
	},
	SQLite: func(c Config) (storage.Store, string, error) {
		s, err := storage.NewSQLiteStore(c.SQLitePath)
		return s, c.SQLitePath, err
	},
}

// Open creates the Goal Store described by cfg. Closing the returned
// Backend releases it.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*Backend, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	store, location, err := openers[cfg.Kind](cfg)
	if err != nil {
		return nil, fmt.Errorf("open %s goal store: %w", cfg.Kind, err)
	}

	attrs := []any{"backend", string(cfg.Kind), "location", location}
	if sq, ok := store.(*storage.SQLiteStore); ok {
		attrs = append(attrs, "schema_version", sq.SchemaVersion())
	}
	if cfg.Kind.Durable() {
		logger.InfoContext(ctx, "Goal store opened", attrs...)
	} else {
		logger.WarnContext(ctx, "Goal store opened in memory, goals will not survive a restart", attrs...)
	}

	return &Backend{Store: store, Kind: cfg.Kind, Location: location}, nil
}
