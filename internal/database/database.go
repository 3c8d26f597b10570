// Package database opens the configured session backend.
package database

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ayusman/ptrack/internal/config"
	"github.com/ayusman/ptrack/internal/pgstore"
	"github.com/ayusman/ptrack/internal/store"
)

// Open connects to the backend named by cfg.Driver and brings its schema up
// to date.
func Open(ctx context.Context, cfg config.DatabaseConfig, log *slog.Logger) (store.Backend, error) {
	if log == nil {
		log = slog.Default()
	}

	switch cfg.Driver {
	case "", "sqlite":
		s, err := store.New(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite store: %w", err)
		}
		log.Info("database opened", "driver", "sqlite", "path", s.Path())
		return s, nil

	case "postgres":
		dsn := cfg.DSN()
		if err := pgstore.RunMigrations(dsn); err != nil {
			return nil, err
		}
		db, err := pgstore.New(ctx, dsn)
		if err != nil {
			return nil, fmt.Errorf("connecting to postgres: %w", err)
		}
		log.Info("database opened", "driver", "postgres", "host", cfg.Host, "name", cfg.Name)
		return db, nil
	}
	return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
}
