// Package store selects the storage backend from configuration.
package store

import (
	"context"
	"fmt"

	"github.com/fedgate/fedgate/internal/config"
	"github.com/fedgate/fedgate/internal/store/core"
	"github.com/fedgate/fedgate/internal/store/memory"
	"github.com/fedgate/fedgate/internal/store/pg"
)

// New builds the store for cfg.Storage.Driver. The postgres driver also
// applies the embedded migrations.
func New(ctx context.Context, cfg *config.Config) (core.Store, error) {
	switch cfg.Storage.Driver {
	case "memory", "":
		return memory.New(), nil
	case "postgres":
		s, err := pg.New(ctx, cfg.Storage.DSN, pg.Tuning{
			MaxOpenConns:    cfg.Storage.Postgres.MaxOpenConns,
			MinIdleConns:    cfg.Storage.Postgres.MinIdleConns,
			ConnMaxLifetime: cfg.Storage.Postgres.ConnMaxLifetime,
		})
		if err != nil {
			return nil, err
		}
		if err := s.Migrate(ctx); err != nil {
			s.Close()
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("store: unknown driver %q", cfg.Storage.Driver)
	}
}
