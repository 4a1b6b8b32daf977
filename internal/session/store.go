// Package session keeps the research text each browser session works on.
package session

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/bizmatters/design-research-gateway/internal/config"
	"github.com/bizmatters/design-research-gateway/internal/models"
)

// ErrNotFound is returned when a session has no stored record.
var ErrNotFound = errors.New("session not found")

// Store persists one ResearchSession per session id. Implementations are
// safe for concurrent use.
type Store interface {
	Get(ctx context.Context, id string) (*models.ResearchSession, error)
	Save(ctx context.Context, rec *models.ResearchSession) error
	Delete(ctx context.Context, id string) error
	Ping(ctx context.Context) error
	Close() error
}

// Open builds the store selected by cfg.Session.Store.
func Open(ctx context.Context, cfg *config.Config, log *zap.Logger) (Store, error) {
	switch cfg.Session.Store {
	case "", "memory":
		log.Info("Using in-memory session store")
		return NewMemoryStore(cfg.Session.RecordTTL), nil
	case "redis":
		store := NewRedisStore(cfg.Redis, cfg.Session.RecordTTL)
		if err := store.Ping(ctx); err != nil {
			store.Close()
			return nil, err
		}
		log.Info("Using Redis session store", zap.String("address", cfg.Redis.Address))
		return store, nil
	case "postgres":
		store, err := NewPostgresStore(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, err
		}
		log.Info("Using PostgreSQL session store")
		return store, nil
	default:
		return nil, fmt.Errorf("unknown session store %q", cfg.Session.Store)
	}
}
