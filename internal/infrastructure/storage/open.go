// Package storage provides the key-value backends behind history and auth persistence.
package storage

import (
	"context"
	"fmt"

	"github.com/spf13/afero"

	"github.com/herbalscanner/backend/config"
	"github.com/herbalscanner/backend/internal/domain"
)

// Store is a key-value backend with a lifecycle
type Store interface {
	domain.KeyValueStore
	Close() error
}

// Open builds the backend selected by cfg.Type
func Open(ctx context.Context, cfg config.StorageConfig) (Store, error) {
	switch cfg.Type {
	case config.StorageMemory:
		return NewMemoryStore(), nil
	case config.StorageFile:
		return NewFileStore(afero.NewOsFs(), cfg.Path)
	case config.StoragePostgres:
		return NewPostgresStore(ctx, cfg.PostgresDSN, cfg.MaxConns)
	default:
		return nil, fmt.Errorf("unknown storage type %q", cfg.Type)
	}
}
