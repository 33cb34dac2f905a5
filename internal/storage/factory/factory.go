package factory

import (
	"context"
	"fmt"

	"github.com/DjordjeVuckovic/news-scout/internal/storage"
	"github.com/DjordjeVuckovic/news-scout/internal/storage/memory"
	"github.com/DjordjeVuckovic/news-scout/internal/storage/pg"
)

// NewStore creates a storage.Store based on the storage type
func NewStore(ctx context.Context, storageType storage.Type, cfg interface{}) (storage.Store, error) {
	switch storageType {
	case storage.PG:
		pgConfig, ok := cfg.(pg.PoolConfig)
		if !ok {
			return nil, fmt.Errorf("invalid config type for PostgreSQL storage: expected pg.PoolConfig")
		}

		pool, err := pg.NewConnectionPool(ctx, pgConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to create PostgreSQL connection pool: %w", err)
		}

		return pg.NewStore(pool)

	case storage.Memory:
		return memory.NewStore(), nil

	default:
		return nil, fmt.Errorf(string(storage.ErrUnsupportedStore), storageType)
	}
}
