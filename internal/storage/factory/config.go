package factory

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/DjordjeVuckovic/news-scout/internal/storage"
	"github.com/DjordjeVuckovic/news-scout/internal/storage/pg"
)

type StorageConfig struct {
	storage.Type
	Pg *pg.PoolConfig
}

func LoadEnv() (*StorageConfig, error) {
	storageType := (storage.Type)(os.Getenv("STORAGE_TYPE"))
	if storageType == "" {
		storageType = storage.Memory
		slog.Info("STORAGE_TYPE not set, defaulting to in-memory storage")
	}
	if storageType != storage.PG && storageType != storage.Memory {
		slog.Error("Invalid STORAGE_TYPE environment variable value", "value", storageType)
		return nil, fmt.Errorf(
			"invalid STORAGE_TYPE environment variable value: %s, expected one of %v",
			storageType,
			[]storage.Type{storage.PG, storage.Memory})
	}

	var pgCfg *pg.PoolConfig
	if storageType == storage.PG {
		pgCfg = &pg.PoolConfig{
			ConnStr: os.Getenv("PG_CONNECTION_STRING"),
		}
		if pgCfg.ConnStr == "" {
			slog.Error("PostgreSQL connection string is not set")
			return nil, fmt.Errorf("PostgreSQL connection string is not set")
		}
	}

	return &StorageConfig{
		Type: storageType,
		Pg:   pgCfg,
	}, nil
}

// NewStoreFromConfig resolves a loaded StorageConfig into a Store.
func NewStoreFromConfig(ctx context.Context, cfg StorageConfig) (storage.Store, error) {
	switch cfg.Type {
	case storage.PG:
		return NewStore(ctx, storage.PG, *cfg.Pg)
	default:
		return NewStore(ctx, cfg.Type, nil)
	}
}
