package document

import (
	"context"
	"fmt"

	"tradebot-config/config"
)

// OpenStorage builds the storage selected by cfg.StorageConfig.Backend. The
// returned close function releases backend connections and is never nil.
func OpenStorage(ctx context.Context, cfg *config.Config) (Storage, func(), error) {
	noop := func() {}

	switch cfg.StorageConfig.Backend {
	case "", "file":
		return NewFileStorage(cfg.PathsConfig.UserConfigFile), noop, nil
	case "redis":
		s, client, err := NewRedisStorage(ctx, cfg.RedisConfig, cfg.StorageConfig.RedisKey, cfg.StorageConfig.Name)
		if err != nil {
			return nil, noop, err
		}
		return s, func() { client.Close() }, nil
	case "postgres":
		s, pool, err := NewPostgresStorage(ctx, cfg.PostgresConfig, cfg.StorageConfig.Name)
		if err != nil {
			return nil, noop, err
		}
		return s, pool.Close, nil
	default:
		return nil, noop, fmt.Errorf("unknown storage backend %q", cfg.StorageConfig.Backend)
	}
}
