package document

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tradebot-config/config"

	"github.com/redis/go-redis/v9"
)

// redisKV is the subset of redis.Cmdable used by RedisStorage
type redisKV interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// RedisStorage keeps the document as a single JSON string under one key
type RedisStorage struct {
	client redisKV
	key    string
}

// NewRedisStorage connects to Redis and returns a storage for prefix:name
func NewRedisStorage(ctx context.Context, cfg config.RedisConfig, prefix, name string) (*RedisStorage, *redis.Client, error) {
	if !cfg.Enabled {
		return nil, nil, fmt.Errorf("redis is not enabled in configuration")
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("redis connection failed at %s: %w", cfg.Address, err)
	}

	return newRedisStorage(client, prefix+":"+name), client, nil
}

func newRedisStorage(client redisKV, key string) *RedisStorage {
	return &RedisStorage{client: client, key: key}
}

func (s *RedisStorage) Name() string {
	return "redis:" + s.key
}

func (s *RedisStorage) Load(ctx context.Context) ([]byte, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, s.key)
		}
		return nil, fmt.Errorf("failed to read %s from redis: %w", s.key, err)
	}
	return data, nil
}

func (s *RedisStorage) Store(ctx context.Context, data []byte) error {
	if err := s.client.Set(ctx, s.key, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to write %s to redis: %w", s.key, err)
	}
	return nil
}
