package storage

import (
	"context"
	"errors"
	"fmt"

	"portfolio-assistant/internal/config"
)

// ErrNotFound is returned by KV.Get for missing keys.
var ErrNotFound = errors.New("storage: key not found")

// KV is the key-value store that backs conversations, game state and
// analytics, the server-side stand-in for the browser's local storage.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	// Keys lists keys starting with prefix in lexical order.
	Keys(ctx context.Context, prefix string) ([]string, error)
	Close() error
}

// Open picks the backend named in the config.
func Open(cfg *config.Config) (KV, error) {
	switch cfg.StoreBackend {
	case config.StoreFile:
		return NewFileKV(cfg.StorePath)
	case config.StorePebble:
		return NewPebbleKV(cfg.StorePath)
	case config.StoreRedis:
		return NewRedisKV(RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Prefix:   cfg.RedisPrefix,
		})
	case config.StoreMemory:
		return NewMemoryKV(), nil
	default:
		return nil, fmt.Errorf("unknown store backend: %q", cfg.StoreBackend)
	}
}
