package cache

import (
	"context"

	"ispeak-server-go/internal/platform/config"
	"ispeak-server-go/internal/platform/errors"
)

// Store is a TTL-bound byte cache keyed by recording id. Assessment results
// are served from here before the database is consulted.
type Store interface {
	Put(ctx context.Context, key string, value []byte) error
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Remove(ctx context.Context, key string) error
	Stats(ctx context.Context) (map[string]any, error)
	Close(ctx context.Context) error
}

// New builds the configured cache backend.
func New(cfg config.CacheConfig) (Store, error) {
	switch cfg.Type {
	case "memory", "":
		return NewMemory(cfg), nil
	case "redis":
		return NewRedis(cfg)
	case "none":
		return nopStore{}, nil
	default:
		return nil, errors.New(errors.KindConfig, "cache.new", "unknown cache type: "+cfg.Type)
	}
}

// nopStore disables caching without branching at every call site.
type nopStore struct{}

func (nopStore) Put(context.Context, string, []byte) error { return nil }
func (nopStore) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, nil
}
func (nopStore) Remove(context.Context, string) error { return nil }
func (nopStore) Stats(context.Context) (map[string]any, error) {
	return map[string]any{"type": "none"}, nil
}
func (nopStore) Close(context.Context) error { return nil }
