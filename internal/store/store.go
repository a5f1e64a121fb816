// Package store persists API keys and media keys as flat hash maps in a
// remote key-value store.
package store

import (
	"context"
	"errors"
	"fmt"

	"keyrelay/internal/config"
)

// Hash namespaces. The names match the keys used by existing deployments.
const (
	NamespaceAPIKeys   = "api-keys"
	NamespaceKeyNames  = "api_key_names"
	NamespaceMediaKeys = "media_keys"
)

const (
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// HashStore issues single hash-map commands against the backing store.
// Every call is a direct round trip; nothing is cached client side.
type HashStore interface {
	// HSet writes field and reports whether it did not exist before.
	HSet(ctx context.Context, namespace, field, value string) (bool, error)
	HGet(ctx context.Context, namespace, field string) (string, bool, error)
	HGetAll(ctx context.Context, namespace string) (map[string]string, error)
	// HDel removes field and reports whether it was present.
	HDel(ctx context.Context, namespace, field string) (bool, error)
	HExists(ctx context.Context, namespace, field string) (bool, error)
	Ping(ctx context.Context) error
	Close() error
}

// Open connects the hash store selected by cfg.StoreDriver.
func Open(ctx context.Context, cfg *config.Config) (HashStore, error) {
	switch cfg.StoreDriver {
	case DriverRedis, "":
		return NewRedisStore(ctx, RedisOptions{URL: cfg.RedisURL})
	case DriverPostgres:
		return NewPostgresStore(cfg.DatabaseURL)
	case DriverMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

var errEmptyNamespace = errors.New("namespace is required")
