package codestore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNotFound is returned by Get when the key is absent or expired.
var ErrNotFound = errors.New("code store: key not found")

// Store is a short-lived key/value store with per-key expiry.
//
// Implementations must make SetNX and CompareAndDelete atomic with respect to
// other calls on the same key.
type Store interface {
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// SetNX stores value only when key is absent. Returns false if key exists.
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	Get(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error
	// CompareAndDelete removes key only when its current value equals value.
	CompareAndDelete(ctx context.Context, key, value string) (bool, error)
}

// StoreConfig contains configuration for creating a code store
type StoreConfig struct {
	// Client is required for redis stores
	Client redis.UniversalClient
	// Prefix is prepended to every redis key
	Prefix string
}

// NewStore creates a code store for the given backend type
func NewStore(storeType string, config StoreConfig) (Store, error) {
	switch storeType {
	case "redis":
		if config.Client == nil {
			return nil, fmt.Errorf("redis client required for redis code store")
		}
		return NewRedisStore(config.Client, config.Prefix), nil
	case "memory", "inmem":
		return NewInMemStore(), nil
	default:
		return nil, fmt.Errorf("unsupported code store type: %s (supported: redis, memory)", storeType)
	}
}
