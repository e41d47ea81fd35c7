package cache

// Package cache provides read caching for catalog lookups and idempotency
// marks for settled payment sessions.

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var ErrNotFound = errors.New("key not found")

type Provider interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

type Config struct {
	Provider              string
	RedisConnectionString string
}

func NewProvider(cfg Config) (Provider, error) {
	switch cfg.Provider {
	case "memory", "":
		return NewMemoryProvider()
	case "redis":
		return NewRedisProvider(cfg.RedisConnectionString)
	default:
		return nil, fmt.Errorf("unsupported cache provider: %s", cfg.Provider)
	}
}

// CatalogKey names a cached catalog read, e.g. CatalogKey("categories").
func CatalogKey(parts ...string) string {
	key := "catalog"
	for _, part := range parts {
		key += ":" + part
	}
	return key
}

// SettledSessionKey marks a payment session that already settled, so repeat
// verification calls can short-circuit the provider round trip.
func SettledSessionKey(sessionID string) string {
	return fmt.Sprintf("settled:%s", sessionID)
}
