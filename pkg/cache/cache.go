package cache

import (
	"context"
	"errors"
	"time"
)

var (
	ErrCacheMiss = errors.New("cache: key not found")
)

// Service is the subset of cache operations the state mirror needs.
type Service interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Get(ctx context.Context, key string, dest interface{}) error
	MSet(ctx context.Context, values map[string]interface{}, expiration time.Duration) error
	Close() error
}
