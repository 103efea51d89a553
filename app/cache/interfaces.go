package cache

import (
	"context"
	"time"
)

// Cache stores raw feed payloads for a short time so that rapid refresh
// cycles do not hit upstream feeds repeatedly.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Close() error
}
