package cache

import (
	"context"
	"time"
)

// Cache stores JSON values under string keys. A zero ttl means no expiry.
type Cache interface {
	SetJSON(ctx context.Context, key string, val any, ttl time.Duration) error
	// TakeJSON reads and deletes key in one step; a second TakeJSON of the same
	// key is always a miss.
	TakeJSON(ctx context.Context, key string, dst any) (hit bool, err error)
}
