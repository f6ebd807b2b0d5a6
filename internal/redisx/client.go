package redisx

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

func New(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
}

func Exists(ctx context.Context, rdb *redis.Client, key string) (bool, error) {
	n, err := rdb.Exists(ctx, key).Result()
	return n > 0, err
}

// Marker remembers finalized sessions. It is only a fast path in front of the store's
// unique constraint, so lookups fail open.
type Marker struct {
	Redis *redis.Client
	TTL   time.Duration
}

func (m *Marker) Seen(ctx context.Context, sessionID string) (bool, error) {
	return Exists(ctx, m.Redis, fmt.Sprintf(KeyFinalizedSession, sessionID))
}

func (m *Marker) Mark(ctx context.Context, sessionID string) error {
	ttl := m.TTL
	if ttl == 0 {
		ttl = TTLFinalized
	}
	return m.Redis.Set(ctx, fmt.Sprintf(KeyFinalizedSession, sessionID), "1", ttl).Err()
}

// Claim sets a dedup key once. It returns false when the key was already present.
func Claim(ctx context.Context, rdb *redis.Client, service, id string) (bool, error) {
	return rdb.SetNX(ctx, fmt.Sprintf(KeyDedup, service, id), "1", TTLDedup).Result()
}

// Release removes a dedup key so a failed attempt can be retried.
func Release(ctx context.Context, rdb *redis.Client, service, id string) error {
	return rdb.Del(ctx, fmt.Sprintf(KeyDedup, service, id)).Err()
}
