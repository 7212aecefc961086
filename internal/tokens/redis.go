package tokens

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/yoockh/singalong/internal/cache"
)

const keyPrefix = "score_token:"

// RedisStore shares tokens across replicas. Expiry is delegated to Redis.
type RedisStore struct {
	c   cache.Cache
	ttl time.Duration
}

type tokenRecord struct {
	Score    int   `json:"score"`
	IssuedAt int64 `json:"issued_at"`
}

func NewRedisStore(c cache.Cache, ttl time.Duration) *RedisStore {
	return &RedisStore{c: c, ttl: ttl}
}

func (s *RedisStore) Issue(ctx context.Context, score int) (string, error) {
	id := uuid.NewString()
	rec := tokenRecord{Score: score, IssuedAt: time.Now().UTC().Unix()}
	if err := s.c.SetJSON(ctx, keyPrefix+id, rec, s.ttl); err != nil {
		return "", err
	}
	return id, nil
}

func (s *RedisStore) Redeem(ctx context.Context, id string) (int, error) {
	if id == "" {
		return 0, ErrTokenNotFound
	}
	var rec tokenRecord
	hit, err := s.c.TakeJSON(ctx, keyPrefix+id, &rec)
	if err != nil {
		return 0, err
	}
	if !hit {
		return 0, ErrTokenNotFound
	}
	return rec.Score, nil
}
