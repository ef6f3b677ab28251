package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nbhson/git-book-reader/apps/server/internal/book"
)

const contentKeyPrefix = "book:content:"

// Compile-time check: *RedisContentStore implements book.ContentStore.
var _ book.ContentStore = (*RedisContentStore)(nil)

// RedisContentStore shares fetched file text between server instances. Keys
// expire after ttl; zero keeps them until Redis evicts them.
type RedisContentStore struct {
	rdb redis.UniversalClient
	ttl time.Duration
}

// NewRedisContentStore creates a new RedisContentStore.
func NewRedisContentStore(rdb redis.UniversalClient, ttl time.Duration) *RedisContentStore {
	return &RedisContentStore{rdb: rdb, ttl: ttl}
}

// Get returns the text cached for address.
func (s *RedisContentStore) Get(ctx context.Context, address string) (string, bool, error) {
	val, err := s.rdb.Get(ctx, contentKeyPrefix+address).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get content %q: %w", address, err)
	}
	return val, true, nil
}

// Set caches text for address.
func (s *RedisContentStore) Set(ctx context.Context, address, text string) error {
	if err := s.rdb.Set(ctx, contentKeyPrefix+address, text, s.ttl).Err(); err != nil {
		return fmt.Errorf("set content %q: %w", address, err)
	}
	return nil
}
