package store

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/nbhson/git-book-reader/apps/server/internal/book"
)

// Compile-time check: *RedisHistoryStore implements book.HistoryStore.
var _ book.HistoryStore = (*RedisHistoryStore)(nil)

// RedisHistoryStore keeps the history as a Redis list under book.HistoryKey,
// most recent first.
type RedisHistoryStore struct {
	rdb redis.UniversalClient
	key string
}

// NewRedisHistoryStore creates a new RedisHistoryStore.
func NewRedisHistoryStore(rdb redis.UniversalClient) *RedisHistoryStore {
	return &RedisHistoryStore{rdb: rdb, key: book.HistoryKey}
}

// Load returns the stored list. A missing key is an empty history.
func (s *RedisHistoryStore) Load(ctx context.Context) ([]string, error) {
	ids, err := s.rdb.LRange(ctx, s.key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	return ids, nil
}

// Save replaces the stored list atomically.
func (s *RedisHistoryStore) Save(ctx context.Context, ids []string) error {
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.key)
		if len(ids) > 0 {
			vals := make([]any, len(ids))
			for i, id := range ids {
				vals[i] = id
			}
			pipe.RPush(ctx, s.key, vals...)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("save history: %w", err)
	}
	return nil
}
