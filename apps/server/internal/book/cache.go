package book

import (
	"context"
	"log/slog"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/singleflight"
)

const instrName = "github.com/nbhson/git-book-reader/book"

// ContentCache memoizes raw file bodies by content address.
//
// Concurrent Fetch calls for the same address share one remote fetch. The
// store is best effort: anything it drops is fetched again on the next miss.
// Failed or undecodable fetches are never stored.
type ContentCache struct {
	fetcher ContentFetcher
	store   ContentStore
	group   singleflight.Group
	log     *slog.Logger

	hits     metric.Int64Counter
	misses   metric.Int64Counter
	failures metric.Int64Counter
}

// NewContentCache creates a ContentCache. A nil store selects an in-memory
// LRU with default limits.
func NewContentCache(fetcher ContentFetcher, store ContentStore, log *slog.Logger) *ContentCache {
	if store == nil {
		store = NewMemoryContentStore(DefaultCacheMaxBytes, 0)
	}

	m := otel.Meter(instrName)
	hits, _ := m.Int64Counter("book.content.cache.hits",
		metric.WithDescription("Content fetches served from the cache"))
	misses, _ := m.Int64Counter("book.content.cache.misses",
		metric.WithDescription("Content fetches that missed the cache"))
	failures, _ := m.Int64Counter("book.content.fetch.errors",
		metric.WithDescription("Remote content fetches that failed"))

	return &ContentCache{
		fetcher:  fetcher,
		store:    store,
		log:      log,
		hits:     hits,
		misses:   misses,
		failures: failures,
	}
}

// Fetch returns the text at address, fetching it at most once per miss no
// matter how many callers ask concurrently. If ctx ends first Fetch returns
// ctx.Err(); the shared fetch keeps running for the other callers.
func (c *ContentCache) Fetch(ctx context.Context, address string) (string, error) {
	if text, ok := c.lookup(ctx, address); ok {
		c.hits.Add(ctx, 1)
		return text, nil
	}
	c.misses.Add(ctx, 1)

	ch := c.group.DoChan(address, func() (any, error) {
		return c.load(context.WithoutCancel(ctx), address)
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

func (c *ContentCache) load(ctx context.Context, address string) (string, error) {
	// A flight that finished between our miss and this call has already
	// stored the text.
	if text, ok := c.lookup(ctx, address); ok {
		return text, nil
	}

	body, err := c.fetcher.FetchContent(ctx, address)
	if err != nil {
		c.failures.Add(ctx, 1)
		return "", err
	}
	if !utf8.Valid(body) {
		c.failures.Add(ctx, 1)
		return "", ContentDecodeError{Address: address}
	}

	text := string(body)
	if err := c.store.Set(ctx, address, text); err != nil {
		c.log.Warn("content cache store failed", "address", address, "error", err)
	}
	return text, nil
}

func (c *ContentCache) lookup(ctx context.Context, address string) (string, bool) {
	text, ok, err := c.store.Get(ctx, address)
	if err != nil {
		c.log.Warn("content cache lookup failed, treating as miss", "address", address, "error", err)
		return "", false
	}
	return text, ok
}
