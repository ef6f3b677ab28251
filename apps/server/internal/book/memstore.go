package book

import (
	"context"
	"math"
	"sync"

	"github.com/hashicorp/golang-lru/v2/simplelru"
)

// DefaultCacheMaxBytes bounds the in-memory content store.
const DefaultCacheMaxBytes = 32 << 20

// Compile-time check: *MemoryContentStore implements ContentStore.
var _ ContentStore = (*MemoryContentStore)(nil)

// MemoryContentStore is an LRU ContentStore bounded by total text size and,
// optionally, by entry count. Zero limits disable that bound.
type MemoryContentStore struct {
	mu       sync.Mutex
	maxBytes int
	size     int
	lru      *simplelru.LRU[string, string]
}

// NewMemoryContentStore creates an empty store.
func NewMemoryContentStore(maxBytes, maxEntries int) *MemoryContentStore {
	if maxEntries <= 0 {
		maxEntries = math.MaxInt32
	}
	s := &MemoryContentStore{maxBytes: maxBytes}
	// The eviction callback runs inside lru calls made with mu held.
	lru, err := simplelru.NewLRU[string, string](maxEntries, func(_ string, text string) {
		s.size -= len(text)
	})
	if err != nil {
		panic(err) // size is always positive
	}
	s.lru = lru
	return s
}

// Get returns the text stored for address and marks it recently used.
func (s *MemoryContentStore) Get(_ context.Context, address string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	text, ok := s.lru.Get(address)
	return text, ok, nil
}

// Set stores text for address, evicting least recently used entries until
// the limits hold. Text larger than the whole byte budget is not kept.
func (s *MemoryContentStore) Set(_ context.Context, address, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.maxBytes > 0 && len(text) > s.maxBytes {
		s.lru.Remove(address)
		return nil
	}

	// Replacing a value does not fire the eviction callback.
	if old, ok := s.lru.Peek(address); ok {
		s.size -= len(old)
	}
	s.lru.Add(address, text)
	s.size += len(text)

	for s.maxBytes > 0 && s.size > s.maxBytes {
		if _, _, ok := s.lru.RemoveOldest(); !ok {
			break
		}
	}
	return nil
}

// Purge drops every entry, e.g. in response to memory pressure.
func (s *MemoryContentStore) Purge() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lru.Purge()
	s.size = 0
}

// Len returns the number of stored entries.
func (s *MemoryContentStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lru.Len()
}

// Size returns the total length of the stored texts in bytes.
func (s *MemoryContentStore) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.size
}
