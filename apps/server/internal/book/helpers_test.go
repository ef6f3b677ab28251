package book_test

import (
	"context"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/nbhson/git-book-reader/apps/server/internal/book"
)

// Compile-time interface compliance checks.
var (
	_ book.ListingClient  = (*stubListing)(nil)
	_ book.HistoryStore   = (*memHistoryStore)(nil)
	_ book.HistoryStore   = (*blockingHistoryStore)(nil)
	_ book.ContentFetcher = (*stubFetcher)(nil)
)

func file(path string) book.Entry { return book.Entry{Path: path, Kind: book.KindFile} }
func dir(path string) book.Entry  { return book.Entry{Path: path, Kind: book.KindDirectory} }

// ─── stubListing ──────────────────────────────────────────────────────────────

// stubListing serves canned listings keyed by "owner/repo". A gate blocks
// DefaultBranch for that repo until it is closed.
type stubListing struct {
	mu       sync.Mutex
	branches map[string]string
	entries  map[string][]book.Entry
	errs     map[string]error
	gates    map[string]chan struct{}
	calls    atomic.Int32
}

func newStubListing() *stubListing {
	return &stubListing{
		branches: make(map[string]string),
		entries:  make(map[string][]book.Entry),
		errs:     make(map[string]error),
		gates:    make(map[string]chan struct{}),
	}
}

func (s *stubListing) add(fullName, branch string, entries ...book.Entry) *stubListing {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.branches[fullName] = branch
	s.entries[fullName] = entries
	return s
}

func (s *stubListing) fail(fullName string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs[fullName] = err
}

func (s *stubListing) gate(fullName string) chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	g := make(chan struct{})
	s.gates[fullName] = g
	return g
}

func (s *stubListing) DefaultBranch(ctx context.Context, owner, repo string) (string, error) {
	s.calls.Add(1)
	key := owner + "/" + repo
	s.mu.Lock()
	g := s.gates[key]
	s.mu.Unlock()
	if g != nil {
		select {
		case <-g:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.errs[key]; err != nil {
		return "", err
	}
	return s.branches[key], nil
}

func (s *stubListing) ListEntries(_ context.Context, owner, repo, _ string) (*book.Listing, error) {
	s.calls.Add(1)
	s.mu.Lock()
	defer s.mu.Unlock()
	return &book.Listing{Entries: slices.Clone(s.entries[owner+"/"+repo])}, nil
}

// ─── memHistoryStore ──────────────────────────────────────────────────────────

type memHistoryStore struct {
	mu    sync.Mutex
	ids   []string
	saves int
	err   error
}

func (m *memHistoryStore) Load(context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.ids), nil
}

func (m *memHistoryStore) Save(_ context.Context, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	if m.err != nil {
		return m.err
	}
	m.ids = slices.Clone(ids)
	return nil
}

func (m *memHistoryStore) snapshot() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.ids)
}

// blockingHistoryStore signals entered on every Save and then waits for
// release before storing.
type blockingHistoryStore struct {
	memHistoryStore
	entered chan struct{}
	release chan struct{}
}

func newBlockingHistoryStore() *blockingHistoryStore {
	return &blockingHistoryStore{entered: make(chan struct{}, 1), release: make(chan struct{})}
}

func (b *blockingHistoryStore) Save(ctx context.Context, ids []string) error {
	b.entered <- struct{}{}
	<-b.release
	return b.memHistoryStore.Save(ctx, ids)
}

// ─── stubFetcher ──────────────────────────────────────────────────────────────

// stubFetcher returns bodies keyed by address and counts calls per address.
// When release is non-nil every call waits on it first.
type stubFetcher struct {
	mu      sync.Mutex
	bodies  map[string][]byte
	errs    map[string]error
	calls   map[string]int
	release chan struct{}
}

func newStubFetcher() *stubFetcher {
	return &stubFetcher{
		bodies: make(map[string][]byte),
		errs:   make(map[string]error),
		calls:  make(map[string]int),
	}
}

func (f *stubFetcher) FetchContent(_ context.Context, address string) ([]byte, error) {
	f.mu.Lock()
	f.calls[address]++
	release := f.release
	f.mu.Unlock()

	if release != nil {
		<-release
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errs[address]; err != nil {
		return nil, err
	}
	return f.bodies[address], nil
}

func (f *stubFetcher) callCount(address string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[address]
}
