package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/nbhson/git-book-reader/apps/server/internal/book"
	"github.com/nbhson/git-book-reader/apps/server/internal/book/handler"
	"github.com/nbhson/git-book-reader/apps/server/internal/platform/validation"
	"github.com/nbhson/git-book-reader/pkg/logging"
	"github.com/nbhson/git-book-reader/schemas"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const rawBase = "https://raw.example"

// ─── Stubs ────────────────────────────────────────────────────────────────────

type stubListing struct {
	mu       sync.Mutex
	branches map[string]string
	entries  map[string][]book.Entry
	err      error
}

func (s *stubListing) DefaultBranch(_ context.Context, owner, repo string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	return s.branches[owner+"/"+repo], nil
}

func (s *stubListing) ListEntries(_ context.Context, owner, repo, _ string) (*book.Listing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return &book.Listing{Entries: s.entries[owner+"/"+repo]}, nil
}

type stubFetcher struct {
	bodies map[string][]byte
	err    error
}

func (f *stubFetcher) FetchContent(_ context.Context, address string) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	body, ok := f.bodies[address]
	if !ok {
		return nil, book.NetworkError{Op: "GET " + address, Status: http.StatusNotFound}
	}
	return body, nil
}

type failingHistoryStore struct{}

func (failingHistoryStore) Load(context.Context) ([]string, error) { return nil, nil }

func (failingHistoryStore) Save(context.Context, []string) error {
	return context.DeadlineExceeded
}

// ─── Fixture ──────────────────────────────────────────────────────────────────

type fixture struct {
	router  *gin.Engine
	listing *stubListing
	fetcher *stubFetcher
	svc     *book.Service
}

func newFixture(t *testing.T) *fixture {
	return newFixtureWithStore(t, nil)
}

func newFixtureWithStore(t *testing.T, store book.HistoryStore) *fixture {
	t.Helper()
	log := logging.Discard()
	listing := &stubListing{
		branches: map[string]string{"acme/docs": "main"},
		entries: map[string][]book.Entry{
			"acme/docs": {
				{Path: "guide", Kind: book.KindDirectory},
				{Path: "guide/intro.md", Kind: book.KindFile},
				{Path: "README.md", Kind: book.KindFile},
				{Path: "bin.md", Kind: book.KindFile},
			},
		},
	}
	fetcher := &stubFetcher{bodies: map[string][]byte{
		rawBase + "/acme/docs/main/guide/intro.md": []byte("# Intro"),
		rawBase + "/acme/docs/main/bin.md":         {0xff, 0xfe},
	}}

	history, err := book.NewHistory(context.Background(), store, log)
	require.NoError(t, err)
	svc := book.NewService(
		book.NewLoader(listing, history, rawBase, log),
		book.NewContentCache(fetcher, nil, log),
		history,
	)

	validator, err := validation.New(schemas.OpenAPISpec)
	require.NoError(t, err)
	r := gin.New()
	r.Use(validator)
	handler.RegisterRoutes(r, svc, log)

	return &fixture{router: r, listing: listing, fetcher: fetcher, svc: svc}
}

func (f *fixture) do(method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, http.NoBody)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

// load runs a blocking load of identifier through the API.
func (f *fixture) load(t *testing.T, identifier string) map[string]any {
	t.Helper()
	w := f.do(http.MethodPost, "/repositories/load?wait=true", `{"identifier":"`+identifier+`"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return decode(t, w)
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}
