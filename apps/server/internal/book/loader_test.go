package book_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nbhson/git-book-reader/apps/server/internal/book"
	"github.com/nbhson/git-book-reader/pkg/logging"
)

func newLoader(t *testing.T, listing *stubListing) (*book.Loader, *memHistoryStore) {
	t.Helper()
	store := &memHistoryStore{}
	return book.NewLoader(listing, newHistory(t, store), "https://raw.example", logging.Discard()), store
}

func await(t *testing.T, ch <-chan book.Snapshot) book.Snapshot {
	t.Helper()
	select {
	case snap, ok := <-ch:
		require.True(t, ok, "load channel closed without a result")
		return snap
	case <-time.After(2 * time.Second):
		t.Fatal("load did not finish")
		return book.Snapshot{}
	}
}

// ─── Load ─────────────────────────────────────────────────────────────────────

func TestLoader_StartsIdle(t *testing.T) {
	l, _ := newLoader(t, newStubListing())
	assert.Equal(t, book.StatusIdle, l.Snapshot().Status)
}

func TestLoader_LoadSuccess(t *testing.T) {
	listing := newStubListing().add("acme/docs", "main", dir("guide"), file("guide/intro.md"), file("logo.png"))
	l, store := newLoader(t, listing)

	snap := await(t, l.Load(context.Background(), "  https://github.com/acme/docs  "))

	require.Equal(t, book.StatusSuccess, snap.Status)
	assert.False(t, snap.Superseded)
	assert.Equal(t, book.Repository{Owner: "acme", Name: "docs", Branch: "main"}, snap.Repository)
	assert.Equal(t, "https://github.com/acme/docs", snap.Identifier)
	intro := mustLookup(t, snap.Tree, "guide/intro.md")
	assert.Equal(t, "https://raw.example/acme/docs/main/guide/intro.md", intro.ContentAddress)

	assert.Equal(t, snap.Tree, l.Snapshot().Tree)
	assert.Equal(t, []string{"https://github.com/acme/docs"}, store.snapshot())
}

func TestLoader_InvalidIdentifierSkipsNetwork(t *testing.T) {
	listing := newStubListing()
	l, store := newLoader(t, listing)

	snap := await(t, l.Load(context.Background(), "not a repository"))

	assert.Equal(t, book.StatusError, snap.Status)
	var invalid book.InvalidIdentifierError
	require.ErrorAs(t, snap.Err, &invalid)
	assert.Equal(t, book.StatusError, l.Snapshot().Status)
	assert.Zero(t, listing.calls.Load())
	assert.Empty(t, store.snapshot())
}

func TestLoader_RemoteFailureIsPublished(t *testing.T) {
	listing := newStubListing().add("acme/docs", "main")
	listing.fail("acme/docs", book.RateLimitedError{Op: "get repository", Status: 403})
	l, store := newLoader(t, listing)

	snap := await(t, l.Load(context.Background(), "acme/docs"))

	require.Equal(t, book.StatusError, snap.Status)
	var limited book.RateLimitedError
	require.ErrorAs(t, snap.Err, &limited)
	assert.Equal(t, "rate_limited", book.ErrorKind(l.Snapshot().Err))
	assert.Nil(t, l.Snapshot().Tree)
	assert.Empty(t, store.snapshot(), "failed loads are not remembered")
}

func TestLoader_StartingLoadClearsPreviousTree(t *testing.T) {
	listing := newStubListing().
		add("acme/one", "main", file("a.md")).
		add("acme/two", "main", file("b.md"))
	l, _ := newLoader(t, listing)
	first := await(t, l.Load(context.Background(), "acme/one"))
	require.Equal(t, book.StatusSuccess, first.Status)

	gate := listing.gate("acme/two")
	done := l.Load(context.Background(), "acme/two")

	snap := l.Snapshot()
	assert.Equal(t, book.StatusLoading, snap.Status)
	assert.Nil(t, snap.Tree)
	assert.Nil(t, snap.Err)
	assert.Greater(t, snap.Generation, first.Generation)

	close(gate)
	assert.Equal(t, book.StatusSuccess, await(t, done).Status)
}

func TestLoader_LastStartedLoadWins(t *testing.T) {
	listing := newStubListing().
		add("acme/slow", "main", file("slow.md")).
		add("acme/fast", "main", file("fast.md"))
	gate := listing.gate("acme/slow")
	l, store := newLoader(t, listing)

	slow := l.Load(context.Background(), "acme/slow")
	fast := await(t, l.Load(context.Background(), "acme/fast"))
	require.Equal(t, book.StatusSuccess, fast.Status)

	close(gate)
	late := await(t, slow)

	assert.True(t, late.Superseded)
	current := l.Snapshot()
	assert.Equal(t, "acme/fast", current.Identifier)
	_, ok := current.Tree.Lookup("fast.md")
	assert.True(t, ok)
	assert.Equal(t, []string{"acme/fast"}, store.snapshot())
	// The superseded load stops before listing its tree.
	assert.Equal(t, int32(3), listing.calls.Load())
}

// ─── Subscribe ────────────────────────────────────────────────────────────────

func TestLoader_SubscribeStreamsTransitions(t *testing.T) {
	listing := newStubListing().add("acme/docs", "main", file("a.md"))
	l, _ := newLoader(t, listing)

	ch, cancel := l.Subscribe()
	defer cancel()
	assert.Equal(t, book.StatusIdle, (<-ch).Status)

	await(t, l.Load(context.Background(), "acme/docs"))

	assert.Equal(t, book.StatusLoading, (<-ch).Status)
	assert.Equal(t, book.StatusSuccess, (<-ch).Status)
}

func TestLoader_SlowSubscriberKeepsNewest(t *testing.T) {
	l, _ := newLoader(t, newStubListing())
	ch, cancel := l.Subscribe()

	for range 20 {
		await(t, l.Load(context.Background(), "invalid"))
	}

	var last book.Snapshot
	for len(ch) > 0 {
		last = <-ch
	}
	assert.Equal(t, l.Snapshot().Generation, last.Generation)

	cancel()
	cancel()
	_, open := <-ch
	assert.False(t, open)
}

func TestLoader_StartReportsGeneration(t *testing.T) {
	listing := newStubListing().add("acme/docs", "main", file("a.md"))
	l, _ := newLoader(t, listing)

	gen1, done1 := l.Start(context.Background(), "acme/docs")
	gen2, done2 := l.Start(context.Background(), "acme/docs")

	assert.Equal(t, gen1+1, gen2)
	assert.Equal(t, gen2, l.Snapshot().Generation)
	assert.Equal(t, gen1, await(t, done1).Generation)
	assert.Equal(t, gen2, await(t, done2).Generation)
}

func TestLoader_HistoryOnlyRecordsPublishedResults(t *testing.T) {
	listing := newStubListing().add("acme/first", "main", file("first.md"))
	store := newBlockingHistoryStore()
	l := book.NewLoader(listing, newHistory(t, store), "https://raw.example", logging.Discard())
	updates, cancel := l.Subscribe()
	defer cancel()

	first := l.Load(context.Background(), "acme/first")
	<-store.entered

	// A newer load starts while the first one's history write is in flight.
	second := await(t, l.Load(context.Background(), "not a repo"))
	require.Equal(t, book.StatusError, second.Status)
	close(store.release)

	done := await(t, first)
	assert.False(t, done.Superseded, "a result that reached history must have been published")
	assert.Equal(t, []string{"acme/first"}, store.snapshot())

	var seen []string
	for len(updates) > 0 {
		u := <-updates
		seen = append(seen, string(u.Status)+":"+u.Identifier)
	}
	assert.Equal(t, []string{"idle:", "loading:acme/first", "success:acme/first", "error:not a repo"}, seen)
	assert.Equal(t, book.StatusError, l.Snapshot().Status)
}

func TestLoader_SupersededResultLeavesHistoryAlone(t *testing.T) {
	listing := newStubListing().
		add("acme/slow", "main", file("slow.md")).
		add("acme/fast", "main", file("fast.md"))
	gate := listing.gate("acme/slow")
	l, store := newLoader(t, listing)

	slow := l.Load(context.Background(), "acme/slow")
	require.Equal(t, book.StatusError, await(t, l.Load(context.Background(), "nope")).Status)
	close(gate)

	assert.True(t, await(t, slow).Superseded)
	assert.Empty(t, store.snapshot())
	assert.Equal(t, 0, store.saves)
}
