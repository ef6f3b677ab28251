package book

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Status is the phase of the repository loader.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Snapshot is the loader state at one point in time. Tree is set only for
// StatusSuccess and Err only for StatusError.
type Snapshot struct {
	Status     Status
	Generation uint64
	Identifier string
	Repository Repository
	Tree       *Tree
	Err        error
	Truncated  bool
	// Superseded marks a result that finished after a newer load started. It
	// is delivered on that load's own channel and never published.
	Superseded bool
}

// subscriberBuffer is how many unread snapshots a subscriber may lag behind
// before the oldest are dropped.
const subscriberBuffer = 8

// Loader runs repository loads and publishes their progress. The most
// recently started load always owns the published state: each load is tagged
// with a generation number and a completion whose generation is stale is
// dropped.
type Loader struct {
	listing    ListingClient
	history    *History
	rawBaseURL string
	log        *slog.Logger

	mu      sync.Mutex
	gen     uint64
	current Snapshot
	subs    map[int]chan Snapshot
	nextSub int
}

// NewLoader creates a Loader in the idle state. rawBaseURL is the root that
// content addresses are built from; empty means DefaultRawBaseURL.
func NewLoader(listing ListingClient, history *History, rawBaseURL string, log *slog.Logger) *Loader {
	return &Loader{
		listing:    listing,
		history:    history,
		rawBaseURL: rawBaseURL,
		log:        log,
		current:    Snapshot{Status: StatusIdle},
		subs:       make(map[int]chan Snapshot),
	}
}

// Snapshot returns the currently published state.
func (l *Loader) Snapshot() Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.current
}

// Load starts loading identifier and returns immediately. The returned
// channel receives the snapshot this load produced and is then closed.
//
// Starting a load clears any previous tree or error at once. An identifier
// that does not parse moves straight to StatusError without touching the
// network.
func (l *Loader) Load(ctx context.Context, identifier string) <-chan Snapshot {
	_, done := l.Start(ctx, identifier)
	return done
}

// Start is Load that also reports the generation assigned to the new load.
func (l *Loader) Start(ctx context.Context, identifier string) (uint64, <-chan Snapshot) {
	done := make(chan Snapshot, 1)
	cleaned := strings.TrimSpace(identifier)

	repo, err := ParseIdentifier(cleaned)

	l.mu.Lock()
	l.gen++
	gen := l.gen
	if err != nil {
		snap := Snapshot{Status: StatusError, Generation: gen, Identifier: cleaned, Err: err}
		l.publishLocked(snap)
		l.mu.Unlock()
		l.log.Info("rejected repository identifier", "identifier", cleaned, "generation", gen)
		done <- snap
		close(done)
		return gen, done
	}
	l.publishLocked(Snapshot{Status: StatusLoading, Generation: gen, Identifier: cleaned, Repository: repo})
	l.mu.Unlock()

	l.log.Info("loading repository", "owner", repo.Owner, "repo", repo.Name, "generation", gen)
	go func() {
		snap := l.run(ctx, gen, cleaned, repo)
		l.finish(ctx, snap, done)
	}()
	return gen, done
}

// Subscribe returns a channel receiving every published snapshot, and a
// function that ends the subscription. A slow subscriber loses its oldest
// unread snapshots, never the newest.
func (l *Loader) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, subscriberBuffer)
	l.mu.Lock()
	id := l.nextSub
	l.nextSub++
	l.subs[id] = ch
	ch <- l.current
	l.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.subs, id)
			l.mu.Unlock()
			close(ch)
		})
	}
}

func (l *Loader) run(ctx context.Context, gen uint64, identifier string, repo Repository) Snapshot {
	ctx, span := otel.Tracer(instrName).Start(ctx, "book.Load",
		trace.WithAttributes(
			attribute.String("repo.owner", repo.Owner),
			attribute.String("repo.name", repo.Name),
			attribute.Int64("load.generation", int64(gen)),
		),
	)
	defer span.End()

	fail := func(err error) Snapshot {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Snapshot{Status: StatusError, Generation: gen, Identifier: identifier, Repository: repo, Err: err}
	}

	branch, err := l.listing.DefaultBranch(ctx, repo.Owner, repo.Name)
	if err != nil {
		return fail(fmt.Errorf("resolve default branch of %s: %w", repo.FullName(), err))
	}
	repo.Branch = branch

	// Nobody will see the tree of a superseded load; skip the second call.
	if !l.isCurrent(gen) {
		return Snapshot{Status: StatusLoading, Generation: gen, Identifier: identifier, Repository: repo, Superseded: true}
	}

	listing, err := l.listing.ListEntries(ctx, repo.Owner, repo.Name, branch)
	if err != nil {
		return fail(fmt.Errorf("list tree of %s@%s: %w", repo.FullName(), branch, err))
	}
	if listing.Truncated {
		l.log.Warn("repository listing truncated by host", "owner", repo.Owner, "repo", repo.Name, "entries", len(listing.Entries))
	}

	tree := Build(listing.Entries, RawAddressResolver(l.rawBaseURL, repo))
	span.SetAttributes(attribute.Int("tree.nodes", tree.Len()))

	return Snapshot{
		Status:     StatusSuccess,
		Generation: gen,
		Identifier: identifier,
		Repository: repo,
		Tree:       tree,
		Truncated:  listing.Truncated,
	}
}

// finish publishes snap if its load is still the newest one, and hands it to
// the load's own channel either way. Only a published success is recorded in
// history.
func (l *Loader) finish(ctx context.Context, snap Snapshot, done chan<- Snapshot) {
	defer close(done)

	l.mu.Lock()
	if snap.Superseded || snap.Generation != l.gen {
		l.mu.Unlock()
		snap.Superseded = true
		l.log.Debug("discarding superseded load", "identifier", snap.Identifier, "generation", snap.Generation)
		done <- snap
		return
	}
	l.publishLocked(snap)
	l.mu.Unlock()

	if snap.Err != nil {
		l.log.Warn("repository load failed", "identifier", snap.Identifier, "generation", snap.Generation, "error", snap.Err)
		done <- snap
		return
	}

	if l.history != nil {
		if err := l.history.RecordVisit(ctx, snap.Identifier); err != nil {
			l.log.Warn("record history failed", "identifier", snap.Identifier, "error", err)
		}
	}
	l.log.Info("repository loaded", "owner", snap.Repository.Owner, "repo", snap.Repository.Name,
		"branch", snap.Repository.Branch, "nodes", snap.Tree.Len(), "generation", snap.Generation)
	done <- snap
}

func (l *Loader) isCurrent(gen uint64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return gen == l.gen
}

func (l *Loader) publishLocked(snap Snapshot) {
	l.current = snap
	for _, ch := range l.subs {
		select {
		case ch <- snap:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- snap
		}
	}
}
