package book

import (
	"context"
	"fmt"
	"strings"
)

// Service is the presentation-facing facade over the loader, content cache and
// history. It depends only on port interfaces, no transport imports.
type Service struct {
	loader  *Loader
	cache   *ContentCache
	history *History
}

// NewService creates a new Service.
func NewService(loader *Loader, cache *ContentCache, history *History) *Service {
	return &Service{loader: loader, cache: cache, history: history}
}

// LoadRepository starts loading identifier. See Loader.Load.
func (s *Service) LoadRepository(ctx context.Context, identifier string) <-chan Snapshot {
	return s.loader.Load(ctx, identifier)
}

// StartLoad starts loading identifier and reports its generation. See
// Loader.Start.
func (s *Service) StartLoad(ctx context.Context, identifier string) (uint64, <-chan Snapshot) {
	return s.loader.Start(ctx, identifier)
}

// State returns the published loader state.
func (s *Service) State() Snapshot {
	return s.loader.Snapshot()
}

// Subscribe streams published loader states. See Loader.Subscribe.
func (s *Service) Subscribe() (<-chan Snapshot, func()) {
	return s.loader.Subscribe()
}

// FetchFileContent returns the text of the file at path in the published
// tree. Only addresses from a published tree are ever fetched.
func (s *Service) FetchFileContent(ctx context.Context, path string) (string, error) {
	n, err := s.node(path)
	if err != nil {
		return "", err
	}
	if n.IsDir() {
		return "", NotAFileError{Path: n.Path}
	}
	text, err := s.cache.Fetch(ctx, n.ContentAddress)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", n.Path, err)
	}
	return text, nil
}

// Breadcrumb returns the nodes from the root down to path, inclusive.
func (s *Service) Breadcrumb(path string) ([]Node, error) {
	snap := s.loader.Snapshot()
	n, err := lookupNode(snap, path)
	if err != nil {
		return nil, err
	}
	return snap.Tree.Breadcrumb(n.ID), nil
}

// History returns the recent repositories, most recent first.
func (s *Service) History() []string {
	return s.history.List()
}

// RecordVisit adds identifier to the history.
func (s *Service) RecordVisit(ctx context.Context, identifier string) error {
	return s.history.RecordVisit(ctx, strings.TrimSpace(identifier))
}

// RemoveFromHistory deletes the given identifiers from the history.
func (s *Service) RemoveFromHistory(ctx context.Context, identifiers ...string) error {
	return s.history.Remove(ctx, identifiers...)
}

// ClearHistory empties the history.
func (s *Service) ClearHistory(ctx context.Context) error {
	return s.history.Clear(ctx)
}

func (s *Service) node(path string) (Node, error) {
	return lookupNode(s.loader.Snapshot(), path)
}

func lookupNode(snap Snapshot, path string) (Node, error) {
	if snap.Status != StatusSuccess || snap.Tree == nil {
		return Node{}, NoRepositoryError{}
	}
	n, ok := snap.Tree.Lookup(strings.Trim(path, "/"))
	if !ok {
		return Node{}, NodeNotFoundError{Path: path}
	}
	return n, nil
}
