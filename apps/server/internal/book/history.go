package book

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
)

// MaxHistory is the number of repositories remembered.
const MaxHistory = 20

// History is the ordered, deduplicated list of recently loaded repository
// identifiers, most recent first. Every mutation is written through to the
// HistoryStore. The in-memory list is updated even when the write fails; the
// write error is returned so the caller can report it.
type History struct {
	mu    sync.RWMutex
	ids   []string
	store HistoryStore
	log   *slog.Logger
}

// NewHistory loads the persisted list from store. A nil store keeps history in
// memory only.
func NewHistory(ctx context.Context, store HistoryStore, log *slog.Logger) (*History, error) {
	h := &History{store: store, log: log}
	if store == nil {
		return h, nil
	}
	ids, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	h.ids = normalizeHistory(ids)
	return h, nil
}

// List returns a copy of the history, most recent first.
func (h *History) List() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return slices.Clone(h.ids)
}

// RecordVisit inserts id at the front unless it is already present, in which
// case the list is left exactly as it was. The oldest entries beyond
// MaxHistory are dropped.
func (h *History) RecordVisit(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if slices.Contains(h.ids, id) {
		return nil
	}
	ids := append([]string{id}, h.ids...)
	if len(ids) > MaxHistory {
		ids = ids[:MaxHistory]
	}
	return h.replaceLocked(ctx, ids)
}

// Remove deletes every occurrence of each given id.
func (h *History) Remove(ctx context.Context, ids ...string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	kept := slices.DeleteFunc(slices.Clone(h.ids), func(s string) bool {
		return slices.Contains(ids, s)
	})
	if len(kept) == len(h.ids) {
		return nil
	}
	return h.replaceLocked(ctx, kept)
}

// Clear empties the history.
func (h *History) Clear(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.replaceLocked(ctx, []string{})
}

func (h *History) replaceLocked(ctx context.Context, ids []string) error {
	h.ids = ids
	if h.store == nil {
		return nil
	}
	if err := h.store.Save(ctx, slices.Clone(ids)); err != nil {
		return fmt.Errorf("save history: %w", err)
	}
	h.log.Debug("history saved", "count", len(ids))
	return nil
}

// normalizeHistory drops blanks and duplicates (keeping the first, most
// recent occurrence) and truncates to MaxHistory.
func normalizeHistory(ids []string) []string {
	out := make([]string, 0, min(len(ids), MaxHistory))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
		if len(out) == MaxHistory {
			break
		}
	}
	return out
}
