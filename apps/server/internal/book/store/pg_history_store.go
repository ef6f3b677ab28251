package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nbhson/git-book-reader/apps/server/internal/book"
)

// Compile-time check: *PGHistoryStore implements book.HistoryStore.
var _ book.HistoryStore = (*PGHistoryStore)(nil)

// PGHistoryStore keeps the history in the recent_repositories table, one row
// per identifier ordered by position.
type PGHistoryStore struct {
	pool *pgxpool.Pool
}

// NewPGHistoryStore creates a new PGHistoryStore.
func NewPGHistoryStore(pool *pgxpool.Pool) *PGHistoryStore {
	return &PGHistoryStore{pool: pool}
}

// Load returns the stored identifiers, most recent first.
func (s *PGHistoryStore) Load(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT identifier FROM recent_repositories ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan history: %w", err)
	}
	return ids, nil
}

// Save replaces every row within a transaction.
func (s *PGHistoryStore) Save(ctx context.Context, ids []string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `DELETE FROM recent_repositories`); err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	if len(ids) > 0 {
		rows := make([][]any, len(ids))
		for i, id := range ids {
			rows[i] = []any{i, id}
		}
		if _, err := tx.CopyFrom(ctx,
			pgx.Identifier{"recent_repositories"},
			[]string{"position", "identifier"},
			pgx.CopyFromRows(rows),
		); err != nil {
			return fmt.Errorf("insert history: %w", err)
		}
	}
	return tx.Commit(ctx)
}
