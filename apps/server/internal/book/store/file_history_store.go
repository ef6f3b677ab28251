package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/nbhson/git-book-reader/apps/server/internal/book"
)

// Compile-time check: *FileHistoryStore implements book.HistoryStore.
var _ book.HistoryStore = (*FileHistoryStore)(nil)

// FileHistoryStore keeps the history in a local YAML document:
//
//	recentRepos:
//	  - https://github.com/apple/swift
type FileHistoryStore struct {
	path string
}

type historyDoc struct {
	RecentRepos []string `yaml:"recentRepos"`
}

// NewFileHistoryStore creates a store backed by the file at path. The file and
// its directory are created on the first Save.
func NewFileHistoryStore(path string) *FileHistoryStore {
	return &FileHistoryStore{path: path}
}

// Load reads the stored list. A missing file is an empty history.
func (s *FileHistoryStore) Load(_ context.Context) ([]string, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}
	var doc historyDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", s.path, err)
	}
	return doc.RecentRepos, nil
}

// Save writes the list to a temporary file and renames it over the old one,
// so readers never see a partial document.
func (s *FileHistoryStore) Save(_ context.Context, ids []string) error {
	data, err := yaml.Marshal(historyDoc{RecentRepos: ids})
	if err != nil {
		return fmt.Errorf("marshal history: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // gone after a successful rename

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace %s: %w", s.path, err)
	}
	return nil
}
