// Package history keeps a capped, deduplicated cache of recent register and
// verify activity. It accelerates the UX; the ledger stays the source of
// truth.
package history

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/docledger/document-registry-backend/interfaces"
)

// DefaultCap is the maximum number of entries a store retains.
const DefaultCap = 20

// FileStore persists history as a JSON file, the client-instance analogue of
// browser local storage.
type FileStore struct {
	path string
	cap  int
	log  *slog.Logger
	mu   sync.Mutex
}

// NewFileStore creates a history store backed by the given JSON file.
func NewFileStore(path string, log *slog.Logger) *FileStore {
	return &FileStore{path: path, cap: DefaultCap, log: log}
}

// Remember inserts the entry at the front, dropping any existing entry with
// the same (docId, docHash) pair, and truncates to the cap.
func (s *FileStore) Remember(ctx context.Context, entry interfaces.HistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load()
	if err != nil {
		return err
	}
	entries = prepend(entries, entry, s.cap)
	return s.save(entries)
}

// List returns entries most-recent-first. A missing file is an empty list.
func (s *FileStore) List(ctx context.Context) ([]interfaces.HistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// Remove drops the entry with the given pair, if present.
func (s *FileStore) Remove(ctx context.Context, docID string, digest interfaces.Digest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.load()
	if err != nil {
		return err
	}
	return s.save(withoutPair(entries, docID, digest))
}

// Clear drops all entries.
func (s *FileStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("clearing history: %w", err)
	}
	return nil
}

func (s *FileStore) load() ([]interfaces.HistoryEntry, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading history: %w", err)
	}

	var entries []interfaces.HistoryEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		// A corrupt cache is discarded, not fatal.
		s.log.Warn("discarding unreadable history file", "err", err, "path", s.path)
		return nil, nil
	}
	return entries, nil
}

func (s *FileStore) save(entries []interfaces.HistoryEntry) error {
	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("encoding history: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0644); err != nil {
		return fmt.Errorf("writing history: %w", err)
	}
	return nil
}

// prepend implements the shared dedup-then-insert-then-truncate step.
func prepend(entries []interfaces.HistoryEntry, entry interfaces.HistoryEntry, limit int) []interfaces.HistoryEntry {
	filtered := withoutPair(entries, entry.DocID, entry.DocHash)
	out := append([]interfaces.HistoryEntry{entry}, filtered...)
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func withoutPair(entries []interfaces.HistoryEntry, docID string, digest interfaces.Digest) []interfaces.HistoryEntry {
	out := entries[:0]
	for _, e := range entries {
		if e.DocID == docID && e.DocHash == digest {
			continue
		}
		out = append(out, e)
	}
	return out
}
