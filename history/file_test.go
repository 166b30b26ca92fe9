package history

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docledger/document-registry-backend/interfaces"
)

func newTestStore(t *testing.T) *FileStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "history.json")
	return NewFileStore(path, slog.Default())
}

func entryAt(docID string, digest interfaces.Digest, at time.Time) interfaces.HistoryEntry {
	return interfaces.HistoryEntry{DocID: docID, DocHash: digest, RegisteredAt: &at}
}

func TestFileStoreRememberAndList(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	hashA := interfaces.HashBytes([]byte("a"))
	hashB := interfaces.HashBytes([]byte("b"))

	require.NoError(t, store.Remember(ctx, entryAt("doc-1", hashA, time.Now())))
	require.NoError(t, store.Remember(ctx, entryAt("doc-2", hashB, time.Now())))

	entries, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "doc-2", entries[0].DocID, "most recent entry comes first")
	assert.Equal(t, "doc-1", entries[1].DocID)
}

func TestFileStoreDedup(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	hash := interfaces.HashBytes([]byte("content"))
	older := time.Now().Add(-time.Hour)
	newer := time.Now()

	require.NoError(t, store.Remember(ctx, entryAt("doc-1", hash, older)))
	require.NoError(t, store.Remember(ctx, entryAt("doc-2", interfaces.HashBytes([]byte("other")), older)))
	require.NoError(t, store.Remember(ctx, entryAt("doc-1", hash, newer)))

	entries, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2, "repeat insert replaces position instead of duplicating")
	assert.Equal(t, "doc-1", entries[0].DocID)
	assert.WithinDuration(t, newer, *entries[0].RegisteredAt, time.Second, "kept entry carries the latest timestamp")
}

func TestFileStoreCap(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < DefaultCap+5; i++ {
		entry := entryAt("doc", interfaces.HashBytes([]byte{byte(i)}), time.Now())
		entry.DocID = entry.DocID + "-" + string(rune('a'+i))
		require.NoError(t, store.Remember(ctx, entry))
	}

	entries, err := store.List(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, DefaultCap)
}

func TestFileStoreRemoveAndClear(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	hash := interfaces.HashBytes([]byte("x"))
	require.NoError(t, store.Remember(ctx, entryAt("doc-1", hash, time.Now())))
	require.NoError(t, store.Remove(ctx, "doc-1", hash))

	entries, err := store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)

	// Removing an absent pair and clearing an empty store never fail.
	require.NoError(t, store.Remove(ctx, "doc-1", hash))
	require.NoError(t, store.Clear(ctx))
}

func TestFileStoreEmptyList(t *testing.T) {
	store := newTestStore(t)

	entries, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, entries, "missing file reads as empty history")
}

func TestFileStoreCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0644))
	store := NewFileStore(path, slog.Default())

	entries, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, entries, "corrupt cache is discarded, not fatal")
}
