package docstore

import (
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docledger/document-registry-backend/interfaces"
)

func TestFileBackendUploadFetch(t *testing.T) {
	backend, err := NewFileBackend(t.TempDir(), "https://docs.example.org", slog.Default())
	require.NoError(t, err)

	url, err := backend.Upload(context.Background(), "req-1/transcript.pdf", strings.NewReader("content"), "application/pdf")
	require.NoError(t, err)
	assert.Equal(t, "https://docs.example.org/req-1/transcript.pdf", url)

	data, err := backend.Fetch(context.Background(), "req-1/transcript.pdf")
	require.NoError(t, err)
	assert.Equal(t, "content", string(data))
}

func TestFileBackendFetchMissing(t *testing.T) {
	backend, err := NewFileBackend(t.TempDir(), "", slog.Default())
	require.NoError(t, err)

	_, err = backend.Fetch(context.Background(), "nope/file.pdf")
	assert.ErrorIs(t, err, interfaces.ErrContentNotFound)
}

func TestFileBackendRejectsTraversal(t *testing.T) {
	backend, err := NewFileBackend(t.TempDir(), "", slog.Default())
	require.NoError(t, err)

	// Traversal segments are cleaned away; the write stays inside the base
	// directory and the URL reflects the cleaned path.
	url, err := backend.Upload(context.Background(), "../../etc/passwd", strings.NewReader("x"), "")
	require.NoError(t, err)
	assert.NotContains(t, url, "..")

	_, err = backend.Upload(context.Background(), "/", strings.NewReader("x"), "")
	assert.ErrorIs(t, err, interfaces.ErrValidation)
}

func TestFactorySchemes(t *testing.T) {
	factory := NewFactory(slog.Default())

	backend, err := factory.BackendFor("file://" + t.TempDir() + "?base_url=https://docs.example.org")
	require.NoError(t, err)
	assert.Contains(t, backend.LocationURI(), "file://")

	_, err = factory.BackendFor("ftp://example.org/docs")
	assert.ErrorIs(t, err, interfaces.ErrValidation)
}
