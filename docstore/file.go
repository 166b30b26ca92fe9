package docstore

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/docledger/document-registry-backend/interfaces"
)

// FileBackend stores documents on the local filesystem. baseURL is the
// public prefix the directory is served under; an empty baseURL yields
// file:// URLs, which is only useful for local development.
type FileBackend struct {
	baseDir     string
	baseURL     string
	log         *slog.Logger
	locationURI string
}

// NewFileBackend creates a file storage backend rooted at baseDir.
func NewFileBackend(baseDir, baseURL string, log *slog.Logger) (*FileBackend, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	return &FileBackend{
		baseDir:     baseDir,
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		log:         log,
		locationURI: fmt.Sprintf("file://%s", baseDir),
	}, nil
}

// Upload writes the content under the object path and returns its public URL.
func (b *FileBackend) Upload(ctx context.Context, objectPath string, content io.Reader, contentType string) (string, error) {
	clean, err := sanitizePath(objectPath)
	if err != nil {
		return "", err
	}

	target := filepath.Join(b.baseDir, filepath.FromSlash(clean))
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return "", fmt.Errorf("creating object directory: %w", err)
	}

	f, err := os.Create(target)
	if err != nil {
		return "", fmt.Errorf("creating object file: %w", err)
	}
	defer f.Close()

	n, err := io.Copy(f, content)
	if err != nil {
		return "", fmt.Errorf("writing object file: %w", err)
	}

	b.log.Debug("Stored document file",
		slog.String("path", target),
		slog.Int64("size", n))

	return b.PublicURL(clean), nil
}

// Fetch reads the content stored under the object path.
func (b *FileBackend) Fetch(ctx context.Context, objectPath string) ([]byte, error) {
	clean, err := sanitizePath(objectPath)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filepath.Join(b.baseDir, filepath.FromSlash(clean)))
	if os.IsNotExist(err) {
		return nil, interfaces.ErrContentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading object file: %w", err)
	}
	return data, nil
}

// PublicURL returns the URL the object is served under.
func (b *FileBackend) PublicURL(objectPath string) string {
	if b.baseURL == "" {
		return fmt.Sprintf("file://%s", filepath.Join(b.baseDir, filepath.FromSlash(objectPath)))
	}
	return b.baseURL + "/" + escapePath(objectPath)
}

// LocationURI returns the backend's identifying URI.
func (b *FileBackend) LocationURI() string {
	return b.locationURI
}

// sanitizePath rejects traversal outside the base directory.
func sanitizePath(objectPath string) (string, error) {
	clean := path.Clean("/" + objectPath)
	if clean == "/" {
		return "", fmt.Errorf("%w: empty object path", interfaces.ErrValidation)
	}
	return strings.TrimPrefix(clean, "/"), nil
}

func escapePath(objectPath string) string {
	parts := strings.Split(objectPath, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}
