// Package docstore stores issued document files. Objects are addressed by a
// "{requestId}/{filename}" path and retrievable via a public URL after
// upload.
package docstore

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/docledger/document-registry-backend/interfaces"
)

// Factory creates document storage backends from URI strings.
type Factory struct {
	log *slog.Logger
}

// NewFactory creates a new factory instance.
func NewFactory(log *slog.Logger) *Factory {
	return &Factory{log: log}
}

// BackendFor creates a storage backend from a location URI.
//
// Supported schemes:
//   - file:///var/lib/documents?base_url=https://docs.example.org - local filesystem
//   - s3://bucket/prefix?region=eu-west-1[&endpoint=...][&access_key=...&secret_key=...] - S3 or compatible
//   - ipfs://127.0.0.1:5001[?gateway=https://ipfs.io] - IPFS node
//
// Returns an error if the URI is invalid or the scheme is unsupported.
func (f *Factory) BackendFor(locationURI string) (interfaces.DocumentStore, error) {
	u, err := url.Parse(locationURI)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid storage location %q: %v", interfaces.ErrValidation, locationURI, err)
	}

	switch strings.ToLower(u.Scheme) {
	case "file":
		return f.createFileBackend(u)
	case "s3":
		return f.createS3Backend(u)
	case "ipfs":
		return f.createIPFSBackend(u)
	default:
		return nil, fmt.Errorf("%w: unsupported storage scheme %q", interfaces.ErrValidation, u.Scheme)
	}
}

func (f *Factory) createFileBackend(u *url.URL) (interfaces.DocumentStore, error) {
	dir := u.Path
	if u.Host != "" {
		dir = u.Host + u.Path
	}
	if dir == "" {
		return nil, fmt.Errorf("%w: file storage URI needs a directory path", interfaces.ErrValidation)
	}
	baseURL := u.Query().Get("base_url")
	return NewFileBackend(dir, baseURL, f.log)
}

func (f *Factory) createS3Backend(u *url.URL) (interfaces.DocumentStore, error) {
	bucket := u.Host
	if bucket == "" {
		return nil, fmt.Errorf("%w: s3 storage URI needs a bucket", interfaces.ErrValidation)
	}
	prefix := strings.Trim(u.Path, "/")
	q := u.Query()
	region := q.Get("region")
	if region == "" {
		region = "us-east-1"
	}
	return NewS3Backend(bucket, prefix, region, q.Get("endpoint"), q.Get("access_key"), q.Get("secret_key"), f.log)
}

func (f *Factory) createIPFSBackend(u *url.URL) (interfaces.DocumentStore, error) {
	if u.Host == "" {
		return nil, fmt.Errorf("%w: ipfs storage URI needs an API host", interfaces.ErrValidation)
	}
	gateway := u.Query().Get("gateway")
	if gateway == "" {
		gateway = "https://ipfs.io"
	}
	return NewIPFSBackend(u.Host, gateway, f.log), nil
}
