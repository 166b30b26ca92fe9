package docstore

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	shell "github.com/ipfs/go-ipfs-api"

	"github.com/docledger/document-registry-backend/interfaces"
)

// IPFSBackend stores documents on an IPFS node. Objects are written into the
// node's mutable filesystem under their object path, so path lookups resolve
// on any process talking to the same node and survive restarts; public URLs
// point the path's current CID at an HTTP gateway.
type IPFSBackend struct {
	shell       *shell.Shell
	gatewayURL  string
	log         *slog.Logger
	locationURI string
}

// NewIPFSBackend creates an IPFS storage backend connected to the node API
// at apiAddr (host:port).
func NewIPFSBackend(apiAddr, gatewayURL string, log *slog.Logger) *IPFSBackend {
	return &IPFSBackend{
		shell:       shell.NewShell(apiAddr),
		gatewayURL:  strings.TrimSuffix(gatewayURL, "/"),
		log:         log,
		locationURI: fmt.Sprintf("ipfs://%s?gateway=%s", apiAddr, gatewayURL),
	}
}

// Upload writes the content to the node's MFS under the object path and
// returns the gateway URL for the resulting CID.
func (b *IPFSBackend) Upload(ctx context.Context, objectPath string, content io.Reader, contentType string) (string, error) {
	clean, err := sanitizePath(objectPath)
	if err != nil {
		return "", err
	}

	err = b.shell.FilesWrite(ctx, mfsPath(clean), content,
		shell.FilesWrite.Create(true),
		shell.FilesWrite.Parents(true),
		shell.FilesWrite.Truncate(true))
	if err != nil {
		return "", fmt.Errorf("writing content to ipfs: %w", err)
	}

	cid, err := b.resolveCID(ctx, clean)
	if err != nil {
		return "", err
	}

	b.log.Debug("Stored document in IPFS",
		slog.String("path", clean),
		slog.String("cid", cid))

	return fmt.Sprintf("%s/ipfs/%s", b.gatewayURL, cid), nil
}

// Fetch retrieves the content stored under the object path.
func (b *IPFSBackend) Fetch(ctx context.Context, objectPath string) ([]byte, error) {
	clean, err := sanitizePath(objectPath)
	if err != nil {
		return nil, err
	}

	rc, err := b.shell.FilesRead(ctx, mfsPath(clean))
	if err != nil {
		if strings.Contains(err.Error(), "does not exist") {
			return nil, interfaces.ErrContentNotFound
		}
		return nil, fmt.Errorf("reading content from ipfs: %w", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("reading ipfs stream: %w", err)
	}
	return data, nil
}

// PublicURL returns the gateway URL for the path's current CID, or an empty
// string when nothing is stored under the path.
func (b *IPFSBackend) PublicURL(objectPath string) string {
	clean, err := sanitizePath(objectPath)
	if err != nil {
		return ""
	}
	cid, err := b.resolveCID(context.Background(), clean)
	if err != nil {
		return ""
	}
	return fmt.Sprintf("%s/ipfs/%s", b.gatewayURL, cid)
}

// LocationURI returns the backend's identifying URI.
func (b *IPFSBackend) LocationURI() string {
	return b.locationURI
}

func (b *IPFSBackend) resolveCID(ctx context.Context, clean string) (string, error) {
	stat, err := b.shell.FilesStat(ctx, mfsPath(clean))
	if err != nil {
		return "", fmt.Errorf("resolving ipfs path %s: %w", clean, err)
	}
	return stat.Hash, nil
}

func mfsPath(clean string) string {
	return "/" + clean
}
