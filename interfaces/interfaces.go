package interfaces

import (
	"context"
	"io"
)

// DocumentRegistry is the client-side view of the on-chain document registry
// contract.
type DocumentRegistry interface {
	// Register submits a state-changing registration for the derived key of
	// docID paired with digest, and waits for the transaction to be included
	// before returning. Requires a signer.
	Register(ctx context.Context, docID string, digest Digest, uri string) (*TransactionReceipt, error)

	// Verify reports whether the ledger's stored hash for the derived key of
	// docID equals digest exactly. Read-only; usable without a signer. An
	// absent registration yields false, not an error.
	Verify(ctx context.Context, docID string, digest Digest) (bool, error)
}

// HistoryStore is a capped, deduplicated local cache of recent register and
// verify activity. It is never a source of truth.
type HistoryStore interface {
	// Remember inserts the entry at the front, replacing any existing entry
	// with the same (docId, docHash) pair, and truncates to the cap.
	Remember(ctx context.Context, entry HistoryEntry) error

	// List returns entries most-recent-first. An empty list is valid.
	List(ctx context.Context) ([]HistoryEntry, error)

	// Remove drops the entry with the given (docId, docHash) pair, if any.
	Remove(ctx context.Context, docID string, digest Digest) error

	// Clear drops all entries.
	Clear(ctx context.Context) error
}

// RequestStore persists document requests. Requests are never deleted;
// status updates are guarded by the expected current status so concurrent
// transitions cannot tear a row.
type RequestStore interface {
	Create(ctx context.Context, req *Request) error
	Get(ctx context.Context, id string) (*Request, error)

	// UpdateStatus moves a request from one status to another. Returns
	// ErrInvalidTransition if the row is not currently in the from status.
	UpdateStatus(ctx context.Context, id string, from, to RequestStatus) error

	// BindDocument persists the generated docId and digest on an approved
	// request before the on-chain registration is attempted, so a retried
	// issuance reuses the same pair.
	BindDocument(ctx context.Context, id string, docID string, digest Digest) error

	// MarkIssued transitions an approved request to issued with the complete
	// bundle in a single write.
	MarkIssued(ctx context.Context, id string, bundle IssuedBundle) error

	ListByStatus(ctx context.Context, status RequestStatus) ([]*Request, error)

	// ListByRequester returns the requester's own requests, newest first.
	ListByRequester(ctx context.Context, requesterID string) ([]*Request, error)

	// FindIssuedByDocID looks up an issued request by its bound document id.
	FindIssuedByDocID(ctx context.Context, docID string) (*Request, error)
}

// DocumentStore stores issued document files addressable by a
// "{requestId}/{filename}" path and retrievable via a public URL.
type DocumentStore interface {
	// Upload stores the content at the given path and returns its public URL.
	Upload(ctx context.Context, path string, content io.Reader, contentType string) (string, error)

	// Fetch retrieves stored content by path. Returns ErrContentNotFound if
	// no object exists at the path.
	Fetch(ctx context.Context, path string) ([]byte, error)

	// PublicURL returns the URL content at the path is retrievable from.
	PublicURL(path string) string

	// LocationURI returns the backend's identifying URI.
	LocationURI() string
}

// IdentityProvider is the external identity and role collaborator. Role is
// an opaque string; only RoleAdmin is privileged.
type IdentityProvider interface {
	// SignIn authenticates and returns a session token and the user.
	SignIn(ctx context.Context, email, password string) (string, *User, error)

	// SignOut invalidates the session token.
	SignOut(ctx context.Context, token string) error

	// SessionUser resolves the user for a session token, or
	// ErrNotAuthenticated if the token is invalid or expired.
	SessionUser(ctx context.Context, token string) (*User, error)

	// OnAuthChange registers for sign-in/sign-out notifications. The
	// returned function unsubscribes.
	OnAuthChange(cb func(*User)) func()

	// RoleOf returns the user's role string.
	RoleOf(user *User) string
}
