// Package interfaces defines the core types and contracts shared by the
// document registry components. It provides the boundary between components
// without implementation details.
package interfaces

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
)

// DigestLength is the length of a hex-encoded digest including the 0x prefix.
const DigestLength = 66

// Digest is a lowercase, 0x-prefixed, hex-encoded SHA-256 digest of document
// content. It is always exactly 66 characters long. Comparisons are
// case-sensitive, so externally supplied strings must go through NewDigest
// before being compared or submitted anywhere.
type Digest string

// NewDigest normalizes a candidate digest string: trims whitespace, adds the
// 0x prefix if absent and lowercases. Returns ErrInvalidHashFormat if the
// normalized value is not a 66-character hex string.
func NewDigest(candidate string) (Digest, error) {
	value := strings.TrimSpace(candidate)
	if value == "" {
		return "", fmt.Errorf("%w: empty digest", ErrInvalidHashFormat)
	}
	if !strings.HasPrefix(value, "0x") && !strings.HasPrefix(value, "0X") {
		value = "0x" + value
	}
	value = strings.ToLower(value)
	if len(value) != DigestLength {
		return "", fmt.Errorf("%w: must be a 32-byte hex string, got %d characters", ErrInvalidHashFormat, len(value))
	}
	if _, err := hex.DecodeString(value[2:]); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidHashFormat, err)
	}
	return Digest(value), nil
}

// HashBytes computes the content digest of a byte blob.
func HashBytes(data []byte) Digest {
	sum := sha256.Sum256(data)
	return Digest("0x" + hex.EncodeToString(sum[:]))
}

// HashReader computes the content digest of a byte stream.
func HashReader(r io.Reader) (Digest, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", fmt.Errorf("reading content: %w", err)
	}
	return Digest("0x" + hex.EncodeToString(h.Sum(nil))), nil
}

// String returns the digest as a string.
func (d Digest) String() string {
	return string(d)
}

// Bytes returns the raw 32-byte digest.
func (d Digest) Bytes() ([32]byte, error) {
	var out [32]byte
	if len(d) != DigestLength {
		return out, fmt.Errorf("%w: must be a 32-byte hex string, got %d characters", ErrInvalidHashFormat, len(d))
	}
	raw, err := hex.DecodeString(string(d[2:]))
	if err != nil {
		return out, fmt.Errorf("%w: %v", ErrInvalidHashFormat, err)
	}
	copy(out[:], raw)
	return out, nil
}

// Validate checks that the digest is well-formed.
func (d Digest) Validate() error {
	_, err := NewDigest(string(d))
	return err
}

// DeriveDocumentID maps a caller-chosen document identifier to the fixed
// 32-byte key the ledger is indexed by. The mapping is keccak256 over the raw
// UTF-8 bytes of the identifier, so independently computed keys agree.
func DeriveDocumentID(docID string) [32]byte {
	return crypto.Keccak256Hash([]byte(docID))
}

// DocumentRecord is a registered (docId, digest) pair with an optional
// public URI. Identity is the pair; the ledger is keyed by
// DeriveDocumentID(DocID) paired with the raw digest.
type DocumentRecord struct {
	DocID   string `json:"docId"`
	DocHash Digest `json:"docHash"`
	URI     string `json:"uri,omitempty"`
}

// TransactionReceipt is produced by a successful register call and is
// immutable once obtained.
type TransactionReceipt struct {
	TxHash         string `json:"txHash"`
	BlockConfirmed bool   `json:"blockConfirmed"`
}

// HistoryEntry is a locally cached record of a register or verify operation,
// used to render recent activity without re-querying the ledger.
type HistoryEntry struct {
	DocID        string     `json:"docId"`
	DocHash      Digest     `json:"docHash"`
	TxHash       string     `json:"txHash,omitempty"`
	RegisteredAt *time.Time `json:"registeredAt,omitempty"`
	VerifiedAt   *time.Time `json:"verifiedAt,omitempty"`
}

// RequestStatus is the lifecycle state of a document request.
type RequestStatus string

const (
	RequestSubmitted RequestStatus = "submitted"
	RequestApproved  RequestStatus = "approved"
	RequestDenied    RequestStatus = "denied"
	RequestIssued    RequestStatus = "issued"
)

// Valid reports whether the status is one of the known lifecycle states.
func (s RequestStatus) Valid() bool {
	switch s {
	case RequestSubmitted, RequestApproved, RequestDenied, RequestIssued:
		return true
	}
	return false
}

// Terminal reports whether the status admits no further transitions.
func (s RequestStatus) Terminal() bool {
	return s == RequestDenied || s == RequestIssued
}

// CanTransitionTo reports whether the lifecycle allows moving from s to next.
// Submitted may go to Approved or Denied; only Approved may go to Issued.
func (s RequestStatus) CanTransitionTo(next RequestStatus) bool {
	switch s {
	case RequestSubmitted:
		return next == RequestApproved || next == RequestDenied
	case RequestApproved:
		return next == RequestIssued
	}
	return false
}

// Request is an institutional workflow entity tracking a document's approval
// and issuance status. Rows are owned by the record store; the registry core
// only reads them and appends issuance metadata. Issued rows carry the full
// bundle (TxHash, DocHash, DocID, FileURL, IssuedAt) or the row is invalid.
type Request struct {
	ID             string        `json:"id"`
	RequesterID    string        `json:"requesterId"`
	RequesterEmail string        `json:"requesterEmail,omitempty"`
	DocType        string        `json:"docType"`
	Notes          string        `json:"notes,omitempty"`
	Status         RequestStatus `json:"status"`
	DocID          string        `json:"docId,omitempty"`
	DocHash        Digest        `json:"docHash,omitempty"`
	TxHash         string        `json:"txHash,omitempty"`
	FileURL        string        `json:"fileUrl,omitempty"`
	CreatedAt      time.Time     `json:"createdAt"`
	IssuedAt       *time.Time    `json:"issuedAt,omitempty"`
}

// IssuedBundle is the set of fields that must be written together when a
// request transitions to Issued.
type IssuedBundle struct {
	DocID    string
	DocHash  Digest
	TxHash   string
	FileURL  string
	IssuedAt time.Time
}

// Validate rejects partial bundles. Partial issuance is an invariant
// violation, so all fields are required.
func (b IssuedBundle) Validate() error {
	if b.DocID == "" || b.TxHash == "" || b.FileURL == "" || b.IssuedAt.IsZero() {
		return fmt.Errorf("%w: issuance bundle is incomplete", ErrValidation)
	}
	return b.DocHash.Validate()
}

// RoleAdmin is the only privileged role. All other role strings are opaque.
const RoleAdmin = "admin"

// User is an authenticated identity as reported by the identity collaborator.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// IsAdmin reports whether the user holds the administrative role.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}
