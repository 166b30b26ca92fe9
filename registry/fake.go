package registry

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/docledger/document-registry-backend/interfaces"
)

// FakeLedger is an in-memory interfaces.DocumentRegistry used in tests. It
// mirrors the contract's storage semantics: one stored hash per derived id,
// last write wins, exact-match verification.
type FakeLedger struct {
	mu      sync.Mutex
	entries map[[32]byte][32]byte
	txSeq   uint64

	// RegisterErr and VerifyErr, when set, are returned by the respective
	// methods to simulate chain failures.
	RegisterErr error
	VerifyErr   error
}

// NewFakeLedger creates an empty fake ledger.
func NewFakeLedger() *FakeLedger {
	return &FakeLedger{entries: make(map[[32]byte][32]byte)}
}

// Register stores the hash under the derived id and returns a synthetic
// confirmed receipt.
func (f *FakeLedger) Register(ctx context.Context, docID string, digest interfaces.Digest, uri string) (*interfaces.TransactionReceipt, error) {
	if f.RegisterErr != nil {
		return nil, f.RegisterErr
	}
	if docID == "" {
		return nil, fmt.Errorf("%w: document id is required", interfaces.ErrValidation)
	}
	hash, err := digest.Bytes()
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	derived := interfaces.DeriveDocumentID(docID)
	f.entries[derived] = hash
	f.txSeq++

	seed := sha256.Sum256([]byte(fmt.Sprintf("%x%x%d", derived, hash, f.txSeq)))
	return &interfaces.TransactionReceipt{
		TxHash:         "0x" + hex.EncodeToString(seed[:]),
		BlockConfirmed: true,
	}, nil
}

// Verify reports whether the stored hash for the derived id matches exactly.
func (f *FakeLedger) Verify(ctx context.Context, docID string, digest interfaces.Digest) (bool, error) {
	if f.VerifyErr != nil {
		return false, f.VerifyErr
	}
	hash, err := digest.Bytes()
	if err != nil {
		return false, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.entries[interfaces.DeriveDocumentID(docID)]
	return ok && stored == hash, nil
}
