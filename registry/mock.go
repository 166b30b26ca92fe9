package registry

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/docledger/document-registry-backend/interfaces"
)

// MockRegistry mocks the interfaces.DocumentRegistry interface.
type MockRegistry struct {
	mock.Mock
}

// Register mocks the Register method.
func (m *MockRegistry) Register(ctx context.Context, docID string, digest interfaces.Digest, uri string) (*interfaces.TransactionReceipt, error) {
	args := m.Called(ctx, docID, digest, uri)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*interfaces.TransactionReceipt), args.Error(1)
}

// Verify mocks the Verify method.
func (m *MockRegistry) Verify(ctx context.Context, docID string, digest interfaces.Digest) (bool, error) {
	args := m.Called(ctx, docID, digest)
	return args.Bool(0), args.Error(1)
}
