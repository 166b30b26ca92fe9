package records

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/docledger/document-registry-backend/interfaces"
)

// MemoryStore is an in-process interfaces.RequestStore used in tests and
// local development. It enforces the same status guards as the Postgres
// store.
type MemoryStore struct {
	mu       sync.Mutex
	requests map[string]*interfaces.Request
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{requests: make(map[string]*interfaces.Request)}
}

func (s *MemoryStore) Create(ctx context.Context, req *interfaces.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.requests[req.ID]; exists {
		return fmt.Errorf("%w: request %s already exists", interfaces.ErrValidation, req.ID)
	}
	clone := *req
	s.requests[req.ID] = &clone
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*interfaces.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getLocked(id)
}

func (s *MemoryStore) getLocked(id string) (*interfaces.Request, error) {
	req, ok := s.requests[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", interfaces.ErrRequestNotFound, id)
	}
	clone := *req
	return &clone, nil
}

func (s *MemoryStore) UpdateStatus(ctx context.Context, id string, from, to interfaces.RequestStatus) error {
	if !from.CanTransitionTo(to) {
		return fmt.Errorf("%w: %s -> %s", interfaces.ErrInvalidTransition, from, to)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.requests[id]
	if !ok {
		return fmt.Errorf("%w: %s", interfaces.ErrRequestNotFound, id)
	}
	if req.Status != from {
		return fmt.Errorf("%w: request %s is %s, expected %s for transition to %s",
			interfaces.ErrInvalidTransition, id, req.Status, from, to)
	}
	req.Status = to
	return nil
}

func (s *MemoryStore) BindDocument(ctx context.Context, id string, docID string, digest interfaces.Digest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.requests[id]
	if !ok {
		return fmt.Errorf("%w: %s", interfaces.ErrRequestNotFound, id)
	}
	if req.Status != interfaces.RequestApproved {
		return fmt.Errorf("%w: cannot bind document in status %s", interfaces.ErrInvalidTransition, req.Status)
	}
	if req.DocID != "" && req.DocID != docID {
		return fmt.Errorf("%w: request %s is already bound to document %s", interfaces.ErrInvalidTransition, id, req.DocID)
	}
	req.DocID = docID
	req.DocHash = digest
	return nil
}

func (s *MemoryStore) MarkIssued(ctx context.Context, id string, bundle interfaces.IssuedBundle) error {
	if err := bundle.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.requests[id]
	if !ok {
		return fmt.Errorf("%w: %s", interfaces.ErrRequestNotFound, id)
	}
	if req.Status != interfaces.RequestApproved {
		return fmt.Errorf("%w: request %s is %s, expected %s for transition to %s",
			interfaces.ErrInvalidTransition, id, req.Status, interfaces.RequestApproved, interfaces.RequestIssued)
	}

	req.Status = interfaces.RequestIssued
	req.DocID = bundle.DocID
	req.DocHash = bundle.DocHash
	req.TxHash = bundle.TxHash
	req.FileURL = bundle.FileURL
	issuedAt := bundle.IssuedAt
	req.IssuedAt = &issuedAt
	return nil
}

func (s *MemoryStore) ListByStatus(ctx context.Context, status interfaces.RequestStatus) ([]*interfaces.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*interfaces.Request
	for _, req := range s.requests {
		if req.Status == status {
			clone := *req
			out = append(out, &clone)
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func (s *MemoryStore) ListByRequester(ctx context.Context, requesterID string) ([]*interfaces.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*interfaces.Request
	for _, req := range s.requests {
		if req.RequesterID == requesterID {
			clone := *req
			out = append(out, &clone)
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func (s *MemoryStore) FindIssuedByDocID(ctx context.Context, docID string) (*interfaces.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, req := range s.requests {
		if req.Status == interfaces.RequestIssued && req.DocID == docID {
			clone := *req
			return &clone, nil
		}
	}
	return nil, fmt.Errorf("%w: no issued document %s", interfaces.ErrRequestNotFound, docID)
}

func sortNewestFirst(reqs []*interfaces.Request) {
	sort.SliceStable(reqs, func(i, j int) bool {
		return reqs[i].CreatedAt.After(reqs[j].CreatedAt)
	})
}
