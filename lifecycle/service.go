// Package lifecycle implements the document request workflow: submission,
// review, on-chain issuance, and verified download.
package lifecycle

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/docledger/document-registry-backend/interfaces"
)

// RequestService coordinates the request store, the on-chain registry, the
// document store, and the local history cache. The store owns request rows;
// the service only drives status transitions and appends issuance metadata.
type RequestService struct {
	records  interfaces.RequestStore
	registry interfaces.DocumentRegistry
	docs     interfaces.DocumentStore
	history  interfaces.HistoryStore
	log      *slog.Logger
}

// New creates a RequestService. history may be nil, in which case no local
// activity cache is maintained.
func New(records interfaces.RequestStore, registry interfaces.DocumentRegistry, docs interfaces.DocumentStore, history interfaces.HistoryStore, log *slog.Logger) *RequestService {
	return &RequestService{
		records:  records,
		registry: registry,
		docs:     docs,
		history:  history,
		log:      log,
	}
}

// Submit creates a new request in the submitted state. Any authenticated
// user may submit.
func (s *RequestService) Submit(ctx context.Context, user *interfaces.User, docType, notes string) (*interfaces.Request, error) {
	if user == nil {
		return nil, interfaces.ErrNotAuthenticated
	}
	docType = strings.TrimSpace(docType)
	if docType == "" {
		return nil, fmt.Errorf("%w: document type is required", interfaces.ErrValidation)
	}

	req := &interfaces.Request{
		ID:             uuid.New().String(),
		RequesterID:    user.ID,
		RequesterEmail: user.Email,
		DocType:        docType,
		Notes:          strings.TrimSpace(notes),
		Status:         interfaces.RequestSubmitted,
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.records.Create(ctx, req); err != nil {
		return nil, err
	}

	s.log.Info("Request submitted",
		slog.String("requestID", req.ID),
		slog.String("docType", req.DocType),
		slog.String("requester", req.RequesterID))
	return req, nil
}

// Approve moves a submitted request to approved. Admin only.
func (s *RequestService) Approve(ctx context.Context, user *interfaces.User, requestID string) (*interfaces.Request, error) {
	return s.review(ctx, user, requestID, interfaces.RequestApproved)
}

// Deny moves a submitted request to denied. Admin only. Denied is terminal.
func (s *RequestService) Deny(ctx context.Context, user *interfaces.User, requestID string) (*interfaces.Request, error) {
	return s.review(ctx, user, requestID, interfaces.RequestDenied)
}

func (s *RequestService) review(ctx context.Context, user *interfaces.User, requestID string, to interfaces.RequestStatus) (*interfaces.Request, error) {
	if err := requireAdmin(user); err != nil {
		return nil, err
	}

	if err := s.records.UpdateStatus(ctx, requestID, interfaces.RequestSubmitted, to); err != nil {
		return nil, err
	}

	s.log.Info("Request reviewed",
		slog.String("requestID", requestID),
		slog.String("status", string(to)),
		slog.String("reviewer", user.ID))
	return s.records.Get(ctx, requestID)
}

// Issue stores the document file and registers its hash on-chain, completing
// an approved request. Admin only.
//
// The generated document id and content digest are bound to the request row
// before the chain transaction is sent, so a crash or partial failure leaves
// the request approved with the pair recorded; a retried Issue reuses the
// same pair instead of minting a fresh id for content that may already be
// registered.
func (s *RequestService) Issue(ctx context.Context, user *interfaces.User, requestID, filename string, content io.Reader, contentType string) (*interfaces.Request, error) {
	if err := requireAdmin(user); err != nil {
		return nil, err
	}
	filename = strings.TrimSpace(filename)
	if filename == "" || strings.Contains(filename, "/") {
		return nil, fmt.Errorf("%w: a plain file name is required", interfaces.ErrValidation)
	}

	req, err := s.records.Get(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.Status != interfaces.RequestApproved {
		return nil, fmt.Errorf("%w: cannot issue a %s request", interfaces.ErrInvalidTransition, req.Status)
	}

	data, err := io.ReadAll(content)
	if err != nil {
		return nil, fmt.Errorf("reading document content: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: document content is empty", interfaces.ErrValidation)
	}
	digest := interfaces.HashBytes(data)

	docID := req.DocID
	if docID == "" {
		docID = uuid.New().String()
	} else if req.DocHash != "" && req.DocHash != digest {
		return nil, fmt.Errorf("%w: request %s is bound to different content", interfaces.ErrValidation, requestID)
	}

	if err := s.records.BindDocument(ctx, requestID, docID, digest); err != nil {
		return nil, err
	}

	// The file goes into storage first so the URL registered on-chain is
	// the one the stored object actually resolves to. A failure at either
	// step leaves the request approved with the pair bound; a retry
	// re-uploads to the same path and re-submits the registration, and
	// rewriting the same ledger value is safe.
	objectPath := req.ID + "/" + filename
	fileURL, err := s.docs.Upload(ctx, objectPath, bytes.NewReader(data), contentType)
	if err != nil {
		return nil, fmt.Errorf("storing document file: %w", err)
	}

	receipt, err := s.registry.Register(ctx, docID, digest, fileURL)
	if err != nil {
		s.log.Error("On-chain registration failed after upload",
			slog.String("requestID", requestID),
			slog.String("docID", docID),
			slog.String("fileURL", fileURL),
			slog.String("err", err.Error()))
		return nil, fmt.Errorf("registering document on chain: %w", err)
	}

	bundle := interfaces.IssuedBundle{
		DocID:    docID,
		DocHash:  digest,
		TxHash:   receipt.TxHash,
		FileURL:  fileURL,
		IssuedAt: time.Now().UTC(),
	}
	if err := s.records.MarkIssued(ctx, requestID, bundle); err != nil {
		return nil, err
	}

	s.rememberRegistration(ctx, docID, digest, receipt.TxHash)

	s.log.Info("Request issued",
		slog.String("requestID", requestID),
		slog.String("docID", docID),
		slog.String("txHash", receipt.TxHash))
	return s.records.Get(ctx, requestID)
}

// RegisterDocument registers an arbitrary (docId, digest) pair on-chain,
// outside the request workflow. Admin only.
func (s *RequestService) RegisterDocument(ctx context.Context, user *interfaces.User, docID string, digest interfaces.Digest, uri string) (*interfaces.TransactionReceipt, error) {
	if err := requireAdmin(user); err != nil {
		return nil, err
	}

	receipt, err := s.registry.Register(ctx, docID, digest, uri)
	if err != nil {
		return nil, err
	}
	s.rememberRegistration(ctx, docID, digest, receipt.TxHash)
	return receipt, nil
}

// VerifyDocument checks a (docId, digest) pair against the ledger. No
// authentication is required; verification is a public read.
func (s *RequestService) VerifyDocument(ctx context.Context, docID string, digest interfaces.Digest) (bool, error) {
	ok, err := s.registry.Verify(ctx, docID, digest)
	if err != nil {
		return false, err
	}

	if s.history != nil {
		now := time.Now().UTC()
		entry := interfaces.HistoryEntry{DocID: docID, DocHash: digest, VerifiedAt: &now}
		if herr := s.history.Remember(ctx, entry); herr != nil {
			s.log.Warn("Could not record verification in history", slog.String("err", herr.Error()))
		}
	}
	return ok, nil
}

// Download returns the stored file for an issued request after checking its
// on-chain integrity. The requester and admins may download.
//
// A chain read failure downgrades the check to a warning rather than
// blocking access; a successful read that contradicts the stored digest
// blocks the download.
func (s *RequestService) Download(ctx context.Context, user *interfaces.User, requestID string) ([]byte, *interfaces.Request, error) {
	if user == nil {
		return nil, nil, interfaces.ErrNotAuthenticated
	}

	req, err := s.records.Get(ctx, requestID)
	if err != nil {
		return nil, nil, err
	}
	if req.RequesterID != user.ID && !user.IsAdmin() {
		return nil, nil, interfaces.ErrPermissionDenied
	}
	if req.Status != interfaces.RequestIssued {
		return nil, nil, fmt.Errorf("%w: request %s has no issued document", interfaces.ErrRequestNotFound, requestID)
	}

	verified, err := s.registry.Verify(ctx, req.DocID, req.DocHash)
	switch {
	case errors.Is(err, interfaces.ErrChain):
		s.log.Warn("Skipping integrity check, chain unavailable",
			slog.String("requestID", requestID),
			slog.String("err", err.Error()))
	case err != nil:
		return nil, nil, err
	case !verified:
		return nil, nil, fmt.Errorf("%w: stored document does not match the on-chain record", interfaces.ErrChain)
	}

	data, err := s.docs.Fetch(ctx, req.ID+"/"+filenameFromURL(req.FileURL))
	if err != nil {
		return nil, nil, err
	}
	return data, req, nil
}

// LookupIssued resolves an issued request by its bound document id.
func (s *RequestService) LookupIssued(ctx context.Context, docID string) (*interfaces.Request, error) {
	return s.records.FindIssuedByDocID(ctx, docID)
}

// ListByStatus returns requests in the given status, newest first. Admin
// only.
func (s *RequestService) ListByStatus(ctx context.Context, user *interfaces.User, status interfaces.RequestStatus) ([]*interfaces.Request, error) {
	if err := requireAdmin(user); err != nil {
		return nil, err
	}
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", interfaces.ErrValidation, status)
	}
	return s.records.ListByStatus(ctx, status)
}

// ListMine returns the user's own requests, newest first.
func (s *RequestService) ListMine(ctx context.Context, user *interfaces.User) ([]*interfaces.Request, error) {
	if user == nil {
		return nil, interfaces.ErrNotAuthenticated
	}
	return s.records.ListByRequester(ctx, user.ID)
}

// History returns the recent local register and verify activity.
func (s *RequestService) History(ctx context.Context) ([]interfaces.HistoryEntry, error) {
	if s.history == nil {
		return nil, nil
	}
	return s.history.List(ctx)
}

// ClearHistory drops the local activity cache.
func (s *RequestService) ClearHistory(ctx context.Context) error {
	if s.history == nil {
		return nil
	}
	return s.history.Clear(ctx)
}

func (s *RequestService) rememberRegistration(ctx context.Context, docID string, digest interfaces.Digest, txHash string) {
	if s.history == nil {
		return
	}
	now := time.Now().UTC()
	entry := interfaces.HistoryEntry{DocID: docID, DocHash: digest, TxHash: txHash, RegisteredAt: &now}
	if err := s.history.Remember(ctx, entry); err != nil {
		s.log.Warn("Could not record registration in history", slog.String("err", err.Error()))
	}
}

func requireAdmin(user *interfaces.User) error {
	if user == nil {
		return interfaces.ErrNotAuthenticated
	}
	if !user.IsAdmin() {
		return fmt.Errorf("%w: administrator role required", interfaces.ErrPermissionDenied)
	}
	return nil
}

func filenameFromURL(fileURL string) string {
	parsed, err := url.Parse(fileURL)
	raw := fileURL
	if err == nil {
		raw = parsed.Path
	}
	if i := strings.LastIndex(raw, "/"); i >= 0 {
		raw = raw[i+1:]
	}
	if unescaped, err := url.PathUnescape(raw); err == nil {
		return unescaped
	}
	return raw
}
