package lifecycle

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docledger/document-registry-backend/docstore"
	"github.com/docledger/document-registry-backend/history"
	"github.com/docledger/document-registry-backend/interfaces"
	"github.com/docledger/document-registry-backend/records"
	"github.com/docledger/document-registry-backend/registry"
)

var (
	adminUser   = &interfaces.User{ID: "admin-1", Email: "admin@example.org", Role: interfaces.RoleAdmin}
	studentUser = &interfaces.User{ID: "student-1", Email: "student@example.org", Role: "student"}
	otherUser   = &interfaces.User{ID: "student-2", Email: "other@example.org", Role: "student"}
)

type fixture struct {
	service *RequestService
	ledger  *registry.FakeLedger
	store   *records.MemoryStore
	docs    *flakyDocs
}

// flakyDocs wraps a real backend so tests can inject upload failures.
type flakyDocs struct {
	interfaces.DocumentStore
	uploadErr error
}

func (d *flakyDocs) Upload(ctx context.Context, path string, content io.Reader, contentType string) (string, error) {
	if d.uploadErr != nil {
		return "", d.uploadErr
	}
	return d.DocumentStore.Upload(ctx, path, content, contentType)
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	backend, err := docstore.NewFileBackend(t.TempDir(), "https://docs.example.org", slog.Default())
	require.NoError(t, err)

	ledger := registry.NewFakeLedger()
	store := records.NewMemoryStore()
	docs := &flakyDocs{DocumentStore: backend}
	hist := history.NewFileStore(filepath.Join(t.TempDir(), "history.json"), slog.Default())

	return &fixture{
		service: New(store, ledger, docs, hist, slog.Default()),
		ledger:  ledger,
		store:   store,
		docs:    docs,
	}
}

func (f *fixture) submitApproved(t *testing.T) *interfaces.Request {
	t.Helper()
	req, err := f.service.Submit(context.Background(), studentUser, "Transcript", "spring term")
	require.NoError(t, err)
	req, err = f.service.Approve(context.Background(), adminUser, req.ID)
	require.NoError(t, err)
	return req
}

func TestFullLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req, err := f.service.Submit(ctx, studentUser, "Transcript", "spring term")
	require.NoError(t, err)
	assert.Equal(t, interfaces.RequestSubmitted, req.Status)
	assert.Equal(t, studentUser.ID, req.RequesterID)

	_, err = f.service.Approve(ctx, studentUser, req.ID)
	assert.ErrorIs(t, err, interfaces.ErrPermissionDenied)

	req, err = f.service.Approve(ctx, adminUser, req.ID)
	require.NoError(t, err)
	assert.Equal(t, interfaces.RequestApproved, req.Status)

	content := []byte("%PDF-1.7 transcript body")
	issued, err := f.service.Issue(ctx, adminUser, req.ID, "transcript.pdf", bytes.NewReader(content), "application/pdf")
	require.NoError(t, err)
	assert.Equal(t, interfaces.RequestIssued, issued.Status)
	assert.NotEmpty(t, issued.DocID)
	assert.NotEmpty(t, issued.TxHash)
	assert.Equal(t, interfaces.HashBytes(content), issued.DocHash)
	assert.True(t, strings.HasSuffix(issued.FileURL, "/transcript.pdf"))
	require.NotNil(t, issued.IssuedAt)

	ok, err := f.service.VerifyDocument(ctx, issued.DocID, issued.DocHash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = f.service.VerifyDocument(ctx, issued.DocID, interfaces.HashBytes([]byte("tampered")))
	require.NoError(t, err)
	assert.False(t, ok)

	data, got, err := f.service.Download(ctx, studentUser, req.ID)
	require.NoError(t, err)
	assert.Equal(t, content, data)
	assert.Equal(t, issued.DocID, got.DocID)

	_, _, err = f.service.Download(ctx, otherUser, req.ID)
	assert.ErrorIs(t, err, interfaces.ErrPermissionDenied)

	found, err := f.service.LookupIssued(ctx, issued.DocID)
	require.NoError(t, err)
	assert.Equal(t, req.ID, found.ID)

	entries, err := f.service.History(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, entries)
	assert.Equal(t, issued.DocID, entries[0].DocID)
}

func TestSubmitValidation(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.Submit(context.Background(), nil, "Transcript", "")
	assert.ErrorIs(t, err, interfaces.ErrNotAuthenticated)

	_, err = f.service.Submit(context.Background(), studentUser, "   ", "")
	assert.ErrorIs(t, err, interfaces.ErrValidation)
}

func TestInvalidTransitions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req := f.submitApproved(t)

	_, err := f.service.Approve(ctx, adminUser, req.ID)
	assert.ErrorIs(t, err, interfaces.ErrInvalidTransition)

	_, err = f.service.Deny(ctx, adminUser, req.ID)
	assert.ErrorIs(t, err, interfaces.ErrInvalidTransition)

	fresh, err := f.service.Submit(ctx, studentUser, "Diploma", "")
	require.NoError(t, err)
	_, err = f.service.Issue(ctx, adminUser, fresh.ID, "diploma.pdf", strings.NewReader("x"), "")
	assert.ErrorIs(t, err, interfaces.ErrInvalidTransition)

	denied, err := f.service.Submit(ctx, studentUser, "Certificate", "")
	require.NoError(t, err)
	denied, err = f.service.Deny(ctx, adminUser, denied.ID)
	require.NoError(t, err)
	assert.Equal(t, interfaces.RequestDenied, denied.Status)
	_, err = f.service.Approve(ctx, adminUser, denied.ID)
	assert.ErrorIs(t, err, interfaces.ErrInvalidTransition)
}

// recordingRegistry captures the URI passed to Register.
type recordingRegistry struct {
	interfaces.DocumentRegistry
	lastURI string
}

func (r *recordingRegistry) Register(ctx context.Context, docID string, digest interfaces.Digest, uri string) (*interfaces.TransactionReceipt, error) {
	r.lastURI = uri
	return r.DocumentRegistry.Register(ctx, docID, digest, uri)
}

func TestIssueRegistersStoredFileURL(t *testing.T) {
	ctx := context.Background()
	backend, err := docstore.NewFileBackend(t.TempDir(), "https://docs.example.org", slog.Default())
	require.NoError(t, err)
	rec := &recordingRegistry{DocumentRegistry: registry.NewFakeLedger()}
	service := New(records.NewMemoryStore(), rec, backend, nil, slog.Default())

	req, err := service.Submit(ctx, studentUser, "Transcript", "")
	require.NoError(t, err)
	_, err = service.Approve(ctx, adminUser, req.ID)
	require.NoError(t, err)

	issued, err := service.Issue(ctx, adminUser, req.ID, "transcript.pdf", strings.NewReader("payload"), "application/pdf")
	require.NoError(t, err)

	// The URI recorded on-chain is the URL of the already-stored file,
	// never a placeholder computed before the upload.
	require.NotEmpty(t, rec.lastURI)
	assert.Equal(t, issued.FileURL, rec.lastURI)
	assert.True(t, strings.HasSuffix(rec.lastURI, "/transcript.pdf"))
}

func TestIssueRetryAfterChainFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req := f.submitApproved(t)
	content := []byte("retry me")

	f.ledger.RegisterErr = fmt.Errorf("%w: rpc timeout", interfaces.ErrChain)
	_, err := f.service.Issue(ctx, adminUser, req.ID, "doc.pdf", bytes.NewReader(content), "application/pdf")
	require.ErrorIs(t, err, interfaces.ErrChain)

	// The failed attempt leaves the request approved with the generated
	// pair bound.
	stuck, err := f.store.Get(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, interfaces.RequestApproved, stuck.Status)
	require.NotEmpty(t, stuck.DocID)
	assert.Equal(t, interfaces.HashBytes(content), stuck.DocHash)

	f.ledger.RegisterErr = nil
	issued, err := f.service.Issue(ctx, adminUser, req.ID, "doc.pdf", bytes.NewReader(content), "application/pdf")
	require.NoError(t, err)
	assert.Equal(t, stuck.DocID, issued.DocID)
	assert.Equal(t, interfaces.RequestIssued, issued.Status)
}

func TestIssueRetryAfterStorageFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req := f.submitApproved(t)
	content := []byte("stored eventually")

	f.docs.uploadErr = errors.New("bucket unavailable")
	_, err := f.service.Issue(ctx, adminUser, req.ID, "doc.pdf", bytes.NewReader(content), "")
	require.Error(t, err)

	stuck, err := f.store.Get(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, interfaces.RequestApproved, stuck.Status)

	f.docs.uploadErr = nil
	issued, err := f.service.Issue(ctx, adminUser, req.ID, "doc.pdf", bytes.NewReader(content), "")
	require.NoError(t, err)
	assert.Equal(t, stuck.DocID, issued.DocID)
	assert.Equal(t, interfaces.RequestIssued, issued.Status)

	ok, err := f.service.VerifyDocument(ctx, issued.DocID, issued.DocHash)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestIssueRejectsChangedContentAfterBind(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req := f.submitApproved(t)

	f.docs.uploadErr = errors.New("bucket unavailable")
	_, err := f.service.Issue(ctx, adminUser, req.ID, "doc.pdf", strings.NewReader("original"), "")
	require.Error(t, err)
	f.docs.uploadErr = nil

	_, err = f.service.Issue(ctx, adminUser, req.ID, "doc.pdf", strings.NewReader("different"), "")
	assert.ErrorIs(t, err, interfaces.ErrValidation)
}

func TestIssueInputValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req := f.submitApproved(t)

	_, err := f.service.Issue(ctx, studentUser, req.ID, "doc.pdf", strings.NewReader("x"), "")
	assert.ErrorIs(t, err, interfaces.ErrPermissionDenied)

	_, err = f.service.Issue(ctx, adminUser, req.ID, "", strings.NewReader("x"), "")
	assert.ErrorIs(t, err, interfaces.ErrValidation)

	_, err = f.service.Issue(ctx, adminUser, req.ID, "../escape.pdf", strings.NewReader("x"), "")
	assert.ErrorIs(t, err, interfaces.ErrValidation)

	_, err = f.service.Issue(ctx, adminUser, req.ID, "doc.pdf", strings.NewReader(""), "")
	assert.ErrorIs(t, err, interfaces.ErrValidation)
}

func TestDownloadDegradesWhenChainUnavailable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req := f.submitApproved(t)
	content := []byte("degraded download")
	_, err := f.service.Issue(ctx, adminUser, req.ID, "doc.pdf", bytes.NewReader(content), "")
	require.NoError(t, err)

	f.ledger.VerifyErr = fmt.Errorf("%w: rpc unavailable", interfaces.ErrChain)
	data, _, err := f.service.Download(ctx, studentUser, req.ID)
	require.NoError(t, err)
	assert.Equal(t, content, data)
}

func TestDownloadBlocksOnDigestMismatch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req := f.submitApproved(t)
	issued, err := f.service.Issue(ctx, adminUser, req.ID, "doc.pdf", strings.NewReader("authentic"), "")
	require.NoError(t, err)

	// Someone re-registered the id with a different hash after issuance.
	_, err = f.ledger.Register(ctx, issued.DocID, interfaces.HashBytes([]byte("overwritten")), "")
	require.NoError(t, err)

	_, _, err = f.service.Download(ctx, studentUser, req.ID)
	assert.ErrorIs(t, err, interfaces.ErrChain)
}

func TestListing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.service.Submit(ctx, studentUser, "Transcript", "")
	require.NoError(t, err)
	_, err = f.service.Submit(ctx, otherUser, "Diploma", "")
	require.NoError(t, err)

	pending, err := f.service.ListByStatus(ctx, adminUser, interfaces.RequestSubmitted)
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	_, err = f.service.ListByStatus(ctx, studentUser, interfaces.RequestSubmitted)
	assert.ErrorIs(t, err, interfaces.ErrPermissionDenied)

	_, err = f.service.ListByStatus(ctx, adminUser, interfaces.RequestStatus("bogus"))
	assert.ErrorIs(t, err, interfaces.ErrValidation)

	mine, err := f.service.ListMine(ctx, studentUser)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, first.ID, mine[0].ID)
}

func TestRegisterDocumentDirect(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	digest := interfaces.HashBytes([]byte("standalone record"))
	_, err := f.service.RegisterDocument(ctx, studentUser, "cert-2026-001", digest, "")
	assert.ErrorIs(t, err, interfaces.ErrPermissionDenied)

	receipt, err := f.service.RegisterDocument(ctx, adminUser, "cert-2026-001", digest, "https://docs.example.org/cert.pdf")
	require.NoError(t, err)
	assert.True(t, receipt.BlockConfirmed)

	ok, err := f.service.VerifyDocument(ctx, "cert-2026-001", digest)
	require.NoError(t, err)
	assert.True(t, ok)

	entries, err := f.service.History(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, entries)
	assert.Equal(t, "cert-2026-001", entries[0].DocID)
	require.NoError(t, f.service.ClearHistory(ctx))
	entries, err = f.service.History(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
