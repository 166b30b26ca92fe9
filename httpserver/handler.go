package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/docledger/document-registry-backend/interfaces"
	"github.com/docledger/document-registry-backend/lifecycle"
	"github.com/docledger/document-registry-backend/metrics"
)

// maxUploadSize caps issued document uploads (16MB).
const maxUploadSize = 16 * 1024 * 1024

// Handler processes HTTP requests for the document registry service. It
// authenticates callers through the identity provider and delegates to the
// request lifecycle service.
type Handler struct {
	service  *lifecycle.RequestService
	identity interfaces.IdentityProvider
	log      *slog.Logger
}

// NewHandler creates a new HTTP request handler.
func NewHandler(service *lifecycle.RequestService, identity interfaces.IdentityProvider, log *slog.Logger) *Handler {
	return &Handler{
		service:  service,
		identity: identity,
		log:      log,
	}
}

// authUser resolves the caller from the Authorization bearer token. A
// missing or invalid token yields ErrNotAuthenticated.
func (h *Handler) authUser(r *http.Request) (*interfaces.User, error) {
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return nil, interfaces.ErrNotAuthenticated
	}
	return h.identity.SessionUser(r.Context(), token)
}

// HandleLogin authenticates with email and password.
//
// URL format: POST /api/auth/login
// Request body: {"email": "...", "password": "..."}
// Response: {"token": "...", "user": {...}}
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	token, user, err := h.identity.SignIn(r.Context(), body.Email, body.Password)
	if err != nil {
		h.writeError(w, "Login failed", err)
		return
	}

	h.writeJSON(w, map[string]any{"token": token, "user": user})
}

// HandleLogout invalidates the caller's session.
//
// URL format: POST /api/auth/logout
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		http.Error(w, "Not authenticated", http.StatusUnauthorized)
		return
	}
	if err := h.identity.SignOut(r.Context(), token); err != nil {
		h.writeError(w, "Logout failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleSubmitRequest creates a new document request.
//
// URL format: POST /api/requests
// Request body: {"docType": "...", "notes": "..."}
func (h *Handler) HandleSubmitRequest(w http.ResponseWriter, r *http.Request) {
	user, err := h.authUser(r)
	if err != nil {
		h.writeError(w, "Authentication failed", err)
		return
	}

	var body struct {
		DocType string `json:"docType"`
		Notes   string `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	req, err := h.service.Submit(r.Context(), user, body.DocType, body.Notes)
	if err != nil {
		h.writeError(w, "Could not submit request", err)
		return
	}

	metrics.RequestTransitionsTotal.WithLabelValues(string(interfaces.RequestSubmitted)).Inc()
	w.WriteHeader(http.StatusCreated)
	h.writeJSON(w, req)
}

// HandleListRequests lists requests by status. Admin only.
//
// URL format: GET /api/requests?status=submitted
func (h *Handler) HandleListRequests(w http.ResponseWriter, r *http.Request) {
	user, err := h.authUser(r)
	if err != nil {
		h.writeError(w, "Authentication failed", err)
		return
	}

	status := interfaces.RequestStatus(r.URL.Query().Get("status"))
	if status == "" {
		status = interfaces.RequestSubmitted
	}

	reqs, err := h.service.ListByStatus(r.Context(), user, status)
	if err != nil {
		h.writeError(w, "Could not list requests", err)
		return
	}
	h.writeJSON(w, reqs)
}

// HandleListPending lists the review queue. Admin only.
//
// URL format: GET /api/requests/pending
func (h *Handler) HandleListPending(w http.ResponseWriter, r *http.Request) {
	user, err := h.authUser(r)
	if err != nil {
		h.writeError(w, "Authentication failed", err)
		return
	}

	reqs, err := h.service.ListByStatus(r.Context(), user, interfaces.RequestSubmitted)
	if err != nil {
		h.writeError(w, "Could not list requests", err)
		return
	}
	h.writeJSON(w, reqs)
}

// HandleListMine lists the caller's own requests.
//
// URL format: GET /api/requests/mine
func (h *Handler) HandleListMine(w http.ResponseWriter, r *http.Request) {
	user, err := h.authUser(r)
	if err != nil {
		h.writeError(w, "Authentication failed", err)
		return
	}

	reqs, err := h.service.ListMine(r.Context(), user)
	if err != nil {
		h.writeError(w, "Could not list requests", err)
		return
	}
	h.writeJSON(w, reqs)
}

// HandleApprove approves a submitted request. Admin only.
//
// URL format: POST /api/requests/{request_id}/approve
func (h *Handler) HandleApprove(w http.ResponseWriter, r *http.Request) {
	h.review(w, r, h.service.Approve, interfaces.RequestApproved)
}

// HandleDeny denies a submitted request. Admin only.
//
// URL format: POST /api/requests/{request_id}/deny
func (h *Handler) HandleDeny(w http.ResponseWriter, r *http.Request) {
	h.review(w, r, h.service.Deny, interfaces.RequestDenied)
}

func (h *Handler) review(w http.ResponseWriter, r *http.Request, op func(context.Context, *interfaces.User, string) (*interfaces.Request, error), to interfaces.RequestStatus) {
	user, err := h.authUser(r)
	if err != nil {
		h.writeError(w, "Authentication failed", err)
		return
	}

	requestID := r.PathValue("request_id")
	req, err := op(r.Context(), user, requestID)
	if err != nil {
		h.writeError(w, "Could not update request", err)
		return
	}

	metrics.RequestTransitionsTotal.WithLabelValues(string(to)).Inc()
	h.writeJSON(w, req)
}

// HandleIssue registers and stores the document for an approved request.
// Admin only.
//
// URL format: POST /api/requests/{request_id}/issue
// Request body: multipart form with a "document" file part.
func (h *Handler) HandleIssue(w http.ResponseWriter, r *http.Request) {
	user, err := h.authUser(r)
	if err != nil {
		h.writeError(w, "Authentication failed", err)
		return
	}

	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		http.Error(w, "Invalid multipart form", http.StatusBadRequest)
		return
	}
	file, header, err := r.FormFile("document")
	if err != nil {
		http.Error(w, "Missing document file part", http.StatusBadRequest)
		return
	}
	defer file.Close()

	start := time.Now()
	req, err := h.service.Issue(r.Context(), user, r.PathValue("request_id"), header.Filename, file, header.Header.Get("Content-Type"))
	if err != nil {
		if registrationFailure(err) {
			metrics.RegistrationsTotal.WithLabelValues("error").Inc()
		}
		h.writeError(w, "Could not issue document", err)
		return
	}
	metrics.ObserveChain("register", start)
	metrics.RegistrationsTotal.WithLabelValues("ok").Inc()
	metrics.RequestTransitionsTotal.WithLabelValues(string(interfaces.RequestIssued)).Inc()

	h.writeJSON(w, req)
}

// HandleDownload streams the stored file for an issued request. The
// requester and admins may download; the file's on-chain integrity is
// checked first.
//
// URL format: GET /api/requests/{request_id}/download
func (h *Handler) HandleDownload(w http.ResponseWriter, r *http.Request) {
	user, err := h.authUser(r)
	if err != nil {
		h.writeError(w, "Authentication failed", err)
		return
	}

	data, req, err := h.service.Download(r.Context(), user, r.PathValue("request_id"))
	if err != nil {
		h.writeError(w, "Could not download document", err)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", downloadFilename(req)))
	w.Write(data)
}

func downloadFilename(req *interfaces.Request) string {
	if i := strings.LastIndex(req.FileURL, "/"); i >= 0 {
		if unescaped, err := url.PathUnescape(req.FileURL[i+1:]); err == nil && unescaped != "" {
			return unescaped
		}
	}
	return req.DocType + ".pdf"
}

// HandleDownloadByDocID streams the stored file for an issued document,
// resolved by its document id rather than the request id.
//
// URL format: GET /api/documents/{doc_id}/download
func (h *Handler) HandleDownloadByDocID(w http.ResponseWriter, r *http.Request) {
	user, err := h.authUser(r)
	if err != nil {
		h.writeError(w, "Authentication failed", err)
		return
	}

	req, err := h.service.LookupIssued(r.Context(), r.PathValue("doc_id"))
	if err != nil {
		h.writeError(w, "Could not look up document", err)
		return
	}

	data, req, err := h.service.Download(r.Context(), user, req.ID)
	if err != nil {
		h.writeError(w, "Could not download document", err)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", downloadFilename(req)))
	w.Write(data)
}

// HandleRegisterDocument registers an arbitrary document hash on-chain.
// Admin only.
//
// URL format: POST /api/documents/register
// Request body: {"docId": "...", "docHash": "...", "uri": "..."}
func (h *Handler) HandleRegisterDocument(w http.ResponseWriter, r *http.Request) {
	user, err := h.authUser(r)
	if err != nil {
		h.writeError(w, "Authentication failed", err)
		return
	}

	var body struct {
		DocID   string `json:"docId"`
		DocHash string `json:"docHash"`
		URI     string `json:"uri"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if body.DocID == "" {
		http.Error(w, "Missing docId", http.StatusBadRequest)
		return
	}
	digest, err := interfaces.NewDigest(body.DocHash)
	if err != nil {
		h.writeError(w, "Invalid document hash", err)
		return
	}

	start := time.Now()
	receipt, err := h.service.RegisterDocument(r.Context(), user, body.DocID, digest, body.URI)
	if err != nil {
		if registrationFailure(err) {
			metrics.RegistrationsTotal.WithLabelValues("error").Inc()
		}
		h.writeError(w, "Registration failed", err)
		return
	}
	metrics.ObserveChain("register", start)
	metrics.RegistrationsTotal.WithLabelValues("ok").Inc()

	h.writeJSON(w, receipt)
}

// HandleVerifyDocument checks a (docId, docHash) pair against the ledger.
// Public; no authentication required.
//
// URL format: GET /api/documents/verify?docId=...&docHash=...
// Response: {"verified": true|false}
func (h *Handler) HandleVerifyDocument(w http.ResponseWriter, r *http.Request) {
	docID := r.URL.Query().Get("docId")
	if docID == "" {
		http.Error(w, "Missing docId", http.StatusBadRequest)
		return
	}
	digest, err := interfaces.NewDigest(r.URL.Query().Get("docHash"))
	if err != nil {
		h.writeError(w, "Invalid document hash", err)
		return
	}

	start := time.Now()
	verified, err := h.service.VerifyDocument(r.Context(), docID, digest)
	if err != nil {
		h.writeError(w, "Verification failed", err)
		return
	}
	metrics.ObserveChain("verify", start)
	metrics.VerificationsTotal.WithLabelValues(fmt.Sprintf("%t", verified)).Inc()

	h.writeJSON(w, map[string]bool{"verified": verified})
}

// HandleLookupDocument resolves an issued request by document id.
//
// URL format: GET /api/documents/{doc_id}
func (h *Handler) HandleLookupDocument(w http.ResponseWriter, r *http.Request) {
	if _, err := h.authUser(r); err != nil {
		h.writeError(w, "Authentication failed", err)
		return
	}

	req, err := h.service.LookupIssued(r.Context(), r.PathValue("doc_id"))
	if err != nil {
		h.writeError(w, "Could not look up document", err)
		return
	}
	h.writeJSON(w, req)
}

// HandleHistory returns recent local register and verify activity.
//
// URL format: GET /api/history
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	if _, err := h.authUser(r); err != nil {
		h.writeError(w, "Authentication failed", err)
		return
	}

	entries, err := h.service.History(r.Context())
	if err != nil {
		h.writeError(w, "Could not read history", err)
		return
	}
	if entries == nil {
		entries = []interfaces.HistoryEntry{}
	}
	h.writeJSON(w, entries)
}

// HandleClearHistory drops the local activity cache.
//
// URL format: DELETE /api/history
func (h *Handler) HandleClearHistory(w http.ResponseWriter, r *http.Request) {
	if _, err := h.authUser(r); err != nil {
		h.writeError(w, "Authentication failed", err)
		return
	}

	if err := h.service.ClearHistory(r.Context()); err != nil {
		h.writeError(w, "Could not clear history", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// registrationFailure reports whether the error represents a failed
// registration attempt rather than a request that never reached the chain,
// such as a permission or validation rejection.
func registrationFailure(err error) bool {
	return errors.Is(err, interfaces.ErrChain) ||
		errors.Is(err, interfaces.ErrSubmissionRejected) ||
		errors.Is(err, interfaces.ErrWalletNotConnected)
}

func (h *Handler) writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.log.Error("Failed to encode response", "err", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

// writeError maps service errors to HTTP status codes.
func (h *Handler) writeError(w http.ResponseWriter, msg string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, interfaces.ErrNotAuthenticated):
		status = http.StatusUnauthorized
	case errors.Is(err, interfaces.ErrPermissionDenied):
		status = http.StatusForbidden
	case errors.Is(err, interfaces.ErrRequestNotFound), errors.Is(err, interfaces.ErrContentNotFound):
		status = http.StatusNotFound
	case errors.Is(err, interfaces.ErrInvalidTransition):
		status = http.StatusConflict
	case errors.Is(err, interfaces.ErrValidation), errors.Is(err, interfaces.ErrInvalidHashFormat):
		status = http.StatusBadRequest
	case errors.Is(err, interfaces.ErrChain), errors.Is(err, interfaces.ErrSubmissionRejected):
		status = http.StatusBadGateway
	case errors.Is(err, interfaces.ErrWalletNotConnected):
		status = http.StatusServiceUnavailable
	}

	if status >= http.StatusInternalServerError {
		h.log.Error(msg, "err", err)
	}
	http.Error(w, fmt.Sprintf("%s: %v", msg, err), status)
}
