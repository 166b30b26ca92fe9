// Package records persists document requests. The store owns Request rows;
// the lifecycle only appends status and issuance metadata and never deletes
// a request.
package records

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/docledger/document-registry-backend/interfaces"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS requests (
	id              TEXT PRIMARY KEY,
	requester_id    TEXT NOT NULL,
	requester_email TEXT,
	doc_type        TEXT NOT NULL,
	notes           TEXT,
	status          TEXT NOT NULL,
	doc_id          TEXT,
	doc_hash        TEXT,
	tx_hash         TEXT,
	file_url        TEXT,
	created_at      TIMESTAMPTZ NOT NULL,
	issued_at       TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS requests_status_idx ON requests (status);
CREATE INDEX IF NOT EXISTS requests_requester_idx ON requests (requester_id, created_at DESC);
CREATE UNIQUE INDEX IF NOT EXISTS requests_doc_id_idx ON requests (doc_id) WHERE doc_id IS NOT NULL;
`

const selectColumns = `id, requester_id, requester_email, doc_type, notes, status, doc_id, doc_hash, tx_hash, file_url, created_at, issued_at`

// PostgresStore implements interfaces.RequestStore on a Postgres pool.
// Status transitions are guarded in SQL (UPDATE ... WHERE status = expected)
// so a concurrent transition cannot tear a row.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to the database and verifies the connection.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

// EnsureSchema creates the requests table and indexes if missing.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

func (s *PostgresStore) Create(ctx context.Context, req *interfaces.Request) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO requests (id, requester_id, requester_email, doc_type, notes, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		req.ID, req.RequesterID, nullable(req.RequesterEmail), req.DocType, nullable(req.Notes), string(req.Status), req.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting request: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*interfaces.Request, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+selectColumns+` FROM requests WHERE id = $1`, id)
	req, err := scanRequest(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", interfaces.ErrRequestNotFound, id)
	}
	return req, err
}

func (s *PostgresStore) UpdateStatus(ctx context.Context, id string, from, to interfaces.RequestStatus) error {
	if !from.CanTransitionTo(to) {
		return fmt.Errorf("%w: %s -> %s", interfaces.ErrInvalidTransition, from, to)
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE requests SET status = $3 WHERE id = $1 AND status = $2`,
		id, string(from), string(to))
	if err != nil {
		return fmt.Errorf("updating request status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return s.transitionFailure(ctx, id, from, to)
	}
	return nil
}

func (s *PostgresStore) BindDocument(ctx context.Context, id string, docID string, digest interfaces.Digest) error {
	// Rebinding to the same pair is allowed so a retried issuance is
	// idempotent; rebinding an approved request to a different pair is not.
	tag, err := s.pool.Exec(ctx,
		`UPDATE requests SET doc_id = $2, doc_hash = $3
		 WHERE id = $1 AND status = $4 AND (doc_id IS NULL OR doc_id = $2)`,
		id, docID, string(digest), string(interfaces.RequestApproved))
	if err != nil {
		return fmt.Errorf("binding document to request: %w", err)
	}
	if tag.RowsAffected() == 0 {
		req, getErr := s.Get(ctx, id)
		if getErr != nil {
			return getErr
		}
		if req.Status != interfaces.RequestApproved {
			return fmt.Errorf("%w: cannot bind document in status %s", interfaces.ErrInvalidTransition, req.Status)
		}
		return fmt.Errorf("%w: request %s is already bound to document %s", interfaces.ErrInvalidTransition, id, req.DocID)
	}
	return nil
}

func (s *PostgresStore) MarkIssued(ctx context.Context, id string, bundle interfaces.IssuedBundle) error {
	if err := bundle.Validate(); err != nil {
		return err
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE requests
		 SET status = $2, doc_id = $3, doc_hash = $4, tx_hash = $5, file_url = $6, issued_at = $7
		 WHERE id = $1 AND status = $8`,
		id, string(interfaces.RequestIssued), bundle.DocID, string(bundle.DocHash),
		bundle.TxHash, bundle.FileURL, bundle.IssuedAt, string(interfaces.RequestApproved))
	if err != nil {
		return fmt.Errorf("marking request issued: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return s.transitionFailure(ctx, id, interfaces.RequestApproved, interfaces.RequestIssued)
	}
	return nil
}

func (s *PostgresStore) ListByStatus(ctx context.Context, status interfaces.RequestStatus) ([]*interfaces.Request, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+selectColumns+` FROM requests WHERE status = $1 ORDER BY created_at DESC`,
		string(status))
	if err != nil {
		return nil, fmt.Errorf("listing requests: %w", err)
	}
	defer rows.Close()
	return scanRequests(rows)
}

func (s *PostgresStore) ListByRequester(ctx context.Context, requesterID string) ([]*interfaces.Request, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+selectColumns+` FROM requests WHERE requester_id = $1 ORDER BY created_at DESC`,
		requesterID)
	if err != nil {
		return nil, fmt.Errorf("listing requests: %w", err)
	}
	defer rows.Close()
	return scanRequests(rows)
}

func (s *PostgresStore) FindIssuedByDocID(ctx context.Context, docID string) (*interfaces.Request, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+selectColumns+` FROM requests WHERE doc_id = $1 AND status = $2 LIMIT 1`,
		docID, string(interfaces.RequestIssued))
	req, err := scanRequest(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: no issued document %s", interfaces.ErrRequestNotFound, docID)
	}
	return req, err
}

// transitionFailure distinguishes an unknown id from a status-guard miss.
func (s *PostgresStore) transitionFailure(ctx context.Context, id string, from, to interfaces.RequestStatus) error {
	req, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: request %s is %s, expected %s for transition to %s",
		interfaces.ErrInvalidTransition, id, req.Status, from, to)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequest(row rowScanner) (*interfaces.Request, error) {
	var (
		req                                      interfaces.Request
		email, notes, docID, docHash, txHash, fileURL *string
		issuedAt                                 *time.Time
		status                                   string
	)
	err := row.Scan(&req.ID, &req.RequesterID, &email, &req.DocType, &notes, &status,
		&docID, &docHash, &txHash, &fileURL, &req.CreatedAt, &issuedAt)
	if err != nil {
		return nil, err
	}

	req.Status = interfaces.RequestStatus(status)
	req.RequesterEmail = deref(email)
	req.Notes = deref(notes)
	req.DocID = deref(docID)
	req.DocHash = interfaces.Digest(deref(docHash))
	req.TxHash = deref(txHash)
	req.FileURL = deref(fileURL)
	req.IssuedAt = issuedAt
	return &req, nil
}

func scanRequests(rows pgx.Rows) ([]*interfaces.Request, error) {
	var out []*interfaces.Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning request row: %w", err)
		}
		out = append(out, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating request rows: %w", err)
	}
	return out, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
