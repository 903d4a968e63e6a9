// Package tokenstore provides a durable, sqlite-backed human-approval
// bridge (spec "Supplemented features"): approvals for net/fs/admin scope
// elevation survive process restarts, unlike the in-memory adapter.
package tokenstore

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/sentinelgate/execgate/internal/port"
)

// SQLiteApprovalStore persists human-approval records in a single-file
// sqlite database, guarded by a single connection (approvals are a low-
// throughput, operator-driven path — no pooling is needed).
type SQLiteApprovalStore struct {
	db *sql.DB
}

// Open creates or opens the sqlite database at path, migrating its schema
// if needed.
func Open(path string) (*SQLiteApprovalStore, error) {
	if path == "" {
		return nil, fmt.Errorf("tokenstore: db path required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("tokenstore: create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("tokenstore: open: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(5 * time.Minute)

	s := &SQLiteApprovalStore{db: db}
	if err := s.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteApprovalStore) migrate(ctx context.Context) error {
	stmts := []string{
		`PRAGMA journal_mode=WAL;`,
		`CREATE TABLE IF NOT EXISTS approvals (
			proposal_hash TEXT PRIMARY KEY,
			approved_by   TEXT NOT NULL,
			approved_at   TEXT NOT NULL,
			expires_at    TEXT NOT NULL
		);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("tokenstore: migrate: %w", err)
		}
	}
	return nil
}

// Store upserts an approval record keyed on its proposal_hash.
func (s *SQLiteApprovalStore) Store(record port.ApprovalRecord) error {
	_, err := s.db.ExecContext(context.Background(),
		`INSERT INTO approvals (proposal_hash, approved_by, approved_at, expires_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(proposal_hash) DO UPDATE SET
			approved_by = excluded.approved_by,
			approved_at = excluded.approved_at,
			expires_at  = excluded.expires_at`,
		record.ProposalHash, record.ApprovedBy,
		record.ApprovedAt.UTC().Format(time.RFC3339Nano),
		record.ExpiresAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("tokenstore: store approval: %w", err)
	}
	return nil
}

// Retrieve returns the approval record for proposalHash, or nil if absent
// or expired relative to now. An expired record is deleted as a side
// effect so the table does not grow unbounded with stale approvals.
func (s *SQLiteApprovalStore) Retrieve(proposalHash string, now time.Time) (*port.ApprovalRecord, error) {
	row := s.db.QueryRowContext(context.Background(),
		`SELECT approved_by, approved_at, expires_at FROM approvals WHERE proposal_hash = ?`,
		proposalHash)

	var approvedBy, approvedAtStr, expiresAtStr string
	switch err := row.Scan(&approvedBy, &approvedAtStr, &expiresAtStr); {
	case err == sql.ErrNoRows:
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("tokenstore: retrieve approval: %w", err)
	}

	approvedAt, err := time.Parse(time.RFC3339Nano, approvedAtStr)
	if err != nil {
		return nil, fmt.Errorf("tokenstore: malformed approved_at: %w", err)
	}
	expiresAt, err := time.Parse(time.RFC3339Nano, expiresAtStr)
	if err != nil {
		return nil, fmt.Errorf("tokenstore: malformed expires_at: %w", err)
	}

	if now.After(expiresAt) {
		if delErr := s.Delete(proposalHash); delErr != nil {
			return nil, delErr
		}
		return nil, nil
	}

	return &port.ApprovalRecord{
		ProposalHash: proposalHash,
		ApprovedBy:   approvedBy,
		ApprovedAt:   approvedAt,
		ExpiresAt:    expiresAt,
	}, nil
}

// Has reports whether a non-expired approval exists for proposalHash.
func (s *SQLiteApprovalStore) Has(proposalHash string, now time.Time) (bool, error) {
	r, err := s.Retrieve(proposalHash, now)
	if err != nil {
		return false, err
	}
	return r != nil, nil
}

// Delete removes any approval record for proposalHash.
func (s *SQLiteApprovalStore) Delete(proposalHash string) error {
	_, err := s.db.ExecContext(context.Background(),
		`DELETE FROM approvals WHERE proposal_hash = ?`, proposalHash)
	if err != nil {
		return fmt.Errorf("tokenstore: delete approval: %w", err)
	}
	return nil
}

// Close releases the underlying database connection.
func (s *SQLiteApprovalStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
