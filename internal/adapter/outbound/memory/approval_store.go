// Package memory provides in-process implementations of the gate's
// outbound ports, for single-process deployments and tests.
package memory

import (
	"sync"
	"time"

	"github.com/sentinelgate/execgate/internal/port"
)

// ApprovalStore is an in-memory port.ApprovalStore. It never persists
// across process restarts; use tokenstore.SQLiteApprovalStore for a
// durable backend.
type ApprovalStore struct {
	mu      sync.Mutex
	records map[string]port.ApprovalRecord
}

// NewApprovalStore constructs an empty in-memory approval store.
func NewApprovalStore() *ApprovalStore {
	return &ApprovalStore{records: make(map[string]port.ApprovalRecord)}
}

func (s *ApprovalStore) Store(record port.ApprovalRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.ProposalHash] = record
	return nil
}

func (s *ApprovalStore) Retrieve(proposalHash string, now time.Time) (*port.ApprovalRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[proposalHash]
	if !ok {
		return nil, nil
	}
	if now.After(r.ExpiresAt) {
		delete(s.records, proposalHash)
		return nil, nil
	}
	return &r, nil
}

func (s *ApprovalStore) Has(proposalHash string, now time.Time) (bool, error) {
	r, err := s.Retrieve(proposalHash, now)
	if err != nil {
		return false, err
	}
	return r != nil, nil
}

func (s *ApprovalStore) Delete(proposalHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, proposalHash)
	return nil
}

func (s *ApprovalStore) Close() error { return nil }
