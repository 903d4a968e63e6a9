// Package registry implements the replay-prevention set and append-only
// audit sink described in spec §4.5. The in-memory used-token set is
// authoritative for the current process; persistence is best-effort and
// never blocks or unblocks replay enforcement (spec: "Persistence failures
// never unblock replay").
package registry

import "time"

// UsedTokenRecord is one entry in the used_tokens stream (spec §6).
type UsedTokenRecord struct {
	TokenID               string         `json:"token_id"`
	UsedAt                time.Time      `json:"used_at"`
	ExpiresAt             time.Time      `json:"expires_at"`
	AuditRef              string         `json:"audit_ref"`
	ProposalHash          string         `json:"proposal_hash"`
	PolicyHash            string         `json:"policy_hash"`
	EnvironmentFingerprint string        `json:"env_fingerprint"`
	Command               string         `json:"command"`
	Scope                 string         `json:"scope"`
	GuardVersion           string        `json:"guard_version"`
}

// EventRecord is one entry in the log stream (spec §6): STOP, HOLD without
// token, TOKEN_ISSUED_*, PIPELINE_ERROR, and kernel verification outcomes.
type EventRecord struct {
	Decision               string    `json:"decision"`
	ProposalHash           string    `json:"proposal_hash"`
	TokenID                string    `json:"token_id,omitempty"`
	PolicyHash             string    `json:"policy_hash,omitempty"`
	EnvironmentFingerprint string    `json:"environment_fingerprint,omitempty"`
	Reason                 string    `json:"reason"`
	Executed               bool      `json:"executed"`
	ErrorType              string    `json:"error_type,omitempty"`
	Time                   time.Time `json:"time"`
}

// HydrationEntry is a previously-used token identifier discovered on disk
// at process start, together with the expiry that was bound into its
// token. Entries whose Expiry is already in the past are skipped from the
// in-memory replay set on hydration (spec §4.5 Init) but are never
// rewritten or deleted from disk (audit is append-only, spec §9).
type HydrationEntry struct {
	TokenID string
	Expiry  time.Time
}

// UsedTokenSink persists UsedTokenRecord entries. Implementations must be
// append-only and must tolerate being unavailable: failures are logged and
// swallowed by the caller, never propagated as replay-enforcement errors.
type UsedTokenSink interface {
	AppendUsed(record UsedTokenRecord) error
}

// EventSink persists EventRecord entries for non-token events and kernel
// verification outcomes. Same append-only, best-effort contract as
// UsedTokenSink.
type EventSink interface {
	AppendEvent(record EventRecord) error
}

// Hydrator supplies the set of previously-used token identifiers (with
// their expiry) for Init to seed the in-memory replay set from.
// Implementations read whatever durable storage backs the registry and
// tolerate a malformed trailing record (spec §5: "a malformed final line
// is ignored on hydration").
type Hydrator interface {
	LoadForHydration() ([]HydrationEntry, error)
}
