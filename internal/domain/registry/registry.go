package registry

import (
	"log/slog"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
)

// shardCount is the number of independent mutex-guarded buckets the
// in-memory used-token set is split across. The reference single-request
// model (spec §5) needs no sharding at all, but §5's Locking section
// anticipates multi-request hosting ("the registry... become[s] the sole
// critical section[s] and must be protected by a mutex"); sharding ahead
// of that need costs nothing under single-request load and removes one
// future migration. The shard key is a fast, non-cryptographic xxhash of
// the token_id — it is purely a bucket selector, never part of any
// security decision.
const shardCount = 16

type shard struct {
	mu   sync.Mutex
	used map[string]struct{}
}

// Registry is the reference in-memory replay-prevention set plus
// append-only audit sink described in spec §4.5.
type Registry struct {
	shards     [shardCount]*shard
	usedSink   UsedTokenSink
	eventSink  EventSink
	logger     *slog.Logger
}

// New constructs a Registry. usedSink/eventSink may be nil, in which case
// persistence is a no-op and only in-memory enforcement applies.
func New(usedSink UsedTokenSink, eventSink EventSink, logger *slog.Logger) *Registry {
	r := &Registry{usedSink: usedSink, eventSink: eventSink, logger: logger}
	for i := range r.shards {
		r.shards[i] = &shard{used: make(map[string]struct{})}
	}
	return r
}

// Init hydrates the in-memory replay set from entries, skipping any whose
// Expiry has already passed relative to now (spec §4.5 Init: "drop records
// whose expires_at is in the past from the in-memory set, retain on
// disk" — retention on disk is the Hydrator/sink's responsibility; Init
// only controls what re-enters memory).
func (r *Registry) Init(entries []HydrationEntry, now time.Time) {
	for _, e := range entries {
		if e.Expiry.Before(now) {
			continue
		}
		r.shardFor(e.TokenID).used[e.TokenID] = struct{}{}
	}
}

func (r *Registry) shardFor(tokenID string) *shard {
	h := xxhash.Sum64String(tokenID)
	return r.shards[h%uint64(shardCount)]
}

// IsUsed reports whether tokenID has already been marked used. This is the
// reference replay key (spec Open Question 1, default): re-issuing a fresh
// token for an identical proposal within the same minute is permitted.
func (r *Registry) IsUsed(tokenID string) bool {
	return r.isUsedKey(tokenID)
}

// IsUsedComposite reports whether the stricter (proposal_hash,
// environment_fingerprint) composite key has already been used. Callers
// opt into this via GateConfig.StrictReplay (spec §9 Open Question 1: "an
// intentionally stricter variant keys on (proposal_hash,
// environment_fingerprint)").
func (r *Registry) IsUsedComposite(proposalHash, envFingerprint string) bool {
	return r.isUsedKey(compositeKey(proposalHash, envFingerprint))
}

func (r *Registry) isUsedKey(key string) bool {
	s := r.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.used[key]
	return ok
}

// MarkUsed adds tokenID (and, when strict is true, the composite
// proposal+environment key) to the in-memory used set — which must not
// fail — then best-effort persists record. This must be called before the
// kernel invokes the spawn primitive, so replay is blocked even if the
// spawned process hangs or the parent crashes immediately after (spec
// §4.5, §5).
func (r *Registry) MarkUsed(tokenID string, strict bool, record UsedTokenRecord) {
	r.markKey(tokenID)
	if strict {
		r.markKey(compositeKey(record.ProposalHash, record.EnvironmentFingerprint))
	}

	if r.usedSink == nil {
		return
	}
	if err := r.usedSink.AppendUsed(record); err != nil && r.logger != nil {
		r.logger.Warn("registry: failed to persist used-token record",
			"token_id", tokenID, "error", err)
	}
}

func (r *Registry) markKey(key string) {
	s := r.shardFor(key)
	s.mu.Lock()
	s.used[key] = struct{}{}
	s.mu.Unlock()
}

func compositeKey(proposalHash, envFingerprint string) string {
	return "composite:" + proposalHash + "|" + envFingerprint
}

// AppendAudit best-effort persists a non-token event record (STOP, HOLD
// without token, pipeline errors, kernel verification outcomes).
func (r *Registry) AppendAudit(record EventRecord) {
	if r.eventSink == nil {
		return
	}
	if err := r.eventSink.AppendEvent(record); err != nil && r.logger != nil {
		r.logger.Warn("registry: failed to persist event record",
			"decision", record.Decision, "error", err)
	}
}
