// Package proposal builds the canonical execution proposal and the
// environment fingerprint it is bound to (spec §3, §4.3).
package proposal

import (
	"github.com/sentinelgate/execgate/internal/domain/canon"
	"github.com/sentinelgate/execgate/internal/domain/policy"
)

// GuardVersion identifies this implementation for the proposal binding and
// extended fingerprint profile. Overridable only for tests.
var GuardVersion = "execgate/1"

// WindowSeconds is the coarse issuance window spec §3/§4.3 floors
// timestamps to. 60 seconds matches the reference TTL granularity.
const WindowSeconds = 60

// Canonical is the immutable record describing a single execution request
// (spec §3 "Canonical Proposal").
type Canonical struct {
	Command        string   `json:"command"`
	Args           []string `json:"args"`
	PolicyPath     string   `json:"policy_path"`
	PolicyHash     string   `json:"policy_hash"`
	GuardVersion   string   `json:"guard_version"`
	TimestampFloor int64    `json:"timestamp_floor"`
}

// Build constructs a Canonical proposal. nowUnix is the caller-supplied
// current Unix time in seconds; the proposal floors it to a 60-second
// boundary so near-simultaneous requests within the same minute hash
// identically (spec §4.3).
func Build(command string, args []string, policyPath string, nowUnix int64) Canonical {
	// Defensive copy: callers must not be able to mutate args after the
	// proposal is built and its hash computed.
	copied := make([]string, len(args))
	copy(copied, args)

	return Canonical{
		Command:        command,
		Args:           copied,
		PolicyPath:     policyPath,
		PolicyHash:     policy.HashFile(policyPath),
		GuardVersion:   GuardVersion,
		TimestampFloor: FloorToWindow(nowUnix),
	}
}

// FloorToWindow floors a Unix second timestamp down to the nearest
// WindowSeconds boundary.
func FloorToWindow(nowUnix int64) int64 {
	return (nowUnix / WindowSeconds) * WindowSeconds
}

// Hash returns the SHA-256 hex digest of the canonical serialization of p
// (spec §4.3 proposal_hash).
func (p Canonical) Hash() (string, error) {
	return canon.Hash(p)
}
