// Package scope implements elevation for non-safe rule scopes (spec §3
// scope, §9 "Scope elevation"): a safe-scoped match auto-issues an ALLOW
// token, while net/fs/admin scopes require a human-approval bridge before
// the authority pipeline will issue ALLOW instead of HOLD.
package scope

import "github.com/sentinelgate/execgate/internal/domain/policy"

// Outcome is the result of evaluating whether a matched rule's scope may
// be auto-elevated without a human approval.
type Outcome string

const (
	// OutcomeAutoApproved means the scope requires no human approval.
	OutcomeAutoApproved Outcome = "AUTO_APPROVED"
	// OutcomeRequiresApproval means a human-approval token must already be
	// on record for this proposal_hash, or the pipeline must HOLD.
	OutcomeRequiresApproval Outcome = "REQUIRES_APPROVAL"
	// OutcomeStop means this scope can never be auto-elevated (admin under
	// STRICT gate mode) and the pipeline must STOP rather than HOLD.
	OutcomeStop Outcome = "STOP"
)

// Elevation decides, for a matched policy scope, whether auto-issuance is
// permitted, a human approval is required, or elevation is categorically
// refused.
type Elevation interface {
	Decide(scope policy.Scope, strictGate bool, approved bool) Outcome
}
