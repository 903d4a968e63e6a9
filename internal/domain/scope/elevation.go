package scope

import "github.com/sentinelgate/execgate/internal/domain/policy"

// DefaultElevation implements the fixed, non-configurable elevation matrix:
// safe never needs approval; net/fs need a prior human approval; admin is
// refused outright under the strict gate mode and otherwise needs approval
// like net/fs.
type DefaultElevation struct{}

// Decide applies the matrix. approved reflects whether a human-approval
// token already exists on record for the proposal_hash being elevated.
func (DefaultElevation) Decide(s policy.Scope, strictGate bool, approved bool) Outcome {
	switch s {
	case policy.ScopeSafe:
		return OutcomeAutoApproved
	case policy.ScopeAdmin:
		if strictGate {
			return OutcomeStop
		}
		if approved {
			return OutcomeAutoApproved
		}
		return OutcomeRequiresApproval
	case policy.ScopeNet, policy.ScopeFS:
		if approved {
			return OutcomeAutoApproved
		}
		return OutcomeRequiresApproval
	default:
		return OutcomeStop
	}
}
