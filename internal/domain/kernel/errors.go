package kernel

import (
	"errors"
	"fmt"
)

// ErrorType is the fixed, exhaustive taxonomy of kernel denials (spec §7).
type ErrorType string

const (
	TypeTokenExpired           ErrorType = "TOKEN_EXPIRED"
	TypeDecisionNotAllow       ErrorType = "DECISION_NOT_ALLOW"
	TypeTokenReplayed          ErrorType = "TOKEN_REPLAYED"
	TypeProposalHashMismatch   ErrorType = "PROPOSAL_HASH_MISMATCH"
	TypePolicyHashMismatch     ErrorType = "POLICY_HASH_MISMATCH"
	TypeEnvFingerprintMismatch ErrorType = "ENV_FINGERPRINT_MISMATCH"
	TypeSignatureInvalid       ErrorType = "SIGNATURE_INVALID"
)

// Sentinel errors, one per ErrorType, for use with errors.Is — the same
// shape as the teacher SDK's ErrPolicyDenied/ErrApprovalTimeout sentinels
// (sdks/go/errors.go), wrapped by *Denial below instead of a separate
// wrapper type since Denial already carries the {Code, Err}-equivalent
// {Type, Detail} pair.
var (
	ErrTokenExpired           = errors.New("kernel: token past expires_at")
	ErrDecisionNotAllow       = errors.New("kernel: token decision is not ALLOW")
	ErrTokenReplayed          = errors.New("kernel: token_id already present in registry")
	ErrProposalHashMismatch   = errors.New("kernel: proposal binding mismatch")
	ErrPolicyHashMismatch     = errors.New("kernel: policy hash mismatch")
	ErrEnvFingerprintMismatch = errors.New("kernel: environment fingerprint mismatch")
	ErrSignatureInvalid       = errors.New("kernel: signature invalid")
)

var sentinelByType = map[ErrorType]error{
	TypeTokenExpired:           ErrTokenExpired,
	TypeDecisionNotAllow:       ErrDecisionNotAllow,
	TypeTokenReplayed:          ErrTokenReplayed,
	TypeProposalHashMismatch:   ErrProposalHashMismatch,
	TypePolicyHashMismatch:     ErrPolicyHashMismatch,
	TypeEnvFingerprintMismatch: ErrEnvFingerprintMismatch,
	TypeSignatureInvalid:       ErrSignatureInvalid,
}

// Denial is the typed error the kernel raises when any of the seven
// verification steps fails. Callers use errors.As to recover the Type for
// the structured audit record and exit code mapping, or errors.Is against
// the package's sentinel errors (via Unwrap) to test for a specific
// failure without depending on the ErrorType string; the kernel itself
// never recovers from a Denial internally (spec §7: "the core itself
// never recovers from a denial internally").
type Denial struct {
	Type ErrorType
	// Step is the 1-indexed verification step that raised this denial.
	Step int
	// Detail is a human-readable explanation, safe to log.
	Detail string
}

func (d *Denial) Error() string {
	return fmt.Sprintf("kernel: step %d: %s: %s", d.Step, d.Type, d.Detail)
}

// Unwrap exposes the sentinel error matching d.Type so errors.Is(err,
// kernel.ErrTokenExpired) works against a returned *Denial.
func (d *Denial) Unwrap() error {
	return sentinelByType[d.Type]
}

func newDenial(step int, errType ErrorType, detail string) *Denial {
	return &Denial{Type: errType, Step: step, Detail: detail}
}
