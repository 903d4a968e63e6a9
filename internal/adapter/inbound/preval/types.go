// Package preval implements pre-validation of an incoming execution
// request before it ever reaches policy evaluation (spec §4.1): reject a
// command that looks like a shell string, a CR or LF in the command or an
// argument, and any request missing its correlation identifiers.
package preval

import "fmt"

// ErrorType enumerates the two pre-validation failure classes, each
// raised before policy evaluation begins.
type ErrorType string

const (
	// ErrShellStringRejected fires when the command contains shell
	// metacharacters or embedded whitespace, or when the command or an
	// argument contains a CR or LF; arguments are not checked for
	// metacharacters or whitespace.
	ErrShellStringRejected ErrorType = "SHELL_STRING_REJECTED"
	// ErrValidationError fires on any other structural problem: missing
	// correlation IDs, non-string argument elements, oversized fields.
	ErrValidationError ErrorType = "VALIDATION_ERROR"
)

// Request is the untrusted, as-received execution request, before it is
// turned into a canonical proposal (spec §3 "Agent Proposal").
type Request struct {
	Command   string   `validate:"required"`
	Args      []string `validate:"dive,max=4096"`
	SessionID string   `validate:"required"`
	TurnID    string   `validate:"required"`
	AgentID   string   `validate:"required"`
}

// RejectionError is returned by Validate; ErrType distinguishes shell-
// string rejections from generic validation failures for audit logging
// and exit-code mapping.
type RejectionError struct {
	ErrType ErrorType
	Detail  string
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("preval: %s: %s", e.ErrType, e.Detail)
}
