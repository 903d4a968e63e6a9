package preval

import "github.com/google/uuid"

// NewCorrelationID generates a fresh correlation identifier for a
// standalone invocation (e.g. the `execgate run` CLI path) that has no
// upstream session/turn/agent identity to propagate. These ids are purely
// for audit correlation — never security-bearing — unlike the kernel's
// own time-ordered token identifiers (see the ident package).
func NewCorrelationID() string {
	return uuid.NewString()
}
