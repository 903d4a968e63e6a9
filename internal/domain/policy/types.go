// Package policy implements the deterministic, fail-closed rule matcher
// over a declarative policy document. It never interprets the command
// string semantically: no globbing, no pipe decomposition, no variable
// substitution — only exact identity matching with a bounded wildcard.
package policy

// Default is the fallback verdict applied when no rule matches.
type Default string

const (
	// DefaultDeny denies any command that does not match a rule.
	DefaultDeny Default = "DENY"
	// DefaultAllow allows any command that does not match a rule.
	DefaultAllow Default = "ALLOW"
)

// Scope classifies the blast radius of an allowed rule. Scopes other than
// safe require a human-approved token even when the rule matches (see the
// scope package).
type Scope string

const (
	// ScopeSafe requires no elevation; auto-issuance is permitted.
	ScopeSafe Scope = "safe"
	// ScopeNet covers network-affecting commands; requires elevation.
	ScopeNet Scope = "net"
	// ScopeFS covers filesystem-affecting commands; requires elevation.
	ScopeFS Scope = "fs"
	// ScopeAdmin covers administrative commands; never auto-issued under STRICT.
	ScopeAdmin Scope = "admin"
)

// IsValid reports whether s is one of the four known scopes.
func (s Scope) IsValid() bool {
	switch s {
	case ScopeSafe, ScopeNet, ScopeFS, ScopeAdmin:
		return true
	default:
		return false
	}
}

// wildcard is the sentinel that matches any single positional argument, or,
// as the sole element of Args, any argument vector of any length.
const wildcard = "*"

// Rule is one ordered entry in a Policy. The first rule whose Command and
// Args constraint both match wins; later rules are never consulted.
type Rule struct {
	// Command is the bare executable name this rule applies to. Matching is
	// byte-equality only — no glob, no case folding.
	Command string `yaml:"command"`
	// Args is the positional argument constraint. Nil means "match any
	// argument vector". A single-element []string{"*"} also means "match
	// any argument vector" (spec sentinel). Otherwise every element must
	// equal the corresponding request argument, except "*" which matches
	// any single argument at that position; lengths must be equal.
	Args []string `yaml:"args"`
	// Scope classifies the rule for elevation purposes. Empty defaults to
	// ScopeSafe at load time.
	Scope Scope `yaml:"scope"`
	// ElevationCondition is an optional CEL expression (net/fs scopes
	// only) evaluated after this rule already matched, to decide whether
	// elevation can be auto-approved under an explicit audited condition
	// instead of requiring a human approval. Never consulted by the core
	// matcher itself.
	ElevationCondition string `yaml:"elevation_condition,omitempty"`
	// Description is informational only; never affects evaluation.
	Description string `yaml:"description"`
}

// Policy is the declarative, ordered rule set loaded from a policy file.
type Policy struct {
	Default Default `yaml:"default"`
	Rules   []Rule  `yaml:"rules"`
}

// Verdict is the total result of evaluating a command against a Policy.
type Verdict string

const (
	VerdictAllow Verdict = "ALLOW"
	VerdictDeny  Verdict = "DENY"
)

// Decision is the outcome of a single Evaluate call.
type Decision struct {
	Verdict Verdict
	// Reason is a short, stable, human-readable explanation.
	Reason string
	// MatchedScope is the scope of the rule that produced this decision.
	// Set to ScopeSafe when no rule matched and the policy default
	// applied.
	MatchedScope Scope
	// MatchedRuleIndex is the index of the matched rule in Policy.Rules, or
	// -1 when no rule matched.
	MatchedRuleIndex int
}
