package policy

import "context"

// Engine evaluates a single command invocation against a loaded Policy.
// Evaluation is total: it always returns a Decision, never an error —
// every failure mode (missing policy, parse error) was already absorbed
// into DefaultDeny by Load.
type Engine interface {
	Evaluate(ctx context.Context, command string, args []string, policyPath string) Decision
}

// FileEngine is the reference Engine: it loads the policy fresh on every
// call (the policy file is small and this keeps the evaluator trivially
// correct with respect to concurrent edits — staleness is instead caught
// later by the kernel's policy-binding verification step).
type FileEngine struct{}

// NewFileEngine constructs the reference file-backed policy engine.
func NewFileEngine() *FileEngine {
	return &FileEngine{}
}

// Evaluate implements Engine.
func (e *FileEngine) Evaluate(_ context.Context, command string, args []string, policyPath string) Decision {
	pol, err := Load(policyPath)
	if err != nil {
		return Decision{Verdict: VerdictDeny, Reason: "no valid policy; fail-closed", MatchedRuleIndex: -1}
	}
	return EvaluateAgainst(pol, command, args)
}

// EvaluateAgainst runs the ordered rule walk against an already-loaded
// Policy. Exposed separately from Evaluate so callers that already hold a
// validated Policy (e.g. the scope/dry-run CLI) don't re-read the file.
func EvaluateAgainst(pol *Policy, command string, args []string) Decision {
	for i, rule := range pol.Rules {
		if rule.Command != command {
			continue
		}
		if !argsMatch(rule.Args, args) {
			continue
		}
		scope := rule.Scope
		if scope == "" {
			scope = ScopeSafe
		}
		return Decision{
			Verdict:          VerdictAllow,
			Reason:           "rule matched",
			MatchedScope:     scope,
			MatchedRuleIndex: i,
		}
	}

	verdict := VerdictDeny
	if pol.Default == DefaultAllow {
		verdict = VerdictAllow
	}
	return Decision{Verdict: verdict, Reason: "no rule matched", MatchedScope: ScopeSafe, MatchedRuleIndex: -1}
}

// argsMatch implements spec §4.2 step 2's argument constraint:
//   - ruleArgs == nil                      -> match any argument vector
//   - ruleArgs == []string{"*"}             -> match any argument vector
//   - otherwise, len(ruleArgs) == len(args) and each element equals the
//     request argument at that position, except "*" which matches any
//     single argument.
func argsMatch(ruleArgs, args []string) bool {
	if ruleArgs == nil {
		return true
	}
	if len(ruleArgs) == 1 && ruleArgs[0] == wildcard {
		return true
	}
	if len(ruleArgs) != len(args) {
		return false
	}
	for i, want := range ruleArgs {
		if want == wildcard {
			continue
		}
		if want != args[i] {
			return false
		}
	}
	return true
}
