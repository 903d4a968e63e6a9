package policy

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func writePolicyFile(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "policy.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write policy file: %v", err)
	}
	return path
}

func TestEvaluateAgainst_WildcardArgsAbsent(t *testing.T) {
	pol := &Policy{
		Default: DefaultDeny,
		Rules:   []Rule{{Command: "echo", Scope: ScopeSafe}},
	}
	d := EvaluateAgainst(pol, "echo", []string{"anything", "goes"})
	if d.Verdict != VerdictAllow {
		t.Fatalf("expected ALLOW, got %s (%s)", d.Verdict, d.Reason)
	}
}

func TestEvaluateAgainst_WildcardSingleStar(t *testing.T) {
	pol := &Policy{
		Default: DefaultDeny,
		Rules:   []Rule{{Command: "echo", Args: []string{"*"}}},
	}
	d := EvaluateAgainst(pol, "echo", []string{"t1"})
	if d.Verdict != VerdictAllow {
		t.Fatalf("expected ALLOW, got %s", d.Verdict)
	}
	d = EvaluateAgainst(pol, "echo", []string{})
	if d.Verdict != VerdictAllow {
		t.Fatalf("expected ALLOW for empty args, got %s", d.Verdict)
	}
}

func TestEvaluateAgainst_PositionalWildcard(t *testing.T) {
	pol := &Policy{
		Default: DefaultDeny,
		Rules:   []Rule{{Command: "git", Args: []string{"commit", "*"}}},
	}
	if d := EvaluateAgainst(pol, "git", []string{"commit", "-m"}); d.Verdict != VerdictAllow {
		t.Fatalf("expected ALLOW, got %s", d.Verdict)
	}
	if d := EvaluateAgainst(pol, "git", []string{"push", "-m"}); d.Verdict != VerdictDeny {
		t.Fatalf("expected DENY for mismatched literal, got %s", d.Verdict)
	}
	if d := EvaluateAgainst(pol, "git", []string{"commit"}); d.Verdict != VerdictDeny {
		t.Fatalf("expected DENY for length mismatch, got %s", d.Verdict)
	}
}

func TestEvaluateAgainst_MatchPrecedence(t *testing.T) {
	// Earlier rule (deny by scope irrelevant here, first match wins) should
	// mask a later, more permissive rule for the same command.
	pol := &Policy{
		Default: DefaultAllow,
		Rules: []Rule{
			{Command: "rm", Args: []string{"-rf", "/"}, Scope: ScopeAdmin},
			{Command: "rm", Scope: ScopeSafe},
		},
	}
	d := EvaluateAgainst(pol, "rm", []string{"-rf", "/"})
	if d.MatchedRuleIndex != 0 {
		t.Fatalf("expected first rule to win, matched index %d", d.MatchedRuleIndex)
	}
	if d.MatchedScope != ScopeAdmin {
		t.Fatalf("expected admin scope from first match, got %s", d.MatchedScope)
	}
}

func TestEvaluateAgainst_NoMatchUsesDefault(t *testing.T) {
	pol := &Policy{Default: DefaultDeny, Rules: []Rule{{Command: "echo"}}}
	d := EvaluateAgainst(pol, "rm", []string{"-rf", "/"})
	if d.Verdict != VerdictDeny || d.Reason != "no rule matched" {
		t.Fatalf("expected default DENY with 'no rule matched', got %+v", d)
	}
}

func TestFileEngine_FailClosedOnMissingFile(t *testing.T) {
	e := NewFileEngine()
	d := e.Evaluate(context.Background(), "echo", nil, filepath.Join(t.TempDir(), "nope.yaml"))
	if d.Verdict != VerdictDeny {
		t.Fatalf("expected fail-closed DENY, got %s", d.Verdict)
	}
}

func TestFileEngine_FailClosedOnMalformedYAML(t *testing.T) {
	path := writePolicyFile(t, "not: [valid, policy\n")
	e := NewFileEngine()
	d := e.Evaluate(context.Background(), "echo", nil, path)
	if d.Verdict != VerdictDeny {
		t.Fatalf("expected fail-closed DENY on malformed YAML, got %s", d.Verdict)
	}
}

func TestFileEngine_FailClosedOnInvalidDefault(t *testing.T) {
	path := writePolicyFile(t, "default: MAYBE\nrules: []\n")
	e := NewFileEngine()
	d := e.Evaluate(context.Background(), "echo", nil, path)
	if d.Verdict != VerdictDeny {
		t.Fatalf("expected fail-closed DENY on invalid default, got %s", d.Verdict)
	}
}

func TestFileEngine_AllowsMatchingRule(t *testing.T) {
	path := writePolicyFile(t, "default: DENY\nrules:\n  - command: echo\n    args: ['*']\n")
	e := NewFileEngine()
	d := e.Evaluate(context.Background(), "echo", []string{"t1"}, path)
	if d.Verdict != VerdictAllow {
		t.Fatalf("expected ALLOW, got %s (%s)", d.Verdict, d.Reason)
	}
}

func TestHashFile_DeterministicOnMissing(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.yaml")
	h1 := HashFile(missing)
	h2 := HashFile(missing)
	if h1 != h2 {
		t.Fatalf("expected deterministic hash for missing file, got %s != %s", h1, h2)
	}
	if len(h1) != 64 {
		t.Fatalf("expected 64-char hex sentinel hash, got %d chars", len(h1))
	}
}

func TestHashFile_ChangesWithContent(t *testing.T) {
	p1 := writePolicyFile(t, "default: DENY\nrules: []\n")
	p2 := writePolicyFile(t, "default: ALLOW\nrules: []\n")
	if HashFile(p1) == HashFile(p2) {
		t.Fatal("expected distinct hashes for distinct policy content")
	}
}
