package kernel

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sentinelgate/execgate/internal/domain/policy"
	"github.com/sentinelgate/execgate/internal/domain/proposal"
	"github.com/sentinelgate/execgate/internal/domain/registry"
	"github.com/sentinelgate/execgate/internal/domain/token"
)

func writeAllowPolicy(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "policy.yaml")
	content := []byte("default: DENY\nrules:\n  - command: echo\n    args: [\"*\"]\n    scope: safe\n    description: test rule\n")
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("os.WriteFile() error = %v", err)
	}
	if _, err := policy.Load(path); err != nil {
		t.Fatalf("policy.Load() error = %v", err)
	}
	return path
}

// validRequest builds a fully self-consistent, signed Request: the proposal
// hash, policy hash, environment fingerprint, and signature all agree, and
// the token has not expired. Individual tests mutate exactly one field away
// from this baseline to isolate a single verification step.
func validRequest(t *testing.T) (Request, ed25519Signer) {
	t.Helper()
	policyPath := writeAllowPolicy(t)

	prop := proposal.Build("echo", []string{"hello"}, policyPath, time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC).Unix())
	proposalHash, err := prop.Hash()
	if err != nil {
		t.Fatalf("prop.Hash() error = %v", err)
	}

	host := proposal.HostIdentity{}
	envFP, err := proposal.Fingerprint(policyPath, proposal.ProfileMinimal, host)
	if err != nil {
		t.Fatalf("proposal.Fingerprint() error = %v", err)
	}

	kp, err := token.GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair() error = %v", err)
	}

	now := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	payload := token.Payload{
		TokenID:                "tok-0001",
		AuditRef:                "audit-0001",
		ProposalHash:            proposalHash,
		PolicyHash:              prop.PolicyHash,
		EnvironmentFingerprint:  envFP,
		Decision:                token.DecisionAllow,
		IssuedAt:                now,
		ExpiresAt:               now.Add(token.DefaultTTL),
		GateMode:                token.GateStrict,
		Scope: token.ScopeGrant{
			Action:   "execute",
			Resource: "echo",
			Constraints: token.Constraints{
				PolicyVersion: "v1",
				GateMode:      string(token.GateStrict),
				GuardVersion:  prop.GuardVersion,
			},
		},
	}
	sig, err := kp.Sign(payload)
	if err != nil {
		t.Fatalf("Sign() error = %v", err)
	}

	verified := token.Verified{Payload: payload, IssuerSignature: sig, PublicKeyHex: kp.PublicKeyHex()}

	req := Request{
		Command:            "echo",
		Args:                []string{"hello"},
		Proposal:            prop,
		Token:               verified,
		StrictReplay:        false,
		FingerprintProfile: proposal.ProfileMinimal,
		HostIdentity:        host,
	}
	return req, ed25519Signer{kp: kp}
}

type ed25519Signer struct {
	kp token.Keypair
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// spawnRecorder is a spawn double that records whether it was ever called,
// so denial-path tests can assert spawn was never reached.
type spawnRecorder struct {
	called bool
}

func (s *spawnRecorder) spawn(ctx context.Context, command string, args []string) (int, error) {
	s.called = true
	return 0, nil
}

func TestKernel_AllSevenStepsPass_Spawns(t *testing.T) {
	req, _ := validRequest(t)
	rec := &spawnRecorder{}
	k := newForTest(registry.New(nil, nil, nil), fixedClock(req.Token.IssuedAt.Add(time.Second)), rec.spawn)

	result, err := k.Execute(context.Background(), req)
	if err != nil {
		t.Fatalf("Execute() error = %v, want nil", err)
	}
	if !result.Executed {
		t.Fatal("expected Executed=true")
	}
	if !rec.called {
		t.Fatal("expected spawn primitive to be invoked on full success")
	}
}

func TestKernel_TTLExpired_BeforeSignatureCheck(t *testing.T) {
	req, _ := validRequest(t)
	// Corrupt the signature too: if TTL is checked first (spec order),
	// the signature corruption must never be reached or reported.
	req.Token.IssuerSignature = "00"

	rec := &spawnRecorder{}
	k := newForTest(registry.New(nil, nil, nil), fixedClock(req.Token.ExpiresAt.Add(time.Minute)), rec.spawn)

	_, err := k.Execute(context.Background(), req)
	var denial *Denial
	if !errors.As(err, &denial) {
		t.Fatalf("expected *Denial, got %v", err)
	}
	if denial.Type != TypeTokenExpired {
		t.Fatalf("expected TypeTokenExpired, got %s", denial.Type)
	}
	if !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected errors.Is(err, ErrTokenExpired) to match")
	}
	if rec.called {
		t.Fatal("spawn must never be reached on a denial path")
	}
}

func TestKernel_HoldDecision_Rejected(t *testing.T) {
	req, signer := validRequest(t)
	req.Token.Decision = token.DecisionHold
	resig, err := signer.kp.Sign(req.Token.Payload)
	if err != nil {
		t.Fatalf("Sign() error = %v", err)
	}
	req.Token.IssuerSignature = resig

	rec := &spawnRecorder{}
	k := newForTest(registry.New(nil, nil, nil), fixedClock(req.Token.IssuedAt.Add(time.Second)), rec.spawn)

	_, err = k.Execute(context.Background(), req)
	var denial *Denial
	if !errors.As(err, &denial) {
		t.Fatalf("expected *Denial, got %v", err)
	}
	if denial.Type != TypeDecisionNotAllow {
		t.Fatalf("expected TypeDecisionNotAllow, got %s", denial.Type)
	}
	if !errors.Is(err, ErrDecisionNotAllow) {
		t.Fatalf("expected errors.Is(err, ErrDecisionNotAllow) to match")
	}
	if rec.called {
		t.Fatal("spawn must never be reached on a denial path")
	}
}

func TestKernel_Replay_SecondPresentationRejected(t *testing.T) {
	req, _ := validRequest(t)
	reg := registry.New(nil, nil, nil)
	clock := fixedClock(req.Token.IssuedAt.Add(time.Second))

	rec1 := &spawnRecorder{}
	k1 := newForTest(reg, clock, rec1.spawn)
	if _, err := k1.Execute(context.Background(), req); err != nil {
		t.Fatalf("first Execute() error = %v, want nil", err)
	}
	if !rec1.called {
		t.Fatal("expected spawn on first presentation")
	}

	rec2 := &spawnRecorder{}
	k2 := newForTest(reg, clock, rec2.spawn)
	_, err := k2.Execute(context.Background(), req)
	var denial *Denial
	if !errors.As(err, &denial) {
		t.Fatalf("expected *Denial on replay, got %v", err)
	}
	if denial.Type != TypeTokenReplayed {
		t.Fatalf("expected TypeTokenReplayed, got %s", denial.Type)
	}
	if !errors.Is(err, ErrTokenReplayed) {
		t.Fatalf("expected errors.Is(err, ErrTokenReplayed) to match")
	}
	if rec2.called {
		t.Fatal("spawn must never be reached on a replay denial")
	}
}

func TestKernel_ProposalHashMismatch_OnArgTamper(t *testing.T) {
	req, _ := validRequest(t)
	req.Args = []string{"goodbye"}
	req.Proposal.Args = []string{"goodbye"} // tamper the proposal itself too

	rec := &spawnRecorder{}
	k := newForTest(registry.New(nil, nil, nil), fixedClock(req.Token.IssuedAt.Add(time.Second)), rec.spawn)

	_, err := k.Execute(context.Background(), req)
	var denial *Denial
	if !errors.As(err, &denial) {
		t.Fatalf("expected *Denial, got %v", err)
	}
	if denial.Type != TypeProposalHashMismatch {
		t.Fatalf("expected TypeProposalHashMismatch, got %s", denial.Type)
	}
	if !errors.Is(err, ErrProposalHashMismatch) {
		t.Fatalf("expected errors.Is(err, ErrProposalHashMismatch) to match")
	}
	if rec.called {
		t.Fatal("spawn must never be reached on a denial path")
	}
}

func TestKernel_PolicyHashMismatch_OnPolicyEdit(t *testing.T) {
	req, _ := validRequest(t)
	if err := os.WriteFile(req.Proposal.PolicyPath, []byte("default: ALLOW\nrules: []\n"), 0o600); err != nil {
		t.Fatalf("os.WriteFile() error = %v", err)
	}

	rec := &spawnRecorder{}
	k := newForTest(registry.New(nil, nil, nil), fixedClock(req.Token.IssuedAt.Add(time.Second)), rec.spawn)

	_, err := k.Execute(context.Background(), req)
	var denial *Denial
	if !errors.As(err, &denial) {
		t.Fatalf("expected *Denial, got %v", err)
	}
	if denial.Type != TypePolicyHashMismatch {
		t.Fatalf("expected TypePolicyHashMismatch, got %s", denial.Type)
	}
	if !errors.Is(err, ErrPolicyHashMismatch) {
		t.Fatalf("expected errors.Is(err, ErrPolicyHashMismatch) to match")
	}
	if rec.called {
		t.Fatal("spawn must never be reached on a denial path")
	}
}

func TestKernel_EnvFingerprintMismatch_OnProfileChange(t *testing.T) {
	req, _ := validRequest(t)
	req.FingerprintProfile = proposal.ProfileExtended

	rec := &spawnRecorder{}
	k := newForTest(registry.New(nil, nil, nil), fixedClock(req.Token.IssuedAt.Add(time.Second)), rec.spawn)

	_, err := k.Execute(context.Background(), req)
	var denial *Denial
	if !errors.As(err, &denial) {
		t.Fatalf("expected *Denial, got %v", err)
	}
	if denial.Type != TypeEnvFingerprintMismatch {
		t.Fatalf("expected TypeEnvFingerprintMismatch, got %s", denial.Type)
	}
	if !errors.Is(err, ErrEnvFingerprintMismatch) {
		t.Fatalf("expected errors.Is(err, ErrEnvFingerprintMismatch) to match")
	}
	if rec.called {
		t.Fatal("spawn must never be reached on a denial path")
	}
}

func TestKernel_SignatureInvalid_OnMutationWithoutResign(t *testing.T) {
	req, _ := validRequest(t)
	req.Token.AuditRef = "different-audit-ref"

	rec := &spawnRecorder{}
	k := newForTest(registry.New(nil, nil, nil), fixedClock(req.Token.IssuedAt.Add(time.Second)), rec.spawn)

	_, err := k.Execute(context.Background(), req)
	var denial *Denial
	if !errors.As(err, &denial) {
		t.Fatalf("expected *Denial, got %v", err)
	}
	if denial.Type != TypeSignatureInvalid {
		t.Fatalf("expected TypeSignatureInvalid, got %s", denial.Type)
	}
	if !errors.Is(err, ErrSignatureInvalid) {
		t.Fatalf("expected errors.Is(err, ErrSignatureInvalid) to match")
	}
	if rec.called {
		t.Fatal("spawn must never be reached on a denial path")
	}
}
