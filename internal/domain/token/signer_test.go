package token

import (
	"testing"
	"time"
)

func samplePayload() Payload {
	now := time.Date(2026, 7, 31, 12, 0, 0, 0, time.UTC)
	return Payload{
		TokenID:                "tok1",
		AuditRef:                "aud1",
		ProposalHash:            "deadbeef",
		PolicyHash:              "cafebabe",
		EnvironmentFingerprint:  "envfp",
		Decision:                DecisionAllow,
		IssuedAt:                now,
		ExpiresAt:               now.Add(DefaultTTL),
		GateMode:                GateStrict,
		Scope: ScopeGrant{
			Action:   "execute",
			Resource: "echo",
			Constraints: Constraints{
				PolicyVersion: "v1",
				GateMode:      string(GateStrict),
				GuardVersion:  "execgate/1",
			},
		},
	}
}

func TestSignVerify_RoundTrip(t *testing.T) {
	kp, err := GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair() error = %v", err)
	}
	payload := samplePayload()
	sig, err := kp.Sign(payload)
	if err != nil {
		t.Fatalf("Sign() error = %v", err)
	}
	if err := Verify(payload, sig, kp.PublicKeyHex()); err != nil {
		t.Fatalf("Verify() error = %v, want nil", err)
	}
}

func TestVerify_RejectsMutatedField(t *testing.T) {
	kp, err := GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair() error = %v", err)
	}
	payload := samplePayload()
	sig, err := kp.Sign(payload)
	if err != nil {
		t.Fatalf("Sign() error = %v", err)
	}

	mutated := payload
	mutated.ExpiresAt = payload.ExpiresAt.Add(time.Hour) // extend TTL without re-signing
	if err := Verify(mutated, sig, kp.PublicKeyHex()); err == nil {
		t.Fatal("expected signature verification failure after mutating expires_at")
	}

	mutated2 := payload
	mutated2.Decision = DecisionHold
	if err := Verify(mutated2, sig, kp.PublicKeyHex()); err == nil {
		t.Fatal("expected signature verification failure after mutating decision")
	}
}

func TestVerify_RejectsWrongKey(t *testing.T) {
	kp1, _ := GenerateKeypair()
	kp2, _ := GenerateKeypair()
	payload := samplePayload()
	sig, err := kp1.Sign(payload)
	if err != nil {
		t.Fatalf("Sign() error = %v", err)
	}
	if err := Verify(payload, sig, kp2.PublicKeyHex()); err == nil {
		t.Fatal("expected verification failure with mismatched public key")
	}
}
