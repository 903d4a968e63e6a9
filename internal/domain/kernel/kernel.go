// Package kernel implements the execution kernel: the sole code path
// permitted to invoke the process-spawn primitive, guarded by the fixed
// 7-step verification chain from spec §4.7.
package kernel

import (
	"context"
	"log/slog"
	"time"

	"github.com/sentinelgate/execgate/internal/domain/policy"
	"github.com/sentinelgate/execgate/internal/domain/proposal"
	"github.com/sentinelgate/execgate/internal/domain/registry"
	"github.com/sentinelgate/execgate/internal/domain/token"
)

// Registry is the subset of *registry.Registry the kernel depends on,
// named here so tests can substitute a double without importing the
// concrete type.
type Registry interface {
	IsUsed(tokenID string) bool
	IsUsedComposite(proposalHash, envFingerprint string) bool
	MarkUsed(tokenID string, strict bool, record registry.UsedTokenRecord)
	AppendAudit(record registry.EventRecord)
}

// Request bundles everything Execute needs: the proposal and token as
// issued by the authority pipeline, plus the command/args actually about
// to be run (which must agree with the proposal's own fields — any
// divergence is caught by the proposal-binding step, not spawned first).
type Request struct {
	Command string
	Args    []string
	Proposal proposal.Canonical
	Token    token.Verified

	// StrictReplay adds the Open-Question-1 composite replay key
	// (proposal_hash, environment_fingerprint) to the reference token_id
	// check; a hit on either key denies (spec §9).
	StrictReplay bool
	// FingerprintProfile and HostIdentity must match what the authority
	// pipeline used at issuance, or step 6 will always fail.
	FingerprintProfile proposal.FingerprintProfile
	HostIdentity       proposal.HostIdentity
}

// Result is returned only when all seven verification steps pass and the
// spawned process has exited.
type Result struct {
	ExitCode int
	TokenID  string
	AuditRef string
	Executed bool
}

// Kernel holds the kernel's dependencies: the replay registry, a clock
// (overridable for tests), and the spawn primitive (never exported).
type Kernel struct {
	Registry Registry
	Logger   *slog.Logger

	now   func() time.Time
	spawn processSpawner
}

// New constructs a Kernel with the real clock and the real process
// spawner. Tests use newForTest to inject doubles.
func New(reg Registry, logger *slog.Logger) *Kernel {
	return &Kernel{Registry: reg, Logger: logger, now: time.Now, spawn: realSpawn}
}

// newForTest constructs a Kernel with an injectable clock and spawn
// primitive so tests can assert the spawn primitive is never reached on a
// denial path without actually launching a process. Production code must
// never call this: New is the only exported constructor.
func newForTest(reg Registry, now func() time.Time, spawn processSpawner) *Kernel {
	return &Kernel{Registry: reg, now: now, spawn: spawn}
}

// Execute runs the 7-step verification chain against req and, only if
// every step passes, invokes the process-spawn primitive exactly once.
// On any failure it returns a *Denial and never reaches the spawn
// primitive (spec §4.7, §8 property 8).
func (k *Kernel) Execute(ctx context.Context, req Request) (Result, error) {
	tok := req.Token

	// Step 1: TTL.
	now := k.now()
	if now.After(tok.ExpiresAt) {
		return k.deny(1, TypeTokenExpired, "token past expires_at", req)
	}

	// Step 2: decision gate.
	if tok.Decision != token.DecisionAllow {
		return k.deny(2, TypeDecisionNotAllow, "token decision is not ALLOW", req)
	}

	// Step 3: replay, before any expensive recomputation.
	replayed := k.Registry.IsUsed(tok.TokenID)
	if req.StrictReplay {
		replayed = replayed || k.Registry.IsUsedComposite(tok.ProposalHash, tok.EnvironmentFingerprint)
	}
	if replayed {
		return k.deny(3, TypeTokenReplayed, "token_id already present in registry", req)
	}

	// Step 4: proposal binding.
	if req.Command != req.Proposal.Command || !stringsEqual(req.Args, req.Proposal.Args) {
		return k.deny(4, TypeProposalHashMismatch, "presented command/args disagree with proposal", req)
	}
	proposalHash, err := req.Proposal.Hash()
	if err != nil || proposalHash != tok.ProposalHash {
		return k.deny(4, TypeProposalHashMismatch, "canonical proposal hash disagrees with token binding", req)
	}

	// Step 5: policy binding — re-read the policy file fresh to detect
	// edits made between issuance and execution.
	if policy.HashFile(req.Proposal.PolicyPath) != tok.PolicyHash {
		return k.deny(5, TypePolicyHashMismatch, "policy file content changed since issuance", req)
	}

	// Step 6: environment binding.
	envFP, err := proposal.Fingerprint(req.Proposal.PolicyPath, req.FingerprintProfile, req.HostIdentity)
	if err != nil || envFP != tok.EnvironmentFingerprint {
		return k.deny(6, TypeEnvFingerprintMismatch, "host/runtime identity changed since issuance", req)
	}

	// Step 7: signature.
	if err := token.VerifyToken(tok); err != nil {
		return k.deny(7, TypeSignatureInvalid, err.Error(), req)
	}

	// All seven passed: mark used before spawn, then spawn exactly once.
	k.Registry.MarkUsed(tok.TokenID, req.StrictReplay, registry.UsedTokenRecord{
		TokenID:                tok.TokenID,
		UsedAt:                 now,
		ExpiresAt:              tok.ExpiresAt,
		AuditRef:               tok.AuditRef,
		ProposalHash:           tok.ProposalHash,
		PolicyHash:             tok.PolicyHash,
		EnvironmentFingerprint: tok.EnvironmentFingerprint,
		Command:                req.Proposal.Command,
		Scope:                  tok.Scope.Resource,
		GuardVersion:           req.Proposal.GuardVersion,
	})

	k.Registry.AppendAudit(registry.EventRecord{
		Decision:               string(tok.Decision),
		ProposalHash:           tok.ProposalHash,
		TokenID:                tok.TokenID,
		PolicyHash:             tok.PolicyHash,
		EnvironmentFingerprint: tok.EnvironmentFingerprint,
		Reason:                 "verification passed",
		Executed:               true,
		Time:                   now,
	})

	exitCode, spawnErr := k.spawn(ctx, req.Proposal.Command, req.Proposal.Args)
	if spawnErr != nil && k.Logger != nil {
		k.Logger.Error("kernel: spawn failed", "command", req.Proposal.Command, "error", spawnErr)
	}

	return Result{ExitCode: exitCode, TokenID: tok.TokenID, AuditRef: tok.AuditRef, Executed: true}, nil
}

func (k *Kernel) deny(step int, errType ErrorType, detail string, req Request) (Result, error) {
	denial := newDenial(step, errType, detail)
	k.Registry.AppendAudit(registry.EventRecord{
		Decision:               string(req.Token.Decision),
		ProposalHash:           req.Token.ProposalHash,
		TokenID:                req.Token.TokenID,
		PolicyHash:             req.Token.PolicyHash,
		EnvironmentFingerprint: req.Token.EnvironmentFingerprint,
		Reason:                 detail,
		Executed:               false,
		ErrorType:              string(errType),
		Time:                   k.now(),
	})
	if k.Logger != nil {
		k.Logger.Warn("kernel: verification failed", "step", step, "error_type", errType, "detail", detail)
	}
	return Result{}, denial
}

func stringsEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
