// Package service wires the domain packages into the two operations an
// outer adapter actually calls: the authority pipeline (policy ->
// decision -> signed token) and the gate that hands a token straight to
// the kernel for verification and spawn.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sentinelgate/execgate/internal/domain/ident"
	"github.com/sentinelgate/execgate/internal/domain/policy"
	"github.com/sentinelgate/execgate/internal/domain/proposal"
	"github.com/sentinelgate/execgate/internal/domain/registry"
	"github.com/sentinelgate/execgate/internal/domain/scope"
	"github.com/sentinelgate/execgate/internal/domain/token"
)

// ReasonCode is a short, stable explanation attached to a pipeline
// outcome, distinct from the kernel's ErrorType taxonomy (spec §7).
type ReasonCode string

const (
	ReasonRuleMatched        ReasonCode = "RULE_MATCHED"
	ReasonPolicyMiss         ReasonCode = "POLICY_MISS"
	ReasonAuditedPermit      ReasonCode = "AUDITED_PERMIT"
	ReasonScopeElevationStop ReasonCode = "SCOPE_ELEVATION_STOP"
	ReasonScopeElevationHold ReasonCode = "SCOPE_ELEVATION_HOLD"
	ReasonPipelineError      ReasonCode = "PIPELINE_ERROR"
)

// AuditSink is the subset of *registry.Registry the pipeline depends on.
type AuditSink interface {
	AppendAudit(record registry.EventRecord)
}

// PipelineInput bundles the authority pipeline's inputs (spec §4.6).
type PipelineInput struct {
	Command    string
	Args       []string
	PolicyPath string
	GateMode   token.GateMode
	// AllowWithAudit opts into the audited-ALLOW mode-matrix cell on a
	// policy miss under PERMISSIVE (spec §4.6 table).
	AllowWithAudit bool

	FingerprintProfile proposal.FingerprintProfile
	HostIdentity       proposal.HostIdentity

	// ScopeApproved reflects whether a human-approval record already
	// exists on record for this proposal's scope elevation (spec §4.9).
	ScopeApproved bool
}

// PipelineOutput is the authority pipeline's total result (spec §4.6: "On
// STOP: ... return {decision=STOP, proposal_hash, reason}"; "On issuance:
// ... return {decision, proposal_hash, reason, token, proposal}").
type PipelineOutput struct {
	// Decision is "ALLOW", "HOLD", or "STOP" — a superset of
	// token.Decision, since STOP never reaches a token at all.
	Decision     string
	Stopped      bool
	ProposalHash string
	Reason       ReasonCode
	Token        *token.Verified
	Proposal     *proposal.Canonical
}

// Pipeline implements the authority pipeline (spec §4.6): it never
// returns an error to the caller — any unexpected failure converts to a
// STOP outcome with reason PIPELINE_ERROR (spec: "pipeline is total and
// never throws").
type Pipeline struct {
	Elevation  scope.Elevation
	Conditions *scope.ConditionEvaluator
	Registry   AuditSink
	Logger     *slog.Logger

	now func() time.Time
}

// NewPipeline constructs a Pipeline with the real clock.
func NewPipeline(elevation scope.Elevation, conditions *scope.ConditionEvaluator, reg AuditSink, logger *slog.Logger) *Pipeline {
	return &Pipeline{Elevation: elevation, Conditions: conditions, Registry: reg, Logger: logger, now: time.Now}
}

// Execute runs the pipeline stages in order and never panics or returns an
// error: any failure is absorbed into a STOP outcome.
func (p *Pipeline) Execute(_ context.Context, in PipelineInput) (out PipelineOutput) {
	defer func() {
		if r := recover(); r != nil {
			if p.Logger != nil {
				p.Logger.Error("pipeline: panic, converting to STOP", "panic", r)
			}
			out = p.stop("", ReasonPipelineError, fmt.Sprintf("pipeline_error: panic: %v", r))
		}
	}()
	out, err := p.run(in)
	if err != nil {
		if p.Logger != nil {
			p.Logger.Error("pipeline: unexpected failure, converting to STOP", "error", err)
		}
		return p.stop("", ReasonPipelineError, fmt.Sprintf("pipeline_error: %v", err))
	}
	return out
}

func (p *Pipeline) run(in PipelineInput) (PipelineOutput, error) {
	now := p.now()

	// Stage 1: canonical proposal + proposal_hash, policy_hash.
	prop := proposal.Build(in.Command, in.Args, in.PolicyPath, now.Unix())
	proposalHash, err := prop.Hash()
	if err != nil {
		return PipelineOutput{}, fmt.Errorf("hash proposal: %w", err)
	}

	// Stage 2: environment_fingerprint.
	envFP, err := proposal.Fingerprint(in.PolicyPath, in.FingerprintProfile, in.HostIdentity)
	if err != nil {
		return PipelineOutput{}, fmt.Errorf("compute environment fingerprint: %w", err)
	}

	// Stage 3: evaluator. policy.Load already fails closed on any
	// malformed/missing file, so a load error never needs separate
	// handling here — EvaluateAgainst on the deny-closed Policy already
	// yields DENY.
	pol, _ := policy.Load(in.PolicyPath)
	decision := policy.EvaluateAgainst(pol, in.Command, in.Args)

	gateMode := token.NormalizeGateMode(string(in.GateMode))

	var (
		finalDecision     token.Decision
		reason            ReasonCode
		auditedPermit     bool
		conditionApproved bool
	)

	// Stage 4: decide per the mode matrix, then per the scope elevation
	// matrix on top of an evaluator ALLOW (spec §4.6, §4.9).
	switch decision.Verdict {
	case policy.VerdictDeny:
		switch {
		case gateMode == token.GateStrict:
			return p.stop(proposalHash, ReasonPolicyMiss, "policy denied under STRICT gate mode"), nil
		case !in.AllowWithAudit:
			finalDecision, reason = token.DecisionHold, ReasonPolicyMiss
		default:
			finalDecision, reason, auditedPermit = token.DecisionAllow, ReasonAuditedPermit, true
		}

	case policy.VerdictAllow:
		outcome := p.Elevation.Decide(decision.MatchedScope, gateMode == token.GateStrict, in.ScopeApproved)

		if outcome == scope.OutcomeRequiresApproval && !in.ScopeApproved {
			if approved := p.tryConditionApproval(pol, decision, in); approved {
				outcome = scope.OutcomeAutoApproved
				conditionApproved = true
			}
		}

		switch outcome {
		case scope.OutcomeStop:
			return p.stop(proposalHash, ReasonScopeElevationStop, "scope elevation refused under current gate mode"), nil
		case scope.OutcomeRequiresApproval:
			finalDecision, reason = token.DecisionHold, ReasonScopeElevationHold
		default:
			finalDecision, reason = token.DecisionAllow, ReasonRuleMatched
		}
	}

	// Stage 6: issue a signed token with a fresh ephemeral keypair.
	verified, err := p.issue(issueInput{
		proposalHash:      proposalHash,
		policyHash:        prop.PolicyHash,
		envFingerprint:    envFP,
		decision:          finalDecision,
		gateMode:          gateMode,
		guardVersion:      prop.GuardVersion,
		scope:             resolvedScopeName(decision),
		auditedPermit:     auditedPermit || conditionApproved,
		now:               now,
	})
	if err != nil {
		return PipelineOutput{}, err
	}

	p.audit(registry.EventRecord{
		Decision:               string(finalDecision),
		ProposalHash:           proposalHash,
		TokenID:                verified.TokenID,
		PolicyHash:             prop.PolicyHash,
		EnvironmentFingerprint: envFP,
		Reason:                 "TOKEN_ISSUED_" + string(finalDecision),
		Executed:               false,
		Time:                   now,
	})

	return PipelineOutput{
		Decision:     string(finalDecision),
		ProposalHash: proposalHash,
		Reason:       reason,
		Token:        &verified,
		Proposal:     &prop,
	}, nil
}

// tryConditionApproval evaluates the matched rule's optional CEL
// elevation_condition, if any, and reports whether it auto-approves the
// elevation. A missing evaluator, missing condition, or evaluation error
// all fall back to false (fail-closed: silence never approves).
func (p *Pipeline) tryConditionApproval(pol *policy.Policy, decision policy.Decision, in PipelineInput) bool {
	if p.Conditions == nil || pol == nil || decision.MatchedRuleIndex < 0 {
		return false
	}
	rule := pol.Rules[decision.MatchedRuleIndex]
	if rule.ElevationCondition == "" {
		return false
	}

	prg, err := p.Conditions.Compile(rule.ElevationCondition)
	if err != nil {
		if p.Logger != nil {
			p.Logger.Warn("pipeline: elevation_condition compile failed", "error", err)
		}
		return false
	}
	approved, err := p.Conditions.Evaluate(prg, scope.ConditionInput{
		Command: in.Command,
		Args:    in.Args,
		Scope:   string(decision.MatchedScope),
	})
	if err != nil {
		if p.Logger != nil {
			p.Logger.Warn("pipeline: elevation_condition evaluation failed", "error", err)
		}
		return false
	}
	return approved
}

type issueInput struct {
	proposalHash   string
	policyHash     string
	envFingerprint string
	decision       token.Decision
	gateMode       token.GateMode
	guardVersion   string
	scope          string
	auditedPermit  bool
	now            time.Time
}

// issue generates a fresh ephemeral keypair, assembles and signs the token
// payload, and returns the fully verified token (spec §4.6 stage 6).
func (p *Pipeline) issue(in issueInput) (token.Verified, error) {
	kp, err := token.GenerateKeypair()
	if err != nil {
		return token.Verified{}, fmt.Errorf("generate keypair: %w", err)
	}
	tokenID, err := ident.New(in.now.UnixMilli())
	if err != nil {
		return token.Verified{}, fmt.Errorf("generate token id: %w", err)
	}
	auditRef, err := ident.New(in.now.UnixMilli())
	if err != nil {
		return token.Verified{}, fmt.Errorf("generate audit ref: %w", err)
	}

	payload := token.Payload{
		TokenID:                tokenID,
		AuditRef:               auditRef,
		ProposalHash:           in.proposalHash,
		PolicyHash:             in.policyHash,
		EnvironmentFingerprint: in.envFingerprint,
		Decision:               in.decision,
		IssuedAt:               in.now,
		ExpiresAt:              in.now.Add(token.DefaultTTL),
		Scope: token.ScopeGrant{
			Action:   "execute",
			Resource: in.scope,
			Constraints: token.Constraints{
				PolicyVersion: in.policyHash,
				GateMode:      string(in.gateMode),
				GuardVersion:  in.guardVersion,
				AuditedPermit: in.auditedPermit,
			},
		},
		GateMode: in.gateMode,
	}

	sig, err := kp.Sign(payload)
	if err != nil {
		return token.Verified{}, fmt.Errorf("sign payload: %w", err)
	}

	return token.Verified{Payload: payload, IssuerSignature: sig, PublicKeyHex: kp.PublicKeyHex()}, nil
}

// stop builds a STOP outcome and appends its audit record (spec §4.6 stage
// 5). No token is issued.
func (p *Pipeline) stop(proposalHash string, reason ReasonCode, detail string) PipelineOutput {
	p.audit(registry.EventRecord{
		Decision:     "STOP",
		ProposalHash: proposalHash,
		Reason:       detail,
		Executed:     false,
		ErrorType:    string(reason),
		Time:         p.now(),
	})
	return PipelineOutput{Decision: "STOP", Stopped: true, ProposalHash: proposalHash, Reason: reason}
}

func (p *Pipeline) audit(record registry.EventRecord) {
	if p.Registry != nil {
		p.Registry.AppendAudit(record)
	}
}

// resolvedScopeName returns the matched rule's scope, or "safe" when no
// rule matched (policy-miss paths never carry elevation semantics).
func resolvedScopeName(decision policy.Decision) string {
	if decision.MatchedRuleIndex < 0 {
		return string(policy.ScopeSafe)
	}
	return string(decision.MatchedScope)
}
