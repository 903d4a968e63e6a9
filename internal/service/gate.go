package service

import (
	"context"
	"time"

	"github.com/sentinelgate/execgate/internal/domain/kernel"
	"github.com/sentinelgate/execgate/internal/domain/proposal"
	"github.com/sentinelgate/execgate/internal/domain/token"
	"github.com/sentinelgate/execgate/internal/port"
)

// GateInput is everything one top-level gate invocation needs, mirroring
// the CLI/adapter surface (spec §6).
type GateInput struct {
	Command        string
	Args           []string
	PolicyPath     string
	GateMode       token.GateMode
	AllowWithAudit bool

	FingerprintProfile proposal.FingerprintProfile
	HostIdentity       proposal.HostIdentity
}

// GateOutput is the machine-readable result of one invocation (spec §6
// "Outputs (machine)").
type GateOutput struct {
	Verdict                string
	ProposalHash           string
	PolicyHash             string
	Reason                 ReasonCode
	TokenID                string
	AuditRef               string
	EnvironmentFingerprint string
	GateMode               string
	ExitCode               int
	Executed               bool
	ErrorType              string
}

// Gate ties the authority pipeline to the execution kernel, and consults
// the human-approval bridge before running the pipeline: a live approval
// record for the proposal hash is passed to the pipeline as ScopeApproved,
// and the scope-elevation matrix decides what that permits. The gate never
// hands a stored token to the kernel; every token the kernel sees is the
// one the pipeline has just issued.
type Gate struct {
	Pipeline  *Pipeline
	Kernel    *kernel.Kernel
	Approvals port.ApprovalStore

	StrictReplay bool
}

// NewGate constructs a Gate. Approvals may be nil, in which case no
// approval record is ever found and non-safe scopes are decided by the
// elevation matrix and any elevation_condition alone.
func NewGate(pipeline *Pipeline, k *kernel.Kernel, approvals port.ApprovalStore, strictReplay bool) *Gate {
	return &Gate{Pipeline: pipeline, Kernel: k, Approvals: approvals, StrictReplay: strictReplay}
}

// Run executes one full gate invocation: pipeline decision, then (ALLOW
// only) kernel verification and spawn.
func (g *Gate) Run(ctx context.Context, in GateInput) GateOutput {
	now := time.Now()

	approved := false
	if g.Approvals != nil {
		probe := proposal.Build(in.Command, in.Args, in.PolicyPath, now.Unix())
		if hash, err := probe.Hash(); err == nil {
			if ok, err := g.Approvals.Has(hash, now); err == nil {
				approved = ok
			}
		}
	}

	pipelineOut := g.Pipeline.Execute(ctx, PipelineInput{
		Command:            in.Command,
		Args:               in.Args,
		PolicyPath:         in.PolicyPath,
		GateMode:           in.GateMode,
		AllowWithAudit:     in.AllowWithAudit,
		FingerprintProfile: in.FingerprintProfile,
		HostIdentity:       in.HostIdentity,
		ScopeApproved:      approved,
	})

	out := GateOutput{
		Verdict:      pipelineOut.Decision,
		ProposalHash: pipelineOut.ProposalHash,
		Reason:       pipelineOut.Reason,
		GateMode:     string(token.NormalizeGateMode(string(in.GateMode))),
	}

	if pipelineOut.Token != nil {
		out.TokenID = pipelineOut.Token.TokenID
		out.AuditRef = pipelineOut.Token.AuditRef
		out.EnvironmentFingerprint = pipelineOut.Token.EnvironmentFingerprint
		out.PolicyHash = pipelineOut.Token.PolicyHash
	}

	switch pipelineOut.Decision {
	case "STOP":
		out.ExitCode = 1
		return out
	case string(token.DecisionHold):
		out.ExitCode = 1
		return out
	}

	// decision == ALLOW: hand the proposal and token straight to the
	// kernel, which independently re-verifies everything the pipeline
	// just asserted.
	result, err := g.Kernel.Execute(ctx, kernel.Request{
		Command:            in.Command,
		Args:               in.Args,
		Proposal:           *pipelineOut.Proposal,
		Token:              *pipelineOut.Token,
		StrictReplay:       g.StrictReplay,
		FingerprintProfile: in.FingerprintProfile,
		HostIdentity:       in.HostIdentity,
	})
	if err != nil {
		var denial *kernel.Denial
		if asDenial(err, &denial) {
			out.ErrorType = string(denial.Type)
		}
		out.ExitCode = 1
		return out
	}

	out.Executed = result.Executed
	out.ExitCode = result.ExitCode
	return out
}

func asDenial(err error, target **kernel.Denial) bool {
	d, ok := err.(*kernel.Denial)
	if !ok {
		return false
	}
	*target = d
	return true
}
