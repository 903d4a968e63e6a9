package proposal

import (
	"runtime"

	"github.com/sentinelgate/execgate/internal/domain/canon"
	"github.com/sentinelgate/execgate/internal/domain/policy"
)

// FingerprintProfile selects which host-identity fields are bound into the
// environment fingerprint (spec §9 Open Question: "fingerprint field
// selection... is configurable; the minimum set is specified, the maximum
// set is implementation choice").
type FingerprintProfile string

const (
	// ProfileMinimal binds {host_os, host_arch, runtime_version,
	// policy_hash} — the reference minimum profile from spec §3.
	ProfileMinimal FingerprintProfile = "minimal"
	// ProfileExtended additionally binds workflow_id, run_id, repo_commit,
	// and guard_version, sourced from environment variables a CI/agent
	// host is expected to set.
	ProfileExtended FingerprintProfile = "extended"
)

// HostIdentity is the source of extended-profile fields. The caller
// populates this from its environment (CI env vars, VCS metadata); the
// fingerprint package never reads the process environment directly so it
// stays a pure function of its inputs.
type HostIdentity struct {
	WorkflowID string
	RunID      string
	RepoCommit string
}

// Fingerprint computes the environment fingerprint for policyPath under
// the given profile (spec §4.3 environment_fingerprint). It is a hash over
// an ordered record of host-identity fields plus the current policy hash,
// so any change to host identity *or* the policy file content flips the
// fingerprint.
func Fingerprint(policyPath string, profile FingerprintProfile, host HostIdentity) (string, error) {
	fields := map[string]interface{}{
		"host_os":         runtime.GOOS,
		"host_arch":       runtime.GOARCH,
		"runtime_version": runtime.Version(),
		"policy_hash":     policy.HashFile(policyPath),
	}

	if profile == ProfileExtended {
		fields["workflow_id"] = host.WorkflowID
		fields["run_id"] = host.RunID
		fields["repo_commit"] = host.RepoCommit
		fields["guard_version"] = GuardVersion
	}

	return canon.Hash(fields)
}
