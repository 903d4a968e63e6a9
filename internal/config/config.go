// Package config provides the gate's configuration schema: the full
// ambient settings surface the spec's CORE leaves to implementation
// choice (gate mode, TTL, fingerprint profile, storage backends).
package config

import (
	"time"

	"github.com/sentinelgate/execgate/internal/domain/proposal"
	"github.com/sentinelgate/execgate/internal/domain/token"
)

// RegistryBackend selects the durable backend for the replay registry's
// used-token and event streams.
type RegistryBackend string

const (
	// RegistryBackendFile uses the append-only flock-protected JSONL files.
	RegistryBackendFile RegistryBackend = "file"
	// RegistryBackendMemory keeps no durable record at all (tests, one-shots).
	RegistryBackendMemory RegistryBackend = "memory"
)

// ApprovalBackend selects the durable backend for the human-approval
// bridge consulted on net/fs/admin scope elevation.
type ApprovalBackend string

const (
	// ApprovalBackendSQLite persists approvals in a sqlite file.
	ApprovalBackendSQLite ApprovalBackend = "sqlite"
	// ApprovalBackendMemory keeps approvals only for the process lifetime.
	ApprovalBackendMemory ApprovalBackend = "memory"
)

// GateConfig is the top-level configuration for the execution gate. It
// intentionally excludes anything the spec's Non-goals exclude: no
// network listener, no multi-tenant identity store, no remote policy
// fetch.
type GateConfig struct {
	// GateMode selects STRICT or PERMISSIVE handling of policy misses
	// (spec §4.4). Unknown values are coerced to STRICT at load time.
	GateMode string `yaml:"gate_mode" mapstructure:"gate_mode" validate:"omitempty,oneof=STRICT PERMISSIVE"`

	// TokenTTL is loaded and defaulted to 5 minutes (spec §3), but the
	// pipeline does not read it: an issued token's expires_at is always
	// token.DefaultTTL after issuance.
	TokenTTL time.Duration `yaml:"token_ttl" mapstructure:"token_ttl"`

	// FingerprintProfile selects which host-identity fields are bound
	// into the environment fingerprint (spec §9 Open Question).
	FingerprintProfile string `yaml:"fingerprint_profile" mapstructure:"fingerprint_profile" validate:"omitempty,oneof=minimal extended"`

	// StrictReplay adds the composite (proposal_hash,
	// environment_fingerprint) replay key to the reference token_id
	// check; both keys are then checked (spec §9 Open Question 1).
	StrictReplay bool `yaml:"strict_replay" mapstructure:"strict_replay"`

	// PolicyPath is the path to the declarative policy document.
	PolicyPath string `yaml:"policy_path" mapstructure:"policy_path" validate:"required"`

	// AuditDir is the directory the registry's used-token and event
	// streams are written under, when RegistryBackend is "file".
	AuditDir string `yaml:"audit_dir" mapstructure:"audit_dir"`

	// RegistryBackend selects how the replay registry persists.
	RegistryBackend string `yaml:"registry_backend" mapstructure:"registry_backend" validate:"omitempty,oneof=file memory"`

	// ApprovalBackend selects how the human-approval bridge persists.
	ApprovalBackend string `yaml:"approval_backend" mapstructure:"approval_backend" validate:"omitempty,oneof=sqlite memory"`

	// ApprovalDBPath is the sqlite file path, when ApprovalBackend is "sqlite".
	ApprovalDBPath string `yaml:"approval_db_path" mapstructure:"approval_db_path"`

	// ApprovalPassphraseHash is the Argon2id PHC-format hash an operator
	// must satisfy to record an approval via `execgate approve`.
	ApprovalPassphraseHash string `yaml:"approval_passphrase_hash" mapstructure:"approval_passphrase_hash"`

	// LogFormat selects "text" or "json" for the slog handler.
	LogFormat string `yaml:"log_format" mapstructure:"log_format" validate:"omitempty,oneof=text json"`

	// LogLevel selects the minimum slog level ("debug", "info", "warn", "error").
	LogLevel string `yaml:"log_level" mapstructure:"log_level" validate:"omitempty,oneof=debug info warn error"`

	// MetricsEnabled exposes the optional Prometheus debug surface.
	MetricsEnabled bool `yaml:"metrics_enabled" mapstructure:"metrics_enabled"`

	// WorkflowID, RunID, RepoCommit populate the extended fingerprint
	// profile's host-identity fields (spec §3).
	WorkflowID string `yaml:"workflow_id" mapstructure:"workflow_id"`
	RunID      string `yaml:"run_id" mapstructure:"run_id"`
	RepoCommit string `yaml:"repo_commit" mapstructure:"repo_commit"`
}

// SetDefaults fills in zero-valued optional fields with the reference
// defaults, mirroring how the teacher's OSSConfig.SetDefaults works.
func (c *GateConfig) SetDefaults() {
	c.GateMode = string(token.NormalizeGateMode(c.GateMode))
	if c.TokenTTL <= 0 {
		c.TokenTTL = token.DefaultTTL
	}
	if c.FingerprintProfile == "" {
		c.FingerprintProfile = string(proposal.ProfileMinimal)
	}
	if c.PolicyPath == "" {
		c.PolicyPath = "policy.yaml"
	}
	if c.AuditDir == "" {
		c.AuditDir = "./execgate-audit"
	}
	if c.RegistryBackend == "" {
		c.RegistryBackend = string(RegistryBackendFile)
	}
	if c.ApprovalBackend == "" {
		c.ApprovalBackend = string(ApprovalBackendSQLite)
	}
	if c.ApprovalDBPath == "" {
		c.ApprovalDBPath = "./execgate-audit/approvals.db"
	}
	if c.LogFormat == "" {
		c.LogFormat = "text"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// NormalizedGateMode returns the gate mode coerced to the token package's
// GateMode type, matching spec §6's "unknown values silently coerced to
// STRICT".
func (c *GateConfig) NormalizedGateMode() token.GateMode {
	return token.NormalizeGateMode(c.GateMode)
}

// NormalizedFingerprintProfile returns the configured profile coerced to
// proposal.FingerprintProfile, defaulting to minimal on any unrecognized
// value.
func (c *GateConfig) NormalizedFingerprintProfile() proposal.FingerprintProfile {
	if proposal.FingerprintProfile(c.FingerprintProfile) == proposal.ProfileExtended {
		return proposal.ProfileExtended
	}
	return proposal.ProfileMinimal
}

// HostIdentity builds the proposal.HostIdentity the extended fingerprint
// profile binds in, from the configured CI/VCS fields.
func (c *GateConfig) HostIdentity() proposal.HostIdentity {
	return proposal.HostIdentity{
		WorkflowID: c.WorkflowID,
		RunID:      c.RunID,
		RepoCommit: c.RepoCommit,
	}
}
