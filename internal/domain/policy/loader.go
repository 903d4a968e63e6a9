package policy

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// fileDoc mirrors the on-disk YAML shape before defaulting/validation.
type fileDoc struct {
	Default Default `yaml:"default"`
	Rules   []Rule  `yaml:"rules"`
}

// Load reads and parses the policy document at path. On any failure
// (missing file, parse error, missing/invalid default, non-sequence rules)
// it returns a Policy with Default = DefaultDeny and a descriptive error so
// callers fail closed: spec §4.2 step 1 mandates `verdict = DENY, reason =
// "no valid policy; fail-closed"` whenever Load returns an error.
func Load(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return denyClosed(), fmt.Errorf("policy_not_found: %w", err)
		}
		return denyClosed(), fmt.Errorf("policy_read_error: %w", err)
	}

	var doc fileDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return denyClosed(), fmt.Errorf("policy_parse_error: %w", err)
	}

	if doc.Default != DefaultAllow && doc.Default != DefaultDeny {
		return denyClosed(), fmt.Errorf("policy_parse_error: invalid or missing default %q", doc.Default)
	}

	for i := range doc.Rules {
		if doc.Rules[i].Command == "" {
			return denyClosed(), errors.New("policy_parse_error: rule missing command")
		}
		if doc.Rules[i].Scope == "" {
			doc.Rules[i].Scope = ScopeSafe
		}
		if !doc.Rules[i].Scope.IsValid() {
			return denyClosed(), fmt.Errorf("policy_parse_error: rule %d has invalid scope %q", i, doc.Rules[i].Scope)
		}
	}

	return &Policy{Default: doc.Default, Rules: doc.Rules}, nil
}

func denyClosed() *Policy {
	return &Policy{Default: DefaultDeny}
}

// HashFile computes the content hash of the policy file at path. On
// missing/unreadable files it returns a deterministic sentinel string
// instead of an error, so that callers computing a proposal hash always
// get a stable value to bind against (spec §4.3: "deterministic string on
// missing/unreadable").
func HashFile(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return sentinelHash("policy_not_found:" + path)
		}
		return sentinelHash("policy_read_error:" + path)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// sentinelHash produces a stable, clearly-distinguishable hash-shaped
// string for a given failure tag, so it can never collide with a real
// content hash in practice while still being a fixed function of the tag.
func sentinelHash(tag string) string {
	sum := sha256.Sum256([]byte("execgate:policy-hash-failure:" + tag))
	return hex.EncodeToString(sum[:])
}
