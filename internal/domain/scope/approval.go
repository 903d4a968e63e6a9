package scope

import (
	"errors"
	"fmt"

	"github.com/alexedwards/argon2id"
)

// ErrInvalidPassphrase is returned when a supplied approval passphrase
// does not match the configured hash.
var ErrInvalidPassphrase = errors.New("scope: invalid approval passphrase")

// approvalParams sits at or just above OWASP's Argon2id minimums: 47 MiB
// memory (OWASP's floor is 46 MiB), one iteration, single-lane parallelism.
var approvalParams = &argon2id.Params{
	Memory:      47 * 1024,
	Iterations:  1,
	Parallelism: 1,
	SaltLength:  16,
	KeyLength:   32,
}

// HashPassphrase returns the Argon2id PHC-format hash of an operator
// approval passphrase, for storage in GateConfig.
func HashPassphrase(passphrase string) (string, error) {
	hash, err := argon2id.CreateHash(passphrase, approvalParams)
	if err != nil {
		return "", fmt.Errorf("scope: hash approval passphrase: %w", err)
	}
	return hash, nil
}

// VerifyPassphrase checks a supplied passphrase against the configured
// PHC-format hash. A malformed stored hash is treated as a verification
// failure rather than a panic.
func VerifyPassphrase(passphrase, storedHash string) error {
	match, err := safeCompare(passphrase, storedHash)
	if err != nil {
		return fmt.Errorf("scope: %w", err)
	}
	if !match {
		return ErrInvalidPassphrase
	}
	return nil
}

// safeCompare wraps argon2id.ComparePasswordAndHash with panic recovery:
// the underlying library panics on malformed PHC strings (e.g. zero
// iterations), which must never crash the approval path.
func safeCompare(passphrase, storedHash string) (match bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			match = false
			err = fmt.Errorf("invalid argon2id hash parameters: %v", r)
		}
	}()
	return argon2id.ComparePasswordAndHash(passphrase, storedHash)
}
