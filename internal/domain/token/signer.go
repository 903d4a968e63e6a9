package token

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/sentinelgate/execgate/internal/domain/canon"
)

// Keypair is an ephemeral Ed25519 signing key, scoped to a single authority
// pipeline call (spec §4.6, §9 "Ephemeral keys"). It must never be
// persisted and never leaves the calling process.
type Keypair struct {
	public  ed25519.PublicKey
	private ed25519.PrivateKey
}

// GenerateKeypair creates a fresh ephemeral Ed25519 keypair.
func GenerateKeypair() (Keypair, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return Keypair{}, fmt.Errorf("token: generate keypair: %w", err)
	}
	return Keypair{public: pub, private: priv}, nil
}

// PublicKeyHex returns the hex-encoded public key, embedded verbatim in
// the issued token as public_key_hex.
func (k Keypair) PublicKeyHex() string {
	return hex.EncodeToString(k.public)
}

// Sign canonically serializes payload and signs it, returning the
// hex-encoded signature. The signature binds every field of Payload (spec
// §3 invariant 3); IssuerSignature and PublicKeyHex are never part of the
// signed bytes because they live outside the Payload type.
func (k Keypair) Sign(payload Payload) (string, error) {
	msg, err := canon.Serialize(payload)
	if err != nil {
		return "", fmt.Errorf("token: serialize payload for signing: %w", err)
	}
	sig := ed25519.Sign(k.private, msg)
	return hex.EncodeToString(sig), nil
}

// Verify reconstructs the signed payload (canonical serialization of
// Payload alone) and checks signatureHex against it using the embedded
// publicKeyHex. Any mutation to any signed field, without re-signing,
// fails verification (spec §8 property 5; spec §4.7 step 7).
func Verify(payload Payload, signatureHex, publicKeyHex string) error {
	pubBytes, err := hex.DecodeString(publicKeyHex)
	if err != nil || len(pubBytes) != ed25519.PublicKeySize {
		return fmt.Errorf("token: malformed public key")
	}
	sigBytes, err := hex.DecodeString(signatureHex)
	if err != nil || len(sigBytes) != ed25519.SignatureSize {
		return fmt.Errorf("token: malformed signature")
	}

	msg, err := canon.Serialize(payload)
	if err != nil {
		return fmt.Errorf("token: serialize payload for verification: %w", err)
	}

	if !ed25519.Verify(ed25519.PublicKey(pubBytes), msg, sigBytes) {
		return fmt.Errorf("token: signature verification failed")
	}
	return nil
}

// VerifyToken is a convenience wrapper that reconstructs the signed
// payload directly from a Verified token's embedded fields.
func VerifyToken(t Verified) error {
	return Verify(t.Payload, t.IssuerSignature, t.PublicKeyHex)
}
