package scope

import "testing"

func TestHashVerifyPassphrase_RoundTrip(t *testing.T) {
	hash, err := HashPassphrase("correct-horse-battery-staple")
	if err != nil {
		t.Fatalf("HashPassphrase() error = %v", err)
	}
	if err := VerifyPassphrase("correct-horse-battery-staple", hash); err != nil {
		t.Fatalf("VerifyPassphrase() error = %v, want nil", err)
	}
}

func TestVerifyPassphrase_WrongPassphraseRejected(t *testing.T) {
	hash, err := HashPassphrase("correct-horse-battery-staple")
	if err != nil {
		t.Fatalf("HashPassphrase() error = %v", err)
	}
	if err := VerifyPassphrase("wrong-passphrase", hash); err == nil {
		t.Fatal("expected error for wrong passphrase")
	}
}

func TestVerifyPassphrase_MalformedHashDoesNotPanic(t *testing.T) {
	if err := VerifyPassphrase("anything", "not-a-valid-phc-hash"); err == nil {
		t.Fatal("expected error for malformed stored hash")
	}
}
