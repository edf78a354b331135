package security

import (
	"strings"
	"testing"
)

func TestHashPassword_VerifyRoundTrip(t *testing.T) {
	encoded, err := HashPassword("S3cure!Passw0rd")
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}

	if !strings.HasPrefix(encoded, "argon2id$") {
		t.Fatalf("unexpected hash format: %q", encoded)
	}

	ok, err := VerifyPassword("S3cure!Passw0rd", encoded)
	if err != nil {
		t.Fatalf("VerifyPassword failed: %v", err)
	}
	if !ok {
		t.Fatalf("expected matching password to verify")
	}

	ok, err = VerifyPassword("wrong-password", encoded)
	if err != nil {
		t.Fatalf("VerifyPassword failed: %v", err)
	}
	if ok {
		t.Fatalf("expected mismatched password to fail")
	}
}

func TestHashPassword_SaltsDiffer(t *testing.T) {
	first, err := HashPassword("S3cure!Passw0rd")
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}
	second, err := HashPassword("S3cure!Passw0rd")
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}
	if first == second {
		t.Fatalf("expected distinct salts to produce distinct encodings")
	}
}

func TestVerifyPassword_MalformedEncoding(t *testing.T) {
	for _, encoded := range []string{"", "argon2id", "argon2id$v=19$bad", "plaintext-hash"} {
		if _, err := VerifyPassword("anything", encoded); err == nil {
			t.Errorf("encoding %q: expected error", encoded)
		}
	}
}

func TestConfigureArgon2_RejectsInvalid(t *testing.T) {
	if err := ConfigureArgon2(Argon2Config{Memory: 0, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}); err == nil {
		t.Fatalf("expected error for zero memory")
	}
	// Restore defaults for the rest of the package tests.
	if err := ConfigureArgon2(DefaultArgon2Config()); err != nil {
		t.Fatalf("ConfigureArgon2 failed: %v", err)
	}
}
