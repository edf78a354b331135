package security

import (
	"errors"
	"testing"
)

func TestDefaultPasswordValidator_AcceptsStrongPassword(t *testing.T) {
	validator := DefaultPasswordValidator()

	if err := validator.Validate("C0mplex!Passphrase#2026"); err != nil {
		t.Fatalf("expected strong password to pass, got %v", err)
	}
}

func TestDefaultPasswordValidator_RejectsWeakPasswords(t *testing.T) {
	validator := DefaultPasswordValidator()

	cases := []struct {
		name     string
		password string
	}{
		{"too short", "Ab1!"},
		{"single class", "lowercaseonlyletters"},
		{"common password", "password123"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := validator.Validate(tc.password)
			if err == nil {
				t.Fatalf("expected %q to be rejected", tc.password)
			}
			var policyErr *PasswordPolicyError
			if !errors.As(err, &policyErr) {
				t.Fatalf("expected PasswordPolicyError, got %T: %v", err, err)
			}
			if policyErr.Code == "" {
				t.Errorf("expected a stable policy code")
			}
		})
	}
}

func TestRequireDifferentFrom(t *testing.T) {
	rule := RequireDifferentFrom("old-password")

	if err := rule.Validate("old-password"); err == nil {
		t.Fatalf("expected reuse of the compared value to fail")
	}
	if err := rule.Validate("another-password"); err != nil {
		t.Fatalf("expected different value to pass, got %v", err)
	}
}

func TestRequirePasswordStrengthRule_UsesUserInputs(t *testing.T) {
	rule := RequirePasswordStrengthRule(3, "alice@example.com", "Alice Smith")

	if err := rule.Validate("alice@example.com1"); err == nil {
		t.Fatalf("expected password built from user inputs to be rejected")
	}
	if err := rule.Validate("plum-Teapot!DriftWood42"); err != nil {
		t.Fatalf("expected unrelated passphrase to pass, got %v", err)
	}
}
