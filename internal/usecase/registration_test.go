package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/edujoy/auth-service/internal/core/domain"
	"github.com/edujoy/auth-service/internal/infra/security"
)

type registrationFixture struct {
	service  *RegistrationService
	auth     *authFixture
	students *stubStudentRepo
	tokens   *stubTokenRepo
}

func newRegistrationFixture(t *testing.T, seed ...domain.User) *registrationFixture {
	t.Helper()

	auth := newAuthFixture(t, seed...)
	students := newStubStudentRepo()
	tokens := newStubTokenRepo()

	service := NewRegistrationService(
		testConfig(),
		auth.users,
		students,
		tokens,
		auth.service,
		security.DefaultPasswordValidator(),
		auth.events,
		zap.NewNop(),
	).WithClock(auth.clock.Now)

	return &registrationFixture{
		service:  service,
		auth:     auth,
		students: students,
		tokens:   tokens,
	}
}

func TestRegistrationService_Register_OpensSession(t *testing.T) {
	fx := newRegistrationFixture(t)

	result, err := fx.service.Register(context.Background(), RegisterInput{
		Email:    " Bob@Example.com ",
		Password: "C0mplex!Passphrase#2026",
		FullName: "Bob Jones",
		Role:     "parent",
	})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	if result.User.Email != "bob@example.com" {
		t.Errorf("expected normalized email, got %q", result.User.Email)
	}
	if result.User.IsVerified {
		t.Errorf("expected new account to start unverified")
	}
	if result.User.PasswordHash != "" {
		t.Errorf("expected sanitized user")
	}
	if result.Tokens.AccessToken == "" || result.Tokens.RefreshToken == "" {
		t.Fatalf("expected registration to open a session")
	}
	if result.VerificationToken == "" {
		t.Fatalf("expected a verification token")
	}

	// The session is live without a separate login round trip.
	if _, _, err := fx.auth.service.Refresh(context.Background(), result.Tokens.RefreshToken); err != nil {
		t.Fatalf("expected refresh token from registration to redeem: %v", err)
	}

	// Only the hash of the verification token is stored.
	record, err := fx.tokens.GetVerificationByHash(context.Background(), security.HashToken(result.VerificationToken))
	if err != nil {
		t.Fatalf("expected stored verification record: %v", err)
	}
	if record.TokenHash == result.VerificationToken {
		t.Errorf("verification token stored in plaintext")
	}

	if len(fx.auth.events.registered) != 1 {
		t.Fatalf("expected one registration event, got %d", len(fx.auth.events.registered))
	}
}

func TestRegistrationService_Register_DuplicateEmail(t *testing.T) {
	fx := newRegistrationFixture(t, seedUser(t, "C0rrect!Horse9"))

	_, err := fx.service.Register(context.Background(), RegisterInput{
		Email:    "alice@example.com",
		Password: "C0mplex!Passphrase#2026",
		FullName: "Alice Clone",
		Role:     "parent",
	})
	if !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestRegistrationService_Register_RejectsPrivilegedRoles(t *testing.T) {
	fx := newRegistrationFixture(t)

	for _, role := range []string{"admin", "school_admin", "superuser"} {
		_, err := fx.service.Register(context.Background(), RegisterInput{
			Email:    "eve@example.com",
			Password: "C0mplex!Passphrase#2026",
			FullName: "Eve",
			Role:     role,
		})
		if !errors.Is(err, ErrInvalidInput) {
			t.Errorf("role %q: expected ErrInvalidInput, got %v", role, err)
		}
	}
}

func TestRegistrationService_Register_WeakPassword(t *testing.T) {
	fx := newRegistrationFixture(t)

	_, err := fx.service.Register(context.Background(), RegisterInput{
		Email:    "bob@example.com",
		Password: "password123",
		FullName: "Bob Jones",
		Role:     "parent",
	})
	var policyErr *security.PasswordPolicyError
	if !errors.As(err, &policyErr) {
		t.Fatalf("expected PasswordPolicyError, got %v", err)
	}
}

func TestRegistrationService_VerifyEmail(t *testing.T) {
	fx := newRegistrationFixture(t)
	ctx := context.Background()

	result, err := fx.service.Register(ctx, RegisterInput{
		Email:    "bob@example.com",
		Password: "C0mplex!Passphrase#2026",
		FullName: "Bob Jones",
		Role:     "teacher",
	})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	if err := fx.service.VerifyEmail(ctx, result.VerificationToken); err != nil {
		t.Fatalf("VerifyEmail failed: %v", err)
	}
	if got := fx.auth.users.get(result.User.ID); !got.IsVerified {
		t.Fatalf("expected account to be verified")
	}

	// Tokens are single use.
	if err := fx.service.VerifyEmail(ctx, result.VerificationToken); !errors.Is(err, ErrInvalidVerificationToken) {
		t.Fatalf("expected second redeem to fail, got %v", err)
	}
}

func TestRegistrationService_VerifyEmail_ExpiredToken(t *testing.T) {
	fx := newRegistrationFixture(t)
	ctx := context.Background()

	result, err := fx.service.Register(ctx, RegisterInput{
		Email:    "bob@example.com",
		Password: "C0mplex!Passphrase#2026",
		FullName: "Bob Jones",
		Role:     "parent",
	})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	fx.auth.clock.Advance(25 * time.Hour)
	if err := fx.service.VerifyEmail(ctx, result.VerificationToken); !errors.Is(err, ErrInvalidVerificationToken) {
		t.Fatalf("expected expired token to fail, got %v", err)
	}
}

func TestRegistrationService_VerifyEmail_UnknownToken(t *testing.T) {
	fx := newRegistrationFixture(t)

	if err := fx.service.VerifyEmail(context.Background(), "no-such-token"); !errors.Is(err, ErrInvalidVerificationToken) {
		t.Fatalf("expected ErrInvalidVerificationToken, got %v", err)
	}
	if err := fx.service.VerifyEmail(context.Background(), ""); !errors.Is(err, ErrInvalidVerificationToken) {
		t.Fatalf("expected ErrInvalidVerificationToken for empty token, got %v", err)
	}
}

func TestRegistrationService_RegisterChild(t *testing.T) {
	parent := seedUser(t, "C0rrect!Horse9")
	fx := newRegistrationFixture(t, parent)

	result, err := fx.service.RegisterChild(context.Background(), RegisterChildInput{
		ParentID:    parent.ID,
		StudentName: "Maya Smith",
		Grade:       "3",
		Gender:      "female",
		DateOfBirth: time.Date(2018, 6, 2, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("RegisterChild failed: %v", err)
	}

	if result.ChildUser.Role != domain.RoleStudent {
		t.Errorf("expected student role, got %q", result.ChildUser.Role)
	}
	if !result.ChildUser.IsVerified {
		t.Errorf("expected managed child account to be pre-verified")
	}
	if result.ChildUser.PasswordHash != "" {
		t.Errorf("expected sanitized child user")
	}
	if !strings.HasSuffix(result.ChildUser.Email, "@children.edujoy.local") {
		t.Errorf("expected synthesized child email, got %q", result.ChildUser.Email)
	}
	if result.Student.ParentID != parent.ID {
		t.Errorf("expected student linked to parent, got %q", result.Student.ParentID)
	}
	if result.Student.XP != 0 {
		t.Errorf("expected new student to start at zero XP, got %d", result.Student.XP)
	}

	students, err := fx.students.ListByParent(context.Background(), parent.ID)
	if err != nil {
		t.Fatalf("ListByParent failed: %v", err)
	}
	if len(students) != 1 {
		t.Fatalf("expected one stored student, got %d", len(students))
	}

	if len(fx.auth.events.childRegistered) != 1 {
		t.Fatalf("expected one child registration event, got %d", len(fx.auth.events.childRegistered))
	}
}

func TestRegistrationService_RegisterChild_RequiresParentRole(t *testing.T) {
	student := seedUser(t, "C0rrect!Horse9")
	student.ID = "student-1"
	student.Role = domain.RoleStudent
	fx := newRegistrationFixture(t, student)

	_, err := fx.service.RegisterChild(context.Background(), RegisterChildInput{
		ParentID:    "student-1",
		StudentName: "Maya",
	})
	if !errors.Is(err, ErrNotParent) {
		t.Fatalf("expected ErrNotParent, got %v", err)
	}

	_, err = fx.service.RegisterChild(context.Background(), RegisterChildInput{
		ParentID:    "missing",
		StudentName: "Maya",
	})
	if !errors.Is(err, ErrNotParent) {
		t.Fatalf("expected ErrNotParent for unknown parent, got %v", err)
	}
}
