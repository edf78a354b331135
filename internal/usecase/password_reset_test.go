package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/edujoy/auth-service/internal/core/domain"
	"github.com/edujoy/auth-service/internal/infra/security"
)

type resetFixture struct {
	service *PasswordResetService
	auth    *authFixture
	tokens  *stubTokenRepo
}

func newResetFixture(t *testing.T, seed ...domain.User) *resetFixture {
	t.Helper()

	auth := newAuthFixture(t, seed...)
	tokens := newStubTokenRepo()

	service := NewPasswordResetService(
		auth.users,
		tokens,
		auth.ledger,
		security.DefaultPasswordValidator(),
		auth.events,
		zap.NewNop(),
	).WithClock(auth.clock.Now)

	return &resetFixture{service: service, auth: auth, tokens: tokens}
}

func TestPasswordResetService_RequestReset(t *testing.T) {
	fx := newResetFixture(t, seedUser(t, "C0rrect!Horse9"))

	raw, err := fx.service.RequestReset(context.Background(), " Alice@Example.com ", DeviceInfo{})
	if err != nil {
		t.Fatalf("RequestReset failed: %v", err)
	}
	if raw == "" {
		t.Fatalf("expected a reset token for a known account")
	}

	record, err := fx.tokens.GetPasswordResetByHash(context.Background(), security.HashToken(raw))
	if err != nil {
		t.Fatalf("expected stored reset record: %v", err)
	}
	if record.UserID != "user-1" {
		t.Errorf("expected record for user-1, got %q", record.UserID)
	}
	if record.TokenHash == raw {
		t.Errorf("reset token stored in plaintext")
	}
}

func TestPasswordResetService_RequestReset_UnknownEmailIsSilent(t *testing.T) {
	fx := newResetFixture(t)

	raw, err := fx.service.RequestReset(context.Background(), "nobody@example.com", DeviceInfo{})
	if err != nil {
		t.Fatalf("expected unknown email to be silent, got %v", err)
	}
	if raw != "" {
		t.Fatalf("expected no token for unknown email")
	}
}

func TestPasswordResetService_ResetPassword_RevokesSessions(t *testing.T) {
	fx := newResetFixture(t, seedUser(t, "C0rrect!Horse9"))
	ctx := context.Background()

	// Two live sessions before the reset.
	first, err := fx.auth.service.Login(ctx, LoginInput{Email: "alice@example.com", Password: "C0rrect!Horse9"})
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	fx.auth.clock.Advance(time.Second)
	if _, err := fx.auth.service.Login(ctx, LoginInput{Email: "alice@example.com", Password: "C0rrect!Horse9"}); err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	raw, err := fx.service.RequestReset(ctx, "alice@example.com", DeviceInfo{})
	if err != nil {
		t.Fatalf("RequestReset failed: %v", err)
	}

	if err := fx.service.ResetPassword(ctx, raw, "New!Unrelated#Pass42"); err != nil {
		t.Fatalf("ResetPassword failed: %v", err)
	}

	// The old password no longer works, the new one does.
	if _, err := fx.auth.service.Login(ctx, LoginInput{Email: "alice@example.com", Password: "C0rrect!Horse9"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected old password to fail, got %v", err)
	}
	if _, err := fx.auth.service.Login(ctx, LoginInput{Email: "alice@example.com", Password: "New!Unrelated#Pass42"}); err != nil {
		t.Fatalf("expected new password to log in, got %v", err)
	}

	// Pre-reset refresh tokens are dead.
	if _, _, err := fx.auth.service.Refresh(ctx, first.Tokens.RefreshToken); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected pre-reset session to be revoked, got %v", err)
	}

	if len(fx.auth.events.passwordChanged) != 1 {
		t.Fatalf("expected one password changed event, got %d", len(fx.auth.events.passwordChanged))
	}
	if got := fx.auth.events.passwordChanged[0].SessionsRevoked; got != 2 {
		t.Errorf("expected 2 revoked sessions in event, got %d", got)
	}
}

func TestPasswordResetService_ResetPassword_ClearsLockout(t *testing.T) {
	fx := newResetFixture(t, seedUser(t, "C0rrect!Horse9"))
	ctx := context.Background()

	// Lock the account with repeated failures. The final attempt trips
	// the threshold and answers as locked.
	for i := 0; i < 4; i++ {
		if _, err := fx.auth.service.Login(ctx, LoginInput{Email: "alice@example.com", Password: "wrong"}); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("attempt %d: expected ErrInvalidCredentials, got %v", i+1, err)
		}
	}
	if _, err := fx.auth.service.Login(ctx, LoginInput{Email: "alice@example.com", Password: "wrong"}); !errors.Is(err, ErrAccountLocked) {
		t.Fatalf("expected ErrAccountLocked on fifth failure, got %v", err)
	}
	if got := fx.auth.users.get("user-1"); got.LockUntil == nil {
		t.Fatalf("expected account to be locked")
	}

	raw, err := fx.service.RequestReset(ctx, "alice@example.com", DeviceInfo{})
	if err != nil {
		t.Fatalf("RequestReset failed: %v", err)
	}
	if err := fx.service.ResetPassword(ctx, raw, "New!Unrelated#Pass42"); err != nil {
		t.Fatalf("ResetPassword failed: %v", err)
	}

	if got := fx.auth.users.get("user-1"); got.LoginAttempts != 0 || got.LockUntil != nil {
		t.Fatalf("expected reset to clear lockout, got attempts=%d lock=%v", got.LoginAttempts, got.LockUntil)
	}

	if _, err := fx.auth.service.Login(ctx, LoginInput{Email: "alice@example.com", Password: "New!Unrelated#Pass42"}); err != nil {
		t.Fatalf("expected login after reset, got %v", err)
	}
}

func TestPasswordResetService_ResetPassword_SingleUse(t *testing.T) {
	fx := newResetFixture(t, seedUser(t, "C0rrect!Horse9"))
	ctx := context.Background()

	raw, err := fx.service.RequestReset(ctx, "alice@example.com", DeviceInfo{})
	if err != nil {
		t.Fatalf("RequestReset failed: %v", err)
	}

	if err := fx.service.ResetPassword(ctx, raw, "New!Unrelated#Pass42"); err != nil {
		t.Fatalf("ResetPassword failed: %v", err)
	}
	if err := fx.service.ResetPassword(ctx, raw, "Another!Fresh#Pass77"); !errors.Is(err, ErrInvalidResetToken) {
		t.Fatalf("expected second redeem to fail, got %v", err)
	}
}

func TestPasswordResetService_ResetPassword_ExpiredToken(t *testing.T) {
	fx := newResetFixture(t, seedUser(t, "C0rrect!Horse9"))
	ctx := context.Background()

	raw, err := fx.service.RequestReset(ctx, "alice@example.com", DeviceInfo{})
	if err != nil {
		t.Fatalf("RequestReset failed: %v", err)
	}

	fx.auth.clock.Advance(61 * time.Minute)
	if err := fx.service.ResetPassword(ctx, raw, "New!Unrelated#Pass42"); !errors.Is(err, ErrInvalidResetToken) {
		t.Fatalf("expected expired token to fail, got %v", err)
	}
}

func TestPasswordResetService_ResetPassword_BadInputs(t *testing.T) {
	fx := newResetFixture(t, seedUser(t, "C0rrect!Horse9"))
	ctx := context.Background()

	if err := fx.service.ResetPassword(ctx, "", "New!Unrelated#Pass42"); !errors.Is(err, ErrInvalidResetToken) {
		t.Fatalf("expected ErrInvalidResetToken for empty token, got %v", err)
	}
	if err := fx.service.ResetPassword(ctx, "unknown", "New!Unrelated#Pass42"); !errors.Is(err, ErrInvalidResetToken) {
		t.Fatalf("expected ErrInvalidResetToken for unknown token, got %v", err)
	}

	raw, err := fx.service.RequestReset(ctx, "alice@example.com", DeviceInfo{})
	if err != nil {
		t.Fatalf("RequestReset failed: %v", err)
	}
	var policyErr *security.PasswordPolicyError
	if err := fx.service.ResetPassword(ctx, raw, "weak"); !errors.As(err, &policyErr) {
		t.Fatalf("expected PasswordPolicyError, got %v", err)
	}
	// A rejected password does not consume the token.
	if err := fx.service.ResetPassword(ctx, raw, "New!Unrelated#Pass42"); err != nil {
		t.Fatalf("expected token to survive a rejected password, got %v", err)
	}
}
