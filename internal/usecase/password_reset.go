package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	uuid "github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/edujoy/auth-service/internal/core/domain"
	"github.com/edujoy/auth-service/internal/core/port"
	"github.com/edujoy/auth-service/internal/infra/logger"
	"github.com/edujoy/auth-service/internal/infra/security"
	"github.com/edujoy/auth-service/internal/repository"
)

const passwordResetTokenTTL = time.Hour

// ErrInvalidResetToken covers unknown, expired, and already-used reset
// tokens.
var ErrInvalidResetToken = errors.New("invalid reset token")

// PasswordResetService handles the forgot/reset flow. A completed reset
// revokes every outstanding session for the account.
type PasswordResetService struct {
	users     port.UserRepository
	tokens    port.TokenRepository
	ledger    port.RefreshTokenLedger
	validator *security.PasswordValidator
	events    port.EventPublisher
	log       *zap.Logger
	now       func() time.Time
}

// NewPasswordResetService constructs a PasswordResetService instance.
func NewPasswordResetService(
	users port.UserRepository,
	tokens port.TokenRepository,
	ledger port.RefreshTokenLedger,
	validator *security.PasswordValidator,
	events port.EventPublisher,
	log *zap.Logger,
) *PasswordResetService {
	return &PasswordResetService{
		users:     users,
		tokens:    tokens,
		ledger:    ledger,
		validator: validator,
		events:    events,
		log:       log,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the service clock for deterministic tests.
func (s *PasswordResetService) WithClock(clock func() time.Time) *PasswordResetService {
	if clock != nil {
		s.now = clock
	}
	return s
}

// RequestReset issues a reset token for the account if it exists. Unknown
// emails produce no token and no error; the caller answers identically in
// both cases so the endpoint cannot be used to probe for accounts. The raw
// token is returned for delivery and never stored.
func (s *PasswordResetService) RequestReset(ctx context.Context, email string, device DeviceInfo) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", nil
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.log.Info("password reset requested for unknown email",
				zap.String("email", logger.MaskEmail(email)),
			)
			return "", nil
		}
		return "", fmt.Errorf("lookup user: %w", err)
	}

	raw, err := security.GenerateSecureToken(32)
	if err != nil {
		return "", fmt.Errorf("generate reset token: %w", err)
	}

	now := s.now()
	record := domain.PasswordResetToken{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		TokenHash: security.HashToken(raw),
		IP:        device.IP,
		UserAgent: device.UserAgent,
		CreatedAt: now,
		ExpiresAt: now.Add(passwordResetTokenTTL),
	}
	if err := s.tokens.CreatePasswordReset(ctx, record); err != nil {
		return "", fmt.Errorf("store reset token: %w", err)
	}

	s.log.Info("password reset requested",
		zap.String("user_id", user.ID),
		zap.String("email", logger.MaskEmail(user.Email)),
	)

	return raw, nil
}

// ResetPassword redeems a reset token, replaces the password, clears the
// lockout state, and revokes all sessions.
func (s *PasswordResetService) ResetPassword(ctx context.Context, token, newPassword string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrInvalidResetToken
	}

	record, err := s.tokens.GetPasswordResetByHash(ctx, security.HashToken(token))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrInvalidResetToken
		}
		return fmt.Errorf("lookup reset token: %w", err)
	}

	now := s.now()
	if record.UsedAt != nil || record.IsExpired(now) {
		return ErrInvalidResetToken
	}

	if err := s.validator.Validate(newPassword); err != nil {
		return err
	}

	passwordHash, err := security.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	if err := s.tokens.ConsumePasswordReset(ctx, record.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrInvalidResetToken
		}
		return fmt.Errorf("consume reset token: %w", err)
	}

	if err := s.users.UpdatePassword(ctx, record.UserID, passwordHash, now); err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	if err := s.users.UpdateLoginAttempts(ctx, record.UserID, 0, nil); err != nil {
		return fmt.Errorf("reset login attempts: %w", err)
	}

	// Every outstanding refresh token dies with the old password.
	removed, err := s.ledger.RemoveAll(ctx, record.UserID)
	if err != nil {
		return fmt.Errorf("revoke sessions: %w", err)
	}

	if err := s.events.PublishPasswordChanged(ctx, domain.PasswordChangedEvent{
		EventID:         uuid.NewString(),
		UserID:          record.UserID,
		ChangedAt:       now,
		SessionsRevoked: removed,
	}); err != nil {
		s.log.Warn("publish password changed event failed",
			zap.String("user_id", record.UserID),
			zap.Error(err),
		)
	}

	s.log.Info("password reset completed",
		zap.String("user_id", record.UserID),
		zap.Int("sessions_revoked", removed),
	)

	return nil
}
