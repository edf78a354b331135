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
	"github.com/edujoy/auth-service/internal/infra/config"
	"github.com/edujoy/auth-service/internal/infra/logger"
	"github.com/edujoy/auth-service/internal/infra/security"
	"github.com/edujoy/auth-service/internal/repository"
)

var (
	// ErrInvalidCredentials covers both unknown email and wrong password.
	// The two cases are deliberately indistinguishable to the caller.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountLocked indicates the lockout window is still open.
	ErrAccountLocked = errors.New("account locked")
	// ErrAccountDeactivated indicates the account was disabled.
	ErrAccountDeactivated = errors.New("account deactivated")
	// ErrInvalidRefreshToken covers malformed, expired, and revoked refresh
	// tokens alike.
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	// ErrInvalidAccessToken indicates the access token is malformed or its
	// signature failed.
	ErrInvalidAccessToken = errors.New("invalid access token")
	// ErrExpiredAccessToken indicates the access token verified but elapsed.
	ErrExpiredAccessToken = errors.New("access token expired")
)

// DeviceInfo carries the request metadata stored alongside refresh tokens.
type DeviceInfo struct {
	UserAgent *string
	IP        *string
}

// LoginInput is the credential payload for Login.
type LoginInput struct {
	Email      string
	Password   string
	RememberMe bool
	Device     DeviceInfo
}

// SessionTokens is a freshly minted access/refresh pair.
type SessionTokens struct {
	AccessToken  string
	RefreshToken string
}

// LoginResult carries everything the transport layer needs to answer a
// successful login.
type LoginResult struct {
	User         domain.User
	Tokens       SessionTokens
	CookieMaxAge time.Duration
}

// AuthService coordinates the session lifecycle: login, refresh, logout, and
// per-request authorization.
type AuthService struct {
	cfg    *config.AppConfig
	users  port.UserRepository
	ledger port.RefreshTokenLedger
	issuer *security.TokenIssuer
	events port.EventPublisher
	log    *zap.Logger
	now    func() time.Time
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(
	cfg *config.AppConfig,
	users port.UserRepository,
	ledger port.RefreshTokenLedger,
	issuer *security.TokenIssuer,
	events port.EventPublisher,
	log *zap.Logger,
) *AuthService {
	return &AuthService{
		cfg:    cfg,
		users:  users,
		ledger: ledger,
		issuer: issuer,
		events: events,
		log:    log,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the service clock for deterministic tests.
func (s *AuthService) WithClock(clock func() time.Time) *AuthService {
	if clock != nil {
		s.now = clock
	}
	return s
}

// Login validates credentials and opens a session. Failed attempts persist
// immediately; the attempt that reaches the limit sets the lock deadline in
// the same write.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" || input.Password == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	now := s.now()
	if user.IsLocked(now) {
		return nil, ErrAccountLocked
	}
	if !user.IsActive {
		return nil, ErrAccountDeactivated
	}

	ok, err := security.VerifyPassword(input.Password, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		locked, err := s.recordFailedAttempt(ctx, user, now)
		if err != nil {
			return nil, err
		}
		// The attempt that trips the threshold already answers as locked.
		if locked {
			return nil, ErrAccountLocked
		}
		return nil, ErrInvalidCredentials
	}

	if err := s.users.RecordLogin(ctx, user.ID, now); err != nil {
		return nil, fmt.Errorf("record login: %w", err)
	}

	tokens, err := s.StartSession(ctx, *user, input.Device)
	if err != nil {
		return nil, err
	}

	result := &LoginResult{
		User:         user.Sanitized(),
		Tokens:       *tokens,
		CookieMaxAge: s.cookieMaxAge(input.RememberMe),
	}
	result.User.LoginAttempts = 0
	result.User.LockUntil = nil
	loginAt := now
	result.User.LastLogin = &loginAt

	s.log.Info("user logged in",
		zap.String("user_id", user.ID),
		zap.String("email", logger.MaskEmail(user.Email)),
	)

	return result, nil
}

// StartSession mints a token pair and records the refresh token in the
// ledger, evicting the oldest entries when the per-user cap is hit.
func (s *AuthService) StartSession(ctx context.Context, user domain.User, device DeviceInfo) (*SessionTokens, error) {
	accessToken, err := s.issuer.IssueAccessToken(user)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}

	refreshToken, err := s.issuer.IssueRefreshToken(user.ID)
	if err != nil {
		return nil, fmt.Errorf("issue refresh token: %w", err)
	}

	now := s.now()
	entry := domain.RefreshTokenEntry{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		TokenHash: security.HashToken(refreshToken),
		UserAgent: device.UserAgent,
		IP:        device.IP,
		CreatedAt: now,
		ExpiresAt: now.Add(s.issuer.RefreshTokenTTL()),
	}

	if err := s.storeWithCap(ctx, entry); err != nil {
		return nil, err
	}

	return &SessionTokens{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

// storeWithCap appends the entry after evicting down to cap-1. The
// read-then-write span is not guarded by optimistic locking; two concurrent
// logins near the cap can transiently exceed it until the next insert or
// prune reconciles.
func (s *AuthService) storeWithCap(ctx context.Context, entry domain.RefreshTokenEntry) error {
	limit := s.cfg.Ledger.MaxEntriesPerUser
	if limit <= 0 {
		limit = 5
	}

	entries, err := s.ledger.ListByUser(ctx, entry.UserID)
	if err != nil {
		return fmt.Errorf("list refresh tokens: %w", err)
	}

	if len(entries) >= limit {
		// Entries arrive oldest first; keep the cap-1 newest.
		excess := entries[:len(entries)-(limit-1)]
		ids := make([]string, 0, len(excess))
		for _, e := range excess {
			ids = append(ids, e.ID)
		}
		if err := s.ledger.RemoveByIDs(ctx, ids); err != nil {
			return fmt.Errorf("evict refresh tokens: %w", err)
		}
		s.log.Debug("evicted refresh tokens at cap",
			zap.String("user_id", entry.UserID),
			zap.Int("evicted", len(ids)),
		)
	}

	if err := s.ledger.Append(ctx, entry); err != nil {
		return fmt.Errorf("append refresh token: %w", err)
	}

	return nil
}

// recordFailedAttempt increments the counter and reports whether this
// attempt crossed the lockout threshold.
func (s *AuthService) recordFailedAttempt(ctx context.Context, user *domain.User, now time.Time) (bool, error) {
	maxAttempts := s.cfg.Lockout.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 5
	}

	attempts := user.LoginAttempts + 1
	lockUntil := user.LockUntil
	locked := false
	if attempts >= maxAttempts && !user.IsLocked(now) {
		deadline := now.Add(s.cfg.Lockout.LockDuration)
		lockUntil = &deadline
		locked = true
		s.log.Warn("account locked after repeated failures",
			zap.String("user_id", user.ID),
			zap.Int("attempts", attempts),
			zap.Time("lock_until", deadline),
		)
	}

	if err := s.users.UpdateLoginAttempts(ctx, user.ID, attempts, lockUntil); err != nil {
		return false, fmt.Errorf("update login attempts: %w", err)
	}

	return locked, nil
}

// Refresh redeems a refresh token for a new access token. The refresh token
// itself is not rotated; it stays valid until logout, eviction, or expiry.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (string, *domain.User, error) {
	claims, err := s.issuer.VerifyRefreshToken(refreshToken)
	if err != nil {
		return "", nil, ErrInvalidRefreshToken
	}

	// Signature validity alone is not enough: the token must still be
	// listed in the ledger, otherwise it was revoked.
	present, err := s.ledger.Contains(ctx, claims.UserID, security.HashToken(refreshToken))
	if err != nil {
		return "", nil, fmt.Errorf("check refresh token: %w", err)
	}
	if !present {
		return "", nil, ErrInvalidRefreshToken
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", nil, ErrInvalidRefreshToken
		}
		return "", nil, fmt.Errorf("lookup user: %w", err)
	}

	if !user.IsActive {
		return "", nil, ErrAccountDeactivated
	}
	if user.IsLocked(s.now()) {
		return "", nil, ErrAccountLocked
	}

	accessToken, err := s.issuer.IssueAccessToken(*user)
	if err != nil {
		return "", nil, fmt.Errorf("issue access token: %w", err)
	}

	sanitized := user.Sanitized()
	return accessToken, &sanitized, nil
}

// Logout removes the presented refresh token from the ledger. Unknown or
// already-removed tokens are not an error; logout is idempotent.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	if strings.TrimSpace(refreshToken) == "" {
		return nil
	}

	claims, err := s.issuer.VerifyRefreshToken(refreshToken)
	if err != nil {
		return nil
	}

	if err := s.ledger.Remove(ctx, claims.UserID, security.HashToken(refreshToken)); err != nil {
		return fmt.Errorf("remove refresh token: %w", err)
	}

	s.log.Info("user logged out", zap.String("user_id", claims.UserID))
	return nil
}

// LogoutAll empties the user's ledger, ending every session at once.
func (s *AuthService) LogoutAll(ctx context.Context, userID string, device DeviceInfo) (int, error) {
	removed, err := s.ledger.RemoveAll(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("remove all refresh tokens: %w", err)
	}

	now := s.now()
	if err := s.events.PublishSessionRevoked(ctx, domain.SessionRevokedEvent{
		EventID:        uuid.NewString(),
		UserID:         userID,
		RevokedAt:      now,
		Reason:         "logout_all",
		EntriesRemoved: removed,
		IPAddress:      device.IP,
	}); err != nil {
		s.log.Warn("publish session revoked event failed",
			zap.String("user_id", userID),
			zap.Error(err),
		)
	}

	s.log.Info("all sessions revoked",
		zap.String("user_id", userID),
		zap.Int("removed", removed),
	)

	return removed, nil
}

// Authorize verifies an access token and re-checks the account's live state,
// so a deactivated or locked account is rejected even while its token is
// still cryptographically valid.
func (s *AuthService) Authorize(ctx context.Context, accessToken string) (*domain.User, *security.AccessTokenClaims, error) {
	claims, err := s.issuer.VerifyAccessToken(accessToken)
	if err != nil {
		if errors.Is(err, security.ErrExpiredToken) {
			return nil, nil, ErrExpiredAccessToken
		}
		return nil, nil, ErrInvalidAccessToken
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, ErrInvalidAccessToken
		}
		return nil, nil, fmt.Errorf("lookup user: %w", err)
	}

	if !user.IsActive {
		return nil, nil, ErrAccountDeactivated
	}
	if user.IsLocked(s.now()) {
		return nil, nil, ErrAccountLocked
	}

	sanitized := user.Sanitized()
	return &sanitized, claims, nil
}

// PruneExpiredTokens sweeps ledger entries whose recorded expiry has passed.
// Entries are stored as hashes, so expiry is tracked as a timestamp instead
// of re-verifying signatures.
func (s *AuthService) PruneExpiredTokens(ctx context.Context) (int, error) {
	removed, err := s.ledger.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("prune refresh tokens: %w", err)
	}

	if removed > 0 {
		s.log.Info("pruned expired refresh tokens", zap.Int("removed", removed))
	}

	return removed, nil
}

func (s *AuthService) cookieMaxAge(rememberMe bool) time.Duration {
	if rememberMe && s.cfg.Cookie.RememberMeMaxAge > 0 {
		return s.cfg.Cookie.RememberMeMaxAge
	}
	if s.cfg.Cookie.MaxAge > 0 {
		return s.cfg.Cookie.MaxAge
	}
	return 7 * 24 * time.Hour
}
