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

const (
	verificationTokenTTL = 24 * time.Hour
	childEmailDomain     = "children.edujoy.local"
)

var (
	// ErrEmailTaken indicates the email is already registered.
	ErrEmailTaken = errors.New("email already registered")
	// ErrInvalidInput indicates a malformed registration field.
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvalidVerificationToken covers unknown, expired, and already-used
	// verification tokens.
	ErrInvalidVerificationToken = errors.New("invalid verification token")
	// ErrNotParent indicates the acting account cannot own child profiles.
	ErrNotParent = errors.New("account is not a parent")
)

// RegisterInput is the self-service registration payload.
type RegisterInput struct {
	Email    string
	Password string
	FullName string
	Role     string
	Device   DeviceInfo
}

// RegisterResult is a newly created account plus its opening session.
// Registration logs the user straight in; no separate login round trip.
type RegisterResult struct {
	User              domain.User
	Tokens            SessionTokens
	CookieMaxAge      time.Duration
	VerificationToken string
}

// RegisterChildInput describes a parent-managed child account.
type RegisterChildInput struct {
	ParentID    string
	StudentName string
	Grade       string
	Gender      string
	DateOfBirth time.Time
}

// RegisterChildResult is the created student profile and its backing account.
type RegisterChildResult struct {
	Student   domain.Student
	ChildUser domain.User
}

// RegistrationService handles account creation and email verification.
type RegistrationService struct {
	cfg       *config.AppConfig
	users     port.UserRepository
	students  port.StudentRepository
	tokens    port.TokenRepository
	auth      *AuthService
	validator *security.PasswordValidator
	events    port.EventPublisher
	log       *zap.Logger
	now       func() time.Time
}

// NewRegistrationService constructs a RegistrationService instance.
func NewRegistrationService(
	cfg *config.AppConfig,
	users port.UserRepository,
	students port.StudentRepository,
	tokens port.TokenRepository,
	auth *AuthService,
	validator *security.PasswordValidator,
	events port.EventPublisher,
	log *zap.Logger,
) *RegistrationService {
	return &RegistrationService{
		cfg:       cfg,
		users:     users,
		students:  students,
		tokens:    tokens,
		auth:      auth,
		validator: validator,
		events:    events,
		log:       log,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the service clock for deterministic tests.
func (s *RegistrationService) WithClock(clock func() time.Time) *RegistrationService {
	if clock != nil {
		s.now = clock
	}
	return s
}

// Register creates an unverified account and opens its first session.
func (s *RegistrationService) Register(ctx context.Context, input RegisterInput) (*RegisterResult, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	fullName := strings.TrimSpace(input.FullName)
	if email == "" || fullName == "" {
		return nil, fmt.Errorf("%w: email and full name are required", ErrInvalidInput)
	}

	role, err := domain.ParseRole(input.Role)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	// Privileged roles are provisioned out of band, never self-registered.
	if role == domain.RoleAdmin || role == domain.RoleSchoolAdmin {
		return nil, fmt.Errorf("%w: role %q cannot self-register", ErrInvalidInput, role)
	}

	if err := s.validator.Validate(input.Password); err != nil {
		return nil, err
	}

	passwordHash, err := security.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.now()
	user := domain.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: passwordHash,
		FullName:     fullName,
		Role:         role,
		IsVerified:   false,
		IsActive:     true,
		CreatedAt:    now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	verificationToken, err := s.issueVerificationToken(ctx, user.ID, now)
	if err != nil {
		return nil, err
	}

	if err := s.events.PublishUserRegistered(ctx, domain.UserRegisteredEvent{
		EventID:      uuid.NewString(),
		UserID:       user.ID,
		Email:        user.Email,
		FullName:     user.FullName,
		Role:         user.Role,
		RegisteredAt: now,
	}); err != nil {
		s.log.Warn("publish user registered event failed",
			zap.String("user_id", user.ID),
			zap.Error(err),
		)
	}

	tokens, err := s.auth.StartSession(ctx, user, input.Device)
	if err != nil {
		return nil, err
	}

	s.log.Info("user registered",
		zap.String("user_id", user.ID),
		zap.String("email", logger.MaskEmail(user.Email)),
		zap.String("role", role.String()),
	)

	return &RegisterResult{
		User:              user.Sanitized(),
		Tokens:            *tokens,
		CookieMaxAge:      s.auth.cookieMaxAge(false),
		VerificationToken: verificationToken,
	}, nil
}

func (s *RegistrationService) issueVerificationToken(ctx context.Context, userID string, now time.Time) (string, error) {
	raw, err := security.GenerateSecureToken(32)
	if err != nil {
		return "", fmt.Errorf("generate verification token: %w", err)
	}

	record := domain.VerificationToken{
		ID:        uuid.NewString(),
		UserID:    userID,
		TokenHash: security.HashToken(raw),
		CreatedAt: now,
		ExpiresAt: now.Add(verificationTokenTTL),
	}
	if err := s.tokens.CreateVerification(ctx, record); err != nil {
		return "", fmt.Errorf("store verification token: %w", err)
	}

	return raw, nil
}

// VerifyEmail redeems a verification token and marks the account verified.
// Tokens are single-use; a second redeem fails the same way an unknown token
// does.
func (s *RegistrationService) VerifyEmail(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrInvalidVerificationToken
	}

	record, err := s.tokens.GetVerificationByHash(ctx, security.HashToken(token))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrInvalidVerificationToken
		}
		return fmt.Errorf("lookup verification token: %w", err)
	}

	now := s.now()
	if record.UsedAt != nil || record.IsExpired(now) {
		return ErrInvalidVerificationToken
	}

	if err := s.tokens.ConsumeVerification(ctx, record.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrInvalidVerificationToken
		}
		return fmt.Errorf("consume verification token: %w", err)
	}

	if err := s.users.SetVerified(ctx, record.UserID); err != nil {
		return fmt.Errorf("set verified: %w", err)
	}

	s.log.Info("email verified", zap.String("user_id", record.UserID))
	return nil
}

// RegisterChild creates a managed child account under a parent. The child
// user carries a synthesized local email and a random password no one knows;
// it never authenticates on its own, so it is born pre-verified.
func (s *RegistrationService) RegisterChild(ctx context.Context, input RegisterChildInput) (*RegisterChildResult, error) {
	name := strings.TrimSpace(input.StudentName)
	if name == "" {
		return nil, fmt.Errorf("%w: student name is required", ErrInvalidInput)
	}

	parent, err := s.users.GetByID(ctx, input.ParentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotParent
		}
		return nil, fmt.Errorf("lookup parent: %w", err)
	}
	if parent.Role != domain.RoleParent {
		return nil, ErrNotParent
	}

	// The password is generated and immediately hashed; the plaintext is
	// discarded, leaving the account with no redeemable credential.
	throwaway, err := security.GenerateSecureToken(32)
	if err != nil {
		return nil, fmt.Errorf("generate child password: %w", err)
	}
	passwordHash, err := security.HashPassword(throwaway)
	if err != nil {
		return nil, fmt.Errorf("hash child password: %w", err)
	}

	now := s.now()
	childUser := domain.User{
		ID:           uuid.NewString(),
		Email:        fmt.Sprintf("child-%s@%s", uuid.NewString(), childEmailDomain),
		PasswordHash: passwordHash,
		FullName:     name,
		Role:         domain.RoleStudent,
		IsVerified:   true,
		IsActive:     true,
		CreatedAt:    now,
	}

	if err := s.users.Create(ctx, childUser); err != nil {
		return nil, fmt.Errorf("create child user: %w", err)
	}

	student := domain.Student{
		ID:          uuid.NewString(),
		UserID:      childUser.ID,
		ParentID:    parent.ID,
		Name:        name,
		Grade:       strings.TrimSpace(input.Grade),
		Gender:      strings.TrimSpace(input.Gender),
		DateOfBirth: input.DateOfBirth,
		XP:          0,
		CreatedAt:   now,
	}

	if err := s.students.Create(ctx, student); err != nil {
		return nil, fmt.Errorf("create student profile: %w", err)
	}

	if err := s.events.PublishChildRegistered(ctx, domain.ChildRegisteredEvent{
		EventID:      uuid.NewString(),
		StudentID:    student.ID,
		ChildUserID:  childUser.ID,
		ParentID:     parent.ID,
		RegisteredAt: now,
	}); err != nil {
		s.log.Warn("publish child registered event failed",
			zap.String("student_id", student.ID),
			zap.Error(err),
		)
	}

	s.log.Info("child account created",
		zap.String("student_id", student.ID),
		zap.String("parent_id", parent.ID),
	)

	return &RegisterChildResult{
		Student:   student,
		ChildUser: childUser.Sanitized(),
	}, nil
}
