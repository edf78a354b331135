package port

import (
	"context"
	"time"

	"github.com/edujoy/auth-service/internal/core/domain"
)

// UserRepository exposes persistence behavior for users. Lockout counters and
// the lock deadline persist immediately on every mutation so concurrent
// failed logins against the same account are never under-counted.
type UserRepository interface {
	Create(ctx context.Context, user domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	UpdateLoginAttempts(ctx context.Context, id string, attempts int, lockUntil *time.Time) error
	RecordLogin(ctx context.Context, id string, at time.Time) error
	UpdatePassword(ctx context.Context, id string, passwordHash string, changedAt time.Time) error
	SetVerified(ctx context.Context, id string) error
}
