package port

import (
	"context"

	"github.com/edujoy/auth-service/internal/core/domain"
)

// StudentRepository persists managed child profiles.
type StudentRepository interface {
	Create(ctx context.Context, student domain.Student) error
	GetByUserID(ctx context.Context, userID string) (*domain.Student, error)
	ListByParent(ctx context.Context, parentID string) ([]domain.Student, error)
}
