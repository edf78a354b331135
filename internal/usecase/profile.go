package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/edujoy/auth-service/internal/core/domain"
	"github.com/edujoy/auth-service/internal/core/port"
	"github.com/edujoy/auth-service/internal/repository"
)

// ErrProfileNotFound indicates the requested account does not exist.
var ErrProfileNotFound = errors.New("profile not found")

// Profile is an account together with its student profile, when the account
// is a managed child.
type Profile struct {
	User    domain.User
	Student *domain.Student
}

// ChildAccount pairs a student profile with its backing user record.
type ChildAccount struct {
	Student domain.Student
	User    domain.User
}

// ProfileService serves account and child profile reads.
type ProfileService struct {
	users    port.UserRepository
	students port.StudentRepository
}

// NewProfileService constructs a ProfileService instance.
func NewProfileService(users port.UserRepository, students port.StudentRepository) *ProfileService {
	return &ProfileService{users: users, students: students}
}

// GetProfile returns the account and, for student accounts, the attached
// student profile.
func (s *ProfileService) GetProfile(ctx context.Context, userID string) (*Profile, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	profile := &Profile{User: user.Sanitized()}

	if user.Role == domain.RoleStudent {
		student, err := s.students.GetByUserID(ctx, user.ID)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("lookup student profile: %w", err)
		}
		profile.Student = student
	}

	return profile, nil
}

// ListChildren returns the parent's managed child accounts.
func (s *ProfileService) ListChildren(ctx context.Context, parentID string) ([]ChildAccount, error) {
	students, err := s.students.ListByParent(ctx, parentID)
	if err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}

	children := make([]ChildAccount, 0, len(students))
	for _, student := range students {
		user, err := s.users.GetByID(ctx, student.UserID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				continue
			}
			return nil, fmt.Errorf("lookup child user: %w", err)
		}
		children = append(children, ChildAccount{
			Student: student,
			User:    user.Sanitized(),
		})
	}

	return children, nil
}
