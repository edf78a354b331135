package usecase

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/edujoy/auth-service/internal/core/domain"
	"github.com/edujoy/auth-service/internal/repository"
)

type stubUserRepo struct {
	mu    sync.Mutex
	users map[string]domain.User

	createErr error
	created   []domain.User
}

func newStubUserRepo(users ...domain.User) *stubUserRepo {
	repo := &stubUserRepo{users: make(map[string]domain.User)}
	for _, u := range users {
		repo.users[u.ID] = u
	}
	return repo
}

func (r *stubUserRepo) Create(_ context.Context, user domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	for _, existing := range r.users {
		if existing.Email == user.Email {
			return repository.ErrDuplicate
		}
	}
	r.users[user.ID] = user
	r.created = append(r.created, user)
	return nil
}

func (r *stubUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if user, ok := r.users[id]; ok {
		copied := user
		return &copied, nil
	}
	return nil, repository.ErrNotFound
}

func (r *stubUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.Email == email {
			copied := user
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *stubUserRepo) UpdateLoginAttempts(_ context.Context, id string, attempts int, lockUntil *time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	user.LoginAttempts = attempts
	user.LockUntil = lockUntil
	r.users[id] = user
	return nil
}

func (r *stubUserRepo) RecordLogin(_ context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	user.LoginAttempts = 0
	user.LockUntil = nil
	user.LastLogin = &at
	r.users[id] = user
	return nil
}

func (r *stubUserRepo) UpdatePassword(_ context.Context, id string, passwordHash string, _ time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	user.PasswordHash = passwordHash
	r.users[id] = user
	return nil
}

func (r *stubUserRepo) SetVerified(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	user.IsVerified = true
	r.users[id] = user
	return nil
}

func (r *stubUserRepo) put(user domain.User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[user.ID] = user
}

func (r *stubUserRepo) get(id string) domain.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.users[id]
}

type stubLedger struct {
	mu      sync.Mutex
	entries []domain.RefreshTokenEntry

	appendErr error
	listErr   error
}

func (l *stubLedger) Append(_ context.Context, entry domain.RefreshTokenEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.appendErr != nil {
		return l.appendErr
	}
	l.entries = append(l.entries, entry)
	return nil
}

func (l *stubLedger) ListByUser(_ context.Context, userID string) ([]domain.RefreshTokenEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.listErr != nil {
		return nil, l.listErr
	}
	var out []domain.RefreshTokenEntry
	for _, entry := range l.entries {
		if entry.UserID == userID {
			out = append(out, entry)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (l *stubLedger) Contains(_ context.Context, userID, tokenHash string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, entry := range l.entries {
		if entry.UserID == userID && entry.TokenHash == tokenHash {
			return true, nil
		}
	}
	return false, nil
}

func (l *stubLedger) Remove(_ context.Context, userID, tokenHash string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	kept := l.entries[:0]
	for _, entry := range l.entries {
		if entry.UserID == userID && entry.TokenHash == tokenHash {
			continue
		}
		kept = append(kept, entry)
	}
	l.entries = kept
	return nil
}

func (l *stubLedger) RemoveAll(_ context.Context, userID string) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	removed := 0
	kept := l.entries[:0]
	for _, entry := range l.entries {
		if entry.UserID == userID {
			removed++
			continue
		}
		kept = append(kept, entry)
	}
	l.entries = kept
	return removed, nil
}

func (l *stubLedger) RemoveByIDs(_ context.Context, ids []string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}
	kept := l.entries[:0]
	for _, entry := range l.entries {
		if _, ok := drop[entry.ID]; ok {
			continue
		}
		kept = append(kept, entry)
	}
	l.entries = kept
	return nil
}

func (l *stubLedger) DeleteExpired(_ context.Context, before time.Time) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	removed := 0
	kept := l.entries[:0]
	for _, entry := range l.entries {
		if !entry.ExpiresAt.After(before) {
			removed++
			continue
		}
		kept = append(kept, entry)
	}
	l.entries = kept
	return removed, nil
}

func (l *stubLedger) count(userID string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, entry := range l.entries {
		if entry.UserID == userID {
			n++
		}
	}
	return n
}

type stubTokenRepo struct {
	mu             sync.Mutex
	verifications  map[string]domain.VerificationToken
	passwordResets map[string]domain.PasswordResetToken
}

func newStubTokenRepo() *stubTokenRepo {
	return &stubTokenRepo{
		verifications:  make(map[string]domain.VerificationToken),
		passwordResets: make(map[string]domain.PasswordResetToken),
	}
}

func (r *stubTokenRepo) CreateVerification(_ context.Context, token domain.VerificationToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.verifications[token.ID] = token
	return nil
}

func (r *stubTokenRepo) GetVerificationByHash(_ context.Context, hash string) (*domain.VerificationToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, token := range r.verifications {
		if token.TokenHash == hash {
			copied := token
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *stubTokenRepo) ConsumeVerification(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	token, ok := r.verifications[id]
	if !ok || token.UsedAt != nil {
		return repository.ErrNotFound
	}
	now := time.Now().UTC()
	token.UsedAt = &now
	r.verifications[id] = token
	return nil
}

func (r *stubTokenRepo) CreatePasswordReset(_ context.Context, token domain.PasswordResetToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.passwordResets[token.ID] = token
	return nil
}

func (r *stubTokenRepo) GetPasswordResetByHash(_ context.Context, hash string) (*domain.PasswordResetToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, token := range r.passwordResets {
		if token.TokenHash == hash {
			copied := token
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *stubTokenRepo) ConsumePasswordReset(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	token, ok := r.passwordResets[id]
	if !ok || token.UsedAt != nil {
		return repository.ErrNotFound
	}
	now := time.Now().UTC()
	token.UsedAt = &now
	r.passwordResets[id] = token
	return nil
}

type stubStudentRepo struct {
	mu       sync.Mutex
	students map[string]domain.Student
}

func newStubStudentRepo() *stubStudentRepo {
	return &stubStudentRepo{students: make(map[string]domain.Student)}
}

func (r *stubStudentRepo) Create(_ context.Context, student domain.Student) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.students[student.ID] = student
	return nil
}

func (r *stubStudentRepo) GetByUserID(_ context.Context, userID string) (*domain.Student, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, student := range r.students {
		if student.UserID == userID {
			copied := student
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *stubStudentRepo) ListByParent(_ context.Context, parentID string) ([]domain.Student, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Student
	for _, student := range r.students {
		if student.ParentID == parentID {
			out = append(out, student)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

type stubEventPublisher struct {
	mu              sync.Mutex
	registered      []domain.UserRegisteredEvent
	childRegistered []domain.ChildRegisteredEvent
	passwordChanged []domain.PasswordChangedEvent
	sessionRevoked  []domain.SessionRevokedEvent

	publishErr error
}

func (p *stubEventPublisher) PublishUserRegistered(_ context.Context, event domain.UserRegisteredEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.publishErr != nil {
		return p.publishErr
	}
	p.registered = append(p.registered, event)
	return nil
}

func (p *stubEventPublisher) PublishChildRegistered(_ context.Context, event domain.ChildRegisteredEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.publishErr != nil {
		return p.publishErr
	}
	p.childRegistered = append(p.childRegistered, event)
	return nil
}

func (p *stubEventPublisher) PublishPasswordChanged(_ context.Context, event domain.PasswordChangedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.publishErr != nil {
		return p.publishErr
	}
	p.passwordChanged = append(p.passwordChanged, event)
	return nil
}

func (p *stubEventPublisher) PublishSessionRevoked(_ context.Context, event domain.SessionRevokedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.publishErr != nil {
		return p.publishErr
	}
	p.sessionRevoked = append(p.sessionRevoked, event)
	return nil
}

var errStubFailure = errors.New("stub failure")
