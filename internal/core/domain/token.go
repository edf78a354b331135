package domain

import "time"

// RefreshTokenEntry is one ledger slot: a refresh token the owning user is
// currently allowed to redeem. The raw token never touches storage; only its
// SHA-256 hash does.
type RefreshTokenEntry struct {
	ID        string
	UserID    string
	TokenHash string
	UserAgent *string
	IP        *string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// IsExpired reports whether the entry has elapsed its validity window.
func (e RefreshTokenEntry) IsExpired(at time.Time) bool {
	return !e.ExpiresAt.After(at)
}

// PasswordResetToken represents a single-use password reset token hash.
type PasswordResetToken struct {
	ID        string
	UserID    string
	TokenHash string
	IP        *string
	UserAgent *string
	CreatedAt time.Time
	ExpiresAt time.Time
	UsedAt    *time.Time
}

// IsExpired reports whether the reset token can still be redeemed.
func (t PasswordResetToken) IsExpired(at time.Time) bool {
	return !t.ExpiresAt.After(at)
}

// Consume marks the reset token as used.
// Returns true when the token transitions from unused to used.
func (t *PasswordResetToken) Consume(at time.Time) bool {
	if t.UsedAt != nil {
		return false
	}
	timeCopy := at
	t.UsedAt = &timeCopy
	return true
}

// VerificationToken captures the email verification flow for new accounts.
type VerificationToken struct {
	ID        string
	UserID    string
	TokenHash string
	CreatedAt time.Time
	ExpiresAt time.Time
	UsedAt    *time.Time
}

// IsExpired reports whether the verification token can still be redeemed.
func (t VerificationToken) IsExpired(at time.Time) bool {
	return !t.ExpiresAt.After(at)
}

// Consume marks the verification token as used.
func (t *VerificationToken) Consume(at time.Time) bool {
	if t.UsedAt != nil {
		return false
	}
	timeCopy := at
	t.UsedAt = &timeCopy
	return true
}
