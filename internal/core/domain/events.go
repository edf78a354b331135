package domain

import "time"

// UserRegisteredEvent represents the payload for auth.user.registered messages.
type UserRegisteredEvent struct {
	EventID      string
	UserID       string
	Email        string
	FullName     string
	Role         Role
	RegisteredAt time.Time
	Metadata     map[string]any
}

// ChildRegisteredEvent represents the payload for auth.child.registered messages.
type ChildRegisteredEvent struct {
	EventID      string
	StudentID    string
	ChildUserID  string
	ParentID     string
	RegisteredAt time.Time
	Metadata     map[string]any
}

// PasswordChangedEvent represents the payload for auth.user.password.changed messages.
type PasswordChangedEvent struct {
	EventID         string
	UserID          string
	ChangedAt       time.Time
	SessionsRevoked int
	Metadata        map[string]any
}

// SessionRevokedEvent represents the payload for auth.session.revoked messages.
type SessionRevokedEvent struct {
	EventID        string
	UserID         string
	RevokedAt      time.Time
	Reason         string
	EntriesRemoved int
	IPAddress      *string
	Metadata       map[string]any
}
