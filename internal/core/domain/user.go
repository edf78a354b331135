package domain

import (
	"fmt"
	"strings"
	"time"
)

// Role enumerates the closed set of account roles on the platform.
type Role string

const (
	RoleStudent     Role = "student"
	RoleParent      Role = "parent"
	RoleTeacher     Role = "teacher"
	RoleAdmin       Role = "admin"
	RoleSchoolAdmin Role = "school_admin"
)

// ParseRole maps a raw string onto the closed role set.
func ParseRole(raw string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(raw))) {
	case RoleStudent:
		return RoleStudent, nil
	case RoleParent:
		return RoleParent, nil
	case RoleTeacher:
		return RoleTeacher, nil
	case RoleAdmin:
		return RoleAdmin, nil
	case RoleSchoolAdmin:
		return RoleSchoolAdmin, nil
	default:
		return "", fmt.Errorf("unknown role %q", raw)
	}
}

// Valid reports whether the role belongs to the closed set.
func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleParent, RoleTeacher, RoleAdmin, RoleSchoolAdmin:
		return true
	}
	return false
}

func (r Role) String() string { return string(r) }

// User mirrors the persisted representation in the users table.
type User struct {
	ID            string
	Email         string
	PasswordHash  string
	FullName      string
	Role          Role
	IsVerified    bool
	IsActive      bool
	LoginAttempts int
	LockUntil     *time.Time
	LastLogin     *time.Time
	CreatedAt     time.Time
}

// IsLocked reports whether the lockout window is still open at the given instant.
func (u User) IsLocked(now time.Time) bool {
	return u.LockUntil != nil && u.LockUntil.After(now)
}

// Sanitized returns a copy safe to hand to transport layers. The password
// hash must never leave the service.
func (u User) Sanitized() User {
	clean := u
	clean.PasswordHash = ""
	return clean
}
