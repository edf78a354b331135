package domain

import "time"

// Student is the managed child profile linking a child user account to the
// parent that owns it. Child accounts never authenticate on their own; access
// is mediated through the parent's session.
type Student struct {
	ID          string
	UserID      string
	ParentID    string
	Name        string
	Grade       string
	Gender      string
	DateOfBirth time.Time
	XP          int
	CreatedAt   time.Time
}
