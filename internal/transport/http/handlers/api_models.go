package handlers

import (
	"time"

	"github.com/edujoy/auth-service/internal/core/domain"
)

// ErrorResponse is the failure payload shared by every endpoint: a
// human-readable message plus a stable machine code.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// MessageResponse represents a simple message payload.
type MessageResponse struct {
	Message string `json:"message"`
}

// UserView is the API representation of an account. It never carries the
// password hash.
type UserView struct {
	ID         string      `json:"id"`
	Email      string      `json:"email"`
	FullName   string      `json:"fullName"`
	Role       domain.Role `json:"role"`
	IsVerified bool        `json:"isVerified"`
	IsActive   bool        `json:"isActive"`
	LastLogin  *time.Time  `json:"lastLogin,omitempty"`
	CreatedAt  time.Time   `json:"createdAt"`
}

// NewUserView maps a domain user onto its API shape.
func NewUserView(user domain.User) UserView {
	return UserView{
		ID:         user.ID,
		Email:      user.Email,
		FullName:   user.FullName,
		Role:       user.Role,
		IsVerified: user.IsVerified,
		IsActive:   user.IsActive,
		LastLogin:  user.LastLogin,
		CreatedAt:  user.CreatedAt,
	}
}

// StudentView is the API representation of a managed child profile.
type StudentView struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	ParentID    string    `json:"parentId"`
	Name        string    `json:"name"`
	Grade       string    `json:"grade"`
	Gender      string    `json:"gender"`
	DateOfBirth time.Time `json:"dateOfBirth"`
	XP          int       `json:"xp"`
	CreatedAt   time.Time `json:"createdAt"`
}

// NewStudentView maps a domain student onto its API shape.
func NewStudentView(student domain.Student) StudentView {
	return StudentView{
		ID:          student.ID,
		UserID:      student.UserID,
		ParentID:    student.ParentID,
		Name:        student.Name,
		Grade:       student.Grade,
		Gender:      student.Gender,
		DateOfBirth: student.DateOfBirth,
		XP:          student.XP,
		CreatedAt:   student.CreatedAt,
	}
}

// RegisterRequest is the self-service registration payload.
type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	FullName string `json:"fullName" binding:"required"`
	Role     string `json:"role" binding:"required"`
}

// RegisterResponse is returned on successful registration. The verification
// token appears only in development builds; production delivers it out of
// band.
type RegisterResponse struct {
	User              UserView `json:"user"`
	AccessToken       string   `json:"accessToken"`
	VerificationToken string   `json:"verificationToken,omitempty"`
}

// LoginRequest is the credential payload for login.
type LoginRequest struct {
	Email      string `json:"email" binding:"required,email"`
	Password   string `json:"password" binding:"required"`
	RememberMe bool   `json:"rememberMe"`
}

// LoginResponse is returned on successful login.
type LoginResponse struct {
	User        UserView     `json:"user"`
	Profile     *StudentView `json:"profile,omitempty"`
	AccessToken string       `json:"accessToken"`
}

// RegisterChildRequest describes a parent-managed child account.
type RegisterChildRequest struct {
	StudentName string `json:"studentName" binding:"required"`
	Grade       string `json:"grade"`
	Gender      string `json:"gender"`
	DateOfBirth string `json:"dateOfBirth" binding:"required"`
	ParentID    string `json:"parentId"`
}

// RegisterChildResponse returns the created student profile and its backing
// account.
type RegisterChildResponse struct {
	Student   StudentView `json:"student"`
	ChildUser UserView    `json:"childUser"`
}

// RefreshRequest carries an optional refresh token; the cookie is used when
// the body omits it.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// RefreshResponse is returned on successful token refresh.
type RefreshResponse struct {
	AccessToken string `json:"accessToken"`
}

// LogoutRequest carries an optional refresh token; the cookie is used when
// the body omits it.
type LogoutRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// VerifyEmailRequest is the email verification payload.
type VerifyEmailRequest struct {
	Token string `json:"token" binding:"required"`
}

// ForgotPasswordRequest is the password reset request payload.
type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// ForgotPasswordResponse is returned for every forgot-password call,
// identical whether or not the account exists. The reset token appears only
// in development builds.
type ForgotPasswordResponse struct {
	Message    string `json:"message"`
	ResetToken string `json:"resetToken,omitempty"`
}

// ResetPasswordRequest redeems a reset token for a new password.
type ResetPasswordRequest struct {
	Token    string `json:"token" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// ProfileResponse is returned by the profile endpoint.
type ProfileResponse struct {
	User    UserView     `json:"user"`
	Profile *StudentView `json:"profile,omitempty"`
}

// ChildSummary pairs a student profile with its backing account.
type ChildSummary struct {
	Student StudentView `json:"student"`
	User    UserView    `json:"user"`
}

// ChildrenResponse lists a parent's managed children.
type ChildrenResponse struct {
	Children []ChildSummary `json:"children"`
}

// HealthResponse reports service liveness.
type HealthResponse struct {
	Status    string    `json:"status"`
	StartedAt time.Time `json:"startedAt"`
}
