package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/edujoy/auth-service/internal/infra/security"
	"github.com/edujoy/auth-service/internal/usecase"
)

// ErrorCase maps a sentinel error to an HTTP status, code, and message.
type ErrorCase struct {
	Err     error
	Status  int
	Code    string
	Message string
}

// authErrorCases covers the sentinels shared by the session endpoints.
var authErrorCases = []ErrorCase{
	{Err: usecase.ErrInvalidCredentials, Status: http.StatusUnauthorized, Code: "INVALID_CREDENTIALS", Message: "invalid email or password"},
	{Err: usecase.ErrAccountLocked, Status: http.StatusLocked, Code: "ACCOUNT_LOCKED", Message: "account is temporarily locked"},
	{Err: usecase.ErrAccountDeactivated, Status: http.StatusForbidden, Code: "ACCOUNT_DEACTIVATED", Message: "account is deactivated"},
	{Err: usecase.ErrInvalidRefreshToken, Status: http.StatusUnauthorized, Code: "INVALID_REFRESH_TOKEN", Message: "invalid or expired refresh token"},
	{Err: usecase.ErrEmailTaken, Status: http.StatusConflict, Code: "EMAIL_TAKEN", Message: "email is already registered"},
	{Err: usecase.ErrInvalidInput, Status: http.StatusBadRequest, Code: "VALIDATION_ERROR", Message: "invalid request"},
	{Err: usecase.ErrInvalidVerificationToken, Status: http.StatusBadRequest, Code: "INVALID_VERIFICATION_TOKEN", Message: "invalid or expired verification token"},
	{Err: usecase.ErrInvalidResetToken, Status: http.StatusBadRequest, Code: "INVALID_RESET_TOKEN", Message: "invalid or expired reset token"},
	{Err: usecase.ErrNotParent, Status: http.StatusForbidden, Code: "FORBIDDEN", Message: "only parent accounts can manage children"},
	{Err: usecase.ErrProfileNotFound, Status: http.StatusNotFound, Code: "NOT_FOUND", Message: "profile not found"},
}

// respondError resolves the error against the known cases. Password policy
// violations carry their own code; anything unmatched becomes a 500 with the
// detail included only in development.
func respondError(c *gin.Context, err error, isDev bool) {
	if err == nil {
		c.Status(http.StatusOK)
		return
	}

	var policyErr *security.PasswordPolicyError
	if errors.As(err, &policyErr) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: policyErr.Message,
			Code:  "WEAK_PASSWORD",
		})
		return
	}

	for _, cs := range authErrorCases {
		if errors.Is(err, cs.Err) {
			c.JSON(cs.Status, ErrorResponse{Error: cs.Message, Code: cs.Code})
			return
		}
	}

	message := "internal server error"
	if isDev {
		message = err.Error()
	}
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: message, Code: "INTERNAL_ERROR"})
}
