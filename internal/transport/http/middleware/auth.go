package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/edujoy/auth-service/internal/core/domain"
	"github.com/edujoy/auth-service/internal/usecase"
)

// ErrorResponse matches the handlers.ErrorResponse structure.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// RequireAuth validates the Authorization header, re-checks the account's
// live state, and attaches the user to the request context.
func RequireAuth(authService *usecase.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				ErrorResponse{Error: "missing authorization header", Code: "INVALID_TOKEN"})
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				ErrorResponse{Error: "invalid authorization format: expected 'Bearer <token>'", Code: "INVALID_TOKEN"})
			return
		}

		token := strings.TrimSpace(parts[1])
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				ErrorResponse{Error: "missing access token", Code: "INVALID_TOKEN"})
			return
		}

		user, _, err := authService.Authorize(c.Request.Context(), token)
		if err != nil {
			switch {
			case errors.Is(err, usecase.ErrExpiredAccessToken):
				c.AbortWithStatusJSON(http.StatusUnauthorized,
					ErrorResponse{Error: "access token expired", Code: "INVALID_TOKEN"})
			case errors.Is(err, usecase.ErrInvalidAccessToken):
				c.AbortWithStatusJSON(http.StatusUnauthorized,
					ErrorResponse{Error: "invalid access token", Code: "INVALID_TOKEN"})
			case errors.Is(err, usecase.ErrAccountLocked):
				c.AbortWithStatusJSON(http.StatusLocked,
					ErrorResponse{Error: "account is locked", Code: "ACCOUNT_LOCKED"})
			case errors.Is(err, usecase.ErrAccountDeactivated):
				c.AbortWithStatusJSON(http.StatusForbidden,
					ErrorResponse{Error: "account is deactivated", Code: "ACCOUNT_DEACTIVATED"})
			default:
				c.AbortWithStatusJSON(http.StatusInternalServerError,
					ErrorResponse{Error: "authentication failed", Code: "INTERNAL_ERROR"})
			}
			return
		}

		c.Set(UserIDKey, user.ID)
		c.Set(UserKey, user)

		if reqCtx := GetRequestContext(c); reqCtx != nil {
			reqCtx.UserID = user.ID
		}

		c.Next()
	}
}

// RequireRole rejects authenticated users whose role is not in the allowed
// set.
func RequireRole(roles ...domain.Role) gin.HandlerFunc {
	allowed := make(map[domain.Role]bool, len(roles))
	names := make([]string, 0, len(roles))
	for _, role := range roles {
		allowed[role] = true
		names = append(names, string(role))
	}
	required := strings.Join(names, ", ")

	return func(c *gin.Context) {
		user, ok := GetAuthenticatedUser(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				ErrorResponse{Error: "authentication required", Code: "INVALID_TOKEN"})
			return
		}

		if !allowed[user.Role] {
			c.AbortWithStatusJSON(http.StatusForbidden, ErrorResponse{
				Error: fmt.Sprintf("requires role %s, have %s", required, user.Role),
				Code:  "FORBIDDEN",
			})
			return
		}

		c.Next()
	}
}
