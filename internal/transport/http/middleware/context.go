package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/edujoy/auth-service/internal/core/domain"
)

const (
	// UserIDKey is the gin context key for the authenticated user id.
	UserIDKey = "user_id"
	// UserKey is the gin context key for the authenticated user record.
	UserKey = "user"
	// requestContextKey holds the request metadata captured at entry.
	requestContextKey = "request_context"
)

// RequestContext holds request-scoped metadata captured before routing.
type RequestContext struct {
	UserID    string
	IP        string
	UserAgent string
}

// EnrichContext captures client metadata for downstream handlers.
func EnrichContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqCtx := &RequestContext{
			IP:        c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
		}
		c.Set(requestContextKey, reqCtx)

		c.Next()
	}
}

// GetRequestContext retrieves the request metadata, never nil.
func GetRequestContext(c *gin.Context) *RequestContext {
	if ctx, exists := c.Get(requestContextKey); exists {
		if reqCtx, ok := ctx.(*RequestContext); ok {
			return reqCtx
		}
	}
	return &RequestContext{}
}

// GetAuthenticatedUser retrieves the user attached by RequireAuth.
func GetAuthenticatedUser(c *gin.Context) (*domain.User, bool) {
	val, exists := c.Get(UserKey)
	if !exists {
		return nil, false
	}
	user, ok := val.(*domain.User)
	return user, ok
}

// GetAuthenticatedUserID retrieves the user id attached by RequireAuth.
func GetAuthenticatedUserID(c *gin.Context) (string, bool) {
	val, exists := c.Get(UserIDKey)
	if !exists {
		return "", false
	}
	id, ok := val.(string)
	return id, ok
}
