package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/edujoy/auth-service/internal/infra/logger"
)

const requestIDHeader = "X-Request-ID"

// maxRequestIDLength caps caller-supplied correlation IDs so log fields
// stay bounded.
const maxRequestIDLength = 64

// RequestID injects a correlation identifier into the context and headers.
// A well-formed caller-supplied ID is kept; anything else is replaced.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := strings.TrimSpace(c.GetHeader(requestIDHeader))
		if reqID == "" || len(reqID) > maxRequestIDLength {
			reqID = uuid.NewString()
		}

		c.Writer.Header().Set(requestIDHeader, reqID)
		ctx := context.WithValue(c.Request.Context(), logger.RequestIDKey{}, reqID)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}
