package handlers

import (
	"github.com/gin-gonic/gin"

	"chat-gateway/internal/gateway"
	"chat-gateway/internal/middleware"
	"chat-gateway/internal/observability"
)

const requestIDContextKey = "request_id"

func requestIDFromContext(c *gin.Context) string {
	if val, ok := c.Get(requestIDContextKey); ok {
		if id, ok := val.(string); ok && id != "" {
			return id
		}
	}

	requestID := observability.RequestIDFromRequest(c.Request)
	c.Set(requestIDContextKey, requestID)
	return requestID
}

func userIDFromContext(c *gin.Context) *string {
	if userID := c.GetString(middleware.UserIDKey); userID != "" {
		return &userID
	}
	if header := c.GetHeader("X-User-ID"); header != "" {
		return &header
	}
	return nil
}

func emitAudit(auditor gateway.Auditor, c *gin.Context, level, text string) {
	if auditor == nil {
		return
	}
	auditor.Emit(c.Request.Context(), level, text, requestIDFromContext(c), userIDFromContext(c))
}
