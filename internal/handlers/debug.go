package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"chat-gateway/internal/gateway"
)

// RegisterDebugRoutes wires debug-only endpoints.
func RegisterDebugRoutes(router gin.IRouter, auditor gateway.Auditor, gw *gateway.Gateway, enabled bool) {
	if !enabled {
		return
	}

	router.GET("/debug/audit-test", func(c *gin.Context) {
		if auditor == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "audit emitter not configured"})
			return
		}
		emitAudit(auditor, c, "INFO", "audit test")
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.GET("/debug/sessions", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"sessions": gw.SessionCount(), "online": gw.OnlineUsers()})
	})
}
