package ws

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"chat-gateway/internal/identity"
)

func newConnID() string {
	return uuid.NewString()
}

// tokenFromRequest reads the bearer token from the Authorization header, or
// the token query parameter browsers must use for websocket upgrades.
func tokenFromRequest(c *gin.Context) string {
	if token, ok := identity.BearerToken(c.GetHeader("Authorization")); ok {
		return token
	}
	return c.Query("token")
}
