package middleware

import (
	"crypto/subtle"
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"chat-gateway/internal/identity"
)

// UserIDKey is the gin context key holding the caller's resolved user id.
const UserIDKey = "userID"

// AuthMiddleware verifies the bearer token locally and resolves the caller's
// user id through the identity provider.
func AuthMiddleware(auth identity.Authenticator, resolver identity.Resolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization"})
			return
		}

		token, ok := identity.BearerToken(header)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header"})
			return
		}

		if _, err := auth.Authenticate(token); err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		userID, err := resolver.ResolveUser(c.Request.Context(), token)
		if err != nil {
			if errors.Is(err, identity.ErrInvalidToken) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
				return
			}
			log.Printf("identity lookup failed path=%s: %v", c.FullPath(), err)
			c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": "identity provider unavailable"})
			return
		}

		c.Set(UserIDKey, userID)
		c.Next()
	}
}

// RelayKeyMiddleware guards internal routes called by upstream APIs.
// An empty key disables the internal routes entirely.
func RelayKeyMiddleware(key string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if key == "" {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		provided := c.GetHeader("X-Relay-Key")
		if subtle.ConstantTimeCompare([]byte(provided), []byte(key)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid relay key"})
			return
		}
		c.Next()
	}
}
