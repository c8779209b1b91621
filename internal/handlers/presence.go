package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type presenceChecker interface {
	IsOnline(userID string) bool
}

// PresenceHandler answers whether a user currently has a live connection.
type PresenceHandler struct {
	presence presenceChecker
}

func NewPresenceHandler(presence presenceChecker) *PresenceHandler {
	return &PresenceHandler{presence: presence}
}

func (h *PresenceHandler) GetPresence(c *gin.Context) {
	userID := c.Param("user_id")
	c.JSON(http.StatusOK, gin.H{"user_id": userID, "online": h.presence.IsOnline(userID)})
}
