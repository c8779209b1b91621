package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"chat-gateway/internal/gateway"
	"chat-gateway/internal/models"
	"chat-gateway/internal/protocol"
)

type broadcaster interface {
	RelayMessage(ctx context.Context, msg models.Message)
	RelayConversationUpdate(ctx context.Context, update protocol.ConversationUpdated)
}

// RelayHandler lets upstream APIs push already persisted changes to
// connected clients.
type RelayHandler struct {
	relay broadcaster
	audit gateway.Auditor
}

// NewRelayHandler builds a RelayHandler. audit may be nil.
func NewRelayHandler(relay broadcaster, audit gateway.Auditor) *RelayHandler {
	return &RelayHandler{relay: relay, audit: audit}
}

// PostMessage relays a message created through the upstream API.
func (h *RelayHandler) PostMessage(c *gin.Context) {
	var req struct {
		ID             string    `json:"id" binding:"required"`
		ConversationID string    `json:"conversation_id" binding:"required"`
		SenderID       string    `json:"sender_id" binding:"required"`
		Content        string    `json:"content" binding:"required"`
		CreatedAt      time.Time `json:"created_at"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.relay.RelayMessage(c.Request.Context(), models.Message{
		ID:             req.ID,
		ConversationID: req.ConversationID,
		SenderID:       req.SenderID,
		Content:        req.Content,
		CreatedAt:      req.CreatedAt,
	})
	emitAudit(h.audit, c, "INFO", "Message relayed")
	c.Status(http.StatusAccepted)
}

// PostConversationUpdated relays a conversation summary change.
func (h *RelayHandler) PostConversationUpdated(c *gin.Context) {
	var req struct {
		TotalMessageCount int        `json:"total_message_count"`
		LastMessageID     string     `json:"last_message_id"`
		LastMessageAt     *time.Time `json:"last_message_at"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.TotalMessageCount < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "total_message_count must not be negative"})
		return
	}

	h.relay.RelayConversationUpdate(c.Request.Context(), protocol.ConversationUpdated{
		ConversationID:    c.Param("conversation_id"),
		TotalMessageCount: req.TotalMessageCount,
		LastMessageID:     req.LastMessageID,
		LastMessageAt:     req.LastMessageAt,
	})
	c.Status(http.StatusAccepted)
}
