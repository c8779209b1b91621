package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"chat-gateway/internal/middleware"
	"chat-gateway/internal/models"
	"chat-gateway/internal/receipts"
	"chat-gateway/internal/repositories"
)

type statusReader interface {
	StatusOf(ctx context.Context, msg models.Message, viewerID string) (receipts.View, error)
}

// MessageHandler serves read-side message endpoints.
type MessageHandler struct {
	conversations repositories.ConversationRepository
	messages      repositories.MessageRepository
	statuses      statusReader
}

// NewMessageHandler builds a MessageHandler.
func NewMessageHandler(conversations repositories.ConversationRepository, messages repositories.MessageRepository, statuses statusReader) *MessageHandler {
	return &MessageHandler{
		conversations: conversations,
		messages:      messages,
		statuses:      statuses,
	}
}

// GetMessageStatus returns the caller's reconciled delivery view of a message.
func (h *MessageHandler) GetMessageStatus(c *gin.Context) {
	conversationID := c.Param("conversation_id")
	messageID := c.Param("message_id")
	userID := c.GetString(middleware.UserIDKey)

	member, err := h.conversations.IsParticipant(c.Request.Context(), conversationID, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to verify membership"})
		return
	}
	if !member {
		c.JSON(http.StatusForbidden, gin.H{"error": "not a conversation member"})
		return
	}

	msg, err := h.messages.GetMessage(c.Request.Context(), messageID)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrMessageNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "message not found"})
		return
	}
	if msg.ConversationID != conversationID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message does not belong to conversation"})
		return
	}

	view, err := h.statuses.StatusOf(c.Request.Context(), msg, userID)
	if err != nil {
		log.Printf("message status failed message_id=%s user_id=%s: %v", messageID, userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load status"})
		return
	}

	c.JSON(http.StatusOK, view)
}
