package models

import "time"

// Conversation represents a thread between two or more participants.
type Conversation struct {
	ID        string    `db:"id" json:"id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// ConversationParticipant links a user to a conversation.
type ConversationParticipant struct {
	ConversationID string `db:"conversation_id" json:"conversation_id"`
	UserID         string `db:"user_id" json:"user_id"`
}
