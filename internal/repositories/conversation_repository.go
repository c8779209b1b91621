package repositories

import (
	"context"

	"github.com/jmoiron/sqlx"
)

// ConversationRepository abstracts conversation lookups.
type ConversationRepository interface {
	Participants(ctx context.Context, conversationID string) ([]string, error)
	IsParticipant(ctx context.Context, conversationID string, userID string) (bool, error)
}

// ConversationRepo is a sqlx implementation of ConversationRepository.
type ConversationRepo struct {
	db *sqlx.DB
}

// NewConversationRepo constructs a ConversationRepo.
func NewConversationRepo(db *sqlx.DB) *ConversationRepo {
	return &ConversationRepo{db: db}
}

// Participants returns the user ids taking part in the conversation.
func (r *ConversationRepo) Participants(ctx context.Context, conversationID string) ([]string, error) {
	var ids []string
	err := r.db.SelectContext(ctx, &ids, r.db.Rebind(`SELECT user_id FROM conversation_participants WHERE conversation_id=? ORDER BY user_id`), conversationID)
	return ids, err
}

// IsParticipant checks whether a user belongs to the conversation.
func (r *ConversationRepo) IsParticipant(ctx context.Context, conversationID string, userID string) (bool, error) {
	var count int
	err := r.db.GetContext(ctx, &count, r.db.Rebind(`SELECT COUNT(1) FROM conversation_participants WHERE conversation_id=? AND user_id=?`), conversationID, userID)
	return count > 0, err
}
