package repositories

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"chat-gateway/internal/models"
)

// ReactionRepository persists message reactions.
type ReactionRepository interface {
	AddReaction(ctx context.Context, reaction models.Reaction) (bool, error)
}

// ReactionRepo is a sqlx implementation of ReactionRepository.
type ReactionRepo struct {
	db *sqlx.DB
}

// NewReactionRepo constructs a ReactionRepo.
func NewReactionRepo(db *sqlx.DB) *ReactionRepo {
	return &ReactionRepo{db: db}
}

// AddReaction stores the reaction and reports whether it was new.
func (r *ReactionRepo) AddReaction(ctx context.Context, reaction models.Reaction) (bool, error) {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`INSERT INTO message_reactions (message_id, user_id, emoji, created_at)
        VALUES (?, ?, ?, ?)
        ON CONFLICT (message_id, user_id, emoji) DO NOTHING`), reaction.MessageID, reaction.UserID, reaction.Emoji, reaction.CreatedAt)
	if err != nil {
		return false, err
	}
	return affected(res)
}

func affected(res sql.Result) (bool, error) {
	count, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
