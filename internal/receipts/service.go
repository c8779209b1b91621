package receipts

import (
	"context"
	"fmt"
	"time"

	"chat-gateway/internal/models"
	"chat-gateway/internal/repositories"
)

// Service applies receipt transitions and answers status queries.
type Service struct {
	receipts      repositories.ReceiptRepository
	messages      repositories.MessageRepository
	conversations repositories.ConversationRepository
	now           func() time.Time
}

// NewService constructs a Service.
func NewService(receipts repositories.ReceiptRepository, messages repositories.MessageRepository, conversations repositories.ConversationRepository) *Service {
	return &Service{
		receipts:      receipts,
		messages:      messages,
		conversations: conversations,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// MarkDelivered records the first delivery of a message to readerID.
func (s *Service) MarkDelivered(ctx context.Context, messageID, readerID string) (bool, error) {
	created, err := s.receipts.MarkDelivered(ctx, messageID, readerID, s.now())
	if err != nil {
		return false, fmt.Errorf("mark delivered message_id=%s reader_id=%s: %w", messageID, readerID, err)
	}
	return created, nil
}

// MarkRead moves readerID's receipt to read. It reports false for an already-read receipt.
func (s *Service) MarkRead(ctx context.Context, messageID, readerID string) (bool, error) {
	changed, err := s.receipts.MarkRead(ctx, messageID, readerID, s.now())
	if err != nil {
		return false, fmt.Errorf("mark read message_id=%s reader_id=%s: %w", messageID, readerID, err)
	}
	return changed, nil
}

// StatusFor loads the message, its participants and receipts, and reconciles viewerID's view.
func (s *Service) StatusFor(ctx context.Context, messageID, viewerID string) (View, error) {
	msg, err := s.messages.GetMessage(ctx, messageID)
	if err != nil {
		return View{}, err
	}
	return s.StatusOf(ctx, msg, viewerID)
}

// StatusOf reconciles viewerID's view of an already loaded message.
func (s *Service) StatusOf(ctx context.Context, msg models.Message, viewerID string) (View, error) {
	participants, err := s.conversations.Participants(ctx, msg.ConversationID)
	if err != nil {
		return View{}, fmt.Errorf("load participants: %w", err)
	}
	records, err := s.receipts.ListForMessage(ctx, msg.ID)
	if err != nil {
		return View{}, fmt.Errorf("load receipts: %w", err)
	}
	return Reconcile(msg, viewerID, participants, records), nil
}
