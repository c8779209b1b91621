package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"chat-gateway/internal/identity"
	"chat-gateway/internal/models"
	"chat-gateway/internal/repositories"
)

type ConversationRepositoryMock struct {
	mock.Mock
}

func (m *ConversationRepositoryMock) Participants(ctx context.Context, conversationID string) ([]string, error) {
	args := m.Called(ctx, conversationID)
	var ids []string
	if val := args.Get(0); val != nil {
		ids = val.([]string)
	}
	return ids, args.Error(1)
}

func (m *ConversationRepositoryMock) IsParticipant(ctx context.Context, conversationID string, userID string) (bool, error) {
	args := m.Called(ctx, conversationID, userID)
	return args.Bool(0), args.Error(1)
}

type MessageRepositoryMock struct {
	mock.Mock
}

func (m *MessageRepositoryMock) GetMessage(ctx context.Context, messageID string) (models.Message, error) {
	args := m.Called(ctx, messageID)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

type ReceiptRepositoryMock struct {
	mock.Mock
}

func (m *ReceiptRepositoryMock) ListForMessage(ctx context.Context, messageID string) ([]models.Receipt, error) {
	args := m.Called(ctx, messageID)
	var receipts []models.Receipt
	if val := args.Get(0); val != nil {
		receipts = val.([]models.Receipt)
	}
	return receipts, args.Error(1)
}

func (m *ReceiptRepositoryMock) MarkDelivered(ctx context.Context, messageID string, readerID string, at time.Time) (bool, error) {
	args := m.Called(ctx, messageID, readerID, at)
	return args.Bool(0), args.Error(1)
}

func (m *ReceiptRepositoryMock) MarkRead(ctx context.Context, messageID string, readerID string, at time.Time) (bool, error) {
	args := m.Called(ctx, messageID, readerID, at)
	return args.Bool(0), args.Error(1)
}

type ReactionRepositoryMock struct {
	mock.Mock
}

func (m *ReactionRepositoryMock) AddReaction(ctx context.Context, reaction models.Reaction) (bool, error) {
	args := m.Called(ctx, reaction)
	return args.Bool(0), args.Error(1)
}

type ResolverMock struct {
	mock.Mock
}

func (m *ResolverMock) ResolveUser(ctx context.Context, token string) (string, error) {
	args := m.Called(ctx, token)
	return args.String(0), args.Error(1)
}

type AuthenticatorMock struct {
	mock.Mock
}

func (m *AuthenticatorMock) Authenticate(token string) (identity.Claims, error) {
	args := m.Called(token)
	var claims identity.Claims
	if val := args.Get(0); val != nil {
		claims = val.(identity.Claims)
	}
	return claims, args.Error(1)
}

var _ repositories.ConversationRepository = (*ConversationRepositoryMock)(nil)
var _ repositories.MessageRepository = (*MessageRepositoryMock)(nil)
var _ repositories.ReceiptRepository = (*ReceiptRepositoryMock)(nil)
var _ repositories.ReactionRepository = (*ReactionRepositoryMock)(nil)
var _ identity.Resolver = (*ResolverMock)(nil)
var _ identity.Authenticator = (*AuthenticatorMock)(nil)
