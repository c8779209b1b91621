package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"chat-gateway/internal/models"
	"chat-gateway/internal/protocol"
)

type BroadcasterMock struct {
	mock.Mock
}

func (m *BroadcasterMock) RelayMessage(ctx context.Context, msg models.Message) {
	m.Called(ctx, msg)
}

func (m *BroadcasterMock) RelayConversationUpdate(ctx context.Context, update protocol.ConversationUpdated) {
	m.Called(ctx, update)
}

type AuditorMock struct {
	mock.Mock
}

func (m *AuditorMock) Emit(ctx context.Context, level, text, requestID string, userID *string) {
	m.Called(ctx, level, text, requestID, userID)
}
