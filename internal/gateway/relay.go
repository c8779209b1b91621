package gateway

import (
	"context"

	"chat-gateway/internal/models"
	"chat-gateway/internal/protocol"
)

func messageEffect(msg models.Message, excludePeer, excludeUser string) Effect {
	return Effect{
		Kind:           EffectBroadcastRoom,
		ConversationID: msg.ConversationID,
		Event: protocol.Outbound{Type: protocol.TypeMessageReceived, Data: protocol.MessageReceived{
			ID:             msg.ID,
			ConversationID: msg.ConversationID,
			Content:        msg.Content,
			SenderID:       msg.SenderID,
			CreatedAt:      msg.CreatedAt,
		}},
		ExcludePeer:        excludePeer,
		ExcludeUser:        excludeUser,
		Durable:            true,
		DeliveredMessageID: msg.ID,
		SenderID:           msg.SenderID,
	}
}

func conversationUpdatedEffect(update protocol.ConversationUpdated) Effect {
	return Effect{
		Kind:           EffectBroadcastRoom,
		ConversationID: update.ConversationID,
		Event:          protocol.Outbound{Type: protocol.TypeConversationUpdated, Data: update},
		Durable:        true,
	}
}

// RelayMessage fans out a message the upstream API already persisted to every
// room member except the sender's connections.
func (g *Gateway) RelayMessage(ctx context.Context, msg models.Message) {
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = g.now()
	}
	g.fanOut(ctx, messageEffect(msg, "", msg.SenderID))
}

// RelayConversationUpdate tells room members a conversation summary changed.
func (g *Gateway) RelayConversationUpdate(ctx context.Context, update protocol.ConversationUpdated) {
	g.fanOut(ctx, conversationUpdatedEffect(update))
}
