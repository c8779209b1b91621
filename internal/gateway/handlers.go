package gateway

import (
	"context"
	"fmt"
	"log"

	"chat-gateway/internal/models"
	"chat-gateway/internal/protocol"
)

const errRegistrationRequired = "register_user required"

func (g *Gateway) handle(ctx context.Context, s *Session, ev protocol.Event) []Effect {
	if _, ok := ev.(protocol.RegisterUser); !ok && s.UserID() == "" {
		return []Effect{reply(protocol.NewError(errRegistrationRequired))}
	}

	switch ev := ev.(type) {
	case protocol.RegisterUser:
		return g.handleRegister(ctx, s)
	case protocol.JoinConversation:
		return g.handleJoin(s, ev)
	case protocol.LeaveConversation:
		return g.handleLeave(s, ev)
	case protocol.SendMessage:
		return g.handleSendMessage(s, ev)
	case protocol.Typing:
		return []Effect{{Kind: EffectStartTyping, ConversationID: ev.ConversationID}}
	case protocol.StopTyping:
		return []Effect{{Kind: EffectStopTyping, ConversationID: ev.ConversationID}}
	case protocol.AddReaction:
		return g.handleAddReaction(ctx, s, ev)
	case protocol.MessageRead:
		return g.handleMessageRead(ctx, s, ev)
	case protocol.UpdateConversation:
		return g.handleUpdateConversation(s, ev)
	default:
		log.Printf("unhandled event conn_id=%s type=%s", s.ID(), ev.Type())
		return nil
	}
}

func (g *Gateway) handleRegister(ctx context.Context, s *Session) []Effect {
	userID, err := g.resolver.ResolveUser(ctx, s.token)
	if err != nil {
		if isAuthError(err) {
			err = fmt.Errorf("%w: %v", ErrAuthentication, err)
		} else {
			err = fmt.Errorf("%w: %v", ErrUpstreamLookup, err)
		}
		log.Printf("register_user failed conn_id=%s subject=%s: %v", s.ID(), s.subject, err)
		g.audit(ctx, "WARN", "identity resolution failed", s.subject)
		return []Effect{reply(protocol.NewError("could not resolve identity"))}
	}

	g.audit(ctx, "INFO", "user registered on websocket", userID)
	return []Effect{
		{Kind: EffectRegister, UserID: userID},
		reply(protocol.NewUserEvent(protocol.TypeUserRegistered, userID, "")),
		{Kind: EffectBroadcastAll, Event: protocol.NewUserEvent(protocol.TypeUserOnline, userID, ""), ExcludePeer: s.ID()},
	}
}

func (g *Gateway) handleJoin(s *Session, ev protocol.JoinConversation) []Effect {
	return []Effect{{
		Kind:           EffectJoin,
		ConversationID: ev.ConversationID,
		Event:          protocol.NewUserEvent(protocol.TypeUserJoined, s.UserID(), ev.ConversationID),
	}}
}

func (g *Gateway) handleLeave(s *Session, ev protocol.LeaveConversation) []Effect {
	return []Effect{{
		Kind:           EffectLeave,
		ConversationID: ev.ConversationID,
		Event:          protocol.NewUserEvent(protocol.TypeUserLeft, s.UserID(), ev.ConversationID),
	}}
}

func (g *Gateway) handleSendMessage(s *Session, ev protocol.SendMessage) []Effect {
	createdAt := ev.CreatedAt
	if createdAt.IsZero() {
		createdAt = g.now()
	}
	return []Effect{messageEffect(models.Message{
		ID:             ev.MessageID,
		ConversationID: ev.ConversationID,
		SenderID:       s.UserID(),
		Content:        ev.Content,
		CreatedAt:      createdAt,
	}, s.ID(), "")}
}

func (g *Gateway) handleAddReaction(ctx context.Context, s *Session, ev protocol.AddReaction) []Effect {
	userID := s.UserID()
	created, err := g.reactions.AddReaction(ctx, models.Reaction{
		MessageID: ev.MessageID,
		UserID:    userID,
		Emoji:     ev.Emoji,
		CreatedAt: g.now(),
	})
	if err != nil {
		err = fmt.Errorf("%w: add reaction: %v", ErrPersistence, err)
		log.Printf("add_reaction failed conn_id=%s user_id=%s message_id=%s: %v", s.ID(), userID, ev.MessageID, err)
		return []Effect{reply(protocol.NewError("failed to save reaction"))}
	}
	if !created {
		return nil
	}
	return []Effect{{
		Kind:           EffectBroadcastRoom,
		ConversationID: ev.ConversationID,
		Event: protocol.Outbound{Type: protocol.TypeReactionAdded, Data: protocol.ReactionAdded{
			MessageID: ev.MessageID,
			Emoji:     ev.Emoji,
			UserID:    userID,
		}},
		Durable: true,
	}}
}

func (g *Gateway) handleMessageRead(ctx context.Context, s *Session, ev protocol.MessageRead) []Effect {
	userID := s.UserID()
	changed, err := g.receipts.MarkRead(ctx, ev.MessageID, userID)
	if err != nil {
		err = fmt.Errorf("%w: %v", ErrPersistence, err)
		log.Printf("message_read failed conn_id=%s user_id=%s message_id=%s: %v", s.ID(), userID, ev.MessageID, err)
		return []Effect{reply(protocol.NewError("failed to mark message read"))}
	}
	if !changed {
		return nil
	}
	return []Effect{{
		Kind:           EffectBroadcastRoom,
		ConversationID: ev.ConversationID,
		Event: protocol.Outbound{Type: protocol.TypeMessageMarkedRead, Data: protocol.MessageMarkedRead{
			MessageID: ev.MessageID,
			UserID:    userID,
		}},
		Durable: true,
	}}
}

func (g *Gateway) handleUpdateConversation(s *Session, ev protocol.UpdateConversation) []Effect {
	return []Effect{conversationUpdatedEffect(protocol.ConversationUpdated{
		ConversationID:    ev.ConversationID,
		TotalMessageCount: ev.TotalMessageCount,
		LastMessageID:     ev.LastMessageID,
		LastMessageAt:     ev.LastMessageAt,
	})}
}
