package gateway

import (
	"context"
	"log"

	"chat-gateway/internal/observability"
	"chat-gateway/internal/protocol"
)

// EffectKind names what applying an Effect does.
type EffectKind int

const (
	EffectReply EffectKind = iota
	EffectRegister
	EffectJoin
	EffectLeave
	EffectStartTyping
	EffectStopTyping
	EffectBroadcastAll
	EffectBroadcastRoom
)

func (k EffectKind) String() string {
	switch k {
	case EffectReply:
		return "reply"
	case EffectRegister:
		return "register"
	case EffectJoin:
		return "join"
	case EffectLeave:
		return "leave"
	case EffectStartTyping:
		return "start_typing"
	case EffectStopTyping:
		return "stop_typing"
	case EffectBroadcastAll:
		return "broadcast_all"
	case EffectBroadcastRoom:
		return "broadcast_room"
	default:
		return "unknown"
	}
}

// Effect describes one state change or delivery a handler wants performed.
//
// Durable effects announce data the store already holds and are applied even
// when the originating session closed while the handler was blocked. All other
// effects are dropped for a closed session.
type Effect struct {
	Kind           EffectKind
	ConversationID string
	UserID         string
	Event          protocol.Outbound
	ExcludePeer    string
	ExcludeUser    string
	Durable        bool
	// DeliveredMessageID records a delivered receipt for each recipient
	// reached other than SenderID.
	DeliveredMessageID string
	SenderID           string
}

func reply(event protocol.Outbound) Effect {
	return Effect{Kind: EffectReply, Event: event}
}

func (g *Gateway) apply(ctx context.Context, s *Session, effects []Effect) {
	for _, e := range effects {
		if e.Durable {
			g.applyDurable(ctx, s, e)
			continue
		}

		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			log.Printf("dropping effect for closed session conn_id=%s effect=%s", s.ID(), e.Kind)
			continue
		}
		g.applyLocked(s, e)
		s.mu.Unlock()
	}
}

// applyLocked runs with s.mu held so Disconnect cannot interleave with the mutation.
func (g *Gateway) applyLocked(s *Session, e Effect) {
	switch e.Kind {
	case EffectReply:
		s.peer.Send(e.Event)
	case EffectRegister:
		if s.userID != "" && s.userID != e.UserID {
			g.registry.Unregister(s.userID, s.peer)
		}
		s.userID = e.UserID
		if superseded := g.registry.Register(e.UserID, s.peer); superseded != nil {
			log.Printf("presence superseded user_id=%s old_conn_id=%s new_conn_id=%s", e.UserID, superseded.ID(), s.ID())
		}
	case EffectJoin:
		g.rooms.Join(e.ConversationID, s.peer, s.userID)
		g.broadcastRoom(e.ConversationID, e.Event, "", "")
	case EffectLeave:
		if !g.rooms.IsMember(e.ConversationID, s.peer) {
			return
		}
		g.broadcastRoom(e.ConversationID, e.Event, "", "")
		g.rooms.Leave(e.ConversationID, s.peer)
	case EffectStartTyping:
		change := g.typing.Start(e.ConversationID, s.userID, s.ID())
		g.broadcastRoom(change.ConversationID, protocol.NewUserEvent(protocol.TypeUserTyping, change.UserID, change.ConversationID), s.ID(), "")
	case EffectStopTyping:
		change, ok := g.typing.Stop(e.ConversationID, s.userID)
		if !ok {
			return
		}
		g.broadcastRoom(change.ConversationID, protocol.NewUserEvent(protocol.TypeUserStoppedTyping, change.UserID, change.ConversationID), s.ID(), "")
	case EffectBroadcastAll:
		g.broadcastAll(e.Event, e.ExcludePeer)
	case EffectBroadcastRoom:
		g.broadcastRoom(e.ConversationID, e.Event, e.ExcludePeer, e.ExcludeUser)
	}
}

func (g *Gateway) applyDurable(ctx context.Context, s *Session, e Effect) {
	switch e.Kind {
	case EffectBroadcastRoom:
		g.fanOut(ctx, e)
	case EffectBroadcastAll:
		g.broadcastAll(e.Event, e.ExcludePeer)
	default:
		log.Printf("effect cannot be durable conn_id=%s effect=%s", s.ID(), e.Kind)
	}
}

func (g *Gateway) fanOut(ctx context.Context, e Effect) {
	reached := g.broadcastRoom(e.ConversationID, e.Event, e.ExcludePeer, e.ExcludeUser)
	if e.DeliveredMessageID != "" {
		g.markDelivered(context.WithoutCancel(ctx), e.DeliveredMessageID, e.SenderID, reached)
	}
}

// broadcastRoom sends event to every room member except the excluded
// connection or user and returns the distinct user ids reached.
func (g *Gateway) broadcastRoom(conversationID string, event protocol.Outbound, excludePeer, excludeUser string) []string {
	members := g.rooms.Members(conversationID)
	seen := make(map[string]struct{}, len(members))
	var reached []string
	sent := 0
	for _, m := range members {
		if excludePeer != "" && m.Peer.ID() == excludePeer {
			continue
		}
		if excludeUser != "" && m.UserID == excludeUser {
			continue
		}
		m.Peer.Send(event)
		sent++
		if m.UserID == "" {
			continue
		}
		if _, ok := seen[m.UserID]; !ok {
			seen[m.UserID] = struct{}{}
			reached = append(reached, m.UserID)
		}
	}
	observability.ObserveBroadcast(string(event.Type), sent)
	return reached
}

func (g *Gateway) broadcastAll(event protocol.Outbound, excludePeer string) {
	g.mu.RLock()
	peers := make([]*Session, 0, len(g.sessions))
	for _, s := range g.sessions {
		if s.ID() != excludePeer {
			peers = append(peers, s)
		}
	}
	g.mu.RUnlock()

	for _, s := range peers {
		s.peer.Send(event)
	}
	observability.ObserveBroadcast(string(event.Type), len(peers))
}

func (g *Gateway) markDelivered(ctx context.Context, messageID, senderID string, recipients []string) {
	for _, userID := range recipients {
		if userID == senderID {
			continue
		}
		created, err := g.receipts.MarkDelivered(ctx, messageID, userID)
		if err != nil {
			log.Printf("mark delivered failed message_id=%s user_id=%s: %v", messageID, userID, err)
			continue
		}
		if created {
			observability.IncReceipt("delivered")
		}
	}
}
