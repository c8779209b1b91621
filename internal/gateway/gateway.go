// Package gateway mediates every connection's events: it resolves identity,
// maintains presence and room membership, drives typing state and relays
// messages, reactions and receipts to room members.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"chat-gateway/internal/identity"
	"chat-gateway/internal/observability"
	"chat-gateway/internal/presence"
	"chat-gateway/internal/protocol"
	"chat-gateway/internal/repositories"
	"chat-gateway/internal/typing"
)

// ReceiptService applies delivery and read transitions.
type ReceiptService interface {
	MarkDelivered(ctx context.Context, messageID, readerID string) (bool, error)
	MarkRead(ctx context.Context, messageID, readerID string) (bool, error)
}

// Auditor records security relevant events.
type Auditor interface {
	Emit(ctx context.Context, level, text, requestID string, userID *string)
}

// Gateway owns the presence registry, the room index and the typing tracker.
type Gateway struct {
	registry  *presence.Registry
	rooms     *presence.Rooms
	typing    *typing.Tracker
	receipts  ReceiptService
	reactions repositories.ReactionRepository
	resolver  identity.Resolver
	auditor   Auditor
	now       func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
}

type options struct {
	typingTimeout time.Duration
	clock         typing.Clock
	auditor       Auditor
	now           func() time.Time
}

// Option configures a Gateway.
type Option func(*options)

func WithTypingTimeout(d time.Duration) Option {
	return func(o *options) { o.typingTimeout = d }
}

// WithClock drives typing expiry from clock instead of the wall clock.
func WithClock(clock typing.Clock) Option {
	return func(o *options) { o.clock = clock }
}

func WithAuditor(a Auditor) Option {
	return func(o *options) { o.auditor = a }
}

func WithNow(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// New wires a Gateway around explicitly owned presence state.
func New(registry *presence.Registry, rooms *presence.Rooms, receipts ReceiptService, reactions repositories.ReactionRepository, resolver identity.Resolver, opts ...Option) *Gateway {
	o := options{
		typingTimeout: typing.DefaultTimeout,
		now:           func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(&o)
	}

	g := &Gateway{
		registry:  registry,
		rooms:     rooms,
		receipts:  receipts,
		reactions: reactions,
		resolver:  resolver,
		auditor:   o.auditor,
		now:       o.now,
		sessions:  make(map[string]*Session),
	}
	var trackerOpts []typing.Option
	if o.clock != nil {
		trackerOpts = append(trackerOpts, typing.WithClock(o.clock))
	}
	g.typing = typing.New(o.typingTimeout, g.onTypingExpired, trackerOpts...)
	return g
}

// Connect admits an authenticated connection. token is the verified handshake token.
func (g *Gateway) Connect(peer presence.Peer, token, subject string) *Session {
	s := &Session{peer: peer, token: token, subject: subject, connectedAt: g.now()}
	g.mu.Lock()
	g.sessions[peer.ID()] = s
	g.mu.Unlock()
	return s
}

// HandleFrame decodes one client frame and dispatches it. Malformed frames
// are answered with an error event and reported as ErrProtocol.
func (g *Gateway) HandleFrame(ctx context.Context, s *Session, frame []byte) error {
	ev, err := protocol.Decode(frame)
	if err != nil {
		err = fmt.Errorf("%w: %v", ErrProtocol, err)
		log.Printf("ignoring frame conn_id=%s: %v", s.ID(), err)
		observability.IncWSEvent("chat", "protocol_error")
		g.apply(ctx, s, []Effect{reply(protocol.NewError("malformed event"))})
		return err
	}
	g.Dispatch(ctx, s, ev)
	return nil
}

// Dispatch routes a decoded event to its handler and applies the resulting effects.
func (g *Gateway) Dispatch(ctx context.Context, s *Session, ev protocol.Event) {
	observability.IncWSEvent("chat", string(ev.Type()))
	g.apply(ctx, s, g.handle(ctx, s, ev))
}

// Disconnect releases everything the session held. Calling it again is a no-op.
func (g *Gateway) Disconnect(s *Session) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	userID := s.userID
	s.mu.Unlock()

	g.mu.Lock()
	delete(g.sessions, s.ID())
	g.mu.Unlock()

	left := g.rooms.LeaveAll(s.peer)
	for _, change := range g.typing.CancelOwner(s.ID()) {
		g.broadcastRoom(change.ConversationID, protocol.NewUserEvent(protocol.TypeUserStoppedTyping, change.UserID, change.ConversationID), s.ID(), "")
	}

	offline := userID != "" && g.registry.Unregister(userID, s.peer)
	if offline {
		g.broadcastAll(protocol.NewUserEvent(protocol.TypeUserOffline, userID, ""), s.ID())
	}
	log.Printf("connection closed conn_id=%s user_id=%s rooms_left=%d offline=%t", s.ID(), userID, len(left), offline)
}

// IsOnline reports whether userID has a registered connection.
func (g *Gateway) IsOnline(userID string) bool {
	_, ok := g.registry.Lookup(userID)
	return ok
}

// OnlineUsers lists the registered user ids.
func (g *Gateway) OnlineUsers() []string {
	return g.registry.Online()
}

// SessionCount returns the number of open sessions.
func (g *Gateway) SessionCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.sessions)
}

func (g *Gateway) onTypingExpired(change typing.Change) {
	observability.IncTypingExpired()
	g.broadcastRoom(change.ConversationID, protocol.NewUserEvent(protocol.TypeUserStoppedTyping, change.UserID, change.ConversationID), change.OwnerID, "")
}

func (g *Gateway) audit(ctx context.Context, level, text string, userID string) {
	if g.auditor == nil {
		return
	}
	var uid *string
	if userID != "" {
		uid = &userID
	}
	g.auditor.Emit(ctx, level, text, observability.RequestIDFromContext(ctx), uid)
}

func isAuthError(err error) bool {
	return errors.Is(err, identity.ErrInvalidToken) || errors.Is(err, identity.ErrMissingToken)
}
