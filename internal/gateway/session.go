package gateway

import (
	"sync"
	"time"

	"chat-gateway/internal/presence"
)

// Session is the gateway's view of one authenticated connection.
type Session struct {
	peer        presence.Peer
	token       string
	subject     string
	connectedAt time.Time

	mu     sync.Mutex
	userID string
	closed bool
}

func (s *Session) ID() string {
	return s.peer.ID()
}

func (s *Session) Peer() presence.Peer {
	return s.peer
}

// Subject is the verified token subject from the handshake.
func (s *Session) Subject() string {
	return s.subject
}

func (s *Session) ConnectedAt() time.Time {
	return s.connectedAt
}

// UserID is the identity resolved by register_user, empty before registration.
func (s *Session) UserID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userID
}

func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
