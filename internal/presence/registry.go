// Package presence tracks which connection speaks for each user and which
// connections are subscribed to each conversation room.
package presence

import (
	"sort"
	"sync"

	"chat-gateway/internal/protocol"
)

// Peer is a live client connection able to receive events.
type Peer interface {
	ID() string
	Send(event protocol.Outbound)
}

// Registry maps a resolved user id to its single active connection.
type Registry struct {
	mu    sync.RWMutex
	peers map[string]Peer
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{peers: make(map[string]Peer)}
}

// Register stores peer for userID and returns the connection it superseded, if any.
func (r *Registry) Register(userID string, peer Peer) Peer {
	r.mu.Lock()
	defer r.mu.Unlock()
	previous := r.peers[userID]
	r.peers[userID] = peer
	if previous != nil && previous.ID() == peer.ID() {
		return nil
	}
	return previous
}

// Unregister removes userID only while peer is still its registered connection.
func (r *Registry) Unregister(userID string, peer Peer) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.peers[userID]
	if !ok || current.ID() != peer.ID() {
		return false
	}
	delete(r.peers, userID)
	return true
}

// Lookup returns the registered connection for userID.
func (r *Registry) Lookup(userID string) (Peer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	peer, ok := r.peers[userID]
	return peer, ok
}

// Online lists registered user ids in sorted order.
func (r *Registry) Online() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.peers))
	for id := range r.peers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
