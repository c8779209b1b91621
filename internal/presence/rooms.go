package presence

import "sync"

// Member is one connection subscribed to a room.
type Member struct {
	Peer   Peer
	UserID string
}

// Rooms maps a conversation id to the connections currently subscribed to it.
type Rooms struct {
	mu     sync.RWMutex
	rooms  map[string]map[string]Member
	joined map[string]map[string]struct{}
}

// NewRooms creates an empty room index.
func NewRooms() *Rooms {
	return &Rooms{
		rooms:  make(map[string]map[string]Member),
		joined: make(map[string]map[string]struct{}),
	}
}

// Join subscribes peer to the conversation room.
func (r *Rooms) Join(conversationID string, peer Peer, userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rooms[conversationID]; !ok {
		r.rooms[conversationID] = make(map[string]Member)
	}
	r.rooms[conversationID][peer.ID()] = Member{Peer: peer, UserID: userID}
	if _, ok := r.joined[peer.ID()]; !ok {
		r.joined[peer.ID()] = make(map[string]struct{})
	}
	r.joined[peer.ID()][conversationID] = struct{}{}
}

// Leave unsubscribes peer and reports whether it was a member.
func (r *Rooms) Leave(conversationID string, peer Peer) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.leaveLocked(conversationID, peer.ID())
}

// LeaveAll removes peer from every room and returns the rooms it left.
func (r *Rooms) LeaveAll(peer Peer) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var left []string
	for conversationID := range r.joined[peer.ID()] {
		if r.leaveLocked(conversationID, peer.ID()) {
			left = append(left, conversationID)
		}
	}
	return left
}

func (r *Rooms) leaveLocked(conversationID, peerID string) bool {
	members, ok := r.rooms[conversationID]
	if !ok {
		return false
	}
	if _, ok := members[peerID]; !ok {
		return false
	}
	delete(members, peerID)
	if len(members) == 0 {
		delete(r.rooms, conversationID)
	}
	if convs, ok := r.joined[peerID]; ok {
		delete(convs, conversationID)
		if len(convs) == 0 {
			delete(r.joined, peerID)
		}
	}
	return true
}

// Members returns a snapshot of the room's subscribers.
func (r *Rooms) Members(conversationID string) []Member {
	r.mu.RLock()
	defer r.mu.RUnlock()
	members := make([]Member, 0, len(r.rooms[conversationID]))
	for _, m := range r.rooms[conversationID] {
		members = append(members, m)
	}
	return members
}

// IsMember reports whether peer is subscribed to the room.
func (r *Rooms) IsMember(conversationID string, peer Peer) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.rooms[conversationID][peer.ID()]
	return ok
}
