// Package typing keeps the ephemeral "is typing" state per conversation and
// user, expiring it when no renewal arrives within the quiescence window.
package typing

import (
	"sync"
	"time"
)

// DefaultTimeout is the quiescence window after which an unrenewed typing state expires.
const DefaultTimeout = 5 * time.Second

// Change describes a transition the room should be told about.
type Change struct {
	ConversationID string
	UserID         string
	OwnerID        string
	Typing         bool
	Expired        bool
}

type key struct {
	conversationID string
	userID         string
}

type state struct {
	ownerID string
	timer   Timer
	gen     uint64
}

// Tracker owns one expiry timer per (conversation, user) pair.
type Tracker struct {
	mu       sync.Mutex
	timeout  time.Duration
	clock    Clock
	onExpire func(Change)
	states   map[key]*state
	gen      uint64
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithClock replaces the wall clock used to arm expiry timers.
func WithClock(clock Clock) Option {
	return func(t *Tracker) { t.clock = clock }
}

// New builds a Tracker. onExpire runs on the timer goroutine, once per expired state.
func New(timeout time.Duration, onExpire func(Change), opts ...Option) *Tracker {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	t := &Tracker{
		timeout:  timeout,
		clock:    realClock{},
		onExpire: onExpire,
		states:   make(map[key]*state),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Start marks the user as typing, replacing any armed timer for the pair.
func (t *Tracker) Start(conversationID, userID, ownerID string) Change {
	k := key{conversationID: conversationID, userID: userID}

	t.mu.Lock()
	if prev, ok := t.states[k]; ok {
		prev.timer.Stop()
	}
	t.gen++
	gen := t.gen
	t.states[k] = &state{
		ownerID: ownerID,
		gen:     gen,
		timer:   t.clock.AfterFunc(t.timeout, func() { t.expire(k, gen) }),
	}
	t.mu.Unlock()

	return Change{ConversationID: conversationID, UserID: userID, OwnerID: ownerID, Typing: true}
}

// Stop clears the typing state. The second result is false when nothing was tracked.
func (t *Tracker) Stop(conversationID, userID string) (Change, bool) {
	k := key{conversationID: conversationID, userID: userID}

	t.mu.Lock()
	s, ok := t.states[k]
	if ok {
		s.timer.Stop()
		delete(t.states, k)
	}
	t.mu.Unlock()

	if !ok {
		return Change{}, false
	}
	return Change{ConversationID: conversationID, UserID: userID, OwnerID: s.ownerID}, true
}

// CancelOwner drops every state armed by the given connection and returns the stops to announce.
func (t *Tracker) CancelOwner(ownerID string) []Change {
	t.mu.Lock()
	defer t.mu.Unlock()

	var changes []Change
	for k, s := range t.states {
		if s.ownerID != ownerID {
			continue
		}
		s.timer.Stop()
		delete(t.states, k)
		changes = append(changes, Change{ConversationID: k.conversationID, UserID: k.userID, OwnerID: ownerID})
	}
	return changes
}

// Active reports whether the user is currently typing in the conversation.
func (t *Tracker) Active(conversationID, userID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.states[key{conversationID: conversationID, userID: userID}]
	return ok
}

// expire fires at most once per armed generation; a stale callback that lost
// the race with Stop or a renewal finds a different generation and returns.
func (t *Tracker) expire(k key, gen uint64) {
	t.mu.Lock()
	s, ok := t.states[k]
	if !ok || s.gen != gen {
		t.mu.Unlock()
		return
	}
	delete(t.states, k)
	t.mu.Unlock()

	if t.onExpire != nil {
		t.onExpire(Change{ConversationID: k.conversationID, UserID: k.userID, OwnerID: s.ownerID, Expired: true})
	}
}
