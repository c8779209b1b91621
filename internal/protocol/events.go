package protocol

import (
	"encoding/json"
	"time"
)

// EventType names a websocket event.
type EventType string

const (
	// Client -> Gateway
	TypeRegisterUser       EventType = "register_user"
	TypeJoinConversation   EventType = "join_conversation"
	TypeLeaveConversation  EventType = "leave_conversation"
	TypeSendMessage        EventType = "send_message"
	TypeTyping             EventType = "typing"
	TypeStopTyping         EventType = "stop_typing"
	TypeAddReaction        EventType = "add_reaction"
	TypeMessageRead        EventType = "message_read"
	TypeUpdateConversation EventType = "update_conversation"

	// Gateway -> Client
	TypeUserOnline          EventType = "user_online"
	TypeUserRegistered      EventType = "user_registered"
	TypeUserJoined          EventType = "user_joined"
	TypeUserLeft            EventType = "user_left"
	TypeUserOffline         EventType = "user_offline"
	TypeMessageReceived     EventType = "message_received"
	TypeUserTyping          EventType = "user_typing"
	TypeUserStoppedTyping   EventType = "user_stopped_typing"
	TypeReactionAdded       EventType = "reaction_added"
	TypeMessageMarkedRead   EventType = "message_marked_read"
	TypeConversationUpdated EventType = "conversation_updated"
	TypeError               EventType = "error"
)

// Envelope wraps every frame with its type.
type Envelope struct {
	Type EventType       `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Event is an inbound event decoded from a client frame.
type Event interface {
	Type() EventType
}

type RegisterUser struct{}

type JoinConversation struct {
	ConversationID string `json:"conversation_id"`
}

type LeaveConversation struct {
	ConversationID string `json:"conversation_id"`
}

type SendMessage struct {
	ConversationID string    `json:"conversation_id"`
	MessageID      string    `json:"message_id"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
}

type Typing struct {
	ConversationID string `json:"conversation_id"`
}

type StopTyping struct {
	ConversationID string `json:"conversation_id"`
}

type AddReaction struct {
	ConversationID string `json:"conversation_id"`
	MessageID      string `json:"message_id"`
	Emoji          string `json:"emoji"`
}

type MessageRead struct {
	MessageID      string `json:"message_id"`
	ConversationID string `json:"conversation_id"`
}

type UpdateConversation struct {
	ConversationID    string     `json:"conversation_id"`
	TotalMessageCount int        `json:"total_message_count"`
	LastMessageID     string     `json:"last_message_id"`
	LastMessageAt     *time.Time `json:"last_message_at,omitempty"`
}

func (RegisterUser) Type() EventType       { return TypeRegisterUser }
func (JoinConversation) Type() EventType   { return TypeJoinConversation }
func (LeaveConversation) Type() EventType  { return TypeLeaveConversation }
func (SendMessage) Type() EventType        { return TypeSendMessage }
func (Typing) Type() EventType             { return TypeTyping }
func (StopTyping) Type() EventType         { return TypeStopTyping }
func (AddReaction) Type() EventType        { return TypeAddReaction }
func (MessageRead) Type() EventType        { return TypeMessageRead }
func (UpdateConversation) Type() EventType { return TypeUpdateConversation }

// Outbound is an event pushed to clients.
type Outbound struct {
	Type EventType
	Data any
}

// MarshalJSON encodes the outbound event as an Envelope.
func (o Outbound) MarshalJSON() ([]byte, error) {
	var raw json.RawMessage
	if o.Data != nil {
		b, err := json.Marshal(o.Data)
		if err != nil {
			return nil, err
		}
		raw = b
	}
	return json.Marshal(Envelope{Type: o.Type, Data: raw})
}

// UserEvent carries the user a presence, room or typing event is about.
type UserEvent struct {
	UserID         string `json:"userId"`
	ConversationID string `json:"conversation_id,omitempty"`
}

type MessageReceived struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	Content        string    `json:"content"`
	SenderID       string    `json:"sender_id"`
	CreatedAt      time.Time `json:"created_at"`
}

type ReactionAdded struct {
	MessageID string `json:"message_id"`
	Emoji     string `json:"emoji"`
	UserID    string `json:"userId"`
}

type MessageMarkedRead struct {
	MessageID string `json:"message_id"`
	UserID    string `json:"userId"`
}

type ConversationUpdated struct {
	ConversationID    string     `json:"conversation_id"`
	TotalMessageCount int        `json:"total_message_count"`
	LastMessageID     string     `json:"last_message_id,omitempty"`
	LastMessageAt     *time.Time `json:"last_message_at,omitempty"`
}

type ErrorMessage struct {
	Message string `json:"message"`
}

func NewUserEvent(t EventType, userID, conversationID string) Outbound {
	return Outbound{Type: t, Data: UserEvent{UserID: userID, ConversationID: conversationID}}
}

func NewError(message string) Outbound {
	return Outbound{Type: TypeError, Data: ErrorMessage{Message: message}}
}
