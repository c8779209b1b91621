package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var ErrMalformed = errors.New("malformed event")

// Decode parses a client frame into its typed event and checks required fields.
func Decode(frame []byte) (Event, error) {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	switch env.Type {
	case TypeRegisterUser:
		return RegisterUser{}, nil
	case TypeJoinConversation:
		var ev JoinConversation
		if err := decodeData(env, &ev); err != nil {
			return nil, err
		}
		return ev, requireField("conversation_id", ev.ConversationID)
	case TypeLeaveConversation:
		var ev LeaveConversation
		if err := decodeData(env, &ev); err != nil {
			return nil, err
		}
		return ev, requireField("conversation_id", ev.ConversationID)
	case TypeSendMessage:
		var ev SendMessage
		if err := decodeData(env, &ev); err != nil {
			return nil, err
		}
		if err := requireField("conversation_id", ev.ConversationID); err != nil {
			return nil, err
		}
		return ev, requireField("message_id", ev.MessageID)
	case TypeTyping:
		var ev Typing
		if err := decodeData(env, &ev); err != nil {
			return nil, err
		}
		return ev, requireField("conversation_id", ev.ConversationID)
	case TypeStopTyping:
		var ev StopTyping
		if err := decodeData(env, &ev); err != nil {
			return nil, err
		}
		return ev, requireField("conversation_id", ev.ConversationID)
	case TypeAddReaction:
		var ev AddReaction
		if err := decodeData(env, &ev); err != nil {
			return nil, err
		}
		for field, value := range map[string]string{"conversation_id": ev.ConversationID, "message_id": ev.MessageID, "emoji": ev.Emoji} {
			if err := requireField(field, value); err != nil {
				return nil, err
			}
		}
		return ev, nil
	case TypeMessageRead:
		var ev MessageRead
		if err := decodeData(env, &ev); err != nil {
			return nil, err
		}
		if err := requireField("conversation_id", ev.ConversationID); err != nil {
			return nil, err
		}
		return ev, requireField("message_id", ev.MessageID)
	case TypeUpdateConversation:
		var ev UpdateConversation
		if err := decodeData(env, &ev); err != nil {
			return nil, err
		}
		return ev, requireField("conversation_id", ev.ConversationID)
	case "":
		return nil, fmt.Errorf("%w: missing type", ErrMalformed)
	default:
		return nil, fmt.Errorf("%w: unknown type %q", ErrMalformed, env.Type)
	}
}

func decodeData(env Envelope, target any) error {
	if len(env.Data) == 0 {
		return fmt.Errorf("%w: %s requires data", ErrMalformed, env.Type)
	}
	if err := json.Unmarshal(env.Data, target); err != nil {
		return fmt.Errorf("%w: invalid %s payload: %v", ErrMalformed, env.Type, err)
	}
	return nil
}

func requireField(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%w: %s is required", ErrMalformed, field)
	}
	return nil
}
