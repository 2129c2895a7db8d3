package imtypes

import (
	"errors"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

// ErrMalformedEvent is returned by Decode for frames that are not a JSON object with a
// string "type" field, or whose payload does not match the declared type.
var ErrMalformedEvent = errors.New("malformed event")

// Encode serialises ev as a flat JSON object whose first member is "type".
func Encode(ev Event) ([]byte, error) {
	if ev == nil {
		return nil, errors.New("encode: nil event")
	}
	body, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("encode %s event: %w", ev.EventType(), err)
	}
	typ, err := json.Marshal(string(ev.EventType()))
	if err != nil {
		return nil, fmt.Errorf("encode event type: %w", err)
	}

	out := make([]byte, 0, len(body)+len(typ)+10)
	out = append(out, `{"type":`...)
	out = append(out, typ...)
	// every variant marshals to an object; "{}" has no members to carry over
	if len(body) > 2 {
		out = append(out, ',')
		out = append(out, body[1:]...)
		return out, nil
	}
	return append(out, '}'), nil
}

// Decode parses one frame. Unrecognised types decode to Unknown without error.
func Decode(data []byte) (Event, error) {
	var head struct {
		Type EventType `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}

	switch head.Type {
	case TypePing:
		return Ping{}, nil
	case TypePong:
		return Pong{}, nil
	case TypeUserOnline:
		return decodeAs[UserOnline](data)
	case TypeUserOffline:
		return decodeAs[UserOffline](data)
	case TypeFriendAdded:
		return decodeAs[FriendAdded](data)
	case TypeFriendRemoved:
		return decodeAs[FriendRemoved](data)
	case TypeMessageReceived:
		return decodeAs[MessageReceived](data)
	case TypeWebRTCSignal:
		var in struct {
			ToUserID uuid.UUID       `json:"to_user_id"`
			Signal   json.RawMessage `json:"signal"`
		}
		if err := json.Unmarshal(data, &in); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrMalformedEvent, head.Type, err)
		}
		return WebRTCSignal{ToUserID: in.ToUserID, Signal: in.Signal}, nil
	case "":
		return nil, fmt.Errorf("%w: missing type", ErrMalformedEvent)
	default:
		return Unknown{Type: head.Type}, nil
	}
}

func decodeAs[T Event](data []byte) (Event, error) {
	var ev T
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedEvent, ev.EventType(), err)
	}
	return ev, nil
}
