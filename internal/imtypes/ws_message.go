package imtypes

import (
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

// EventType is the "type" discriminator of a live-channel frame.
type EventType string

const (
	TypeFriendAdded     EventType = "friend_added"
	TypeFriendRemoved   EventType = "friend_removed"
	TypeUserOnline      EventType = "user_online"
	TypeUserOffline     EventType = "user_offline"
	TypeWebRTCSignal    EventType = "webrtc_signal"
	TypeMessageReceived EventType = "message_received"
	TypePing            EventType = "ping"
	TypePong            EventType = "pong"
)

// Event is a frame exchanged over the live channel. The set of implementations is closed:
// only the types in this file satisfy it.
type Event interface {
	EventType() EventType
	isEvent()
}

// FriendAdded tells a user that a friendship involving them became accepted.
type FriendAdded struct {
	FriendID       uuid.UUID `json:"friend_id"`
	FriendUsername string    `json:"friend_username"`
	FriendCode     string    `json:"friend_code"`
}

// FriendRemoved tells a user that FriendID removed the friendship.
type FriendRemoved struct {
	FriendID uuid.UUID `json:"friend_id"`
}

// UserOnline 用户上线通知。
type UserOnline struct {
	UserID uuid.UUID `json:"user_id"`
}

// UserOffline 用户下线通知。
type UserOffline struct {
	UserID uuid.UUID `json:"user_id"`
}

// WebRTCSignal carries an opaque negotiation payload between two peers.
// FromUserID is assigned by the server; Decode never reads it from the wire.
type WebRTCSignal struct {
	FromUserID uuid.UUID       `json:"from_user_id"`
	ToUserID   uuid.UUID       `json:"to_user_id"`
	Signal     json.RawMessage `json:"signal"`
}

// MessageReceived is pushed to the receiver after a message has been persisted.
type MessageReceived struct {
	MessageID uuid.UUID `json:"message_id"`
	SenderID  uuid.UUID `json:"sender_id"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

type Ping struct{}

type Pong struct{}

// Unknown is what Decode yields for a discriminator it does not recognise.
// Receivers ignore it.
type Unknown struct {
	Type EventType `json:"-"`
}

func (FriendAdded) EventType() EventType     { return TypeFriendAdded }
func (FriendRemoved) EventType() EventType   { return TypeFriendRemoved }
func (UserOnline) EventType() EventType      { return TypeUserOnline }
func (UserOffline) EventType() EventType     { return TypeUserOffline }
func (WebRTCSignal) EventType() EventType    { return TypeWebRTCSignal }
func (MessageReceived) EventType() EventType { return TypeMessageReceived }
func (Ping) EventType() EventType            { return TypePing }
func (Pong) EventType() EventType            { return TypePong }
func (u Unknown) EventType() EventType       { return u.Type }

func (FriendAdded) isEvent()     {}
func (FriendRemoved) isEvent()   {}
func (UserOnline) isEvent()      {}
func (UserOffline) isEvent()     {}
func (WebRTCSignal) isEvent()    {}
func (MessageReceived) isEvent() {}
func (Ping) isEvent()            {}
func (Pong) isEvent()            {}
func (Unknown) isEvent()         {}
