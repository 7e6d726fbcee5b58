package types

import (
	"context"
	"time"
)

// Event names delivered to clients.
const (
	EventUserOnline      = "UserOnline"
	EventUserOffline     = "UserOffline"
	EventUserJoinedRoom  = "UserJoinedRoom"
	EventUserLeftRoom    = "UserLeftRoom"
	EventReceiveMessage  = "ReceiveMessage"
	EventTypingIndicator = "TypingIndicator"
	EventError           = "Error"
)

// Envelope is the wire frame written to a client connection.
type Envelope struct {
	Event     string    `json:"event"`
	Data      any       `json:"data,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Command is an inbound client frame read off a connection.
type Command struct {
	Action   string `json:"action"`
	RoomID   string `json:"room_id,omitempty"`
	Content  string `json:"content,omitempty"`
	IsTyping bool   `json:"is_typing,omitempty"`
}

// Client command actions.
const (
	ActionJoin   = "join"
	ActionLeave  = "leave"
	ActionSend   = "send"
	ActionTyping = "typing"
)

// PresencePayload announces a user going online or offline.
type PresencePayload struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
}

// RoomEventPayload announces a user joining or leaving a room.
type RoomEventPayload struct {
	RoomID   string `json:"room_id"`
	UserID   string `json:"user_id"`
	Username string `json:"username"`
}

// MessagePayload carries a persisted chat message to room members.
type MessagePayload struct {
	ID        int64     `json:"id"`
	Content   string    `json:"content"`
	Username  string    `json:"username"`
	RoomID    string    `json:"room_id"`
	CreatedAt time.Time `json:"created_at"`
}

// TypingPayload signals a typing-state transition to room members.
type TypingPayload struct {
	RoomID   string `json:"room_id"`
	Username string `json:"username"`
	IsTyping bool   `json:"is_typing"`
}

// ErrorPayload is sent only to the connection that caused the error.
type ErrorPayload struct {
	Message string `json:"message"`
}

// Conn abstracts a WebSocket connection for testability.
type Conn interface {
	WriteJSON(v any) error
	ReadJSON(v any) error
	Close() error
}

// UserProfile is display metadata resolved from the user directory.
type UserProfile struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// UserDirectory resolves user identifiers to display metadata.
// Resolve returns (nil, nil) for an unknown user.
type UserDirectory interface {
	Resolve(ctx context.Context, userID string) (*UserProfile, error)
}

// StoredMessage is the persistence result for a chat message.
type StoredMessage struct {
	ID        int64
	CreatedAt time.Time
}

// MessageStore persists chat messages before they are broadcast.
type MessageStore interface {
	Persist(ctx context.Context, userID, roomID, content string) (*StoredMessage, error)
}
