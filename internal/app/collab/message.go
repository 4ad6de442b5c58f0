/*
Package collab contains the real-time collaboration coordinator: the connection registry,
the room store, presence, cursors, shared state, messaging and connection lifecycle.

This file defines the wire protocol. Every frame is a JSON object {type, payload};
frames sent by the server also carry a unix-millisecond timestamp.
*/
package collab

import (
	"encoding/json"
	"time"

	"collabhub/internal/app/state"
	"collabhub/internal/app/user"
)

// EventType names one protocol event.
type EventType string

// Inbound events (client to server).
const (
	TypeAuthenticate EventType = "authenticate"
	TypeJoinRoom     EventType = "join-room"
	TypeLeaveRoom    EventType = "leave-room"
	TypeCursorMove   EventType = "cursor-move"
	TypeCursorLeave  EventType = "cursor-leave"
	TypeStateUpdate  EventType = "state-update"
	TypeStateReplace EventType = "state-replace"
	TypeTypingStart  EventType = "typing-start"
	TypeTypingStop   EventType = "typing-stop"
	TypeActivity     EventType = "activity"

	// TypeChatMessage is used in both directions.
	TypeChatMessage EventType = "chat-message"
)

// Outbound events (server to client).
const (
	TypeAuthenticated     EventType = "authenticated"
	TypeRoomJoined        EventType = "room-joined"
	TypeRoomLeft          EventType = "room-left"
	TypeUserJoined        EventType = "user-joined"
	TypeUserLeft          EventType = "user-left"
	TypeCursorUpdate      EventType = "cursor-update"
	TypeCursorRemoved     EventType = "cursor-removed"
	TypeStateSync         EventType = "state-sync"
	TypeStateReplaced     EventType = "state-replaced"
	TypeUserTyping        EventType = "user-typing"
	TypeUserStoppedTyping EventType = "user-stopped-typing"
	TypeUserActivity      EventType = "user-activity"
	TypeServerShutdown    EventType = "server-shutdown"
	TypeError             EventType = "error"
)

// ChatKindMessage is the kind of every chat message; no other kind is emitted.
const ChatKindMessage = "message"

// Update types accepted in state-update.
const (
	UpdateSet    = "set"
	UpdateDelete = "delete"
)

// Activity statuses accepted in activity.
const (
	ActivityActive = "active"
	ActivityIdle   = "idle"
	ActivityAway   = "away"
)

// InboundFrame is the envelope of every client frame.
type InboundFrame struct {
	Type    EventType       `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`

	// TempID is echoed on the sender's copy of a chat message.
	TempID string `json:"tempId,omitempty"`
}

// OutboundFrame is the envelope of every server frame.
type OutboundFrame struct {
	Type      EventType `json:"type"`
	Payload   any       `json:"payload"`
	Timestamp int64     `json:"timestamp"`
}

// NewFrame encodes an outbound frame stamped with the current time.
func NewFrame(eventType EventType, payload any) ([]byte, error) {
	return json.Marshal(OutboundFrame{
		Type:      eventType,
		Payload:   payload,
		Timestamp: time.Now().UnixMilli(),
	})
}

// --- inbound payloads ---

type AuthenticatePayload struct {
	user.User

	// Token is required instead of the identity fields when the server runs in jwt mode.
	Token string `json:"token,omitempty"`
}

type JoinRoomPayload struct {
	RoomID   string `json:"roomId"`
	RoomName string `json:"roomName,omitempty"`
	RoomKind string `json:"roomKind,omitempty"`
}

// RoomPayload carries only the target room (leave-room, cursor-leave, typing-*).
type RoomPayload struct {
	RoomID string `json:"roomId"`
}

type CursorMovePayload struct {
	RoomID string   `json:"roomId"`
	X      *float64 `json:"x"`
	Y      *float64 `json:"y"`
}

// StateUpdate is one path-addressed write. Type defaults to "set".
type StateUpdate struct {
	Type  string          `json:"type"`
	Path  []string        `json:"path"`
	Value json.RawMessage `json:"value,omitempty"`
}

type StateUpdatePayload struct {
	RoomID string      `json:"roomId"`
	Update StateUpdate `json:"update"`
}

type StateReplacePayload struct {
	RoomID string          `json:"roomId"`
	State  json.RawMessage `json:"state"`
}

type ChatMessagePayload struct {
	RoomID  string `json:"roomId"`
	Content string `json:"content"`
}

type ActivityPayload struct {
	RoomID string `json:"roomId"`
	Status string `json:"type"`
}

// --- outbound payloads ---

type AuthenticatedPayload struct {
	Success bool       `json:"success"`
	User    *user.User `json:"user,omitempty"`
}

// RoomInfo is the room metadata part of a snapshot.
type RoomInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Kind        string `json:"kind"`
	CreatedAt   int64  `json:"createdAt"`
	UpdatedAt   int64  `json:"updatedAt"`
	MemberCount int    `json:"memberCount"`
}

// MemberInfo is one entry of a snapshot's member list.
type MemberInfo struct {
	user.User
	JoinedAt     int64 `json:"joinedAt"`
	LastActivity int64 `json:"lastActivity"`
}

// CursorEntry is the broadcast form of a cursor and also its stored form.
type CursorEntry struct {
	UserID   string  `json:"userId"`
	UserName string  `json:"userName"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Color    string  `json:"color"`
}

// Snapshot is delivered to the joiner in room-joined and returned by the admin room lookup.
type Snapshot struct {
	RoomID  string        `json:"roomId"`
	Room    RoomInfo      `json:"room"`
	Users   []MemberInfo  `json:"users"`
	Cursors []CursorEntry `json:"cursors"`
	State   *state.Value  `json:"state"`
}

type UserEventPayload struct {
	User      user.User `json:"user"`
	UserCount int       `json:"userCount"`
}

type RoomLeftPayload struct {
	RoomID string `json:"roomId"`
}

type CursorRemovedPayload struct {
	UserID string `json:"userId"`
}

type StateSyncPayload struct {
	Update    StateUpdate `json:"update"`
	UserID    string      `json:"userId"`
	Timestamp int64       `json:"timestamp"`
}

type StateReplacedPayload struct {
	State     *state.Value `json:"state"`
	UserID    string       `json:"userId"`
	Timestamp int64        `json:"timestamp"`
}

// ChatMessage is the canonical record of one chat message. No history is kept.
type ChatMessage struct {
	ID        string `json:"id"`
	RoomID    string `json:"roomId"`
	UserID    string `json:"userId"`
	UserName  string `json:"userName"`
	Content   string `json:"content"`
	Timestamp int64  `json:"timestamp"`
	Kind      string `json:"type"`
	TempID    string `json:"tempId,omitempty"`
}

type TypingPayload struct {
	UserID   string `json:"userId"`
	UserName string `json:"userName,omitempty"`
}

type ActivityBroadcastPayload struct {
	UserID string `json:"userId"`
	Status string `json:"type"`
}

type ShutdownPayload struct {
	Message string `json:"message"`
}

type ErrorPayload struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}
