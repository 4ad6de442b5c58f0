package collab

import (
	"strings"
	"time"
	"unicode/utf8"

	"collabhub/internal/pkg/errs"
	"collabhub/internal/pkg/randx"
)

// MaxContentBytes is the maximum size of a chat message's content.
const MaxContentBytes = 5000

// Chat broadcasts a chat message to every member, the sender included, so the
// sender renders the server-assigned id and timestamp. A non-empty tempID is
// echoed on the sender's copy only.
func (m *Manager) Chat(c *Client, roomID, content, tempID string) (*ChatMessage, *errs.CustomError) {
	if _, ok := c.Identity(); !ok {
		return nil, errs.NewError(errs.ErrUnauthenticated)
	}

	if strings.TrimSpace(content) == "" {
		return nil, errs.NewError(errs.ErrMessageContentEmpty)
	}
	if len(content) > MaxContentBytes {
		return nil, errs.NewError(errs.ErrMessageContentTooLong)
	}
	if !utf8.ValidString(content) {
		return nil, errs.NewError(errs.ErrMalformedPayload, "content is not valid UTF-8")
	}

	room, member, err := m.lockMembership(c, roomID)
	if err != nil {
		return nil, err
	}
	defer room.mu.Unlock()

	msg := ChatMessage{
		ID:        randx.MessageID(),
		RoomID:    room.ID,
		UserID:    member.User.ID,
		UserName:  member.User.Name,
		Content:   content,
		Timestamp: time.Now().UnixMilli(),
		Kind:      ChatKindMessage,
	}

	if tempID == "" {
		m.fanOutLocked(room, TypeChatMessage, msg, "")
		return &msg, nil
	}

	m.fanOutLocked(room, TypeChatMessage, msg, c.ID)

	own := msg
	own.TempID = tempID
	c.sendFrame(TypeChatMessage, own)

	return &own, nil
}

// Typing relays a typing-start (started) or typing-stop signal to the other members.
func (m *Manager) Typing(c *Client, roomID string, started bool) *errs.CustomError {
	room, member, err := m.lockMembership(c, roomID)
	if err != nil {
		return err
	}
	defer room.mu.Unlock()

	eventType := TypeUserStoppedTyping
	if started {
		eventType = TypeUserTyping
	}

	m.fanOutLocked(room, eventType, TypingPayload{UserID: member.User.ID, UserName: member.User.Name}, c.ID)
	return nil
}

// Activity records the member's activity status and relays it to the other members.
func (m *Manager) Activity(c *Client, roomID, status string) *errs.CustomError {
	if _, ok := c.Identity(); !ok {
		return errs.NewError(errs.ErrUnauthenticated)
	}

	switch status {
	case ActivityActive, ActivityIdle, ActivityAway:
	default:
		return errs.NewError(errs.ErrMalformedPayload, "unknown activity status "+status)
	}

	room, member, err := m.lockMembership(c, roomID)
	if err != nil {
		return err
	}
	defer room.mu.Unlock()

	member.LastActivity = time.Now()

	m.fanOutLocked(room, TypeUserActivity, ActivityBroadcastPayload{UserID: member.User.ID, Status: status}, c.ID)
	return nil
}
