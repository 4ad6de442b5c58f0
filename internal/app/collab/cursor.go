package collab

import (
	"time"

	"collabhub/internal/pkg/errs"
)

// MoveCursor upserts the caller's cursor and relays it to the other members.
func (m *Manager) MoveCursor(c *Client, roomID string, x, y float64) *errs.CustomError {
	room, member, err := m.lockMembership(c, roomID)
	if err != nil {
		return err
	}
	defer room.mu.Unlock()

	now := time.Now()
	entry := &CursorEntry{
		UserID:   member.User.ID,
		UserName: member.User.Name,
		X:        x,
		Y:        y,
		Color:    ColorFor(member.User),
	}
	room.cursors[member.User.ID] = entry
	member.LastActivity = now

	m.fanOutLocked(room, TypeCursorUpdate, *entry, c.ID)
	return nil
}

// ClearCursor removes the caller's cursor. Clearing an absent cursor is a no-op.
func (m *Manager) ClearCursor(c *Client, roomID string) *errs.CustomError {
	room, member, err := m.lockMembership(c, roomID)
	if err != nil {
		return err
	}
	defer room.mu.Unlock()

	if _, ok := room.cursors[member.User.ID]; !ok {
		return nil
	}
	delete(room.cursors, member.User.ID)

	m.fanOutLocked(room, TypeCursorRemoved, CursorRemovedPayload{UserID: member.User.ID}, c.ID)
	return nil
}
