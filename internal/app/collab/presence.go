package collab

import (
	"time"

	"collabhub/internal/app/user"
	"collabhub/internal/pkg/errs"
	"collabhub/internal/pkg/randx"
)

// Authenticate binds identity u to c and acknowledges with authenticated.
// Binding a different identity first leaves the room held under the old one.
func (m *Manager) Authenticate(c *Client, u user.User) *errs.CustomError {
	if !u.Valid() {
		return errs.NewError(errs.ErrMalformedPayload, "identity requires id and name")
	}

	if prev, ok := c.Identity(); ok && prev.ID != u.ID {
		if roomID := c.RoomID(); roomID != "" {
			m.leave(c, roomID, true)
		}
	}

	m.registry.Bind(c, u)
	c.setIdentity(u)

	c.logger.Info().Str("user_id", u.ID).Msg("Connection authenticated.")

	c.sendFrame(TypeAuthenticated, AuthenticatedPayload{Success: true, User: &u})
	return nil
}

// Join puts c's identity into roomID, creating the room when needed, and sends
// the joiner a room-joined snapshot. Existing members receive user-joined.
// An empty roomID gets a server-generated id. Joining while in another room
// leaves that room first. If the same identity already holds the membership
// from another connection, that connection is told its session was replaced.
func (m *Manager) Join(c *Client, roomID, roomName, roomKind string) (*Snapshot, *errs.CustomError) {
	u, ok := c.Identity()
	if !ok {
		return nil, errs.NewError(errs.ErrUnauthenticated)
	}

	if roomID == "" {
		generated, err := randx.RoomID()
		if err != nil {
			return nil, errs.NewError(errs.ErrUnknown, err)
		}
		roomID = generated
	} else if !randx.IsValidRoomID(roomID) {
		return nil, errs.NewError(errs.ErrRoomIDInvalid)
	}

	if current := c.RoomID(); current != "" && current != roomID {
		m.leave(c, current, true)
	}

	var room *Room
	for {
		room = m.getOrCreate(roomID, roomName, roomKind)
		room.mu.Lock()
		if !room.closed.Load() {
			break
		}
		room.mu.Unlock()
	}
	defer room.mu.Unlock()

	now := time.Now()
	previous, rejoin := room.members[u.ID]

	room.members[u.ID] = &Member{
		User:         u,
		ConnID:       c.ID,
		JoinedAt:     now,
		LastActivity: now,
		client:       c,
	}
	room.touchLocked(now)
	c.setRoom(roomID)

	if rejoin && previous.ConnID != c.ID && previous.client != nil {
		previous.client.clearRoom(roomID)
		previous.client.SendError(errs.NewError(errs.ErrSessionKicked))
		room.logger.Warn().
			Str("user_id", u.ID).
			Str("stale_conn_id", previous.ConnID).
			Msg("Membership taken over by a new connection.")
	}

	snapshot := room.snapshotLocked()
	c.sendFrame(TypeRoomJoined, snapshot)

	m.fanOutLocked(room, TypeUserJoined, UserEventPayload{User: u, UserCount: len(room.members)}, c.ID)

	room.logger.Info().
		Str("user_id", u.ID).
		Int("total_users", len(room.members)).
		Msg("Client joined room.")

	return snapshot, nil
}

// Leave removes c's membership from roomID (the current room when empty) and
// acknowledges with room-left.
func (m *Manager) Leave(c *Client, roomID string) *errs.CustomError {
	if _, ok := c.Identity(); !ok {
		return errs.NewError(errs.ErrUnauthenticated)
	}
	return m.leave(c, roomID, true)
}

// leave removes the membership held by c in roomID, broadcasts user-left and
// deletes the room once empty. ack sends room-left to c.
func (m *Manager) leave(c *Client, roomID string, ack bool) *errs.CustomError {
	room, member, err := m.lockMembership(c, roomID)
	if err != nil {
		return err
	}

	now := time.Now()
	_, hadCursor := room.cursors[member.User.ID]
	empty := room.removeMemberLocked(member.User.ID, now)
	c.clearRoom(room.ID)

	if ack {
		c.sendFrame(TypeRoomLeft, RoomLeftPayload{RoomID: room.ID})
	}

	if !empty {
		if hadCursor {
			m.fanOutLocked(room, TypeCursorRemoved, CursorRemovedPayload{UserID: member.User.ID}, c.ID)
		}
		m.fanOutLocked(room, TypeUserLeft, UserEventPayload{User: member.User, UserCount: len(room.members)}, c.ID)
	}

	room.logger.Info().
		Str("user_id", member.User.ID).
		Int("total_users", len(room.members)).
		Msg("Client left room.")

	room.mu.Unlock()

	if empty {
		m.deleteRoom(room)
	}

	return nil
}
