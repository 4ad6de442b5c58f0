package collab

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"collabhub/internal/app/state"
	"collabhub/internal/app/user"
	"collabhub/internal/pkg/logx"
)

// Member is the association between an identity and its membership in one room.
type Member struct {
	User         user.User
	ConnID       string
	JoinedAt     time.Time
	LastActivity time.Time

	client *Client
}

func (mb *Member) info() MemberInfo {
	return MemberInfo{
		User:         mb.User,
		JoinedAt:     mb.JoinedAt.UnixMilli(),
		LastActivity: mb.LastActivity.UnixMilli(),
	}
}

// Room is one collaboration session. Every field below mu is guarded by it, and
// every mutation holds mu from the first read until its broadcast is queued.
type Room struct {
	ID        string
	Name      string
	Kind      string
	CreatedAt time.Time

	mu        sync.Mutex
	updatedAt time.Time
	members   map[string]*Member
	cursors   map[string]*CursorEntry
	state     *state.Value

	// closed is set under mu when the last member leaves. A closed room is
	// about to be dropped from the store and accepts no more members.
	closed atomic.Bool

	logger zerolog.Logger
}

func newRoom(id, name, kind string) *Room {
	now := time.Now()
	if name == "" {
		name = id
	}

	return &Room{
		ID:        id,
		Name:      name,
		Kind:      kind,
		CreatedAt: now,
		updatedAt: now,
		members:   make(map[string]*Member),
		cursors:   make(map[string]*CursorEntry),
		state:     state.NewObject(),
		logger:    logx.Component("room").With().Str("room_id", id).Logger(),
	}
}

// touchLocked records a mutation.
func (r *Room) touchLocked(now time.Time) {
	r.updatedAt = now
}

// infoLocked returns the room metadata.
func (r *Room) infoLocked() RoomInfo {
	return RoomInfo{
		ID:          r.ID,
		Name:        r.Name,
		Kind:        r.Kind,
		CreatedAt:   r.CreatedAt.UnixMilli(),
		UpdatedAt:   r.updatedAt.UnixMilli(),
		MemberCount: len(r.members),
	}
}

// snapshotLocked copies everything a joiner needs. Members and cursors are sorted
// by user id so repeated snapshots of an unchanged room are identical.
func (r *Room) snapshotLocked() *Snapshot {
	users := make([]MemberInfo, 0, len(r.members))
	for _, mb := range r.members {
		users = append(users, mb.info())
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })

	cursors := make([]CursorEntry, 0, len(r.cursors))
	for _, cur := range r.cursors {
		cursors = append(cursors, *cur)
	}
	sort.Slice(cursors, func(i, j int) bool { return cursors[i].UserID < cursors[j].UserID })

	return &Snapshot{
		RoomID:  r.ID,
		Room:    r.infoLocked(),
		Users:   users,
		Cursors: cursors,
		State:   r.state.Clone(),
	}
}

// broadcastLocked queues frame on every member connection except the one with
// connection id exceptConn. Queues never block.
func (r *Room) broadcastLocked(frame []byte, exceptConn string) {
	for _, mb := range r.members {
		if mb.ConnID == exceptConn || mb.client == nil {
			continue
		}
		mb.client.enqueue(frame)
	}
}

// removeMemberLocked drops the member and its cursor. It reports whether the
// room became empty, in which case the room is marked closed.
func (r *Room) removeMemberLocked(userID string, now time.Time) (empty bool) {
	delete(r.members, userID)
	delete(r.cursors, userID)
	r.touchLocked(now)

	if len(r.members) == 0 {
		r.closed.Store(true)
		return true
	}
	return false
}

// counts returns the member and cursor counts.
func (r *Room) counts() (members, cursors int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.members), len(r.cursors)
}
