package collab

import (
	"sort"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"collabhub/internal/app/relay"
	"collabhub/internal/app/user"
	"collabhub/internal/configs"
	"collabhub/internal/pkg/errs"
	"collabhub/internal/pkg/logx"
	"collabhub/internal/pkg/metrics"
)

// Manager is the coordinator. It owns the room store and the connection registry
// and exposes the room-scoped operations; the raw tables are never handed out.
//
// Lock order is Manager.mu, then Room.mu, then the client's own locks.
type Manager struct {
	// rooms stores every live Room, keyed by room id.
	rooms map[string]*Room

	// mu protects the rooms map only; room internals are guarded by Room.mu.
	mu sync.RWMutex

	registry *Registry
	mirror   relay.Mirror
	metrics  *metrics.Metrics
	config   *configs.AppConfig

	shuttingDown atomic.Bool

	logger zerolog.Logger
}

// NewManager constructs a Manager. mirror and m may be nil.
func NewManager(cfg *configs.AppConfig, mirror relay.Mirror, m *metrics.Metrics) *Manager {
	if mirror == nil {
		mirror = relay.Noop{}
	}

	return &Manager{
		rooms:    make(map[string]*Room),
		registry: NewRegistry(),
		mirror:   mirror,
		metrics:  m,
		config:   withDefaults(cfg),
		logger:   logx.Component("Manager"),
	}
}

func withDefaults(cfg *configs.AppConfig) *configs.AppConfig {
	out := configs.AppConfig{}
	if cfg != nil {
		out = *cfg
	}
	if out.AuthMode == "" {
		out.AuthMode = configs.AuthModeTrust
	}
	if out.SendQueueSize <= 0 {
		out.SendQueueSize = 256
	}
	if out.OverflowPolicy == "" {
		out.OverflowPolicy = configs.OverflowDropOldest
	}
	if out.MaxMessageBytes <= 0 {
		out.MaxMessageBytes = 64 << 10
	}
	if out.EventRate <= 0 {
		out.EventRate = 50
	}
	if out.EventBurst <= 0 {
		out.EventBurst = 100
	}
	return &out
}

// Registry exposes the connection registry for read-only inspection.
func (m *Manager) Registry() *Registry {
	return m.registry
}

// Accepting reports whether new connections may be attached.
func (m *Manager) Accepting() bool {
	return !m.shuttingDown.Load()
}

// Attach wraps an upgraded connection in a Client and registers it. When
// identity is non-nil (a verified token on the upgrade request) the connection
// is bound immediately. conn may be nil in tests.
func (m *Manager) Attach(conn *websocket.Conn, identity *user.User) *Client {
	c := NewClient(m, conn)
	m.registry.Add(c)
	m.metrics.ConnectionOpened()

	c.logger.Info().Msg("Connection attached.")

	if identity != nil {
		if err := m.Authenticate(c, *identity); err != nil {
			c.sendFrame(TypeAuthenticated, AuthenticatedPayload{Success: false})
			c.SendError(err)
		}
	}

	return c
}

// getOrCreate returns the live room with id, creating it when absent or when the
// stored room has already been closed by its last leave.
func (m *Manager) getOrCreate(id, name, kind string) *Room {
	m.mu.RLock()
	room, ok := m.rooms[id]
	m.mu.RUnlock()

	if ok && !room.closed.Load() {
		return room
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.rooms[id]; ok {
		if !existing.closed.Load() {
			return existing
		}
		// The closed room's own deleteRoom will see a different pointer and skip.
		m.metrics.RoomDeleted()
	}

	room = newRoom(id, name, kind)
	m.rooms[id] = room
	m.metrics.RoomCreated()

	m.logger.Info().Str("room_id", id).Str("kind", kind).Msg("New Room created.")
	return room
}

// Get returns the live room with id, or nil.
func (m *Manager) Get(id string) *Room {
	m.mu.RLock()
	defer m.mu.RUnlock()

	room, ok := m.rooms[id]
	if !ok || room.closed.Load() {
		return nil
	}
	return room
}

// deleteRoom removes room from the store unless it has already been replaced.
func (m *Manager) deleteRoom(room *Room) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if current, ok := m.rooms[room.ID]; ok && current == room {
		delete(m.rooms, room.ID)
		m.metrics.RoomDeleted()
		m.logger.Info().Str("room_id", room.ID).Msg("Room successfully removed.")
	}
}

// lockMembership resolves roomID for c and returns the room locked, together
// with the caller's member entry. The caller must unlock room.mu.
func (m *Manager) lockMembership(c *Client, roomID string) (*Room, *Member, *errs.CustomError) {
	u, ok := c.Identity()
	if !ok {
		return nil, nil, errs.NewError(errs.ErrUnauthenticated)
	}

	if roomID == "" {
		roomID = c.RoomID()
	}
	if roomID == "" || c.RoomID() != roomID {
		return nil, nil, errs.NewError(errs.ErrNotMember)
	}

	room := m.Get(roomID)
	if room == nil {
		return nil, nil, errs.NewError(errs.ErrNotMember)
	}

	room.mu.Lock()
	member, ok := room.members[u.ID]
	if room.closed.Load() || !ok || member.ConnID != c.ID {
		room.mu.Unlock()
		return nil, nil, errs.NewError(errs.ErrNotMember)
	}

	return room, member, nil
}

// fanOutLocked queues an event for the room's members (all of them when
// exceptConn is empty) and mirrors it. room.mu must be held.
func (m *Manager) fanOutLocked(room *Room, eventType EventType, payload any, exceptConn string) {
	frame, err := NewFrame(eventType, payload)
	if err != nil {
		room.logger.Error().Err(err).Str("type", string(eventType)).Msg("Failed to encode broadcast frame.")
		return
	}

	room.broadcastLocked(frame, exceptConn)
	m.mirror.Publish(room.ID, string(eventType), frame)
}

// Stats is the read-only administrative view of the coordinator.
type Stats struct {
	ConnectedClients   int         `json:"connectedClients"`
	AuthenticatedUsers int         `json:"authenticatedUsers"`
	ActiveRooms        int         `json:"activeRooms"`
	Rooms              []RoomStats `json:"rooms"`
}

type RoomStats struct {
	RoomID  string `json:"roomId"`
	Name    string `json:"name"`
	Kind    string `json:"kind"`
	Members int    `json:"members"`
	Cursors int    `json:"cursors"`
}

// Stats reports connection and per-room counts without mutating anything.
func (m *Manager) Stats() Stats {
	m.mu.RLock()
	rooms := make([]*Room, 0, len(m.rooms))
	for _, room := range m.rooms {
		rooms = append(rooms, room)
	}
	m.mu.RUnlock()

	out := Stats{
		ConnectedClients:   m.registry.ConnectionCount(),
		AuthenticatedUsers: m.registry.IdentityCount(),
		Rooms:              make([]RoomStats, 0, len(rooms)),
	}

	for _, room := range rooms {
		if room.closed.Load() {
			continue
		}
		members, cursors := room.counts()
		if members == 0 {
			continue
		}
		out.Rooms = append(out.Rooms, RoomStats{
			RoomID:  room.ID,
			Name:    room.Name,
			Kind:    room.Kind,
			Members: members,
			Cursors: cursors,
		})
	}

	sort.Slice(out.Rooms, func(i, j int) bool { return out.Rooms[i].RoomID < out.Rooms[j].RoomID })
	out.ActiveRooms = len(out.Rooms)

	return out
}

// RoomSnapshot returns a copy of the room's metadata, members, cursors and state.
func (m *Manager) RoomSnapshot(roomID string) (*Snapshot, *errs.CustomError) {
	room := m.Get(roomID)
	if room == nil {
		return nil, errs.NewError(errs.ErrRoomNotFound)
	}

	room.mu.Lock()
	defer room.mu.Unlock()

	if room.closed.Load() {
		return nil, errs.NewError(errs.ErrRoomNotFound)
	}
	return room.snapshotLocked(), nil
}
