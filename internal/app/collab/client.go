package collab

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"collabhub/internal/app/user"
	"collabhub/internal/configs"
	"collabhub/internal/pkg/auth/jwt"
	"collabhub/internal/pkg/errs"
	"collabhub/internal/pkg/logx"
	"collabhub/internal/pkg/randx"
)

const (
	// timeout duration for writing to the WebSocket connection.
	writeWait = 10 * time.Second

	// maximum time allowed for the server to wait for a Pong message from the client.
	pongWait = 60 * time.Second

	// frequency at which the server sends a Ping message.
	pingPeriod = (pongWait * 9) / 10
)

// Client is one physical connection. The transport owns it; the coordinator
// only reads and writes its bound identity and current room.
type Client struct {
	// ID is unique per connection.
	ID string

	// underlying WebSocket connection object; nil for connections driven directly in tests.
	conn *websocket.Conn

	manager *Manager

	// bounded outbound queue drained by WritePump.
	send chan []byte

	// closed once when the connection should stop; send is never closed.
	done      chan struct{}
	closeOnce sync.Once

	// queueMu serializes the drop-oldest path so concurrent producers cannot
	// evict each other's frames indefinitely.
	queueMu  sync.Mutex
	overflow string

	// inbound event limiter.
	limiter *rate.Limiter

	mu           sync.Mutex
	identity     *user.User
	roomID       string
	closeCode    int
	closeReason  string
	disconnected bool

	logger zerolog.Logger
}

// NewClient constructs a Client for conn. Most callers want Manager.Attach.
func NewClient(m *Manager, conn *websocket.Conn) *Client {
	id := randx.ConnectionID()

	return &Client{
		ID:        id,
		conn:      conn,
		manager:   m,
		send:      make(chan []byte, m.config.SendQueueSize),
		done:      make(chan struct{}),
		overflow:  m.config.OverflowPolicy,
		limiter:   rate.NewLimiter(rate.Limit(m.config.EventRate), m.config.EventBurst),
		closeCode: websocket.CloseNormalClosure,
		logger:    logx.Component("Client").With().Str("conn_id", id).Logger(),
	}
}

// Identity returns the bound identity, if any.
func (c *Client) Identity() (user.User, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.identity == nil {
		return user.User{}, false
	}
	return *c.identity, true
}

func (c *Client) setIdentity(u user.User) {
	c.mu.Lock()
	c.identity = &u
	c.mu.Unlock()
}

// RoomID returns the current room, or "".
func (c *Client) RoomID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.roomID
}

func (c *Client) setRoom(roomID string) {
	c.mu.Lock()
	c.roomID = roomID
	c.mu.Unlock()
}

// clearRoom forgets the current room if it is still roomID.
func (c *Client) clearRoom(roomID string) {
	c.mu.Lock()
	if c.roomID == roomID {
		c.roomID = ""
	}
	c.mu.Unlock()
}

// markDisconnected reports whether this call is the first to disconnect c.
func (c *Client) markDisconnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.disconnected {
		return false
	}
	c.disconnected = true
	return true
}

// Done is closed when the connection has been told to stop.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Close stops the connection. WritePump flushes what is queued, sends a close
// frame with code and reason, and closes the socket.
func (c *Client) Close(code int, reason string) {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closeCode = code
		c.closeReason = reason
		c.mu.Unlock()

		close(c.done)
	})
}

// enqueue puts frame on the outbound queue without blocking. When the queue is
// full the overflow policy decides: drop the oldest queued frame, or close the
// connection. It reports whether frame was queued.
func (c *Client) enqueue(frame []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.send <- frame:
		return true
	default:
	}

	if c.overflow == configs.OverflowDisconnect {
		c.logger.Warn().Int("queue_len", len(c.send)).Msg("Client send queue full, disconnecting.")
		c.manager.metrics.OverflowDisconnect()
		c.Close(websocket.CloseTryAgainLater, "send queue overflow")
		return false
	}

	c.queueMu.Lock()
	defer c.queueMu.Unlock()

	for {
		select {
		case c.send <- frame:
			return true
		default:
		}

		select {
		case <-c.send:
			c.manager.metrics.FrameDropped()
			c.logger.Debug().Msg("Client send queue full, dropped oldest frame.")
		default:
		}
	}
}

// sendFrame encodes and queues a frame for this connection only.
func (c *Client) sendFrame(eventType EventType, payload any) {
	frame, err := NewFrame(eventType, payload)
	if err != nil {
		c.logger.Error().Err(err).Str("type", string(eventType)).Msg("Error marshaling frame for client")
		return
	}
	c.enqueue(frame)
}

// SendError reports err to this connection only as an error frame.
func (c *Client) SendError(err error) {
	var code int
	var message string

	var customErr *errs.CustomError
	if errors.As(err, &customErr) && customErr != nil {
		code = customErr.Code
		message = customErr.Message
	} else {
		code = errs.ErrUnknown
		message = fmt.Sprintf("Internal server error: %v", err)
	}

	c.manager.metrics.Error(code)
	c.logger.Debug().Int("code", code).Str("message", message).Msg("Sending error frame.")

	c.sendFrame(TypeError, ErrorPayload{Code: code, Message: message})
}

// ReadPump reads frames until the connection fails, then runs Disconnect.
func (c *Client) ReadPump() {
	defer c.manager.Disconnect(c)

	if c.conn == nil {
		return
	}

	c.conn.SetReadLimit(c.manager.config.MaxMessageBytes)

	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set read deadline")
		return
	}

	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Info().Err(err).Msg("Error reading message (Client close/going away)")
			}
			return
		}

		c.HandleFrame(data)
	}
}

// WritePump drains the outbound queue to the socket and keeps the connection
// alive with pings. It closes the socket on exit, which ends ReadPump.
func (c *Client) WritePump() {
	if c.conn == nil {
		return
	}

	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case frame := <-c.send:
			if !c.write(websocket.TextMessage, frame) {
				return
			}

		case <-ticker.C:
			if !c.write(websocket.PingMessage, nil) {
				return
			}

		case <-c.done:
			c.flush()
			return
		}
	}
}

// flush writes whatever is still queued, then the close frame.
func (c *Client) flush() {
drain:
	for {
		select {
		case frame := <-c.send:
			if !c.write(websocket.TextMessage, frame) {
				return
			}
		default:
			break drain
		}
	}

	c.mu.Lock()
	code, reason := c.closeCode, c.closeReason
	c.mu.Unlock()

	c.write(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason))
}

func (c *Client) write(messageType int, data []byte) bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set write deadline")
		return false
	}

	if err := c.conn.WriteMessage(messageType, data); err != nil {
		c.logger.Debug().Err(err).Int("message_type", messageType).Msg("Error writing message")
		return false
	}

	return true
}

// HandleFrame processes one inbound frame. A failing or panicking handler is
// reported to this connection only.
func (c *Client) HandleFrame(data []byte) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error().Interface("panic", r).Msg("Recovered from panic while handling frame")
			c.SendError(errs.NewError(errs.ErrUnknown))
		}
	}()

	var in InboundFrame
	if err := json.Unmarshal(data, &in); err != nil {
		c.logger.Warn().Err(err).Int("size", len(data)).Msg("Client sent invalid JSON")
		c.SendError(errs.NewError(errs.ErrInvalidJSONFormat))
		return
	}

	if !c.limiter.Allow() {
		c.SendError(errs.NewError(errs.ErrRateLimitExceeded))
		return
	}

	if err := c.dispatch(in); err != nil {
		c.SendError(err)
	}
}

func (c *Client) dispatch(in InboundFrame) *errs.CustomError {
	m := c.manager

	switch in.Type {
	case TypeAuthenticate:
		p, err := decode[AuthenticatePayload](in.Payload)
		if err != nil {
			return err
		}
		m.metrics.Event(string(in.Type))
		if err := c.authenticate(p); err != nil {
			c.sendFrame(TypeAuthenticated, AuthenticatedPayload{Success: false})
			return err
		}
		return nil

	case TypeJoinRoom:
		p, err := decode[JoinRoomPayload](in.Payload)
		if err != nil {
			return err
		}
		m.metrics.Event(string(in.Type))
		_, err = m.Join(c, p.RoomID, p.RoomName, p.RoomKind)
		return err

	case TypeLeaveRoom:
		p, err := decode[RoomPayload](in.Payload)
		if err != nil {
			return err
		}
		m.metrics.Event(string(in.Type))
		return m.Leave(c, p.RoomID)

	case TypeCursorMove:
		p, err := decode[CursorMovePayload](in.Payload)
		if err != nil {
			return err
		}
		if p.X == nil || p.Y == nil {
			return errs.NewError(errs.ErrMalformedPayload, "x and y are required")
		}
		m.metrics.Event(string(in.Type))
		return m.MoveCursor(c, p.RoomID, *p.X, *p.Y)

	case TypeCursorLeave:
		p, err := decode[RoomPayload](in.Payload)
		if err != nil {
			return err
		}
		m.metrics.Event(string(in.Type))
		return m.ClearCursor(c, p.RoomID)

	case TypeStateUpdate:
		p, err := decode[StateUpdatePayload](in.Payload)
		if err != nil {
			return err
		}
		m.metrics.Event(string(in.Type))
		return m.ApplyPatch(c, p.RoomID, p.Update)

	case TypeStateReplace:
		p, err := decode[StateReplacePayload](in.Payload)
		if err != nil {
			return err
		}
		m.metrics.Event(string(in.Type))
		return m.ReplaceState(c, p.RoomID, p.State)

	case TypeChatMessage:
		p, err := decode[ChatMessagePayload](in.Payload)
		if err != nil {
			return err
		}
		m.metrics.Event(string(in.Type))
		_, err = m.Chat(c, p.RoomID, p.Content, in.TempID)
		return err

	case TypeTypingStart, TypeTypingStop:
		p, err := decode[RoomPayload](in.Payload)
		if err != nil {
			return err
		}
		m.metrics.Event(string(in.Type))
		return m.Typing(c, p.RoomID, in.Type == TypeTypingStart)

	case TypeActivity:
		p, err := decode[ActivityPayload](in.Payload)
		if err != nil {
			return err
		}
		m.metrics.Event(string(in.Type))
		return m.Activity(c, p.RoomID, p.Status)

	default:
		c.logger.Warn().Str("msg_type", string(in.Type)).Msg("Client sent unsupported message type")
		return errs.NewError(errs.ErrUnsupportedEvent, string(in.Type))
	}
}

// authenticate binds the identity from an authenticate frame. In jwt mode the
// identity comes from the verified token and the plain fields are ignored.
func (c *Client) authenticate(p AuthenticatePayload) *errs.CustomError {
	cfg := c.manager.config

	if cfg.AuthMode != configs.AuthModeJWT {
		return c.manager.Authenticate(c, p.User)
	}

	if p.Token == "" {
		return errs.NewError(errs.ErrInvalidToken)
	}

	claims, err := jwt.ParseToken(p.Token, cfg.JWTSecret)
	if err != nil {
		c.logger.Warn().Err(err).Msg("Rejected identity token")
		return errs.NewError(errs.ErrInvalidToken)
	}

	return c.manager.Authenticate(c, claims.ToUser())
}

// decode unmarshals an event payload; a missing payload yields the zero value.
func decode[T any](raw json.RawMessage) (T, *errs.CustomError) {
	var v T
	if len(raw) == 0 || string(raw) == "null" {
		return v, nil
	}

	if err := json.Unmarshal(raw, &v); err != nil {
		return v, errs.NewError(errs.ErrMalformedPayload, err.Error())
	}
	return v, nil
}
