package collab

import (
	"github.com/gorilla/websocket"

	"collabhub/internal/pkg/errs"
)

// Disconnect is the single exit path of a connection, whatever closed it. It
// performs the same removal as leave-room for the current room, then unbinds
// the connection. Calling it more than once is a no-op.
func (m *Manager) Disconnect(c *Client) {
	if !c.markDisconnected() {
		return
	}

	if roomID := c.RoomID(); roomID != "" {
		if err := m.leave(c, roomID, false); err != nil {
			if errs.Is(err, errs.ErrNotMember) {
				c.logger.Debug().Str("room_id", roomID).Msg("No membership to release on disconnect.")
			} else {
				c.logger.Warn().Err(err).Str("room_id", roomID).Msg("Failed to release membership on disconnect.")
			}
		}
	}

	m.registry.Remove(c)
	c.Close(websocket.CloseNormalClosure, "")
	m.metrics.ConnectionClosed()

	c.logger.Info().Msg("Connection detached.")
}

// Shutdown stops accepting connections, tells every connection the server is
// going away and closes it. Each connection's read loop then runs Disconnect.
func (m *Manager) Shutdown() {
	if m.shuttingDown.Swap(true) {
		return
	}

	m.logger.Info().Msg("Shutting down Manager...")

	clients := m.registry.All()
	for _, c := range clients {
		c.sendFrame(TypeServerShutdown, ShutdownPayload{Message: "Server is shutting down."})
		c.Close(websocket.CloseGoingAway, "server shutdown")
	}

	m.logger.Info().Int("connections", len(clients)).Msg("Manager shutdown complete.")
}
