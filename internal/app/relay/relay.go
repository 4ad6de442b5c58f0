/*
Package relay mirrors room fan-out to an external pub/sub broker.

The coordinator always delivers events to its local members first; a Mirror only
sees the already-encoded frame afterwards. Nothing here consumes from the broker,
so room state stays owned by a single process.
*/
package relay

import (
	"encoding/json"
	"errors"
)

// ErrQueueFull is reported when the mirror's publish queue cannot take another frame.
var ErrQueueFull = errors.New("relay: publish queue full")

// Envelope is the message published for every mirrored room event.
type Envelope struct {
	InstanceID  string          `json:"instanceId"`
	RoomID      string          `json:"roomId"`
	Type        string          `json:"type"`
	Frame       json.RawMessage `json:"frame"`
	PublishedAt int64           `json:"publishedAt"`
}

// Mirror receives every room-scoped frame after local delivery.
// Publish must not block the caller.
type Mirror interface {
	Publish(roomID, eventType string, frame []byte)
	Close() error
}

// Noop is the Mirror used when no broker is configured.
type Noop struct{}

func (Noop) Publish(string, string, []byte) {}

func (Noop) Close() error { return nil }
