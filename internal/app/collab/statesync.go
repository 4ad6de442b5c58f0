package collab

import (
	"encoding/json"
	"time"

	"collabhub/internal/app/state"
	"collabhub/internal/pkg/errs"
)

// ApplyPatch writes one path-addressed update into the room's shared state and
// relays the patch, not the whole state, to the other members. Concurrent
// patches to the same path are applied in lock order; the last one wins.
func (m *Manager) ApplyPatch(c *Client, roomID string, update StateUpdate) *errs.CustomError {
	if _, ok := c.Identity(); !ok {
		return errs.NewError(errs.ErrUnauthenticated)
	}

	if update.Type == "" {
		update.Type = UpdateSet
	}

	path := state.Path(update.Path)
	if err := path.Validate(); err != nil {
		return errs.NewError(errs.ErrMalformedPayload, err.Error())
	}

	var value *state.Value
	switch update.Type {
	case UpdateSet:
		if len(update.Value) == 0 {
			value = state.NewNull()
			update.Value = json.RawMessage("null")
		} else {
			parsed, err := state.Parse(update.Value)
			if err != nil {
				return errs.NewError(errs.ErrMalformedPayload, err.Error())
			}
			value = parsed
		}
	case UpdateDelete:
		update.Value = nil
	default:
		return errs.NewError(errs.ErrMalformedPayload, "unknown update type "+update.Type)
	}

	room, member, err := m.lockMembership(c, roomID)
	if err != nil {
		return err
	}
	defer room.mu.Unlock()

	if update.Type == UpdateSet {
		if walkErr := room.state.Set(path, value); walkErr != nil {
			return errs.NewError(errs.ErrMalformedPayload, walkErr.Error())
		}
	} else {
		if _, walkErr := room.state.Delete(path); walkErr != nil {
			return errs.NewError(errs.ErrMalformedPayload, walkErr.Error())
		}
	}

	now := time.Now()
	room.touchLocked(now)

	m.fanOutLocked(room, TypeStateSync, StateSyncPayload{
		Update:    update,
		UserID:    member.User.ID,
		Timestamp: now.UnixMilli(),
	}, c.ID)
	return nil
}

// ReplaceState discards the room's shared state, installs newState verbatim and
// relays the full replacement to the other members.
func (m *Manager) ReplaceState(c *Client, roomID string, newState json.RawMessage) *errs.CustomError {
	if _, ok := c.Identity(); !ok {
		return errs.NewError(errs.ErrUnauthenticated)
	}

	if len(newState) == 0 {
		return errs.NewError(errs.ErrMalformedPayload, "state is required")
	}

	value, parseErr := state.Parse(newState)
	if parseErr != nil {
		return errs.NewError(errs.ErrMalformedPayload, parseErr.Error())
	}

	room, member, err := m.lockMembership(c, roomID)
	if err != nil {
		return err
	}
	defer room.mu.Unlock()

	now := time.Now()
	room.state = value
	room.touchLocked(now)

	m.fanOutLocked(room, TypeStateReplaced, StateReplacedPayload{
		State:     value,
		UserID:    member.User.ID,
		Timestamp: now.UnixMilli(),
	}, c.ID)
	return nil
}
