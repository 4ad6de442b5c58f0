/*
Package user contains the identity handed to the coordinator by the external authenticator.

The coordinator never issues or mutates identities; it only binds them to connections and
copies them into room membership and cursor records.
*/
package user

import "strings"

// User is the already-authenticated identity of a collaboration participant.
type User struct {
	// ID is the opaque, stable identifier issued by the authenticator.
	ID string `json:"id"`

	// Name is the display name shown next to cursors and chat messages.
	Name string `json:"name"`

	// Email is informational only.
	Email string `json:"email,omitempty"`

	// Avatar is an optional avatar reference (URL or asset key).
	Avatar string `json:"avatar,omitempty"`

	// Color is an optional preferred display color; a palette color is derived when empty.
	Color string `json:"color,omitempty"`
}

// Valid reports whether the identity carries the minimum fields required to bind it.
func (u User) Valid() bool {
	return strings.TrimSpace(u.ID) != "" && strings.TrimSpace(u.Name) != ""
}
