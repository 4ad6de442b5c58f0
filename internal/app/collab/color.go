package collab

import (
	"github.com/cespare/xxhash/v2"

	"collabhub/internal/app/user"
)

// CursorPalette is the fixed set of cursor colors.
var CursorPalette = []string{
	"#E6194B", "#3CB44B", "#4363D8", "#F58231",
	"#911EB4", "#42D4F4", "#F032E6", "#BFEF45",
	"#469990", "#9A6324", "#800000", "#000075",
}

// ColorFor returns the identity's own color when it has one, otherwise a palette
// entry chosen by hashing the user id, so a user keeps one color for the process lifetime.
func ColorFor(u user.User) string {
	if u.Color != "" {
		return u.Color
	}
	return CursorPalette[xxhash.Sum64String(u.ID)%uint64(len(CursorPalette))]
}
