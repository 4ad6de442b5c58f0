/*
Package randx provides functions for generating cryptographically secure random identifiers.

It is used to generate Base62 room ids for rooms joined without a client-supplied id,
UUID message ids, and UUID connection ids.
*/
package randx

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"unicode/utf8"

	"github.com/google/uuid"
)

const (
	// Base62Chars defines the character set used for Base62 encoding (0-9, A-Z, a-z).
	Base62Chars = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

	// Base62Len is the total number of characters in the Base62 character set (62).
	Base62Len = int64(len(Base62Chars))

	// RoomIDLength is the length of server-generated room ids.
	RoomIDLength = 10

	// MaxRoomIDLength bounds client-supplied room ids, in bytes.
	MaxRoomIDLength = 128
)

// RoomID generates a Base62 encoded room id using crypto/rand.
func RoomID() (string, error) {
	result := make([]byte, RoomIDLength)

	for i := range RoomIDLength {
		num, err := rand.Int(rand.Reader, big.NewInt(Base62Len))
		if err != nil {
			return "", fmt.Errorf("failed to generate random number for room id: %v", err)
		}

		result[i] = Base62Chars[num.Int64()]
	}

	return string(result), nil
}

// MessageID generates a standard UUID v4 string to serve as a unique identifier for a chat message.
func MessageID() string {
	return uuid.New().String()
}

// ConnectionID generates the id of a single physical connection.
func ConnectionID() string {
	return uuid.New().String()
}

// IsValidRoomID checks a client-supplied room id: non-empty, at most MaxRoomIDLength
// bytes and valid UTF-8. Any other content is the client's choice.
func IsValidRoomID(id string) bool {
	return id != "" && len(id) <= MaxRoomIDLength && utf8.ValidString(id)
}
