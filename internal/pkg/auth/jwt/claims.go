package jwt

import (
	"github.com/golang-jwt/jwt"

	"collabhub/internal/app/user"
)

// Payload defines the claims of a signed collaboration identity.
// The authenticator issues it; the coordinator only verifies the signature and
// copies the identity fields onto the connection.
type Payload struct {
	// StandardClaims carries Exp, Iat and Iss, checked on every parse.
	jwt.StandardClaims

	ID     string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email,omitempty"`
	Avatar string `json:"avatar,omitempty"`
	Color  string `json:"color,omitempty"`
}

// FromUser builds a Payload carrying the identity fields of u.
func FromUser(u user.User) *Payload {
	return &Payload{
		ID:     u.ID,
		Name:   u.Name,
		Email:  u.Email,
		Avatar: u.Avatar,
		Color:  u.Color,
	}
}

// ToUser returns the identity carried by the token.
func (p *Payload) ToUser() user.User {
	return user.User{
		ID:     p.ID,
		Name:   p.Name,
		Email:  p.Email,
		Avatar: p.Avatar,
		Color:  p.Color,
	}
}
