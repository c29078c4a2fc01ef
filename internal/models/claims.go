package models

import "github.com/golang-jwt/jwt/v5"

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// UserClaims is the identity the engine trusts from the auth service. The
// subject of the token is the opaque user id.
type UserClaims struct {
	jwt.RegisteredClaims
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

// Identity returns the user id, preferring the explicit claim over the subject.
func (c *UserClaims) Identity() string {
	if c.UserID != "" {
		return c.UserID
	}
	return c.Subject
}

func (c *UserClaims) IsAdmin() bool {
	return c.Role == RoleAdmin
}
