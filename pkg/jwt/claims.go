package jwt

import (
	"github.com/golang-jwt/jwt/v5"
)

// Claims represents JWT custom claims. The subject names the progress scope.
type Claims struct {
	Name string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// Scope returns the subject the caller's progress is stored under
func (c *Claims) Scope() string {
	return c.Subject
}
