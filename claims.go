package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// JWTClaims is the concrete claim set carried by issued tokens. Only the
// registered claims are used: the subject is the account email and validity
// is fully determined by the signature and the expiry.
type JWTClaims struct {
	jwt.RegisteredClaims
}

// Verify interface compliance
var _ AuthClaims = (*JWTClaims)(nil)

// Subject returns the subject claim
func (c *JWTClaims) Subject() string {
	return c.RegisteredClaims.Subject
}

// IssuedAt returns the issued at time
func (c *JWTClaims) IssuedAt() time.Time {
	if c.RegisteredClaims.IssuedAt != nil {
		return c.RegisteredClaims.IssuedAt.Time
	}
	return time.Time{}
}

// Expires returns the expiration time
func (c *JWTClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}
