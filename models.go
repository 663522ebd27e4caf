package auth

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// User is the user model. The reset and verification tokens are nullable
// columns on the user row itself: a token column is cleared (NULLed) when
// the token is consumed, and the reset token always travels with its expiry.
type User struct {
	bun.BaseModel          `bun:"table:users,alias:usr"`
	ID                     uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Name                   string     `bun:"name,notnull" json:"name,omitempty"`
	Email                  string     `bun:"email,notnull,unique" json:"email,omitempty"`
	PasswordHash           string     `bun:"password_hash,notnull" json:"-"`
	Role                   UserRole   `bun:"user_role,notnull" json:"role,omitempty"`
	Verified               bool       `bun:"verified" json:"verified"`
	EmailVerificationToken string     `bun:"email_verification_token,nullzero" json:"-"`
	PasswordResetToken     string     `bun:"password_reset_token,nullzero" json:"-"`
	TokenExpiryDate        *time.Time `bun:"token_expiry_date,nullzero" json:"-"`
	CreatedAt              *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt              *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// HasPendingReset reports whether the user has an outstanding reset token.
func (u *User) HasPendingReset() bool {
	return u.PasswordResetToken != ""
}

// ResetTokenExpired reports whether the pending reset token is unusable at
// the given instant. A token without an expiry is treated as expired.
func (u *User) ResetTokenExpired(now time.Time) bool {
	return u.TokenExpiryDate == nil || u.TokenExpiryDate.Before(now)
}

// userIdentity adapts a User record to the Identity interface.
type userIdentity struct {
	user *User
}

// NewIdentity wraps a user record as an Identity.
func NewIdentity(user *User) Identity {
	return userIdentity{user: user}
}

func (i userIdentity) ID() string {
	if i.user == nil {
		return ""
	}
	return i.user.ID.String()
}

func (i userIdentity) Name() string {
	if i.user == nil {
		return ""
	}
	return i.user.Name
}

func (i userIdentity) Email() string {
	if i.user == nil {
		return ""
	}
	return i.user.Email
}

func (i userIdentity) Role() UserRole {
	if i.user == nil {
		return ""
	}
	return i.user.Role
}
