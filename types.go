package auth

import (
	"context"
	"fmt"
	"time"
)

// Logger is the minimal logging surface the auth package needs. The cmd
// wiring adapts log/slog to it; tests plug in mocks.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Identity holds the attributes of an authenticated identity.
type Identity interface {
	ID() string
	Name() string
	Email() string
	Role() UserRole
}

// Authenticator holds methods to deal with authentication.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (string, *User, error)
	VerifyIdentity(ctx context.Context, email, password string) (*User, error)
}

// Sender dispatches account notifications. A failed send surfaces as an
// error but never rolls back the state change that triggered it.
type Sender interface {
	SendVerificationEmail(to, token string) error
	SendResetPasswordEmail(to, token string) error
}

// TokenService issues and verifies compact bearer tokens.
type TokenService interface {
	Generate(subject string) (string, error)
	Validate(raw string) (AuthClaims, error)
	Subject(raw string) (string, error)
	IsValid(raw string) bool
}

// AuthClaims is the read-only view of a verified token payload.
type AuthClaims interface {
	Subject() string
	IssuedAt() time.Time
	Expires() time.Time
}

// DefaultLogger returns the fallback stdout logger used when callers do not
// provide one.
func DefaultLogger() Logger {
	return defLogger{}
}

type defLogger struct{}

func (d defLogger) Error(msg string, args ...any) {
	fmt.Printf("[ERR] AUTH "+newline(msg), args...)
}

func (d defLogger) Warn(msg string, args ...any) {
	fmt.Printf("[WRN] AUTH "+newline(msg), args...)
}

func (d defLogger) Info(msg string, args ...any) {
	fmt.Printf("[INF] AUTH "+newline(msg), args...)
}

func (d defLogger) Debug(msg string, args ...any) {
	fmt.Printf("[DBG] AUTH "+newline(msg), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
