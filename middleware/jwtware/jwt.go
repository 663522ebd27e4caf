package jwtware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
)

// DefaultContextKey is where the resolved identity is stored in request
// locals.
const DefaultContextKey = "identity"

var ErrJWTMissingOrMalformed = errors.New("missing or malformed JWT")

// Identity mirrors the identity interface from the auth package so the
// middleware can stay free of an import cycle.
type Identity interface {
	ID() string
	Name() string
	Email() string
	Role() string
}

// ValidateFunc verifies a raw bearer token and returns its subject.
type ValidateFunc func(raw string) (string, error)

// ResolveFunc turns a verified subject into a full identity.
type ResolveFunc func(ctx context.Context, subject string) (Identity, error)

type Config struct {
	// Filter skips the middleware entirely when it returns true.
	Filter func(c *fiber.Ctx) bool

	// Validate is required.
	Validate ValidateFunc

	// ResolveIdentity is required.
	ResolveIdentity ResolveFunc

	ContextKey string
	AuthScheme string

	// ErrorHandler renders validation failures. The default writes the
	// structured unauthorized body.
	ErrorHandler func(c *fiber.Ctx, err error) error

	// ContextEnricher propagates the identity into the request's standard
	// context so non-HTTP layers can read it.
	ContextEnricher func(ctx context.Context, identity Identity) context.Context
}

// New creates the request authentication gate. Requests without a bearer
// token pass through anonymously; RequireAuthenticated and RequireRole
// enforce access on protected routes. Requests that do carry a token fail
// with 401 when it cannot be verified.
func New(config ...Config) fiber.Handler {
	cfg := configDefault(config...)

	return func(c *fiber.Ctx) error {
		if cfg.Filter != nil && cfg.Filter(c) {
			return c.Next()
		}

		raw := tokenFromHeader(c, cfg.AuthScheme)
		if raw == "" {
			return c.Next()
		}

		subject, err := cfg.Validate(raw)
		if err != nil {
			return cfg.ErrorHandler(c, err)
		}

		identity, err := cfg.ResolveIdentity(c.UserContext(), subject)
		if err != nil {
			return cfg.ErrorHandler(c, err)
		}

		c.Locals(cfg.ContextKey, identity)

		if cfg.ContextEnricher != nil {
			c.SetUserContext(cfg.ContextEnricher(c.UserContext(), identity))
		}

		return c.Next()
	}
}

// FromContext retrieves the identity established by the gate, if any.
func FromContext(c *fiber.Ctx, contextKey ...string) (Identity, bool) {
	key := DefaultContextKey
	if len(contextKey) > 0 && contextKey[0] != "" {
		key = contextKey[0]
	}
	identity, ok := c.Locals(key).(Identity)
	return identity, ok
}

// RequireAuthenticated rejects requests that did not present a valid token.
func RequireAuthenticated(contextKey ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := FromContext(c, contextKey...); !ok {
			return Unauthorized(c, ErrJWTMissingOrMalformed)
		}
		return c.Next()
	}
}

// RequireRole rejects requests whose identity does not satisfy the required
// role. The optional predicate replaces the default exact match, letting the
// caller plug in a role hierarchy.
func RequireRole(required string, authorize ...func(role, required string) bool) fiber.Handler {
	allowed := func(role, required string) bool { return role == required }
	if len(authorize) > 0 && authorize[0] != nil {
		allowed = authorize[0]
	}

	return func(c *fiber.Ctx) error {
		identity, ok := FromContext(c)
		if !ok {
			return Unauthorized(c, ErrJWTMissingOrMalformed)
		}

		if !allowed(identity.Role(), required) {
			return Forbidden(c)
		}

		return c.Next()
	}
}

// Unauthorized writes the structured 401 body.
func Unauthorized(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"status":    fiber.StatusUnauthorized,
		"error":     http.StatusText(fiber.StatusUnauthorized),
		"message":   "Unauthorized: " + err.Error(),
		"path":      c.Path(),
	})
}

// Forbidden writes the structured 403 body.
func Forbidden(c *fiber.Ctx) error {
	return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"status":    fiber.StatusForbidden,
		"error":     http.StatusText(fiber.StatusForbidden),
		"message":   "Access Denied",
		"path":      c.Path(),
	})
}

func configDefault(config ...Config) Config {
	cfg := Config{}
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.Validate == nil {
		panic("AUTH: JWT middleware configuration: Validate is required.")
	}

	if cfg.ResolveIdentity == nil {
		panic("AUTH: JWT middleware configuration: ResolveIdentity is required.")
	}

	if cfg.ContextKey == "" {
		cfg.ContextKey = DefaultContextKey
	}

	if cfg.AuthScheme == "" {
		cfg.AuthScheme = "Bearer"
	}

	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = Unauthorized
	}

	return cfg
}

func tokenFromHeader(c *fiber.Ctx, authScheme string) string {
	header := c.Get(fiber.HeaderAuthorization)
	if header == "" {
		return ""
	}

	l := len(authScheme)
	if len(header) > l+1 && strings.EqualFold(header[:l], authScheme) {
		return strings.TrimSpace(header[l:])
	}

	return ""
}
