package auth

import (
	"context"
	"errors"
	"net/http"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/gofiber/fiber/v2"

	"github.com/castellan/auth/middleware/jwtware"
)

// FormatValidationErrorToMap flattens ozzo validation errors into a
// field -> message map for the response body.
func FormatValidationErrorToMap(err error) map[string]string {
	out := map[string]string{}

	var verrs validation.Errors
	if errors.As(err, &verrs) {
		for field, ferr := range verrs {
			out[field] = ferr.Error()
		}
		return out
	}

	if err != nil {
		out["error"] = err.Error()
	}

	return out
}

// RenderError is the central error translator, installed as the fiber error
// handler. Field validation failures render the field map body; tagged
// business failures map to their status; anything else is a 500 with a
// generic message.
func RenderError(c *fiber.Ctx, err error) error {
	timestamp := time.Now().UTC().Format(time.RFC3339)

	var verrs validation.Errors
	if errors.As(err, &verrs) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"timestamp": timestamp,
			"status":    fiber.StatusBadRequest,
			"errors":    FormatValidationErrorToMap(verrs),
		})
	}

	var authErr *Error
	if AsError(err, &authErr) {
		status := authErr.Status()
		return c.Status(status).JSON(fiber.Map{
			"timestamp": timestamp,
			"status":    status,
			"error":     http.StatusText(status),
			"details":   authErr.Message,
			"path":      c.Path(),
		})
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return c.Status(fiberErr.Code).JSON(fiber.Map{
			"timestamp": timestamp,
			"status":    fiberErr.Code,
			"error":     http.StatusText(fiberErr.Code),
			"details":   fiberErr.Message,
			"path":      c.Path(),
		})
	}

	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"timestamp": timestamp,
		"status":    fiber.StatusInternalServerError,
		"error":     http.StatusText(fiber.StatusInternalServerError),
		"details":   "An unexpected error occurred",
		"path":      c.Path(),
	})
}

// NewRouter wires the controller, the authentication gate, and the route
// table into a fiber app.
func NewRouter(controller *AuthController, tokens TokenService, users Users) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler:          RenderError,
		DisableStartupMessage: true,
	})

	app.Use(jwtware.New(jwtware.Config{
		Validate: func(raw string) (string, error) {
			claims, err := tokens.Validate(raw)
			if err != nil {
				return "", err
			}
			return claims.Subject(), nil
		},
		ResolveIdentity: func(ctx context.Context, subject string) (jwtware.Identity, error) {
			user, err := users.FindByEmail(ctx, subject)
			if err != nil {
				return nil, err
			}
			if user == nil {
				return nil, errors.New("unknown token subject")
			}
			return NewIdentity(user), nil
		},
		ContextEnricher: func(ctx context.Context, identity jwtware.Identity) context.Context {
			return WithIdentity(ctx, identity)
		},
	}))

	api := app.Group("/api")

	pub := api.Group("/auth")
	pub.Post("/register", controller.Register)
	pub.Post("/login", controller.Login)
	pub.Post("/forget-password", controller.ForgetPassword)
	pub.Post("/reset-password", controller.ResetPassword)
	pub.Get("/verify-email", controller.VerifyEmail)

	api.Get("/user", jwtware.RequireAuthenticated(), controller.CurrentUser)
	api.Get("/admin", jwtware.RequireRole(RoleAdmin, Authorize), controller.AdminOnly)

	return app
}
