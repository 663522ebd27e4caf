package auth_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"

	"github.com/castellan/auth"
)

type testStack struct {
	app    *fiber.App
	repo   *memoryRepo
	sender *MockSender
	tokens *auth.TokenServiceImpl
}

func newTestStack(t *testing.T) *testStack {
	t.Helper()

	repo := newMemoryRepo()
	sender := newSilentSender()
	tokens := newTestTokenService(time.Hour)
	auther := auth.NewAuthenticator(repo, tokens, nil)

	controller := auth.NewAuthController(
		auth.WithRepositoryManager(repo),
		auth.WithAuthenticator(auther),
		auth.WithSender(sender),
		auth.WithAdminEmails([]string{"root@example.com"}),
	)

	return &testStack{
		app:    auth.NewRouter(controller, tokens, repo.users),
		repo:   repo,
		sender: sender,
		tokens: tokens,
	}
}

func (s *testStack) request(t *testing.T, method, path, body string, headers ...map[string]string) (*http.Response, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}

	req, err := http.NewRequest(method, path, reader)
	assert.NoError(t, err)

	if body != "" {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	for _, h := range headers {
		for k, v := range h {
			req.Header.Set(k, v)
		}
	}

	res, err := s.app.Test(req, -1)
	assert.NoError(t, err)

	decoded := map[string]any{}
	raw, err := io.ReadAll(res.Body)
	assert.NoError(t, err)
	if len(raw) > 0 {
		assert.NoError(t, json.Unmarshal(raw, &decoded))
	}

	return res, decoded
}

func bearer(token string) map[string]string {
	return map[string]string{fiber.HeaderAuthorization: "Bearer " + token}
}

func TestRegisterEndpoint(t *testing.T) {
	s := newTestStack(t)

	res, body := s.request(t, http.MethodPost, "/api/auth/register",
		`{"name":"Pepe Rone","email":"pepe@example.com","password":"Sup3rSecret!"}`)

	assert.Equal(t, fiber.StatusCreated, res.StatusCode)
	assert.Equal(t, "User registered successfully!", body["message"])
	assert.Equal(t, "pepe@example.com", body["email"])
	assert.Equal(t, "USER", body["role"])
	assert.NotContains(t, body, "token")
}

func TestRegisterEndpointValidation(t *testing.T) {
	s := newTestStack(t)

	tests := []struct {
		name    string
		payload string
		field   string
	}{
		{
			name:    "Missing email",
			payload: `{"name":"Pepe","password":"Sup3rSecret!"}`,
			field:   "email",
		},
		{
			name:    "Invalid email",
			payload: `{"name":"Pepe","email":"not-an-email","password":"Sup3rSecret!"}`,
			field:   "email",
		},
		{
			name:    "Weak password",
			payload: `{"name":"Pepe","email":"pepe@example.com","password":"short"}`,
			field:   "password",
		},
		{
			name:    "Password with whitespace",
			payload: `{"name":"Pepe","email":"pepe@example.com","password":"Sup3r Secret!"}`,
			field:   "password",
		},
		{
			name:    "Missing name",
			payload: `{"email":"pepe@example.com","password":"Sup3rSecret!"}`,
			field:   "name",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, body := s.request(t, http.MethodPost, "/api/auth/register", tt.payload)

			assert.Equal(t, fiber.StatusBadRequest, res.StatusCode)

			fields, ok := body["errors"].(map[string]any)
			assert.True(t, ok, "expected field error map, got %v", body)
			assert.Contains(t, fields, tt.field)
			assert.Contains(t, body, "timestamp")
		})
	}
}

func TestRegisterEndpointDuplicate(t *testing.T) {
	s := newTestStack(t)

	payload := `{"name":"Pepe Rone","email":"pepe@example.com","password":"Sup3rSecret!"}`

	res, _ := s.request(t, http.MethodPost, "/api/auth/register", payload)
	assert.Equal(t, fiber.StatusCreated, res.StatusCode)

	res, body := s.request(t, http.MethodPost, "/api/auth/register", payload)
	assert.Equal(t, fiber.StatusConflict, res.StatusCode)
	assert.Equal(t, "Email already in use!", body["details"])
	assert.Equal(t, "Conflict", body["error"])
}

func TestLoginEndpoint(t *testing.T) {
	s := newTestStack(t)
	seedVerifiedUser(t, s.repo, "pepe@example.com", "Sup3rSecret!")

	t.Run("Successful login", func(t *testing.T) {
		res, body := s.request(t, http.MethodPost, "/api/auth/login",
			`{"email":"pepe@example.com","password":"Sup3rSecret!"}`)

		assert.Equal(t, fiber.StatusOK, res.StatusCode)
		assert.Equal(t, "Logged in successfully!", body["message"])

		token, _ := body["token"].(string)
		assert.True(t, s.tokens.IsValid(token))
	})

	t.Run("Wrong password", func(t *testing.T) {
		res, body := s.request(t, http.MethodPost, "/api/auth/login",
			`{"email":"pepe@example.com","password":"WrongPassword1!"}`)

		assert.Equal(t, fiber.StatusUnauthorized, res.StatusCode)
		assert.Equal(t, "Email or password is incorrect.", body["details"])
	})

	t.Run("Unknown email fails with the same message", func(t *testing.T) {
		res, body := s.request(t, http.MethodPost, "/api/auth/login",
			`{"email":"nobody@example.com","password":"WrongPassword1!"}`)

		assert.Equal(t, fiber.StatusUnauthorized, res.StatusCode)
		assert.Equal(t, "Email or password is incorrect.", body["details"])
	})
}

func TestLoginEndpointUnverified(t *testing.T) {
	s := newTestStack(t)

	res, _ := s.request(t, http.MethodPost, "/api/auth/register",
		`{"name":"Pepe Rone","email":"pepe@example.com","password":"Sup3rSecret!"}`)
	assert.Equal(t, fiber.StatusCreated, res.StatusCode)

	res, body := s.request(t, http.MethodPost, "/api/auth/login",
		`{"email":"pepe@example.com","password":"Sup3rSecret!"}`)

	assert.Equal(t, fiber.StatusForbidden, res.StatusCode)
	assert.Equal(t, "Account is not verified. Please check your email.", body["details"])
}

func TestForgetPasswordEndpoint(t *testing.T) {
	s := newTestStack(t)
	seedVerifiedUser(t, s.repo, "pepe@example.com", "Sup3rSecret!")

	t.Run("Known email", func(t *testing.T) {
		res, body := s.request(t, http.MethodPost, "/api/auth/forget-password",
			`{"email":"pepe@example.com"}`)

		assert.Equal(t, fiber.StatusOK, res.StatusCode)
		assert.Equal(t, auth.MsgPasswordResetRequested, body["message"])
	})

	t.Run("Unknown email gets the same response", func(t *testing.T) {
		res, body := s.request(t, http.MethodPost, "/api/auth/forget-password",
			`{"email":"nobody@example.com"}`)

		assert.Equal(t, fiber.StatusOK, res.StatusCode)
		assert.Equal(t, auth.MsgPasswordResetRequested, body["message"])
	})

	t.Run("Invalid email", func(t *testing.T) {
		res, body := s.request(t, http.MethodPost, "/api/auth/forget-password",
			`{"email":"not-an-email"}`)

		assert.Equal(t, fiber.StatusBadRequest, res.StatusCode)
		fields, _ := body["errors"].(map[string]any)
		assert.Equal(t, "Should be a valid email address.", fields["email"])
	})

	s.sender.AssertNumberOfCalls(t, "SendResetPasswordEmail", 1)
}

func TestResetPasswordEndpoint(t *testing.T) {
	s := newTestStack(t)
	seedVerifiedUser(t, s.repo, "pepe@example.com", "Sup3rSecret!")

	_, _ = s.request(t, http.MethodPost, "/api/auth/forget-password", `{"email":"pepe@example.com"}`)

	stored, err := s.repo.users.FindByEmail(context.Background(), "pepe@example.com")
	assert.NoError(t, err)
	assert.True(t, stored.HasPendingReset())

	t.Run("Missing token", func(t *testing.T) {
		res, body := s.request(t, http.MethodPost, "/api/auth/reset-password",
			`{"newPassword":"NewPassword1!"}`)

		assert.Equal(t, fiber.StatusBadRequest, res.StatusCode)
		fields, _ := body["errors"].(map[string]any)
		assert.Equal(t, "Token must not be null.", fields["token"])
	})

	t.Run("Bogus token", func(t *testing.T) {
		res, body := s.request(t, http.MethodPost, "/api/auth/reset-password",
			`{"token":"bogus","newPassword":"NewPassword1!"}`)

		assert.Equal(t, fiber.StatusBadRequest, res.StatusCode)
		assert.Equal(t, "Invalid or expired password reset token.", body["details"])
	})

	t.Run("Valid token", func(t *testing.T) {
		res, body := s.request(t, http.MethodPost, "/api/auth/reset-password",
			`{"token":"`+stored.PasswordResetToken+`","newPassword":"NewPassword1!"}`)

		assert.Equal(t, fiber.StatusOK, res.StatusCode)
		assert.Equal(t, auth.MsgPasswordResetDone, body["message"])
	})
}

func TestVerifyEmailEndpoint(t *testing.T) {
	s := newTestStack(t)

	_, _ = s.request(t, http.MethodPost, "/api/auth/register",
		`{"name":"Pepe Rone","email":"pepe@example.com","password":"Sup3rSecret!"}`)

	stored, err := s.repo.users.FindByEmail(context.Background(), "pepe@example.com")
	assert.NoError(t, err)

	t.Run("Unknown token", func(t *testing.T) {
		res, body := s.request(t, http.MethodGet, "/api/auth/verify-email?token=bogus", "")
		assert.Equal(t, fiber.StatusBadRequest, res.StatusCode)
		assert.Equal(t, "Invalid verification token.", body["details"])
	})

	t.Run("Valid token", func(t *testing.T) {
		res, body := s.request(t, http.MethodGet,
			"/api/auth/verify-email?token="+stored.EmailVerificationToken, "")

		assert.Equal(t, fiber.StatusOK, res.StatusCode)
		assert.Equal(t, auth.MsgEmailVerified, body["message"])
	})
}
