package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"
)

// AuthController exposes the auth workflows over HTTP.
type AuthController struct {
	Logger        Logger
	Repo          RepositoryManager
	Auther        Authenticator
	Sender        Sender
	AdminEmails   []string
	ResetTokenTTL time.Duration
}

type AuthControllerOption func(*AuthController) *AuthController

func WithLogger(logger Logger) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Logger = logger
		return c
	}
}

func WithRepositoryManager(repo RepositoryManager) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Repo = repo
		return c
	}
}

func WithAuthenticator(auther Authenticator) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Auther = auther
		return c
	}
}

func WithSender(sender Sender) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.Sender = sender
		return c
	}
}

func WithAdminEmails(emails []string) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.AdminEmails = emails
		return c
	}
}

func WithResetTokenTTL(ttl time.Duration) AuthControllerOption {
	return func(c *AuthController) *AuthController {
		c.ResetTokenTTL = ttl
		return c
	}
}

func NewAuthController(opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Logger:        defLogger{},
		ResetTokenTTL: DefaultResetTokenTTL,
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Repo == nil {
		panic("Missing RepositoryManager in auth controller...")
	}

	if c.Auther == nil {
		panic("Missing Authenticator in auth controller...")
	}

	if c.Sender == nil {
		panic("Missing Sender in auth controller...")
	}

	return c
}

// RegisterRequest payload
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate runs presence checks first, then format checks on present fields.
func (r RegisterRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Name,
			validation.Required.Error("Name must not be blank."),
		),
		validation.Field(
			&r.Email,
			validation.Required.Error("Email must not be blank."),
			is.Email.Error("email should be valid"),
		),
		validation.Field(
			&r.Password,
			validation.Required.Error("Password must not be blank."),
			validation.By(passwordComplexity),
		),
	)
}

// LoginRequest payload
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate runs validation rules
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Email,
			validation.Required.Error("Email must not be blank."),
			is.Email.Error("email should be valid"),
		),
		validation.Field(
			&r.Password,
			validation.Required.Error("Password must not be blank."),
		),
	)
}

// ForgetPasswordRequest payload
type ForgetPasswordRequest struct {
	Email string `json:"email"`
}

// Validate runs validation rules
func (r ForgetPasswordRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Email,
			validation.Required.Error("Email must not be blank."),
			is.Email.Error("Should be a valid email address."),
		),
	)
}

// ResetPasswordRequest payload
type ResetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}

// Validate runs validation rules
func (r ResetPasswordRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Token,
			validation.Required.Error("Token must not be null."),
		),
		validation.Field(
			&r.NewPassword,
			validation.Required.Error("Password must not be blank."),
			validation.By(passwordComplexity),
		),
	)
}

func (a *AuthController) Register(c *fiber.Ctx) error {
	payload := new(RegisterRequest)

	if err := c.BodyParser(payload); err != nil {
		a.Logger.Error("register parse payload", "error", err)
		return NewError(KindBadInput, "Failed to parse request body")
	}

	if err := payload.Validate(); err != nil {
		return err
	}

	registerUser := NewRegisterUserHandler(a.Repo, a.Sender, a.Logger, a.AdminEmails)
	resp, err := registerUser.Execute(c.UserContext(), RegisterUserMessage{
		Name:     payload.Name,
		Email:    payload.Email,
		Password: payload.Password,
	})
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(resp)
}

func (a *AuthController) Login(c *fiber.Ctx) error {
	payload := new(LoginRequest)

	if err := c.BodyParser(payload); err != nil {
		a.Logger.Error("login parse payload", "error", err)
		return NewError(KindBadInput, "Failed to parse request body")
	}

	if err := payload.Validate(); err != nil {
		return err
	}

	token, user, err := a.Auther.Login(c.UserContext(), payload.Email, payload.Password)
	if err != nil {
		return err
	}

	return c.JSON(&AuthResponse{
		Token:   token,
		Email:   user.Email,
		Role:    user.Role,
		Message: "Logged in successfully!",
	})
}

func (a *AuthController) ForgetPassword(c *fiber.Ctx) error {
	payload := new(ForgetPasswordRequest)

	if err := c.BodyParser(payload); err != nil {
		a.Logger.Error("forget password parse payload", "error", err)
		return NewError(KindBadInput, "Failed to parse request body")
	}

	if err := payload.Validate(); err != nil {
		return err
	}

	initReset := NewInitializePasswordResetHandler(a.Repo, a.Sender, a.Logger, a.ResetTokenTTL)
	msg, err := initReset.Execute(c.UserContext(), InitializePasswordResetMessage{
		Email: payload.Email,
	})
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"message": msg})
}

func (a *AuthController) ResetPassword(c *fiber.Ctx) error {
	payload := new(ResetPasswordRequest)

	if err := c.BodyParser(payload); err != nil {
		a.Logger.Error("reset password parse payload", "error", err)
		return NewError(KindBadInput, "Failed to parse request body")
	}

	if err := payload.Validate(); err != nil {
		return err
	}

	finalizeReset := NewFinalizePasswordResetHandler(a.Repo, a.Logger)
	msg, err := finalizeReset.Execute(c.UserContext(), FinalizePasswordResetMessage{
		Token:       payload.Token,
		NewPassword: payload.NewPassword,
	})
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"message": msg})
}

func (a *AuthController) VerifyEmail(c *fiber.Ctx) error {
	token := c.Query("token")

	verify := NewVerifyEmailHandler(a.Repo, a.Logger)
	msg, err := verify.Execute(c.UserContext(), VerifyEmailMessage{Token: token})
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"message": msg})
}

// CurrentUser greets the authenticated caller. The gate must run first.
func (a *AuthController) CurrentUser(c *fiber.Ctx) error {
	identity, ok := IdentityFromContext(c.UserContext())
	if !ok {
		return NewError(KindInternal, "identity missing from request context")
	}

	return c.JSON(fiber.Map{
		"message": fmt.Sprintf("Hello %s, your role: %s", identity.Name(), identity.Role()),
	})
}

// AdminOnly is reachable only through the admin role check.
func (a *AuthController) AdminOnly(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"message": "Welcome admin"})
}

var passwordSpecials = "!@#$%^&+="

// passwordComplexity enforces the account password policy: 8 to 20 runes
// with at least one digit, one lowercase, one uppercase, one special
// character, and no whitespace.
func passwordComplexity(value any) error {
	s, _ := value.(string)

	policyErr := errors.New(
		"Password must be 8-20 characters long, include a digit, an uppercase letter, a lowercase letter, a special character, and contain no whitespace.",
	)

	if len(s) < 8 || len(s) > 20 {
		return policyErr
	}

	var hasDigit, hasLower, hasUpper, hasSpecial bool
	for _, r := range s {
		switch {
		case unicode.IsSpace(r):
			return policyErr
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsUpper(r):
			hasUpper = true
		case strings.ContainsRune(passwordSpecials, r):
			hasSpecial = true
		}
	}

	if !hasDigit || !hasLower || !hasUpper || !hasSpecial {
		return policyErr
	}

	return nil
}
