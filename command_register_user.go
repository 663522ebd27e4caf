package auth

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// MsgUserRegistered is returned after a successful registration.
const MsgUserRegistered = "User registered successfully!"

// AuthResponse is the payload returned by the register and login workflows.
// Token is empty after registration: sessions are only issued once the
// account email has been verified.
type AuthResponse struct {
	Token   string   `json:"token,omitempty"`
	Email   string   `json:"email"`
	Role    UserRole `json:"role"`
	Message string   `json:"message"`
}

type RegisterUserMessage struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (e RegisterUserMessage) Type() string { return "user.register" }

type RegisterUserHandler struct {
	repo        RepositoryManager
	sender      Sender
	logger      Logger
	adminEmails []string
}

// NewRegisterUserHandler creates the registration workflow handler. Emails
// listed in adminEmails are granted the admin role at registration time.
func NewRegisterUserHandler(repo RepositoryManager, sender Sender, logger Logger, adminEmails []string) *RegisterUserHandler {
	if logger == nil {
		logger = defLogger{}
	}
	return &RegisterUserHandler{
		repo:        repo,
		sender:      sender,
		logger:      logger,
		adminEmails: adminEmails,
	}
}

func (h *RegisterUserHandler) Execute(ctx context.Context, event RegisterUserMessage) (*AuthResponse, error) {
	select {
	case <-ctx.Done():
		return nil, WrapError(ctx.Err(), KindInternal, "context cancelled during user registration")
	default:
		return h.execute(ctx, event)
	}
}

func (h *RegisterUserHandler) execute(ctx context.Context, event RegisterUserMessage) (*AuthResponse, error) {
	user := &User{}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		existing, err := h.repo.Users().FindByEmailTx(ctx, tx, event.Email)
		if err != nil {
			return WrapError(err, KindInternal, "failed to look up account")
		}
		if existing != nil {
			return ErrEmailAlreadyInUse
		}

		hash, err := HashPassword(event.Password)
		if err != nil {
			return WrapError(err, KindInternal, "failed to hash password")
		}

		user.Name = event.Name
		user.Email = event.Email
		user.PasswordHash = hash
		user.Role = h.resolveRole(event.Email)
		user.Verified = false
		user.EmailVerificationToken = uuid.NewString()

		if user, err = h.repo.Users().SaveTx(ctx, tx, user); err != nil {
			// unique constraint on email catches a racing insert
			return WrapError(err, KindEmailInUse, ErrEmailAlreadyInUse.Message)
		}

		return nil
	})

	if err != nil {
		var authErr *Error
		if AsError(err, &authErr) {
			return nil, authErr
		}
		return nil, WrapError(err, KindInternal, "user registration transaction failed")
	}

	if err := h.sender.SendVerificationEmail(user.Email, user.EmailVerificationToken); err != nil {
		h.logger.Error("failed to dispatch verification email", "email", user.Email, "error", err)
		return nil, WrapError(err, KindDispatchFailed, "failed to dispatch verification email")
	}

	return &AuthResponse{
		Email:   user.Email,
		Role:    user.Role,
		Message: MsgUserRegistered,
	}, nil
}

func (h *RegisterUserHandler) resolveRole(email string) UserRole {
	for _, admin := range h.adminEmails {
		if strings.EqualFold(admin, email) {
			return RoleAdmin
		}
	}
	return RoleUser
}
