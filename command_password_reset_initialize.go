package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// MsgPasswordResetRequested is returned regardless of whether the email is
// known, so callers cannot probe which addresses are registered.
const MsgPasswordResetRequested = "If an account with that email exists, a password reset link has been sent."

// DefaultResetTokenTTL is how long a reset token stays usable.
const DefaultResetTokenTTL = 20 * time.Minute

type InitializePasswordResetMessage struct {
	Email string `json:"email"`
}

func (e InitializePasswordResetMessage) Type() string { return "user.password_reset_init" }

type InitializePasswordResetHandler struct {
	repo     RepositoryManager
	sender   Sender
	logger   Logger
	resetTTL time.Duration
	now      func() time.Time
}

func NewInitializePasswordResetHandler(repo RepositoryManager, sender Sender, logger Logger, resetTTL time.Duration) *InitializePasswordResetHandler {
	if logger == nil {
		logger = defLogger{}
	}
	if resetTTL <= 0 {
		resetTTL = DefaultResetTokenTTL
	}
	return &InitializePasswordResetHandler{
		repo:     repo,
		sender:   sender,
		logger:   logger,
		resetTTL: resetTTL,
		now:      time.Now,
	}
}

// Execute starts a password reset. The returned message is identical for
// known and unknown emails; a notification is only dispatched for known ones.
func (h *InitializePasswordResetHandler) Execute(ctx context.Context, event InitializePasswordResetMessage) (string, error) {
	select {
	case <-ctx.Done():
		return "", WrapError(ctx.Err(), KindInternal, "context cancelled during password reset initialization")
	default:
		return h.execute(ctx, event)
	}
}

func (h *InitializePasswordResetHandler) execute(ctx context.Context, event InitializePasswordResetMessage) (string, error) {
	var user *User

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		found, err := h.repo.Users().FindByEmailTx(ctx, tx, event.Email)
		if err != nil {
			return WrapError(err, KindInternal, "failed to look up account")
		}
		if found == nil {
			return nil
		}

		expiry := h.now().Add(h.resetTTL)
		found.PasswordResetToken = uuid.NewString()
		found.TokenExpiryDate = &expiry

		if user, err = h.repo.Users().SaveTx(ctx, tx, found); err != nil {
			return WrapError(err, KindInternal, "failed to persist reset token")
		}

		return nil
	})

	if err != nil {
		var authErr *Error
		if AsError(err, &authErr) {
			return "", authErr
		}
		return "", WrapError(err, KindInternal, "password reset transaction failed")
	}

	if user != nil {
		if err := h.sender.SendResetPasswordEmail(user.Email, user.PasswordResetToken); err != nil {
			h.logger.Error("failed to dispatch reset email", "email", user.Email, "error", err)
			return "", WrapError(err, KindDispatchFailed, "failed to dispatch reset email")
		}
	}

	return MsgPasswordResetRequested, nil
}
