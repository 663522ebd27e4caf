package auth

import (
	"context"
	"time"

	"github.com/uptrace/bun"
)

// MsgPasswordResetDone is returned after a successful password reset.
const MsgPasswordResetDone = "Password has been successfully reset."

type FinalizePasswordResetMessage struct {
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}

func (e FinalizePasswordResetMessage) Type() string { return "user.password_reset_finalize" }

type FinalizePasswordResetHandler struct {
	repo   RepositoryManager
	logger Logger
	now    func() time.Time
}

func NewFinalizePasswordResetHandler(repo RepositoryManager, logger Logger) *FinalizePasswordResetHandler {
	if logger == nil {
		logger = defLogger{}
	}
	return &FinalizePasswordResetHandler{
		repo:   repo,
		logger: logger,
		now:    time.Now,
	}
}

// Execute completes a password reset. Unknown, expired, and already-spent
// tokens all fail with the same error so the caller cannot tell which.
func (h *FinalizePasswordResetHandler) Execute(ctx context.Context, event FinalizePasswordResetMessage) (string, error) {
	select {
	case <-ctx.Done():
		return "", WrapError(ctx.Err(), KindInternal, "context cancelled during password reset")
	default:
		return h.execute(ctx, event)
	}
}

func (h *FinalizePasswordResetHandler) execute(ctx context.Context, event FinalizePasswordResetMessage) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		user, err := h.repo.Users().FindByPasswordResetTokenTx(ctx, tx, event.Token)
		if err != nil {
			return WrapError(err, KindInternal, "failed to look up reset token")
		}

		if user == nil || user.ResetTokenExpired(h.now()) {
			return ErrInvalidResetToken
		}

		hash, err := HashPassword(event.NewPassword)
		if err != nil {
			return WrapError(err, KindInternal, "failed to hash password")
		}

		consumed, err := h.repo.Users().ConsumePasswordResetTokenTx(ctx, tx, event.Token, hash)
		if err != nil {
			return WrapError(err, KindInternal, "failed to consume reset token")
		}

		// a concurrent reset spent the token between lookup and consume
		if consumed == nil {
			return ErrInvalidResetToken
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

	return MsgPasswordResetDone, nil
}
