package auth

import (
	"context"
	"time"

	"github.com/uptrace/bun"
)

// MsgEmailVerified is returned after a successful email verification.
const MsgEmailVerified = "Email verified successfully!"

type VerifyEmailMessage struct {
	Token string `json:"token"`
}

func (e VerifyEmailMessage) Type() string { return "user.verify_email" }

type VerifyEmailHandler struct {
	repo   RepositoryManager
	logger Logger
}

func NewVerifyEmailHandler(repo RepositoryManager, logger Logger) *VerifyEmailHandler {
	if logger == nil {
		logger = defLogger{}
	}
	return &VerifyEmailHandler{
		repo:   repo,
		logger: logger,
	}
}

// Execute marks the account verified and spends the verification token.
func (h *VerifyEmailHandler) Execute(ctx context.Context, event VerifyEmailMessage) (string, error) {
	select {
	case <-ctx.Done():
		return "", WrapError(ctx.Err(), KindInternal, "context cancelled during email verification")
	default:
		return h.execute(ctx, event)
	}
}

func (h *VerifyEmailHandler) execute(ctx context.Context, event VerifyEmailMessage) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		verified, err := h.repo.Users().ConsumeEmailVerificationTokenTx(ctx, tx, event.Token)
		if err != nil {
			return WrapError(err, KindInternal, "failed to consume verification token")
		}

		if verified == nil {
			return ErrInvalidVerificationToken
		}

		return nil
	})

	if err != nil {
		var authErr *Error
		if AsError(err, &authErr) {
			return "", authErr
		}
		return "", WrapError(err, KindInternal, "email verification transaction failed")
	}

	return MsgEmailVerified, nil
}
