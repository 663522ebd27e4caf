package auth

import (
	"context"
)

type auther struct {
	repo   RepositoryManager
	tokens TokenService
	logger Logger
}

var _ Authenticator = (*auther)(nil)

// NewAuthenticator creates the credential authenticator. It checks email and
// password against the directory and, on success, issues a session token for
// the account.
func NewAuthenticator(repo RepositoryManager, tokens TokenService, logger Logger) Authenticator {
	if logger == nil {
		logger = defLogger{}
	}
	return &auther{
		repo:   repo,
		tokens: tokens,
		logger: logger,
	}
}

// VerifyIdentity checks the credentials against the stored record. Unknown
// email and wrong password both fail with ErrInvalidCredentials so a caller
// cannot probe which addresses are registered. An unverified account fails
// with ErrAccountNotVerified even when the password matches.
func (a *auther) VerifyIdentity(ctx context.Context, email, password string) (*User, error) {
	user, err := a.repo.Users().FindByEmail(ctx, email)
	if err != nil {
		return nil, WrapError(err, KindInternal, "failed to look up account")
	}

	if user == nil {
		return nil, ErrInvalidCredentials
	}

	if err := ComparePasswordAndHash(password, user.PasswordHash); err != nil {
		a.logger.Debug("password mismatch", "email", email)
		return nil, ErrInvalidCredentials
	}

	if !user.Verified {
		return nil, ErrAccountNotVerified
	}

	return user, nil
}

// Login verifies the credentials and mints a session token whose subject is
// the account email.
func (a *auther) Login(ctx context.Context, email, password string) (string, *User, error) {
	user, err := a.VerifyIdentity(ctx, email, password)
	if err != nil {
		return "", nil, err
	}

	token, err := a.tokens.Generate(user.Email)
	if err != nil {
		a.logger.Error("login failed to sign token", "error", err)
		return "", nil, WrapError(err, KindInternal, "failed to issue session token")
	}

	return token, user, nil
}
