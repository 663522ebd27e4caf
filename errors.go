package auth

import (
	"errors"
	"net/http"
)

// Kind tags a business failure so it can be matched with errors.Is and
// translated to an HTTP status exactly once, at the boundary.
type Kind string

const (
	KindEmailInUse               Kind = "EMAIL_IN_USE"
	KindInvalidCredentials       Kind = "INVALID_CREDENTIALS"
	KindAccountNotVerified       Kind = "ACCOUNT_NOT_VERIFIED"
	KindInvalidResetToken        Kind = "INVALID_RESET_TOKEN"
	KindInvalidVerificationToken Kind = "INVALID_VERIFICATION_TOKEN"
	KindTokenExpired             Kind = "TOKEN_EXPIRED"
	KindTokenMalformed           Kind = "TOKEN_MALFORMED"
	KindBadInput                 Kind = "BAD_INPUT"
	KindDispatchFailed           Kind = "DISPATCH_FAILED"
	KindInternal                 Kind = "INTERNAL"
)

// Error is a business failure carrying a Kind. Two Errors match under
// errors.Is when their kinds are equal, so the sentinel values below double
// as match targets for wrapped failures.
type Error struct {
	Kind    Kind
	Message string
	cause   error
}

func NewError(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func WrapError(err error, kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message, cause: err}
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.Message + ": " + e.cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.cause }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Status maps the kind to the HTTP status the central translator uses.
func (e *Error) Status() int {
	switch e.Kind {
	case KindEmailInUse:
		return http.StatusConflict
	case KindInvalidCredentials, KindTokenExpired, KindTokenMalformed:
		return http.StatusUnauthorized
	case KindAccountNotVerified:
		return http.StatusForbidden
	case KindInvalidResetToken, KindInvalidVerificationToken, KindBadInput:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// AsError unwraps err into target when a tagged Error is in the chain.
func AsError(err error, target **Error) bool {
	return errors.As(err, target)
}

// KindOf returns the Kind of err, or the empty Kind for untagged errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Kind("")
}

var (
	ErrEmailAlreadyInUse        = NewError(KindEmailInUse, "Email already in use!")
	ErrInvalidCredentials       = NewError(KindInvalidCredentials, "Email or password is incorrect.")
	ErrAccountNotVerified       = NewError(KindAccountNotVerified, "Account is not verified. Please check your email.")
	ErrInvalidResetToken        = NewError(KindInvalidResetToken, "Invalid or expired password reset token.")
	ErrInvalidVerificationToken = NewError(KindInvalidVerificationToken, "Invalid verification token.")
	ErrTokenExpired             = NewError(KindTokenExpired, "token is expired")
	ErrTokenMalformed           = NewError(KindTokenMalformed, "token is malformed")
)

// ErrNoEmptyString is returned when hashing an empty password.
var ErrNoEmptyString = errors.New("string must not be empty")

// ErrMismatchedHashAndPassword is returned when a password does not match
// its stored hash.
var ErrMismatchedHashAndPassword = errors.New("mismatched password and hash")

// IsTokenExpiredError reports whether err came from an expired bearer token.
func IsTokenExpiredError(err error) bool {
	return errors.Is(err, ErrTokenExpired)
}

// IsMalformedTokenError reports whether err came from a token that failed
// parsing or signature verification.
func IsMalformedTokenError(err error) bool {
	return errors.Is(err, ErrTokenMalformed)
}
