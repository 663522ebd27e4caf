// Package auth implements email and password authentication with verified
// accounts, bearer tokens, and self-service password recovery.
//
// Account lifecycle:
//   - Registration stores a bcrypt hash and an email verification token; no
//     session token is issued until the address is verified. Duplicate emails
//     fail with ErrEmailAlreadyInUse.
//   - Login verifies the credentials and issues a signed HS256 bearer token
//     whose subject is the account email. Unknown addresses and wrong
//     passwords produce the same ErrInvalidCredentials so callers cannot
//     enumerate accounts; unverified accounts fail with the distinct
//     ErrAccountNotVerified.
//   - Password recovery stores a single-use reset token with a short expiry
//     on the user row. Consuming a token is an atomic conditional update, so
//     a token can be spent at most once.
//
// Request authentication:
//   - The middleware/jwtware gate extracts the bearer token, validates it,
//     resolves the caller's identity, and threads it through the request
//     context. RequireAuthenticated and RequireRole enforce access on
//     protected routes; role checks run against the resolved role before the
//     handler executes.
//
// Failures carry a tagged Kind (see Error) that the central HTTP translator
// maps to a status code exactly once, at the boundary.
package auth
