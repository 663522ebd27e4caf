package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenServiceImpl implements the TokenService interface
type TokenServiceImpl struct {
	signingKey []byte
	ttl        time.Duration
	issuer     string
	logger     Logger
}

// NewTokenService creates a new TokenService instance. Tokens are signed
// with a single process-wide HS256 key; rotating the key invalidates every
// outstanding token.
func NewTokenService(signingKey []byte, ttl time.Duration, issuer string, logger Logger) *TokenServiceImpl {
	if logger == nil {
		logger = defLogger{}
	}
	return &TokenServiceImpl{
		signingKey: signingKey,
		ttl:        ttl,
		issuer:     issuer,
		logger:     logger,
	}
}

var _ TokenService = (*TokenServiceImpl)(nil)

// Generate creates a signed token for the given subject with
// expiry = now + TTL.
func (ts *TokenServiceImpl) Generate(subject string) (string, error) {
	now := time.Now()
	claims := &JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    ts.issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ts.ttl)),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString(ts.signingKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return signed, nil
}

// Validate parses and verifies a token string, returning its claims.
// Expired tokens fail with ErrTokenExpired; everything else that cannot be
// verified fails with ErrTokenMalformed.
func (ts *TokenServiceImpl) Validate(raw string) (AuthClaims, error) {
	parserOptions := make([]jwt.ParserOption, 0, 1)
	if ts.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(ts.issuer))
	}

	token, err := jwt.ParseWithClaims(raw, &JWTClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			ts.logger.Error("token validate encountered unexpected signing method", "alg", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return ts.signingKey, nil
	}, parserOptions...)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, WrapError(err, KindTokenExpired, ErrTokenExpired.Message)
		}
		return nil, WrapError(err, KindTokenMalformed, ErrTokenMalformed.Message)
	}

	if claims, ok := token.Claims.(*JWTClaims); ok && token.Valid {
		return claims, nil
	}

	ts.logger.Error("token validate could not decode claims")
	return nil, NewError(KindTokenMalformed, ErrTokenMalformed.Message)
}

// Subject extracts the subject from a verified token. Callers must treat
// both failure modes as unauthenticated, but they remain distinguishable
// via errors.Is.
func (ts *TokenServiceImpl) Subject(raw string) (string, error) {
	claims, err := ts.Validate(raw)
	if err != nil {
		return "", err
	}
	return claims.Subject(), nil
}

// IsValid reports whether the token verifies and has not expired. It never
// panics; empty, malformed, badly signed, and expired tokens are all false.
func (ts *TokenServiceImpl) IsValid(raw string) bool {
	if raw == "" {
		return false
	}
	_, err := ts.Validate(raw)
	return err == nil
}
