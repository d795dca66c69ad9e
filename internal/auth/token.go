// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GoTours Contributors

package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Session token configuration.
const (
	// MinSigningSecretLen is the minimum HMAC secret length in bytes.
	MinSigningSecretLen = 32

	// DefaultTokenTTL is the session token lifetime when none is configured.
	DefaultTokenTTL = 24 * time.Hour
)

// TokenClaims is what a verified session token proves: which account it was
// issued for and when. Staleness against the account's password history is
// the SessionGuard's job, not the token's.
type TokenClaims struct {
	AccountID ulid.ULID
	IssuedAt  time.Time
}

// TokenIssuer mints session tokens.
type TokenIssuer interface {
	Issue(accountID ulid.ULID) (string, error)
}

// TokenVerifier verifies session tokens. Failures are ErrInvalidToken for
// malformed tokens and bad signatures, ErrExpiredToken past expiry.
type TokenVerifier interface {
	Verify(token string) (TokenClaims, error)
}

// TokenService issues and verifies signed stateless session tokens (HS256
// JWTs carrying the account ID and issuance time). Tokens are never
// persisted; possession of a token with a valid signature is the proof of a
// recent login.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// TokenServiceOption configures a TokenService.
type TokenServiceOption func(*TokenService)

// WithClock overrides the clock used for issuance and expiry checks.
// Intended for tests.
func WithClock(now func() time.Time) TokenServiceOption {
	return func(s *TokenService) { s.now = now }
}

// NewTokenService creates a TokenService with the given signing secret and
// token lifetime. The secret is fixed at startup and must be at least
// MinSigningSecretLen bytes. ttl <= 0 defaults to DefaultTokenTTL.
func NewTokenService(secret []byte, ttl time.Duration, opts ...TokenServiceOption) (*TokenService, error) {
	if len(secret) < MinSigningSecretLen {
		return nil, oops.Code("AUTH_WEAK_SECRET").
			With("min_bytes", MinSigningSecretLen).
			Errorf("signing secret must be at least %d bytes", MinSigningSecretLen)
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}

	s := &TokenService{
		secret: secret,
		ttl:    ttl,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Issue produces a signed token for the account, valid from now until the
// configured expiry.
func (s *TokenService) Issue(accountID ulid.ULID) (string, error) {
	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   accountID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	})

	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", oops.Code("AUTH_TOKEN_SIGN_FAILED").Wrap(err)
	}
	return signed, nil
}

// Verify parses and verifies a token and returns its claims. The signature
// is checked before any embedded claim is trusted: jwt's parser rejects the
// token on signature mismatch before claims validation, and the keyfunc
// rejects any signing method other than HMAC.
func (s *TokenService) Verify(tokenString string) (TokenClaims, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now), jwt.WithIssuedAt())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return TokenClaims{}, fmt.Errorf("%w: %w", ErrExpiredToken, err)
		}
		return TokenClaims{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !token.Valid {
		return TokenClaims{}, ErrInvalidToken
	}

	accountID, err := ulid.Parse(claims.Subject)
	if err != nil {
		return TokenClaims{}, fmt.Errorf("%w: bad subject", ErrInvalidToken)
	}
	if claims.IssuedAt == nil {
		return TokenClaims{}, fmt.Errorf("%w: missing issued-at", ErrInvalidToken)
	}

	return TokenClaims{
		AccountID: accountID,
		IssuedAt:  claims.IssuedAt.Time,
	}, nil
}
