// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GoTours Contributors

package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/samber/oops"
)

// SessionGuard validates an inbound bearer token before a request reaches
// protected handlers. Each step short-circuits on failure:
//
//	extract token -> verify signature/expiry -> load account -> staleness check
//
// The staleness check compares the token's issuance time against the
// account's PasswordChangedAt and is the sole revocation mechanism for the
// otherwise stateless tokens.
type SessionGuard struct {
	tokens   TokenVerifier
	accounts AccountRepository
}

// NewSessionGuard creates a SessionGuard.
func NewSessionGuard(tokens TokenVerifier, accounts AccountRepository) (*SessionGuard, error) {
	if tokens == nil {
		return nil, oops.Errorf("token verifier is required")
	}
	if accounts == nil {
		return nil, oops.Errorf("account repository is required")
	}
	return &SessionGuard{tokens: tokens, accounts: accounts}, nil
}

// Authenticate validates the Authorization header value and returns the
// authenticated account. Failures are ErrNoToken, ErrInvalidToken,
// ErrExpiredToken, ErrAccountGone, or ErrStaleToken; all of them mean the
// request must be rejected as unauthenticated.
func (g *SessionGuard) Authenticate(ctx context.Context, authorization string) (*Account, error) {
	token, err := BearerToken(authorization)
	if err != nil {
		return nil, err
	}

	claims, err := g.tokens.Verify(token)
	if err != nil {
		return nil, err
	}

	account, err := g.accounts.GetByID(ctx, claims.AccountID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrAccountGone
		}
		return nil, oops.Code("AUTH_GUARD_FAILED").
			With("operation", "get account by id").
			With("account_id", claims.AccountID.String()).
			Wrap(err)
	}

	if account.PasswordChangedAfter(claims.IssuedAt) {
		return nil, ErrStaleToken
	}

	return account, nil
}

// BearerToken extracts the token from an "Authorization: Bearer <token>"
// header value. The scheme is matched case-insensitively.
func BearerToken(authorization string) (string, error) {
	if authorization == "" {
		return "", ErrNoToken
	}
	scheme, token, found := strings.Cut(authorization, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", ErrNoToken
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrNoToken
	}
	return token, nil
}
