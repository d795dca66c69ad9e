// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GoTours Contributors

package auth

import "errors"

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicateEmail is returned when an account with the same email
// already exists.
var ErrDuplicateEmail = errors.New("email already registered")

// ErrInvalidCredentials is returned on login failure. A missing account and
// a wrong password produce the same error so callers cannot probe which
// emails are registered.
var ErrInvalidCredentials = errors.New("invalid email or password")

// Session guard failures. All map to an unauthenticated response.
var (
	// ErrNoToken is returned when a request carries no bearer token.
	ErrNoToken = errors.New("no session token")

	// ErrInvalidToken is returned when a token is malformed or its
	// signature does not verify.
	ErrInvalidToken = errors.New("invalid session token")

	// ErrExpiredToken is returned when a token's expiry has passed.
	ErrExpiredToken = errors.New("session token expired")

	// ErrAccountGone is returned when a valid token references an account
	// that no longer exists.
	ErrAccountGone = errors.New("account no longer exists")

	// ErrStaleToken is returned when the account's password changed after
	// the token was issued. This is the sole revocation mechanism for an
	// otherwise stateless token.
	ErrStaleToken = errors.New("password changed after token was issued")
)

// ErrForbidden is returned by the access policy when the account's role is
// not in the allowed set.
var ErrForbidden = errors.New("insufficient permissions")

// Password reset failures.
var (
	// ErrResetTokenNotFound is returned when no account matches the
	// presented reset token.
	ErrResetTokenNotFound = errors.New("reset token not found")

	// ErrResetTokenExpired is returned when the reset token matches an
	// account but its expiry has passed.
	ErrResetTokenExpired = errors.New("reset token expired")
)

// ErrAccountNotFound is returned by ForgotPassword when the target email is
// not registered.
var ErrAccountNotFound = errors.New("no account with that email")
