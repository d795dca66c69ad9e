// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GoTours Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/samber/oops"

	"github.com/gotours/gotours/pkg/errutil"
)

// ResetDelivery is the out-of-band channel that carries a raw reset token to
// the account holder. The raw token never travels through any other channel;
// retry and backoff for delivery belong to the implementation, not to this
// service.
type ResetDelivery interface {
	Deliver(ctx context.Context, recipient, rawToken string) error
}

// dummyPasswordHash is used when an account doesn't exist to prevent timing attacks.
// We still run password verification to make response time consistent.
// This is NOT a real credential - it's a fake hash that will never match any password.
//
//nolint:gosec // G101: This is an intentionally fake hash for timing attack prevention, not a credential.
const dummyPasswordHash = "$argon2id$v=19$m=65536,t=1,p=4$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

// Service composes the credential store, token service, reset tokens, and
// delivery channel into the account-facing authentication flows.
type Service struct {
	accounts AccountRepository
	hasher   PasswordHasher
	tokens   TokenIssuer
	delivery ResetDelivery
	resetTTL time.Duration
	logger   *slog.Logger
}

// NewService creates a Service. resetTTL <= 0 defaults to
// DefaultResetTokenTTL.
func NewService(accounts AccountRepository, hasher PasswordHasher, tokens TokenIssuer, delivery ResetDelivery, resetTTL time.Duration) (*Service, error) {
	if accounts == nil {
		return nil, oops.Errorf("account repository is required")
	}
	if hasher == nil {
		return nil, oops.Errorf("password hasher is required")
	}
	if tokens == nil {
		return nil, oops.Errorf("token issuer is required")
	}
	if delivery == nil {
		return nil, oops.Errorf("reset delivery is required")
	}
	if resetTTL <= 0 {
		resetTTL = DefaultResetTokenTTL
	}
	return &Service{
		accounts: accounts,
		hasher:   hasher,
		tokens:   tokens,
		delivery: delivery,
		resetTTL: resetTTL,
		logger:   slog.Default(),
	}, nil
}

// NewServiceWithLogger creates a Service with a custom logger.
func NewServiceWithLogger(accounts AccountRepository, hasher PasswordHasher, tokens TokenIssuer, delivery ResetDelivery, resetTTL time.Duration, logger *slog.Logger) (*Service, error) {
	if logger == nil {
		return nil, oops.Errorf("logger is required")
	}
	svc, err := NewService(accounts, hasher, tokens, delivery, resetTTL)
	if err != nil {
		return nil, err
	}
	svc.logger = logger
	return svc, nil
}

// Signup validates the input, creates the account with a hashed password,
// and issues a session token. The confirmation field is compared and
// discarded; the raw password never leaves this call.
func (s *Service) Signup(ctx context.Context, name, email, password, passwordConfirm string) (*Account, string, error) {
	if err := ValidateNewPassword(password, passwordConfirm); err != nil {
		return nil, "", err
	}

	hash, err := s.hasher.Hash(ctx, password)
	if err != nil {
		return nil, "", oops.Code("AUTH_SIGNUP_FAILED").
			With("operation", "hash password").
			Wrap(err)
	}

	account, err := NewAccount(name, email, RoleUser, hash)
	if err != nil {
		return nil, "", err
	}

	if err := s.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			return nil, "", err
		}
		return nil, "", oops.Code("AUTH_SIGNUP_FAILED").
			With("operation", "create account").
			Wrap(err)
	}

	token, err := s.tokens.Issue(account.ID)
	if err != nil {
		return nil, "", oops.Code("AUTH_SIGNUP_FAILED").
			With("operation", "issue token").
			Wrap(err)
	}

	s.logger.InfoContext(ctx, "account created", "account_id", account.ID.String())
	return account, token, nil
}

// Login verifies the credentials and issues a session token. A missing
// account and a wrong password both collapse to ErrInvalidCredentials, and
// the password is verified against a dummy hash when the account is absent
// so response time does not betray which emails are registered.
func (s *Service) Login(ctx context.Context, email, password string) (*Account, string, error) {
	account, lookupErr := s.accounts.GetByEmail(ctx, email)

	targetHash := dummyPasswordHash
	accountExists := false
	if lookupErr != nil {
		if !errors.Is(lookupErr, ErrNotFound) {
			return nil, "", oops.Code("AUTH_LOGIN_FAILED").
				With("operation", "get account by email").
				Wrap(lookupErr)
		}
	} else {
		targetHash = account.PasswordHash
		accountExists = true
	}

	valid, verifyErr := s.hasher.Verify(ctx, password, targetHash)
	if verifyErr != nil {
		if !accountExists {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "verify password").
			Wrap(verifyErr)
	}

	if !accountExists || !valid {
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(account.ID)
	if err != nil {
		return nil, "", oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "issue token").
			Wrap(err)
	}

	return account, token, nil
}

// ForgotPassword generates a one-time reset token, stores only its hash and
// expiry on the account, and hands the raw token to the delivery channel.
// The caller receives no token, only an acknowledgement.
//
// An unregistered email fails with ErrAccountNotFound. This discloses
// registration status; see DESIGN.md for the trade-off.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrAccountNotFound
		}
		return oops.Code("RESET_REQUEST_FAILED").
			With("operation", "get account by email").
			Wrap(err)
	}

	token, hash, err := GenerateResetToken()
	if err != nil {
		return oops.Code("RESET_REQUEST_FAILED").
			With("operation", "generate reset token").
			Wrap(err)
	}

	expiresAt := time.Now().Add(s.resetTTL)
	if err := s.accounts.SetResetToken(ctx, account.ID, hash, expiresAt); err != nil {
		return oops.Code("RESET_REQUEST_FAILED").
			With("operation", "store reset token").
			Wrap(err)
	}

	if err := s.delivery.Deliver(ctx, account.Email, token); err != nil {
		// The stored hash is useless to the account holder if the token
		// never reached them; clear it so the failed request leaves no
		// pending reset behind.
		if clearErr := s.accounts.ClearResetToken(ctx, account.ID); clearErr != nil {
			errutil.LogError(s.logger, "clearing reset token after delivery failure", clearErr)
		}
		return oops.Code("RESET_DELIVERY_FAILED").
			With("operation", "deliver reset token").
			Wrap(err)
	}

	s.logger.InfoContext(ctx, "reset token issued", "account_id", account.ID.String())
	return nil
}

// ResetPassword consumes a reset token and applies the new password in a
// single atomic store operation, then issues a fresh session token. Tokens
// issued before the reset become stale through the guard's staleness check.
// Fails with ErrResetTokenNotFound or ErrResetTokenExpired.
func (s *Service) ResetPassword(ctx context.Context, rawToken, newPassword, newPasswordConfirm string) (*Account, string, error) {
	if rawToken == "" {
		return nil, "", ErrResetTokenNotFound
	}
	if err := ValidateNewPassword(newPassword, newPasswordConfirm); err != nil {
		return nil, "", err
	}

	hash, err := s.hasher.Hash(ctx, newPassword)
	if err != nil {
		return nil, "", oops.Code("RESET_PASSWORD_FAILED").
			With("operation", "hash password").
			Wrap(err)
	}

	tokenHash := HashResetToken(rawToken)
	account, err := s.accounts.ConsumeResetToken(ctx, tokenHash, hash, passwordChangedNow())
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			// The atomic consume only matches unexpired tokens. A hash
			// that still exists on some account means the token was
			// valid once and has since expired.
			if _, lookupErr := s.accounts.GetByResetTokenHash(ctx, tokenHash); lookupErr == nil {
				return nil, "", ErrResetTokenExpired
			}
			return nil, "", ErrResetTokenNotFound
		}
		return nil, "", oops.Code("RESET_PASSWORD_FAILED").
			With("operation", "consume reset token").
			Wrap(err)
	}

	token, err := s.tokens.Issue(account.ID)
	if err != nil {
		return nil, "", oops.Code("RESET_PASSWORD_FAILED").
			With("operation", "issue token").
			Wrap(err)
	}

	s.logger.InfoContext(ctx, "password reset", "account_id", account.ID.String())
	return account, token, nil
}

// UpdatePassword changes the password of an already-authenticated account.
// The current password must verify; the session guard has already vouched
// for the token. A fresh session token is issued because the password change
// makes the old one stale.
func (s *Service) UpdatePassword(ctx context.Context, account *Account, currentPassword, newPassword, newPasswordConfirm string) (string, error) {
	valid, err := s.hasher.Verify(ctx, currentPassword, account.PasswordHash)
	if err != nil {
		return "", oops.Code("AUTH_UPDATE_PASSWORD_FAILED").
			With("operation", "verify current password").
			Wrap(err)
	}
	if !valid {
		return "", ErrInvalidCredentials
	}

	if err := ValidateNewPassword(newPassword, newPasswordConfirm); err != nil {
		return "", err
	}

	hash, err := s.hasher.Hash(ctx, newPassword)
	if err != nil {
		return "", oops.Code("AUTH_UPDATE_PASSWORD_FAILED").
			With("operation", "hash password").
			Wrap(err)
	}

	changedAt := passwordChangedNow()
	if err := s.accounts.UpdatePassword(ctx, account.ID, hash, changedAt); err != nil {
		return "", oops.Code("AUTH_UPDATE_PASSWORD_FAILED").
			With("operation", "update password").
			Wrap(err)
	}
	account.PasswordHash = hash
	account.PasswordChangedAt = &changedAt

	token, err := s.tokens.Issue(account.ID)
	if err != nil {
		return "", oops.Code("AUTH_UPDATE_PASSWORD_FAILED").
			With("operation", "issue token").
			Wrap(err)
	}

	s.logger.InfoContext(ctx, "password updated", "account_id", account.ID.String())
	return token, nil
}

// ListAccounts returns all accounts. Role enforcement is the caller's
// concern; see Policy.
func (s *Service) ListAccounts(ctx context.Context) ([]*Account, error) {
	accounts, err := s.accounts.List(ctx)
	if err != nil {
		return nil, oops.Code("AUTH_LIST_FAILED").
			With("operation", "list accounts").
			Wrap(err)
	}
	return accounts, nil
}

// passwordChangedNow returns the timestamp recorded for a password change.
// It is backdated one second so a token issued within the same second as the
// change still compares as issued-after at second granularity.
func passwordChangedNow() time.Time {
	return time.Now().Add(-time.Second)
}
