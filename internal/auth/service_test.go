// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GoTours Contributors

package auth_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/gotours/gotours/internal/auth"
	"github.com/gotours/gotours/internal/auth/mocks"
	"github.com/gotours/gotours/pkg/errutil"
)

func newTestService(t *testing.T) (*auth.Service, *mocks.MockAccountRepository, *mocks.MockPasswordHasher, *mocks.MockTokenIssuer, *mocks.MockResetDelivery) {
	t.Helper()
	accounts := mocks.NewMockAccountRepository(t)
	hasher := mocks.NewMockPasswordHasher(t)
	tokens := mocks.NewMockTokenIssuer(t)
	delivery := mocks.NewMockResetDelivery(t)
	svc, err := auth.NewService(accounts, hasher, tokens, delivery, 10*time.Minute)
	require.NoError(t, err)
	return svc, accounts, hasher, tokens, delivery
}

func TestNewService_NilDependencies(t *testing.T) {
	accounts := mocks.NewMockAccountRepository(t)
	hasher := mocks.NewMockPasswordHasher(t)
	tokens := mocks.NewMockTokenIssuer(t)
	delivery := mocks.NewMockResetDelivery(t)

	tests := []struct {
		name     string
		accounts auth.AccountRepository
		hasher   auth.PasswordHasher
		tokens   auth.TokenIssuer
		delivery auth.ResetDelivery
	}{
		{"nil accounts", nil, hasher, tokens, delivery},
		{"nil hasher", accounts, nil, tokens, delivery},
		{"nil tokens", accounts, hasher, nil, delivery},
		{"nil delivery", accounts, hasher, tokens, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := auth.NewService(tt.accounts, tt.hasher, tt.tokens, tt.delivery, 0)
			require.Error(t, err)
			assert.Nil(t, svc)
		})
	}
}

func TestService_Signup(t *testing.T) {
	ctx := context.Background()

	t.Run("creates account and issues token", func(t *testing.T) {
		svc, accounts, hasher, tokens, _ := newTestService(t)

		hasher.On("Hash", ctx, "password1").Return("hashed", nil)
		accounts.On("Create", ctx, mock.AnythingOfType("*auth.Account")).Return(nil)
		tokens.On("Issue", mock.AnythingOfType("ulid.ULID")).Return("session-token", nil)

		account, token, err := svc.Signup(ctx, "Ann", "ann@x.com", "password1", "password1")
		require.NoError(t, err)
		assert.Equal(t, "session-token", token)
		assert.Equal(t, "Ann", account.Name)
		assert.Equal(t, auth.RoleUser, account.Role)
		assert.Equal(t, "hashed", account.PasswordHash)
	})

	t.Run("rejects mismatched confirmation before hashing", func(t *testing.T) {
		svc, _, hasher, _, _ := newTestService(t)

		_, _, err := svc.Signup(ctx, "Ann", "ann@x.com", "password1", "password2")
		require.Error(t, err)
		hasher.AssertNotCalled(t, "Hash")
	})

	t.Run("rejects invalid name", func(t *testing.T) {
		svc, _, hasher, _, _ := newTestService(t)
		hasher.On("Hash", ctx, "password1").Return("hashed", nil)

		_, _, err := svc.Signup(ctx, "An", "ann@x.com", "password1", "password1")
		require.Error(t, err)
	})

	t.Run("surfaces duplicate email", func(t *testing.T) {
		svc, accounts, hasher, _, _ := newTestService(t)

		hasher.On("Hash", ctx, "password1").Return("hashed", nil)
		accounts.On("Create", ctx, mock.AnythingOfType("*auth.Account")).Return(auth.ErrDuplicateEmail)

		_, _, err := svc.Signup(ctx, "Ann", "ann@x.com", "password1", "password1")
		require.ErrorIs(t, err, auth.ErrDuplicateEmail)
	})
}

func TestService_Login(t *testing.T) {
	ctx := context.Background()

	t.Run("valid credentials issue a token", func(t *testing.T) {
		svc, accounts, hasher, tokens, _ := newTestService(t)

		accountID := ulid.Make()
		account := &auth.Account{ID: accountID, Email: "ann@x.com", PasswordHash: "stored-hash"}
		accounts.On("GetByEmail", ctx, "ann@x.com").Return(account, nil)
		hasher.On("Verify", ctx, "password1", "stored-hash").Return(true, nil)
		tokens.On("Issue", accountID).Return("session-token", nil)

		got, token, err := svc.Login(ctx, "ann@x.com", "password1")
		require.NoError(t, err)
		assert.Same(t, account, got)
		assert.Equal(t, "session-token", token)
	})

	t.Run("wrong password fails without issuing a token", func(t *testing.T) {
		svc, accounts, hasher, tokens, _ := newTestService(t)

		account := &auth.Account{ID: ulid.Make(), PasswordHash: "stored-hash"}
		accounts.On("GetByEmail", ctx, "ann@x.com").Return(account, nil)
		hasher.On("Verify", ctx, "wrong", "stored-hash").Return(false, nil)

		_, _, err := svc.Login(ctx, "ann@x.com", "wrong")
		require.ErrorIs(t, err, auth.ErrInvalidCredentials)
		tokens.AssertNotCalled(t, "Issue")
	})

	t.Run("unknown email verifies against dummy hash", func(t *testing.T) {
		svc, accounts, hasher, _, _ := newTestService(t)

		accounts.On("GetByEmail", ctx, "ghost@x.com").Return(nil, auth.ErrNotFound)
		// Verify still runs so response timing stays flat.
		hasher.On("Verify", ctx, "password1", mock.AnythingOfType("string")).Return(false, nil)

		_, _, err := svc.Login(ctx, "ghost@x.com", "password1")
		require.ErrorIs(t, err, auth.ErrInvalidCredentials)
	})

	t.Run("store failure is not invalid credentials", func(t *testing.T) {
		svc, accounts, _, _, _ := newTestService(t)

		accounts.On("GetByEmail", ctx, "ann@x.com").Return(nil, errors.New("connection refused"))

		_, _, err := svc.Login(ctx, "ann@x.com", "password1")
		require.Error(t, err)
		assert.NotErrorIs(t, err, auth.ErrInvalidCredentials)
	})
}

func TestService_ForgotPassword(t *testing.T) {
	ctx := context.Background()

	t.Run("stores hash and hands raw token to delivery", func(t *testing.T) {
		svc, accounts, _, _, delivery := newTestService(t)

		accountID := ulid.Make()
		account := &auth.Account{ID: accountID, Email: "ann@x.com"}
		accounts.On("GetByEmail", ctx, "ann@x.com").Return(account, nil)

		var storedHash, deliveredToken string
		accounts.On("SetResetToken", ctx, accountID, mock.AnythingOfType("string"), mock.AnythingOfType("time.Time")).
			Run(func(args mock.Arguments) { storedHash = args.String(2) }).
			Return(nil)
		delivery.On("Deliver", ctx, "ann@x.com", mock.AnythingOfType("string")).
			Run(func(args mock.Arguments) { deliveredToken = args.String(2) }).
			Return(nil)

		require.NoError(t, svc.ForgotPassword(ctx, "ann@x.com"))

		// Only the hash is persisted; the raw token goes out of band.
		assert.NotEqual(t, deliveredToken, storedHash)
		assert.Equal(t, auth.HashResetToken(deliveredToken), storedHash)
	})

	t.Run("unregistered email fails", func(t *testing.T) {
		svc, accounts, _, _, delivery := newTestService(t)

		accounts.On("GetByEmail", ctx, "ghost@x.com").Return(nil, auth.ErrNotFound)

		err := svc.ForgotPassword(ctx, "ghost@x.com")
		require.ErrorIs(t, err, auth.ErrAccountNotFound)
		delivery.AssertNotCalled(t, "Deliver")
	})

	t.Run("delivery failure clears the stored token", func(t *testing.T) {
		svc, accounts, _, _, delivery := newTestService(t)

		accountID := ulid.Make()
		account := &auth.Account{ID: accountID, Email: "ann@x.com"}
		accounts.On("GetByEmail", ctx, "ann@x.com").Return(account, nil)
		accounts.On("SetResetToken", ctx, accountID, mock.AnythingOfType("string"), mock.AnythingOfType("time.Time")).Return(nil)
		delivery.On("Deliver", ctx, "ann@x.com", mock.AnythingOfType("string")).Return(errors.New("smtp down"))
		accounts.On("ClearResetToken", ctx, accountID).Return(nil)

		err := svc.ForgotPassword(ctx, "ann@x.com")
		require.Error(t, err)
		assert.NotErrorIs(t, err, auth.ErrAccountNotFound)
	})
}

func TestService_ResetPassword(t *testing.T) {
	ctx := context.Background()

	t.Run("consumes token and issues fresh session token", func(t *testing.T) {
		svc, accounts, hasher, tokens, _ := newTestService(t)

		raw, hash, err := auth.GenerateResetToken()
		require.NoError(t, err)

		accountID := ulid.Make()
		account := &auth.Account{ID: accountID}
		hasher.On("Hash", ctx, "newpass1").Return("new-hash", nil)
		accounts.On("ConsumeResetToken", ctx, hash, "new-hash", mock.AnythingOfType("time.Time")).Return(account, nil)
		tokens.On("Issue", accountID).Return("fresh-token", nil)

		got, token, err := svc.ResetPassword(ctx, raw, "newpass1", "newpass1")
		require.NoError(t, err)
		assert.Same(t, account, got)
		assert.Equal(t, "fresh-token", token)
	})

	t.Run("unknown token fails not found", func(t *testing.T) {
		svc, accounts, hasher, _, _ := newTestService(t)

		hasher.On("Hash", ctx, "newpass1").Return("new-hash", nil)
		accounts.On("ConsumeResetToken", ctx, mock.AnythingOfType("string"), "new-hash", mock.AnythingOfType("time.Time")).Return(nil, auth.ErrNotFound)
		accounts.On("GetByResetTokenHash", ctx, mock.AnythingOfType("string")).Return(nil, auth.ErrNotFound)

		_, _, err := svc.ResetPassword(ctx, "deadbeef", "newpass1", "newpass1")
		require.ErrorIs(t, err, auth.ErrResetTokenNotFound)
	})

	t.Run("expired token fails expired even though hash matches", func(t *testing.T) {
		svc, accounts, hasher, _, _ := newTestService(t)

		raw, hash, err := auth.GenerateResetToken()
		require.NoError(t, err)

		hasher.On("Hash", ctx, "newpass1").Return("new-hash", nil)
		accounts.On("ConsumeResetToken", ctx, hash, "new-hash", mock.AnythingOfType("time.Time")).Return(nil, auth.ErrNotFound)
		// The hash still sits on the account, so the token expired rather
		// than never existed.
		accounts.On("GetByResetTokenHash", ctx, hash).Return(&auth.Account{}, nil)

		_, _, err = svc.ResetPassword(ctx, raw, "newpass1", "newpass1")
		require.ErrorIs(t, err, auth.ErrResetTokenExpired)
	})

	t.Run("empty token fails without touching the store", func(t *testing.T) {
		svc, accounts, _, _, _ := newTestService(t)

		_, _, err := svc.ResetPassword(ctx, "", "newpass1", "newpass1")
		require.ErrorIs(t, err, auth.ErrResetTokenNotFound)
		accounts.AssertNotCalled(t, "ConsumeResetToken")
	})

	t.Run("rejects weak new password", func(t *testing.T) {
		svc, _, hasher, _, _ := newTestService(t)

		_, _, err := svc.ResetPassword(ctx, "sometoken", "short", "short")
		require.Error(t, err)
		hasher.AssertNotCalled(t, "Hash")
	})
}

func TestService_UpdatePassword(t *testing.T) {
	ctx := context.Background()

	t.Run("updates password and issues fresh token", func(t *testing.T) {
		svc, accounts, hasher, tokens, _ := newTestService(t)

		accountID := ulid.Make()
		account := &auth.Account{ID: accountID, PasswordHash: "old-hash"}
		hasher.On("Verify", ctx, "oldpass99", "old-hash").Return(true, nil)
		hasher.On("Hash", ctx, "newpass1").Return("new-hash", nil)
		accounts.On("UpdatePassword", ctx, accountID, "new-hash", mock.AnythingOfType("time.Time")).Return(nil)
		tokens.On("Issue", accountID).Return("fresh-token", nil)

		token, err := svc.UpdatePassword(ctx, account, "oldpass99", "newpass1", "newpass1")
		require.NoError(t, err)
		assert.Equal(t, "fresh-token", token)
		assert.Equal(t, "new-hash", account.PasswordHash)
		require.NotNil(t, account.PasswordChangedAt)
		// Recorded a second early so a token issued in the same second
		// stays usable.
		assert.True(t, account.PasswordChangedAt.Before(time.Now()))
	})

	t.Run("wrong current password fails", func(t *testing.T) {
		svc, accounts, hasher, _, _ := newTestService(t)

		account := &auth.Account{ID: ulid.Make(), PasswordHash: "old-hash"}
		hasher.On("Verify", ctx, "wrong", "old-hash").Return(false, nil)

		_, err := svc.UpdatePassword(ctx, account, "wrong", "newpass1", "newpass1")
		require.ErrorIs(t, err, auth.ErrInvalidCredentials)
		accounts.AssertNotCalled(t, "UpdatePassword")
	})
}

func TestService_ListAccounts(t *testing.T) {
	ctx := context.Background()

	t.Run("returns accounts from the repository", func(t *testing.T) {
		svc, accounts, _, _, _ := newTestService(t)

		stored := []*auth.Account{
			{ID: ulid.Make(), Email: "a@example.com"},
			{ID: ulid.Make(), Email: "b@example.com"},
		}
		accounts.On("List", ctx).Return(stored, nil)

		got, err := svc.ListAccounts(ctx)
		require.NoError(t, err)
		assert.Equal(t, stored, got)
	})

	t.Run("wraps repository errors", func(t *testing.T) {
		svc, accounts, _, _, _ := newTestService(t)

		accounts.On("List", ctx).Return(nil, errors.New("connection reset"))

		_, err := svc.ListAccounts(ctx)
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "AUTH_LIST_FAILED")
	})
}
