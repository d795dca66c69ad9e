// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GoTours Contributors

// Package mocks provides testify mocks for the auth package interfaces.
package mocks

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/mock"

	"github.com/gotours/gotours/internal/auth"
)

// TestingT is the subset of *testing.T the mock constructors need.
type TestingT interface {
	mock.TestingT
	Cleanup(func())
}

// MockAccountRepository is a mock implementation of auth.AccountRepository.
type MockAccountRepository struct {
	mock.Mock
}

// NewMockAccountRepository creates a MockAccountRepository whose
// expectations are asserted on test cleanup.
func NewMockAccountRepository(t TestingT) *MockAccountRepository {
	m := &MockAccountRepository{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockAccountRepository) Create(ctx context.Context, account *auth.Account) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

func (m *MockAccountRepository) GetByID(ctx context.Context, id ulid.ULID) (*auth.Account, error) {
	args := m.Called(ctx, id)
	if account, ok := args.Get(0).(*auth.Account); ok {
		return account, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAccountRepository) GetByEmail(ctx context.Context, email string) (*auth.Account, error) {
	args := m.Called(ctx, email)
	if account, ok := args.Get(0).(*auth.Account); ok {
		return account, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAccountRepository) GetByResetTokenHash(ctx context.Context, tokenHash string) (*auth.Account, error) {
	args := m.Called(ctx, tokenHash)
	if account, ok := args.Get(0).(*auth.Account); ok {
		return account, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAccountRepository) List(ctx context.Context) ([]*auth.Account, error) {
	args := m.Called(ctx)
	if accounts, ok := args.Get(0).([]*auth.Account); ok {
		return accounts, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockAccountRepository) UpdatePassword(ctx context.Context, id ulid.ULID, passwordHash string, changedAt time.Time) error {
	args := m.Called(ctx, id, passwordHash, changedAt)
	return args.Error(0)
}

func (m *MockAccountRepository) SetResetToken(ctx context.Context, id ulid.ULID, tokenHash string, expiresAt time.Time) error {
	args := m.Called(ctx, id, tokenHash, expiresAt)
	return args.Error(0)
}

func (m *MockAccountRepository) ClearResetToken(ctx context.Context, id ulid.ULID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockAccountRepository) ConsumeResetToken(ctx context.Context, tokenHash, passwordHash string, changedAt time.Time) (*auth.Account, error) {
	args := m.Called(ctx, tokenHash, passwordHash, changedAt)
	if account, ok := args.Get(0).(*auth.Account); ok {
		return account, args.Error(1)
	}
	return nil, args.Error(1)
}

// MockPasswordHasher is a mock implementation of auth.PasswordHasher.
type MockPasswordHasher struct {
	mock.Mock
}

// NewMockPasswordHasher creates a MockPasswordHasher whose expectations are
// asserted on test cleanup.
func NewMockPasswordHasher(t TestingT) *MockPasswordHasher {
	m := &MockPasswordHasher{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockPasswordHasher) Hash(ctx context.Context, password string) (string, error) {
	args := m.Called(ctx, password)
	return args.String(0), args.Error(1)
}

func (m *MockPasswordHasher) Verify(ctx context.Context, password, hash string) (bool, error) {
	args := m.Called(ctx, password, hash)
	return args.Bool(0), args.Error(1)
}

// MockTokenIssuer is a mock implementation of auth.TokenIssuer.
type MockTokenIssuer struct {
	mock.Mock
}

// NewMockTokenIssuer creates a MockTokenIssuer whose expectations are
// asserted on test cleanup.
func NewMockTokenIssuer(t TestingT) *MockTokenIssuer {
	m := &MockTokenIssuer{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockTokenIssuer) Issue(accountID ulid.ULID) (string, error) {
	args := m.Called(accountID)
	return args.String(0), args.Error(1)
}

// MockTokenVerifier is a mock implementation of auth.TokenVerifier.
type MockTokenVerifier struct {
	mock.Mock
}

// NewMockTokenVerifier creates a MockTokenVerifier whose expectations are
// asserted on test cleanup.
func NewMockTokenVerifier(t TestingT) *MockTokenVerifier {
	m := &MockTokenVerifier{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockTokenVerifier) Verify(token string) (auth.TokenClaims, error) {
	args := m.Called(token)
	claims, _ := args.Get(0).(auth.TokenClaims)
	return claims, args.Error(1)
}

// MockResetDelivery is a mock implementation of auth.ResetDelivery.
type MockResetDelivery struct {
	mock.Mock
}

// NewMockResetDelivery creates a MockResetDelivery whose expectations are
// asserted on test cleanup.
func NewMockResetDelivery(t TestingT) *MockResetDelivery {
	m := &MockResetDelivery{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockResetDelivery) Deliver(ctx context.Context, recipient, rawToken string) error {
	args := m.Called(ctx, recipient, rawToken)
	return args.Error(0)
}
