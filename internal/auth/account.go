// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GoTours Contributors

package auth

import (
	"context"
	"net/mail"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Name and password validation constraints.
const (
	MinNameLength     = 3
	MaxNameLength     = 30
	MinPasswordLength = 8
)

// Role classifies what an authenticated account may do.
type Role string

// Known roles, ordered roughly by privilege.
const (
	RoleUser      Role = "user"
	RoleGuide     Role = "guide"
	RoleLeadGuide Role = "lead-guide"
	RoleAdmin     Role = "admin"
)

// Valid reports whether the role is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleGuide, RoleLeadGuide, RoleAdmin:
		return true
	}
	return false
}

// Account represents a user account.
//
// PasswordHash is a one-way argon2id hash; the raw password is never stored.
// PasswordResetTokenHash and PasswordResetExpiresAt are set together while a
// reset is pending and cleared when the token is consumed.
type Account struct {
	ID                     ulid.ULID
	Name                   string
	Email                  string
	Role                   Role
	PasswordHash           string
	PasswordChangedAt      *time.Time
	PasswordResetTokenHash *string
	PasswordResetExpiresAt *time.Time
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

// NewAccount creates a validated Account with the given password hash.
// The caller is responsible for hashing the password first; see
// ValidateNewPassword for the raw-password rules.
func NewAccount(name, email string, role Role, passwordHash string) (*Account, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}
	if !role.Valid() {
		return nil, oops.Code("AUTH_VALIDATION").
			With("role", string(role)).
			Errorf("unknown role %q", role)
	}
	if passwordHash == "" {
		return nil, oops.Code("AUTH_VALIDATION").Errorf("password hash cannot be empty")
	}

	now := time.Now()
	return &Account{
		ID:           ulid.Make(),
		Name:         name,
		Email:        email,
		Role:         role,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// PasswordChangedAfter reports whether the account's password changed after
// the given token issuance time. The comparison is at second granularity,
// matching the resolution of token timestamps. A nil PasswordChangedAt means
// the password was never changed after creation.
func (a *Account) PasswordChangedAfter(issuedAt time.Time) bool {
	if a.PasswordChangedAt == nil {
		return false
	}
	return issuedAt.Unix() < a.PasswordChangedAt.Unix()
}

// ValidateName validates an account name.
func ValidateName(name string) error {
	if name == "" {
		return oops.Code("AUTH_VALIDATION").Errorf("name cannot be empty")
	}
	if len(name) < MinNameLength {
		return oops.Code("AUTH_VALIDATION").
			With("min", MinNameLength).
			Errorf("name must be at least %d characters", MinNameLength)
	}
	if len(name) > MaxNameLength {
		return oops.Code("AUTH_VALIDATION").
			With("max", MaxNameLength).
			Errorf("name must be at most %d characters", MaxNameLength)
	}
	return nil
}

// ValidateEmail validates email syntax. Addresses with a display name
// ("Ann <ann@x.com>") are rejected; only the bare address form is accepted.
func ValidateEmail(email string) error {
	if email == "" {
		return oops.Code("AUTH_VALIDATION").Errorf("email cannot be empty")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return oops.Code("AUTH_VALIDATION").
			With("email", email).
			Errorf("invalid email address")
	}
	return nil
}

// ValidateNewPassword validates a raw password and its confirmation. It is
// enforced only at account creation and explicit password changes, never on
// generic field updates. The confirmation is compared and discarded; it is
// never persisted.
func ValidateNewPassword(password, passwordConfirm string) error {
	if len(password) < MinPasswordLength {
		return oops.Code("AUTH_VALIDATION").
			With("min", MinPasswordLength).
			Errorf("password must be at least %d characters", MinPasswordLength)
	}
	if password != passwordConfirm {
		return oops.Code("AUTH_VALIDATION").Errorf("passwords do not match")
	}
	return nil
}

// AccountRepository manages account persistence.
//
// Implementations return ErrNotFound (possibly wrapped) for missing rows and
// ErrDuplicateEmail when a unique constraint on the email is violated.
type AccountRepository interface {
	// Create stores a new account.
	Create(ctx context.Context, account *Account) error

	// GetByID retrieves an account by ID.
	GetByID(ctx context.Context, id ulid.ULID) (*Account, error)

	// GetByEmail retrieves an account by email (case-insensitive).
	GetByEmail(ctx context.Context, email string) (*Account, error)

	// GetByResetTokenHash retrieves the account holding the given reset
	// token hash, regardless of expiry.
	GetByResetTokenHash(ctx context.Context, tokenHash string) (*Account, error)

	// List retrieves all accounts ordered by creation time.
	List(ctx context.Context) ([]*Account, error)

	// UpdatePassword sets a new password hash and PasswordChangedAt, and
	// clears any pending reset token.
	UpdatePassword(ctx context.Context, id ulid.ULID, passwordHash string, changedAt time.Time) error

	// SetResetToken stores the reset token hash and expiry for an account.
	SetResetToken(ctx context.Context, id ulid.ULID, tokenHash string, expiresAt time.Time) error

	// ClearResetToken removes any pending reset token from an account.
	ClearResetToken(ctx context.Context, id ulid.ULID) error

	// ConsumeResetToken atomically matches an unexpired reset token hash,
	// applies the new password hash and changedAt, clears the reset fields,
	// and returns the updated account. Returns ErrNotFound when no account
	// holds an unexpired token with that hash. Atomicity guarantees that two
	// concurrent resets cannot both succeed on the same token.
	ConsumeResetToken(ctx context.Context, tokenHash, passwordHash string, changedAt time.Time) (*Account, error)
}
