// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GoTours Contributors

// Package postgres provides the PostgreSQL implementation of the auth
// repositories.
package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/gotours/gotours/internal/auth"
)

// poolIface is the subset of pgxpool.Pool the repository uses. It is
// satisfied by both *pgxpool.Pool and pgxmock.PgxPoolIface.
type poolIface interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const accountColumns = `id, name, email, role, password_hash,
	       password_changed_at, password_reset_token_hash, password_reset_expires_at,
	       created_at, updated_at`

// AccountRepository implements auth.AccountRepository using PostgreSQL.
type AccountRepository struct {
	pool poolIface
}

// NewAccountRepository creates a new AccountRepository.
func NewAccountRepository(pool poolIface) *AccountRepository {
	return &AccountRepository{pool: pool}
}

// Create stores a new account. A unique violation on the email index maps to
// auth.ErrDuplicateEmail.
func (r *AccountRepository) Create(ctx context.Context, account *auth.Account) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO accounts (
			id, name, email, role, password_hash,
			password_changed_at, password_reset_token_hash, password_reset_expires_at,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		account.ID.String(),
		account.Name,
		account.Email,
		string(account.Role),
		account.PasswordHash,
		account.PasswordChangedAt,
		account.PasswordResetTokenHash,
		account.PasswordResetExpiresAt,
		account.CreatedAt,
		account.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return oops.Code("ACCOUNT_DUPLICATE_EMAIL").
				With("email", account.Email).
				Wrap(auth.ErrDuplicateEmail)
		}
		return oops.Code("ACCOUNT_CREATE_FAILED").
			With("operation", "insert account").
			Wrap(err)
	}
	return nil
}

// GetByID retrieves an account by ID.
func (r *AccountRepository) GetByID(ctx context.Context, id ulid.ULID) (*auth.Account, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE id = $1
	`, id.String())

	account, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("ACCOUNT_NOT_FOUND").
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("ACCOUNT_GET_BY_ID_FAILED").
			With("operation", "get account by id").
			With("id", id.String()).
			Wrap(err)
	}
	return account, nil
}

// GetByEmail retrieves an account by email (case-insensitive).
func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*auth.Account, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE LOWER(email) = LOWER($1)
	`, email)

	account, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("ACCOUNT_NOT_FOUND").
			With("email", email).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("ACCOUNT_GET_BY_EMAIL_FAILED").
			With("operation", "get account by email").
			Wrap(err)
	}
	return account, nil
}

// List retrieves all accounts ordered by creation time.
func (r *AccountRepository) List(ctx context.Context) ([]*auth.Account, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		ORDER BY created_at
	`)
	if err != nil {
		return nil, oops.Code("ACCOUNT_LIST_FAILED").
			With("operation", "list accounts").
			Wrap(err)
	}
	defer rows.Close()

	var accounts []*auth.Account
	for rows.Next() {
		account, scanErr := scanAccount(rows)
		if scanErr != nil {
			return nil, oops.Code("ACCOUNT_LIST_FAILED").
				With("operation", "scan account").
				Wrap(scanErr)
		}
		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("ACCOUNT_LIST_FAILED").
			With("operation", "iterate accounts").
			Wrap(err)
	}
	return accounts, nil
}

// GetByResetTokenHash retrieves the account holding the given reset token
// hash, regardless of expiry.
func (r *AccountRepository) GetByResetTokenHash(ctx context.Context, tokenHash string) (*auth.Account, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE password_reset_token_hash = $1
	`, tokenHash)

	account, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("ACCOUNT_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("ACCOUNT_GET_BY_RESET_HASH_FAILED").
			With("operation", "get account by reset token hash").
			Wrap(err)
	}
	return account, nil
}

// UpdatePassword sets a new password hash and PasswordChangedAt and clears
// any pending reset token.
func (r *AccountRepository) UpdatePassword(ctx context.Context, id ulid.ULID, passwordHash string, changedAt time.Time) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE accounts SET
			password_hash = $2,
			password_changed_at = $3,
			password_reset_token_hash = NULL,
			password_reset_expires_at = NULL,
			updated_at = $4
		WHERE id = $1
	`, id.String(), passwordHash, changedAt, time.Now())
	if err != nil {
		return oops.Code("ACCOUNT_UPDATE_PASSWORD_FAILED").
			With("operation", "update password").
			With("id", id.String()).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("ACCOUNT_NOT_FOUND").
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	return nil
}

// SetResetToken stores the reset token hash and expiry for an account.
func (r *AccountRepository) SetResetToken(ctx context.Context, id ulid.ULID, tokenHash string, expiresAt time.Time) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE accounts SET
			password_reset_token_hash = $2,
			password_reset_expires_at = $3,
			updated_at = $4
		WHERE id = $1
	`, id.String(), tokenHash, expiresAt, time.Now())
	if err != nil {
		return oops.Code("ACCOUNT_SET_RESET_TOKEN_FAILED").
			With("operation", "set reset token").
			With("id", id.String()).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("ACCOUNT_NOT_FOUND").
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	return nil
}

// ClearResetToken removes any pending reset token from an account.
func (r *AccountRepository) ClearResetToken(ctx context.Context, id ulid.ULID) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE accounts SET
			password_reset_token_hash = NULL,
			password_reset_expires_at = NULL,
			updated_at = $2
		WHERE id = $1
	`, id.String(), time.Now())
	if err != nil {
		return oops.Code("ACCOUNT_CLEAR_RESET_TOKEN_FAILED").
			With("operation", "clear reset token").
			With("id", id.String()).
			Wrap(err)
	}
	return nil
}

// ConsumeResetToken atomically applies the new password to the account
// holding an unexpired token with the given hash, clearing the reset fields
// in the same statement. The expiry predicate lives inside the UPDATE, so
// two concurrent resets cannot both succeed on the same token.
func (r *AccountRepository) ConsumeResetToken(ctx context.Context, tokenHash, passwordHash string, changedAt time.Time) (*auth.Account, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE accounts SET
			password_hash = $2,
			password_changed_at = $3,
			password_reset_token_hash = NULL,
			password_reset_expires_at = NULL,
			updated_at = $4
		WHERE password_reset_token_hash = $1
		  AND password_reset_expires_at > $4
		RETURNING `+accountColumns+`
	`, tokenHash, passwordHash, changedAt, time.Now())

	account, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("RESET_TOKEN_NO_MATCH").Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("ACCOUNT_CONSUME_RESET_TOKEN_FAILED").
			With("operation", "consume reset token").
			Wrap(err)
	}
	return account, nil
}

func scanAccount(row pgx.Row) (*auth.Account, error) {
	var (
		account auth.Account
		id      string
		role    string
	)
	err := row.Scan(
		&id,
		&account.Name,
		&account.Email,
		&role,
		&account.PasswordHash,
		&account.PasswordChangedAt,
		&account.PasswordResetTokenHash,
		&account.PasswordResetExpiresAt,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	account.ID, err = ulid.Parse(id)
	if err != nil {
		return nil, oops.Code("ACCOUNT_SCAN_FAILED").
			With("operation", "parse account id").
			Wrap(err)
	}
	account.Role = auth.Role(role)
	return &account, nil
}
