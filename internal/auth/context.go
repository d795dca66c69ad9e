// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GoTours Contributors

package auth

import "context"

type accountKey struct{}

// WithAccount returns a context carrying the authenticated account. The
// session guard attaches the account after a successful authentication so
// downstream handlers can read it without re-verifying the token.
func WithAccount(ctx context.Context, account *Account) context.Context {
	return context.WithValue(ctx, accountKey{}, account)
}

// AccountFrom returns the authenticated account attached to the context, or
// false if the request never passed the session guard.
func AccountFrom(ctx context.Context) (*Account, bool) {
	account, ok := ctx.Value(accountKey{}).(*Account)
	return account, ok
}
