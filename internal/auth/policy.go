// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GoTours Contributors

package auth

// Policy is a pure post-authentication predicate over an account. It has no
// side effects and is composed after the SessionGuard.
type Policy func(*Account) error

// RestrictTo returns a Policy allowing only the given roles. Any other role
// fails with ErrForbidden.
func RestrictTo(roles ...Role) Policy {
	allowed := make(map[Role]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(account *Account) error {
		if _, ok := allowed[account.Role]; !ok {
			return ErrForbidden
		}
		return nil
	}
}
