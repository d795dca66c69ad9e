// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GoTours Contributors

// Package auth provides authentication and authorization primitives for
// GoTours.
//
// # Domain Types
//
// Account is the central domain type and should be created through
// NewAccount, which validates the name, email, and role. Direct struct
// initialization bypasses validation and may create invalid state.
// Repository implementations receive pre-validated accounts.
//
// # Components
//
//   - Argon2idHasher / PooledHasher - password hashing and verification
//   - TokenService - issues and verifies signed stateless session tokens
//   - GenerateResetToken / ConsumeResetToken - one-time password reset tokens
//   - SessionGuard - validates an inbound bearer token and loads the account
//   - RestrictTo - role check applied after the guard
//   - Service - composes the above into the signup, login, forgot-password,
//     reset-password, and update-password flows
//
// Services are created with New* constructors that validate dependencies.
package auth
