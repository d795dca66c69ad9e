// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GoTours Contributors

package auth_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gotours/gotours/internal/auth"
)

// fastParams keeps hashing cheap in tests. Never use these in production.
var fastParams = auth.Argon2idParams{Time: 1, Memory: 8 * 1024, Threads: 1}

func TestHashPassword(t *testing.T) {
	ctx := context.Background()
	hasher := auth.NewArgon2idHasher(fastParams)

	t.Run("produces valid hash", func(t *testing.T) {
		hash, err := hasher.Hash(ctx, "password123")
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(hash, "$argon2id$"))
	})

	t.Run("same password produces different hashes (salt)", func(t *testing.T) {
		hash1, err := hasher.Hash(ctx, "samepassword")
		require.NoError(t, err)
		hash2, err := hasher.Hash(ctx, "samepassword")
		require.NoError(t, err)
		assert.NotEqual(t, hash1, hash2)
	})

	t.Run("rejects empty password", func(t *testing.T) {
		_, err := hasher.Hash(ctx, "")
		assert.Error(t, err)
	})
}

func TestVerifyPassword(t *testing.T) {
	ctx := context.Background()
	hasher := auth.NewArgon2idHasher(fastParams)

	t.Run("correct password verifies", func(t *testing.T) {
		hash, err := hasher.Hash(ctx, "correctpassword")
		require.NoError(t, err)

		ok, err := hasher.Verify(ctx, "correctpassword", hash)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("incorrect password fails", func(t *testing.T) {
		hash, err := hasher.Hash(ctx, "correctpassword")
		require.NoError(t, err)

		ok, err := hasher.Verify(ctx, "wrongpassword", hash)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("rejects malformed hash", func(t *testing.T) {
		_, err := hasher.Verify(ctx, "password", "not-a-hash")
		assert.Error(t, err)
	})

	t.Run("rejects unsupported algorithm", func(t *testing.T) {
		_, err := hasher.Verify(ctx, "password", "$bcrypt$v=19$m=1,t=1,p=1$c2FsdA$aGFzaA")
		assert.Error(t, err)
	})

	t.Run("verifies hash produced with different work factor", func(t *testing.T) {
		other := auth.NewArgon2idHasher(auth.Argon2idParams{Time: 2, Memory: 8 * 1024, Threads: 1})
		hash, err := other.Hash(ctx, "migrated")
		require.NoError(t, err)

		ok, err := hasher.Verify(ctx, "migrated", hash)
		require.NoError(t, err)
		assert.True(t, ok)
	})
}

func TestNewArgon2idHasher_ZeroParamsUseDefaults(t *testing.T) {
	ctx := context.Background()
	hasher := auth.NewArgon2idHasher(auth.Argon2idParams{})

	hash, err := hasher.Hash(ctx, "password123")
	require.NoError(t, err)
	assert.Contains(t, hash, "m=65536,t=1,p=4")
}
