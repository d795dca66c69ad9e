// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GoTours Contributors

package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/samber/oops"
	"golang.org/x/crypto/argon2"
)

// Argon2idParams is the work factor for password hashing. It is fixed at
// startup; changing it does not invalidate existing hashes because each hash
// encodes its own parameters.
type Argon2idParams struct {
	Time    uint32 // iterations
	Memory  uint32 // KiB
	Threads uint8  // parallelism
	SaltLen uint32 // salt length in bytes
	KeyLen  uint32 // output length in bytes
}

// DefaultArgon2idParams are the OWASP-recommended argon2id parameters.
var DefaultArgon2idParams = Argon2idParams{
	Time:    1,
	Memory:  64 * 1024, // 64 MB
	Threads: 4,
	SaltLen: 16,
	KeyLen:  32,
}

// ErrEmptyPassword is returned when attempting to hash an empty password.
var ErrEmptyPassword = oops.Code("AUTH_EMPTY_PASSWORD").Errorf("password cannot be empty")

// PasswordHasher provides password hashing and verification. Hashing is
// deliberately CPU-expensive, so both operations take a context; see
// PooledHasher for the implementation that bounds concurrency.
type PasswordHasher interface {
	// Hash produces a salted one-way hash of the password.
	Hash(ctx context.Context, password string) (string, error)

	// Verify checks the password against the hash in constant time.
	// Returns (true, nil) on match, (false, nil) on mismatch, or error on
	// invalid hash.
	Verify(ctx context.Context, password, hash string) (bool, error)
}

// Argon2idHasher implements PasswordHasher using argon2id.
type Argon2idHasher struct {
	params Argon2idParams
}

// NewArgon2idHasher creates an Argon2idHasher with the given work factor.
// Zero fields fall back to DefaultArgon2idParams.
func NewArgon2idHasher(params Argon2idParams) *Argon2idHasher {
	if params.Time == 0 {
		params.Time = DefaultArgon2idParams.Time
	}
	if params.Memory == 0 {
		params.Memory = DefaultArgon2idParams.Memory
	}
	if params.Threads == 0 {
		params.Threads = DefaultArgon2idParams.Threads
	}
	if params.SaltLen == 0 {
		params.SaltLen = DefaultArgon2idParams.SaltLen
	}
	if params.KeyLen == 0 {
		params.KeyLen = DefaultArgon2idParams.KeyLen
	}
	return &Argon2idHasher{params: params}
}

// Hash produces an argon2id hash of the password in PHC string format:
// $argon2id$v=19$m=65536,t=1,p=4$<salt>$<hash>
func (h *Argon2idHasher) Hash(_ context.Context, password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}

	salt := make([]byte, h.params.SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", oops.Code("AUTH_SALT_FAILED").Wrap(err)
	}

	hash := argon2.IDKey([]byte(password), salt, h.params.Time, h.params.Memory, h.params.Threads, h.params.KeyLen)

	encoded := fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		h.params.Memory,
		h.params.Time,
		h.params.Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	)

	return encoded, nil
}

// Verify checks if the password matches the hash. The parameters encoded in
// the hash take precedence over the hasher's own, so old hashes keep
// verifying after a work factor change.
func (h *Argon2idHasher) Verify(_ context.Context, password, encodedHash string) (bool, error) {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 {
		return false, oops.Code("AUTH_INVALID_HASH").Errorf("invalid hash format")
	}

	if parts[1] != "argon2id" {
		return false, oops.Code("AUTH_INVALID_HASH").Errorf("unsupported hash algorithm: %s", parts[1])
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return false, oops.Code("AUTH_INVALID_HASH").Wrap(err)
	}

	var memory, time, threads uint32
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &time, &threads); err != nil {
		return false, oops.Code("AUTH_INVALID_HASH").Wrap(err)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false, oops.Code("AUTH_INVALID_HASH").Wrap(err)
	}

	expectedHash, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return false, oops.Code("AUTH_INVALID_HASH").Wrap(err)
	}

	// threads must fit in uint8 to prevent silent truncation
	if threads > 255 {
		return false, oops.Code("AUTH_INVALID_HASH").Errorf("threads value %d exceeds uint8 max", threads)
	}

	keyLen := len(expectedHash)
	if keyLen <= 0 || keyLen > 1<<30 {
		return false, oops.Code("AUTH_INVALID_HASH").Errorf("invalid hash key length: %d", keyLen)
	}

	computedHash := argon2.IDKey([]byte(password), salt, time, memory, uint8(threads), uint32(keyLen))

	if subtle.ConstantTimeCompare(computedHash, expectedHash) == 1 {
		return true, nil
	}

	return false, nil
}
