// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GoTours Contributors

package auth

import (
	"context"
	"runtime"
	"time"

	"github.com/samber/oops"
	"golang.org/x/sync/semaphore"
)

// PooledHasher wraps a PasswordHasher with a concurrency bound so that the
// CPU-expensive hashing work cannot starve the request-serving goroutines.
// Callers block in Acquire until a slot frees up or their context is done.
type PooledHasher struct {
	inner   PasswordHasher
	sem     *semaphore.Weighted
	observe func(time.Duration) // nil when no metrics are wired
}

// NewPooledHasher creates a PooledHasher allowing at most maxConcurrent
// hashing operations at a time. maxConcurrent <= 0 defaults to GOMAXPROCS.
// observe, if non-nil, is called with the duration of every hash or verify.
func NewPooledHasher(inner PasswordHasher, maxConcurrent int, observe func(time.Duration)) (*PooledHasher, error) {
	if inner == nil {
		return nil, oops.Errorf("inner hasher is required")
	}
	if maxConcurrent <= 0 {
		maxConcurrent = runtime.GOMAXPROCS(0)
	}
	return &PooledHasher{
		inner:   inner,
		sem:     semaphore.NewWeighted(int64(maxConcurrent)),
		observe: observe,
	}, nil
}

// Hash acquires a slot and delegates to the inner hasher.
func (p *PooledHasher) Hash(ctx context.Context, password string) (string, error) {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return "", oops.Code("AUTH_HASH_CANCELED").Wrap(err)
	}
	defer p.sem.Release(1)

	start := time.Now()
	hash, err := p.inner.Hash(ctx, password)
	if p.observe != nil {
		p.observe(time.Since(start))
	}
	return hash, err
}

// Verify acquires a slot and delegates to the inner hasher.
func (p *PooledHasher) Verify(ctx context.Context, password, hash string) (bool, error) {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return false, oops.Code("AUTH_HASH_CANCELED").Wrap(err)
	}
	defer p.sem.Release(1)

	start := time.Now()
	ok, err := p.inner.Verify(ctx, password, hash)
	if p.observe != nil {
		p.observe(time.Since(start))
	}
	return ok, err
}
