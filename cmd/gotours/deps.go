// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GoTours Contributors

package main

import (
	"context"

	"github.com/spf13/pflag"

	"github.com/gotours/gotours/internal/auth"
	"github.com/gotours/gotours/internal/config"
	"github.com/gotours/gotours/internal/observability"
)

// ServeDeps contains injectable dependencies for the serve command.
// All fields with nil values will use their default implementations.
type ServeDeps struct {
	// ConfigLoader loads the runtime configuration.
	// Default: config.Load with the global --config path
	ConfigLoader func(flags *pflag.FlagSet) (*config.Config, error)

	// DatabaseFactory creates a database pool from a URL.
	// Default: store.NewPool
	DatabaseFactory func(ctx context.Context, url string) (Database, error)

	// MigrateRunner applies pending migrations before serving.
	// Default: runs store.NewMigrator(url).Up()
	MigrateRunner func(url string) error

	// ResetDeliveryFactory creates the password reset delivery channel.
	// Default: SMTP delivery when smtp_host is set, log delivery otherwise
	ResetDeliveryFactory func(cfg *config.Config) (auth.ResetDelivery, error)

	// ObservabilityServerFactory creates a metrics/health server.
	// Default: observability.NewServer
	ObservabilityServerFactory func(addr string, readinessChecker observability.ReadinessChecker) ObservabilityServer
}

// Database interface wraps the methods used from pgxpool.Pool.
type Database interface {
	Close()
}

// ObservabilityServer interface wraps the methods used from observability.Server.
type ObservabilityServer interface {
	Start() (<-chan error, error)
	Stop(ctx context.Context) error
	Addr() string
	Metrics() *observability.Metrics
}

// HTTPServer interface wraps the methods used from httpapi.Server.
type HTTPServer interface {
	Start() (<-chan error, error)
	Stop(ctx context.Context) error
	Addr() string
}
