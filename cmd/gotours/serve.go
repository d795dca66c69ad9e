// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GoTours Contributors

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/gotours/gotours/internal/auth"
	"github.com/gotours/gotours/internal/auth/postgres"
	"github.com/gotours/gotours/internal/config"
	"github.com/gotours/gotours/internal/httpapi"
	"github.com/gotours/gotours/internal/logging"
	"github.com/gotours/gotours/internal/mail"
	"github.com/gotours/gotours/internal/observability"
	"github.com/gotours/gotours/internal/store"
)

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	var automigrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the authentication HTTP API",
		Long: `Start the HTTP API which handles account signup, login, password
reset, and session verification against the PostgreSQL database.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServeWithDeps(cmd.Context(), cmd, automigrate, nil)
		},
	}

	cmd.Flags().String("listen-addr", "", "API listen address (default :8080)")
	cmd.Flags().String("metrics-addr", "", "metrics/health HTTP address (default 127.0.0.1:9100)")
	cmd.Flags().String("log-format", "", "log format (json or text)")
	cmd.Flags().String("log-level", "", "log level (debug, info, warn, error)")
	cmd.Flags().BoolVar(&automigrate, "automigrate", true, "apply pending migrations before serving")

	return cmd
}

// runServeWithDeps starts the service with injectable dependencies.
// If deps is nil, default implementations are used.
func runServeWithDeps(ctx context.Context, cmd *cobra.Command, automigrate bool, deps *ServeDeps) error {
	if deps == nil {
		deps = &ServeDeps{}
	}

	// Set up default factories
	if deps.ConfigLoader == nil {
		deps.ConfigLoader = func(flags *pflag.FlagSet) (*config.Config, error) {
			return config.Load(configFile, flags)
		}
	}
	if deps.DatabaseFactory == nil {
		deps.DatabaseFactory = func(ctx context.Context, url string) (Database, error) {
			return store.NewPool(ctx, url)
		}
	}
	if deps.MigrateRunner == nil {
		deps.MigrateRunner = runAutoMigrate
	}
	if deps.ResetDeliveryFactory == nil {
		deps.ResetDeliveryFactory = newResetDelivery
	}
	if deps.ObservabilityServerFactory == nil {
		deps.ObservabilityServerFactory = func(addr string, readinessChecker observability.ReadinessChecker) ObservabilityServer {
			return observability.NewServer(addr, readinessChecker)
		}
	}

	cfg, err := deps.ConfigLoader(cmd.Flags())
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logging.SetDefault("gotours", version, cfg.LogFormat, cfg.LogLevel)

	slog.Info("starting auth service",
		"listen_addr", cfg.ListenAddr,
		"log_format", cfg.LogFormat,
	)

	if automigrate {
		if err := deps.MigrateRunner(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		slog.Info("migrations applied")
	}

	db, err := deps.DatabaseFactory(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	slog.Info("connected to database")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Start observability server if configured
	var obsServer ObservabilityServer
	var metrics *observability.Metrics
	if cfg.MetricsAddr != "" {
		// Ready once the database connection is established.
		obsServer = deps.ObservabilityServerFactory(cfg.MetricsAddr, func() bool { return true })
		metrics = obsServer.Metrics()
		obsErrChan, err := obsServer.Start()
		if err != nil {
			return fmt.Errorf("failed to start observability server: %w", err)
		}
		// Monitor observability server errors - cancel context on error
		go monitorServerErrors(ctx, cancel, obsErrChan, "observability")
		slog.Info("observability server started", "addr", obsServer.Addr())
	}

	// The API stack needs the concrete pool for the account repository.
	// Tests inject a mock database and skip the API server.
	var apiServer HTTPServer
	if pool, ok := db.(*pgxpool.Pool); ok {
		apiServer, err = buildAPIServer(cfg, pool, metrics, deps)
		if err != nil {
			return err
		}
	}

	// A nil channel blocks forever in the select below.
	var apiErrChan <-chan error
	if apiServer != nil {
		apiErrChan, err = apiServer.Start()
		if err != nil {
			return fmt.Errorf("failed to start API server: %w", err)
		}
		slog.Info("API server listening", "addr", apiServer.Addr())
	}

	// Handle signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	cmd.Println("Auth service started")

	// Wait for shutdown signal or server error
	select {
	case sig := <-sigChan:
		slog.Info("received shutdown signal", "signal", sig)
	case err, ok := <-apiErrChan:
		if ok && err != nil {
			return fmt.Errorf("API server error: %w", err)
		}
		slog.Info("API server stopped, shutting down")
	case <-ctx.Done():
		slog.Info("context cancelled, shutting down")
	}

	// Graceful shutdown
	slog.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if apiServer != nil {
		if err := apiServer.Stop(shutdownCtx); err != nil {
			slog.Warn("error stopping API server", "error", err)
		}
	}

	if obsServer != nil {
		if err := obsServer.Stop(shutdownCtx); err != nil {
			slog.Warn("error stopping observability server", "error", err)
		}
	}

	slog.Info("shutdown complete")
	return nil
}

// buildAPIServer wires the auth service and HTTP API against the pool.
func buildAPIServer(cfg *config.Config, pool *pgxpool.Pool, metrics *observability.Metrics, deps *ServeDeps) (HTTPServer, error) {
	accounts := postgres.NewAccountRepository(pool)

	hasher, err := auth.NewPooledHasher(
		auth.NewArgon2idHasher(auth.Argon2idParams{}),
		cfg.HashMaxConcurrent,
		observability.RecordHashDuration,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create password hasher: %w", err)
	}

	tokens, err := auth.NewTokenService([]byte(cfg.SigningSecret), cfg.TokenTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to create token service: %w", err)
	}

	delivery, err := deps.ResetDeliveryFactory(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create reset delivery: %w", err)
	}

	svc, err := auth.NewService(accounts, hasher, tokens, delivery, cfg.ResetTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to create auth service: %w", err)
	}

	guard, err := auth.NewSessionGuard(tokens, accounts)
	if err != nil {
		return nil, fmt.Errorf("failed to create session guard: %w", err)
	}

	apiServer, err := httpapi.NewServer(cfg.ListenAddr, svc, guard, httpapi.Options{
		Metrics: metrics,
		Logger:  slog.Default(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create API server: %w", err)
	}
	return apiServer, nil
}

// newResetDelivery picks SMTP delivery when configured, log delivery otherwise.
func newResetDelivery(cfg *config.Config) (auth.ResetDelivery, error) {
	if cfg.SMTPHost == "" {
		slog.Warn("smtp_host not configured, reset tokens will be logged instead of emailed")
		return mail.NewLogDelivery(slog.Default()), nil
	}
	return mail.NewSMTPDelivery(mail.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.MailFrom,
		BaseURL:  cfg.BaseURL,
	})
}

// runAutoMigrate applies all pending migrations.
func runAutoMigrate(databaseURL string) error {
	m, err := store.NewMigrator(databaseURL)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := m.Close(); closeErr != nil {
			slog.Warn("error closing migrator", "error", closeErr)
		}
	}()
	return m.Up()
}

// monitorServerErrors monitors a server's error channel and cancels the context on error.
// It exits when either an error is received, the channel is closed, or the context is cancelled.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string) {
	select {
	case err, ok := <-errCh:
		if !ok {
			// Channel closed, server stopped gracefully
			return
		}
		if err != nil {
			slog.Error("server error, triggering shutdown",
				"server", serverName,
				"error", err,
			)
			cancel()
		}
	case <-ctx.Done():
		// Context cancelled, exit monitoring
	}
}
