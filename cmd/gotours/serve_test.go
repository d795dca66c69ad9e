// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GoTours Contributors

package main

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gotours/gotours/internal/auth"
	"github.com/gotours/gotours/internal/config"
	"github.com/gotours/gotours/internal/mail"
	"github.com/gotours/gotours/internal/observability"
)

// fakeDatabase implements the Database interface.
type fakeDatabase struct {
	closed bool
}

func (f *fakeDatabase) Close() { f.closed = true }

// fakeObsServer implements the ObservabilityServer interface.
type fakeObsServer struct {
	startErr error
	errCh    chan error
	stopped  bool
}

func (f *fakeObsServer) Start() (<-chan error, error) {
	if f.startErr != nil {
		return nil, f.startErr
	}
	if f.errCh == nil {
		f.errCh = make(chan error, 1)
	}
	return f.errCh, nil
}

func (f *fakeObsServer) Stop(_ context.Context) error {
	f.stopped = true
	return nil
}

func (f *fakeObsServer) Addr() string { return "127.0.0.1:9100" }

func (f *fakeObsServer) Metrics() *observability.Metrics { return nil }

// testServeConfig returns a valid config for serve tests.
func testServeConfig() *config.Config {
	cfg := config.Default()
	cfg.DatabaseURL = "postgres://localhost/gotours"
	cfg.SigningSecret = "0123456789abcdef0123456789abcdef"
	cfg.MetricsAddr = ""
	return &cfg
}

// testServeDeps returns deps where everything succeeds without touching
// the network.
func testServeDeps(cfg *config.Config, db *fakeDatabase) *ServeDeps {
	return &ServeDeps{
		ConfigLoader: func(_ *pflag.FlagSet) (*config.Config, error) {
			return cfg, nil
		},
		DatabaseFactory: func(_ context.Context, _ string) (Database, error) {
			return db, nil
		},
		MigrateRunner: func(_ string) error { return nil },
	}
}

func newServeTestCmd() *cobra.Command {
	cmd := NewServeCmd()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	return cmd
}

func TestServeCommand_Flags(t *testing.T) {
	cmd := NewServeCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--help"})

	require.NoError(t, cmd.Execute())

	output := buf.String()
	expectedFlags := []string{
		"--listen-addr",
		"--metrics-addr",
		"--log-format",
		"--log-level",
		"--automigrate",
	}
	for _, flag := range expectedFlags {
		assert.Contains(t, output, flag, "Help missing %q flag", flag)
	}
}

func TestServeCommand_Properties(t *testing.T) {
	cmd := NewServeCmd()

	assert.Equal(t, "serve", cmd.Use)
	assert.Contains(t, cmd.Short, "HTTP API")
	assert.Contains(t, cmd.Long, "PostgreSQL")
}

func TestRunServe_InvalidConfig(t *testing.T) {
	deps := &ServeDeps{
		ConfigLoader: func(_ *pflag.FlagSet) (*config.Config, error) {
			return nil, errors.New("missing database_url")
		},
	}

	err := runServeWithDeps(context.Background(), newServeTestCmd(), false, deps)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestRunServe_MigrateFailure(t *testing.T) {
	cfg := testServeConfig()
	db := &fakeDatabase{}
	deps := testServeDeps(cfg, db)
	deps.MigrateRunner = func(_ string) error { return errors.New("dirty schema") }

	err := runServeWithDeps(context.Background(), newServeTestCmd(), true, deps)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to run migrations")
}

func TestRunServe_SkipsMigrateWhenDisabled(t *testing.T) {
	cfg := testServeConfig()
	db := &fakeDatabase{}
	deps := testServeDeps(cfg, db)
	migrateCalled := false
	deps.MigrateRunner = func(_ string) error {
		migrateCalled = true
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := runServeWithDeps(ctx, newServeTestCmd(), false, deps)
	require.NoError(t, err)
	assert.False(t, migrateCalled)
}

func TestRunServe_DatabaseFailure(t *testing.T) {
	cfg := testServeConfig()
	deps := testServeDeps(cfg, nil)
	deps.DatabaseFactory = func(_ context.Context, _ string) (Database, error) {
		return nil, errors.New("connection refused")
	}

	err := runServeWithDeps(context.Background(), newServeTestCmd(), true, deps)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to connect to database")
}

func TestRunServe_GracefulShutdownOnContextCancel(t *testing.T) {
	cfg := testServeConfig()
	db := &fakeDatabase{}
	deps := testServeDeps(cfg, db)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := runServeWithDeps(ctx, newServeTestCmd(), true, deps)
	require.NoError(t, err)
	assert.True(t, db.closed)
}

func TestRunServe_ObservabilityStartFailure(t *testing.T) {
	cfg := testServeConfig()
	cfg.MetricsAddr = "127.0.0.1:9100"
	db := &fakeDatabase{}
	deps := testServeDeps(cfg, db)
	deps.ObservabilityServerFactory = func(_ string, _ observability.ReadinessChecker) ObservabilityServer {
		return &fakeObsServer{startErr: errors.New("address in use")}
	}

	err := runServeWithDeps(context.Background(), newServeTestCmd(), true, deps)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to start observability server")
}

func TestRunServe_ObservabilityErrorTriggersShutdown(t *testing.T) {
	cfg := testServeConfig()
	cfg.MetricsAddr = "127.0.0.1:9100"
	db := &fakeDatabase{}
	deps := testServeDeps(cfg, db)

	obs := &fakeObsServer{errCh: make(chan error, 1)}
	deps.ObservabilityServerFactory = func(_ string, _ observability.ReadinessChecker) ObservabilityServer {
		return obs
	}
	obs.errCh <- errors.New("listener died")

	done := make(chan error, 1)
	go func() {
		done <- runServeWithDeps(context.Background(), newServeTestCmd(), true, deps)
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not shut down after observability server error")
	}
	assert.True(t, obs.stopped)
	assert.True(t, db.closed)
}

func TestNewResetDelivery(t *testing.T) {
	t.Run("log delivery without SMTP host", func(t *testing.T) {
		cfg := testServeConfig()
		cfg.SMTPHost = ""

		delivery, err := newResetDelivery(cfg)
		require.NoError(t, err)
		assert.IsType(t, &mail.LogDelivery{}, delivery)
	})

	t.Run("SMTP delivery when configured", func(t *testing.T) {
		cfg := testServeConfig()
		cfg.SMTPHost = "smtp.example.com"

		delivery, err := newResetDelivery(cfg)
		require.NoError(t, err)
		assert.IsType(t, &mail.SMTPDelivery{}, delivery)
	})
}

var _ auth.ResetDelivery = (*mail.LogDelivery)(nil)
