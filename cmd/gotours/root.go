// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GoTours Contributors

package main

import (
	"github.com/spf13/cobra"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the GoTours CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gotours",
		Short: "GoTours - authentication service for the tour booking platform",
		Long: `GoTours runs the account and authentication service: signed session
tokens, argon2id password storage, and one-time password reset tokens.`,
	}

	// Global flag for config file path
	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")

	// Add subcommands
	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())

	return cmd
}
