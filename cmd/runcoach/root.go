// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RunCoach Contributors

package main

import (
	"github.com/spf13/cobra"

	"github.com/runcoach/runcoach/internal/config"
)

const serviceName = "runcoach"

// Global flags available to all subcommands.
var (
	configFile string
	envFile    string
)

// NewRootCmd creates the root command for the RunCoach CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runcoach",
		Short: "RunCoach - AI running coach backend",
		Long: `RunCoach serves the running coach API: account registration,
login and cookie sessions backed by PostgreSQL.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (YAML)")
	cmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file read before the environment (missing is fine)")

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewConfigCmd())

	return cmd
}

// loadConfig loads the configuration for cmd from the global sources and
// cmd's own flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	return config.Load(config.LoadOptions{ //nolint:wrapcheck // oops errors carry their own code
		File:    configFile,
		EnvFile: envFile,
		Flags:   cmd.Flags(),
	})
}
