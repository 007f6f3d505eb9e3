// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RunCoach Contributors

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/runcoach/runcoach/internal/auth"
	"github.com/runcoach/runcoach/internal/auth/postgres"
	"github.com/runcoach/runcoach/internal/config"
	"github.com/runcoach/runcoach/internal/logging"
	"github.com/runcoach/runcoach/internal/observability"
	"github.com/runcoach/runcoach/internal/store"
	"github.com/runcoach/runcoach/internal/web"
)

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	return newServeCmd(nil)
}

func newServeCmd(deps *ServeDeps) *cobra.Command {
	var autoMigrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long: `Start the HTTP API server and, unless disabled, the metrics and
health probe server. Runs until SIGINT or SIGTERM.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return runServeWithDeps(cmd.Context(), cfg, autoMigrate, cmd, deps)
		},
	}

	cmd.Flags().String("listen", "", "API listen address (default :8000)")
	cmd.Flags().String("database-url", "", "PostgreSQL connection URL")
	cmd.Flags().String("metrics-addr", "", "metrics/health HTTP address (empty = disabled)")
	cmd.Flags().String("log-format", "", "log format (json or text)")
	cmd.Flags().Bool("debug", false, "enable debug logging")
	cmd.Flags().BoolVar(&autoMigrate, "migrate", false, "apply pending migrations before serving")

	return cmd
}

// runServeWithDeps wires the application and serves until a signal, a
// server failure or ctx cancellation.
func runServeWithDeps(ctx context.Context, cfg *config.Config, autoMigrate bool, cmd *cobra.Command, deps *ServeDeps) error {
	deps = deps.withDefaults()

	logger := logging.SetDefault(serviceName, version, cfg.Log.Format, logging.WithLevel(logging.LevelFor(cfg.Debug)))
	for _, warning := range cfg.Warnings() {
		logger.Warn("unsafe configuration", "warning", warning)
	}
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	logger.Info("starting runcoach",
		"http_addr", cfg.HTTP.Addr,
		"metrics_addr", cfg.Metrics.Addr,
		"log_format", cfg.Log.Format,
	)

	if autoMigrate {
		if err := applyMigrations(cfg.Database.URL, deps.MigratorFactory, logger); err != nil {
			return err
		}
	}

	db, err := deps.DatabaseConnector(ctx, cfg.Database.URL, cfg.Database.ConnectTimeout, logger)
	if err != nil {
		return oops.Code("DB_CONNECT_FAILED").With("operation", "connect to database").Wrap(err)
	}
	defer db.Close()

	obsServer := observability.NewServer(cfg.Metrics.Addr, db.Ping, logger)

	router, err := buildRouter(cfg, db, obsServer, logger)
	if err != nil {
		return err
	}
	apiServer := web.NewServer(cfg.HTTP.Addr, router, logger)

	apiErrCh, err := apiServer.Start()
	if err != nil {
		return oops.With("operation", "start api server").Wrap(err)
	}

	var obsErrCh <-chan error
	if cfg.Metrics.Addr != "" {
		obsErrCh, err = obsServer.Start()
		if err != nil {
			stopCtx, stopCancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
			defer stopCancel()
			if stopErr := apiServer.Stop(stopCtx); stopErr != nil {
				logger.Warn("failed to stop api server during cleanup", "error", stopErr)
			}
			return oops.With("operation", "start observability server").Wrap(err)
		}
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	cmd.Println("RunCoach API listening on " + apiServer.Addr())
	if deps.OnReady != nil {
		deps.OnReady(apiServer.Addr())
	}

	var serveErr error
	select {
	case sig := <-sigChan:
		logger.Info("received shutdown signal", "signal", sig.String())
	case err := <-apiErrCh:
		serveErr = oops.Code("SERVER_FAILED").With("server", "api").Wrap(err)
	case err := <-obsErrCh:
		serveErr = oops.Code("SERVER_FAILED").With("server", "observability").Wrap(err)
	case <-ctx.Done():
		logger.Info("context cancelled, shutting down")
	}

	logger.Info("shutting down", "timeout", cfg.HTTP.ShutdownTimeout)
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer shutdownCancel()

	if err := apiServer.Stop(shutdownCtx); err != nil {
		logger.Warn("error stopping api server", "error", err)
	}
	if err := obsServer.Stop(shutdownCtx); err != nil {
		logger.Warn("error stopping observability server", "error", err)
	}

	logger.Info("shutdown complete")
	return serveErr
}

// buildRouter assembles the auth services on db and the API router.
func buildRouter(cfg *config.Config, db Database, obsServer *observability.Server, logger *slog.Logger) (*gin.Engine, error) {
	hasher, err := auth.NewBcryptHasher(cfg.Auth.BcryptCost)
	if err != nil {
		return nil, oops.With("operation", "create password hasher").Wrap(err)
	}
	codec, err := auth.NewTokenCodec(cfg.Auth.SecretKey, auth.WithTokenLogger(logger))
	if err != nil {
		return nil, oops.With("operation", "create token codec").Wrap(err)
	}

	users := postgres.NewUserRepository(db)
	accounts, err := auth.NewAccountService(users, hasher, codec, store.NewTxManager(db),
		auth.WithLogger(logger),
		auth.WithMetrics(auth.NewMetrics(obsServer.Registry())),
	)
	if err != nil {
		return nil, oops.With("operation", "create account service").Wrap(err)
	}
	resolver, err := auth.NewResolver(codec, users, logger)
	if err != nil {
		return nil, oops.With("operation", "create identity resolver").Wrap(err)
	}

	router, err := web.NewRouter(web.RouterConfig{
		Accounts:    accounts,
		Resolver:    resolver,
		Logger:      logger,
		Metrics:     obsServer.HTTPMetrics(),
		CORSOrigins: cfg.HTTP.CORSOrigins,
	})
	if err != nil {
		return nil, oops.With("operation", "create router").Wrap(err)
	}
	return router, nil
}

// applyMigrations runs every pending migration.
func applyMigrations(url string, factory func(string) (Migrator, error), logger *slog.Logger) error {
	migrator, err := factory(url)
	if err != nil {
		return oops.With("operation", "create migrator").Wrap(err)
	}
	defer func() {
		if closeErr := migrator.Close(); closeErr != nil {
			logger.Warn("failed to close migrator", "error", closeErr)
		}
	}()

	if err := migrator.Up(); err != nil {
		return oops.With("operation", "apply migrations").Wrap(err)
	}
	status, err := migrator.Status()
	if err != nil {
		return oops.With("operation", "read migration status").Wrap(err)
	}
	logger.Info("database schema up to date", "version", status.Version)
	return nil
}
