// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RunCoach Contributors

// Package store provides PostgreSQL connectivity, transactions and schema
// migrations.
package store

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
)

// Initial delay between connection attempts; it doubles on each retry.
const connectBackoffBase = 250 * time.Millisecond

// maxConnectBackoff caps a single wait between attempts.
const maxConnectBackoff = 5 * time.Second

// Connect opens a connection pool and waits until the database answers a
// ping, retrying with exponential backoff for up to timeout.
func Connect(ctx context.Context, databaseURL string, timeout time.Duration, logger *slog.Logger) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, oops.Code("DB_CONFIG_INVALID").With("operation", "parse database url").Wrap(err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, oops.Code("DB_CONNECT_FAILED").With("operation", "create pool").Wrap(err)
	}

	backoff := retry.WithMaxDuration(timeout, retry.WithCappedDuration(maxConnectBackoff, retry.NewExponential(connectBackoffBase)))
	attempt := 0
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		if pingErr := pool.Ping(ctx); pingErr != nil {
			logger.Warn("database not ready", "attempt", attempt, "error", pingErr)
			return retry.RetryableError(pingErr)
		}
		return nil
	})
	if err != nil {
		pool.Close()
		return nil, oops.Code("DB_CONNECT_FAILED").
			With("operation", "ping database").
			With("host", cfg.ConnConfig.Host).
			With("attempts", attempt).
			Wrap(err)
	}

	logger.Info("connected to database", "host", cfg.ConnConfig.Host, "database", cfg.ConnConfig.Database)
	return pool, nil
}
