// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RunCoach Contributors

package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/runcoach/runcoach/internal/store"
)

// Database wraps the pool methods used by serve.
type Database interface {
	store.DBTX
	store.Beginner
	Ping(ctx context.Context) error
	Close()
}

// Migrator wraps the methods used from store.Migrator.
type Migrator interface {
	Up() error
	Down() error
	Force(version int) error
	Status() (store.MigrationStatus, error)
	Close() error
}

// ServeDeps contains injectable dependencies for the serve command.
// All fields with nil values will use their default implementations.
type ServeDeps struct {
	// DatabaseConnector opens the connection pool.
	// Default: store.Connect
	DatabaseConnector func(ctx context.Context, url string, timeout time.Duration, logger *slog.Logger) (Database, error)

	// MigratorFactory creates a migrator for --migrate.
	// Default: store.NewMigrator
	MigratorFactory func(url string) (Migrator, error)

	// OnReady is called with the API address once both servers listen.
	OnReady func(apiAddr string)
}

// MigrateDeps contains injectable dependencies for the migrate command.
type MigrateDeps struct {
	// MigratorFactory creates a migrator.
	// Default: store.NewMigrator
	MigratorFactory func(url string) (Migrator, error)
}

func defaultConnector(ctx context.Context, url string, timeout time.Duration, logger *slog.Logger) (Database, error) {
	pool, err := store.Connect(ctx, url, timeout, logger)
	if err != nil {
		return nil, err //nolint:wrapcheck // already coded by store
	}
	return pool, nil
}

func defaultMigratorFactory(url string) (Migrator, error) {
	m, err := store.NewMigrator(url)
	if err != nil {
		return nil, err //nolint:wrapcheck // already coded by store
	}
	return m, nil
}

func (d *ServeDeps) withDefaults() *ServeDeps {
	out := ServeDeps{}
	if d != nil {
		out = *d
	}
	if out.DatabaseConnector == nil {
		out.DatabaseConnector = defaultConnector
	}
	if out.MigratorFactory == nil {
		out.MigratorFactory = defaultMigratorFactory
	}
	return &out
}

func (d *MigrateDeps) withDefaults() *MigrateDeps {
	out := MigrateDeps{}
	if d != nil {
		out = *d
	}
	if out.MigratorFactory == nil {
		out.MigratorFactory = defaultMigratorFactory
	}
	return &out
}
