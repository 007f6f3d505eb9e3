// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RunCoach Contributors

//go:build integration

package store_test

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/runcoach/runcoach/internal/store"
)

var _ = Describe("TxManager", Ordered, func() {
	var (
		ctx       context.Context
		container *postgres.PostgresContainer
		pool      *pgxpool.Pool
		txm       *store.TxManager
	)

	BeforeAll(func() {
		ctx = context.Background()
		var err error
		container, err = postgres.Run(ctx,
			"postgres:16-alpine",
			postgres.WithDatabase("runcoach_test"),
			postgres.WithUsername("runcoach"),
			postgres.WithPassword("runcoach"),
			testcontainers.WithWaitStrategy(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(30*time.Second),
			),
		)
		Expect(err).NotTo(HaveOccurred())

		connStr, err := container.ConnectionString(ctx, "sslmode=disable")
		Expect(err).NotTo(HaveOccurred())

		migrator, err := store.NewMigrator(connStr)
		Expect(err).NotTo(HaveOccurred())
		Expect(migrator.Up()).To(Succeed())
		Expect(migrator.Close()).To(Succeed())

		pool, err = store.Connect(ctx, connStr, 10*time.Second, slog.Default())
		Expect(err).NotTo(HaveOccurred())
		txm = store.NewTxManager(pool)
	})

	AfterAll(func() {
		if pool != nil {
			pool.Close()
		}
		if container != nil {
			_ = container.Terminate(ctx)
		}
	})

	countUsers := func(email string) int {
		var n int
		Expect(pool.QueryRow(ctx, `SELECT count(*) FROM users WHERE email = $1`, email).Scan(&n)).To(Succeed())
		return n
	}

	insertUser := func(ctx context.Context, code, email string) error {
		_, err := store.Conn(ctx, pool).Exec(ctx,
			`INSERT INTO users (invite_code, name, email, password_hash) VALUES ($1, 'Runner', $2, 'x')`,
			code, email)
		return err
	}

	It("commits the unit of work", func() {
		Expect(txm.WithinTx(ctx, func(ctx context.Context) error {
			return insertUser(ctx, "C1", "c1@example.com")
		})).To(Succeed())
		Expect(countUsers("c1@example.com")).To(Equal(1))
	})

	It("rolls back every statement on error", func() {
		boom := errors.New("boom")
		err := txm.WithinTx(ctx, func(ctx context.Context) error {
			Expect(insertUser(ctx, "C2", "c2@example.com")).To(Succeed())
			return boom
		})
		Expect(err).To(MatchError(boom))
		Expect(countUsers("c2@example.com")).To(BeZero())
	})

	It("keeps the outer transaction usable after a failed savepoint", func() {
		err := txm.WithinTx(ctx, func(ctx context.Context) error {
			Expect(insertUser(ctx, "C3", "c3@example.com")).To(Succeed())
			inner := txm.WithinTx(ctx, func(ctx context.Context) error {
				// Duplicate invite code aborts only the savepoint.
				return insertUser(ctx, "C3", "c3-dup@example.com")
			})
			Expect(inner).To(HaveOccurred())
			return insertUser(ctx, "C4", "c4@example.com")
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(countUsers("c3@example.com")).To(Equal(1))
		Expect(countUsers("c3-dup@example.com")).To(BeZero())
		Expect(countUsers("c4@example.com")).To(Equal(1))
	})
})
