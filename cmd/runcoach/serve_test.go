// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RunCoach Contributors

package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runcoach/runcoach/internal/store"
	"github.com/runcoach/runcoach/pkg/errutil"
)

// fakeDB satisfies Database for wiring tests that never query.
type fakeDB struct {
	store.DBTX
	store.Beginner
	closed atomic.Bool
}

func (f *fakeDB) Ping(context.Context) error { return nil }

func (f *fakeDB) Close() { f.closed.Store(true) }

func serveArgs(extra ...string) []string {
	return append([]string{"--listen", "127.0.0.1:0", "--metrics-addr="}, extra...)
}

func TestServe_StartsAndShutsDown(t *testing.T) {
	isolate(t)
	t.Setenv("BCRYPT_COST", "10")
	t.Setenv("SECRET_KEY", "test-secret")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db := &fakeDB{}
	var healthStatus int
	var body string
	deps := &ServeDeps{
		DatabaseConnector: func(context.Context, string, time.Duration, *slog.Logger) (Database, error) {
			return db, nil
		},
		OnReady: func(addr string) {
			defer cancel()
			client := &http.Client{Transport: &http.Transport{DisableKeepAlives: true}, Timeout: 5 * time.Second}
			resp, err := client.Get("http://" + addr + "/health")
			if err != nil {
				return
			}
			defer resp.Body.Close()
			healthStatus = resp.StatusCode
			b, _ := io.ReadAll(resp.Body)
			body = string(b)
		},
	}

	cmd := newServeCmd(deps)
	out := new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetArgs(serveArgs())

	require.NoError(t, cmd.ExecuteContext(ctx))
	assert.Equal(t, http.StatusOK, healthStatus)
	assert.JSONEq(t, `{"status":"healthy"}`, body)
	assert.Contains(t, out.String(), "RunCoach API listening on 127.0.0.1:")
	assert.True(t, db.closed.Load())
}

func TestServe_ConnectFailure(t *testing.T) {
	isolate(t)

	cmd := newServeCmd(&ServeDeps{
		DatabaseConnector: func(context.Context, string, time.Duration, *slog.Logger) (Database, error) {
			return nil, errors.New("connection refused")
		},
	})
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs(serveArgs())

	errutil.AssertErrorCode(t, cmd.Execute(), "DB_CONNECT_FAILED")
}

func TestServe_AutoMigrate(t *testing.T) {
	isolate(t)

	m := &fakeMigrator{status: store.MigrationStatus{Version: 1}}
	var migratedURL string
	cmd := newServeCmd(&ServeDeps{
		MigratorFactory: func(url string) (Migrator, error) {
			migratedURL = url
			return m, nil
		},
		DatabaseConnector: func(context.Context, string, time.Duration, *slog.Logger) (Database, error) {
			return nil, errors.New("stop after migrating")
		},
	})
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs(serveArgs("--migrate", "--database-url", "postgres://migrate/db"))

	require.Error(t, cmd.Execute())
	assert.Equal(t, "postgres://migrate/db", migratedURL)
	assert.Equal(t, []string{"up", "status"}, m.calls)
	assert.True(t, m.closed)
}

func TestServe_AutoMigrateFailure(t *testing.T) {
	isolate(t)

	connected := false
	cmd := newServeCmd(&ServeDeps{
		MigratorFactory: func(string) (Migrator, error) {
			return &fakeMigrator{err: errors.New("dirty database")}, nil
		},
		DatabaseConnector: func(context.Context, string, time.Duration, *slog.Logger) (Database, error) {
			connected = true
			return &fakeDB{}, nil
		},
	})
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs(serveArgs("--migrate"))

	require.Error(t, cmd.Execute())
	assert.False(t, connected)
}

func TestServe_InvalidConfig(t *testing.T) {
	isolate(t)
	t.Setenv("BCRYPT_COST", "99")

	cmd := newServeCmd(nil)
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs(serveArgs())

	errutil.AssertErrorCode(t, cmd.Execute(), "CONFIG_INVALID")
}
