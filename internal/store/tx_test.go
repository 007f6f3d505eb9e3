// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RunCoach Contributors

package store_test

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runcoach/runcoach/internal/store"
	"github.com/runcoach/runcoach/pkg/errutil"
)

func newMockPool(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		mock.Close()
	})
	return mock
}

func TestTxManager_WithinTx(t *testing.T) {
	t.Run("commits on success", func(t *testing.T) {
		mock := newMockPool(t)
		mock.ExpectBegin()
		mock.ExpectExec("UPDATE users").WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		mock.ExpectCommit()

		err := store.NewTxManager(mock).WithinTx(context.Background(), func(ctx context.Context) error {
			_, err := store.Conn(ctx, mock).Exec(ctx, "UPDATE users SET name = $1", "x")
			return err
		})
		require.NoError(t, err)
	})

	t.Run("rolls back and returns fn error unchanged", func(t *testing.T) {
		mock := newMockPool(t)
		mock.ExpectBegin()
		mock.ExpectRollback()

		fnErr := errors.New("invite code taken")
		err := store.NewTxManager(mock).WithinTx(context.Background(), func(context.Context) error {
			return fnErr
		})
		assert.Same(t, fnErr, err)
	})

	t.Run("ignores rollback of a closed transaction", func(t *testing.T) {
		mock := newMockPool(t)
		mock.ExpectBegin()
		mock.ExpectRollback().WillReturnError(pgx.ErrTxClosed)

		fnErr := errors.New("fail")
		err := store.NewTxManager(mock).WithinTx(context.Background(), func(context.Context) error {
			return fnErr
		})
		assert.Same(t, fnErr, err)
	})

	t.Run("reports rollback failure", func(t *testing.T) {
		mock := newMockPool(t)
		mock.ExpectBegin()
		mock.ExpectRollback().WillReturnError(errors.New("connection lost"))

		fnErr := errors.New("fail")
		err := store.NewTxManager(mock).WithinTx(context.Background(), func(context.Context) error {
			return fnErr
		})
		errutil.AssertErrorCode(t, err, "TX_ROLLBACK_FAILED")
		errutil.AssertErrorContext(t, err, "rollback_error", "connection lost")
		assert.ErrorIs(t, err, fnErr)
	})

	t.Run("begin failure", func(t *testing.T) {
		mock := newMockPool(t)
		mock.ExpectBegin().WillReturnError(errors.New("too many connections"))

		called := false
		err := store.NewTxManager(mock).WithinTx(context.Background(), func(context.Context) error {
			called = true
			return nil
		})
		errutil.AssertErrorCode(t, err, "TX_BEGIN_FAILED")
		assert.False(t, called)
	})

	t.Run("commit failure", func(t *testing.T) {
		mock := newMockPool(t)
		mock.ExpectBegin()
		mock.ExpectCommit().WillReturnError(errors.New("serialization failure"))

		err := store.NewTxManager(mock).WithinTx(context.Background(), func(context.Context) error {
			return nil
		})
		errutil.AssertErrorCode(t, err, "TX_COMMIT_FAILED")
	})

	t.Run("rolls back and re-panics", func(t *testing.T) {
		mock := newMockPool(t)
		mock.ExpectBegin()
		mock.ExpectRollback()

		assert.PanicsWithValue(t, "boom", func() {
			_ = store.NewTxManager(mock).WithinTx(context.Background(), func(context.Context) error {
				panic("boom")
			})
		})
	})

	t.Run("nested call uses a savepoint", func(t *testing.T) {
		mock := newMockPool(t)
		mock.ExpectBegin()
		mock.ExpectBegin()
		mock.ExpectRollback()
		mock.ExpectCommit()

		tm := store.NewTxManager(mock)
		innerErr := errors.New("best effort")
		err := tm.WithinTx(context.Background(), func(ctx context.Context) error {
			assert.ErrorIs(t, tm.WithinTx(ctx, func(context.Context) error {
				return innerErr
			}), innerErr)
			return nil
		})
		require.NoError(t, err)
	})
}

func TestTxFromContext(t *testing.T) {
	_, ok := store.TxFromContext(context.Background())
	assert.False(t, ok)

	mock := newMockPool(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	err := store.NewTxManager(mock).WithinTx(context.Background(), func(ctx context.Context) error {
		_, ok := store.TxFromContext(ctx)
		assert.True(t, ok)
		return nil
	})
	require.NoError(t, err)
}

func TestConn_WithoutTxReturnsDB(t *testing.T) {
	mock := newMockPool(t)
	assert.Equal(t, store.DBTX(mock), store.Conn(context.Background(), mock))
}
