package db

import (
	"context"
	"errors"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTxFromContext_Nil(t *testing.T) {
	assert.Nil(t, TxFromContext(context.Background()))
}

func TestTxFromContext_WithWrongType(t *testing.T) {
	ctx := context.WithValue(context.Background(), DBTxKey, "not-a-tx")
	assert.Nil(t, TxFromContext(ctx))
}

func TestWithTx_CommitsOnSuccess(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO surgeries").WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO tests").WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	err = NewTxRunner(mock).WithTx(context.Background(), func(ctx context.Context) error {
		conn := Conn(ctx, mock)
		require.NotNil(t, TxFromContext(ctx))
		if _, err := conn.Exec(ctx, "INSERT INTO surgeries DEFAULT VALUES"); err != nil {
			return err
		}
		_, err := conn.Exec(ctx, "INSERT INTO tests DEFAULT VALUES")
		return err
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	boom := errors.New("mirror insert failed")
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO surgeries").WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectRollback()

	err = NewTxRunner(mock).WithTx(context.Background(), func(ctx context.Context) error {
		if _, err := Conn(ctx, mock).Exec(ctx, "INSERT INTO surgeries DEFAULT VALUES"); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTx_RollsBackOnPanic(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectRollback()

	assert.Panics(t, func() {
		_ = NewTxRunner(mock).WithTx(context.Background(), func(ctx context.Context) error {
			panic("boom")
		})
	})
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTx_BeginFailure(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin().WillReturnError(errors.New("pool exhausted"))

	called := false
	err = NewTxRunner(mock).WithTx(context.Background(), func(ctx context.Context) error {
		called = true
		return nil
	})
	require.Error(t, err)
	assert.False(t, called)
}

func TestWithTx_NestedReusesOuter(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectCommit()

	runner := NewTxRunner(mock)
	err = runner.WithTx(context.Background(), func(ctx context.Context) error {
		outer := TxFromContext(ctx)
		return runner.WithTx(ctx, func(inner context.Context) error {
			assert.Equal(t, outer, TxFromContext(inner))
			return nil
		})
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
