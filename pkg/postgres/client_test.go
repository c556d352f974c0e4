package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMock(t *testing.T) (*Client, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewFromDB(db), mock
}

func TestInTxCommits(t *testing.T) {
	c, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE urls").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := c.InTx(context.Background(), func(tx *sql.Tx) error {
		_, err := tx.Exec("UPDATE urls SET status = 1")
		return err
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInTxRollsBackOnError(t *testing.T) {
	c, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	boom := errors.New("boom")
	err := c.InTx(context.Background(), func(*sql.Tx) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrate(t *testing.T) {
	c, mock := newMock(t)
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS batches").WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, c.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
