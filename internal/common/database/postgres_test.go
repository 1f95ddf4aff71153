package database

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresClient_Migrate(t *testing.T) {
	stmts := []string{
		"CREATE TABLE IF NOT EXISTS a (id TEXT)",
		"CREATE TABLE IF NOT EXISTS b (id TEXT)",
	}

	t.Run("commits all statements", func(t *testing.T) {
		db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectExec(stmts[0]).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec(stmts[1]).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectCommit()

		c := &PostgresClient{DB: db}
		require.NoError(t, c.Migrate(context.Background(), stmts...))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back on failure", func(t *testing.T) {
		db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectExec(stmts[0]).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec(stmts[1]).WillReturnError(errors.New("permission denied"))
		mock.ExpectRollback()

		c := &PostgresClient{DB: db}
		err = c.Migrate(context.Background(), stmts...)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "migration statement 1")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
