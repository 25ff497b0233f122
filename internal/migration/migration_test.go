package migration

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatements(t *testing.T) {
	tests := []struct {
		dialect string
		action  string
		count   int
		first   string
	}{
		{"postgres", ActionUp, 5, "CREATE TABLE IF NOT EXISTS blacklist_entries"},
		{"postgres", ActionDown, 2, "DROP TABLE IF EXISTS api_clients"},
		{"mysql", ActionUp, 2, "CREATE TABLE IF NOT EXISTS blacklist_entries"},
		{"mysql", ActionDown, 2, "DROP TABLE IF EXISTS api_clients"},
	}

	for _, tt := range tests {
		t.Run(tt.dialect+"_"+tt.action, func(t *testing.T) {
			stmts, err := Statements(tt.dialect, tt.action)
			require.NoError(t, err)
			require.Len(t, stmts, tt.count)
			assert.True(t, strings.HasPrefix(stmts[0], tt.first), stmts[0])
			for _, stmt := range stmts {
				assert.NotContains(t, stmt, "--")
				assert.False(t, strings.HasSuffix(stmt, ";"))
			}
		})
	}
}

func TestStatements_Unsupported(t *testing.T) {
	_, err := Statements("sqlite", ActionUp)
	assert.ErrorIs(t, err, ErrUnsupportedDialect)

	_, err = Statements("postgres", "sideways")
	assert.ErrorIs(t, err, ErrUnsupportedAction)
}

func TestSplitStatements(t *testing.T) {
	script := "-- comment; ignored\nINSERT INTO t VALUES ('a;b');\n  -- another\nSELECT 1;\nSELECT 2"
	assert.Equal(t, []string{
		"INSERT INTO t VALUES ('a;b')",
		"SELECT 1",
		"SELECT 2",
	}, splitStatements(script))
}

func TestRun_CommitsAllStatements(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer db.Close()

	stmts, err := Statements("postgres", ActionUp)
	require.NoError(t, err)

	mock.ExpectBegin()
	for _, stmt := range stmts {
		mock.ExpectExec(stmt).WillReturnResult(sqlmock.NewResult(0, 0))
	}
	mock.ExpectCommit()

	n, err := Run(context.Background(), db, "postgres", ActionUp)
	require.NoError(t, err)
	assert.Equal(t, len(stmts), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRun_RollsBackOnFailure(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer db.Close()

	stmts, err := Statements("mysql", ActionUp)
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectExec(stmts[0]).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(stmts[1]).WillReturnError(errors.New("syntax error"))
	mock.ExpectRollback()

	n, err := Run(context.Background(), db, "mysql", ActionUp)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "statement 2 failed")
	assert.Equal(t, 1, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRun_UnsupportedDialectDoesNotTouchDB(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	_, err = Run(context.Background(), db, "oracle", ActionUp)
	assert.ErrorIs(t, err, ErrUnsupportedDialect)
	assert.NoError(t, mock.ExpectationsWereMet())
}
