package db

import (
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit_CreatesSchema(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS buckets").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, Init(conn))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInit_Error(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS buckets").
		WillReturnError(assert.AnError)

	err = Init(conn)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create schema")
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open("mysql", "whatever")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported driver")
}

func TestOpen_SQLite(t *testing.T) {
	conn, err := Open(DriverSQLite, filepath.Join(t.TempDir(), "roadsigns.db"))
	require.NoError(t, err)
	defer conn.Close()

	var n int
	err = conn.QueryRow(`SELECT COUNT(*) FROM buckets`).Scan(&n)
	require.NoError(t, err)
	assert.Zero(t, n)
}
