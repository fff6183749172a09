package repository

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPostgresKVMock(t *testing.T) (*PostgresKV, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "postgres")
	return NewPostgresKV(sqlxDB), mock, func() {
		sqlxDB.Close()
	}
}

func TestPostgresKVGet(t *testing.T) {
	kv, mock, cleanup := newPostgresKVMock(t)
	defer cleanup()

	mock.ExpectQuery("SELECT value::text FROM kv_entries").
		WithArgs("cnhs_students").
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow(`[{"id":"S001"}]`))

	raw, err := kv.Get(context.Background(), "cnhs_students")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":"S001"}]`, string(raw))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresKVGetMissing(t *testing.T) {
	kv, mock, cleanup := newPostgresKVMock(t)
	defer cleanup()

	mock.ExpectQuery("SELECT value::text FROM kv_entries").
		WithArgs("cnhs_parents").
		WillReturnError(sql.ErrNoRows)

	_, err := kv.Get(context.Background(), "cnhs_parents")
	assert.ErrorIs(t, err, ErrKeyNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresKVSet(t *testing.T) {
	kv, mock, cleanup := newPostgresKVMock(t)
	defer cleanup()

	mock.ExpectExec("INSERT INTO kv_entries").
		WithArgs("cnhs_active_year", `"2024-2025"`, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, kv.Set(context.Background(), "cnhs_active_year", []byte(`"2024-2025"`)))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresKVDelete(t *testing.T) {
	kv, mock, cleanup := newPostgresKVMock(t)
	defer cleanup()

	mock.ExpectExec("DELETE FROM kv_entries").
		WithArgs("cnhs_students").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, kv.Delete(context.Background(), "cnhs_students"))
	require.NoError(t, mock.ExpectationsWereMet())
}
