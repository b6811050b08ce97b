// AngelaMos | 2026
// database_test.go

package core

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockDatabase(t *testing.T) (*Database, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})

	return &Database{DB: sqlx.NewDb(db, "sqlmock")}, mock
}

func TestApplySchema(t *testing.T) {
	d, mock := newMockDatabase(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_xact_lock($1)")).
		WithArgs(schemaLockID).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS users")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	require.NoError(t, d.ApplySchema(context.Background()))
}

func TestApplySchemaRollsBack(t *testing.T) {
	d, mock := newMockDatabase(t)

	mock.ExpectBegin()
	mock.ExpectExec("pg_advisory_xact_lock").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE").WillReturnError(errors.New("permission denied"))
	mock.ExpectRollback()

	err := d.ApplySchema(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "apply schema")
}

func TestSchemaCascadesFiles(t *testing.T) {
	assert.Contains(t, schema, "REFERENCES users(id) ON DELETE CASCADE")
	assert.Contains(t, schema, "disk_file_name")
}

func TestJitteredDuration(t *testing.T) {
	assert.Equal(t, time.Duration(0), jitteredDuration(0))

	base := time.Hour
	for range 50 {
		got := jitteredDuration(base)
		assert.GreaterOrEqual(t, got, base)
		assert.Less(t, got, base+base/7)
	}
}
