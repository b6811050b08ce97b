// AngelaMos | 2026
// repository_test.go

package file

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/sheetsense/internal/core"
	"github.com/carterperez-dev/sheetsense/internal/sheet"
)

func setupRepo(t *testing.T) (Repository, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})

	return NewRepository(sqlx.NewDb(db, "sqlmock")), mock
}

var fileColumns = []string{
	"id", "name", "disk_file_name", "type", "file_size",
	"uploaded_by", "row_count", "uploaded_at",
}

func TestFileRepositoryCreate(t *testing.T) {
	repo, mock := setupRepo(t)
	now := time.Now().UTC()

	f := &File{
		ID:           "f1",
		Name:         "a.csv",
		DiskFileName: "1-2-a.csv",
		Type:         TypeCSV,
		FileSize:     8,
		UploadedBy:   "u1",
		Data:         Rows{{{Column: "a", Value: sheet.Number(1)}}},
		RowCount:     1,
	}

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO files")).
		WithArgs("f1", "a.csv", "1-2-a.csv", "csv", int64(8), "u1", []byte(`[[["a",1]]]`), 1).
		WillReturnRows(sqlmock.NewRows([]string{"uploaded_at"}).AddRow(now))

	require.NoError(t, repo.Create(context.Background(), f))
	assert.Equal(t, now, f.UploadedAt)
}

func TestFileRepositoryCreateDuplicateKey(t *testing.T) {
	repo, mock := setupRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO files")).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	err := repo.Create(context.Background(), &File{ID: "f1", Type: TypePDF})
	assert.ErrorIs(t, err, core.ErrDuplicateKey)
}

func TestFileRepositoryListByOwner(t *testing.T) {
	now := time.Now().UTC()

	t.Run("unbounded", func(t *testing.T) {
		repo, mock := setupRepo(t)
		mock.ExpectQuery(regexp.QuoteMeta("ORDER BY uploaded_at DESC")).
			WithArgs("u1").
			WillReturnRows(sqlmock.NewRows(fileColumns).
				AddRow("f2", "b.pdf", "k2", "pdf", 20, "u1", 0, now).
				AddRow("f1", "a.csv", "k1", "csv", 10, "u1", 3, now.Add(-time.Minute)))

		files, err := repo.ListByOwner(context.Background(), "u1", 0)
		require.NoError(t, err)
		require.Len(t, files, 2)
		assert.Equal(t, "f2", files[0].ID)
		assert.Nil(t, files[0].Data)
	})

	t.Run("limited", func(t *testing.T) {
		repo, mock := setupRepo(t)
		mock.ExpectQuery(regexp.QuoteMeta("LIMIT $2")).
			WithArgs("u1", 5).
			WillReturnRows(sqlmock.NewRows(fileColumns))

		files, err := repo.ListByOwner(context.Background(), "u1", 5)
		require.NoError(t, err)
		assert.NotNil(t, files)
		assert.Empty(t, files)
	})
}

func TestFileRepositoryGetOwned(t *testing.T) {
	repo, mock := setupRepo(t)
	now := time.Now().UTC()
	cols := append(append([]string{}, fileColumns...), "data")

	mock.ExpectQuery(regexp.QuoteMeta("WHERE id = $1 AND uploaded_by = $2")).
		WithArgs("f1", "u1").
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("f1", "a.csv", "k1", "csv", 10, "u1", 1, now, []byte(`[[["b", "x"], ["a", 2]]]`)))

	f, err := repo.GetOwned(context.Background(), "f1", "u1")
	require.NoError(t, err)
	require.Len(t, f.Data, 1)
	assert.Equal(t, []string{"b", "a"}, columnNames(f.Data[0]))

	mock.ExpectQuery(regexp.QuoteMeta("WHERE id = $1 AND uploaded_by = $2")).
		WithArgs("f1", "u2").
		WillReturnRows(sqlmock.NewRows(cols))

	_, err = repo.GetOwned(context.Background(), "f1", "u2")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestFileRepositoryDelete(t *testing.T) {
	repo, mock := setupRepo(t)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM files WHERE id = $1")).
		WithArgs("f1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Delete(context.Background(), "f1"))

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM files WHERE id = $1")).
		WithArgs("f1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.Delete(context.Background(), "f1"), core.ErrNotFound)
}

func TestFileRepositoryUsage(t *testing.T) {
	repo, mock := setupRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta("COALESCE(SUM(file_size), 0)::BIGINT AS storage_used")).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"files_count", "storage_used"}).AddRow(3, 4096))

	u, err := repo.UsageByOwner(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 3, u.Files)
	assert.Equal(t, int64(4096), u.StorageUsed)
}
