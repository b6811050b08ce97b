// AngelaMos | 2026
// repository.go

package file

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/carterperez-dev/sheetsense/internal/core"
)

type Repository interface {
	Create(ctx context.Context, f *File) error
	ListByOwner(ctx context.Context, ownerID string, limit int) ([]File, error)
	GetOwned(ctx context.Context, id, ownerID string) (*File, error)
	GetByID(ctx context.Context, id string) (*File, error)
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)
	UsageByOwner(ctx context.Context, ownerID string) (*Usage, error)
}

// Usage aggregates what one owner has stored.
type Usage struct {
	Files       int   `db:"files_count"`
	StorageUsed int64 `db:"storage_used"`
}

// summaryColumns leaves out data; listings never ship rows.
const summaryColumns = `id, name, disk_file_name, type, file_size,
		       uploaded_by, row_count, uploaded_at`

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, f *File) error {
	query := `
		INSERT INTO files (id, name, disk_file_name, type, file_size,
		                   uploaded_by, data, row_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING uploaded_at`

	err := r.db.GetContext(ctx, &f.UploadedAt, query,
		f.ID,
		f.Name,
		f.DiskFileName,
		f.Type,
		f.FileSize,
		f.UploadedBy,
		f.Data,
		f.RowCount,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return fmt.Errorf("create file: %w", core.ErrDuplicateKey)
		}
		return fmt.Errorf("create file: %w", err)
	}

	return nil
}

// ListByOwner returns the owner's files newest first. A limit <= 0 means
// no limit.
func (r *repository) ListByOwner(
	ctx context.Context,
	ownerID string,
	limit int,
) ([]File, error) {
	query := `
		SELECT ` + summaryColumns + `
		FROM files
		WHERE uploaded_by = $1
		ORDER BY uploaded_at DESC`

	args := []any{ownerID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	files := []File{}
	if err := r.db.SelectContext(ctx, &files, query, args...); err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}

	return files, nil
}

func (r *repository) GetOwned(
	ctx context.Context,
	id, ownerID string,
) (*File, error) {
	query := `
		SELECT ` + summaryColumns + `, data
		FROM files
		WHERE id = $1 AND uploaded_by = $2`

	var f File
	err := r.db.GetContext(ctx, &f, query, id, ownerID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get file: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get file: %w", err)
	}

	return &f, nil
}

func (r *repository) GetByID(ctx context.Context, id string) (*File, error) {
	query := `
		SELECT ` + summaryColumns + `
		FROM files
		WHERE id = $1`

	var f File
	err := r.db.GetContext(ctx, &f, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get file: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get file: %w", err)
	}

	return &f, nil
}

func (r *repository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM files WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete file: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete file: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("delete file: %w", core.ErrNotFound)
	}

	return nil
}

func (r *repository) Count(ctx context.Context) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM files`); err != nil {
		return 0, fmt.Errorf("count files: %w", err)
	}
	return total, nil
}

func (r *repository) UsageByOwner(
	ctx context.Context,
	ownerID string,
) (*Usage, error) {
	query := `
		SELECT COUNT(*) AS files_count,
		       COALESCE(SUM(file_size), 0)::BIGINT AS storage_used
		FROM files
		WHERE uploaded_by = $1`

	var u Usage
	if err := r.db.GetContext(ctx, &u, query, ownerID); err != nil {
		return nil, fmt.Errorf("file usage: %w", err)
	}

	return &u, nil
}

func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
