// AngelaMos | 2026
// repository.go

package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/carterperez-dev/sheetsense/internal/core"
)

type Repository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	TouchLastActive(ctx context.Context, id string) error
	List(ctx context.Context) ([]WithFileCount, error)
	Count(ctx context.Context) (int, error)
	FileIDs(ctx context.Context, id string) ([]string, error)
	Purge(ctx context.Context, id string) ([]string, error)
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, user *User) error {
	query := `
		INSERT INTO users (id, name, email, password_hash, is_admin, is_verified)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING last_active, created_at, updated_at`

	err := r.db.GetContext(ctx, user, query,
		user.ID,
		user.Name,
		user.Email,
		user.PasswordHash,
		user.IsAdmin,
		user.IsVerified,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return fmt.Errorf("create user: %w", core.ErrDuplicateKey)
		}
		return fmt.Errorf("create user: %w", err)
	}

	return nil
}

func (r *repository) GetByID(ctx context.Context, id string) (*User, error) {
	query := `
		SELECT id, name, email, password_hash, is_admin, is_verified,
		       last_active, created_at, updated_at
		FROM users
		WHERE id = $1`

	var user User
	err := r.db.GetContext(ctx, &user, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get user: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}

	return &user, nil
}

func (r *repository) GetByEmail(
	ctx context.Context,
	email string,
) (*User, error) {
	query := `
		SELECT id, name, email, password_hash, is_admin, is_verified,
		       last_active, created_at, updated_at
		FROM users
		WHERE email = $1`

	var user User
	err := r.db.GetContext(ctx, &user, query, email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get user by email: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	}

	return &user, nil
}

func (r *repository) UpdatePassword(
	ctx context.Context,
	id, passwordHash string,
) error {
	query := `
		UPDATE users
		SET password_hash = $2, updated_at = NOW()
		WHERE id = $1`

	return r.execOne(ctx, "update password", query, id, passwordHash)
}

func (r *repository) TouchLastActive(ctx context.Context, id string) error {
	query := `
		UPDATE users
		SET last_active = NOW()
		WHERE id = $1`

	return r.execOne(ctx, "touch last active", query, id)
}

func (r *repository) List(ctx context.Context) ([]WithFileCount, error) {
	query := `
		SELECT u.id, u.name, u.email, u.is_admin, u.is_verified,
		       u.last_active, u.created_at, u.updated_at,
		       COUNT(f.id) AS files_count
		FROM users u
		LEFT JOIN files f ON f.uploaded_by = u.id
		GROUP BY u.id
		ORDER BY u.created_at DESC`

	var users []WithFileCount
	if err := r.db.SelectContext(ctx, &users, query); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	return users, nil
}

func (r *repository) Count(ctx context.Context) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM users`); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return total, nil
}

// FileIDs returns the user's file references, oldest first.
func (r *repository) FileIDs(ctx context.Context, id string) ([]string, error) {
	query := `
		SELECT id
		FROM files
		WHERE uploaded_by = $1
		ORDER BY uploaded_at ASC`

	ids := []string{}
	if err := r.db.SelectContext(ctx, &ids, query, id); err != nil {
		return nil, fmt.Errorf("list user file ids: %w", err)
	}

	return ids, nil
}

// Purge deletes the user, letting their files cascade, and returns the disk
// names those files pointed at. The select reads the pre-delete snapshot, so
// the names survive the cascade.
func (r *repository) Purge(ctx context.Context, id string) ([]string, error) {
	query := `
		WITH removed AS (
			DELETE FROM users WHERE id = $1 RETURNING id
		)
		SELECT removed.id AS user_id, f.disk_file_name
		FROM removed
		LEFT JOIN files f ON f.uploaded_by = removed.id`

	var rows []struct {
		UserID       string         `db:"user_id"`
		DiskFileName sql.NullString `db:"disk_file_name"`
	}
	if err := r.db.SelectContext(ctx, &rows, query, id); err != nil {
		return nil, fmt.Errorf("purge user: %w", err)
	}

	if len(rows) == 0 {
		return nil, fmt.Errorf("purge user: %w", core.ErrNotFound)
	}

	names := make([]string, 0, len(rows))
	for _, row := range rows {
		if row.DiskFileName.Valid {
			names = append(names, row.DiskFileName.String)
		}
	}

	return names, nil
}

func (r *repository) execOne(
	ctx context.Context,
	op, query string,
	args ...any,
) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if rows == 0 {
		return fmt.Errorf("%s: %w", op, core.ErrNotFound)
	}

	return nil
}

func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
