// AngelaMos | 2026
// entity.go

package user

import (
	"time"
)

type User struct {
	ID           string    `db:"id"`
	Name         string    `db:"name"`
	Email        string    `db:"email"`
	PasswordHash string    `db:"password_hash"`
	IsAdmin      bool      `db:"is_admin"`
	IsVerified   bool      `db:"is_verified"`
	LastActive   time.Time `db:"last_active"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

// WithFileCount is a user row joined with the number of files they own.
type WithFileCount struct {
	User
	FilesCount int `db:"files_count"`
}
