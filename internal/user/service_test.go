// AngelaMos | 2026
// service_test.go

package user

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/sheetsense/internal/core"
)

type memRepo struct {
	users   map[string]*User
	fileIDs map[string][]string
}

func newMemRepo() *memRepo {
	return &memRepo{users: map[string]*User{}, fileIDs: map[string][]string{}}
}

func (m *memRepo) Create(_ context.Context, u *User) error {
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return core.ErrDuplicateKey
		}
	}
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *memRepo) GetByID(_ context.Context, id string) (*User, error) {
	if u, ok := m.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, core.ErrNotFound
}

func (m *memRepo) GetByEmail(_ context.Context, email string) (*User, error) {
	for _, u := range m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, core.ErrNotFound
}

func (m *memRepo) UpdatePassword(_ context.Context, id, hash string) error {
	u, ok := m.users[id]
	if !ok {
		return core.ErrNotFound
	}
	u.PasswordHash = hash
	return nil
}

func (m *memRepo) TouchLastActive(context.Context, string) error { return nil }

func (m *memRepo) List(context.Context) ([]WithFileCount, error) {
	out := make([]WithFileCount, 0, len(m.users))
	for id, u := range m.users {
		out = append(out, WithFileCount{User: *u, FilesCount: len(m.fileIDs[id])})
	}
	return out, nil
}

func (m *memRepo) Count(context.Context) (int, error) { return len(m.users), nil }

func (m *memRepo) FileIDs(_ context.Context, id string) ([]string, error) {
	return append([]string{}, m.fileIDs[id]...), nil
}

func (m *memRepo) Purge(_ context.Context, id string) ([]string, error) {
	if _, ok := m.users[id]; !ok {
		return nil, core.ErrNotFound
	}
	delete(m.users, id)
	names := m.fileIDs[id]
	delete(m.fileIDs, id)
	return names, nil
}

func TestServiceCreateNormalizes(t *testing.T) {
	repo := newMemRepo()
	svc := NewService(repo)
	ctx := context.Background()

	info, err := svc.Create(ctx, "  Ada  ", "  Ada@Example.COM ", "hash")
	require.NoError(t, err)
	assert.Equal(t, "Ada", info.Name)
	assert.Equal(t, "ada@example.com", info.Email)
	assert.False(t, info.IsAdmin)
	assert.True(t, info.IsVerified)

	_, err = svc.Create(ctx, "Other", "ADA@example.com", "hash")
	assert.ErrorIs(t, err, core.ErrDuplicateKey)

	found, err := svc.GetByEmail(ctx, "ADA@EXAMPLE.COM")
	require.NoError(t, err)
	assert.Equal(t, info.ID, found.ID)
}

func TestServiceResolveUser(t *testing.T) {
	repo := newMemRepo()
	repo.users["u1"] = &User{ID: "u1", Name: "Ada", Email: "ada@example.com", IsAdmin: true}
	svc := NewService(repo)

	current, err := svc.ResolveUser(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", current.Email)
	assert.True(t, current.IsAdmin)

	_, err = svc.ResolveUser(context.Background(), "ghost")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestServiceGetMe(t *testing.T) {
	repo := newMemRepo()
	repo.users["u1"] = &User{ID: "u1", Name: "Ada", Email: "ada@example.com", PasswordHash: "secret"}
	repo.fileIDs["u1"] = []string{"f1", "f2"}
	svc := NewService(repo)

	profile, err := svc.GetMe(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "Ada", profile.Name)
	assert.Equal(t, []string{"f1", "f2"}, profile.Files)

	_, err = svc.GetMe(context.Background(), "")
	assert.ErrorIs(t, err, core.ErrUnauthorized)
}

func TestServicePurgeUser(t *testing.T) {
	repo := newMemRepo()
	repo.users["u1"] = &User{ID: "u1"}
	repo.fileIDs["u1"] = []string{"a.csv"}
	svc := NewService(repo)

	names, err := svc.PurgeUser(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.csv"}, names)

	_, err = svc.PurgeUser(context.Background(), "u1")
	assert.ErrorIs(t, err, core.ErrNotFound)
}
