// AngelaMos | 2026
// service.go

package user

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/carterperez-dev/sheetsense/internal/auth"
	"github.com/carterperez-dev/sheetsense/internal/core"
	"github.com/carterperez-dev/sheetsense/internal/middleware"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *Service) GetByID(
	ctx context.Context,
	id string,
) (*auth.UserInfo, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	return toUserInfo(user), nil
}

func (s *Service) GetByEmail(
	ctx context.Context,
	email string,
) (*auth.UserInfo, error) {
	user, err := s.repo.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		return nil, err
	}

	return toUserInfo(user), nil
}

func (s *Service) Create(
	ctx context.Context,
	name, email, passwordHash string,
) (*auth.UserInfo, error) {
	user := &User{
		ID:           uuid.New().String(),
		Name:         strings.TrimSpace(name),
		Email:        NormalizeEmail(email),
		PasswordHash: passwordHash,
		IsAdmin:      false,
		IsVerified:   true,
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}

	return toUserInfo(user), nil
}

func (s *Service) UpdatePassword(
	ctx context.Context,
	userID, passwordHash string,
) error {
	return s.repo.UpdatePassword(ctx, userID, passwordHash)
}

func (s *Service) TouchLastActive(ctx context.Context, userID string) error {
	return s.repo.TouchLastActive(ctx, userID)
}

// ResolveUser backs the user gate: the token's subject must still exist.
func (s *Service) ResolveUser(
	ctx context.Context,
	userID string,
) (*middleware.CurrentUser, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &middleware.CurrentUser{
		ID:         user.ID,
		Name:       user.Name,
		Email:      user.Email,
		IsAdmin:    user.IsAdmin,
		IsVerified: user.IsVerified,
	}, nil
}

func (s *Service) GetMe(
	ctx context.Context,
	userID string,
) (*ProfileResponse, error) {
	if userID == "" {
		return nil, fmt.Errorf("get me: %w", core.ErrUnauthorized)
	}

	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	fileIDs, err := s.repo.FileIDs(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &ProfileResponse{
		UserResponse: ToUserResponse(user),
		Files:        fileIDs,
	}, nil
}

func (s *Service) GetUser(ctx context.Context, id string) (*User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListUsers(ctx context.Context) ([]WithFileCount, error) {
	return s.repo.List(ctx)
}

func (s *Service) CountUsers(ctx context.Context) (int, error) {
	return s.repo.Count(ctx)
}

// PurgeUser deletes the account and its file records. It returns the disk
// names of the removed files so the caller can clear the artifacts.
func (s *Service) PurgeUser(ctx context.Context, id string) ([]string, error) {
	return s.repo.Purge(ctx, id)
}

func toUserInfo(u *User) *auth.UserInfo {
	return &auth.UserInfo{
		ID:           u.ID,
		Name:         u.Name,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		IsAdmin:      u.IsAdmin,
		IsVerified:   u.IsVerified,
	}
}

var (
	_ auth.UserProvider       = (*Service)(nil)
	_ middleware.UserResolver = (*Service)(nil)
)
