// AngelaMos | 2026
// service.go

package admin

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/carterperez-dev/sheetsense/internal/core"
	"github.com/carterperez-dev/sheetsense/internal/file"
	"github.com/carterperez-dev/sheetsense/internal/user"
)

const recentFilesLimit = 5

type UserStore interface {
	CountUsers(ctx context.Context) (int, error)
	ListUsers(ctx context.Context) ([]user.WithFileCount, error)
	GetUser(ctx context.Context, id string) (*user.User, error)
	PurgeUser(ctx context.Context, id string) ([]string, error)
}

type FileStore interface {
	Count(ctx context.Context) (int, error)
	Recent(ctx context.Context, ownerID string, limit int) ([]file.Summary, error)
	Usage(ctx context.Context, ownerID string) (*file.Usage, error)
	AdminDelete(ctx context.Context, id string) error
	RemoveArtifacts(ctx context.Context, keys []string)
}

type Service struct {
	users  UserStore
	files  FileStore
	logger *slog.Logger
}

func NewService(users UserStore, files FileStore, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{users: users, files: files, logger: logger}
}

// Stats reports platform totals. There is no separate analytics store, so
// the analytics total mirrors the file total.
func (s *Service) Stats(ctx context.Context) (*StatsResponse, error) {
	totalUsers, err := s.users.CountUsers(ctx)
	if err != nil {
		return nil, err
	}

	totalFiles, err := s.files.Count(ctx)
	if err != nil {
		return nil, err
	}

	return &StatsResponse{
		TotalUsers:     totalUsers,
		TotalFiles:     totalFiles,
		TotalAnalytics: totalFiles,
	}, nil
}

func (s *Service) ListUsers(ctx context.Context) ([]user.UserListItem, error) {
	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	return user.ToUserList(users), nil
}

func (s *Service) UserDetails(
	ctx context.Context,
	userID string,
) (*UserDetails, error) {
	u, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	usage, err := s.files.Usage(ctx, u.ID)
	if err != nil {
		return nil, err
	}

	recent, err := s.files.Recent(ctx, u.ID, recentFilesLimit)
	if err != nil {
		return nil, err
	}

	return &UserDetails{
		ID:          u.ID,
		Name:        u.Name,
		Email:       u.Email,
		CreatedAt:   u.CreatedAt,
		FilesCount:  usage.Files,
		StorageUsed: usage.StorageUsed,
		LastActive:  u.LastActive,
		RecentFiles: toRecentFiles(recent),
	}, nil
}

func (s *Service) UserAnalytics(
	ctx context.Context,
	userID string,
) (*UserAnalytics, error) {
	u, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	files, err := s.files.Recent(ctx, u.ID, 0)
	if err != nil {
		return nil, err
	}

	return &UserAnalytics{
		UserResponse: user.ToUserResponse(u),
		Files:        files,
	}, nil
}

// DeleteUser removes the target account with its files. Admins cannot
// remove themselves.
func (s *Service) DeleteUser(ctx context.Context, actorID, targetID string) error {
	if !validID(targetID) {
		return fmt.Errorf("delete user: %w", core.ErrNotFound)
	}

	if actorID == targetID {
		return core.ForbiddenError("Admins cannot delete their own account")
	}

	keys, err := s.users.PurgeUser(ctx, targetID)
	if err != nil {
		return err
	}

	s.files.RemoveArtifacts(ctx, keys)

	s.logger.InfoContext(ctx, "user deleted by admin",
		"admin_id", actorID,
		"user_id", targetID,
		"files_removed", len(keys),
	)
	return nil
}

func (s *Service) DeleteFile(ctx context.Context, actorID, fileID string) error {
	if err := s.files.AdminDelete(ctx, fileID); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "file deleted by admin",
		"admin_id", actorID,
		"file_id", fileID,
	)
	return nil
}

func (s *Service) getUser(ctx context.Context, id string) (*user.User, error) {
	if !validID(id) {
		return nil, fmt.Errorf("get user: %w", core.ErrNotFound)
	}
	return s.users.GetUser(ctx, id)
}

func validID(id string) bool {
	return uuid.Validate(id) == nil
}
