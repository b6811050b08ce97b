// AngelaMos | 2026
// service.go

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/carterperez-dev/sheetsense/internal/core"
	"github.com/carterperez-dev/sheetsense/internal/middleware"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailExists        = errors.New("email already exists")
	ErrNotVerified        = errors.New("email not verified")
)

type UserInfo struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	IsAdmin      bool
	IsVerified   bool
}

type UserProvider interface {
	GetByEmail(ctx context.Context, email string) (*UserInfo, error)
	GetByID(ctx context.Context, id string) (*UserInfo, error)
	Create(
		ctx context.Context,
		name, email, passwordHash string,
	) (*UserInfo, error)
	UpdatePassword(ctx context.Context, userID, passwordHash string) error
	TouchLastActive(ctx context.Context, userID string) error
}

type TokenIssuer interface {
	CreateAccessToken(claims middleware.AccessTokenClaims) (string, error)
}

type Service struct {
	tokens       TokenIssuer
	userProvider UserProvider
}

func NewService(tokens TokenIssuer, userProvider UserProvider) *Service {
	return &Service{
		tokens:       tokens,
		userProvider: userProvider,
	}
}

// Register creates a regular, verified account. It does not log the user
// in; the client follows up with Login.
func (s *Service) Register(
	ctx context.Context,
	req RegisterRequest,
) (*PublicUser, error) {
	passwordHash, err := core.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.userProvider.Create(ctx, req.Name, req.Email, passwordHash)
	if err != nil {
		if errors.Is(err, core.ErrDuplicateKey) {
			return nil, ErrEmailExists
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	pub := toPublicUser(user)
	return &pub, nil
}

func (s *Service) Login(
	ctx context.Context,
	req LoginRequest,
) (*LoginResponse, error) {
	user, err := s.userProvider.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			//nolint:errcheck // burn the same time as a real verify
			_, _, _ = core.VerifyPasswordTimingSafe(req.Password, nil)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	valid, newHash, err := core.VerifyPasswordTimingSafe(
		req.Password,
		&user.PasswordHash,
	)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}

	if !valid {
		return nil, ErrInvalidCredentials
	}

	if !user.IsVerified {
		return nil, ErrNotVerified
	}

	if newHash != "" {
		if err := s.userProvider.UpdatePassword(ctx, user.ID, newHash); err != nil {
			slog.WarnContext(ctx, "password rehash failed",
				"user_id", user.ID,
				"error", err,
			)
		}
	}

	if err := s.userProvider.TouchLastActive(ctx, user.ID); err != nil {
		slog.WarnContext(ctx, "update last active failed",
			"user_id", user.ID,
			"error", err,
		)
	}

	token, err := s.tokens.CreateAccessToken(middleware.AccessTokenClaims{
		UserID:     user.ID,
		IsAdmin:    user.IsAdmin,
		IsVerified: user.IsVerified,
	})
	if err != nil {
		return nil, fmt.Errorf("create access token: %w", err)
	}

	return &LoginResponse{
		Token: token,
		User:  toPublicUser(user),
	}, nil
}

func toPublicUser(u *UserInfo) PublicUser {
	return PublicUser{
		ID:         u.ID,
		Name:       u.Name,
		Email:      u.Email,
		IsVerified: u.IsVerified,
		IsAdmin:    u.IsAdmin,
	}
}
