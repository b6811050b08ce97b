// AngelaMos | 2026
// auth.go

package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/carterperez-dev/sheetsense/internal/core"
)

const (
	ClaimsKey      contextKey = "jwt_claims"
	CurrentUserKey contextKey = "current_user"
)

const queryTokenParam = "token"

type TokenVerifier interface {
	VerifyAccessToken(
		ctx context.Context,
		token string,
	) (*AccessTokenClaims, error)
}

type AccessTokenClaims struct {
	UserID     string
	IsAdmin    bool
	IsVerified bool
}

// CurrentUser is the resolved account behind a user-gated request.
type CurrentUser struct {
	ID         string
	Name       string
	Email      string
	IsAdmin    bool
	IsVerified bool
}

type UserResolver interface {
	ResolveUser(ctx context.Context, userID string) (*CurrentUser, error)
}

// Authenticator verifies the bearer token and attaches its claims. It does
// not touch the database.
func Authenticator(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := ExtractToken(r)

			if token == "" {
				core.JSONError(w, core.UnauthorizedError("No token provided"))
				return
			}

			claims, err := verifier.VerifyAccessToken(r.Context(), token)
			if err != nil {
				handleAuthError(w, err)
				return
			}

			ctx := context.WithValue(r.Context(), ClaimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetClaims(r.Context()) == nil {
			core.JSONError(w, core.UnauthorizedError("authentication required"))
			return
		}

		if !IsAdmin(r.Context()) {
			core.JSONError(w, core.ForbiddenError("Access denied: Admins only"))
			return
		}

		next.ServeHTTP(w, r)
	})
}

// AdminGate is the admin route guard: a valid token carrying the admin flag.
func AdminGate(verifier TokenVerifier) func(http.Handler) http.Handler {
	authenticate := Authenticator(verifier)
	return func(next http.Handler) http.Handler {
		return authenticate(RequireAdmin(next))
	}
}

type userGateOptions struct {
	allowQueryToken bool
}

type UserGateOption func(*userGateOptions)

// WithQueryToken lets the gate fall back to ?token= for links that cannot
// carry headers, such as direct downloads.
func WithQueryToken() UserGateOption {
	return func(o *userGateOptions) {
		o.allowQueryToken = true
	}
}

// UserGate verifies the token and resolves it to a live account.
func UserGate(
	verifier TokenVerifier,
	resolver UserResolver,
	opts ...UserGateOption,
) func(http.Handler) http.Handler {
	var o userGateOptions
	for _, opt := range opts {
		opt(&o)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := ExtractToken(r)
			if token == "" && o.allowQueryToken {
				token = strings.TrimSpace(r.URL.Query().Get(queryTokenParam))
			}

			if token == "" {
				core.JSONError(
					w,
					core.UnauthorizedError("No token, authorization denied"),
				)
				return
			}

			claims, err := verifier.VerifyAccessToken(r.Context(), token)
			if err != nil {
				handleAuthError(w, err)
				return
			}

			user, err := resolver.ResolveUser(r.Context(), claims.UserID)
			if err != nil {
				if !errors.Is(err, core.ErrNotFound) {
					slog.Error("resolve user failed",
						"user_id", claims.UserID,
						"error", err,
					)
				}
				core.JSONError(w, core.UnauthorizedError("User not found"))
				return
			}

			ctx := r.Context()
			ctx = context.WithValue(ctx, ClaimsKey, claims)
			ctx = context.WithValue(ctx, CurrentUserKey, user)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func ExtractToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}

	return strings.TrimSpace(parts[1])
}

func handleAuthError(w http.ResponseWriter, err error) {
	if core.IsAppError(err) {
		core.JSONError(w, err)
		return
	}

	switch {
	case errors.Is(err, core.ErrTokenExpired):
		core.JSONError(w, core.TokenExpiredError())
	default:
		core.JSONError(w, core.TokenInvalidError())
	}
}

func GetClaims(ctx context.Context) *AccessTokenClaims {
	if claims, ok := ctx.Value(ClaimsKey).(*AccessTokenClaims); ok {
		return claims
	}
	return nil
}

func GetCurrentUser(ctx context.Context) *CurrentUser {
	if user, ok := ctx.Value(CurrentUserKey).(*CurrentUser); ok {
		return user
	}
	return nil
}

func GetUserID(ctx context.Context) string {
	if user := GetCurrentUser(ctx); user != nil {
		return user.ID
	}
	if claims := GetClaims(ctx); claims != nil {
		return claims.UserID
	}
	return ""
}

func IsAdmin(ctx context.Context) bool {
	claims := GetClaims(ctx)
	return claims != nil && claims.IsAdmin
}

// WithCurrentUser stores u on ctx. Handlers under test use it to skip the gate.
func WithCurrentUser(ctx context.Context, u *CurrentUser) context.Context {
	return context.WithValue(ctx, CurrentUserKey, u)
}

// WithClaims stores c on ctx.
func WithClaims(ctx context.Context, c *AccessTokenClaims) context.Context {
	return context.WithValue(ctx, ClaimsKey, c)
}
