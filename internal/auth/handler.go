// AngelaMos | 2026
// handler.go

package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/carterperez-dev/sheetsense/internal/core"
	"github.com/carterperez-dev/sheetsense/internal/middleware"
)

const maxAuthBodyBytes = 1 << 20

type Handler struct {
	service   *Service
	validator *validator.Validate
}

func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: core.NewValidator(),
	}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	userAuth func(http.Handler) http.Handler,
) {
	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)

		r.With(userAuth).Get("/me", h.GetMe)
	})
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !h.decode(w, r, &req) {
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)

	if err := h.validator.Struct(req); err != nil {
		core.JSONError(w, core.ValidationError(core.FormatValidationError(err)))
		return
	}

	if _, err := h.service.Register(r.Context(), req); err != nil {
		if errors.Is(err, ErrEmailExists) {
			core.JSONError(w, core.DuplicateError("email"))
			return
		}
		core.InternalServerError(w, err)
		return
	}

	core.Message(w, http.StatusCreated, "Registration successful")
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !h.decode(w, r, &req) {
		return
	}
	req.Email = strings.TrimSpace(req.Email)

	if err := h.validator.Struct(req); err != nil {
		core.JSONError(w, core.ValidationError(core.FormatValidationError(err)))
		return
	}

	resp, err := h.service.Login(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidCredentials):
			core.JSONError(w, core.UnauthorizedError("Invalid credentials"))
		case errors.Is(err, ErrNotVerified):
			core.JSONError(
				w,
				core.UnauthorizedError("Please verify your email first"),
			)
		default:
			core.InternalServerError(w, err)
		}
		return
	}

	core.OK(w, resp)
}

// GetMe returns the public projection of the account behind the user gate.
func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	current := middleware.GetCurrentUser(r.Context())
	if current == nil {
		core.Unauthorized(w, "")
		return
	}

	core.OK(w, PublicUser{
		ID:         current.ID,
		Name:       current.Name,
		Email:      current.Email,
		IsVerified: current.IsVerified,
		IsAdmin:    current.IsAdmin,
	})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxAuthBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		core.BadRequest(w, "invalid request body")
		return false
	}
	return true
}
