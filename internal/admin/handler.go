// AngelaMos | 2026
// handler.go

package admin

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/carterperez-dev/sheetsense/internal/core"
	"github.com/carterperez-dev/sheetsense/internal/middleware"
)

type Handler struct {
	service *Service
	probe   SystemProbe
}

func NewHandler(service *Service, probe SystemProbe) *Handler {
	return &Handler{service: service, probe: probe}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	adminAuth func(http.Handler) http.Handler,
) {
	r.Route("/admin", func(r chi.Router) {
		r.Use(adminAuth)

		r.Get("/stats", h.GetStats)
		r.Get("/stats/system", h.GetSystemStats)

		r.Get("/users", h.ListUsers)
		r.Get("/users/{id}/details", h.GetUserDetails)
		r.Get("/users/{id}/analytics", h.GetUserAnalytics)
		r.Delete("/users/{id}", h.DeleteUser)

		r.Delete("/files/{id}", h.DeleteFile)
	})
}

func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, stats)
}

func (h *Handler) GetSystemStats(w http.ResponseWriter, r *http.Request) {
	core.OK(w, h.probe.Collect(r.Context()))
}

func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.ListUsers(r.Context())
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, users)
}

func (h *Handler) GetUserDetails(w http.ResponseWriter, r *http.Request) {
	details, err := h.service.UserDetails(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "User", err)
		return
	}

	core.OK(w, details)
}

func (h *Handler) GetUserAnalytics(w http.ResponseWriter, r *http.Request) {
	analytics, err := h.service.UserAnalytics(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "User", err)
		return
	}

	core.OK(w, analytics)
}

func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	err := h.service.DeleteUser(
		r.Context(),
		middleware.GetUserID(r.Context()),
		chi.URLParam(r, "id"),
	)
	if err != nil {
		writeError(w, "User", err)
		return
	}

	core.Message(w, http.StatusOK, "User deleted successfully")
}

func (h *Handler) DeleteFile(w http.ResponseWriter, r *http.Request) {
	err := h.service.DeleteFile(
		r.Context(),
		middleware.GetUserID(r.Context()),
		chi.URLParam(r, "id"),
	)
	if err != nil {
		writeError(w, "File", err)
		return
	}

	core.Message(w, http.StatusOK, "File deleted successfully")
}

func writeError(w http.ResponseWriter, resource string, err error) {
	if !core.IsAppError(err) && errors.Is(err, core.ErrNotFound) {
		core.NotFound(w, resource)
		return
	}
	core.JSONError(w, err)
}
