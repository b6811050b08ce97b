// AngelaMos | 2026
// handler.go

package file

import (
	"errors"
	"io"
	"mime"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/carterperez-dev/sheetsense/internal/core"
	"github.com/carterperez-dev/sheetsense/internal/middleware"
)

const formField = "file"

type Handler struct {
	service      *Service
	maxFormBytes int64
}

func NewHandler(service *Service, maxFormBytes int64) *Handler {
	return &Handler{
		service:      service,
		maxFormBytes: maxFormBytes,
	}
}

// RouteGates bundles the middleware the file routes sit behind.
type RouteGates struct {
	User        func(http.Handler) http.Handler
	Download    func(http.Handler) http.Handler
	UploadLimit func(http.Handler) http.Handler
}

func (h *Handler) RegisterRoutes(r chi.Router, gates RouteGates) {
	r.Group(func(r chi.Router) {
		r.Use(gates.User)

		if gates.UploadLimit != nil {
			r.With(gates.UploadLimit).Post("/upload", h.Upload)
		} else {
			r.Post("/upload", h.Upload)
		}

		r.Get("/files", h.List)
		r.Get("/files/{id}", h.GetData)
		r.Delete("/files/{id}", h.Delete)
	})

	r.With(gates.Download).Get("/files/{id}/download", h.Download)
}

func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	current := middleware.GetCurrentUser(r.Context())
	if current == nil {
		core.Unauthorized(w, "")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxFormBytes)
	if err := r.ParseMultipartForm(h.maxFormBytes); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			core.JSONError(w, h.service.SizeLimitError())
			return
		}
		core.BadRequest(w, msgNoFile)
		return
	}
	//nolint:errcheck // temp files from the parsed form
	defer r.MultipartForm.RemoveAll()

	part, header, err := r.FormFile(formField)
	if err != nil {
		core.BadRequest(w, msgNoFile)
		return
	}
	defer part.Close() //nolint:errcheck // read-only multipart part

	if header.Size > h.service.MaxFileSize() {
		core.JSONError(w, h.service.SizeLimitError())
		return
	}

	content, err := io.ReadAll(io.LimitReader(part, h.service.MaxFileSize()+1))
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	summary, err := h.service.Upload(r.Context(), UploadInput{
		Name:     header.Filename,
		MIMEType: header.Header.Get("Content-Type"),
		Content:  content,
		OwnerID:  current.ID,
	})
	if err != nil {
		core.JSONError(w, err)
		return
	}

	core.JSON(w, http.StatusCreated, core.SuccessResponse{
		Success: true,
		Data:    summary,
		Message: "File uploaded and data stored successfully",
	})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	files, err := h.service.List(r.Context(), userID)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, files)
}

func (h *Handler) GetData(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	detail, err := h.service.GetData(r.Context(), chi.URLParam(r, "id"), userID)
	if err != nil {
		writeFileError(w, err)
		return
	}

	core.OK(w, detail)
}

func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	f, content, err := h.service.Download(
		r.Context(),
		chi.URLParam(r, "id"),
		userID,
	)
	if err != nil {
		writeFileError(w, err)
		return
	}
	defer content.Close() //nolint:errcheck // read-only artifact

	disposition := mime.FormatMediaType(
		"attachment",
		map[string]string{"filename": f.Name},
	)
	if disposition == "" {
		disposition = "attachment"
	}

	w.Header().Set("Content-Disposition", disposition)
	w.Header().Set("Content-Type", ContentType(f.Type))

	http.ServeContent(w, r, f.Name, f.UploadedAt, content)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	if err := h.service.Delete(r.Context(), chi.URLParam(r, "id"), userID); err != nil {
		writeFileError(w, err)
		return
	}

	core.Message(w, http.StatusOK, "File deleted successfully")
}

func writeFileError(w http.ResponseWriter, err error) {
	if errors.Is(err, core.ErrNotFound) {
		core.NotFound(w, "File")
		return
	}
	core.JSONError(w, err)
}
