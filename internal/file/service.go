// AngelaMos | 2026
// service.go

package file

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/carterperez-dev/sheetsense/internal/core"
	"github.com/carterperez-dev/sheetsense/internal/sheet"
	"github.com/carterperez-dev/sheetsense/internal/storage"
)

const (
	msgNoFile      = "No file uploaded"
	msgInvalidType = "Invalid file type. Only Excel, CSV, and PDF files are allowed."
	msgNoSheets    = "Excel file has no sheets"
	msgEmpty       = "Excel file is empty"
	msgUnreadable  = "Failed to process file"
)

// ArtifactStore holds the uploaded bytes keyed by disk file name.
type ArtifactStore interface {
	Put(ctx context.Context, key string, content []byte) error
	Open(ctx context.Context, key string) (*os.File, error)
	Remove(ctx context.Context, key string) error
}

type Service struct {
	repo        Repository
	store       ArtifactStore
	maxFileSize int64
	logger      *slog.Logger
}

func NewService(
	repo Repository,
	store ArtifactStore,
	maxFileSize int64,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:        repo,
		store:       store,
		maxFileSize: maxFileSize,
		logger:      logger,
	}
}

func (s *Service) MaxFileSize() int64 {
	return s.maxFileSize
}

func (s *Service) SizeLimitError() *core.AppError {
	return core.ValidationError(
		fmt.Sprintf("File size exceeds %dMB limit", s.maxFileSize>>20),
	)
}

// Upload validates and parses the content, stores the artifact and then the
// record. A failed insert takes the artifact back out.
func (s *Service) Upload(ctx context.Context, in UploadInput) (*Summary, error) {
	ctx, span := core.StartSpan(ctx, "file.upload",
		attribute.String("file.name", in.Name),
		attribute.Int64("file.size", int64(len(in.Content))),
	)
	defer span.End()

	if in.Name == "" && len(in.Content) == 0 {
		return nil, core.ValidationError(msgNoFile)
	}

	if int64(len(in.Content)) > s.maxFileSize {
		return nil, s.SizeLimitError()
	}

	fileType, err := DetectType(in.MIMEType, in.Content)
	if err != nil {
		return nil, core.ValidationError(msgInvalidType)
	}
	span.SetAttributes(attribute.String("file.type", string(fileType)))

	rows, err := parseRows(fileType, in.Content)
	if err != nil {
		core.SetSpanError(ctx, err)
		return nil, err
	}
	core.AddSpanEvent(ctx, "file.parsed", attribute.Int("rows", len(rows)))

	f := &File{
		ID:           uuid.New().String(),
		Name:         in.Name,
		DiskFileName: storage.NewKey(in.Name),
		Type:         fileType,
		FileSize:     int64(len(in.Content)),
		UploadedBy:   in.OwnerID,
		Data:         rows,
		RowCount:     len(rows),
	}

	if err := s.store.Put(ctx, f.DiskFileName, in.Content); err != nil {
		core.SetSpanError(ctx, err)
		return nil, fmt.Errorf("store artifact: %w", err)
	}

	if err := s.repo.Create(ctx, f); err != nil {
		core.SetSpanError(ctx, err)
		s.removeArtifact(ctx, f.DiskFileName)
		return nil, err
	}

	s.logger.InfoContext(ctx, "file uploaded",
		"file_id", f.ID,
		"user_id", f.UploadedBy,
		"type", f.Type,
		"size", f.FileSize,
		"rows", f.RowCount,
	)

	summary := ToSummary(f)
	return &summary, nil
}

func parseRows(t Type, content []byte) (Rows, error) {
	var (
		rows []sheet.Row
		err  error
	)

	switch t {
	case TypePDF:
		return Rows{}, nil
	case TypeCSV:
		rows, err = sheet.ParseCSV(bytes.NewReader(content))
	case TypeExcel:
		rows, err = sheet.ParseXLSX(bytes.NewReader(content))
	default:
		return nil, core.ValidationError(msgInvalidType)
	}

	switch {
	case err == nil:
		return rows, nil
	case errors.Is(err, sheet.ErrNoSheets):
		return nil, core.ValidationError(msgNoSheets)
	case errors.Is(err, sheet.ErrNoRows):
		return nil, core.ValidationError(msgEmpty)
	default:
		return nil, core.NewAppError(
			fmt.Errorf("%w: %w", core.ErrInvalidInput, err),
			msgUnreadable,
			http.StatusBadRequest,
			"VALIDATION_ERROR",
		)
	}
}

func (s *Service) List(ctx context.Context, ownerID string) ([]Summary, error) {
	files, err := s.repo.ListByOwner(ctx, ownerID, 0)
	if err != nil {
		return nil, err
	}
	return ToSummaries(files), nil
}

func (s *Service) GetData(
	ctx context.Context,
	id, ownerID string,
) (*Detail, error) {
	if !validID(id) {
		return nil, fmt.Errorf("get file: %w", core.ErrNotFound)
	}

	f, err := s.repo.GetOwned(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}

	detail := ToDetail(f)
	return &detail, nil
}

// Download opens the owned artifact. The caller closes the returned file.
func (s *Service) Download(
	ctx context.Context,
	id, ownerID string,
) (*File, *os.File, error) {
	if !validID(id) {
		return nil, nil, fmt.Errorf("download file: %w", core.ErrNotFound)
	}

	f, err := s.repo.GetOwned(ctx, id, ownerID)
	if err != nil {
		return nil, nil, err
	}

	content, err := s.store.Open(ctx, f.DiskFileName)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			s.logger.WarnContext(ctx, "artifact missing for file record",
				"file_id", f.ID,
				"disk_file_name", f.DiskFileName,
			)
		}
		return nil, nil, err
	}

	return f, content, nil
}

func (s *Service) Delete(ctx context.Context, id, ownerID string) error {
	if !validID(id) {
		return fmt.Errorf("delete file: %w", core.ErrNotFound)
	}

	f, err := s.repo.GetOwned(ctx, id, ownerID)
	if err != nil {
		return err
	}

	return s.remove(ctx, f)
}

// AdminDelete removes any file regardless of owner.
func (s *Service) AdminDelete(ctx context.Context, id string) error {
	if !validID(id) {
		return fmt.Errorf("delete file: %w", core.ErrNotFound)
	}

	f, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	return s.remove(ctx, f)
}

func (s *Service) remove(ctx context.Context, f *File) error {
	s.removeArtifact(ctx, f.DiskFileName)

	if err := s.repo.Delete(ctx, f.ID); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "file deleted",
		"file_id", f.ID,
		"user_id", f.UploadedBy,
	)
	return nil
}

// RemoveArtifacts deletes stored bytes for records that are already gone.
func (s *Service) RemoveArtifacts(ctx context.Context, keys []string) {
	for _, key := range keys {
		s.removeArtifact(ctx, key)
	}
}

func (s *Service) removeArtifact(ctx context.Context, key string) {
	if err := s.store.Remove(ctx, key); err != nil {
		s.logger.WarnContext(ctx, "remove artifact failed",
			"disk_file_name", key,
			"error", err,
		)
	}
}

func (s *Service) Recent(
	ctx context.Context,
	ownerID string,
	limit int,
) ([]Summary, error) {
	files, err := s.repo.ListByOwner(ctx, ownerID, limit)
	if err != nil {
		return nil, err
	}
	return ToSummaries(files), nil
}

func (s *Service) Usage(ctx context.Context, ownerID string) (*Usage, error) {
	return s.repo.UsageByOwner(ctx, ownerID)
}

func (s *Service) Count(ctx context.Context) (int, error) {
	return s.repo.Count(ctx)
}

func validID(id string) bool {
	return uuid.Validate(id) == nil
}
