// AngelaMos | 2026
// dto.go

package file

import (
	"time"

	"github.com/carterperez-dev/sheetsense/internal/sheet"
)

type Summary struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Type       Type      `json:"type"`
	Size       int64     `json:"size"`
	UploadDate time.Time `json:"uploadDate"`
	RowCount   int       `json:"rowCount"`
}

type Detail struct {
	Summary
	Data []sheet.Row `json:"data"`
}

type UploadInput struct {
	Name     string
	MIMEType string
	Content  []byte
	OwnerID  string
}

func ToSummary(f *File) Summary {
	return Summary{
		ID:         f.ID,
		Name:       f.Name,
		Type:       f.Type,
		Size:       f.FileSize,
		UploadDate: f.UploadedAt,
		RowCount:   f.RowCount,
	}
}

func ToSummaries(files []File) []Summary {
	out := make([]Summary, 0, len(files))
	for i := range files {
		out = append(out, ToSummary(&files[i]))
	}
	return out
}

func ToDetail(f *File) Detail {
	data := []sheet.Row(f.Data)
	if data == nil {
		data = []sheet.Row{}
	}
	return Detail{Summary: ToSummary(f), Data: data}
}
