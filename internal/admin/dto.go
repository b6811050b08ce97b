// AngelaMos | 2026
// dto.go

package admin

import (
	"time"

	"github.com/carterperez-dev/sheetsense/internal/file"
	"github.com/carterperez-dev/sheetsense/internal/user"
)

type StatsResponse struct {
	TotalUsers     int `json:"totalUsers"`
	TotalFiles     int `json:"totalFiles"`
	TotalAnalytics int `json:"totalAnalytics"`
}

type RecentFile struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	FileSize   int64     `json:"fileSize"`
	UploadedAt time.Time `json:"uploadedAt"`
}

type UserDetails struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Email       string       `json:"email"`
	CreatedAt   time.Time    `json:"createdAt"`
	FilesCount  int          `json:"filesCount"`
	StorageUsed int64        `json:"storageUsed"`
	LastActive  time.Time    `json:"lastActive"`
	RecentFiles []RecentFile `json:"recentFiles"`
}

type UserAnalytics struct {
	user.UserResponse
	Files []file.Summary `json:"files"`
}

func toRecentFiles(files []file.Summary) []RecentFile {
	out := make([]RecentFile, 0, len(files))
	for _, f := range files {
		out = append(out, RecentFile{
			ID:         f.ID,
			Name:       f.Name,
			FileSize:   f.Size,
			UploadedAt: f.UploadDate,
		})
	}
	return out
}
