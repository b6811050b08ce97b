// AngelaMos | 2026
// dto.go

package user

import (
	"time"
)

type UserResponse struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	IsAdmin    bool      `json:"isAdmin"`
	IsVerified bool      `json:"isVerified"`
	LastActive time.Time `json:"lastActive"`
	CreatedAt  time.Time `json:"createdAt"`
}

type ProfileResponse struct {
	UserResponse
	Files []string `json:"files"`
}

type UserListItem struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	IsAdmin    bool      `json:"isAdmin"`
	FilesCount int       `json:"filesCount"`
	CreatedAt  time.Time `json:"createdAt"`
}

func ToUserResponse(u *User) UserResponse {
	return UserResponse{
		ID:         u.ID,
		Name:       u.Name,
		Email:      u.Email,
		IsAdmin:    u.IsAdmin,
		IsVerified: u.IsVerified,
		LastActive: u.LastActive,
		CreatedAt:  u.CreatedAt,
	}
}

func ToUserList(users []WithFileCount) []UserListItem {
	items := make([]UserListItem, 0, len(users))
	for _, u := range users {
		items = append(items, UserListItem{
			ID:         u.ID,
			Name:       u.Name,
			Email:      u.Email,
			IsAdmin:    u.IsAdmin,
			FilesCount: u.FilesCount,
			CreatedAt:  u.CreatedAt,
		})
	}
	return items
}
