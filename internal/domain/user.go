package domain

import (
	"time"

	"github.com/google/uuid"
)

// UserStatus represents a user's self-reported presence status
type UserStatus string

const (
	StatusOnline  UserStatus = "online"
	StatusBusy    UserStatus = "busy"
	StatusAway    UserStatus = "away"
	StatusOffline UserStatus = "offline"
)

// ValidStatus reports whether s is one of the four presence statuses.
func ValidStatus(s UserStatus) bool {
	switch s {
	case StatusOnline, StatusBusy, StatusAway, StatusOffline:
		return true
	}
	return false
}

// User represents an account
type User struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	Email         string     `gorm:"uniqueIndex;not null" json:"email"`
	DisplayName   string     `gorm:"not null" json:"display_name"`
	AvatarURL     *string    `json:"avatar_url,omitempty"`
	Status        UserStatus `gorm:"type:varchar(20);default:'offline'" json:"status"`
	StatusMessage *string    `json:"status_message,omitempty"`
	CreatedAt     time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt     time.Time  `gorm:"not null" json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

// UserRef is the embedded user shape returned alongside participants,
// messages and members.
type UserRef struct {
	ID            uuid.UUID `json:"id"`
	DisplayName   string    `json:"display_name"`
	AvatarURL     *string   `json:"avatar_url,omitempty"`
	Status        string    `json:"status,omitempty"`
	StatusMessage *string   `json:"status_message,omitempty"`
}

// ToRef converts a User to its embedded reference shape
func (u *User) ToRef() UserRef {
	return UserRef{
		ID:            u.ID,
		DisplayName:   u.DisplayName,
		AvatarURL:     u.AvatarURL,
		Status:        string(u.Status),
		StatusMessage: u.StatusMessage,
	}
}

// UpdateProfileRequest represents the request to update the caller's profile
type UpdateProfileRequest struct {
	DisplayName   *string `json:"display_name,omitempty"`
	AvatarURL     *string `json:"avatar_url,omitempty"`
	StatusMessage *string `json:"status_message,omitempty"`
}

// UpdateStatusRequest represents the request to update the caller's status
type UpdateStatusRequest struct {
	Status UserStatus `json:"status" binding:"required"`
}
