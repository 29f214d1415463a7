package domain

import (
	"time"

	"github.com/google/uuid"
)

// RoomType represents the kind of room
type RoomType string

const (
	RoomMeeting RoomType = "meeting"
	RoomLounge  RoomType = "lounge"
	RoomFocus   RoomType = "focus"
	RoomGeneral RoomType = "general"
)

// ValidRoomType reports whether t is a known room type.
func ValidRoomType(t RoomType) bool {
	switch t {
	case RoomMeeting, RoomLounge, RoomFocus, RoomGeneral:
		return true
	}
	return false
}

// Room represents a sub-space within a workspace. A user occupies at most
// one room per workspace at any time.
type Room struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	WorkspaceID uuid.UUID `gorm:"type:uuid;not null;index" json:"workspace_id"`
	Name        string    `gorm:"not null" json:"name"`
	Type        RoomType  `gorm:"type:varchar(20);not null;default:'general'" json:"type"`
	Capacity    *int      `json:"capacity,omitempty"`
	Description *string   `json:"description,omitempty"`
	CreatedAt   time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time `gorm:"not null" json:"updated_at"`

	// Relations
	Participants []RoomParticipant `gorm:"foreignKey:RoomID" json:"participants,omitempty"`
}

// TableName specifies the table name for Room
func (Room) TableName() string {
	return "rooms"
}

// RoomParticipant represents a user's active occupancy in a room
type RoomParticipant struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	RoomID       uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_room_user" json:"room_id"`
	UserID       uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_room_user" json:"user_id"`
	VideoEnabled bool      `gorm:"default:true" json:"video_enabled"`
	AudioEnabled bool      `gorm:"default:true" json:"audio_enabled"`
	JoinedAt     time.Time `gorm:"not null" json:"joined_at"`

	// Relations
	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

// TableName specifies the table name for RoomParticipant
func (RoomParticipant) TableName() string {
	return "room_participants"
}

// CreateRoomRequest represents the request to create a room
type CreateRoomRequest struct {
	Name        string   `json:"name"`
	Type        RoomType `json:"type"`
	Capacity    *int     `json:"capacity,omitempty"`
	Description *string  `json:"description,omitempty"`
}

// UpdateRoomRequest represents the request to update a room
type UpdateRoomRequest struct {
	Name        *string   `json:"name,omitempty"`
	Type        *RoomType `json:"type,omitempty"`
	Capacity    *int      `json:"capacity,omitempty"`
	Description *string   `json:"description,omitempty"`
}

// UpdateMediaRequest represents the request to toggle a participant's media
type UpdateMediaRequest struct {
	VideoEnabled *bool `json:"video_enabled,omitempty"`
	AudioEnabled *bool `json:"audio_enabled,omitempty"`
}

// RoomResponse represents a room with its participant count
type RoomResponse struct {
	ID               uuid.UUID `json:"id"`
	WorkspaceID      uuid.UUID `json:"workspace_id"`
	Name             string    `json:"name"`
	Type             RoomType  `json:"type"`
	Capacity         *int      `json:"capacity,omitempty"`
	Description      *string   `json:"description,omitempty"`
	ParticipantCount int       `json:"participant_count"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// ToResponse converts a Room to its response shape
func (r *Room) ToResponse(participantCount int) RoomResponse {
	return RoomResponse{
		ID:               r.ID,
		WorkspaceID:      r.WorkspaceID,
		Name:             r.Name,
		Type:             r.Type,
		Capacity:         r.Capacity,
		Description:      r.Description,
		ParticipantCount: participantCount,
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
	}
}

// ParticipantResponse represents a participant with their user info
type ParticipantResponse struct {
	ID           uuid.UUID `json:"id"`
	RoomID       uuid.UUID `json:"room_id"`
	UserID       uuid.UUID `json:"user_id"`
	VideoEnabled bool      `json:"video_enabled"`
	AudioEnabled bool      `json:"audio_enabled"`
	JoinedAt     time.Time `json:"joined_at"`
	User         *UserRef  `json:"user,omitempty"`
}

// ToResponse converts a RoomParticipant to its response shape
func (p *RoomParticipant) ToResponse() ParticipantResponse {
	resp := ParticipantResponse{
		ID:           p.ID,
		RoomID:       p.RoomID,
		UserID:       p.UserID,
		VideoEnabled: p.VideoEnabled,
		AudioEnabled: p.AudioEnabled,
		JoinedAt:     p.JoinedAt,
	}
	if p.User != nil {
		ref := p.User.ToRef()
		resp.User = &ref
	}
	return resp
}
