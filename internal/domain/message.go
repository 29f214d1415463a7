package domain

import (
	"time"

	"github.com/google/uuid"
)

// MaxMessageLength is the maximum chat message content length.
const MaxMessageLength = 2000

// ChatMessage represents a message posted in a room. Messages are immutable
// except for deletion.
type ChatMessage struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	RoomID    uuid.UUID `gorm:"type:uuid;not null;index" json:"room_id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`

	// Relations
	User *User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

// TableName specifies the table name for ChatMessage
func (ChatMessage) TableName() string {
	return "chat_messages"
}

// SendMessageRequest represents the request to post a message
type SendMessageRequest struct {
	Content string `json:"content"`
}

// MessageResponse represents a message with its author info
type MessageResponse struct {
	ID        uuid.UUID `json:"id"`
	RoomID    uuid.UUID `json:"room_id"`
	UserID    uuid.UUID `json:"user_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	User      *UserRef  `json:"user,omitempty"`
}

// ToResponse converts a ChatMessage to its response shape
func (m *ChatMessage) ToResponse() MessageResponse {
	resp := MessageResponse{
		ID:        m.ID,
		RoomID:    m.RoomID,
		UserID:    m.UserID,
		Content:   m.Content,
		CreatedAt: m.CreatedAt,
	}
	if m.User != nil {
		ref := m.User.ToRef()
		resp.User = &ref
	}
	return resp
}
