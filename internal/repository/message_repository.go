// internal/repository/message_repository.go
package repository

import (
	"nimbo/internal/domain"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type MessageRepository interface {
	Create(message *domain.ChatMessage) error
	GetByID(messageID uuid.UUID) (*domain.ChatMessage, error)
	ListByRoom(roomID uuid.UUID, limit int, before *time.Time) ([]domain.ChatMessage, error)
	Delete(messageID uuid.UUID) error
}

type messageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

func (r *messageRepository) Create(message *domain.ChatMessage) error {
	return r.db.Create(message).Error
}

func (r *messageRepository) GetByID(messageID uuid.UUID) (*domain.ChatMessage, error) {
	var message domain.ChatMessage
	err := r.db.Preload("User").
		First(&message, "id = ?", messageID).Error
	if err != nil {
		return nil, err
	}
	return &message, nil
}

// ListByRoom returns the newest messages first; before narrows the page for
// backwards pagination.
func (r *messageRepository) ListByRoom(roomID uuid.UUID, limit int, before *time.Time) ([]domain.ChatMessage, error) {
	var messages []domain.ChatMessage
	query := r.db.Where("room_id = ?", roomID).
		Order("created_at DESC").
		Limit(limit).
		Preload("User")

	if before != nil {
		query = query.Where("created_at < ?", *before)
	}

	err := query.Find(&messages).Error
	return messages, err
}

func (r *messageRepository) Delete(messageID uuid.UUID) error {
	return r.db.Delete(&domain.ChatMessage{}, "id = ?", messageID).Error
}
