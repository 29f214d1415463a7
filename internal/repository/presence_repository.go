package repository

import (
	"nimbo/internal/domain"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PresenceRepository interface {
	SetStatus(userID, workspaceID uuid.UUID, status domain.UserStatus) error
	SetOffline(userID uuid.UUID) error
	GetUserStatus(userID uuid.UUID) (*domain.UserPresence, error)
	GetOnlineUsers(workspaceID *uuid.UUID) ([]domain.UserPresence, error)
}

type presenceRepository struct {
	db *gorm.DB
}

func NewPresenceRepository(db *gorm.DB) PresenceRepository {
	return &presenceRepository{db: db}
}

func (r *presenceRepository) SetStatus(userID, workspaceID uuid.UUID, status domain.UserStatus) error {
	presence := &domain.UserPresence{
		UserID:      userID,
		WorkspaceID: workspaceID,
		Status:      status,
		LastSeen:    time.Now().UTC(),
	}

	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"status", "last_seen", "workspace_id"}),
	}).Create(presence).Error
}

func (r *presenceRepository) SetOffline(userID uuid.UUID) error {
	return r.db.Model(&domain.UserPresence{}).
		Where("user_id = ?", userID).
		Updates(map[string]interface{}{
			"status":    domain.StatusOffline,
			"last_seen": time.Now().UTC(),
		}).Error
}

func (r *presenceRepository) GetUserStatus(userID uuid.UUID) (*domain.UserPresence, error) {
	var presence domain.UserPresence
	if err := r.db.First(&presence, "user_id = ?", userID).Error; err != nil {
		return nil, err
	}
	return &presence, nil
}

func (r *presenceRepository) GetOnlineUsers(workspaceID *uuid.UUID) ([]domain.UserPresence, error) {
	var presences []domain.UserPresence
	query := r.db.Where("status = ?", domain.StatusOnline)

	if workspaceID != nil {
		query = query.Where("workspace_id = ?", workspaceID)
	}

	err := query.Find(&presences).Error
	return presences, err
}
