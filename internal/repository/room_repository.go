package repository

import (
	"errors"
	"time"

	"nimbo/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrCapacityReached is returned by Join when the room is full. The check
// runs inside the same transaction as the insert, so two concurrent joins
// on the last seat cannot both succeed.
var ErrCapacityReached = errors.New("room capacity reached")

type RoomRepository interface {
	Create(room *domain.Room) error
	GetByID(roomID uuid.UUID) (*domain.Room, error)
	ListByWorkspace(workspaceID uuid.UUID) ([]domain.Room, error)
	Update(room *domain.Room) error
	Delete(roomID uuid.UUID) error

	ListParticipants(roomID uuid.UUID) ([]domain.RoomParticipant, error)
	GetParticipant(roomID, userID uuid.UUID) (*domain.RoomParticipant, error)
	CountParticipants(roomID uuid.UUID) (int64, error)
	Join(roomID, userID uuid.UUID) (*domain.RoomParticipant, []domain.RoomParticipant, error)
	Leave(roomID, userID uuid.UUID) (int64, error)
	UpdateMedia(roomID, userID uuid.UUID, updates map[string]interface{}) error
}

type roomRepository struct {
	db *gorm.DB
}

func NewRoomRepository(db *gorm.DB) RoomRepository {
	return &roomRepository{db: db}
}

func (r *roomRepository) Create(room *domain.Room) error {
	return r.db.Create(room).Error
}

func (r *roomRepository) GetByID(roomID uuid.UUID) (*domain.Room, error) {
	var room domain.Room
	if err := r.db.First(&room, "id = ?", roomID).Error; err != nil {
		return nil, err
	}
	return &room, nil
}

func (r *roomRepository) ListByWorkspace(workspaceID uuid.UUID) ([]domain.Room, error) {
	var rooms []domain.Room
	err := r.db.Where("workspace_id = ?", workspaceID).
		Order("created_at DESC").
		Find(&rooms).Error
	return rooms, err
}

func (r *roomRepository) Update(room *domain.Room) error {
	return r.db.Save(room).Error
}

func (r *roomRepository) Delete(roomID uuid.UUID) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("room_id = ?", roomID).Delete(&domain.RoomParticipant{}).Error; err != nil {
			return err
		}
		if err := tx.Where("room_id = ?", roomID).Delete(&domain.ChatMessage{}).Error; err != nil {
			return err
		}
		return tx.Delete(&domain.Room{}, "id = ?", roomID).Error
	})
}

func (r *roomRepository) ListParticipants(roomID uuid.UUID) ([]domain.RoomParticipant, error) {
	var participants []domain.RoomParticipant
	err := r.db.Where("room_id = ?", roomID).
		Preload("User").
		Order("joined_at ASC").
		Find(&participants).Error
	return participants, err
}

func (r *roomRepository) GetParticipant(roomID, userID uuid.UUID) (*domain.RoomParticipant, error) {
	var participant domain.RoomParticipant
	err := r.db.Where("room_id = ? AND user_id = ?", roomID, userID).
		First(&participant).Error
	if err != nil {
		return nil, err
	}
	return &participant, nil
}

func (r *roomRepository) CountParticipants(roomID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.Model(&domain.RoomParticipant{}).
		Where("room_id = ?", roomID).
		Count(&count).Error
	return count, err
}

// Join moves the user into the room. In one transaction it evicts the
// user's participation rows from every room of the target's workspace,
// checks capacity, and inserts the fresh row with both media flags enabled.
// Rejoining the current room returns the existing row unchanged. Evicted
// rows are returned so the caller can broadcast the implied leaves.
func (r *roomRepository) Join(roomID, userID uuid.UUID) (*domain.RoomParticipant, []domain.RoomParticipant, error) {
	var participant *domain.RoomParticipant
	var evicted []domain.RoomParticipant

	err := r.db.Transaction(func(tx *gorm.DB) error {
		// Lock the room row so concurrent joins on the last seat serialize.
		var room domain.Room
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&room, "id = ?", roomID).Error; err != nil {
			return err
		}

		var existing domain.RoomParticipant
		err := tx.Where("room_id = ? AND user_id = ?", roomID, userID).
			First(&existing).Error
		if err == nil {
			participant = &existing
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		workspaceRoomIDs := tx.Model(&domain.Room{}).
			Select("id").
			Where("workspace_id = ?", room.WorkspaceID)

		if err := tx.Where("user_id = ? AND room_id IN (?)", userID, workspaceRoomIDs).
			Find(&evicted).Error; err != nil {
			return err
		}
		if len(evicted) > 0 {
			if err := tx.Where("user_id = ? AND room_id IN (?)", userID, workspaceRoomIDs).
				Delete(&domain.RoomParticipant{}).Error; err != nil {
				return err
			}
		}

		if room.Capacity != nil {
			var count int64
			if err := tx.Model(&domain.RoomParticipant{}).
				Where("room_id = ?", roomID).
				Count(&count).Error; err != nil {
				return err
			}
			if count >= int64(*room.Capacity) {
				return ErrCapacityReached
			}
		}

		p := &domain.RoomParticipant{
			RoomID:       roomID,
			UserID:       userID,
			VideoEnabled: true,
			AudioEnabled: true,
			JoinedAt:     time.Now().UTC(),
		}
		if err := tx.Create(p).Error; err != nil {
			return err
		}
		participant = p
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return participant, evicted, nil
}

// Leave removes the user's participation row, returning the number of rows
// deleted so callers can tell a no-op apart.
func (r *roomRepository) Leave(roomID, userID uuid.UUID) (int64, error) {
	result := r.db.Where("room_id = ? AND user_id = ?", roomID, userID).
		Delete(&domain.RoomParticipant{})
	return result.RowsAffected, result.Error
}

func (r *roomRepository) UpdateMedia(roomID, userID uuid.UUID, updates map[string]interface{}) error {
	return r.db.Model(&domain.RoomParticipant{}).
		Where("room_id = ? AND user_id = ?", roomID, userID).
		Updates(updates).Error
}
