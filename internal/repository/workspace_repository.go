package repository

import (
	"nimbo/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type WorkspaceRepository interface {
	Create(workspace *domain.Workspace) error
	GetByID(workspaceID uuid.UUID) (*domain.Workspace, error)
	ListForUser(userID uuid.UUID) ([]domain.Workspace, error)
	Update(workspace *domain.Workspace) error
	Delete(workspaceID uuid.UUID) error

	AddMember(member *domain.WorkspaceMember) error
	GetMember(workspaceID, userID uuid.UUID) (*domain.WorkspaceMember, error)
	ListMembers(workspaceID uuid.UUID) ([]domain.WorkspaceMember, error)
	UpdateMemberRole(workspaceID, userID uuid.UUID, role domain.MemberRole) error
	RemoveMember(workspaceID, userID uuid.UUID) error
}

type workspaceRepository struct {
	db *gorm.DB
}

func NewWorkspaceRepository(db *gorm.DB) WorkspaceRepository {
	return &workspaceRepository{db: db}
}

func (r *workspaceRepository) Create(workspace *domain.Workspace) error {
	return r.db.Create(workspace).Error
}

func (r *workspaceRepository) GetByID(workspaceID uuid.UUID) (*domain.Workspace, error) {
	var workspace domain.Workspace
	if err := r.db.First(&workspace, "id = ?", workspaceID).Error; err != nil {
		return nil, err
	}
	return &workspace, nil
}

// ListForUser returns workspaces the user owns plus those they are a member
// of, deduplicated.
func (r *workspaceRepository) ListForUser(userID uuid.UUID) ([]domain.Workspace, error) {
	var workspaces []domain.Workspace
	err := r.db.
		Distinct("workspaces.*").
		Joins("LEFT JOIN workspace_members ON workspace_members.workspace_id = workspaces.id").
		Where("workspaces.owner_id = ? OR workspace_members.user_id = ?", userID, userID).
		Order("workspaces.created_at DESC").
		Find(&workspaces).Error
	return workspaces, err
}

func (r *workspaceRepository) Update(workspace *domain.Workspace) error {
	return r.db.Save(workspace).Error
}

// Delete removes the workspace and everything hanging off it.
func (r *workspaceRepository) Delete(workspaceID uuid.UUID) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		roomIDs := tx.Model(&domain.Room{}).Select("id").Where("workspace_id = ?", workspaceID)

		if err := tx.Where("room_id IN (?)", roomIDs).Delete(&domain.RoomParticipant{}).Error; err != nil {
			return err
		}
		if err := tx.Where("room_id IN (?)", roomIDs).Delete(&domain.ChatMessage{}).Error; err != nil {
			return err
		}
		if err := tx.Where("workspace_id = ?", workspaceID).Delete(&domain.Room{}).Error; err != nil {
			return err
		}
		if err := tx.Where("workspace_id = ?", workspaceID).Delete(&domain.WorkspaceInvitation{}).Error; err != nil {
			return err
		}
		if err := tx.Where("workspace_id = ?", workspaceID).Delete(&domain.WorkspaceMember{}).Error; err != nil {
			return err
		}
		return tx.Delete(&domain.Workspace{}, "id = ?", workspaceID).Error
	})
}

func (r *workspaceRepository) AddMember(member *domain.WorkspaceMember) error {
	return r.db.Create(member).Error
}

func (r *workspaceRepository) GetMember(workspaceID, userID uuid.UUID) (*domain.WorkspaceMember, error) {
	var member domain.WorkspaceMember
	err := r.db.Where("workspace_id = ? AND user_id = ?", workspaceID, userID).
		First(&member).Error
	if err != nil {
		return nil, err
	}
	return &member, nil
}

func (r *workspaceRepository) ListMembers(workspaceID uuid.UUID) ([]domain.WorkspaceMember, error) {
	var members []domain.WorkspaceMember
	err := r.db.Where("workspace_id = ?", workspaceID).
		Preload("User").
		Order("created_at ASC").
		Find(&members).Error
	return members, err
}

func (r *workspaceRepository) UpdateMemberRole(workspaceID, userID uuid.UUID, role domain.MemberRole) error {
	return r.db.Model(&domain.WorkspaceMember{}).
		Where("workspace_id = ? AND user_id = ?", workspaceID, userID).
		Update("role", role).Error
}

func (r *workspaceRepository) RemoveMember(workspaceID, userID uuid.UUID) error {
	return r.db.Where("workspace_id = ? AND user_id = ?", workspaceID, userID).
		Delete(&domain.WorkspaceMember{}).Error
}
