package repository

import (
	"nimbo/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type InvitationRepository interface {
	Create(invitation *domain.WorkspaceInvitation) error
	GetByID(invitationID uuid.UUID) (*domain.WorkspaceInvitation, error)
	GetByToken(token string) (*domain.WorkspaceInvitation, error)
	GetPendingByEmail(workspaceID uuid.UUID, email string) (*domain.WorkspaceInvitation, error)
	ListPending(workspaceID uuid.UUID) ([]domain.WorkspaceInvitation, error)
	UpdateStatus(invitationID uuid.UUID, status domain.InvitationStatus) error
	Delete(invitationID uuid.UUID) error
}

type invitationRepository struct {
	db *gorm.DB
}

func NewInvitationRepository(db *gorm.DB) InvitationRepository {
	return &invitationRepository{db: db}
}

func (r *invitationRepository) Create(invitation *domain.WorkspaceInvitation) error {
	return r.db.Create(invitation).Error
}

func (r *invitationRepository) GetByID(invitationID uuid.UUID) (*domain.WorkspaceInvitation, error) {
	var invitation domain.WorkspaceInvitation
	if err := r.db.First(&invitation, "id = ?", invitationID).Error; err != nil {
		return nil, err
	}
	return &invitation, nil
}

func (r *invitationRepository) GetByToken(token string) (*domain.WorkspaceInvitation, error) {
	var invitation domain.WorkspaceInvitation
	err := r.db.Preload("Workspace").
		First(&invitation, "token = ?", token).Error
	if err != nil {
		return nil, err
	}
	return &invitation, nil
}

func (r *invitationRepository) GetPendingByEmail(workspaceID uuid.UUID, email string) (*domain.WorkspaceInvitation, error) {
	var invitation domain.WorkspaceInvitation
	err := r.db.Where("workspace_id = ? AND invited_email = ? AND status = ?",
		workspaceID, email, domain.InvitationPending).
		First(&invitation).Error
	if err != nil {
		return nil, err
	}
	return &invitation, nil
}

func (r *invitationRepository) ListPending(workspaceID uuid.UUID) ([]domain.WorkspaceInvitation, error) {
	var invitations []domain.WorkspaceInvitation
	err := r.db.Where("workspace_id = ? AND status = ?", workspaceID, domain.InvitationPending).
		Preload("Inviter").
		Order("created_at DESC").
		Find(&invitations).Error
	return invitations, err
}

func (r *invitationRepository) UpdateStatus(invitationID uuid.UUID, status domain.InvitationStatus) error {
	return r.db.Model(&domain.WorkspaceInvitation{}).
		Where("id = ?", invitationID).
		Update("status", status).Error
}

func (r *invitationRepository) Delete(invitationID uuid.UUID) error {
	return r.db.Delete(&domain.WorkspaceInvitation{}, "id = ?", invitationID).Error
}
