package service

import (
	"github.com/google/uuid"
	"go.uber.org/zap"

	"nimbo/internal/domain"
	"nimbo/internal/repository"
)

// WorkspaceService governs workspaces and their membership. Authorization
// goes through EffectiveRole everywhere so the owner-as-virtual-member rule
// lives in exactly one place.
type WorkspaceService interface {
	CreateWorkspace(userID uuid.UUID, req domain.CreateWorkspaceRequest) (*domain.Workspace, error)
	GetWorkspace(userID, workspaceID uuid.UUID) (*domain.Workspace, error)
	ListWorkspaces(userID uuid.UUID) ([]domain.Workspace, error)
	UpdateWorkspace(userID, workspaceID uuid.UUID, req domain.UpdateWorkspaceRequest) (*domain.Workspace, error)
	DeleteWorkspace(userID, workspaceID uuid.UUID) error

	EffectiveRole(userID, workspaceID uuid.UUID) (domain.MemberRole, error)
	ListMembers(userID, workspaceID uuid.UUID) ([]domain.WorkspaceMemberResponse, error)
	UpdateMemberRole(actorID, workspaceID, targetID uuid.UUID, role domain.MemberRole) error
	RemoveMember(actorID, workspaceID, targetID uuid.UUID) error
}

type workspaceService struct {
	workspaceRepo repository.WorkspaceRepository
	userRepo      repository.UserRepository
	logger        *zap.Logger
}

func NewWorkspaceService(workspaceRepo repository.WorkspaceRepository, userRepo repository.UserRepository, logger *zap.Logger) WorkspaceService {
	return &workspaceService{
		workspaceRepo: workspaceRepo,
		userRepo:      userRepo,
		logger:        logger,
	}
}

func (s *workspaceService) CreateWorkspace(userID uuid.UUID, req domain.CreateWorkspaceRequest) (*domain.Workspace, error) {
	name, verr := validateName("name", req.Name)
	if verr != nil {
		return nil, verr
	}
	if verr := validateDescription("description", req.Description); verr != nil {
		return nil, verr
	}
	if verr := validateHTTPURL("logo_url", req.LogoURL); verr != nil {
		return nil, verr
	}

	workspace := &domain.Workspace{
		Name:        name,
		Description: req.Description,
		LogoURL:     req.LogoURL,
		OwnerID:     userID,
	}
	if err := s.workspaceRepo.Create(workspace); err != nil {
		s.logger.Error("failed to create workspace", zap.Error(err))
		return nil, err
	}
	s.logger.Info("workspace created",
		zap.String("workspace_id", workspace.ID.String()),
		zap.String("owner_id", userID.String()))
	return workspace, nil
}

func (s *workspaceService) GetWorkspace(userID, workspaceID uuid.UUID) (*domain.Workspace, error) {
	if _, err := s.EffectiveRole(userID, workspaceID); err != nil {
		return nil, err
	}
	workspace, err := s.workspaceRepo.GetByID(workspaceID)
	if err != nil {
		return nil, translateDB(err)
	}
	return workspace, nil
}

func (s *workspaceService) ListWorkspaces(userID uuid.UUID) ([]domain.Workspace, error) {
	return s.workspaceRepo.ListForUser(userID)
}

func (s *workspaceService) UpdateWorkspace(userID, workspaceID uuid.UUID, req domain.UpdateWorkspaceRequest) (*domain.Workspace, error) {
	role, err := s.EffectiveRole(userID, workspaceID)
	if err != nil {
		return nil, err
	}
	if role != domain.RoleOwner && role != domain.RoleAdmin {
		return nil, ErrForbidden
	}

	workspace, err := s.workspaceRepo.GetByID(workspaceID)
	if err != nil {
		return nil, translateDB(err)
	}

	if req.Name != nil {
		name, verr := validateName("name", *req.Name)
		if verr != nil {
			return nil, verr
		}
		workspace.Name = name
	}
	if req.Description != nil {
		if verr := validateDescription("description", req.Description); verr != nil {
			return nil, verr
		}
		workspace.Description = req.Description
	}
	if req.LogoURL != nil {
		if verr := validateHTTPURL("logo_url", req.LogoURL); verr != nil {
			return nil, verr
		}
		workspace.LogoURL = req.LogoURL
	}

	if err := s.workspaceRepo.Update(workspace); err != nil {
		s.logger.Error("failed to update workspace",
			zap.String("workspace_id", workspaceID.String()), zap.Error(err))
		return nil, err
	}
	return workspace, nil
}

func (s *workspaceService) DeleteWorkspace(userID, workspaceID uuid.UUID) error {
	role, err := s.EffectiveRole(userID, workspaceID)
	if err != nil {
		return err
	}
	if role != domain.RoleOwner {
		return ErrForbidden
	}
	if err := s.workspaceRepo.Delete(workspaceID); err != nil {
		s.logger.Error("failed to delete workspace",
			zap.String("workspace_id", workspaceID.String()), zap.Error(err))
		return err
	}
	s.logger.Info("workspace deleted", zap.String("workspace_id", workspaceID.String()))
	return nil
}

// EffectiveRole resolves a user's role in a workspace. The owner carries
// RoleOwner without a membership row; everyone else needs one. Non-members
// get ErrNotMember, a missing workspace gets ErrNotFound.
func (s *workspaceService) EffectiveRole(userID, workspaceID uuid.UUID) (domain.MemberRole, error) {
	workspace, err := s.workspaceRepo.GetByID(workspaceID)
	if err != nil {
		return "", translateDB(err)
	}
	if workspace.OwnerID == userID {
		return domain.RoleOwner, nil
	}
	member, err := s.workspaceRepo.GetMember(workspaceID, userID)
	if err != nil {
		if translateDB(err) == ErrNotFound {
			return "", ErrNotMember
		}
		return "", err
	}
	return member.Role, nil
}

// ListMembers returns the membership with the owner materialized as a
// virtual first entry.
func (s *workspaceService) ListMembers(userID, workspaceID uuid.UUID) ([]domain.WorkspaceMemberResponse, error) {
	if _, err := s.EffectiveRole(userID, workspaceID); err != nil {
		return nil, err
	}
	workspace, err := s.workspaceRepo.GetByID(workspaceID)
	if err != nil {
		return nil, translateDB(err)
	}
	members, err := s.workspaceRepo.ListMembers(workspaceID)
	if err != nil {
		return nil, err
	}

	out := make([]domain.WorkspaceMemberResponse, 0, len(members)+1)
	ownerEntry := domain.WorkspaceMemberResponse{
		ID:          workspace.OwnerID, // synthetic: the owner has no membership row
		WorkspaceID: workspaceID,
		UserID:      workspace.OwnerID,
		Role:        domain.RoleOwner,
		CreatedAt:   workspace.CreatedAt,
	}
	if owner, err := s.userRepo.GetByID(workspace.OwnerID); err == nil {
		ref := owner.ToRef()
		ownerEntry.User = &ref
	}
	out = append(out, ownerEntry)
	for i := range members {
		out = append(out, members[i].ToResponse())
	}
	return out, nil
}

func (s *workspaceService) UpdateMemberRole(actorID, workspaceID, targetID uuid.UUID, role domain.MemberRole) error {
	if role != domain.RoleAdmin && role != domain.RoleMember {
		return newValidationError("role", "must be admin or member")
	}

	actorRole, err := s.EffectiveRole(actorID, workspaceID)
	if err != nil {
		return err
	}
	if actorRole != domain.RoleOwner && actorRole != domain.RoleAdmin {
		return ErrForbidden
	}

	targetRole, err := s.EffectiveRole(targetID, workspaceID)
	if err != nil {
		return err
	}
	if targetRole == domain.RoleOwner {
		return ErrOwnerImmutable
	}
	// Only the owner reshuffles other admins.
	if targetRole == domain.RoleAdmin && actorRole != domain.RoleOwner {
		return ErrForbidden
	}

	if err := s.workspaceRepo.UpdateMemberRole(workspaceID, targetID, role); err != nil {
		return translateDB(err)
	}
	s.logger.Info("member role updated",
		zap.String("workspace_id", workspaceID.String()),
		zap.String("user_id", targetID.String()),
		zap.String("role", string(role)))
	return nil
}

func (s *workspaceService) RemoveMember(actorID, workspaceID, targetID uuid.UUID) error {
	targetRole, err := s.EffectiveRole(targetID, workspaceID)
	if err != nil {
		return err
	}
	if targetRole == domain.RoleOwner {
		return ErrOwnerImmutable
	}

	// Any member may leave; removing someone else takes owner or admin,
	// and removing an admin takes the owner.
	if actorID != targetID {
		actorRole, err := s.EffectiveRole(actorID, workspaceID)
		if err != nil {
			return err
		}
		if actorRole != domain.RoleOwner && actorRole != domain.RoleAdmin {
			return ErrForbidden
		}
		if targetRole == domain.RoleAdmin && actorRole != domain.RoleOwner {
			return ErrForbidden
		}
	}

	if err := s.workspaceRepo.RemoveMember(workspaceID, targetID); err != nil {
		return translateDB(err)
	}
	s.logger.Info("member removed",
		zap.String("workspace_id", workspaceID.String()),
		zap.String("user_id", targetID.String()))
	return nil
}
