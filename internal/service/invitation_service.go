package service

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"nimbo/internal/domain"
	"nimbo/internal/repository"
)

// InvitationService governs workspace invitations: issuing, verifying by
// token, and the accept/reject decision. Invitations expire seven days
// after issuing and are single-use.
type InvitationService interface {
	CreateInvitation(actorID, workspaceID uuid.UUID, req domain.CreateInvitationRequest) (*domain.WorkspaceInvitation, error)
	ListPending(actorID, workspaceID uuid.UUID) ([]domain.WorkspaceInvitation, error)
	RevokeInvitation(actorID, invitationID uuid.UUID) error
	VerifyInvitation(token string) (*domain.InvitationVerifyResponse, error)
	RespondInvitation(userID uuid.UUID, req domain.RespondInvitationRequest) (*domain.WorkspaceInvitation, error)
}

type invitationService struct {
	invitationRepo repository.InvitationRepository
	workspaceRepo  repository.WorkspaceRepository
	userRepo       repository.UserRepository
	workspace      WorkspaceService
	logger         *zap.Logger
}

func NewInvitationService(invitationRepo repository.InvitationRepository, workspaceRepo repository.WorkspaceRepository, userRepo repository.UserRepository, workspace WorkspaceService, logger *zap.Logger) InvitationService {
	return &invitationService{
		invitationRepo: invitationRepo,
		workspaceRepo:  workspaceRepo,
		userRepo:       userRepo,
		workspace:      workspace,
		logger:         logger,
	}
}

func (s *invitationService) CreateInvitation(actorID, workspaceID uuid.UUID, req domain.CreateInvitationRequest) (*domain.WorkspaceInvitation, error) {
	role, err := s.workspace.EffectiveRole(actorID, workspaceID)
	if err != nil {
		return nil, err
	}
	if role != domain.RoleOwner && role != domain.RoleAdmin {
		return nil, ErrForbidden
	}

	email, verr := validateEmail("email", req.Email)
	if verr != nil {
		return nil, verr
	}
	inviteRole := req.Role
	if inviteRole == "" {
		inviteRole = domain.RoleMember
	}
	if inviteRole != domain.RoleAdmin && inviteRole != domain.RoleMember {
		return nil, newValidationError("role", "must be admin or member")
	}

	// An existing member or an open invite for the same address is a
	// duplicate, not a second invitation.
	if user, err := s.userRepo.GetByEmail(email); err == nil {
		if _, roleErr := s.workspace.EffectiveRole(user.ID, workspaceID); roleErr == nil {
			return nil, ErrDuplicate
		}
	}
	if _, err := s.invitationRepo.GetPendingByEmail(workspaceID, email); err == nil {
		return nil, ErrDuplicate
	}

	invitation := &domain.WorkspaceInvitation{
		WorkspaceID:  workspaceID,
		InvitedEmail: email,
		InvitedBy:    actorID,
		Role:         inviteRole,
		Token:        uuid.NewString(),
		Status:       domain.InvitationPending,
		ExpiresAt:    time.Now().UTC().Add(domain.InvitationTTL),
	}
	if err := s.invitationRepo.Create(invitation); err != nil {
		s.logger.Error("failed to create invitation",
			zap.String("workspace_id", workspaceID.String()), zap.Error(err))
		return nil, err
	}
	s.logger.Info("invitation created",
		zap.String("workspace_id", workspaceID.String()),
		zap.String("invited_email", email))
	return invitation, nil
}

func (s *invitationService) ListPending(actorID, workspaceID uuid.UUID) ([]domain.WorkspaceInvitation, error) {
	role, err := s.workspace.EffectiveRole(actorID, workspaceID)
	if err != nil {
		return nil, err
	}
	if role != domain.RoleOwner && role != domain.RoleAdmin {
		return nil, ErrForbidden
	}
	return s.invitationRepo.ListPending(workspaceID)
}

func (s *invitationService) RevokeInvitation(actorID, invitationID uuid.UUID) error {
	invitation, err := s.invitationRepo.GetByID(invitationID)
	if err != nil {
		return translateDB(err)
	}
	role, err := s.workspace.EffectiveRole(actorID, invitation.WorkspaceID)
	if err != nil {
		return err
	}
	if role != domain.RoleOwner && role != domain.RoleAdmin {
		return ErrForbidden
	}
	if invitation.Status != domain.InvitationPending {
		return ErrInviteProcessed
	}
	return s.invitationRepo.Delete(invitationID)
}

// VerifyInvitation resolves a token for the accept page. Expired and
// already-processed invitations are reported as errors, not rendered.
func (s *invitationService) VerifyInvitation(token string) (*domain.InvitationVerifyResponse, error) {
	invitation, err := s.invitationRepo.GetByToken(token)
	if err != nil {
		return nil, translateDB(err)
	}
	if invitation.Status != domain.InvitationPending {
		return nil, ErrInviteProcessed
	}
	if invitation.Expired() {
		return nil, ErrInviteExpired
	}
	return &domain.InvitationVerifyResponse{
		ID:           invitation.ID,
		WorkspaceID:  invitation.WorkspaceID,
		InvitedEmail: invitation.InvitedEmail,
		Role:         invitation.Role,
		Status:       invitation.Status,
		ExpiresAt:    invitation.ExpiresAt,
		Workspace:    invitation.Workspace,
	}, nil
}

// RespondInvitation accepts or rejects a pending invitation. Only the
// invited address may respond, and accepting adds the membership row with
// the invited role.
func (s *invitationService) RespondInvitation(userID uuid.UUID, req domain.RespondInvitationRequest) (*domain.WorkspaceInvitation, error) {
	if req.Action != "accept" && req.Action != "reject" {
		return nil, newValidationError("action", "must be accept or reject")
	}

	invitation, err := s.invitationRepo.GetByToken(req.Token)
	if err != nil {
		return nil, translateDB(err)
	}
	if invitation.Status != domain.InvitationPending {
		return nil, ErrInviteProcessed
	}
	if invitation.Expired() {
		return nil, ErrInviteExpired
	}

	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return nil, translateDB(err)
	}
	if !strings.EqualFold(user.Email, invitation.InvitedEmail) {
		return nil, ErrForbidden
	}

	if req.Action == "reject" {
		if err := s.invitationRepo.UpdateStatus(invitation.ID, domain.InvitationRejected); err != nil {
			return nil, err
		}
		invitation.Status = domain.InvitationRejected
		return invitation, nil
	}

	if _, err := s.workspace.EffectiveRole(userID, invitation.WorkspaceID); err == nil {
		// Already in the workspace: consume the invitation without a
		// second membership row.
		if err := s.invitationRepo.UpdateStatus(invitation.ID, domain.InvitationAccepted); err != nil {
			return nil, err
		}
		invitation.Status = domain.InvitationAccepted
		return invitation, nil
	}

	member := &domain.WorkspaceMember{
		WorkspaceID: invitation.WorkspaceID,
		UserID:      userID,
		Role:        invitation.Role,
	}
	if err := s.workspaceRepo.AddMember(member); err != nil {
		s.logger.Error("failed to add member from invitation",
			zap.String("invitation_id", invitation.ID.String()), zap.Error(err))
		return nil, err
	}
	if err := s.invitationRepo.UpdateStatus(invitation.ID, domain.InvitationAccepted); err != nil {
		return nil, err
	}
	invitation.Status = domain.InvitationAccepted
	s.logger.Info("invitation accepted",
		zap.String("workspace_id", invitation.WorkspaceID.String()),
		zap.String("user_id", userID.String()))
	return invitation, nil
}
