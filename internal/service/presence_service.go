package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"nimbo/internal/domain"
	"nimbo/internal/realtime"
	"nimbo/internal/repository"
)

// PresenceService maintains the server-side presence cache and mirrors
// every transition onto the workspace channel. The live channel protocol
// remains the primary signal; this cache answers REST reads and survives
// client restarts.
type PresenceService interface {
	SetStatus(ctx context.Context, userID, workspaceID uuid.UUID, status domain.UserStatus) error
	SetOffline(ctx context.Context, userID uuid.UUID) error
	GetUserStatus(userID uuid.UUID) (*domain.UserPresence, error)
	GetOnlineUsers(workspaceID *uuid.UUID) ([]domain.UserPresence, error)
}

type presenceService struct {
	presenceRepo repository.PresenceRepository
	publisher    EventPublisher
	logger       *zap.Logger
}

func NewPresenceService(presenceRepo repository.PresenceRepository, publisher EventPublisher, logger *zap.Logger) PresenceService {
	return &presenceService{
		presenceRepo: presenceRepo,
		publisher:    publisher,
		logger:       logger,
	}
}

func (s *presenceService) SetStatus(ctx context.Context, userID, workspaceID uuid.UUID, status domain.UserStatus) error {
	if !domain.ValidStatus(status) {
		return newValidationError("status", "must be one of online, busy, away, offline")
	}
	if err := s.presenceRepo.SetStatus(userID, workspaceID, status); err != nil {
		s.logger.Error("failed to persist presence",
			zap.String("user_id", userID.String()), zap.Error(err))
		return err
	}

	kind := realtime.PresenceJoin
	if status == domain.StatusOffline {
		kind = realtime.PresenceLeave
	}
	s.publisher.PublishPresence(ctx,
		[]string{"workspace:" + workspaceID.String()},
		kind,
		[]realtime.Presence{{ID: userID.String(), Status: string(status), LastSeen: time.Now().UTC()}})
	return nil
}

func (s *presenceService) SetOffline(ctx context.Context, userID uuid.UUID) error {
	presence, err := s.presenceRepo.GetUserStatus(userID)
	if err != nil {
		// Never seen online; nothing to mark.
		if translateDB(err) == ErrNotFound {
			return nil
		}
		return err
	}
	if err := s.presenceRepo.SetOffline(userID); err != nil {
		return err
	}
	s.publisher.PublishPresence(ctx,
		[]string{"workspace:" + presence.WorkspaceID.String()},
		realtime.PresenceLeave,
		[]realtime.Presence{{ID: userID.String(), Status: string(domain.StatusOffline), LastSeen: time.Now().UTC()}})
	return nil
}

func (s *presenceService) GetUserStatus(userID uuid.UUID) (*domain.UserPresence, error) {
	presence, err := s.presenceRepo.GetUserStatus(userID)
	if err != nil {
		return nil, translateDB(err)
	}
	return presence, nil
}

func (s *presenceService) GetOnlineUsers(workspaceID *uuid.UUID) ([]domain.UserPresence, error) {
	return s.presenceRepo.GetOnlineUsers(workspaceID)
}
