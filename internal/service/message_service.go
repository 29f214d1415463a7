package service

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"nimbo/internal/domain"
	"nimbo/internal/realtime"
	"nimbo/internal/repository"
)

const (
	defaultMessageLimit = 50
	maxMessageLimit     = 100
)

// MessageService governs room chat. Messages are immutable once sent;
// only sending and deleting mutate the table.
type MessageService interface {
	SendMessage(ctx context.Context, userID, roomID uuid.UUID, req domain.SendMessageRequest) (*domain.ChatMessage, error)
	ListMessages(ctx context.Context, userID, roomID uuid.UUID, limit int, before *time.Time) ([]domain.MessageResponse, error)
	DeleteMessage(ctx context.Context, userID, messageID uuid.UUID) error
}

type messageService struct {
	messageRepo repository.MessageRepository
	roomRepo    repository.RoomRepository
	workspace   WorkspaceService
	publisher   EventPublisher
	logger      *zap.Logger
}

func NewMessageService(messageRepo repository.MessageRepository, roomRepo repository.RoomRepository, workspace WorkspaceService, publisher EventPublisher, logger *zap.Logger) MessageService {
	return &messageService{
		messageRepo: messageRepo,
		roomRepo:    roomRepo,
		workspace:   workspace,
		publisher:   publisher,
		logger:      logger,
	}
}

// SendMessage posts to the room the user currently occupies. Content is
// 1..2000 characters after trimming.
func (s *messageService) SendMessage(ctx context.Context, userID, roomID uuid.UUID, req domain.SendMessageRequest) (*domain.ChatMessage, error) {
	content := strings.TrimSpace(req.Content)
	if content == "" {
		return nil, newValidationError("content", "must not be empty")
	}
	if utf8.RuneCountInString(content) > domain.MaxMessageLength {
		return nil, newValidationError("content", "must be at most 2000 characters")
	}

	room, err := s.roomRepo.GetByID(roomID)
	if err != nil {
		return nil, translateDB(err)
	}
	if _, err := s.roomRepo.GetParticipant(roomID, userID); err != nil {
		if translateDB(err) == ErrNotFound {
			return nil, ErrNotParticipant
		}
		return nil, err
	}

	message := &domain.ChatMessage{
		RoomID:  roomID,
		UserID:  userID,
		Content: content,
	}
	if err := s.messageRepo.Create(message); err != nil {
		s.logger.Error("failed to create message", zap.String("room_id", roomID.String()), zap.Error(err))
		return nil, err
	}

	s.publisher.PublishChange(ctx,
		[]string{"room:" + room.ID.String()},
		realtime.ChangeInsert, "chat_messages", message, nil)
	return message, nil
}

func (s *messageService) ListMessages(ctx context.Context, userID, roomID uuid.UUID, limit int, before *time.Time) ([]domain.MessageResponse, error) {
	if limit <= 0 {
		limit = defaultMessageLimit
	}
	if limit > maxMessageLimit {
		return nil, newValidationError("limit", "must be at most 100")
	}

	room, err := s.roomRepo.GetByID(roomID)
	if err != nil {
		return nil, translateDB(err)
	}
	if _, err := s.workspace.EffectiveRole(userID, room.WorkspaceID); err != nil {
		return nil, err
	}

	messages, err := s.messageRepo.ListByRoom(roomID, limit, before)
	if err != nil {
		return nil, err
	}
	out := make([]domain.MessageResponse, 0, len(messages))
	for i := range messages {
		out = append(out, messages[i].ToResponse())
	}
	return out, nil
}

// DeleteMessage removes a message. Allowed for the author and for
// workspace owners and admins.
func (s *messageService) DeleteMessage(ctx context.Context, userID, messageID uuid.UUID) error {
	message, err := s.messageRepo.GetByID(messageID)
	if err != nil {
		return translateDB(err)
	}
	room, err := s.roomRepo.GetByID(message.RoomID)
	if err != nil {
		return translateDB(err)
	}

	if message.UserID != userID {
		role, err := s.workspace.EffectiveRole(userID, room.WorkspaceID)
		if err != nil {
			return err
		}
		if role != domain.RoleOwner && role != domain.RoleAdmin {
			return ErrForbidden
		}
	}

	if err := s.messageRepo.Delete(messageID); err != nil {
		return err
	}
	s.publisher.PublishChange(ctx,
		[]string{"room:" + room.ID.String()},
		realtime.ChangeDelete, "chat_messages", nil, message)
	return nil
}
