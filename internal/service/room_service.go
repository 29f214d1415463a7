package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"nimbo/internal/domain"
	"nimbo/internal/realtime"
	"nimbo/internal/repository"
)

// RoomService governs rooms and seat occupancy. Every successful mutation
// is broadcast as a row-level change so connected clients converge without
// polling.
type RoomService interface {
	CreateRoom(ctx context.Context, userID, workspaceID uuid.UUID, req domain.CreateRoomRequest) (*domain.Room, error)
	GetRoom(ctx context.Context, userID, roomID uuid.UUID) (*domain.RoomResponse, error)
	ListRooms(ctx context.Context, userID, workspaceID uuid.UUID) ([]domain.RoomResponse, error)
	UpdateRoom(ctx context.Context, userID, roomID uuid.UUID, req domain.UpdateRoomRequest) (*domain.Room, error)
	DeleteRoom(ctx context.Context, userID, roomID uuid.UUID) error

	JoinRoom(ctx context.Context, userID, roomID uuid.UUID) (*domain.RoomParticipant, error)
	LeaveRoom(ctx context.Context, userID, roomID uuid.UUID) (bool, error)
	ListParticipants(ctx context.Context, userID, roomID uuid.UUID) ([]domain.ParticipantResponse, error)
	UpdateMedia(ctx context.Context, userID, roomID uuid.UUID, req domain.UpdateMediaRequest) (*domain.RoomParticipant, error)
}

type roomService struct {
	roomRepo  repository.RoomRepository
	workspace WorkspaceService
	publisher EventPublisher
	logger    *zap.Logger
}

func NewRoomService(roomRepo repository.RoomRepository, workspace WorkspaceService, publisher EventPublisher, logger *zap.Logger) RoomService {
	return &roomService{
		roomRepo:  roomRepo,
		workspace: workspace,
		publisher: publisher,
		logger:    logger,
	}
}

func (s *roomService) CreateRoom(ctx context.Context, userID, workspaceID uuid.UUID, req domain.CreateRoomRequest) (*domain.Room, error) {
	role, err := s.workspace.EffectiveRole(userID, workspaceID)
	if err != nil {
		return nil, err
	}
	if role != domain.RoleOwner && role != domain.RoleAdmin {
		return nil, ErrForbidden
	}

	name, verr := validateName("name", req.Name)
	if verr != nil {
		return nil, verr
	}
	roomType := req.Type
	if roomType == "" {
		roomType = domain.RoomGeneral
	}
	if !domain.ValidRoomType(roomType) {
		return nil, newValidationError("type", "must be one of meeting, lounge, focus, general")
	}
	if req.Capacity != nil && *req.Capacity <= 0 {
		return nil, newValidationError("capacity", "must be greater than zero")
	}
	if verr := validateDescription("description", req.Description); verr != nil {
		return nil, verr
	}

	room := &domain.Room{
		WorkspaceID: workspaceID,
		Name:        name,
		Type:        roomType,
		Capacity:    req.Capacity,
		Description: req.Description,
	}
	if err := s.roomRepo.Create(room); err != nil {
		s.logger.Error("failed to create room", zap.Error(err))
		return nil, err
	}

	s.publisher.PublishChange(ctx,
		[]string{"workspace:" + workspaceID.String()},
		realtime.ChangeInsert, "rooms", room, nil)
	s.logger.Info("room created",
		zap.String("room_id", room.ID.String()),
		zap.String("workspace_id", workspaceID.String()))
	return room, nil
}

func (s *roomService) GetRoom(ctx context.Context, userID, roomID uuid.UUID) (*domain.RoomResponse, error) {
	room, err := s.roomRepo.GetByID(roomID)
	if err != nil {
		return nil, translateDB(err)
	}
	if _, err := s.workspace.EffectiveRole(userID, room.WorkspaceID); err != nil {
		return nil, err
	}
	count, err := s.roomRepo.CountParticipants(roomID)
	if err != nil {
		return nil, err
	}
	resp := room.ToResponse(int(count))
	return &resp, nil
}

func (s *roomService) ListRooms(ctx context.Context, userID, workspaceID uuid.UUID) ([]domain.RoomResponse, error) {
	if _, err := s.workspace.EffectiveRole(userID, workspaceID); err != nil {
		return nil, err
	}
	rooms, err := s.roomRepo.ListByWorkspace(workspaceID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.RoomResponse, 0, len(rooms))
	for i := range rooms {
		count, err := s.roomRepo.CountParticipants(rooms[i].ID)
		if err != nil {
			return nil, err
		}
		out = append(out, rooms[i].ToResponse(int(count)))
	}
	return out, nil
}

func (s *roomService) UpdateRoom(ctx context.Context, userID, roomID uuid.UUID, req domain.UpdateRoomRequest) (*domain.Room, error) {
	room, err := s.roomRepo.GetByID(roomID)
	if err != nil {
		return nil, translateDB(err)
	}
	role, err := s.workspace.EffectiveRole(userID, room.WorkspaceID)
	if err != nil {
		return nil, err
	}
	if role != domain.RoleOwner && role != domain.RoleAdmin {
		return nil, ErrForbidden
	}

	prev := *room
	if req.Name != nil {
		name, verr := validateName("name", *req.Name)
		if verr != nil {
			return nil, verr
		}
		room.Name = name
	}
	if req.Type != nil {
		if !domain.ValidRoomType(*req.Type) {
			return nil, newValidationError("type", "must be one of meeting, lounge, focus, general")
		}
		room.Type = *req.Type
	}
	if req.Capacity != nil {
		if *req.Capacity <= 0 {
			return nil, newValidationError("capacity", "must be greater than zero")
		}
		room.Capacity = req.Capacity
	}
	if req.Description != nil {
		if verr := validateDescription("description", req.Description); verr != nil {
			return nil, verr
		}
		room.Description = req.Description
	}

	if err := s.roomRepo.Update(room); err != nil {
		s.logger.Error("failed to update room", zap.String("room_id", roomID.String()), zap.Error(err))
		return nil, err
	}

	s.publisher.PublishChange(ctx,
		[]string{"workspace:" + room.WorkspaceID.String()},
		realtime.ChangeUpdate, "rooms", room, &prev)
	return room, nil
}

func (s *roomService) DeleteRoom(ctx context.Context, userID, roomID uuid.UUID) error {
	room, err := s.roomRepo.GetByID(roomID)
	if err != nil {
		return translateDB(err)
	}
	role, err := s.workspace.EffectiveRole(userID, room.WorkspaceID)
	if err != nil {
		return err
	}
	if role != domain.RoleOwner && role != domain.RoleAdmin {
		return ErrForbidden
	}

	if err := s.roomRepo.Delete(roomID); err != nil {
		s.logger.Error("failed to delete room", zap.String("room_id", roomID.String()), zap.Error(err))
		return err
	}

	s.publisher.PublishChange(ctx,
		[]string{"workspace:" + room.WorkspaceID.String()},
		realtime.ChangeDelete, "rooms", nil, room)
	s.logger.Info("room deleted", zap.String("room_id", roomID.String()))
	return nil
}

// JoinRoom seats the user in the room. The repository evicts the user's
// other seat in the workspace inside the same transaction, so a user holds
// at most one seat per workspace at any point in time.
func (s *roomService) JoinRoom(ctx context.Context, userID, roomID uuid.UUID) (*domain.RoomParticipant, error) {
	room, err := s.roomRepo.GetByID(roomID)
	if err != nil {
		return nil, translateDB(err)
	}
	if _, err := s.workspace.EffectiveRole(userID, room.WorkspaceID); err != nil {
		return nil, err
	}

	participant, evicted, err := s.roomRepo.Join(roomID, userID)
	if err != nil {
		if errors.Is(err, repository.ErrCapacityReached) {
			return nil, ErrRoomFull
		}
		return nil, translateDB(err)
	}

	workspaceChannel := "workspace:" + room.WorkspaceID.String()
	for i := range evicted {
		s.publisher.PublishChange(ctx,
			[]string{workspaceChannel, "room:" + evicted[i].RoomID.String()},
			realtime.ChangeDelete, "room_participants", nil, &evicted[i])
	}
	s.publisher.PublishChange(ctx,
		[]string{workspaceChannel, "room:" + roomID.String()},
		realtime.ChangeInsert, "room_participants", participant, nil)

	s.logger.Info("user joined room",
		zap.String("room_id", roomID.String()),
		zap.String("user_id", userID.String()),
		zap.Int("evicted", len(evicted)))
	return participant, nil
}

// LeaveRoom vacates the user's seat. Leaving a room you are not in is a
// no-op and reports false.
func (s *roomService) LeaveRoom(ctx context.Context, userID, roomID uuid.UUID) (bool, error) {
	room, err := s.roomRepo.GetByID(roomID)
	if err != nil {
		return false, translateDB(err)
	}

	seat, err := s.roomRepo.GetParticipant(roomID, userID)
	if err != nil {
		if translateDB(err) == ErrNotFound {
			return false, nil
		}
		return false, err
	}

	deleted, err := s.roomRepo.Leave(roomID, userID)
	if err != nil {
		return false, err
	}
	if deleted == 0 {
		return false, nil
	}

	s.publisher.PublishChange(ctx,
		[]string{"workspace:" + room.WorkspaceID.String(), "room:" + roomID.String()},
		realtime.ChangeDelete, "room_participants", nil, seat)
	s.logger.Info("user left room",
		zap.String("room_id", roomID.String()),
		zap.String("user_id", userID.String()))
	return true, nil
}

func (s *roomService) ListParticipants(ctx context.Context, userID, roomID uuid.UUID) ([]domain.ParticipantResponse, error) {
	room, err := s.roomRepo.GetByID(roomID)
	if err != nil {
		return nil, translateDB(err)
	}
	if _, err := s.workspace.EffectiveRole(userID, room.WorkspaceID); err != nil {
		return nil, err
	}
	participants, err := s.roomRepo.ListParticipants(roomID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.ParticipantResponse, 0, len(participants))
	for i := range participants {
		out = append(out, participants[i].ToResponse())
	}
	return out, nil
}

// UpdateMedia patches the caller's own media flags.
func (s *roomService) UpdateMedia(ctx context.Context, userID, roomID uuid.UUID, req domain.UpdateMediaRequest) (*domain.RoomParticipant, error) {
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

	updates := map[string]interface{}{}
	if req.VideoEnabled != nil {
		updates["video_enabled"] = *req.VideoEnabled
	}
	if req.AudioEnabled != nil {
		updates["audio_enabled"] = *req.AudioEnabled
	}
	if len(updates) == 0 {
		return nil, newValidationError("media", "at least one of video_enabled or audio_enabled is required")
	}
	if err := s.roomRepo.UpdateMedia(roomID, userID, updates); err != nil {
		return nil, err
	}

	seat, err := s.roomRepo.GetParticipant(roomID, userID)
	if err != nil {
		return nil, translateDB(err)
	}
	s.publisher.PublishChange(ctx,
		[]string{"workspace:" + room.WorkspaceID.String(), "room:" + roomID.String()},
		realtime.ChangeUpdate, "room_participants", seat, seat)
	return seat, nil
}
