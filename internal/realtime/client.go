package realtime

import (
	"context"

	"github.com/google/uuid"

	"nimbo/internal/domain"
)

// DataClient is the request/response counterpart to the realtime channels:
// the store fetches initial snapshots through it and the lifecycle
// coordinator issues join/leave/media calls through it. The HTTP API client
// and the in-process service layer both satisfy it.
type DataClient interface {
	ListRooms(ctx context.Context, workspaceID uuid.UUID) ([]domain.RoomResponse, error)
	GetRoom(ctx context.Context, roomID uuid.UUID) (*domain.RoomResponse, error)
	ListParticipants(ctx context.Context, roomID uuid.UUID) ([]domain.ParticipantResponse, error)
	ListMessages(ctx context.Context, roomID uuid.UUID, limit int) ([]domain.MessageResponse, error)

	JoinRoom(ctx context.Context, roomID uuid.UUID) (*domain.ParticipantResponse, error)
	LeaveRoom(ctx context.Context, roomID uuid.UUID) error
	UpdateMedia(ctx context.Context, roomID uuid.UUID, req domain.UpdateMediaRequest) (*domain.ParticipantResponse, error)
	SendMessage(ctx context.Context, roomID uuid.UUID, content string) (*domain.MessageResponse, error)
}
