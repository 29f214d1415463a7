package realtime

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"nimbo/internal/domain"
)

// RoomLifecycleCoordinator drives the local user's movement between rooms
// and their media state. All mutations go through the DataClient; the
// server enforces single-seat occupancy, so joining a new room implicitly
// leaves the previous one everywhere, not just locally.
type RoomLifecycleCoordinator struct {
	client DataClient
	store  *EntityStore
	userID uuid.UUID

	mu   sync.Mutex
	seat *domain.ParticipantResponse
	err  string
}

// NewRoomLifecycleCoordinator builds a coordinator bound to one user and
// the store holding that user's view of the workspace.
func NewRoomLifecycleCoordinator(client DataClient, store *EntityStore, userID uuid.UUID) *RoomLifecycleCoordinator {
	return &RoomLifecycleCoordinator{client: client, store: store, userID: userID}
}

// Seat returns the user's current participant row, nil when not in a room.
func (c *RoomLifecycleCoordinator) Seat() *domain.ParticipantResponse {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.seat == nil {
		return nil
	}
	seat := *c.seat
	return &seat
}

// InRoom reports whether the user currently occupies a room.
func (c *RoomLifecycleCoordinator) InRoom() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seat != nil
}

// Err returns the last lifecycle error, empty when healthy.
func (c *RoomLifecycleCoordinator) Err() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// JoinRoom moves the user into roomID and loads its details. The server
// evicts any previous seat in the workspace atomically with the join.
func (c *RoomLifecycleCoordinator) JoinRoom(ctx context.Context, roomID uuid.UUID) error {
	seat, err := c.client.JoinRoom(ctx, roomID)
	if err != nil {
		c.setErr(err.Error())
		return err
	}

	c.mu.Lock()
	c.seat = seat
	c.err = ""
	c.mu.Unlock()

	if c.store != nil {
		return c.store.FetchRoomDetails(ctx, roomID)
	}
	return nil
}

// LeaveRoom vacates the current seat and clears the room's details. When
// the user is not in a room it is a no-op and reports false.
func (c *RoomLifecycleCoordinator) LeaveRoom(ctx context.Context) (bool, error) {
	c.mu.Lock()
	seat := c.seat
	c.mu.Unlock()
	if seat == nil {
		return false, nil
	}

	if err := c.client.LeaveRoom(ctx, seat.RoomID); err != nil {
		c.setErr(err.Error())
		return false, err
	}

	c.mu.Lock()
	c.seat = nil
	c.err = ""
	c.mu.Unlock()

	if c.store != nil {
		c.store.ClearRoomDetails()
	}
	return true, nil
}

// ToggleAudio flips the user's audio flag on the current seat.
func (c *RoomLifecycleCoordinator) ToggleAudio(ctx context.Context) error {
	return c.toggle(ctx, func(seat *domain.ParticipantResponse) domain.UpdateMediaRequest {
		enabled := !seat.AudioEnabled
		return domain.UpdateMediaRequest{AudioEnabled: &enabled}
	})
}

// ToggleVideo flips the user's video flag on the current seat.
func (c *RoomLifecycleCoordinator) ToggleVideo(ctx context.Context) error {
	return c.toggle(ctx, func(seat *domain.ParticipantResponse) domain.UpdateMediaRequest {
		enabled := !seat.VideoEnabled
		return domain.UpdateMediaRequest{VideoEnabled: &enabled}
	})
}

func (c *RoomLifecycleCoordinator) toggle(ctx context.Context, build func(*domain.ParticipantResponse) domain.UpdateMediaRequest) error {
	c.mu.Lock()
	seat := c.seat
	c.mu.Unlock()
	if seat == nil {
		return nil
	}

	updated, err := c.client.UpdateMedia(ctx, seat.RoomID, build(seat))
	if err != nil {
		c.setErr(err.Error())
		return err
	}

	c.mu.Lock()
	c.seat = updated
	c.err = ""
	c.mu.Unlock()
	return nil
}

func (c *RoomLifecycleCoordinator) setErr(msg string) {
	c.mu.Lock()
	c.err = msg
	c.mu.Unlock()
}
