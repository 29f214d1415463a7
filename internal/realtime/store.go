package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"nimbo/internal/domain"
)

// DefaultMessageLimit is how many recent messages FetchRoomDetails loads.
const DefaultMessageLimit = 50

// EntityStoreOptions configures an EntityStore.
type EntityStoreOptions struct {
	Client       DataClient
	Dialer       Dialer
	WorkspaceID  uuid.UUID
	MessageLimit int               // defaults to DefaultMessageLimit
	Supervisor   SupervisorOptions // applied to every channel the store opens
}

// EntityStore is the client-side cache of rooms, the current room's
// participants, and its recent messages. Snapshots come from the DataClient;
// change events keep them current. All reads go through the mutex and every
// accessor returns a copy, so callers never alias internal slices.
type EntityStore struct {
	client       DataClient
	dialer       Dialer
	workspaceID  uuid.UUID
	messageLimit int
	supOpts      SupervisorOptions

	mu            sync.Mutex
	rooms         []domain.RoomResponse
	participants  []domain.ParticipantResponse
	messages      []domain.MessageResponse
	currentRoomID *uuid.UUID
	err           string

	wsSup      *ConnectionSupervisor
	roomRouter *ChangeEventRouter
	seatRouter *ChangeEventRouter

	detailSup  *ConnectionSupervisor
	partRouter *ChangeEventRouter
	msgRouter  *ChangeEventRouter
}

// NewEntityStore builds a store for one workspace. No channels are opened
// until the first fetch.
func NewEntityStore(opts EntityStoreOptions) *EntityStore {
	limit := opts.MessageLimit
	if limit <= 0 {
		limit = DefaultMessageLimit
	}
	return &EntityStore{
		client:       opts.Client,
		dialer:       opts.Dialer,
		workspaceID:  opts.WorkspaceID,
		messageLimit: limit,
		supOpts:      opts.Supervisor,
	}
}

// Rooms returns the cached room list.
func (s *EntityStore) Rooms() []domain.RoomResponse {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.RoomResponse, len(s.rooms))
	copy(out, s.rooms)
	return out
}

// Participants returns the cached participants of the current room.
func (s *EntityStore) Participants() []domain.ParticipantResponse {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.ParticipantResponse, len(s.participants))
	copy(out, s.participants)
	return out
}

// Messages returns the cached messages of the current room, newest first.
func (s *EntityStore) Messages() []domain.MessageResponse {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.MessageResponse, len(s.messages))
	copy(out, s.messages)
	return out
}

// CurrentRoomID returns the room whose details are loaded, nil when none.
func (s *EntityStore) CurrentRoomID() *uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.currentRoomID == nil {
		return nil
	}
	id := *s.currentRoomID
	return &id
}

// Err returns the last fetch or channel error, empty when healthy.
func (s *EntityStore) Err() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// FetchRooms loads the workspace's rooms with their participant counts and
// arms the workspace-level subscriptions that keep the list current.
func (s *EntityStore) FetchRooms(ctx context.Context) error {
	rooms, err := s.client.ListRooms(ctx, s.workspaceID)
	if err != nil {
		s.setErr(fmt.Sprintf("failed to load rooms: %v", err))
		return err
	}

	s.mu.Lock()
	s.rooms = rooms
	s.err = ""
	armed := s.wsSup != nil
	s.mu.Unlock()

	if !armed {
		s.armWorkspace(ctx)
	}
	return nil
}

// FetchRoomDetails loads one room's participants and recent messages, marks
// it current, and arms the room-level subscriptions. Details of a previously
// loaded room are torn down first.
func (s *EntityStore) FetchRoomDetails(ctx context.Context, roomID uuid.UUID) error {
	participants, err := s.client.ListParticipants(ctx, roomID)
	if err != nil {
		s.setErr(fmt.Sprintf("failed to load participants: %v", err))
		return err
	}
	messages, err := s.client.ListMessages(ctx, roomID, s.messageLimit)
	if err != nil {
		s.setErr(fmt.Sprintf("failed to load messages: %v", err))
		return err
	}

	s.mu.Lock()
	old := s.detailSup
	s.detailSup, s.partRouter, s.msgRouter = nil, nil, nil
	s.participants = participants
	s.messages = messages
	id := roomID
	s.currentRoomID = &id
	s.err = ""
	s.mu.Unlock()

	if old != nil {
		old.Disconnect()
	}
	s.armRoom(ctx, roomID)
	return nil
}

// ClearRoomDetails drops the current room's cached details and tears down
// its subscriptions. The room list and its subscription stay live.
func (s *EntityStore) ClearRoomDetails() {
	s.mu.Lock()
	old := s.detailSup
	s.detailSup, s.partRouter, s.msgRouter = nil, nil, nil
	s.participants = nil
	s.messages = nil
	s.currentRoomID = nil
	s.mu.Unlock()
	if old != nil {
		old.Disconnect()
	}
}

// Close tears down every channel the store opened.
func (s *EntityStore) Close() {
	s.mu.Lock()
	ws, detail := s.wsSup, s.detailSup
	s.wsSup, s.roomRouter, s.seatRouter = nil, nil, nil
	s.detailSup, s.partRouter, s.msgRouter = nil, nil, nil
	s.mu.Unlock()
	if ws != nil {
		ws.Disconnect()
	}
	if detail != nil {
		detail.Disconnect()
	}
}

// armWorkspace opens the workspace channel and routes rooms and
// room_participants changes into the room list.
func (s *EntityStore) armWorkspace(ctx context.Context) {
	sup := NewSupervisor(s.dialer, "workspace:"+s.workspaceID.String(), s.supOpts)

	roomRouter := NewChangeEventRouter(sup, SubscriptionOptions{
		Table:    "rooms",
		Filter:   s.matchWorkspace,
		OnInsert: s.applyRoomInsert,
		OnUpdate: s.applyRoomUpdate,
		OnDelete: s.applyRoomDelete,
	})
	// Participant counts on the room list are maintained from the
	// room_participants stream rather than refetched.
	seatRouter := NewChangeEventRouter(sup, SubscriptionOptions{
		OnInsert: func(row json.RawMessage) { s.adjustCount(row, +1) },
		OnDelete: func(row json.RawMessage) { s.adjustCount(row, -1) },
		Table:    "room_participants",
	})

	userReconnect := s.supOpts.OnReconnect
	sup.opts.OnReconnect = func() {
		roomRouter.Rearm()
		seatRouter.Rearm()
		if userReconnect != nil {
			userReconnect()
		}
	}

	s.mu.Lock()
	s.wsSup = sup
	s.roomRouter = roomRouter
	s.seatRouter = seatRouter
	s.mu.Unlock()

	roomRouter.Listen(ctx)
	seatRouter.StartListening()
}

// armRoom opens the room channel and routes participant and message changes
// into the detail caches.
func (s *EntityStore) armRoom(ctx context.Context, roomID uuid.UUID) {
	sup := NewSupervisor(s.dialer, "room:"+roomID.String(), s.supOpts)

	partRouter := NewChangeEventRouter(sup, SubscriptionOptions{
		Table:    "room_participants",
		Filter:   matchRoom(roomID),
		OnInsert: s.applyParticipantInsert,
		OnUpdate: s.applyParticipantUpdate,
		OnDelete: s.applyParticipantDelete,
	})
	msgRouter := NewChangeEventRouter(sup, SubscriptionOptions{
		Table:    "chat_messages",
		Filter:   matchRoom(roomID),
		OnInsert: s.applyMessageInsert,
		OnDelete: s.applyMessageDelete,
	})

	userReconnect := s.supOpts.OnReconnect
	sup.opts.OnReconnect = func() {
		partRouter.Rearm()
		msgRouter.Rearm()
		if userReconnect != nil {
			userReconnect()
		}
	}

	s.mu.Lock()
	s.detailSup = sup
	s.partRouter = partRouter
	s.msgRouter = msgRouter
	s.mu.Unlock()

	partRouter.Listen(ctx)
	msgRouter.StartListening()
}

func (s *EntityStore) setErr(msg string) {
	s.mu.Lock()
	s.err = msg
	s.mu.Unlock()
}

func (s *EntityStore) matchWorkspace(newRow, oldRow json.RawMessage) bool {
	var row struct {
		WorkspaceID uuid.UUID `json:"workspace_id"`
	}
	raw := newRow
	if raw == nil {
		raw = oldRow
	}
	if err := json.Unmarshal(raw, &row); err != nil {
		return false
	}
	return row.WorkspaceID == s.workspaceID
}

func matchRoom(roomID uuid.UUID) func(newRow, oldRow json.RawMessage) bool {
	return func(newRow, oldRow json.RawMessage) bool {
		var row struct {
			RoomID uuid.UUID `json:"room_id"`
		}
		raw := newRow
		if raw == nil {
			raw = oldRow
		}
		if err := json.Unmarshal(raw, &row); err != nil {
			return false
		}
		return row.RoomID == roomID
	}
}

func (s *EntityStore) applyRoomInsert(row json.RawMessage) {
	var room domain.Room
	if err := json.Unmarshal(row, &room); err != nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.rooms {
		if r.ID == room.ID {
			return
		}
	}
	s.rooms = append(s.rooms, room.ToResponse(0))
}

// applyRoomUpdate patch-merges the changed row into the cached entry.
// Fields the row does not carry, like the participant count, are kept.
func (s *EntityStore) applyRoomUpdate(newRow, _ json.RawMessage) {
	var room domain.Room
	if err := json.Unmarshal(newRow, &room); err != nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.rooms {
		if s.rooms[i].ID == room.ID {
			count := s.rooms[i].ParticipantCount
			s.rooms[i] = room.ToResponse(count)
			return
		}
	}
}

func (s *EntityStore) applyRoomDelete(oldRow json.RawMessage) {
	var room struct {
		ID uuid.UUID `json:"id"`
	}
	if err := json.Unmarshal(oldRow, &room); err != nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.rooms[:0]
	for _, r := range s.rooms {
		if r.ID != room.ID {
			next = append(next, r)
		}
	}
	s.rooms = next
}

func (s *EntityStore) adjustCount(row json.RawMessage, delta int) {
	var seat struct {
		RoomID uuid.UUID `json:"room_id"`
	}
	if err := json.Unmarshal(row, &seat); err != nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.rooms {
		if s.rooms[i].ID == seat.RoomID {
			s.rooms[i].ParticipantCount += delta
			if s.rooms[i].ParticipantCount < 0 {
				s.rooms[i].ParticipantCount = 0
			}
			return
		}
	}
}

func (s *EntityStore) applyParticipantInsert(row json.RawMessage) {
	var p domain.RoomParticipant
	if err := json.Unmarshal(row, &p); err != nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.participants {
		if existing.UserID == p.UserID {
			return
		}
	}
	s.participants = append(s.participants, p.ToResponse())
}

func (s *EntityStore) applyParticipantUpdate(newRow, _ json.RawMessage) {
	var p domain.RoomParticipant
	if err := json.Unmarshal(newRow, &p); err != nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.participants {
		if s.participants[i].UserID == p.UserID {
			user := s.participants[i].User
			s.participants[i] = p.ToResponse()
			if s.participants[i].User == nil {
				s.participants[i].User = user
			}
			return
		}
	}
}

func (s *EntityStore) applyParticipantDelete(oldRow json.RawMessage) {
	var p struct {
		UserID uuid.UUID `json:"user_id"`
	}
	if err := json.Unmarshal(oldRow, &p); err != nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.participants[:0]
	for _, existing := range s.participants {
		if existing.UserID != p.UserID {
			next = append(next, existing)
		}
	}
	s.participants = next
}

func (s *EntityStore) applyMessageInsert(row json.RawMessage) {
	var m domain.ChatMessage
	if err := json.Unmarshal(row, &m); err != nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.messages {
		if existing.ID == m.ID {
			return
		}
	}
	// Messages are held newest first.
	s.messages = append([]domain.MessageResponse{m.ToResponse()}, s.messages...)
	if len(s.messages) > s.messageLimit {
		s.messages = s.messages[:s.messageLimit]
	}
}

func (s *EntityStore) applyMessageDelete(oldRow json.RawMessage) {
	var m struct {
		ID uuid.UUID `json:"id"`
	}
	if err := json.Unmarshal(oldRow, &m); err != nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.messages[:0]
	for _, existing := range s.messages {
		if existing.ID != m.ID {
			next = append(next, existing)
		}
	}
	s.messages = next
}
