package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"nimbo/internal/domain"
	"nimbo/internal/realtime"
	"nimbo/internal/repository"
)

// In-memory repository fakes. They mirror the persistence contracts
// closely enough for service-level behavior, including returning
// gorm.ErrRecordNotFound where the real implementations would.

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]*domain.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[uuid.UUID]*domain.User)}
}

func (r *fakeUserRepo) add(email, name string) *domain.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	u := &domain.User{ID: uuid.New(), Email: email, DisplayName: name, Status: domain.StatusOffline}
	r.users[u.ID] = u
	return u
}

func (r *fakeUserRepo) GetByID(userID uuid.UUID) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[userID]; ok {
		copied := *u
		return &copied, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeUserRepo) GetByEmail(email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if strings.EqualFold(u.Email, email) {
			copied := *u
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeUserRepo) List(limit, offset int) ([]domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, *u)
	}
	return out, nil
}

func (r *fakeUserRepo) Search(query string, limit int) ([]domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.User
	for _, u := range r.users {
		if strings.Contains(strings.ToLower(u.DisplayName), strings.ToLower(query)) ||
			strings.Contains(strings.ToLower(u.Email), strings.ToLower(query)) {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (r *fakeUserRepo) Update(user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	copied := *user
	r.users[user.ID] = &copied
	return nil
}

func (r *fakeUserRepo) UpdateStatus(userID uuid.UUID, status domain.UserStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	u.Status = status
	return nil
}

type fakeWorkspaceRepo struct {
	mu         sync.Mutex
	workspaces map[uuid.UUID]*domain.Workspace
	members    map[uuid.UUID][]*domain.WorkspaceMember // workspaceID -> rows
}

func newFakeWorkspaceRepo() *fakeWorkspaceRepo {
	return &fakeWorkspaceRepo{
		workspaces: make(map[uuid.UUID]*domain.Workspace),
		members:    make(map[uuid.UUID][]*domain.WorkspaceMember),
	}
}

func (r *fakeWorkspaceRepo) Create(workspace *domain.Workspace) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if workspace.ID == uuid.Nil {
		workspace.ID = uuid.New()
	}
	workspace.CreatedAt = time.Now().UTC()
	copied := *workspace
	r.workspaces[workspace.ID] = &copied
	return nil
}

func (r *fakeWorkspaceRepo) GetByID(workspaceID uuid.UUID) (*domain.Workspace, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ws, ok := r.workspaces[workspaceID]; ok {
		copied := *ws
		return &copied, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeWorkspaceRepo) ListForUser(userID uuid.UUID) ([]domain.Workspace, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Workspace
	for id, ws := range r.workspaces {
		if ws.OwnerID == userID {
			out = append(out, *ws)
			continue
		}
		for _, m := range r.members[id] {
			if m.UserID == userID {
				out = append(out, *ws)
				break
			}
		}
	}
	return out, nil
}

func (r *fakeWorkspaceRepo) Update(workspace *domain.Workspace) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.workspaces[workspace.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	copied := *workspace
	r.workspaces[workspace.ID] = &copied
	return nil
}

func (r *fakeWorkspaceRepo) Delete(workspaceID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.workspaces, workspaceID)
	delete(r.members, workspaceID)
	return nil
}

func (r *fakeWorkspaceRepo) AddMember(member *domain.WorkspaceMember) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if member.ID == uuid.Nil {
		member.ID = uuid.New()
	}
	copied := *member
	r.members[member.WorkspaceID] = append(r.members[member.WorkspaceID], &copied)
	return nil
}

func (r *fakeWorkspaceRepo) GetMember(workspaceID, userID uuid.UUID) (*domain.WorkspaceMember, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.members[workspaceID] {
		if m.UserID == userID {
			copied := *m
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeWorkspaceRepo) ListMembers(workspaceID uuid.UUID) ([]domain.WorkspaceMember, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.WorkspaceMember, 0, len(r.members[workspaceID]))
	for _, m := range r.members[workspaceID] {
		out = append(out, *m)
	}
	return out, nil
}

func (r *fakeWorkspaceRepo) UpdateMemberRole(workspaceID, userID uuid.UUID, role domain.MemberRole) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.members[workspaceID] {
		if m.UserID == userID {
			m.Role = role
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (r *fakeWorkspaceRepo) RemoveMember(workspaceID, userID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rows := r.members[workspaceID]
	for i, m := range rows {
		if m.UserID == userID {
			r.members[workspaceID] = append(rows[:i], rows[i+1:]...)
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

type fakeRoomRepo struct {
	mu           sync.Mutex
	rooms        map[uuid.UUID]*domain.Room
	participants map[uuid.UUID][]*domain.RoomParticipant // roomID -> rows
}

func newFakeRoomRepo() *fakeRoomRepo {
	return &fakeRoomRepo{
		rooms:        make(map[uuid.UUID]*domain.Room),
		participants: make(map[uuid.UUID][]*domain.RoomParticipant),
	}
}

func (r *fakeRoomRepo) Create(room *domain.Room) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if room.ID == uuid.Nil {
		room.ID = uuid.New()
	}
	copied := *room
	r.rooms[room.ID] = &copied
	return nil
}

func (r *fakeRoomRepo) GetByID(roomID uuid.UUID) (*domain.Room, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if room, ok := r.rooms[roomID]; ok {
		copied := *room
		return &copied, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeRoomRepo) ListByWorkspace(workspaceID uuid.UUID) ([]domain.Room, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Room
	for _, room := range r.rooms {
		if room.WorkspaceID == workspaceID {
			out = append(out, *room)
		}
	}
	return out, nil
}

func (r *fakeRoomRepo) Update(room *domain.Room) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rooms[room.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	copied := *room
	r.rooms[room.ID] = &copied
	return nil
}

func (r *fakeRoomRepo) Delete(roomID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rooms, roomID)
	delete(r.participants, roomID)
	return nil
}

func (r *fakeRoomRepo) ListParticipants(roomID uuid.UUID) ([]domain.RoomParticipant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.RoomParticipant, 0, len(r.participants[roomID]))
	for _, p := range r.participants[roomID] {
		out = append(out, *p)
	}
	return out, nil
}

func (r *fakeRoomRepo) GetParticipant(roomID, userID uuid.UUID) (*domain.RoomParticipant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.participants[roomID] {
		if p.UserID == userID {
			copied := *p
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeRoomRepo) CountParticipants(roomID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.participants[roomID])), nil
}

// Join mirrors the transactional single-seat semantics: evict the user's
// seats across the workspace, enforce capacity, insert.
func (r *fakeRoomRepo) Join(roomID, userID uuid.UUID) (*domain.RoomParticipant, []domain.RoomParticipant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[roomID]
	if !ok {
		return nil, nil, gorm.ErrRecordNotFound
	}

	for _, p := range r.participants[roomID] {
		if p.UserID == userID {
			copied := *p
			return &copied, nil, nil
		}
	}

	var evicted []domain.RoomParticipant
	for otherID, other := range r.rooms {
		if other.WorkspaceID != room.WorkspaceID {
			continue
		}
		rows := r.participants[otherID]
		for i := 0; i < len(rows); i++ {
			if rows[i].UserID == userID {
				evicted = append(evicted, *rows[i])
				rows = append(rows[:i], rows[i+1:]...)
				i--
			}
		}
		r.participants[otherID] = rows
	}

	if room.Capacity != nil && len(r.participants[roomID]) >= *room.Capacity {
		return nil, nil, repository.ErrCapacityReached
	}

	p := &domain.RoomParticipant{
		ID:           uuid.New(),
		RoomID:       roomID,
		UserID:       userID,
		VideoEnabled: true,
		AudioEnabled: true,
		JoinedAt:     time.Now().UTC(),
	}
	r.participants[roomID] = append(r.participants[roomID], p)
	copied := *p
	return &copied, evicted, nil
}

func (r *fakeRoomRepo) Leave(roomID, userID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rows := r.participants[roomID]
	for i, p := range rows {
		if p.UserID == userID {
			r.participants[roomID] = append(rows[:i], rows[i+1:]...)
			return 1, nil
		}
	}
	return 0, nil
}

func (r *fakeRoomRepo) UpdateMedia(roomID, userID uuid.UUID, updates map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.participants[roomID] {
		if p.UserID == userID {
			if v, ok := updates["video_enabled"].(bool); ok {
				p.VideoEnabled = v
			}
			if v, ok := updates["audio_enabled"].(bool); ok {
				p.AudioEnabled = v
			}
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

type fakeMessageRepo struct {
	mu       sync.Mutex
	messages map[uuid.UUID]*domain.ChatMessage
}

func newFakeMessageRepo() *fakeMessageRepo {
	return &fakeMessageRepo{messages: make(map[uuid.UUID]*domain.ChatMessage)}
}

func (r *fakeMessageRepo) Create(message *domain.ChatMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if message.ID == uuid.Nil {
		message.ID = uuid.New()
	}
	message.CreatedAt = time.Now().UTC()
	copied := *message
	r.messages[message.ID] = &copied
	return nil
}

func (r *fakeMessageRepo) GetByID(messageID uuid.UUID) (*domain.ChatMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.messages[messageID]; ok {
		copied := *m
		return &copied, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeMessageRepo) ListByRoom(roomID uuid.UUID, limit int, before *time.Time) ([]domain.ChatMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.ChatMessage
	for _, m := range r.messages {
		if m.RoomID != roomID {
			continue
		}
		if before != nil && !m.CreatedAt.Before(*before) {
			continue
		}
		out = append(out, *m)
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeMessageRepo) Delete(messageID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.messages, messageID)
	return nil
}

type fakeInvitationRepo struct {
	mu          sync.Mutex
	invitations map[uuid.UUID]*domain.WorkspaceInvitation
}

func newFakeInvitationRepo() *fakeInvitationRepo {
	return &fakeInvitationRepo{invitations: make(map[uuid.UUID]*domain.WorkspaceInvitation)}
}

func (r *fakeInvitationRepo) Create(invitation *domain.WorkspaceInvitation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if invitation.ID == uuid.Nil {
		invitation.ID = uuid.New()
	}
	invitation.CreatedAt = time.Now().UTC()
	copied := *invitation
	r.invitations[invitation.ID] = &copied
	return nil
}

func (r *fakeInvitationRepo) GetByID(invitationID uuid.UUID) (*domain.WorkspaceInvitation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if inv, ok := r.invitations[invitationID]; ok {
		copied := *inv
		return &copied, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeInvitationRepo) GetByToken(token string) (*domain.WorkspaceInvitation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, inv := range r.invitations {
		if inv.Token == token {
			copied := *inv
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeInvitationRepo) GetPendingByEmail(workspaceID uuid.UUID, email string) (*domain.WorkspaceInvitation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, inv := range r.invitations {
		if inv.WorkspaceID == workspaceID &&
			strings.EqualFold(inv.InvitedEmail, email) &&
			inv.Status == domain.InvitationPending {
			copied := *inv
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeInvitationRepo) ListPending(workspaceID uuid.UUID) ([]domain.WorkspaceInvitation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.WorkspaceInvitation
	for _, inv := range r.invitations {
		if inv.WorkspaceID == workspaceID && inv.Status == domain.InvitationPending {
			out = append(out, *inv)
		}
	}
	return out, nil
}

func (r *fakeInvitationRepo) UpdateStatus(invitationID uuid.UUID, status domain.InvitationStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	inv, ok := r.invitations[invitationID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	inv.Status = status
	return nil
}

func (r *fakeInvitationRepo) Delete(invitationID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.invitations, invitationID)
	return nil
}

type fakePresenceRepo struct {
	mu   sync.Mutex
	rows map[uuid.UUID]*domain.UserPresence
}

func newFakePresenceRepo() *fakePresenceRepo {
	return &fakePresenceRepo{rows: make(map[uuid.UUID]*domain.UserPresence)}
}

func (r *fakePresenceRepo) SetStatus(userID, workspaceID uuid.UUID, status domain.UserStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[userID] = &domain.UserPresence{
		UserID:      userID,
		WorkspaceID: workspaceID,
		Status:      status,
		LastSeen:    time.Now().UTC(),
	}
	return nil
}

func (r *fakePresenceRepo) SetOffline(userID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[userID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	row.Status = domain.StatusOffline
	row.LastSeen = time.Now().UTC()
	return nil
}

func (r *fakePresenceRepo) GetUserStatus(userID uuid.UUID) (*domain.UserPresence, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if row, ok := r.rows[userID]; ok {
		copied := *row
		return &copied, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakePresenceRepo) GetOnlineUsers(workspaceID *uuid.UUID) ([]domain.UserPresence, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.UserPresence
	for _, row := range r.rows {
		if row.Status == domain.StatusOffline {
			continue
		}
		if workspaceID != nil && row.WorkspaceID != *workspaceID {
			continue
		}
		out = append(out, *row)
	}
	return out, nil
}

// recordingPublisher captures published frames for assertions.
type recordingPublisher struct {
	mu        sync.Mutex
	changes   []publishedChange
	presences []publishedPresence
}

type publishedChange struct {
	channels []string
	event    realtime.ChangeType
	table    string
}

type publishedPresence struct {
	channels  []string
	kind      realtime.PresenceKind
	presences []realtime.Presence
}

func (p *recordingPublisher) PublishChange(_ context.Context, channels []string, event realtime.ChangeType, table string, _, _ any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.changes = append(p.changes, publishedChange{channels: channels, event: event, table: table})
}

func (p *recordingPublisher) PublishPresence(_ context.Context, channels []string, kind realtime.PresenceKind, presences []realtime.Presence) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.presences = append(p.presences, publishedPresence{channels: channels, kind: kind, presences: presences})
}

// testEnv wires the services over the in-memory fakes.
type testEnv struct {
	users       *fakeUserRepo
	workspaces  *fakeWorkspaceRepo
	rooms       *fakeRoomRepo
	messages    *fakeMessageRepo
	invitations *fakeInvitationRepo
	pub         *recordingPublisher

	workspace  WorkspaceService
	room       RoomService
	message    MessageService
	invitation InvitationService
}

func newTestEnv() *testEnv {
	env := &testEnv{
		users:       newFakeUserRepo(),
		workspaces:  newFakeWorkspaceRepo(),
		rooms:       newFakeRoomRepo(),
		messages:    newFakeMessageRepo(),
		invitations: newFakeInvitationRepo(),
		pub:         &recordingPublisher{},
	}
	logger := zap.NewNop()
	env.workspace = NewWorkspaceService(env.workspaces, env.users, logger)
	env.room = NewRoomService(env.rooms, env.workspace, env.pub, logger)
	env.message = NewMessageService(env.messages, env.rooms, env.workspace, env.pub, logger)
	env.invitation = NewInvitationService(env.invitations, env.workspaces, env.users, env.workspace, logger)
	return env
}

func (env *testEnv) createWorkspace(owner *domain.User) *domain.Workspace {
	ws := &domain.Workspace{Name: "Acme HQ", OwnerID: owner.ID}
	if err := env.workspaces.Create(ws); err != nil {
		panic(err)
	}
	return ws
}

func (env *testEnv) addMember(ws *domain.Workspace, user *domain.User, role domain.MemberRole) {
	if err := env.workspaces.AddMember(&domain.WorkspaceMember{
		WorkspaceID: ws.ID,
		UserID:      user.ID,
		Role:        role,
	}); err != nil {
		panic(err)
	}
}

func (env *testEnv) createRoom(ws *domain.Workspace, name string, capacity *int) *domain.Room {
	room := &domain.Room{
		WorkspaceID: ws.ID,
		Name:        name,
		Type:        domain.RoomGeneral,
		Capacity:    capacity,
	}
	if err := env.rooms.Create(room); err != nil {
		panic(err)
	}
	return room
}

func (p *recordingPublisher) published(table string, event realtime.ChangeType) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, c := range p.changes {
		if c.table == table && c.event == event {
			n++
		}
	}
	return n
}
