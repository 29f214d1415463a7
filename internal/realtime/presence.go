package realtime

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"
)

// PresenceUser is the aggregator's canonical view of one user: who is here
// and what their status is. It is derived state, rebuilt on every
// (re)connect, never persisted.
type PresenceUser struct {
	ID       string    `json:"id"`
	Status   string    `json:"status"`
	LastSeen time.Time `json:"lastSeen"`
}

// participantRow is the slice of a room_participants row the aggregator
// cares about.
type participantRow struct {
	UserID   string    `json:"user_id"`
	JoinedAt time.Time `json:"joined_at"`
}

// PresenceAggregator merges presence-protocol events (join/leave/sync) with
// row-level changes on the participation table into one keyed map of
// PresenceUser. The three signal sources race; last writer by arrival order
// wins, and entries are marked offline rather than deleted so the UI can
// still render a just-left user.
type PresenceAggregator struct {
	supervisor *ConnectionSupervisor
	localUser  PresenceUser
	only       map[string]struct{}
	now        func() time.Time

	mu    sync.Mutex
	users map[string]PresenceUser
	err   string
}

// AggregatorOptions tunes aggregation.
type AggregatorOptions struct {
	// Only restricts the aggregate to these user ids. Empty means everyone
	// on the channel.
	Only []string
}

// NewPresenceAggregator builds the aggregator for a supervised channel and
// installs its event listener. localUser is announced via Track on Connect.
func NewPresenceAggregator(sup *ConnectionSupervisor, localUser PresenceUser, opts AggregatorOptions) *PresenceAggregator {
	a := &PresenceAggregator{
		supervisor: sup,
		localUser:  localUser,
		now:        time.Now,
		users:      make(map[string]PresenceUser),
	}
	if len(opts.Only) > 0 {
		a.only = make(map[string]struct{}, len(opts.Only))
		for _, id := range opts.Only {
			a.only[id] = struct{}{}
		}
	}
	sup.OnEvent(a.handleEvent)
	return a
}

// tracks reports whether an id passes the Only filter.
func (a *PresenceAggregator) tracks(id string) bool {
	if a.only == nil {
		return true
	}
	_, ok := a.only[id]
	return ok
}

// Connect subscribes the channel and announces the local user's presence.
func (a *PresenceAggregator) Connect(ctx context.Context) error {
	a.supervisor.Connect(ctx)
	ch := a.supervisor.Channel()
	if ch == nil || !a.supervisor.Connected() {
		return nil // supervisor is retrying; presence re-announces on sync
	}
	p := Presence{ID: a.localUser.ID, Status: a.localUser.Status, LastSeen: a.now()}
	if p.Status == "" {
		p.Status = "online"
	}
	return ch.Track(p)
}

// Close untracks the local user and releases the channel. The untrack is
// fire-and-forget: it is not guaranteed to land before teardown.
func (a *PresenceAggregator) Close() {
	if ch := a.supervisor.Channel(); ch != nil {
		ch.Untrack()
	}
	a.supervisor.Disconnect()
}

// UpdateStatus re-announces the local user with a new status.
func (a *PresenceAggregator) UpdateStatus(status string) error {
	ch := a.supervisor.Channel()
	if ch == nil {
		return nil
	}
	a.localUser.Status = status
	err := ch.Track(Presence{ID: a.localUser.ID, Status: status, LastSeen: a.now()})
	if err != nil {
		a.mu.Lock()
		a.err = "status update failed: " + err.Error()
		a.mu.Unlock()
	}
	return err
}

// Users returns the aggregated presence list, ordered by user id for
// stable iteration.
func (a *PresenceAggregator) Users() []PresenceUser {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]PresenceUser, 0, len(a.users))
	for _, u := range a.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Get returns the aggregated state for one user.
func (a *PresenceAggregator) Get(userID string) (PresenceUser, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	u, ok := a.users[userID]
	return u, ok
}

// Err returns the last aggregation error, empty when healthy.
func (a *PresenceAggregator) Err() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.err
}

func (a *PresenceAggregator) handleEvent(ev Event) {
	switch e := ev.(type) {
	case PresenceEvent:
		a.handlePresence(e)
	case ChangeEvent:
		if e.Table == "room_participants" {
			a.handleParticipantChange(e)
		}
	}
}

func (a *PresenceAggregator) handlePresence(ev PresenceEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()

	switch ev.Kind {
	case PresenceSync:
		// Full replace from the channel snapshot. The first entry per key
		// wins when a key carries duplicates.
		rebuilt := make(map[string]PresenceUser, len(ev.State))
		for _, presences := range ev.State {
			if len(presences) == 0 {
				continue
			}
			p := presences[0]
			if p.ID == "" || !a.tracks(p.ID) {
				continue
			}
			if _, seen := rebuilt[p.ID]; seen {
				continue
			}
			rebuilt[p.ID] = presenceToUser(p, a.now)
		}
		a.users = rebuilt

	case PresenceJoin:
		for _, p := range ev.Joins {
			if p.ID == "" || !a.tracks(p.ID) {
				continue
			}
			a.users[p.ID] = presenceToUser(p, a.now)
		}

	case PresenceLeave:
		// A leave never deletes the entry: keep the last-known profile and
		// mark it offline with a fresh lastSeen.
		for _, p := range ev.Leaves {
			if existing, ok := a.users[p.ID]; ok {
				existing.Status = "offline"
				existing.LastSeen = a.now()
				a.users[p.ID] = existing
			}
		}
	}
}

// handleParticipantChange folds the row-level participation signal into the
// map. It corroborates the presence protocol and may race with it; arrival
// order decides.
func (a *PresenceAggregator) handleParticipantChange(ev ChangeEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()

	switch ev.Type {
	case ChangeInsert, ChangeUpdate:
		var row participantRow
		if err := json.Unmarshal(ev.New, &row); err != nil || row.UserID == "" || !a.tracks(row.UserID) {
			return
		}
		a.users[row.UserID] = PresenceUser{
			ID:       row.UserID,
			Status:   "online",
			LastSeen: row.JoinedAt,
		}
	case ChangeDelete:
		var row participantRow
		if err := json.Unmarshal(ev.Old, &row); err != nil || row.UserID == "" {
			return
		}
		if existing, ok := a.users[row.UserID]; ok {
			existing.Status = "offline"
			existing.LastSeen = a.now()
			a.users[row.UserID] = existing
		}
	}
}

func presenceToUser(p Presence, now func() time.Time) PresenceUser {
	u := PresenceUser{ID: p.ID, Status: p.Status, LastSeen: p.LastSeen}
	if u.Status == "" {
		u.Status = "online"
	}
	if u.LastSeen.IsZero() {
		u.LastSeen = now()
	}
	return u
}
