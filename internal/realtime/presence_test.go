package realtime

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPresenceFixture(t *testing.T) (*PresenceAggregator, *fakeChannel) {
	return newFilteredPresenceFixture(t, AggregatorOptions{})
}

func newFilteredPresenceFixture(t *testing.T, opts AggregatorOptions) (*PresenceAggregator, *fakeChannel) {
	t.Helper()
	dialer := &fakeDialer{}
	sup := NewSupervisor(dialer, "workspace:w1", SupervisorOptions{})
	agg := NewPresenceAggregator(sup, PresenceUser{ID: "me", Status: "online"}, opts)
	require.NoError(t, agg.Connect(context.Background()))
	return agg, dialer.lastChannel()
}

func waitForUser(t *testing.T, agg *PresenceAggregator, id string, check func(PresenceUser) bool) {
	t.Helper()
	require.Eventually(t, func() bool {
		u, ok := agg.Get(id)
		return ok && check(u)
	}, time.Second, 5*time.Millisecond)
}

func TestPresenceConnectAnnouncesLocalUser(t *testing.T) {
	_, ch := newPresenceFixture(t)
	require.Len(t, ch.tracked, 1)
	assert.Equal(t, "me", ch.tracked[0].ID)
	assert.Equal(t, "online", ch.tracked[0].Status)
}

func TestPresenceSyncReplacesStateFirstEntryWins(t *testing.T) {
	agg, ch := newPresenceFixture(t)

	ch.emit(PresenceEvent{Kind: PresenceJoin, Joins: []Presence{{ID: "stale"}}})
	waitForUser(t, agg, "stale", func(PresenceUser) bool { return true })

	ch.emit(PresenceEvent{Kind: PresenceSync, State: map[string][]Presence{
		"u1": {{ID: "u1", Status: "busy"}, {ID: "u1", Status: "away"}},
		"u2": {{ID: "u2", Status: "online"}},
	}})

	waitForUser(t, agg, "u1", func(u PresenceUser) bool { return u.Status == "busy" })
	_, ok := agg.Get("stale")
	assert.False(t, ok, "sync is a full replacement")
	assert.Len(t, agg.Users(), 2)
}

func TestPresenceJoinOverwrites(t *testing.T) {
	agg, ch := newPresenceFixture(t)

	ch.emit(PresenceEvent{Kind: PresenceJoin, Joins: []Presence{{ID: "u1", Status: "online"}}})
	waitForUser(t, agg, "u1", func(u PresenceUser) bool { return u.Status == "online" })

	ch.emit(PresenceEvent{Kind: PresenceJoin, Joins: []Presence{{ID: "u1", Status: "busy"}}})
	waitForUser(t, agg, "u1", func(u PresenceUser) bool { return u.Status == "busy" })
}

func TestPresenceLeaveMarksOfflineNeverDeletes(t *testing.T) {
	agg, ch := newPresenceFixture(t)

	ch.emit(PresenceEvent{Kind: PresenceJoin, Joins: []Presence{{ID: "u1", Status: "online"}}})
	waitForUser(t, agg, "u1", func(u PresenceUser) bool { return u.Status == "online" })

	ch.emit(PresenceEvent{Kind: PresenceLeave, Leaves: []Presence{{ID: "u1"}}})
	waitForUser(t, agg, "u1", func(u PresenceUser) bool { return u.Status == "offline" })

	u, ok := agg.Get("u1")
	require.True(t, ok, "a left user stays in the map")
	assert.False(t, u.LastSeen.IsZero())
}

func TestPresenceLeaveForUnknownUserIsNoop(t *testing.T) {
	agg, ch := newPresenceFixture(t)

	ch.emit(PresenceEvent{Kind: PresenceLeave, Leaves: []Presence{{ID: "ghost"}}})
	time.Sleep(20 * time.Millisecond)
	_, ok := agg.Get("ghost")
	assert.False(t, ok)
}

func TestPresenceParticipantRowCorroborates(t *testing.T) {
	agg, ch := newPresenceFixture(t)

	joinedAt := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)
	row, err := json.Marshal(map[string]any{
		"user_id":   "u1",
		"joined_at": joinedAt,
	})
	require.NoError(t, err)

	ch.emit(ChangeEvent{Type: ChangeInsert, Table: "room_participants", New: row})
	waitForUser(t, agg, "u1", func(u PresenceUser) bool {
		return u.Status == "online" && u.LastSeen.Equal(joinedAt)
	})

	ch.emit(ChangeEvent{Type: ChangeDelete, Table: "room_participants", Old: row})
	waitForUser(t, agg, "u1", func(u PresenceUser) bool {
		return u.Status == "offline" && u.LastSeen.After(joinedAt)
	})
}

func TestPresenceIgnoresOtherTables(t *testing.T) {
	agg, ch := newPresenceFixture(t)

	row := json.RawMessage(`{"user_id":"u9","joined_at":"2026-02-10T12:00:00Z"}`)
	ch.emit(ChangeEvent{Type: ChangeInsert, Table: "chat_messages", New: row})
	time.Sleep(20 * time.Millisecond)
	_, ok := agg.Get("u9")
	assert.False(t, ok)
}

// The three signal sources race; whichever lands last wins, and no
// interleaving ever removes an entry.
func TestPresenceInterleavingLastArrivalWins(t *testing.T) {
	agg, ch := newPresenceFixture(t)

	joinedAt := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)
	row, _ := json.Marshal(map[string]any{"user_id": "u1", "joined_at": joinedAt})

	ch.emit(PresenceEvent{Kind: PresenceJoin, Joins: []Presence{{ID: "u1", Status: "busy"}}})
	ch.emit(ChangeEvent{Type: ChangeInsert, Table: "room_participants", New: row})
	ch.emit(PresenceEvent{Kind: PresenceLeave, Leaves: []Presence{{ID: "u1"}}})
	ch.emit(PresenceEvent{Kind: PresenceJoin, Joins: []Presence{{ID: "u1", Status: "away"}}})

	waitForUser(t, agg, "u1", func(u PresenceUser) bool { return u.Status == "away" })
	assert.Len(t, agg.Users(), 1)
}

func TestPresenceOnlyFilterLimitsAggregation(t *testing.T) {
	agg, ch := newFilteredPresenceFixture(t, AggregatorOptions{Only: []string{"u1", "u2"}})

	ch.emit(PresenceEvent{Kind: PresenceJoin, Joins: []Presence{
		{ID: "u1", Status: "online"},
		{ID: "u3", Status: "online"},
	}})
	waitForUser(t, agg, "u1", func(u PresenceUser) bool { return u.Status == "online" })
	_, ok := agg.Get("u3")
	assert.False(t, ok, "filtered-out join aggregated")

	row := json.RawMessage(`{"user_id":"u4","joined_at":"2026-02-10T12:00:00Z"}`)
	ch.emit(ChangeEvent{Type: ChangeInsert, Table: "room_participants", New: row})

	ch.emit(PresenceEvent{Kind: PresenceSync, State: map[string][]Presence{
		"u2": {{ID: "u2", Status: "busy"}},
		"u5": {{ID: "u5", Status: "online"}},
	}})
	waitForUser(t, agg, "u2", func(u PresenceUser) bool { return u.Status == "busy" })

	assert.Len(t, agg.Users(), 1)
	for _, id := range []string{"u3", "u4", "u5"} {
		_, ok := agg.Get(id)
		assert.False(t, ok, id)
	}
}

func TestPresenceUpdateStatusReannounces(t *testing.T) {
	agg, ch := newPresenceFixture(t)

	require.NoError(t, agg.UpdateStatus("busy"))
	require.Len(t, ch.tracked, 2)
	assert.Equal(t, "busy", ch.tracked[1].Status)
}

func TestPresenceCloseUntracks(t *testing.T) {
	agg, ch := newPresenceFixture(t)

	agg.Close()
	assert.Equal(t, 1, ch.untracks)
	assert.True(t, ch.closed)
}
