// Package realtime implements the client-side synchronization core: a
// connection supervisor, a typed change-event router, a presence
// aggregator, an entity store and a room lifecycle coordinator, all wired
// to an injected transport rather than a global client.
package realtime

import (
	"encoding/json"
	"time"
)

// ChangeType identifies a row-level database change.
type ChangeType string

const (
	ChangeInsert ChangeType = "INSERT"
	ChangeUpdate ChangeType = "UPDATE"
	ChangeDelete ChangeType = "DELETE"
)

// PresenceKind identifies a presence-protocol event.
type PresenceKind string

const (
	PresenceSync  PresenceKind = "sync"
	PresenceJoin  PresenceKind = "join"
	PresenceLeave PresenceKind = "leave"
)

// Presence is the payload a client announces on a channel.
type Presence struct {
	ID       string    `json:"id"`
	Status   string    `json:"status,omitempty"`
	LastSeen time.Time `json:"lastSeen,omitempty"`
}

// Frame is the JSON envelope exchanged on a realtime channel. Exactly one
// of the kind-specific field groups is populated, selected by Type.
type Frame struct {
	Type string `json:"type"` // "change", "presence", "system", "track", "untrack"

	// change frames
	Event ChangeType      `json:"event,omitempty"`
	Table string          `json:"table,omitempty"`
	New   json.RawMessage `json:"new,omitempty"`
	Old   json.RawMessage `json:"old,omitempty"`

	// presence frames
	PresenceEvent PresenceKind          `json:"presence_event,omitempty"`
	Presence      *Presence             `json:"presence,omitempty"`
	Presences     []Presence            `json:"presences,omitempty"`
	State         map[string][]Presence `json:"state,omitempty"` // full snapshot on sync

	// system frames
	SystemEvent string `json:"system_event,omitempty"` // "subscribed", "disconnected", "error"
	Detail      string `json:"detail,omitempty"`
}

// Event is a typed event delivered by a Channel. Concrete types:
// ChangeEvent, PresenceEvent, SystemEvent.
type Event interface {
	isEvent()
}

// ChangeEvent is a row-level database change routed from the server.
type ChangeEvent struct {
	Type  ChangeType
	Table string
	New   json.RawMessage
	Old   json.RawMessage
}

// PresenceEvent is a presence-protocol event. Joins/Leaves carry the delta;
// State carries the full snapshot on sync.
type PresenceEvent struct {
	Kind   PresenceKind
	Joins  []Presence
	Leaves []Presence
	State  map[string][]Presence
}

// SystemEvent signals channel lifecycle transitions.
type SystemEvent struct {
	Kind string
	Err  error
}

func (ChangeEvent) isEvent()   {}
func (PresenceEvent) isEvent() {}
func (SystemEvent) isEvent()   {}
