package realtime

import "context"

// ConnectionStatus is the supervisor's view of a channel.
type ConnectionStatus string

const (
	StatusConnecting   ConnectionStatus = "CONNECTING"
	StatusConnected    ConnectionStatus = "CONNECTED"
	StatusDisconnected ConnectionStatus = "DISCONNECTED"
	StatusReconnecting ConnectionStatus = "RECONNECTING"
)

// Channel is one logical realtime subscription scope (one per room or
// workspace). Implementations deliver events on Events until Close.
type Channel interface {
	// Subscribe establishes the subscription. It returns only after the
	// server confirms, or with an error.
	Subscribe(ctx context.Context) error

	// Events returns the stream of typed events for this channel. The
	// channel is closed when the underlying transport goes away.
	Events() <-chan Event

	// Track announces the local user's presence on the channel.
	Track(p Presence) error

	// Untrack withdraws the local user's presence. Fire-and-forget: there
	// is no guarantee the announcement lands before Close.
	Untrack() error

	// PresenceState returns the channel's full presence snapshot, keyed by
	// presence key. Each key may carry multiple entries.
	PresenceState() map[string][]Presence

	Close() error
}

// Dialer opens channels by name ("room:{id}", "workspace:{id}").
type Dialer interface {
	Channel(name string) Channel
}
