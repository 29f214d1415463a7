package realtime

import (
	"context"
	"encoding/json"
	"sync"
)

// SubscriptionOptions configures a ChangeEventRouter. At least one callback
// must be set; the router registers exactly one subscription per requested
// event type.
type SubscriptionOptions struct {
	Table  string
	Schema string // defaults to "public"
	Filter func(new, old json.RawMessage) bool

	OnInsert func(row json.RawMessage)
	OnUpdate func(newRow, oldRow json.RawMessage)
	OnDelete func(oldRow json.RawMessage)
	OnAll    func(ev ChangeEvent)
}

// ChangeEventRouter subscribes a supervised channel to table-change
// notifications and demultiplexes them to typed callbacks. Registrations do
// not survive channel recreation, so the router re-arms itself on the
// supervisor's reconnect signal.
type ChangeEventRouter struct {
	supervisor *ConnectionSupervisor
	opts       SubscriptionOptions

	mu        sync.Mutex
	listening bool
	armedGen  int
	err       string
}

// NewChangeEventRouter wires a router to a supervisor. The router installs
// itself as an event listener immediately; StartListening gates delivery.
func NewChangeEventRouter(sup *ConnectionSupervisor, opts SubscriptionOptions) *ChangeEventRouter {
	if opts.Schema == "" {
		opts.Schema = "public"
	}
	r := &ChangeEventRouter{supervisor: sup, opts: opts}
	sup.OnEvent(r.handleEvent)
	return r
}

// StartListening begins routing change events. Calling it while already
// listening is a no-op.
func (r *ChangeEventRouter) StartListening() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listening {
		return
	}
	r.listening = true
	// Registrations are bound to the current channel incarnation; a
	// recreated channel needs a fresh StartListening.
	r.armedGen = r.supervisor.currentGeneration()
}

// StopListening stops routing change events. Calling it while not listening
// is a no-op.
func (r *ChangeEventRouter) StopListening() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.listening {
		return
	}
	r.listening = false
}

// IsListening reports whether change events are currently routed.
func (r *ChangeEventRouter) IsListening() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.listening
}

// Err returns the last channel error surfaced to the router, empty when
// healthy. Errors are stored rather than returned; callers poll Err.
func (r *ChangeEventRouter) Err() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != "" {
		return r.err
	}
	return r.supervisor.Err()
}

// Rearm restores the subscription after the supervisor reconnected. Intended
// to be used as the supervisor's OnReconnect callback.
func (r *ChangeEventRouter) Rearm() {
	r.mu.Lock()
	wasListening := r.listening
	r.listening = false
	r.mu.Unlock()
	if wasListening {
		r.StartListening()
	}
}

func (r *ChangeEventRouter) handleEvent(ev Event) {
	switch e := ev.(type) {
	case SystemEvent:
		if e.Kind == "error" && e.Err != nil {
			r.mu.Lock()
			r.err = e.Err.Error()
			r.mu.Unlock()
		}
	case ChangeEvent:
		r.route(e)
	}
}

func (r *ChangeEventRouter) route(ev ChangeEvent) {
	r.mu.Lock()
	listening := r.listening
	armedGen := r.armedGen
	r.mu.Unlock()
	if !listening || armedGen != r.supervisor.currentGeneration() {
		return
	}
	if ev.Table != r.opts.Table {
		return
	}
	if r.opts.Filter != nil && !r.opts.Filter(ev.New, ev.Old) {
		return
	}

	// The generic callback always runs before the type-specific one for the
	// same event.
	if r.opts.OnAll != nil {
		r.opts.OnAll(ev)
	}

	switch ev.Type {
	case ChangeInsert:
		if r.opts.OnInsert != nil && ev.New != nil {
			r.opts.OnInsert(ev.New)
		}
	case ChangeUpdate:
		// Old may be nil; servers are not required to replay the prior row.
		if r.opts.OnUpdate != nil && ev.New != nil {
			r.opts.OnUpdate(ev.New, ev.Old)
		}
	case ChangeDelete:
		if r.opts.OnDelete != nil && ev.Old != nil {
			r.opts.OnDelete(ev.Old)
		}
	}
}

// Listen is a convenience that connects the supervisor and starts routing.
// Connect runs first so StartListening binds to the live channel.
func (r *ChangeEventRouter) Listen(ctx context.Context) {
	if r.supervisor.Status() != StatusConnected {
		r.supervisor.Connect(ctx)
	}
	r.StartListening()
}
