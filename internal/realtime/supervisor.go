package realtime

import (
	"context"
	"fmt"
	"sync"
	"time"
)

const (
	// DefaultMaxRetries bounds consecutive reconnection attempts.
	DefaultMaxRetries = 5
	// DefaultRetryInterval is the fixed delay between attempts. Deliberately
	// not exponential: status channels are cheap to re-open and a fixed
	// cadence keeps reconnection predictable.
	DefaultRetryInterval = 3 * time.Second
)

// SupervisorOptions configures a ConnectionSupervisor.
type SupervisorOptions struct {
	MaxRetries    int
	RetryInterval time.Duration
	// OnReconnect runs after every automatic reconnection attempt so the
	// caller can re-arm subscriptions. The supervisor never replays
	// registrations itself.
	OnReconnect func()
}

// ConnectionSupervisor owns one realtime channel's lifecycle: it tracks
// connection status and retries with a bounded, fixed-delay backoff. Events
// from the current channel are fanned out to registered listeners on a
// single pump goroutine.
type ConnectionSupervisor struct {
	dialer      Dialer
	channelName string
	opts        SupervisorOptions

	mu         sync.Mutex
	status     ConnectionStatus
	err        string
	retryCount int
	retryTimer *time.Timer
	channel    Channel
	generation int
	stopped    bool
	listeners  []func(Event)
}

// NewSupervisor creates a supervisor for the named channel. Connect must be
// called to open it.
func NewSupervisor(dialer Dialer, channelName string, opts SupervisorOptions) *ConnectionSupervisor {
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = DefaultMaxRetries
	}
	if opts.RetryInterval <= 0 {
		opts.RetryInterval = DefaultRetryInterval
	}
	return &ConnectionSupervisor{
		dialer:      dialer,
		channelName: channelName,
		opts:        opts,
		status:      StatusConnecting,
	}
}

// OnEvent registers a listener for every event delivered on the supervised
// channel. Listeners run on the pump goroutine in registration order.
func (s *ConnectionSupervisor) OnEvent(fn func(Event)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Status returns the current connection status.
func (s *ConnectionSupervisor) Status() ConnectionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Err returns the last connection error, empty when healthy.
func (s *ConnectionSupervisor) Err() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Connected reports whether the channel is currently subscribed.
func (s *ConnectionSupervisor) Connected() bool {
	return s.Status() == StatusConnected
}

// Channel returns the current channel, nil before the first Connect.
func (s *ConnectionSupervisor) Channel() Channel {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.channel
}

func (s *ConnectionSupervisor) currentGeneration() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

// Connect opens the channel and subscribes. On failure the retry cycle
// starts; Connect itself does not block on retries.
func (s *ConnectionSupervisor) Connect(ctx context.Context) {
	s.mu.Lock()
	s.stopped = false
	s.mu.Unlock()
	s.connect(ctx)
}

func (s *ConnectionSupervisor) connect(ctx context.Context) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	if s.channel != nil {
		s.channel.Close()
		s.channel = nil
	}
	s.status = StatusConnecting
	s.err = ""
	ch := s.dialer.Channel(s.channelName)
	s.channel = ch
	s.generation++
	gen := s.generation
	s.mu.Unlock()

	if err := ch.Subscribe(ctx); err != nil {
		s.mu.Lock()
		s.err = fmt.Sprintf("subscribe failed: %v", err)
		s.mu.Unlock()
		s.initiateReconnect(ctx)
		return
	}

	s.mu.Lock()
	if gen != s.generation || s.stopped {
		s.mu.Unlock()
		ch.Close()
		return
	}
	s.status = StatusConnected
	s.retryCount = 0
	if s.retryTimer != nil {
		s.retryTimer.Stop()
		s.retryTimer = nil
	}
	s.mu.Unlock()

	go s.pump(ctx, ch, gen)
}

// pump forwards channel events to listeners and watches for transport
// failure. A closed event stream from the current generation triggers the
// reconnect cycle.
func (s *ConnectionSupervisor) pump(ctx context.Context, ch Channel, gen int) {
	for ev := range ch.Events() {
		s.mu.Lock()
		stale := gen != s.generation || s.stopped
		listeners := make([]func(Event), len(s.listeners))
		copy(listeners, s.listeners)
		s.mu.Unlock()
		if stale {
			return
		}

		if sys, ok := ev.(SystemEvent); ok {
			switch sys.Kind {
			case "disconnected", "error":
				s.mu.Lock()
				s.status = StatusDisconnected
				if sys.Err != nil {
					s.err = fmt.Sprintf("realtime error: %v", sys.Err)
				}
				s.mu.Unlock()
			}
		}

		for _, fn := range listeners {
			fn(ev)
		}

		if sys, ok := ev.(SystemEvent); ok && (sys.Kind == "disconnected" || sys.Kind == "error") {
			s.initiateReconnect(ctx)
			return
		}
	}

	s.mu.Lock()
	stale := gen != s.generation || s.stopped
	if !stale {
		s.status = StatusDisconnected
	}
	s.mu.Unlock()
	if !stale {
		s.initiateReconnect(ctx)
	}
}

func (s *ConnectionSupervisor) initiateReconnect(ctx context.Context) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	if s.retryCount >= s.opts.MaxRetries {
		// Terminal: stay DISCONNECTED, schedule nothing. Reset() is the
		// only way out.
		s.status = StatusDisconnected
		s.err = fmt.Sprintf("maximum reconnection attempts reached (%d)", s.opts.MaxRetries)
		s.mu.Unlock()
		return
	}
	s.retryCount++
	s.status = StatusReconnecting
	if s.retryTimer != nil {
		s.retryTimer.Stop()
	}
	s.retryTimer = time.AfterFunc(s.opts.RetryInterval, func() {
		s.connect(ctx)
		if s.opts.OnReconnect != nil {
			s.opts.OnReconnect()
		}
	})
	s.mu.Unlock()
}

// Disconnect tears down the channel and cancels any pending retry timer.
// No timer fires after Disconnect returns.
func (s *ConnectionSupervisor) Disconnect() {
	s.mu.Lock()
	s.stopped = true
	s.generation++
	if s.retryTimer != nil {
		s.retryTimer.Stop()
		s.retryTimer = nil
	}
	ch := s.channel
	s.channel = nil
	s.status = StatusDisconnected
	s.mu.Unlock()

	if ch != nil {
		ch.Close()
	}
}

// Reset clears the retry budget and reconnects. Callers use it to revive a
// channel that went terminal.
func (s *ConnectionSupervisor) Reset(ctx context.Context) {
	s.Disconnect()
	s.mu.Lock()
	s.retryCount = 0
	s.err = ""
	s.stopped = false
	s.mu.Unlock()
	s.connect(ctx)
}
