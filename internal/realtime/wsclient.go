package realtime

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	subscribeWait  = 10 * time.Second
	eventQueueSize = 64
)

// WebsocketDialer opens channels over the /ws/{channel} endpoint. One
// dialer serves any number of channels; each Channel gets its own
// connection so a failing room channel never takes the workspace channel
// down with it.
type WebsocketDialer struct {
	BaseURL string // e.g. "ws://localhost:8083"
	Token   string // bearer token, passed as a query parameter
	Logger  *zap.Logger
}

// Channel implements Dialer.
func (d *WebsocketDialer) Channel(name string) Channel {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &wsChannel{
		dialer: d,
		name:   name,
		logger: logger,
		events: make(chan Event, eventQueueSize),
		state:  make(map[string][]Presence),
	}
}

type wsChannel struct {
	dialer *WebsocketDialer
	name   string
	logger *zap.Logger

	events chan Event

	mu     sync.Mutex
	conn   *websocket.Conn
	state  map[string][]Presence
	closed bool
}

func (c *wsChannel) Subscribe(ctx context.Context) error {
	u, err := url.Parse(c.dialer.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base url: %w", err)
	}
	u.Path = "/ws/" + c.name
	q := u.Query()
	if c.dialer.Token != "" {
		q.Set("token", c.dialer.Token)
	}
	u.RawQuery = q.Encode()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", c.name, err)
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	// The server confirms the subscription with a system frame before any
	// change or presence traffic.
	conn.SetReadDeadline(time.Now().Add(subscribeWait))
	var frame Frame
	if err := conn.ReadJSON(&frame); err != nil {
		conn.Close()
		return fmt.Errorf("subscribe %s: %w", c.name, err)
	}
	if frame.Type != "system" || frame.SystemEvent != "subscribed" {
		conn.Close()
		return fmt.Errorf("subscribe %s: unexpected frame %q", c.name, frame.Type)
	}

	go c.readPump(conn)
	go c.pingLoop(conn)
	return nil
}

func (c *wsChannel) Events() <-chan Event {
	return c.events
}

func (c *wsChannel) Track(p Presence) error {
	return c.writeFrame(Frame{Type: "track", Presence: &p})
}

func (c *wsChannel) Untrack() error {
	return c.writeFrame(Frame{Type: "untrack"})
}

func (c *wsChannel) PresenceState() map[string][]Presence {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string][]Presence, len(c.state))
	for k, v := range c.state {
		entries := make([]Presence, len(v))
		copy(entries, v)
		out[k] = entries
	}
	return out
}

func (c *wsChannel) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	conn := c.conn
	c.mu.Unlock()

	if conn != nil {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeWait))
		return conn.Close()
	}
	return nil
}

func (c *wsChannel) writeFrame(frame Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil || c.closed {
		return fmt.Errorf("channel %s is not connected", c.name)
	}
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(frame)
}

func (c *wsChannel) readPump(conn *websocket.Conn) {
	defer func() {
		conn.Close()
		close(c.events)
	}()

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var frame Frame
		if err := conn.ReadJSON(&frame); err != nil {
			c.mu.Lock()
			closed := c.closed
			c.mu.Unlock()
			if !closed {
				c.logger.Warn("channel read failed",
					zap.String("channel", c.name), zap.Error(err))
				c.deliver(SystemEvent{Kind: "disconnected", Err: err})
			}
			return
		}
		c.dispatch(frame)
	}
}

func (c *wsChannel) dispatch(frame Frame) {
	switch frame.Type {
	case "change":
		c.deliver(ChangeEvent{
			Type:  frame.Event,
			Table: frame.Table,
			New:   frame.New,
			Old:   frame.Old,
		})

	case "presence":
		ev := PresenceEvent{Kind: frame.PresenceEvent}
		switch frame.PresenceEvent {
		case PresenceSync:
			ev.State = frame.State
			c.mu.Lock()
			c.state = make(map[string][]Presence, len(frame.State))
			for k, v := range frame.State {
				c.state[k] = v
			}
			c.mu.Unlock()
		case PresenceJoin:
			ev.Joins = frame.Presences
			c.mu.Lock()
			for _, p := range frame.Presences {
				c.state[p.ID] = append(c.state[p.ID], p)
			}
			c.mu.Unlock()
		case PresenceLeave:
			ev.Leaves = frame.Presences
			c.mu.Lock()
			for _, p := range frame.Presences {
				delete(c.state, p.ID)
			}
			c.mu.Unlock()
		}
		c.deliver(ev)

	case "system":
		var err error
		if frame.Detail != "" {
			err = fmt.Errorf("%s", frame.Detail)
		}
		c.deliver(SystemEvent{Kind: frame.SystemEvent, Err: err})

	default:
		c.logger.Debug("dropping unknown frame",
			zap.String("channel", c.name), zap.String("type", frame.Type))
	}
}

// deliver never blocks the read pump: when the consumer falls behind the
// queue, the oldest event is dropped first.
func (c *wsChannel) deliver(ev Event) {
	select {
	case c.events <- ev:
	default:
		select {
		case <-c.events:
		default:
		}
		select {
		case c.events <- ev:
		default:
		}
	}
}

func (c *wsChannel) pingLoop(conn *websocket.Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for range ticker.C {
		c.mu.Lock()
		closed := c.closed
		c.mu.Unlock()
		if closed {
			return
		}
		if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
			return
		}
	}
}
