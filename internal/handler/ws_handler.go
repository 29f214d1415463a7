// internal/handler/ws_handler.go
package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"nimbo/internal/database"
	"nimbo/internal/middleware"
	"nimbo/internal/realtime"
	"nimbo/internal/repository"
	"nimbo/internal/service"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 8192
)

var upgrader = websocket.Upgrader{
	CheckOrigin:     func(r *http.Request) bool { return true },
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

type wsClient struct {
	conn    *websocket.Conn
	send    chan []byte
	channel string
	userID  uuid.UUID
	hub     *Hub
	tracked bool
}

// Hub fans realtime frames out to the websocket clients of each logical
// channel. Change frames arrive over Redis so every replica sees them;
// presence frames originate from the clients themselves via track/untrack.
type Hub struct {
	logger *zap.Logger

	mu       sync.RWMutex
	channels map[string]map[*wsClient]bool
	presence map[string]map[string][]realtime.Presence // channel -> key -> entries
	cancels  map[string]context.CancelFunc             // channel -> redis subscription

	register   chan *wsClient
	unregister chan *wsClient
}

func newHub(logger *zap.Logger) *Hub {
	h := &Hub{
		logger:     logger,
		channels:   make(map[string]map[*wsClient]bool),
		presence:   make(map[string]map[string][]realtime.Presence),
		cancels:    make(map[string]context.CancelFunc),
		register:   make(chan *wsClient),
		unregister: make(chan *wsClient),
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if h.channels[client.channel] == nil {
				h.channels[client.channel] = make(map[*wsClient]bool)
				h.subscribeRedisLocked(client.channel)
			}
			h.channels[client.channel][client] = true
			h.mu.Unlock()

			middleware.RecordWebSocketConnection()
			h.logger.Info("Channel client registered",
				zap.String("channel", client.channel),
				zap.String("user_id", client.userID.String()))

		case client := <-h.unregister:
			h.mu.Lock()
			clients, ok := h.channels[client.channel]
			if ok {
				if _, exists := clients[client]; exists {
					delete(clients, client)
					close(client.send)
					if len(clients) == 0 {
						delete(h.channels, client.channel)
						if cancel, ok := h.cancels[client.channel]; ok {
							cancel()
							delete(h.cancels, client.channel)
						}
						delete(h.presence, client.channel)
					}
				}
			}
			h.mu.Unlock()

			if ok {
				middleware.RecordWebSocketDisconnection()
				// A vanished client implies an untrack.
				if client.tracked {
					h.untrack(client.channel, client.userID.String())
				}
			}
		}
	}
}

// subscribeRedisLocked starts the Redis fan-in for a channel. Caller holds
// h.mu.
func (h *Hub) subscribeRedisLocked(channel string) {
	ctx, cancel := context.WithCancel(context.Background())
	h.cancels[channel] = cancel

	sub := database.SubscribeChannelEvents(ctx, channel)
	if sub == nil {
		h.logger.Warn("redis unavailable, channel runs single-replica", zap.String("channel", channel))
		return
	}

	go func() {
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				h.broadcast(channel, []byte(msg.Payload))
			}
		}
	}()
}

func (h *Hub) broadcast(channel string, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.channels[channel] {
		select {
		case client.send <- payload:
		default:
			// Slow consumer; the write pump will notice the closed conn.
		}
	}
}

// track records a presence announcement and broadcasts the join. A repeat
// track from the same key overwrites the previous entry.
func (h *Hub) track(channel string, p realtime.Presence) {
	h.mu.Lock()
	if h.presence[channel] == nil {
		h.presence[channel] = make(map[string][]realtime.Presence)
	}
	h.presence[channel][p.ID] = []realtime.Presence{p}
	h.mu.Unlock()

	frame := realtime.Frame{
		Type:          "presence",
		PresenceEvent: realtime.PresenceJoin,
		Presences:     []realtime.Presence{p},
	}
	if payload, err := json.Marshal(frame); err == nil {
		h.publish(channel, payload)
	}
}

func (h *Hub) untrack(channel, key string) {
	h.mu.Lock()
	state, ok := h.presence[channel]
	var left []realtime.Presence
	if ok {
		left = state[key]
		delete(state, key)
	}
	h.mu.Unlock()
	if len(left) == 0 {
		left = []realtime.Presence{{ID: key, LastSeen: time.Now().UTC()}}
	}

	frame := realtime.Frame{
		Type:          "presence",
		PresenceEvent: realtime.PresenceLeave,
		Presences:     left,
	}
	if payload, err := json.Marshal(frame); err == nil {
		h.publish(channel, payload)
	}
}

// publish pushes a frame through Redis when available so every replica's
// clients see it, falling back to the local channel set.
func (h *Hub) publish(channel string, payload []byte) {
	if err := database.PublishChannelEvent(context.Background(), channel, payload); err != nil {
		h.broadcast(channel, payload)
	}
}

func (h *Hub) presenceSnapshot(channel string) map[string][]realtime.Presence {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make(map[string][]realtime.Presence, len(h.presence[channel]))
	for k, v := range h.presence[channel] {
		entries := make([]realtime.Presence, len(v))
		copy(entries, v)
		out[k] = entries
	}
	return out
}

// WSHandler upgrades /ws/:channel requests and authorizes channel access.
type WSHandler struct {
	logger    *zap.Logger
	workspace service.WorkspaceService
	roomRepo  repository.RoomRepository
	hub       *Hub
}

func NewWSHandler(logger *zap.Logger, workspace service.WorkspaceService, roomRepo repository.RoomRepository) *WSHandler {
	return &WSHandler{
		logger:    logger,
		workspace: workspace,
		roomRepo:  roomRepo,
		hub:       newHub(logger),
	}
}

// Serve handles GET /ws/:channel. The channel name is "workspace:{id}" or
// "room:{id}"; access requires membership of the (room's) workspace.
func (h *WSHandler) Serve(c *gin.Context) {
	userID, ok := authedUser(c)
	if !ok {
		return
	}
	channel := c.Param("channel")

	if err := h.authorize(userID, channel); err != nil {
		respondServiceError(c, err)
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := &wsClient{
		conn:    conn,
		send:    make(chan []byte, 256),
		channel: channel,
		userID:  userID,
		hub:     h.hub,
	}
	h.hub.register <- client

	// Confirm the subscription, then hand the client its presence snapshot.
	h.sendFrame(client, realtime.Frame{Type: "system", SystemEvent: "subscribed"})
	h.sendFrame(client, realtime.Frame{
		Type:          "presence",
		PresenceEvent: realtime.PresenceSync,
		State:         h.hub.presenceSnapshot(channel),
	})

	go client.writePump()
	go client.readPump()
}

func (h *WSHandler) sendFrame(client *wsClient, frame realtime.Frame) {
	payload, err := json.Marshal(frame)
	if err != nil {
		return
	}
	select {
	case client.send <- payload:
	default:
	}
}

func (h *WSHandler) authorize(userID uuid.UUID, channel string) error {
	scope, rawID, found := strings.Cut(channel, ":")
	if !found {
		return service.ErrNotFound
	}
	id, err := uuid.Parse(rawID)
	if err != nil {
		return service.ErrNotFound
	}

	switch scope {
	case "workspace":
		_, err := h.workspace.EffectiveRole(userID, id)
		return err
	case "room":
		room, err := h.roomRepo.GetByID(id)
		if err != nil {
			return service.ErrNotFound
		}
		_, err = h.workspace.EffectiveRole(userID, room.WorkspaceID)
		return err
	default:
		return service.ErrNotFound
	}
}

func (c *wsClient) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var frame realtime.Frame
		if err := c.conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("websocket read error",
					zap.String("channel", c.channel), zap.Error(err))
			}
			return
		}

		switch frame.Type {
		case "track":
			if frame.Presence == nil {
				continue
			}
			p := *frame.Presence
			// Clients only speak for themselves.
			p.ID = c.userID.String()
			if p.LastSeen.IsZero() {
				p.LastSeen = time.Now().UTC()
			}
			c.tracked = true
			c.hub.track(c.channel, p)
		case "untrack":
			c.tracked = false
			c.hub.untrack(c.channel, c.userID.String())
		}
	}
}

func (c *wsClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
