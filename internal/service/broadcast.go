package service

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"nimbo/internal/database"
	"nimbo/internal/realtime"
)

// EventPublisher fans row-level changes out to realtime channels after a
// successful mutation. Publishing is best-effort: a lost event degrades
// freshness, never correctness, because clients refetch on reconnect.
type EventPublisher interface {
	PublishChange(ctx context.Context, channels []string, event realtime.ChangeType, table string, newRow, oldRow any)
	PublishPresence(ctx context.Context, channels []string, kind realtime.PresenceKind, presences []realtime.Presence)
}

type redisPublisher struct {
	logger *zap.Logger
}

// NewRedisPublisher returns an EventPublisher backed by Redis pub/sub.
func NewRedisPublisher(logger *zap.Logger) EventPublisher {
	return &redisPublisher{logger: logger}
}

func (p *redisPublisher) PublishChange(ctx context.Context, channels []string, event realtime.ChangeType, table string, newRow, oldRow any) {
	frame := realtime.Frame{Type: "change", Event: event, Table: table}
	if newRow != nil {
		raw, err := json.Marshal(newRow)
		if err != nil {
			p.logger.Error("failed to encode change row", zap.String("table", table), zap.Error(err))
			return
		}
		frame.New = raw
	}
	if oldRow != nil {
		raw, err := json.Marshal(oldRow)
		if err != nil {
			p.logger.Error("failed to encode change row", zap.String("table", table), zap.Error(err))
			return
		}
		frame.Old = raw
	}

	payload, err := json.Marshal(frame)
	if err != nil {
		p.logger.Error("failed to encode change frame", zap.String("table", table), zap.Error(err))
		return
	}
	for _, channel := range channels {
		if err := database.PublishChannelEvent(ctx, channel, payload); err != nil {
			p.logger.Warn("failed to publish change event",
				zap.String("channel", channel),
				zap.String("table", table),
				zap.Error(err))
		}
	}
}

func (p *redisPublisher) PublishPresence(ctx context.Context, channels []string, kind realtime.PresenceKind, presences []realtime.Presence) {
	frame := realtime.Frame{Type: "presence", PresenceEvent: kind, Presences: presences}
	payload, err := json.Marshal(frame)
	if err != nil {
		p.logger.Error("failed to encode presence frame", zap.Error(err))
		return
	}
	for _, channel := range channels {
		if err := database.PublishChannelEvent(ctx, channel, payload); err != nil {
			p.logger.Warn("failed to publish presence event",
				zap.String("channel", channel), zap.Error(err))
		}
	}
}

// NopPublisher discards events. Used in tests and when Redis is unavailable.
type NopPublisher struct{}

func (NopPublisher) PublishChange(context.Context, []string, realtime.ChangeType, string, any, any) {
}

func (NopPublisher) PublishPresence(context.Context, []string, realtime.PresenceKind, []realtime.Presence) {
}
