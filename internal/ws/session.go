package ws

import (
	"context"
	"time"

	"go.uber.org/zap"

	"whatsapp-lite/internal/events"
	"whatsapp-lite/internal/observability"
	"whatsapp-lite/internal/presence"
)

// PresenceStore persists the online flag on presence transitions.
type PresenceStore interface {
	SetOnline(ctx context.Context, userID int64, online bool) error
}

// Sessions ties a connection's lifetime to the registry, the hub and the stored online flag.
type Sessions struct {
	registry *presence.Registry
	hub      *Hub
	store    PresenceStore
	events   *observability.Events
	logger   *zap.Logger
	now      func() time.Time
}

func NewSessions(registry *presence.Registry, hub *Hub, store PresenceStore, ev *observability.Events, logger *zap.Logger) *Sessions {
	return &Sessions{
		registry: registry,
		hub:      hub,
		store:    store,
		events:   ev,
		logger:   logger,
		now:      time.Now,
	}
}

// Connect registers c. The user's first session flips them online and tells everyone else.
// Transitions of one user are serialized so the stored flag and the broadcasts follow registry order.
func (s *Sessions) Connect(ctx context.Context, c *Client) {
	info := c.Info()
	unlock := s.registry.LockUser(info.UserID)
	defer unlock()

	s.hub.Register(c)
	_, first := s.registry.Add(info.UserID, info.Username, c)

	observability.IncWSActive()
	observability.IncWSEvent("in", "connect")
	observability.SetOnlineUsers(s.registry.Count())
	s.events.Publish(ctx, observability.RoutingWSConnect, "ws", "ws_connect", lifecyclePayload(info, "connect", ""))

	s.logger.Info("ws connected",
		zap.String("conn_id", info.ConnID),
		zap.Int64("user_id", info.UserID),
		zap.Bool("first_session", first),
	)

	if !first {
		return
	}
	if err := s.store.SetOnline(ctx, info.UserID, true); err != nil {
		s.logger.Warn("persist online failed", zap.Int64("user_id", info.UserID), zap.Error(err))
	}
	s.hub.Apply(ctx, c, events.Notify(events.Others(), events.UserOnline, events.PresencePayload{
		UserID:   info.UserID,
		Username: info.Username,
	}))
}

// Disconnect removes c. The user's last session flips them offline and tells everyone else.
func (s *Sessions) Disconnect(ctx context.Context, c *Client, reason string) {
	info := c.Info()
	unlock := s.registry.LockUser(info.UserID)
	defer unlock()

	s.hub.Unregister(c)
	last := s.registry.Remove(info.UserID, info.ConnID)

	observability.DecWSActive()
	observability.IncWSEvent("in", "disconnect")
	observability.SetOnlineUsers(s.registry.Count())
	s.events.Publish(ctx, observability.RoutingWSDisconnect, "ws", "ws_disconnect", lifecyclePayload(info, "disconnect", reason))

	s.logger.Info("ws disconnected",
		zap.String("conn_id", info.ConnID),
		zap.Int64("user_id", info.UserID),
		zap.String("reason", reason),
		zap.Bool("last_session", last),
	)

	if !last {
		return
	}
	if err := s.store.SetOnline(ctx, info.UserID, false); err != nil {
		s.logger.Warn("persist offline failed", zap.Int64("user_id", info.UserID), zap.Error(err))
	}
	lastSeen := s.now().UTC()
	s.hub.Broadcast(ctx, events.Notify(events.Others(), events.UserOffline, events.PresencePayload{
		UserID:   info.UserID,
		Username: info.Username,
		LastSeen: &lastSeen,
	}))
}
