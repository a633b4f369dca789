package ws

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"whatsapp-lite/internal/events"
	"whatsapp-lite/internal/observability"
	"whatsapp-lite/internal/presence"
)

// Peer is a connection the hub can deliver frames to.
type Peer interface {
	ConnID() string
	UserID() int64
	Enqueue(frame []byte) bool
}

// Hub tracks connections and room membership and routes outcomes to them.
type Hub struct {
	mu       sync.RWMutex
	peers    map[string]Peer
	rooms    map[string]map[string]Peer
	joined   map[string]map[string]struct{}
	registry *presence.Registry
	events   *observability.Events
	logger   *zap.Logger
}

func NewHub(registry *presence.Registry, ev *observability.Events, logger *zap.Logger) *Hub {
	return &Hub{
		peers:    make(map[string]Peer),
		rooms:    make(map[string]map[string]Peer),
		joined:   make(map[string]map[string]struct{}),
		registry: registry,
		events:   ev,
		logger:   logger,
	}
}

func (h *Hub) Register(p Peer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.peers[p.ConnID()] = p
}

// Unregister forgets the connection and removes it from every room it joined.
func (h *Hub) Unregister(p Peer) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := p.ConnID()
	for room := range h.joined[id] {
		h.leaveLocked(room, id)
	}
	delete(h.joined, id)
	delete(h.peers, id)
}

// Join adds p to room. Peers that are not registered, or were already unregistered, are ignored.
func (h *Hub) Join(room string, p Peer) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.peers[p.ConnID()]; !ok {
		return
	}
	members, ok := h.rooms[room]
	if !ok {
		members = make(map[string]Peer)
		h.rooms[room] = members
	}
	members[p.ConnID()] = p

	set, ok := h.joined[p.ConnID()]
	if !ok {
		set = make(map[string]struct{})
		h.joined[p.ConnID()] = set
	}
	set[room] = struct{}{}
}

func (h *Hub) Leave(room string, p Peer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(room, p.ConnID())
}

func (h *Hub) leaveLocked(room, connID string) {
	if members, ok := h.rooms[room]; ok {
		delete(members, connID)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	if set, ok := h.joined[connID]; ok {
		delete(set, room)
	}
}

// RoomSize is the number of connections joined to room.
func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// Apply performs the membership changes of out for caller and then sends every delivery.
// caller may be nil for outcomes produced outside a socket, such as REST sends.
func (h *Hub) Apply(ctx context.Context, caller Peer, out events.Outcome) {
	if caller != nil {
		if out.Leave != "" {
			h.Leave(out.Leave, caller)
		}
		if out.Join != "" {
			h.Join(out.Join, caller)
		}
	}

	for _, d := range out.Deliveries {
		frame, err := encodeFrame(d.Event, d.Payload)
		if err != nil {
			h.logger.Error("encode frame failed", zap.String("event", string(d.Event)), zap.Error(err))
			continue
		}
		for _, p := range h.targets(caller, d.Target) {
			h.send(ctx, p, d.Event, frame)
		}
	}
}

// Broadcast delivers an outcome that has no calling connection.
func (h *Hub) Broadcast(ctx context.Context, out events.Outcome) {
	h.Apply(ctx, nil, out)
}

func (h *Hub) targets(caller Peer, t events.Target) []Peer {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var out []Peer
	switch t.Kind {
	case events.ToRoom:
		for _, p := range h.rooms[t.Room] {
			out = append(out, p)
		}
	case events.ToUser:
		for _, entry := range h.registry.Sessions(t.UserID) {
			if p, ok := h.peers[entry.Handle.ConnID()]; ok {
				out = append(out, p)
			}
		}
	case events.ToCaller:
		if caller != nil {
			out = append(out, caller)
		}
	case events.ToOthers:
		for id, p := range h.peers {
			if caller != nil && id == caller.ConnID() {
				continue
			}
			out = append(out, p)
		}
	}
	return out
}

func (h *Hub) send(ctx context.Context, p Peer, event events.Name, frame []byte) {
	if p.Enqueue(frame) {
		observability.IncWSEvent("out", string(event))
		return
	}
	h.logger.Warn("ws delivery dropped",
		zap.String("conn_id", p.ConnID()),
		zap.Int64("user_id", p.UserID()),
		zap.String("event", string(event)),
	)
	payload := map[string]interface{}{
		"ws": map[string]interface{}{
			"event":   string(event),
			"conn_id": p.ConnID(),
			"reason":  "send_buffer_full",
		},
		"identity": map[string]interface{}{"user_id": p.UserID()},
	}
	h.events.Publish(ctx, observability.RoutingWSError, "ws", "ws_error", payload)
}
