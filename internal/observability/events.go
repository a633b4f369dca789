package observability

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Routing keys on the events exchange.
const (
	RoutingWSConnect      = "ws_events.connect"
	RoutingWSDisconnect   = "ws_events.disconnect"
	RoutingWSError        = "ws_events.error"
	RoutingMessageSent    = "messages.sent"
	RoutingMessageEdited  = "messages.edited"
	RoutingMessageDeleted = "messages.deleted"
)

type EventEnvelope struct {
	EventType  string      `json:"event_type"`
	EventName  string      `json:"event_name"`
	OccurredAt string      `json:"occurred_at"`
	Payload    interface{} `json:"payload"`
}

type Publisher interface {
	Publish(ctx context.Context, routingKey string, event any) error
}

// Events publishes domain events. A nil *Events drops everything.
type Events struct {
	publisher Publisher
	logger    *zap.Logger
}

func NewEvents(publisher Publisher, logger *zap.Logger) *Events {
	return &Events{publisher: publisher, logger: logger}
}

// Publish wraps payload in an envelope and sends it. Failures are counted and logged, never returned.
func (e *Events) Publish(ctx context.Context, routingKey, eventType, eventName string, payload interface{}) {
	if e == nil || e.publisher == nil {
		return
	}
	envelope := EventEnvelope{
		EventType:  eventType,
		EventName:  eventName,
		OccurredAt: time.Now().UTC().Format(time.RFC3339Nano),
		Payload:    payload,
	}
	if err := e.publisher.Publish(ctx, routingKey, envelope); err != nil {
		IncAMQPPublishError()
		e.logger.Warn("event publish failed", zap.String("routing_key", routingKey), zap.String("event_name", eventName), zap.Error(err))
	}
}
