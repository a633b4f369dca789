package ws

import (
	"context"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"whatsapp-lite/internal/apperr"
	"whatsapp-lite/internal/chat"
	"whatsapp-lite/internal/events"
	"whatsapp-lite/internal/models"
	"whatsapp-lite/internal/observability"
	"whatsapp-lite/internal/validation"
)

// ChatService is the part of chat.Service the socket layer drives.
type ChatService interface {
	JoinRoom(actor chat.Actor, other int64) (events.Outcome, error)
	LeaveRoom(actor chat.Actor, other int64) (events.Outcome, error)
	SendMessage(ctx context.Context, actor chat.Actor, in chat.SendInput) (models.Message, events.Outcome, error)
	Typing(actor chat.Actor, to int64, isTyping bool) events.Outcome
	MarkSeen(ctx context.Context, actor chat.Actor, other int64) (int64, events.Outcome, error)
	UpdateStatus(ctx context.Context, actor chat.Actor, messageID int64, status models.MessageStatus) (events.Outcome, error)
}

type handlerFunc func(ctx context.Context, actor chat.Actor, data json.RawMessage) (events.Outcome, error)

type route struct {
	handle   handlerFunc
	fallback string
	// quiet routes never answer with an error frame.
	quiet bool
}

// Dispatcher decodes inbound frames and runs the matching chat operation.
type Dispatcher struct {
	hub    *Hub
	routes map[events.Name]route
	logger *zap.Logger
}

func NewDispatcher(hub *Hub, svc ChatService, logger *zap.Logger) *Dispatcher {
	d := &Dispatcher{hub: hub, logger: logger}
	d.routes = map[events.Name]route{
		events.JoinChat: {
			fallback: "Failed to join chat",
			handle: decoded(func(_ context.Context, actor chat.Actor, p events.JoinChatPayload) (events.Outcome, error) {
				return svc.JoinRoom(actor, p.OtherUserID)
			}),
		},
		events.LeaveChat: {
			fallback: "Failed to leave chat",
			handle: decoded(func(_ context.Context, actor chat.Actor, p events.JoinChatPayload) (events.Outcome, error) {
				return svc.LeaveRoom(actor, p.OtherUserID)
			}),
		},
		events.SendMessage: {
			fallback: "Failed to send message",
			handle: decoded(func(ctx context.Context, actor chat.Actor, p events.SendMessagePayload) (events.Outcome, error) {
				_, out, err := svc.SendMessage(ctx, actor, chat.SendInput{
					To:    p.To,
					Type:  p.Type,
					Text:  p.Text,
					Image: p.ImageBase64,
				})
				return out, err
			}),
		},
		events.Typing: {
			quiet: true,
			handle: decoded(func(_ context.Context, actor chat.Actor, p events.TypingPayload) (events.Outcome, error) {
				return svc.Typing(actor, p.To, p.IsTyping), nil
			}),
		},
		events.MarkSeen: {
			fallback: "Failed to mark messages as seen",
			handle: decoded(func(ctx context.Context, actor chat.Actor, p events.MarkSeenPayload) (events.Outcome, error) {
				_, out, err := svc.MarkSeen(ctx, actor, p.From)
				return out, err
			}),
		},
		events.MessageDelivered: {
			fallback: "Failed to update message status",
			handle: decoded(func(ctx context.Context, actor chat.Actor, p events.MessageDeliveredPayload) (events.Outcome, error) {
				return svc.UpdateStatus(ctx, actor, p.MessageID, models.StatusDelivered)
			}),
		},
	}
	return d
}

// decoded adapts a typed handler: the payload is unmarshalled and validated first.
func decoded[T any](fn func(ctx context.Context, actor chat.Actor, payload T) (events.Outcome, error)) handlerFunc {
	return func(ctx context.Context, actor chat.Actor, data json.RawMessage) (events.Outcome, error) {
		var payload T
		if len(data) > 0 {
			if err := json.Unmarshal(data, &payload); err != nil {
				return events.Outcome{}, apperr.Validation("invalid payload")
			}
		}
		if err := validation.Struct(payload); err != nil {
			return events.Outcome{}, err
		}
		return fn(ctx, actor, payload)
	}
}

// Dispatch handles one raw frame from c. Failures are answered on c alone.
func (d *Dispatcher) Dispatch(ctx context.Context, c *Client, raw []byte) {
	info := c.Info()
	actor := chat.Actor{ID: info.UserID, Username: info.Username, RequestID: info.RequestID}

	frame, err := decodeFrame(raw)
	if err != nil {
		observability.IncWSEvent("in", "malformed")
		d.reply(ctx, c, apperr.Validation("malformed frame"), "Invalid message")
		return
	}
	observability.IncWSEvent("in", string(frame.Event))

	r, ok := d.routes[frame.Event]
	if !ok {
		d.reply(ctx, c, apperr.Validation("unknown event: "+string(frame.Event)), "Unknown event")
		return
	}

	out, err := r.handle(ctx, actor, frame.Data)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindInfrastructure {
			d.logger.Error("ws event failed",
				zap.String("event", string(frame.Event)),
				zap.String("conn_id", info.ConnID),
				zap.Int64("user_id", info.UserID),
				zap.Error(err),
			)
		}
		if !r.quiet {
			d.reply(ctx, c, err, r.fallback)
		}
		return
	}
	d.hub.Apply(ctx, c, out)
}

func (d *Dispatcher) reply(ctx context.Context, c *Client, err error, fallback string) {
	d.hub.Apply(ctx, c, events.Notify(events.Caller(), events.Error, events.ErrorPayload{
		Message: apperr.PublicMessage(err, fallback),
	}))
}
