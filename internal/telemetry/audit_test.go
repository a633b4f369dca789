package telemetry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type publisherMock struct {
	mock.Mock
}

func (m *publisherMock) Publish(ctx context.Context, routingKey string, event any) error {
	args := m.Called(ctx, routingKey, event)
	return args.Error(0)
}

func TestEmitBuildsEnvelope(t *testing.T) {
	pub := &publisherMock{}
	emitter := NewAuditEmitter(pub, "whatsapp-lite", "test", zap.NewNop())
	emitter.now = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }

	var got AuditEnvelope
	pub.On("Publish", mock.Anything, AuditRoutingKey, mock.AnythingOfType("telemetry.AuditEnvelope")).
		Run(func(args mock.Arguments) { got = args.Get(2).(AuditEnvelope) }).
		Return(nil)

	emitter.Emit(context.Background(), "info", "message deleted", "req-1", 7, map[string]any{"message_id": int64(3)})

	pub.AssertExpectations(t)
	require.NotNil(t, got.UserID)
	assert.Equal(t, "7", *got.UserID)
	assert.Equal(t, "audit_log", got.EventType)
	assert.Equal(t, "2024-01-02T03:04:05Z", got.OccurredAt)
	assert.Equal(t, "message deleted", got.Payload.Text)
	assert.Equal(t, int64(3), got.Payload.Fields["message_id"])
}

func TestEmitAnonymousAndPublishFailure(t *testing.T) {
	pub := &publisherMock{}
	emitter := NewAuditEmitter(pub, "whatsapp-lite", "test", zap.NewNop())

	pub.On("Publish", mock.Anything, AuditRoutingKey, mock.MatchedBy(func(env AuditEnvelope) bool {
		return env.UserID == nil
	})).Return(errors.New("broker down"))

	assert.NotPanics(t, func() {
		emitter.Emit(context.Background(), "error", "audit test", "", 0, nil)
	})
	pub.AssertExpectations(t)
}

func TestEmitNilEmitterIsNoop(t *testing.T) {
	var emitter *AuditEmitter
	assert.NotPanics(t, func() {
		emitter.Emit(context.Background(), "info", "x", "", 1, nil)
	})
}
