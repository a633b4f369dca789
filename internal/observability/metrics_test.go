package observability

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestHTTPMetricsMiddlewareCountsByRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(HTTPMetricsMiddleware())
	router.GET("/api/users/:id", func(c *gin.Context) { c.Status(http.StatusTeapot) })

	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodGet, "/api/users/:id", "418"))
	req := httptest.NewRequest(http.MethodGet, "/api/users/42", nil)
	router.ServeHTTP(httptest.NewRecorder(), req)

	after := testutil.ToFloat64(httpRequestsTotal.WithLabelValues(http.MethodGet, "/api/users/:id", "418"))
	assert.Equal(t, before+1, after)
}

func TestMetricsHandlerExposesRegistry(t *testing.T) {
	IncMessageSent("text")
	rec := httptest.NewRecorder()
	MetricsHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "chat_messages_sent_total"))
}

func TestGRPCInterceptorRecordsCode(t *testing.T) {
	interceptor := GRPCServerMetricsUnaryInterceptor()
	info := &grpc.UnaryServerInfo{FullMethod: "/grpc.health.v1.Health/Check"}

	before := testutil.ToFloat64(grpcServerHandledTotal.WithLabelValues("grpc.health.v1.Health", "Check", "Unavailable"))
	_, err := interceptor(context.Background(), nil, info, func(ctx context.Context, req interface{}) (interface{}, error) {
		return nil, status.Error(codes.Unavailable, "down")
	})
	require.Error(t, err)
	after := testutil.ToFloat64(grpcServerHandledTotal.WithLabelValues("grpc.health.v1.Health", "Check", "Unavailable"))
	assert.Equal(t, before+1, after)
}

func TestSplitFullMethod(t *testing.T) {
	service, method := splitFullMethod("bogus")
	assert.Equal(t, "unknown", service)
	assert.Equal(t, "unknown", method)
}

type failingPublisher struct{}

func (failingPublisher) Publish(ctx context.Context, routingKey string, event any) error {
	return errors.New("closed channel")
}

func TestEventsPublishCountsFailures(t *testing.T) {
	events := NewEvents(failingPublisher{}, zap.NewNop())
	before := testutil.ToFloat64(amqpPublishErrorsTotal)

	events.Publish(context.Background(), RoutingMessageSent, "message", "message_received", map[string]any{"id": 1})

	assert.Equal(t, before+1, testutil.ToFloat64(amqpPublishErrorsTotal))

	var nilEvents *Events
	assert.NotPanics(t, func() { nilEvents.Publish(context.Background(), RoutingMessageSent, "message", "x", nil) })
}

func TestRequestIDContext(t *testing.T) {
	ctx := WithRequestID(context.Background(), "abc")
	assert.Equal(t, "abc", RequestIDFromContext(ctx))
	assert.Empty(t, RequestIDFromContext(context.Background()))
}

func TestIPFromRequest(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:5555"
	assert.Equal(t, "10.0.0.1", IPFromRequest(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	assert.Equal(t, "203.0.113.9", IPFromRequest(req))
}
