package ws

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// slowStore blocks offline writes until release is closed.
type slowStore struct {
	mu      sync.Mutex
	writes  []bool
	started chan struct{}
	release chan struct{}
}

func (s *slowStore) SetOnline(_ context.Context, _ int64, online bool) error {
	if !online {
		close(s.started)
		<-s.release
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes = append(s.writes, online)
	return nil
}

func (s *slowStore) recorded() []bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]bool(nil), s.writes...)
}

func TestSessionsOrderStoredFlagWithRegistry(t *testing.T) {
	hub, registry, _ := newTestHub()
	store := &slowStore{started: make(chan struct{}), release: make(chan struct{})}
	sessions := NewSessions(registry, hub, store, hub.events, zap.NewNop())
	ctx := context.Background()

	first := newClient(nil, ConnInfo{ConnID: "a", UserID: 1, Username: "alice"})
	second := newClient(nil, ConnInfo{ConnID: "b", UserID: 1, Username: "alice"})
	sessions.Connect(ctx, first)

	go sessions.Disconnect(ctx, first, "normal")
	<-store.started

	reconnected := make(chan struct{})
	go func() {
		sessions.Connect(ctx, second)
		close(reconnected)
	}()

	assert.Never(t, func() bool { return registry.Online(1) }, 50*time.Millisecond, 5*time.Millisecond)
	close(store.release)

	select {
	case <-reconnected:
	case <-time.After(2 * time.Second):
		t.Fatal("reconnect never finished")
	}
	require.True(t, registry.Online(1))
	assert.Equal(t, []bool{true, false, true}, store.recorded())
}
