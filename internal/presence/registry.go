package presence

import (
	"sort"
	"sync"
	"time"
)

// Handle is a live connection owned by the session layer.
type Handle interface {
	ConnID() string
}

// Entry records one authenticated connection of a user.
type Entry struct {
	Handle      Handle
	Username    string
	ConnectedAt time.Time
}

// Registry tracks which users currently hold a connection.
// It is the only writer of presence state; all methods are safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	users map[int64]map[string]Entry
	now   func() time.Time

	// gate is held shared by per-user transitions and exclusively by Snapshot.
	gate    sync.RWMutex
	stripes [transitionStripes]sync.Mutex
}

const transitionStripes = 64

func NewRegistry() *Registry {
	return &Registry{users: make(map[int64]map[string]Entry), now: time.Now}
}

// Add registers a connection. It returns true when this is the user's first live session.
func (r *Registry) Add(userID int64, username string, h Handle) (Entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sessions, ok := r.users[userID]
	if !ok {
		sessions = make(map[string]Entry)
		r.users[userID] = sessions
	}
	entry := Entry{Handle: h, Username: username, ConnectedAt: r.now()}
	sessions[h.ConnID()] = entry
	return entry, len(sessions) == 1
}

// Remove drops a connection. It returns true when the user has no sessions left.
// Removing an unknown connection is a no-op that reports false.
func (r *Registry) Remove(userID int64, connID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	sessions, ok := r.users[userID]
	if !ok {
		return false
	}
	if _, ok := sessions[connID]; !ok {
		return false
	}
	delete(sessions, connID)
	if len(sessions) == 0 {
		delete(r.users, userID)
		return true
	}
	return false
}

func (r *Registry) Online(userID int64) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users[userID]) > 0
}

// Sessions returns the user's live entries, oldest first.
func (r *Registry) Sessions(userID int64) []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sessions := r.users[userID]
	out := make([]Entry, 0, len(sessions))
	for _, e := range sessions {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ConnectedAt.Before(out[j].ConnectedAt) })
	return out
}

// OnlineUserIDs lists every user with at least one session.
func (r *Registry) OnlineUserIDs() []int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]int64, 0, len(r.users))
	for id := range r.users {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Count is the number of online users.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users)
}

// LockUser serializes presence transitions of one user, including the durable
// write that follows Add or Remove. The returned func releases the lock.
func (r *Registry) LockUser(userID int64) func() {
	r.gate.RLock()
	m := &r.stripes[uint64(userID)%transitionStripes]
	m.Lock()
	return func() {
		m.Unlock()
		r.gate.RUnlock()
	}
}

// Snapshot runs fn with the current online user ids while no transition can start or finish.
func (r *Registry) Snapshot(fn func(online []int64) error) error {
	r.gate.Lock()
	defer r.gate.Unlock()
	return fn(r.OnlineUserIDs())
}
