package state

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/m3rciful/expensebot/core/logger"
)

// MemoryManager keeps sessions in process memory with idle-time eviction.
type MemoryManager[T any] struct {
	mu       sync.RWMutex
	sessions map[int64]*Session[T]
	ttl      time.Duration
	now      func() time.Time
}

// Option customises a MemoryManager.
type Option[T any] func(*MemoryManager[T])

// WithClock overrides the time source, mostly for tests.
func WithClock[T any](now func() time.Time) Option[T] {
	return func(m *MemoryManager[T]) {
		if now != nil {
			m.now = now
		}
	}
}

// NewMemoryManager constructs an in-memory Manager. A ttl <= 0 disables eviction.
func NewMemoryManager[T any](ttl time.Duration, opts ...Option[T]) *MemoryManager[T] {
	m := &MemoryManager[T]{
		sessions: make(map[int64]*Session[T]),
		ttl:      ttl,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Get returns a copy of the user's session. Expired sessions are reported as absent.
func (m *MemoryManager[T]) Get(userID int64) (Session[T], bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sess, ok := m.sessions[userID]
	if !ok || m.expired(sess, m.now()) {
		return Session[T]{State: StateIdle}, false
	}
	return *sess, true
}

// Save creates or replaces the user's session and refreshes its idle timer.
func (m *MemoryManager[T]) Save(userID int64, st State, data T) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sessions[userID] = &Session[T]{
		State:     st,
		Data:      data,
		UpdatedAt: m.now(),
	}
}

// GetState returns the current FSM state of a user, or StateIdle if none exists.
func (m *MemoryManager[T]) GetState(userID int64) State {
	sess, ok := m.Get(userID)
	if !ok {
		return StateIdle
	}
	return sess.State
}

// InProgress reports whether the user currently has an active FSM state.
func (m *MemoryManager[T]) InProgress(userID int64) bool {
	return m.GetState(userID) != StateIdle
}

// Clear removes the entire session for a user.
func (m *MemoryManager[T]) Clear(userID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sessions, userID)
}

// Len reports the number of stored sessions, including expired ones not yet swept.
func (m *MemoryManager[T]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Oldest returns the least recent UpdatedAt among live sessions.
func (m *MemoryManager[T]) Oldest() (time.Time, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	now := m.now()
	var (
		oldest time.Time
		found  bool
	)
	for _, sess := range m.sessions {
		if m.expired(sess, now) {
			continue
		}
		if !found || sess.UpdatedAt.Before(oldest) {
			oldest, found = sess.UpdatedAt, true
		}
	}
	return oldest, found
}

// Sweep removes sessions idle for longer than the TTL and returns how many were evicted.
func (m *MemoryManager[T]) Sweep(now time.Time) int {
	if m.ttl <= 0 {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	evicted := 0
	for id, sess := range m.sessions {
		if m.expired(sess, now) {
			delete(m.sessions, id)
			evicted++
		}
	}
	return evicted
}

// Run sweeps expired sessions every interval until ctx is done.
func (m *MemoryManager[T]) Run(ctx context.Context, every time.Duration) {
	if m.ttl <= 0 || every <= 0 {
		return
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			start := time.Now()
			evicted := m.Sweep(m.now())
			if evicted == 0 {
				continue
			}
			logger.Info(ctx, "tg.fsm", "session.sweep",
				slog.String("status", "evicted"),
				slog.Int("evicted", evicted),
				slog.Int("sessions", m.Len()),
				slog.Duration("duration", logger.Took(start)),
			)
		}
	}
}

func (m *MemoryManager[T]) expired(sess *Session[T], now time.Time) bool {
	return m.ttl > 0 && now.Sub(sess.UpdatedAt) > m.ttl
}
