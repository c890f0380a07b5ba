package state

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestManager(ttl time.Duration) (*MemoryManager[string], *fakeClock) {
	clock := &fakeClock{now: time.Date(2025, 2, 6, 12, 0, 0, 0, time.UTC)}
	return NewMemoryManager[string](ttl, WithClock[string](clock.Now)), clock
}

func TestMemoryManager_SaveGetClear(t *testing.T) {
	m, _ := newTestManager(time.Minute)

	_, ok := m.Get(7)
	require.False(t, ok)
	require.Equal(t, StateIdle, m.GetState(7))
	require.False(t, m.InProgress(7))

	m.Save(7, State("awaiting_date"), "draft")
	sess, ok := m.Get(7)
	require.True(t, ok)
	require.Equal(t, State("awaiting_date"), sess.State)
	require.Equal(t, "draft", sess.Data)
	require.True(t, m.InProgress(7))
	require.Equal(t, 1, m.Len())

	m.Clear(7)
	_, ok = m.Get(7)
	require.False(t, ok)
	require.Equal(t, 0, m.Len())
}

func TestMemoryManager_GetReturnsCopy(t *testing.T) {
	m, _ := newTestManager(time.Minute)
	m.Save(1, State("a"), "first")

	sess, _ := m.Get(1)
	sess.Data = "mutated"
	sess.State = State("b")

	again, _ := m.Get(1)
	require.Equal(t, "first", again.Data)
	require.Equal(t, State("a"), again.State)
}

func TestMemoryManager_ExpiredSessionIsAbsent(t *testing.T) {
	m, clock := newTestManager(time.Minute)
	m.Save(1, State("a"), "x")

	clock.Advance(59 * time.Second)
	require.True(t, m.InProgress(1))

	clock.Advance(2 * time.Second)
	_, ok := m.Get(1)
	require.False(t, ok)
	require.Equal(t, StateIdle, m.GetState(1))
	// still stored until swept
	require.Equal(t, 1, m.Len())
}

func TestMemoryManager_SaveRefreshesIdleTimer(t *testing.T) {
	m, clock := newTestManager(time.Minute)
	m.Save(1, State("a"), "x")

	clock.Advance(50 * time.Second)
	m.Save(1, State("b"), "y")
	clock.Advance(50 * time.Second)

	sess, ok := m.Get(1)
	require.True(t, ok)
	require.Equal(t, State("b"), sess.State)
}

func TestMemoryManager_Sweep(t *testing.T) {
	m, clock := newTestManager(time.Minute)
	m.Save(1, State("a"), "old")
	clock.Advance(45 * time.Second)
	m.Save(2, State("a"), "young")
	clock.Advance(30 * time.Second)

	require.Equal(t, 1, m.Sweep(clock.Now()))
	require.Equal(t, 1, m.Len())
	_, ok := m.Get(2)
	require.True(t, ok)
}

func TestMemoryManager_Oldest(t *testing.T) {
	m, clock := newTestManager(time.Minute)
	_, ok := m.Oldest()
	require.False(t, ok)

	m.Save(1, State("a"), "first")
	first := clock.Now()
	clock.Advance(10 * time.Second)
	m.Save(2, State("a"), "second")

	oldest, ok := m.Oldest()
	require.True(t, ok)
	require.Equal(t, first, oldest)

	clock.Advance(55 * time.Second)
	oldest, ok = m.Oldest()
	require.True(t, ok)
	require.Equal(t, first.Add(10*time.Second), oldest, "expired sessions are skipped")
}

func TestMemoryManager_NoTTLNeverEvicts(t *testing.T) {
	m, clock := newTestManager(0)
	m.Save(1, State("a"), "x")
	clock.Advance(24 * time.Hour)

	require.Equal(t, 0, m.Sweep(clock.Now()))
	require.True(t, m.InProgress(1))
}

func TestMemoryManager_RunStopsWithContext(t *testing.T) {
	m := NewMemoryManager[string](time.Nanosecond)
	m.Save(1, State("a"), "x")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx, time.Millisecond)
		close(done)
	}()

	require.Eventually(t, func() bool { return m.Len() == 0 }, time.Second, time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("janitor did not stop after cancel")
	}
}
