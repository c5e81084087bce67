package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/fairyhunter13/parcelace-scratch/internal/scratch"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newEntry(id string) *Entry {
	layer := scratch.NewOcclusionLayer(400, scratch.DefaultSettings(), 1)
	return &Entry{
		ID:    id,
		Layer: layer,
		Card:  scratch.NewCard(layer, nil, scratch.DefaultSettings(), nil),
	}
}

func TestStore_PutGetRemove(t *testing.T) {
	s := NewStore(time.Minute, 0)
	defer s.Stop()

	e := newEntry("card-1")
	require.NoError(t, s.Put(e))

	got, ok := s.Get("card-1")
	require.True(t, ok)
	assert.Same(t, e, got)
	assert.Equal(t, 1, s.Len())

	removed, ok := s.Remove("card-1")
	require.True(t, ok)
	assert.True(t, removed.Card.Closed(), "removing a card unmounts it")

	_, ok = s.Get("card-1")
	assert.False(t, ok)
	_, ok = s.Remove("card-1")
	assert.False(t, ok)
}

func TestStore_SweepEvictsIdle(t *testing.T) {
	s := NewStore(time.Minute, 0)
	defer s.Stop()

	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	idle := newEntry("idle")
	fresh := newEntry("fresh")
	require.NoError(t, s.Put(idle))
	require.NoError(t, s.Put(fresh))

	now = now.Add(45 * time.Second)
	_, _ = s.Get("fresh")
	now = now.Add(30 * time.Second)

	assert.Equal(t, 1, s.Sweep())
	assert.True(t, idle.Card.Closed())
	assert.False(t, fresh.Card.Closed())

	_, ok := s.Get("idle")
	assert.False(t, ok)
	_, ok = s.Get("fresh")
	assert.True(t, ok)
}

func TestStore_JanitorEvicts(t *testing.T) {
	s := NewStore(time.Millisecond, 5*time.Millisecond)
	defer s.Stop()

	e := newEntry("card-1")
	require.NoError(t, s.Put(e))

	assert.Eventually(t, func() bool { return s.Len() == 0 }, time.Second, 5*time.Millisecond)
	e.Mu.Lock()
	defer e.Mu.Unlock()
	assert.True(t, e.Card.Closed())
}

func TestStore_StopUnmountsAll(t *testing.T) {
	s := NewStore(time.Minute, time.Hour)

	a, b := newEntry("a"), newEntry("b")
	require.NoError(t, s.Put(a))
	require.NoError(t, s.Put(b))

	s.Stop()
	s.Stop() // idempotent

	assert.Equal(t, 0, s.Len())
	assert.True(t, a.Card.Closed())
	assert.True(t, b.Card.Closed())
}

func TestStore_MaxCards(t *testing.T) {
	s := NewStore(time.Minute, 0, WithMaxCards(2))
	defer s.Stop()

	a, b := newEntry("a"), newEntry("b")
	require.NoError(t, s.Put(a))
	require.NoError(t, s.Put(b))

	assert.ErrorIs(t, s.Put(newEntry("c")), ErrFull)
	assert.NoError(t, s.Put(a), "re-registering a mounted id does not count twice")

	_, ok := s.Remove("a")
	require.True(t, ok)
	assert.NoError(t, s.Put(newEntry("c")), "unmounting frees a slot")
	assert.Equal(t, 2, s.Len())
}

func TestStore_SweepKeepsCardsTheHookDeclines(t *testing.T) {
	s := NewStore(time.Minute, 0)
	defer s.Stop()

	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	e := newEntry("pending")
	require.NoError(t, s.Put(e))

	ready := false
	calls := 0
	s.SetUnmountHook(func(got *Entry) bool {
		calls++
		assert.Same(t, e, got)
		return ready
	})

	now = now.Add(2 * time.Minute)
	assert.Equal(t, 0, s.Sweep())
	assert.False(t, e.Card.Closed())
	assert.Equal(t, 1, s.Len())

	ready = true
	assert.Equal(t, 1, s.Sweep())
	assert.True(t, e.Card.Closed())
	assert.Equal(t, 0, s.Len())
	assert.Equal(t, 2, calls)
}

func TestStore_StopRunsHookAndClosesDeclinedCards(t *testing.T) {
	s := NewStore(time.Minute, 0)

	a, b := newEntry("a"), newEntry("b")
	require.NoError(t, s.Put(a))
	require.NoError(t, s.Put(b))

	seen := map[string]bool{}
	s.SetUnmountHook(func(e *Entry) bool {
		seen[e.ID] = true
		return e.ID == "a"
	})

	s.Stop()

	assert.Equal(t, map[string]bool{"a": true, "b": true}, seen)
	assert.True(t, a.Card.Closed())
	assert.True(t, b.Card.Closed(), "shutdown closes cards even when the hook declines")
}

func TestStore_UnmountLocked(t *testing.T) {
	s := NewStore(time.Minute, 0)
	defer s.Stop()

	e := newEntry("card-1")
	require.NoError(t, s.Put(e))

	hookCalled := false
	s.SetUnmountHook(func(*Entry) bool { hookCalled = true; return true })

	e.Mu.Lock()
	assert.True(t, s.UnmountLocked(e))
	assert.False(t, s.UnmountLocked(e), "a second unmount finds nothing")
	e.Mu.Unlock()

	assert.True(t, e.Card.Closed())
	assert.False(t, hookCalled, "callers of UnmountLocked persist on their own")
	assert.Equal(t, 0, s.Len())
}
