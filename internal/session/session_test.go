package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kairosbot/kairos/internal/config"
)

func newTestStore(t *testing.T, size int) *Store {
	t.Helper()
	s, err := NewStore(&config.Config{SessionSize: size}, zap.NewNop())
	require.NoError(t, err)

	return s
}

func TestStateLifecycle(t *testing.T) {
	s := newTestStore(t, 8)

	assert.Equal(t, StateNone, s.State(42))
	assert.False(t, s.Busy(42))

	s.SetState(42, AwaitingClarification)
	s.Get(42).PendingTodoID = 7

	assert.Equal(t, AwaitingClarification, s.State(42))
	assert.True(t, s.Busy(42))
	assert.Equal(t, int64(7), s.Get(42).PendingTodoID)

	// Other chats are unaffected.
	assert.False(t, s.Busy(43))

	s.Clear(42)
	assert.Equal(t, StateNone, s.State(42))
	assert.Zero(t, s.Get(42).PendingTodoID)
}

func TestEvictionResetsState(t *testing.T) {
	s := newTestStore(t, 2)

	s.SetState(1, AwaitingAddTask)
	s.SetState(2, AwaitingQuery)
	s.SetState(3, AwaitingSchedule)

	// Chat 1 was evicted; its state reads as idle again.
	assert.Equal(t, StateNone, s.State(1))
	assert.Equal(t, AwaitingSchedule, s.State(3))
}
