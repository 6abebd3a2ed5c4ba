package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BaSui01/courseflow/types"
)

func TestMemorySessionStore(t *testing.T) {
	store := NewMemorySessionStore()

	_, ok := store.Get("missing")
	assert.False(t, ok)
	assert.Equal(t, 0, store.Len())

	store.Put(Session{ID: "s1", State: SessionRunning, Phase: types.PhaseInitialization})
	store.Put(Session{ID: "s2", State: SessionPending})
	assert.Equal(t, 2, store.Len())

	sess, ok := store.Get("s1")
	require.True(t, ok)
	assert.Equal(t, SessionRunning, sess.State)
	assert.False(t, sess.UpdatedAt.IsZero())

	// 覆盖写
	sess.State = SessionCompleted
	store.Put(sess)
	sess, _ = store.Get("s1")
	assert.Equal(t, SessionCompleted, sess.State)

	assert.True(t, store.Evict("s1"))
	assert.False(t, store.Evict("s1"))
	assert.Equal(t, 1, store.Len())
}
