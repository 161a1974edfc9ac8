package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_GetSetExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewMemory()
	m.now = func() time.Time { return now }

	require.NoError(t, m.Set(ctx, "campaign:1", map[string]int{"id": 1}, time.Minute))

	var got map[string]int
	require.NoError(t, m.Get(ctx, "campaign:1", &got))
	assert.Equal(t, 1, got["id"])

	now = now.Add(time.Minute)
	assert.ErrorIs(t, m.Get(ctx, "campaign:1", &got), ErrMiss)
}

func TestMemory_SetNX(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	ok, err := m.SetNX(ctx, "lock", "req-1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = m.SetNX(ctx, "lock", "req-2", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	v, err := m.GetString(ctx, "lock")
	require.NoError(t, err)
	assert.Equal(t, "req-1", v)

	require.NoError(t, m.Delete(ctx, "lock"))
	_, err = m.GetString(ctx, "lock")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestMemory_IncrWindow(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewMemory()
	m.now = func() time.Time { return now }

	for i := int64(1); i <= 3; i++ {
		n, err := m.Incr(ctx, "rl", time.Minute)
		require.NoError(t, err)
		assert.Equal(t, i, n)
	}

	// the window is fixed at the first hit
	now = now.Add(59 * time.Second)
	n, _ := m.Incr(ctx, "rl", time.Minute)
	assert.Equal(t, int64(4), n)

	now = now.Add(time.Second)
	n, _ = m.Incr(ctx, "rl", time.Minute)
	assert.Equal(t, int64(1), n)
}

func TestNop(t *testing.T) {
	var c Cache = Nop{}
	var dest string
	assert.NoError(t, c.Set(context.Background(), "k", "v", 0))
	assert.ErrorIs(t, c.Get(context.Background(), "k", &dest), ErrMiss)
}
