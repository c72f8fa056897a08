package database

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	store, err := NewRedisStore(context.Background(), mr.Addr(), "tube-relay:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	return store, mr
}

func TestRedisStore_SaveAndLoad(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestRedisStore(t)

	assert.Empty(t, store.Load(ctx))

	require.NoError(t, store.Save(ctx, Cursors{"UC1": "v103", "UC2": "x9"}))
	assert.Equal(t, Cursors{"UC1": "v103", "UC2": "x9"}, store.Load(ctx))
	assert.Equal(t, "v103", mr.HGet("tube-relay:cursors", "UC1"))

	require.NoError(t, store.Save(ctx, Cursors{"UC2": "x10"}))
	assert.Equal(t, Cursors{"UC2": "x10"}, store.Load(ctx))
}

func TestRedisStore_SaveEmptyClearsKey(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestRedisStore(t)

	require.NoError(t, store.Save(ctx, Cursors{"UC1": "v1"}))
	require.NoError(t, store.Save(ctx, Cursors{}))

	assert.False(t, mr.Exists("tube-relay:cursors"))
	assert.Empty(t, store.Load(ctx))
}

func TestRedisStore_ServerErrors(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestRedisStore(t)

	require.NoError(t, store.Save(ctx, Cursors{"UC1": "v1"}))
	mr.SetError("ERR injected failure")

	assert.Empty(t, store.Load(ctx))

	var persistErr *PersistenceError
	require.ErrorAs(t, store.Save(ctx, Cursors{"UC1": "v2"}), &persistErr)
	assert.Equal(t, BackendRedis, persistErr.Backend)
}

func TestNewRedisStore_ConnectionFailure(t *testing.T) {
	_, err := NewRedisStore(context.Background(), "127.0.0.1:1", "")
	assert.Error(t, err)
}
