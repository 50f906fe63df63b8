package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client, time.Hour), mr
}

func stores(t *testing.T) map[string]Store {
	redisStore, _ := newRedisStore(t)
	return map[string]Store{
		"redis":  redisStore,
		"memory": NewMemoryStore(time.Hour),
	}
}

func TestStore_Lifecycle(t *testing.T) {
	ctx := context.Background()

	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			sess, err := store.New(ctx)
			require.NoError(t, err)
			require.NotEmpty(t, sess.ID)
			assert.False(t, sess.Authenticated())

			got, err := store.Get(ctx, sess.ID)
			require.NoError(t, err)
			require.NotNil(t, got)
			assert.Equal(t, int64(0), got.UserID)

			require.NoError(t, store.SetUser(ctx, sess.ID, 42))
			got, err = store.Get(ctx, sess.ID)
			require.NoError(t, err)
			assert.True(t, got.Authenticated())
			assert.Equal(t, int64(42), got.UserID)

			require.NoError(t, store.Destroy(ctx, sess.ID))
			got, err = store.Get(ctx, sess.ID)
			require.NoError(t, err)
			assert.Nil(t, got)
		})
	}
}

func TestStore_FlashesArePoppedOnce(t *testing.T) {
	ctx := context.Background()

	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			sess, err := store.New(ctx)
			require.NoError(t, err)

			require.NoError(t, store.AddFlash(ctx, sess.ID, "first"))
			require.NoError(t, store.AddFlash(ctx, sess.ID, "second"))

			flashes, err := store.PopFlashes(ctx, sess.ID)
			require.NoError(t, err)
			assert.Equal(t, []string{"first", "second"}, flashes)

			flashes, err = store.PopFlashes(ctx, sess.ID)
			require.NoError(t, err)
			assert.Empty(t, flashes)
		})
	}
}

func TestStore_UnknownID(t *testing.T) {
	ctx := context.Background()

	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			got, err := store.Get(ctx, "does-not-exist")
			require.NoError(t, err)
			assert.Nil(t, got)
			assert.NoError(t, store.Destroy(ctx, "does-not-exist"))
		})
	}
}

func TestRedisStore_Expiry(t *testing.T) {
	ctx := context.Background()
	store, mr := newRedisStore(t)

	sess, err := store.New(ctx)
	require.NoError(t, err)
	assert.True(t, mr.Exists("session:"+sess.ID))

	mr.FastForward(2 * time.Hour)

	got, err := store.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMemoryStore_Expiry(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(time.Minute)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	sess, err := store.New(ctx)
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)

	got, err := store.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}
