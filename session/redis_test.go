package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	store := NewRedisStore(client, "sess-001", 24*time.Hour)
	return store, mr
}

func TestRedisStore_EmptyByDefault(t *testing.T) {
	ctx := context.Background()
	store, _ := setupTestRedis(t)

	token, err := store.Token(ctx)
	require.NoError(t, err)
	assert.Empty(t, token)

	loggedOut, err := store.LoggedOut(ctx)
	require.NoError(t, err)
	assert.False(t, loggedOut)
}

func TestRedisStore_SetAndGetToken(t *testing.T) {
	ctx := context.Background()
	store, _ := setupTestRedis(t)

	require.NoError(t, store.SetToken(ctx, "tok-redis"))

	token, err := store.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "tok-redis", token)
}

func TestRedisStore_ClearSetsLoggedOut(t *testing.T) {
	ctx := context.Background()
	store, _ := setupTestRedis(t)

	require.NoError(t, store.SetToken(ctx, "tok-redis"))
	require.NoError(t, store.Clear(ctx))

	token, err := store.Token(ctx)
	require.NoError(t, err)
	assert.Empty(t, token)

	loggedOut, err := store.LoggedOut(ctx)
	require.NoError(t, err)
	assert.True(t, loggedOut)
}

func TestRedisStore_SessionsAreIsolated(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	a := NewRedisStore(client, "sess-a", 0)
	b := NewRedisStore(client, "sess-b", 0)

	require.NoError(t, a.SetToken(ctx, "tok-a"))

	token, err := b.Token(ctx)
	require.NoError(t, err)
	assert.Empty(t, token)
}

func TestRedisStore_TTLApplied(t *testing.T) {
	ctx := context.Background()
	store, mr := setupTestRedis(t)

	require.NoError(t, store.SetToken(ctx, "tok-expiring"))

	mr.FastForward(25 * time.Hour)

	token, err := store.Token(ctx)
	require.NoError(t, err)
	assert.Empty(t, token, "session should expire with the configured TTL")
}
