package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/Vijaya2621/Chatbot-using-API/pkg/adapters/redis"
	"github.com/Vijaya2621/Chatbot-using-API/pkg/domain"
	"github.com/Vijaya2621/Chatbot-using-API/pkg/ports"
	"github.com/alicebob/miniredis/v2"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T) (*miniredis.Miniredis, *backend.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err, "Failed to start miniredis")
	t.Cleanup(mr.Close)

	client := backend.NewClient(&backend.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisStore_Contract(t *testing.T) {
	_, client := newClient(t)
	ports.RunSessionStoreContract(t, redis.NewFromClient(client))
}

func TestRedisStore_TTL_Expiration(t *testing.T) {
	mr, client := newClient(t)

	// Create store with 1s TTL
	store := redis.NewFromClient(client, redis.WithTTL(1*time.Second))
	ctx := context.Background()
	sessionID := "session-ttl"

	err := store.Save(ctx, sessionID, domain.NewSession(sessionID, &domain.DocumentIndex{Text: "doc"}, "a.pdf", time.Now()))
	assert.NoError(t, err)

	sessions, err := store.List(ctx)
	assert.NoError(t, err)
	assert.Contains(t, sessions, sessionID)

	// Fast Forward time in miniredis (for Key Expiration)
	mr.FastForward(2 * time.Second)

	_, err = store.Load(ctx, sessionID)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	assert.False(t, mr.Exists("chatbot:session:vectors:session-ttl"))

	// Pruning of the index uses the wall clock, so real time must pass the TTL.
	time.Sleep(1200 * time.Millisecond)

	sessions, err = store.List(ctx)
	assert.NoError(t, err)
	assert.Empty(t, sessions)
}

func TestRedisStore_Prefix(t *testing.T) {
	mr, client := newClient(t)

	store := redis.NewFromClient(client, redis.WithPrefix("custom:app:"))
	ctx := context.Background()
	sessionID := "my-session"

	err := store.Save(ctx, sessionID, domain.NewSession(sessionID, &domain.DocumentIndex{Text: "doc"}, "", time.Now()))
	assert.NoError(t, err)

	assert.True(t, mr.Exists("custom:app:my-session"), "Expected key with custom prefix to exist")
	assert.True(t, mr.Exists("custom:app:vectors:my-session"), "Expected document index key to exist")
	assert.True(t, mr.Exists("custom:app:index"), "Expected index with custom prefix to exist")

	list, err := store.List(ctx)
	assert.NoError(t, err)
	assert.Contains(t, list, sessionID)
}

func TestRedisStore_CorruptRecord(t *testing.T) {
	mr, client := newClient(t)
	store := redis.NewFromClient(client)

	require.NoError(t, mr.Set("chatbot:session:broken", "{not json"))

	_, err := store.Load(context.Background(), "broken")
	require.Error(t, err)
	assert.True(t, domain.IsStorageReadError(err))
}

func TestRedisStore_SweepScoresByLastActivity(t *testing.T) {
	mr, client := newClient(t)
	store := redis.NewFromClient(client)
	ctx := context.Background()

	stale := domain.NewSession("stale", &domain.DocumentIndex{Text: "x"}, "x.pdf", time.Now().Add(-8*24*time.Hour))
	require.NoError(t, store.Save(ctx, "stale", stale))

	// Refreshing the session moves its score past the cutoff.
	refreshed := stale.Clone()
	refreshed.AppendMessage(domain.RoleUser, "still here", time.Now())
	require.NoError(t, store.Save(ctx, "refreshed", refreshed))

	removed, err := store.Sweep(ctx, 7*24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, []string{"stale"}, removed)
	assert.False(t, mr.Exists("chatbot:session:vectors:stale"))

	_, err = store.Load(ctx, "refreshed")
	assert.NoError(t, err)
}
