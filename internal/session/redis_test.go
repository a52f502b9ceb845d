package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/C4T-BuT-S4D/predlozhka/internal/session"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const redisActor = int64(-424242)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr := miniredis.RunT(t)
	client, err := session.NewRedisClient(context.Background(), "redis://"+mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisStore(t *testing.T) {
	mr, client := newRedis(t)
	ctx := context.Background()

	m := session.NewManager(session.NewRedisStore(client), time.Minute)

	_, err := m.Current(ctx, redisActor)
	require.ErrorIs(t, err, session.ErrNoInteraction)

	started, err := m.Start(ctx, redisActor, session.Interaction{Kind: session.KindAwaitingFeedbackResponse, FeedbackID: 3})
	require.NoError(t, err)

	got, err := m.Current(ctx, redisActor)
	require.NoError(t, err)
	assert.Equal(t, started.ID, got.ID)
	assert.Equal(t, session.KindAwaitingFeedbackResponse, got.Kind)
	assert.Equal(t, int64(3), got.FeedbackID)

	t.Run("key carries the interaction ttl", func(t *testing.T) {
		require.True(t, mr.Exists("predlozhka:session:-424242"))
		ttl := mr.TTL("predlozhka:session:-424242")
		assert.Greater(t, ttl, time.Duration(0))
		assert.LessOrEqual(t, ttl, time.Minute)
	})

	t.Run("visible through another client", func(t *testing.T) {
		other, err := session.NewRedisClient(ctx, "redis://"+mr.Addr())
		require.NoError(t, err)
		defer other.Close()

		got, err := session.NewManager(session.NewRedisStore(other), time.Minute).Current(ctx, redisActor)
		require.NoError(t, err)
		assert.Equal(t, started.ID, got.ID)
	})

	require.NoError(t, m.Finish(ctx, redisActor))
	_, err = m.Current(ctx, redisActor)
	assert.ErrorIs(t, err, session.ErrNoInteraction)
	assert.False(t, mr.Exists("predlozhka:session:-424242"))
}

func TestRedisStoreExpiry(t *testing.T) {
	mr, client := newRedis(t)
	ctx := context.Background()

	m := session.NewManager(session.NewRedisStore(client), time.Minute)
	_, err := m.Start(ctx, redisActor, session.Interaction{Kind: session.KindAwaitingFeedback})
	require.NoError(t, err)

	mr.FastForward(30 * time.Second)
	_, err = m.Current(ctx, redisActor)
	require.NoError(t, err)

	mr.FastForward(31 * time.Second)
	_, err = m.Current(ctx, redisActor)
	assert.ErrorIs(t, err, session.ErrNoInteraction)
}

func TestRedisStoreCorruptValue(t *testing.T) {
	mr, client := newRedis(t)
	ctx := context.Background()

	require.NoError(t, mr.Set("predlozhka:session:-424242", "{not json"))

	_, err := session.NewRedisStore(client).Get(ctx, redisActor)
	require.Error(t, err)
	assert.NotErrorIs(t, err, session.ErrNoInteraction)
}

func TestRedisStoreUnreachable(t *testing.T) {
	mr, client := newRedis(t)
	mr.Close()

	_, err := session.NewRedisStore(client).Get(context.Background(), redisActor)
	require.Error(t, err)
	assert.NotErrorIs(t, err, session.ErrNoInteraction)
}

func TestNewRedisClientBadURL(t *testing.T) {
	_, err := session.NewRedisClient(context.Background(), "not a url")
	assert.Error(t, err)
}
