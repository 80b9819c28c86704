package notifications

import (
	"context"
	"fmt"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub_RegisterAndUnregister(t *testing.T) {
	hub := NewHub()

	client, err := hub.Register(nil, 4)
	require.NoError(t, err)
	assert.Equal(t, 1, hub.Len())
	assert.Equal(t, uint(4), client.UserID)

	hub.Unregister(client)
	assert.Equal(t, 0, hub.Len())

	// Second unregister must not panic on the closed channel.
	hub.Unregister(client)
	_, ok := <-client.Send
	assert.False(t, ok)
}

func TestHub_ConnectionLimit(t *testing.T) {
	hub := NewHub()
	hub.maxConns = 2

	_, err := hub.Register(nil, 0)
	require.NoError(t, err)
	_, err = hub.Register(nil, 0)
	require.NoError(t, err)

	_, err = hub.Register(nil, 0)
	assert.ErrorIs(t, err, ErrConnectionLimit)
}

func TestHub_BroadcastAllReachesEveryClient(t *testing.T) {
	hub := NewHub()
	a, err := hub.Register(nil, 1)
	require.NoError(t, err)
	b, err := hub.Register(nil, 0)
	require.NoError(t, err)

	hub.BroadcastAll(`{"type":"post.created"}`)

	assert.Equal(t, `{"type":"post.created"}`, string(<-a.Send))
	assert.Equal(t, `{"type":"post.created"}`, string(<-b.Send))
}

func TestHub_BroadcastDropsWhenBufferFull(t *testing.T) {
	hub := NewHub()
	c, err := hub.Register(nil, 0)
	require.NoError(t, err)

	for i := 0; i < sendBuffer+5; i++ {
		hub.BroadcastAll(fmt.Sprintf("%d", i))
	}

	assert.Len(t, c.Send, sendBuffer)
	assert.Equal(t, "0", string(<-c.Send))
}

func TestHub_ShutdownRejectsNewClients(t *testing.T) {
	hub := NewHub()
	c, err := hub.Register(nil, 0)
	require.NoError(t, err)

	require.NoError(t, hub.Shutdown(context.Background()))
	assert.Equal(t, 0, hub.Len())
	_, ok := <-c.Send
	assert.False(t, ok)

	_, err = hub.Register(nil, 0)
	assert.ErrorIs(t, err, ErrHubClosed)
	assert.NoError(t, hub.Shutdown(context.Background()))
}

func TestHub_StartWiringLocal(t *testing.T) {
	hub := NewHub()
	c, err := hub.Register(nil, 0)
	require.NoError(t, err)

	n := NewNotifier(nil)
	require.NoError(t, hub.StartWiring(context.Background(), n))
	require.NoError(t, n.Publish(context.Background(), NewEvent(EventPostCreated, nil)))

	assert.Contains(t, string(<-c.Send), EventPostCreated)
}

func TestHub_StartWiringRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	defer mr.Close()

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = rdb.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub()
	c, err := hub.Register(nil, 0)
	require.NoError(t, err)
	require.NoError(t, hub.StartWiring(ctx, NewNotifier(rdb)))

	require.NoError(t, NewNotifier(rdb).Publish(ctx, NewEvent(EventFollowCreated, nil)))

	assert.Eventually(t, func() bool {
		return len(c.Send) == 1
	}, testEventuallyTimeout, testPollInterval)
}
