package notifications

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testEventuallyTimeout = time.Second
	testPollInterval      = 10 * time.Millisecond
)

type collector struct {
	mu       sync.Mutex
	payloads []string
}

func (c *collector) add(payload string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.payloads = append(c.payloads, payload)
}

func (c *collector) snapshot() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.payloads...)
}

func TestNotifier_LocalDeliveryWithoutRedis(t *testing.T) {
	n := NewNotifier(nil)
	got := &collector{}
	require.NoError(t, n.Subscribe(context.Background(), got.add))

	require.NoError(t, n.Publish(context.Background(), NewEvent(EventPostCreated, map[string]interface{}{"id": 7})))

	payloads := got.snapshot()
	require.Len(t, payloads, 1)

	var ev Event
	require.NoError(t, json.Unmarshal([]byte(payloads[0]), &ev))
	assert.Equal(t, EventPostCreated, ev.Type)
	assert.False(t, ev.At.IsZero())
}

func TestNotifier_PublishWithoutSubscriberIsNoop(t *testing.T) {
	n := NewNotifier(nil)
	assert.NoError(t, n.Publish(context.Background(), NewEvent(EventFollowCreated, nil)))
}

func TestNotifier_RedisRoundTrip(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	defer mr.Close()

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = rdb.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	n := NewNotifier(rdb)
	got := &collector{}
	require.NoError(t, n.Subscribe(ctx, got.add))

	require.NoError(t, n.Publish(ctx, NewEvent(EventCommentCreated, map[string]interface{}{"post_id": 3})))

	assert.Eventually(t, func() bool {
		return len(got.snapshot()) == 1
	}, testEventuallyTimeout, testPollInterval)
}

func TestNotifier_SubscriberPanicDoesNotStopDelivery(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	defer mr.Close()

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = rdb.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	n := NewNotifier(rdb)
	got := &collector{}
	first := true
	require.NoError(t, n.Subscribe(ctx, func(payload string) {
		if first {
			first = false
			panic("boom")
		}
		got.add(payload)
	}))

	require.NoError(t, n.Publish(ctx, NewEvent(EventPostCreated, nil)))
	require.NoError(t, n.Publish(ctx, NewEvent(EventPostCreated, nil)))

	assert.Eventually(t, func() bool {
		return len(got.snapshot()) == 1
	}, testEventuallyTimeout, testPollInterval)
}
