// Package notifications fans domain events out to live feed websocket clients.
package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"chronicle/internal/middleware"

	"github.com/redis/go-redis/v9"
)

// EventsChannel is the Redis channel carrying domain events between instances.
const EventsChannel = "chronicle:events"

// Event types published by the action layer.
const (
	EventPostCreated    = "post.created"
	EventPostUpdated    = "post.updated"
	EventCommentCreated = "comment.created"
	EventFollowCreated  = "follow.created"
	EventFollowDeleted  = "follow.deleted"
)

// Event is the envelope sent to live feed subscribers.
type Event struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
	At      time.Time   `json:"at"`
}

// NewEvent stamps an event with the current time.
func NewEvent(eventType string, payload interface{}) Event {
	return Event{Type: eventType, Payload: payload, At: time.Now().UTC()}
}

// Notifier publishes events through Redis pub/sub, or straight to a local
// handler when Redis is not configured.
type Notifier struct {
	rdb *redis.Client

	mu    sync.RWMutex
	local func(payload string)
}

// NewNotifier creates a new Notifier instance using the provided Redis client, which may be nil.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// Publish encodes event and delivers it.
func (n *Notifier) Publish(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	if n.rdb != nil {
		return n.rdb.Publish(ctx, EventsChannel, payload).Err()
	}

	n.mu.RLock()
	local := n.local
	n.mu.RUnlock()
	if local != nil {
		local(string(payload))
	}
	return nil
}

// Subscribe calls onMessage for every event published on EventsChannel until ctx is done.
// Without Redis, onMessage receives events published by this process.
func (n *Notifier) Subscribe(ctx context.Context, onMessage func(payload string)) error {
	if n.rdb == nil {
		n.mu.Lock()
		n.local = onMessage
		n.mu.Unlock()
		return nil
	}

	sub := n.rdb.Subscribe(ctx, EventsChannel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe %s: %w", EventsChannel, err)
	}
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							middleware.Logger.Error("panic in event subscriber",
								"panic", r, "stack", string(debug.Stack()))
						}
					}()
					onMessage(msg.Payload)
				}()
			}
		}
	}()

	return nil
}
