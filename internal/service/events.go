package service

import (
	"context"

	"chronicle/internal/middleware"
	"chronicle/internal/models"
	"chronicle/internal/notifications"
)

// EventPublisher delivers domain events to live feed subscribers.
type EventPublisher interface {
	Publish(ctx context.Context, event notifications.Event) error
}

// PostEvent is the payload of post.created and post.updated.
type PostEvent struct {
	ID      uint   `json:"id"`
	Author  string `json:"author"`
	Group   string `json:"group,omitempty"`
	Preview string `json:"preview"`
}

// CommentEvent is the payload of comment.created.
type CommentEvent struct {
	ID       uint `json:"id"`
	PostID   uint `json:"post_id"`
	AuthorID uint `json:"author_id"`
}

// FollowEvent is the payload of follow.created and follow.deleted.
type FollowEvent struct {
	Follower string `json:"follower"`
	Author   string `json:"author"`
}

func newPostEvent(post *models.Post) PostEvent {
	ev := PostEvent{
		ID:      post.ID,
		Author:  post.Author.Username,
		Preview: post.Preview(),
	}
	if post.Group != nil {
		ev.Group = post.Group.Slug
	}
	return ev
}

// publish never fails the calling action; a lost live update is only logged.
func publish(ctx context.Context, events EventPublisher, eventType string, payload interface{}) {
	if events == nil {
		return
	}
	if err := events.Publish(ctx, notifications.NewEvent(eventType, payload)); err != nil {
		middleware.Logger.WarnContext(ctx, "failed to publish event", "type", eventType, "error", err)
	}
}
