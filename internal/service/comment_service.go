package service

import (
	"context"
	"strings"

	"chronicle/internal/models"
	"chronicle/internal/notifications"
	"chronicle/internal/observability"
	"chronicle/internal/repository"
)

type CommentService struct {
	commentRepo repository.CommentRepository
	postRepo    repository.PostRepository
	events      EventPublisher
}

type CreateCommentInput struct {
	UserID uint
	PostID uint
	Text   string
}

func NewCommentService(
	commentRepo repository.CommentRepository,
	postRepo repository.PostRepository,
	events EventPublisher,
) *CommentService {
	return &CommentService{
		commentRepo: commentRepo,
		postRepo:    postRepo,
		events:      events,
	}
}

// CreateComment adds a comment to an existing post. A missing post is NOT_FOUND
// and blank text is a VALIDATION_ERROR on the "text" field.
func (s *CommentService) CreateComment(ctx context.Context, in CreateCommentInput) (*models.Comment, error) {
	if in.UserID == 0 {
		return nil, models.NewUnauthorizedError("Authentication required")
	}
	post, err := s.postRepo.GetByID(ctx, in.PostID)
	if err != nil {
		return nil, err
	}

	text := strings.TrimSpace(in.Text)
	if text == "" {
		observability.RecordAction("add_comment", "invalid")
		return nil, models.NewFieldErrors(map[string]string{"text": msgRequired})
	}

	comment := &models.Comment{
		PostID:   post.ID,
		AuthorID: in.UserID,
		Text:     text,
	}
	if err := s.commentRepo.Create(ctx, comment); err != nil {
		return nil, err
	}

	observability.RecordAction("add_comment", "ok")
	publish(ctx, s.events, notifications.EventCommentCreated, CommentEvent{
		ID:       comment.ID,
		PostID:   post.ID,
		AuthorID: comment.AuthorID,
	})
	return comment, nil
}
