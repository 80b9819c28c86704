package service

import (
	"context"

	"chronicle/internal/middleware"
	"chronicle/internal/models"
	"chronicle/internal/notifications"
	"chronicle/internal/observability"
	"chronicle/internal/repository"
)

// FollowService manages follow edges between users.
type FollowService struct {
	followRepo repository.FollowRepository
	userRepo   repository.UserRepository
	events     EventPublisher
}

func NewFollowService(
	followRepo repository.FollowRepository,
	userRepo repository.UserRepository,
	events EventPublisher,
) *FollowService {
	return &FollowService{
		followRepo: followRepo,
		userRepo:   userRepo,
		events:     events,
	}
}

// Follow makes userID follow the author named username and returns the author.
// Following yourself or an author you already follow changes nothing.
func (s *FollowService) Follow(ctx context.Context, userID uint, username string) (*models.User, error) {
	if userID == 0 {
		return nil, models.NewUnauthorizedError("Authentication required")
	}
	author, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if author.ID == userID {
		observability.RecordAction("follow", "noop")
		return author, nil
	}

	created, err := s.followRepo.Create(ctx, userID, author.ID)
	if err != nil {
		if !models.IsConflict(err) {
			return nil, err
		}
		middleware.Logger.InfoContext(ctx, "follow rejected by constraint", "author_id", author.ID, "error", err)
		created = false
	}
	if !created {
		observability.RecordAction("follow", "noop")
		return author, nil
	}

	observability.RecordAction("follow", "ok")
	publish(ctx, s.events, notifications.EventFollowCreated, s.followEvent(ctx, userID, author))
	return author, nil
}

// Unfollow removes the edge from userID to the author named username.
// It returns NOT_FOUND when the author or the edge does not exist.
func (s *FollowService) Unfollow(ctx context.Context, userID uint, username string) (*models.User, error) {
	if userID == 0 {
		return nil, models.NewUnauthorizedError("Authentication required")
	}
	author, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if err := s.followRepo.Delete(ctx, userID, author.ID); err != nil {
		if models.IsNotFound(err) {
			observability.RecordAction("unfollow", "missing")
		}
		return nil, err
	}

	observability.RecordAction("unfollow", "ok")
	publish(ctx, s.events, notifications.EventFollowDeleted, s.followEvent(ctx, userID, author))
	return author, nil
}

func (s *FollowService) followEvent(ctx context.Context, userID uint, author *models.User) FollowEvent {
	ev := FollowEvent{Author: author.Username}
	if follower, err := s.userRepo.GetByID(ctx, userID); err == nil {
		ev.Follower = follower.Username
	}
	return ev
}
