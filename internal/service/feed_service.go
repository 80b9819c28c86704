package service

import (
	"context"
	"strconv"
	"time"

	"chronicle/internal/cache"
	"chronicle/internal/models"
	"chronicle/internal/observability"
	"chronicle/internal/pagination"
	"chronicle/internal/repository"
)

// PostPage is one page of a post feed.
type PostPage = pagination.Page[*models.Post]

// GroupFeed is a page of posts filed under one group.
type GroupFeed struct {
	Group *models.Group `json:"group"`
	Page  *PostPage     `json:"page"`
}

// ProfileFeed is a page of one author's posts as seen by a viewer.
type ProfileFeed struct {
	Author    *models.User `json:"author"`
	PostCount int64        `json:"post_count"`
	Following bool         `json:"following"`
	Page      *PostPage    `json:"page"`
}

// FeedService builds the paginated post collections.
type FeedService struct {
	postRepo   repository.PostRepository
	groupRepo  repository.GroupRepository
	userRepo   repository.UserRepository
	followRepo repository.FollowRepository
	pageSize   int
	global     *cache.TTL[*PostPage]
	globalSize *cache.TTL[int64]
}

// NewFeedService creates a FeedService. The global feed is cached per page for cacheTTL;
// cacheOpts select the clock and backend of that cache.
func NewFeedService(
	postRepo repository.PostRepository,
	groupRepo repository.GroupRepository,
	userRepo repository.UserRepository,
	followRepo repository.FollowRepository,
	pageSize int,
	cacheTTL time.Duration,
	cacheOpts ...cache.Option,
) *FeedService {
	if pageSize <= 0 {
		pageSize = pagination.DefaultSize
	}
	s := &FeedService{
		postRepo:   postRepo,
		groupRepo:  groupRepo,
		userRepo:   userRepo,
		followRepo: followRepo,
		pageSize:   pageSize,
	}
	s.global = cache.NewTTL("index_page", cacheTTL, s.computeGlobalPage, cacheOpts...)
	s.globalSize = cache.NewTTL("index_count", cacheTTL, s.countGlobal, cacheOpts...)
	return s
}

// PageSize returns the number of posts per page.
func (s *FeedService) PageSize() int {
	return s.pageSize
}

// GlobalFeed returns every post, newest first. Pages are served from the TTL cache,
// so a new post may take up to one TTL window to appear. Pages past the end are
// served from the last page's entry.
func (s *FeedService) GlobalFeed(ctx context.Context, page int) (*PostPage, error) {
	count, err := s.globalSize.Get(ctx, "all")
	if err != nil {
		return nil, err
	}
	w := pagination.Resolve(page, count, s.pageSize)
	return s.global.Get(ctx, strconv.Itoa(w.Number))
}

func (s *FeedService) countGlobal(ctx context.Context, _ string) (int64, error) {
	return s.postRepo.Count(ctx, repository.PostFilter{})
}

func (s *FeedService) computeGlobalPage(ctx context.Context, key string) (*PostPage, error) {
	page, _ := strconv.Atoi(key)
	return s.build(ctx, "global", repository.PostFilter{}, page)
}

// GroupFeed returns the posts of the group identified by slug.
func (s *FeedService) GroupFeed(ctx context.Context, slug string, page int) (*GroupFeed, error) {
	group, err := s.groupRepo.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	posts, err := s.build(ctx, "group", repository.PostFilter{GroupID: group.ID}, page)
	if err != nil {
		return nil, err
	}
	return &GroupFeed{Group: group, Page: posts}, nil
}

// ProfileFeed returns the posts of the author identified by username. Following is
// true only when viewerID is an authenticated user with an edge to the author.
func (s *FeedService) ProfileFeed(ctx context.Context, username string, viewerID uint, page int) (*ProfileFeed, error) {
	author, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	posts, err := s.build(ctx, "profile", repository.PostFilter{AuthorID: author.ID}, page)
	if err != nil {
		return nil, err
	}

	following := false
	if viewerID != 0 && viewerID != author.ID {
		following, err = s.followRepo.Exists(ctx, viewerID, author.ID)
		if err != nil {
			return nil, err
		}
	}

	return &ProfileFeed{
		Author:    author,
		PostCount: posts.Count,
		Following: following,
		Page:      posts,
	}, nil
}

// FollowFeed returns posts by the authors userID follows.
func (s *FeedService) FollowFeed(ctx context.Context, userID uint, page int) (*PostPage, error) {
	if userID == 0 {
		return nil, models.NewUnauthorizedError("Authentication required")
	}
	return s.build(ctx, "follow", repository.PostFilter{FollowerID: userID}, page)
}

func (s *FeedService) build(ctx context.Context, feed string, filter repository.PostFilter, page int) (_ *PostPage, err error) {
	ctx, end := observability.StartSpan(ctx, "FeedService", feed,
		observability.FeedAttributes(feed, page)...)
	defer func() { end(err) }()

	start := time.Now()
	defer func() {
		observability.FeedBuildLatency.WithLabelValues(feed).Observe(time.Since(start).Seconds())
	}()

	return pagination.Paginate(ctx, page, s.pageSize,
		func(ctx context.Context) (int64, error) {
			return s.postRepo.Count(ctx, filter)
		},
		func(ctx context.Context, limit, offset int) ([]*models.Post, error) {
			return s.postRepo.List(ctx, filter, limit, offset)
		},
	)
}
