package server

import (
	"github.com/gofiber/fiber/v2"
)

// Index handles GET / and GET /api/posts
// @Summary Global feed
// @Description All posts, newest first. Pages are cached for FEED_CACHE_TTL.
// @Tags feeds
// @Produce json
// @Param page query int false "1-based page number"
// @Success 200 {object} IndexView
// @Router / [get]
func (s *Server) Index(c *fiber.Ctx) error {
	page, err := s.feedService.GlobalFeed(c.UserContext(), pageNumber(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(IndexView{Page: newPageView(page)})
}

// GroupPosts handles GET /group/:slug/
// @Summary Group feed
// @Tags feeds
// @Produce json
// @Param slug path string true "Group slug"
// @Param page query int false "1-based page number"
// @Success 200 {object} GroupView
// @Failure 404 {object} models.ErrorResponse
// @Router /group/{slug}/ [get]
func (s *Server) GroupPosts(c *fiber.Ctx) error {
	feed, err := s.feedService.GroupFeed(c.UserContext(), c.Params("slug"), pageNumber(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(GroupView{Group: feed.Group, Page: newPageView(feed.Page)})
}

// Profile handles GET /profile/:username/
// @Summary Author profile
// @Description Posts of one author, with whether the caller follows them.
// @Tags feeds
// @Produce json
// @Param username path string true "Author username"
// @Param page query int false "1-based page number"
// @Success 200 {object} ProfileView
// @Failure 404 {object} models.ErrorResponse
// @Router /profile/{username}/ [get]
func (s *Server) Profile(c *fiber.Ctx) error {
	feed, err := s.feedService.ProfileFeed(c.UserContext(), c.Params("username"), currentUserID(c), pageNumber(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(ProfileView{
		Author:    feed.Author,
		PostCount: feed.PostCount,
		Following: feed.Following,
		Page:      newPageView(feed.Page),
	})
}

// FollowIndex handles GET /follow/
// @Summary Follow feed
// @Description Posts by the authors the caller follows.
// @Tags feeds
// @Produce json
// @Param page query int false "1-based page number"
// @Success 200 {object} IndexView
// @Failure 302 "Redirect to login"
// @Security BearerAuth
// @Router /follow/ [get]
func (s *Server) FollowIndex(c *fiber.Ctx) error {
	page, err := s.feedService.FollowFeed(c.UserContext(), currentUserID(c), pageNumber(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(IndexView{Page: newPageView(page)})
}
