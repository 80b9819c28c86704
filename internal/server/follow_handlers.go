package server

import (
	"github.com/gofiber/fiber/v2"
)

// ProfileFollow handles GET /profile/:username/follow/
// @Summary Follow an author
// @Description Idempotent. Following yourself does nothing. Redirects to the author's profile.
// @Tags follows
// @Produce json
// @Param username path string true "Author username"
// @Success 302 "Redirect to the profile"
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /profile/{username}/follow/ [get]
func (s *Server) ProfileFollow(c *fiber.Ctx) error {
	author, err := s.followService.Follow(c.UserContext(), currentUserID(c), c.Params("username"))
	if err != nil {
		return respondError(c, err)
	}
	return redirect(c, profileURL(author.Username))
}

// ProfileUnfollow handles GET /profile/:username/unfollow/
// @Summary Unfollow an author
// @Tags follows
// @Produce json
// @Param username path string true "Author username"
// @Success 302 "Redirect to the profile"
// @Failure 404 {object} models.ErrorResponse "Unknown author or not following"
// @Security BearerAuth
// @Router /profile/{username}/unfollow/ [get]
func (s *Server) ProfileUnfollow(c *fiber.Ctx) error {
	author, err := s.followService.Unfollow(c.UserContext(), currentUserID(c), c.Params("username"))
	if err != nil {
		return respondError(c, err)
	}
	return redirect(c, profileURL(author.Username))
}
