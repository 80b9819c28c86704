package server

import (
	"errors"

	"chronicle/internal/featureflags"
	"chronicle/internal/models"
	"chronicle/internal/service"

	"github.com/gofiber/fiber/v2"
)

// AddComment handles POST /posts/:id/comment/
// @Summary Comment on a post
// @Description Adds a comment and redirects to the post. Blank text is ignored unless
// @Description strict_comment_validation is enabled, in which case it returns 422.
// @Tags comments
// @Accept x-www-form-urlencoded
// @Accept json
// @Produce json
// @Param id path int true "Post ID"
// @Param text formData string true "Comment text"
// @Success 302 "Redirect to the post"
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 422 {object} PostDetailView
// @Security BearerAuth
// @Router /posts/{id}/comment/ [post]
func (s *Server) AddComment(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req struct {
		Text string `json:"text" form:"text"`
	}
	if err := c.BodyParser(&req); err != nil && !errors.Is(err, fiber.ErrUnprocessableEntity) {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	userID := currentUserID(c)
	_, err = s.commentService.CreateComment(c.UserContext(), service.CreateCommentInput{
		UserID: userID,
		PostID: id,
		Text:   req.Text,
	})
	if err != nil {
		errs := fieldErrors(err)
		if errs == nil {
			return respondError(c, err)
		}
		if s.featureFlags.Enabled(featureflags.StrictCommentValidation, userID) {
			return s.renderCommentErrors(c, id, req.Text, errs)
		}
	}
	return redirect(c, postURL(id))
}

func (s *Server) renderCommentErrors(c *fiber.Ctx, postID uint, text string, errs map[string]string) error {
	detail, err := s.postService.GetPostDetail(c.UserContext(), postID)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusUnprocessableEntity).JSON(PostDetailView{
		Post:        newPostView(detail.Post),
		Comments:    detail.Comments,
		CommentForm: newFormView(map[string]string{"text": text}, errs),
	})
}

