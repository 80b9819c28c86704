package server

import (
	"strconv"

	"chronicle/internal/models"
	"chronicle/internal/service"

	"github.com/gofiber/fiber/v2"
)

// PostDetail handles GET /posts/:id/
// @Summary Post detail
// @Description A post, its comments (newest first) and an empty comment form.
// @Tags posts
// @Produce json
// @Param id path int true "Post ID"
// @Success 200 {object} PostDetailView
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/{id}/ [get]
func (s *Server) PostDetail(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	ctx := c.UserContext()

	detail, err := s.postService.GetPostDetail(ctx, id)
	if err != nil {
		return respondError(c, err)
	}
	count, err := s.userRepo.CountPosts(ctx, detail.Post.AuthorID)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(PostDetailView{
		Post:        newPostView(detail.Post),
		AuthorPosts: count,
		Comments:    detail.Comments,
		CommentForm: newFormView(nil, nil),
	})
}

// PostCreateForm handles GET /create/
// @Summary New post form
// @Tags posts
// @Produce json
// @Success 200 {object} PostFormView
// @Failure 302 "Redirect to login"
// @Security BearerAuth
// @Router /create/ [get]
func (s *Server) PostCreateForm(c *fiber.Ctx) error {
	return s.renderPostForm(c, fiber.StatusOK, nil, nil, nil)
}

// PostCreate handles POST /create/
// @Summary Create a post
// @Description Creates a post authored by the caller and redirects to their profile.
// @Tags posts
// @Accept mpfd
// @Accept x-www-form-urlencoded
// @Accept json
// @Produce json
// @Param text formData string true "Post text"
// @Param group formData int false "Group ID"
// @Param image formData file false "Image attachment"
// @Success 302 "Redirect to the author's profile"
// @Failure 422 {object} PostFormView
// @Security BearerAuth
// @Router /create/ [post]
func (s *Server) PostCreate(c *fiber.Ctx) error {
	form, values, err := readPostForm(c)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	post, err := s.postService.CreatePost(c.UserContext(), service.CreatePostInput{
		UserID:   currentUserID(c),
		PostForm: form,
	})
	if err != nil {
		if errs := fieldErrors(err); errs != nil {
			return s.renderPostForm(c, fiber.StatusUnprocessableEntity, nil, values, errs)
		}
		return respondError(c, err)
	}
	return redirect(c, profileURL(post.Author.Username))
}

// PostEditForm handles GET /posts/:id/edit/
// @Summary Edit post form
// @Description The form pre-filled with the stored post. Non-authors are redirected to the global feed.
// @Tags posts
// @Produce json
// @Param id path int true "Post ID"
// @Success 200 {object} PostFormView
// @Failure 302 "Redirect to login or, for non-authors, to the global feed"
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /posts/{id}/edit/ [get]
func (s *Server) PostEditForm(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	post, err := s.postService.EditablePost(c.UserContext(), currentUserID(c), id)
	if err != nil {
		return s.respondEditError(c, err)
	}

	values := map[string]string{"text": post.Text, "group": ""}
	if post.GroupID != nil {
		values["group"] = strconv.FormatUint(uint64(*post.GroupID), 10)
	}
	return s.renderPostForm(c, fiber.StatusOK, post, values, nil)
}

// PostEdit handles POST /posts/:id/edit/
// @Summary Edit a post
// @Description Updates a post owned by the caller and redirects to its detail page.
// @Tags posts
// @Accept mpfd
// @Accept x-www-form-urlencoded
// @Accept json
// @Produce json
// @Param id path int true "Post ID"
// @Param text formData string true "Post text"
// @Param group formData int false "Group ID"
// @Param image formData file false "Replacement image"
// @Success 302 "Redirect to the post"
// @Failure 422 {object} PostFormView
// @Failure 404 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /posts/{id}/edit/ [post]
func (s *Server) PostEdit(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	form, values, err := readPostForm(c)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	post, err := s.postService.UpdatePost(c.UserContext(), service.UpdatePostInput{
		UserID:   currentUserID(c),
		PostID:   id,
		PostForm: form,
	})
	if err != nil {
		if errs := fieldErrors(err); errs != nil {
			stored, getErr := s.postRepo.GetByID(c.UserContext(), id)
			if getErr != nil {
				return respondError(c, getErr)
			}
			return s.renderPostForm(c, fiber.StatusUnprocessableEntity, stored, values, errs)
		}
		return s.respondEditError(c, err)
	}
	return redirect(c, postURL(post.ID))
}

// respondEditError sends non-authors back to the global feed without an error body.
func (s *Server) respondEditError(c *fiber.Ctx, err error) error {
	if models.ErrorCode(err) == models.CodeForbidden {
		return redirect(c, "/")
	}
	return respondError(c, err)
}

func (s *Server) renderPostForm(c *fiber.Ctx, status int, post *models.Post, values, errs map[string]string) error {
	groups, err := s.groupService.ListGroups(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(status).JSON(PostFormView{
		Form:   newFormView(values, errs),
		IsEdit: post != nil,
		Post:   newPostView(post),
		Groups: groups,
	})
}
