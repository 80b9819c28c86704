package server

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"chronicle/internal/middleware"
	"chronicle/internal/models"
	"chronicle/internal/pagination"
	"chronicle/internal/service"

	"github.com/gofiber/fiber/v2"
)

// errResponseWritten is a sentinel indicating the HTTP response was already
// committed by a helper. Handlers must return nil (not this error) to avoid
// Fiber's ErrorHandler overwriting the response.
var errResponseWritten = errors.New("response already written")

// parseID extracts a route parameter by name as a positive uint.
// On failure it writes a 400 JSON response and returns errResponseWritten.
func (s *Server) parseID(c *fiber.Ctx, param string) (uint, error) {
	id, err := c.ParamsInt(param)
	if err != nil || id <= 0 {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid "+strings.ToUpper(param)))
		return 0, errResponseWritten
	}
	return uint(id), nil
}

// pageNumber reads the 1-based "page" query parameter.
func pageNumber(c *fiber.Ctx) int {
	return pagination.ParseNumber(c.Query("page"))
}

// currentUserID returns the authenticated caller, or 0 for anonymous requests.
func currentUserID(c *fiber.Ctx) uint {
	id, _ := middleware.CurrentUserID(c)
	return id
}

// respondError writes err with the status its AppError code maps to.
func respondError(c *fiber.Ctx, err error) error {
	status := models.HTTPStatus(err)
	if status >= fiber.StatusInternalServerError {
		middleware.Logger.ErrorContext(c.UserContext(), "request failed", "error", err)
	}
	return models.RespondWithError(c, status, err)
}

// redirect sends a 302 to location.
func redirect(c *fiber.Ctx, location string) error {
	return c.Redirect(location, fiber.StatusFound)
}

func profileURL(username string) string {
	return "/profile/" + username + "/"
}

func postURL(id uint) string {
	return fmt.Sprintf("/posts/%d/", id)
}

// postFormInput is the body of the create and edit forms.
type postFormInput struct {
	Text  string `json:"text" form:"text"`
	Group string `json:"group" form:"group"`
}

// readPostForm parses the post form from JSON, urlencoded or multipart bodies.
// An unparsable group id is kept as id 0 so validation reports it as an invalid choice.
func readPostForm(c *fiber.Ctx) (service.PostForm, map[string]string, error) {
	var in postFormInput
	if err := c.BodyParser(&in); err != nil && !errors.Is(err, fiber.ErrUnprocessableEntity) {
		return service.PostForm{}, nil, err
	}

	values := map[string]string{"text": in.Text, "group": in.Group}
	form := service.PostForm{Text: in.Text}

	if raw := strings.TrimSpace(in.Group); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			id = 0
		}
		gid := uint(id)
		form.GroupID = &gid
	}

	if fh, err := c.FormFile("image"); err == nil && fh != nil && fh.Size > 0 {
		f, err := fh.Open()
		if err != nil {
			return service.PostForm{}, nil, err
		}
		defer func() { _ = f.Close() }()
		content, err := io.ReadAll(f)
		if err != nil {
			return service.PostForm{}, nil, err
		}
		form.Image = &service.ImageUpload{Filename: fh.Filename, Content: content}
		values["image"] = fh.Filename
	}

	return form, values, nil
}

// fieldErrors returns the per-field messages of a VALIDATION_ERROR, or nil.
func fieldErrors(err error) map[string]string {
	var appErr *models.AppError
	if errors.As(err, &appErr) && appErr.Code == models.CodeValidation {
		if appErr.Fields != nil {
			return appErr.Fields
		}
		return map[string]string{"__all__": appErr.Message}
	}
	return nil
}
