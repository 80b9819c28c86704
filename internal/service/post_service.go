package service

import (
	"context"
	"errors"
	"strings"

	"chronicle/internal/models"
	"chronicle/internal/notifications"
	"chronicle/internal/observability"
	"chronicle/internal/repository"
)

// Field error messages shared by the post and comment forms.
const (
	msgRequired     = "This field is required."
	msgInvalidGroup = "Select a valid choice. That choice is not one of the available choices."
)

type PostService struct {
	postRepo    repository.PostRepository
	groupRepo   repository.GroupRepository
	commentRepo repository.CommentRepository
	images      *ImageService
	events      EventPublisher
}

// PostForm is the submitted content of the create and edit forms.
type PostForm struct {
	Text    string
	GroupID *uint
	Image   *ImageUpload
}

type CreatePostInput struct {
	UserID uint
	PostForm
}

type UpdatePostInput struct {
	UserID uint
	PostID uint
	PostForm
}

// PostDetail is a post with its comments, newest first.
type PostDetail struct {
	Post     *models.Post      `json:"post"`
	Comments []*models.Comment `json:"comments"`
}

func NewPostService(
	postRepo repository.PostRepository,
	groupRepo repository.GroupRepository,
	commentRepo repository.CommentRepository,
	images *ImageService,
	events EventPublisher,
) *PostService {
	return &PostService{
		postRepo:    postRepo,
		groupRepo:   groupRepo,
		commentRepo: commentRepo,
		images:      images,
		events:      events,
	}
}

// CreatePost validates the form and stores a post authored by the caller.
func (s *PostService) CreatePost(ctx context.Context, in CreatePostInput) (*models.Post, error) {
	if in.UserID == 0 {
		return nil, models.NewUnauthorizedError("Authentication required")
	}
	if err := s.validate(ctx, in.PostForm); err != nil {
		observability.RecordAction("create_post", "invalid")
		return nil, err
	}

	post := &models.Post{
		Text:     strings.TrimSpace(in.Text),
		AuthorID: in.UserID,
		GroupID:  in.GroupID,
	}
	stored, err := s.storeImage(ctx, in.Image)
	if err != nil {
		return nil, err
	}
	if stored != nil {
		post.Image = stored.Path
		post.ImagePreview = stored.PreviewPath
	}

	if err := s.postRepo.Create(ctx, post); err != nil {
		if stored != nil {
			s.images.Remove(stored.Path, stored.PreviewPath)
		}
		return nil, err
	}

	created, err := s.postRepo.GetByID(ctx, post.ID)
	if err != nil {
		return nil, err
	}
	observability.RecordAction("create_post", "ok")
	publish(ctx, s.events, notifications.EventPostCreated, newPostEvent(created))
	return created, nil
}

// UpdatePost applies the form to a post owned by the caller. A caller who is not
// the author gets a FORBIDDEN error and nothing is changed.
func (s *PostService) UpdatePost(ctx context.Context, in UpdatePostInput) (*models.Post, error) {
	post, err := s.EditablePost(ctx, in.UserID, in.PostID)
	if err != nil {
		return nil, err
	}
	if err := s.validate(ctx, in.PostForm); err != nil {
		observability.RecordAction("edit_post", "invalid")
		return nil, err
	}

	post.Text = strings.TrimSpace(in.Text)
	post.GroupID = in.GroupID
	stored, err := s.storeImage(ctx, in.Image)
	if err != nil {
		return nil, err
	}
	if stored != nil {
		post.Image = stored.Path
		post.ImagePreview = stored.PreviewPath
	}

	if err := s.postRepo.Update(ctx, post); err != nil {
		return nil, err
	}

	updated, err := s.postRepo.GetByID(ctx, post.ID)
	if err != nil {
		return nil, err
	}
	observability.RecordAction("edit_post", "ok")
	publish(ctx, s.events, notifications.EventPostUpdated, newPostEvent(updated))
	return updated, nil
}

// EditablePost loads a post for editing by userID.
func (s *PostService) EditablePost(ctx context.Context, userID, postID uint) (*models.Post, error) {
	if userID == 0 {
		return nil, models.NewUnauthorizedError("Authentication required")
	}
	post, err := s.postRepo.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post.AuthorID != userID {
		observability.RecordAction("edit_post", "denied")
		return nil, models.NewForbiddenError("Only the author can edit this post")
	}
	return post, nil
}

// GetPostDetail returns a post and its comments.
func (s *PostService) GetPostDetail(ctx context.Context, postID uint) (*PostDetail, error) {
	post, err := s.postRepo.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	comments, err := s.commentRepo.ListByPost(ctx, post.ID)
	if err != nil {
		return nil, err
	}
	if comments == nil {
		comments = []*models.Comment{}
	}
	return &PostDetail{Post: post, Comments: comments}, nil
}

func (s *PostService) validate(ctx context.Context, form PostForm) error {
	fields := make(map[string]string)

	if strings.TrimSpace(form.Text) == "" {
		fields["text"] = msgRequired
	}

	if form.GroupID != nil {
		if _, err := s.groupRepo.GetByID(ctx, *form.GroupID); err != nil {
			if !models.IsNotFound(err) {
				return err
			}
			fields["group"] = msgInvalidGroup
		}
	}

	if form.Image != nil {
		if _, _, err := s.images.Inspect(form.Image.Content); err != nil {
			fields["image"] = validationMessage(err)
		}
	}

	if len(fields) > 0 {
		return models.NewFieldErrors(fields)
	}
	return nil
}

func (s *PostService) storeImage(ctx context.Context, upload *ImageUpload) (*StoredImage, error) {
	if upload == nil {
		return nil, nil
	}
	return s.images.Store(ctx, upload.Content)
}

func validationMessage(err error) string {
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}
