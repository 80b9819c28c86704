package server

import (
	"chronicle/internal/models"
	"chronicle/internal/service"
)

// FormView carries submitted values and per-field errors back to the client.
type FormView struct {
	Values map[string]string `json:"values"`
	Errors map[string]string `json:"errors"`
}

func newFormView(values, errs map[string]string) FormView {
	if values == nil {
		values = map[string]string{}
	}
	if errs == nil {
		errs = map[string]string{}
	}
	return FormView{Values: values, Errors: errs}
}

// PostFormView is the create/edit post page.
type PostFormView struct {
	Form   FormView        `json:"form"`
	IsEdit bool            `json:"is_edit"`
	Post   *PostView       `json:"post,omitempty"`
	Groups []*models.Group `json:"groups"`
}

// PostView decorates a post with media URLs.
type PostView struct {
	*models.Post
	ImageURL        string `json:"image_url,omitempty"`
	ImagePreviewURL string `json:"image_preview_url,omitempty"`
}

func newPostView(p *models.Post) *PostView {
	if p == nil {
		return nil
	}
	return &PostView{
		Post:            p,
		ImageURL:        service.MediaURL(p.Image),
		ImagePreviewURL: service.MediaURL(p.ImagePreview),
	}
}

func newPostViews(posts []*models.Post) []*PostView {
	out := make([]*PostView, 0, len(posts))
	for _, p := range posts {
		out = append(out, newPostView(p))
	}
	return out
}

// PageView is one page of a post feed.
type PageView struct {
	Posts        []*PostView `json:"posts"`
	Number       int         `json:"number"`
	NumPages     int         `json:"num_pages"`
	PerPage      int         `json:"per_page"`
	Count        int64       `json:"count"`
	HasNext      bool        `json:"has_next"`
	HasPrevious  bool        `json:"has_previous"`
	NextPage     *int        `json:"next_page,omitempty"`
	PreviousPage *int        `json:"previous_page,omitempty"`
}

func newPageView(p *service.PostPage) PageView {
	return PageView{
		Posts:        newPostViews(p.Items),
		Number:       p.Number,
		NumPages:     p.NumPages,
		PerPage:      p.PerPage,
		Count:        p.Count,
		HasNext:      p.HasNext,
		HasPrevious:  p.HasPrevious,
		NextPage:     p.NextPage,
		PreviousPage: p.PreviousPage,
	}
}

// IndexView is the global and follow feed page.
type IndexView struct {
	Page PageView `json:"page"`
}

// GroupView is the group feed page.
type GroupView struct {
	Group *models.Group `json:"group"`
	Page  PageView      `json:"page"`
}

// ProfileView is an author's page.
type ProfileView struct {
	Author    *models.User `json:"author"`
	PostCount int64        `json:"post_count"`
	Following bool         `json:"following"`
	Page      PageView     `json:"page"`
}

// PostDetailView is a post with its comments and an empty comment form.
type PostDetailView struct {
	Post        *PostView         `json:"post"`
	AuthorPosts int64             `json:"author_posts"`
	Comments    []*models.Comment `json:"comments"`
	CommentForm FormView          `json:"comment_form"`
}

// LoginFormView is the login page.
type LoginFormView struct {
	Form FormView `json:"form"`
	Next string   `json:"next"`
}
