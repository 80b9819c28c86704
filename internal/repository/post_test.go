package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"chronicle/internal/models"
	"chronicle/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostRepository_CreateAndGet(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()
	author := testutil.CreateUser(t, db, "leo")
	group := testutil.CreateGroup(t, db, "Cats", "cats")

	post := &models.Post{Text: "first post", AuthorID: author.ID, GroupID: &group.ID}
	require.NoError(t, repo.Create(ctx, post))
	require.NotZero(t, post.ID)

	got, err := repo.GetByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, "first post", got.Text)
	assert.Equal(t, "leo", got.Author.Username)
	require.NotNil(t, got.Group)
	assert.Equal(t, "cats", got.Group.Slug)
	assert.False(t, got.CreatedAt.IsZero())

	_, err = repo.GetByID(ctx, 9999)
	assert.True(t, models.IsNotFound(err))
}

func TestPostRepository_UpdateKeepsAuthorAndDate(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()
	author := testutil.CreateUser(t, db, "leo")
	post := testutil.CreatePost(t, db, author, nil, "draft")

	before, err := repo.GetByID(ctx, post.ID)
	require.NoError(t, err)

	group := testutil.CreateGroup(t, db, "Dogs", "dogs")
	require.NoError(t, repo.Update(ctx, &models.Post{ID: post.ID, Text: "final", GroupID: &group.ID}))

	after, err := repo.GetByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, "final", after.Text)
	assert.Equal(t, author.ID, after.AuthorID)
	assert.True(t, before.CreatedAt.Equal(after.CreatedAt))
	require.NotNil(t, after.GroupID)
	assert.Equal(t, group.ID, *after.GroupID)

	require.NoError(t, repo.Update(ctx, &models.Post{ID: post.ID, Text: "final"}))
	after, err = repo.GetByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Nil(t, after.GroupID, "group can be cleared")

	err = repo.Update(ctx, &models.Post{ID: 4242, Text: "x"})
	assert.True(t, models.IsNotFound(err))
}

func TestPostRepository_ListFilters(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	ann := testutil.CreateUser(t, db, "ann")
	leo := testutil.CreateUser(t, db, "leo")
	mia := testutil.CreateUser(t, db, "mia")
	group := testutil.CreateGroup(t, db, "Test", "test-slug")

	for i := 0; i < 3; i++ {
		testutil.CreatePost(t, db, leo, group, fmt.Sprintf("leo %d", i))
	}
	testutil.CreatePost(t, db, mia, nil, "mia 0")
	testutil.CreatePost(t, db, ann, group, "ann 0")

	require.NoError(t, db.Omit("User", "Author").Create(&models.Follow{UserID: ann.ID, AuthorID: leo.ID}).Error)

	tests := []struct {
		name   string
		filter PostFilter
		want   int64
	}{
		{"all", PostFilter{}, 5},
		{"group", PostFilter{GroupID: group.ID}, 4},
		{"author", PostFilter{AuthorID: leo.ID}, 3},
		{"followed by ann", PostFilter{FollowerID: ann.ID}, 3},
		{"followed by mia", PostFilter{FollowerID: mia.ID}, 0},
		{"group and author", PostFilter{GroupID: group.ID, AuthorID: ann.ID}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			count, err := repo.Count(ctx, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, count)

			posts, err := repo.List(ctx, tt.filter, 10, 0)
			require.NoError(t, err)
			assert.Len(t, posts, int(tt.want))
		})
	}
}

func TestPostRepository_ListNewestFirst(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()
	author := testutil.CreateUser(t, db, "leo")

	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		post := &models.Post{Text: fmt.Sprintf("post %d", i), AuthorID: author.ID, CreatedAt: base.Add(time.Duration(i) * time.Hour)}
		require.NoError(t, repo.Create(ctx, post))
	}

	posts, err := repo.List(ctx, PostFilter{}, 2, 0)
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, "post 2", posts[0].Text)
	assert.Equal(t, "post 1", posts[1].Text)
	assert.Equal(t, "leo", posts[0].Author.Username)

	posts, err = repo.List(ctx, PostFilter{}, 2, 2)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, "post 0", posts[0].Text)
}
