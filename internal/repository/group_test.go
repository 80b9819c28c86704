package repository

import (
	"context"
	"testing"

	"chronicle/internal/models"
	"chronicle/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroupRepository(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewGroupRepository(db)
	ctx := context.Background()

	desc := "All about cats"
	cats := &models.Group{Title: "Cats", Slug: "cats", Description: &desc}
	require.NoError(t, repo.Create(ctx, cats))
	require.NoError(t, repo.Create(ctx, &models.Group{Title: "Aardvarks", Slug: "aardvarks"}))

	err := repo.Create(ctx, &models.Group{Title: "Cats again", Slug: "cats"})
	assert.True(t, models.IsConflict(err))

	got, err := repo.GetBySlug(ctx, "cats")
	require.NoError(t, err)
	assert.Equal(t, cats.ID, got.ID)
	require.NotNil(t, got.Description)
	assert.Equal(t, desc, *got.Description)

	_, err = repo.GetBySlug(ctx, "missing")
	assert.True(t, models.IsNotFound(err))

	_, err = repo.GetByID(ctx, 999)
	assert.True(t, models.IsNotFound(err))

	groups, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, "Aardvarks", groups[0].Title)
}
