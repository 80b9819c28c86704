package server

import (
	"testing"

	"chronicle/internal/config"
	"chronicle/internal/models"
	"chronicle/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewServerWithDeps_RequiresDependencies(t *testing.T) {
	_, err := NewServerWithDeps(nil, testutil.NewDB(t), nil)
	assert.Error(t, err)

	_, err = NewServerWithDeps(&config.Config{}, nil, nil)
	assert.Error(t, err)
}

func TestSeedGroups(t *testing.T) {
	env := newTestEnv(t)

	require.NoError(t, seedGroups(env.db))
	require.NoError(t, seedGroups(env.db))

	groups := decode[[]models.Group](t, env.get("/api/groups", nil))
	require.NotEmpty(t, groups)

	seen := make(map[string]bool)
	for _, g := range groups {
		assert.False(t, seen[g.Slug], "duplicate group %s", g.Slug)
		seen[g.Slug] = true
	}
}
