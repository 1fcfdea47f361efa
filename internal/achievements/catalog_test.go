package achievements_test

import (
	"testing"

	"quest-maker/internal/achievements"
	"quest-maker/internal/graphstore"
	"quest-maker/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestCatalogFollowsGraphOrder(t *testing.T) {
	store := graphstore.New(models.DefaultQuest().Scenarios, zap.NewNop())
	catalog := achievements.NewCatalog(store)

	assert.Equal(t, []string{"PIZZA CHAMPION", "EFFICIENCY EXPERT", "HUNGER STRIKE"}, catalog.List())

	// Каталог пересчитывается на лету
	require.NoError(t, store.Update("cereal_ending", graphstore.FieldAchievement, ""))
	require.NoError(t, store.Update(models.StartID, graphstore.FieldAchievement, "CURIOUS"))
	assert.Equal(t, []string{"CURIOUS", "PIZZA CHAMPION", "HUNGER STRIKE"}, catalog.List())
}

func TestFromGraphEmpty(t *testing.T) {
	list := achievements.FromGraph(models.NewGraph(models.Scenario{ID: "start"}))
	assert.NotNil(t, list)
	assert.Empty(t, list)
}
