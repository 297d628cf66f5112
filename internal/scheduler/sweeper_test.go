package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"onstream/internal/database"
	"onstream/internal/models"
	"onstream/internal/repository"
)

func TestRunOnceDeletesExpiredRows(t *testing.T) {
	db, err := database.ConnectTest()
	require.NoError(t, err)
	repo := repository.NewCatalogRepository(db)
	ctx := context.Background()

	fresh := models.CatalogItem{TmdbID: 1, Title: "Fresh", Kind: models.KindMovie}
	require.NoError(t, repo.UpsertItem(ctx, &fresh, time.Hour))
	stale := models.CatalogItem{TmdbID: 2, Title: "Stale", Kind: models.KindMovie}
	require.NoError(t, repo.UpsertItem(ctx, &stale, -time.Minute))

	NewSweeper(repo).RunOnce(ctx)

	n, err := repo.CountItems(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestStartRejectsBadSchedule(t *testing.T) {
	db, err := database.ConnectTest()
	require.NoError(t, err)
	s := NewSweeper(repository.NewCatalogRepository(db))

	err = s.Start("not a schedule")
	assert.Error(t, err)
}

func TestStartAndStop(t *testing.T) {
	db, err := database.ConnectTest()
	require.NoError(t, err)
	s := NewSweeper(repository.NewCatalogRepository(db))

	require.NoError(t, s.Start("@every 1h"))
	s.Stop()
}
