package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"onstream/internal/database"
	"onstream/internal/models"
	"onstream/internal/repository"
	"onstream/internal/tmdb"
)

type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) PopularMovies(ctx context.Context, page int) tmdb.RawPage {
	args := m.Called(ctx, page)
	return args.Get(0).(tmdb.RawPage)
}

func (m *mockGateway) PopularTV(ctx context.Context, page int) tmdb.RawPage {
	args := m.Called(ctx, page)
	return args.Get(0).(tmdb.RawPage)
}

func (m *mockGateway) Trending(ctx context.Context) tmdb.RawPage {
	args := m.Called(ctx)
	return args.Get(0).(tmdb.RawPage)
}

func (m *mockGateway) SearchMulti(ctx context.Context, query string, page int) tmdb.RawPage {
	args := m.Called(ctx, query, page)
	return args.Get(0).(tmdb.RawPage)
}

func (m *mockGateway) Details(ctx context.Context, tmdbID int64, kind string) (*tmdb.RawRecord, bool) {
	args := m.Called(ctx, tmdbID, kind)
	var rec *tmdb.RawRecord
	if v := args.Get(0); v != nil {
		rec = v.(*tmdb.RawRecord)
	}
	return rec, args.Bool(1)
}

func (m *mockGateway) Genres(ctx context.Context) []models.Genre {
	args := m.Called(ctx)
	return args.Get(0).([]models.Genre)
}

type mockResolver struct {
	mock.Mock
}

func (m *mockResolver) Resolve(ctx context.Context, tmdbID int64, title string, year *string) []models.StreamSource {
	args := m.Called(ctx, tmdbID, title, year)
	return args.Get(0).([]models.StreamSource)
}

func newCatalogService(t *testing.T) (*CatalogService, *repository.CatalogRepository, *mockGateway, *mockResolver) {
	t.Helper()
	db, err := database.ConnectTest()
	require.NoError(t, err)
	repo := repository.NewCatalogRepository(db)
	gw := &mockGateway{}
	res := &mockResolver{}
	svc := NewCatalogService(repo, gw, res, time.Hour, time.Hour)
	return svc, repo, gw, res
}

func rawMovie(id int64, title string) tmdb.RawRecord {
	date := "1999-03-31"
	return tmdb.RawRecord{ID: id, Title: &title, ReleaseDate: &date, Popularity: float64(id)}
}

func TestGetByIDServesStoredItemWithoutUpstream(t *testing.T) {
	svc, repo, gw, _ := newCatalogService(t)
	ctx := context.Background()

	item := tmdb.Normalize(rawMovie(603, "The Matrix"))
	require.NoError(t, repo.UpsertItem(ctx, &item, time.Hour))

	got, err := svc.GetByID(ctx, 603)
	require.NoError(t, err)
	assert.Equal(t, "The Matrix", got.Title)
	gw.AssertNotCalled(t, "Details", mock.Anything, mock.Anything, mock.Anything)
}

func TestGetByIDFillsFromUpstreamAndPersists(t *testing.T) {
	svc, repo, gw, _ := newCatalogService(t)
	ctx := context.Background()

	rec := rawMovie(603, "The Matrix")
	gw.On("Details", mock.Anything, int64(603), models.KindMovie).Return(&rec, true).Once()

	got, err := svc.GetByID(ctx, 603)
	require.NoError(t, err)
	assert.Equal(t, "The Matrix", got.Title)
	assert.Equal(t, models.KindMovie, got.Kind)

	stored, err := repo.GetItem(ctx, 603)
	require.NoError(t, err)
	require.NotNil(t, stored)

	// Second read is answered by the store.
	_, err = svc.GetByID(ctx, 603)
	require.NoError(t, err)
	gw.AssertExpectations(t)
}

func TestGetByIDFallsBackToSeriesLookup(t *testing.T) {
	svc, _, gw, _ := newCatalogService(t)
	ctx := context.Background()

	air := "2008-01-20"
	name := "Breaking Bad"
	rec := tmdb.RawRecord{ID: 1396, Name: &name, FirstAirDate: &air}
	gw.On("Details", mock.Anything, int64(1396), models.KindMovie).Return(nil, false).Once()
	gw.On("Details", mock.Anything, int64(1396), models.KindSeries).Return(&rec, true).Once()

	got, err := svc.GetByID(ctx, 1396)
	require.NoError(t, err)
	assert.Equal(t, models.KindSeries, got.Kind)
	assert.Equal(t, "Breaking Bad", got.Title)
	gw.AssertExpectations(t)
}

func TestGetByIDUnknownTitle(t *testing.T) {
	svc, _, gw, _ := newCatalogService(t)

	gw.On("Details", mock.Anything, int64(999), models.KindMovie).Return(nil, false).Once()
	gw.On("Details", mock.Anything, int64(999), models.KindSeries).Return(nil, false).Once()

	_, err := svc.GetByID(context.Background(), 999)
	require.Error(t, err)
	assert.True(t, models.IsCode(err, models.CodeTitleNotFound))
}

func TestListRefreshesThinStore(t *testing.T) {
	svc, _, gw, _ := newCatalogService(t)
	ctx := context.Background()

	page := tmdb.RawPage{Page: 1, TotalPages: 5, TotalResults: 100}
	for i := 1; i <= 12; i++ {
		page.Results = append(page.Results, rawMovie(int64(i), fmt.Sprintf("Movie %d", i)))
	}
	gw.On("PopularMovies", mock.Anything, 1).Return(page).Once()

	got, err := svc.List(ctx, models.KindMovie, "", "", 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(12), got.TotalResults)
	require.Len(t, got.Results, 12)
	assert.Equal(t, "Movie 12", got.Results[0].Title)

	// The store is no longer thin; the second list never goes upstream.
	_, err = svc.List(ctx, models.KindMovie, "", "", 1, 20)
	require.NoError(t, err)
	gw.AssertNumberOfCalls(t, "PopularMovies", 1)
}

func TestListDeepPageRefreshesFromUpstream(t *testing.T) {
	svc, repo, gw, _ := newCatalogService(t)
	ctx := context.Background()

	// Twelve fresh rows cover page 1 but leave page 2 empty; the empty page
	// must still trigger a popular fetch for that page.
	for i := 1; i <= 12; i++ {
		item := tmdb.Normalize(rawMovie(int64(i), fmt.Sprintf("Movie %d", i)))
		require.NoError(t, repo.UpsertItem(ctx, &item, time.Hour))
	}

	page2 := tmdb.RawPage{Page: 2, TotalPages: 5, TotalResults: 100}
	for i := 21; i <= 40; i++ {
		page2.Results = append(page2.Results, rawMovie(int64(i), fmt.Sprintf("Movie %d", i)))
	}
	gw.On("PopularMovies", mock.Anything, 2).Return(page2).Once()

	got, err := svc.List(ctx, models.KindMovie, "", "", 2, 20)
	require.NoError(t, err)
	require.Len(t, got.Results, 12)
	assert.Equal(t, int64(32), got.TotalResults)
	gw.AssertExpectations(t)
}

func TestListSeriesUsesTVFeed(t *testing.T) {
	svc, _, gw, _ := newCatalogService(t)

	gw.On("PopularTV", mock.Anything, 1).Return(tmdb.RawPage{}).Once()

	got, err := svc.List(context.Background(), models.KindSeries, "", "", 1, 20)
	require.NoError(t, err)
	assert.Equal(t, 1, got.TotalPages)
	assert.Empty(t, got.Results)
	gw.AssertExpectations(t)
}

func TestSearchRefreshesThinStoreAndFiltersPeople(t *testing.T) {
	svc, repo, gw, _ := newCatalogService(t)
	ctx := context.Background()

	matrix := rawMovie(603, "The Matrix")
	matrix.MediaType = "movie"
	person := "Keanu Reeves"
	page := tmdb.RawPage{
		Page:         1,
		TotalPages:   1,
		TotalResults: 2,
		Results: []tmdb.RawRecord{
			matrix,
			{ID: 6384, Name: &person, MediaType: "person"},
		},
	}
	gw.On("SearchMulti", mock.Anything, "matrix", 1).Return(page).Once()

	got, err := svc.Search(ctx, "matrix", 1, 20)
	require.NoError(t, err)
	assert.Equal(t, "matrix", got.Query)
	require.Len(t, got.Results, 1)
	assert.Equal(t, "The Matrix", got.Results[0].Title)

	stored, err := repo.GetItem(ctx, 603)
	require.NoError(t, err)
	require.NotNil(t, stored)

	got2, err := repo.GetItem(ctx, 6384)
	require.NoError(t, err)
	assert.Nil(t, got2)
}

func TestSearchServesUnpersistedViewWhenStoreCannotMatch(t *testing.T) {
	svc, _, gw, _ := newCatalogService(t)

	// The upstream matches the query through an alias the stored text
	// columns do not contain.
	bound := rawMovie(604, "Bound")
	bound.MediaType = "movie"
	page := tmdb.RawPage{Page: 1, TotalPages: 3, TotalResults: 41, Results: []tmdb.RawRecord{bound}}
	gw.On("SearchMulti", mock.Anything, "wachowski", 1).Return(page).Once()

	got, err := svc.Search(context.Background(), "wachowski", 1, 20)
	require.NoError(t, err)
	require.Len(t, got.Results, 1)
	assert.Equal(t, "Bound", got.Results[0].Title)
	assert.Equal(t, 3, got.TotalPages)
	assert.Equal(t, int64(41), got.TotalResults)
}

func TestSearchEmptyEverywhere(t *testing.T) {
	svc, _, gw, _ := newCatalogService(t)

	gw.On("SearchMulti", mock.Anything, "zzz", 1).Return(tmdb.RawPage{}).Once()

	got, err := svc.Search(context.Background(), "zzz", 1, 20)
	require.NoError(t, err)
	assert.Empty(t, got.Results)
	assert.Equal(t, 1, got.TotalPages)
}

func TestTrendingPersistsTitles(t *testing.T) {
	svc, repo, gw, _ := newCatalogService(t)
	ctx := context.Background()

	matrix := rawMovie(603, "The Matrix")
	matrix.MediaType = "movie"
	page := tmdb.RawPage{Page: 1, TotalPages: 10, TotalResults: 200, Results: []tmdb.RawRecord{matrix}}
	gw.On("Trending", mock.Anything).Return(page).Once()

	got, err := svc.Trending(ctx)
	require.NoError(t, err)
	require.Len(t, got.Results, 1)

	// The feed is one synthetic page; upstream pagination never leaks out.
	assert.Equal(t, 1, got.Page)
	assert.Equal(t, 1, got.TotalPages)
	assert.Equal(t, int64(1), got.TotalResults)

	stored, err := repo.GetItem(ctx, 603)
	require.NoError(t, err)
	require.NotNil(t, stored)
}

func TestStreamsResolvesAndCachesBundle(t *testing.T) {
	svc, repo, gw, res := newCatalogService(t)
	ctx := context.Background()

	item := tmdb.Normalize(rawMovie(603, "The Matrix"))
	require.NoError(t, repo.UpsertItem(ctx, &item, time.Hour))

	srcs := []models.StreamSource{{URL: "https://vidsrc.to/embed/movie/603", Server: "VidSrc"}}
	res.On("Resolve", mock.Anything, int64(603), "The Matrix", mock.Anything).Return(srcs).Once()

	bundle, err := svc.Streams(ctx, 603)
	require.NoError(t, err)
	require.Len(t, bundle.Sources, 1)

	// A second read comes from the store.
	bundle, err = svc.Streams(ctx, 603)
	require.NoError(t, err)
	require.Len(t, bundle.Sources, 1)
	res.AssertNumberOfCalls(t, "Resolve", 1)
	gw.AssertNotCalled(t, "Details", mock.Anything, mock.Anything, mock.Anything)
}

func TestStreamsForUnknownTitle(t *testing.T) {
	svc, _, gw, _ := newCatalogService(t)

	gw.On("Details", mock.Anything, int64(999), models.KindMovie).Return(nil, false).Once()
	gw.On("Details", mock.Anything, int64(999), models.KindSeries).Return(nil, false).Once()

	_, err := svc.Streams(context.Background(), 999)
	require.Error(t, err)
	assert.True(t, models.IsCode(err, models.CodeTitleNotFound))
}

func TestHitRate(t *testing.T) {
	svc, repo, gw, _ := newCatalogService(t)
	ctx := context.Background()

	item := tmdb.Normalize(rawMovie(603, "The Matrix"))
	require.NoError(t, repo.UpsertItem(ctx, &item, time.Hour))

	assert.Zero(t, svc.HitRate())

	_, err := svc.GetByID(ctx, 603)
	require.NoError(t, err)
	assert.Equal(t, float64(100), svc.HitRate())

	gw.On("Details", mock.Anything, int64(999), models.KindMovie).Return(nil, false).Once()
	gw.On("Details", mock.Anything, int64(999), models.KindSeries).Return(nil, false).Once()
	_, _ = svc.GetByID(ctx, 999)
	assert.Equal(t, float64(50), svc.HitRate())
}

func TestClearCache(t *testing.T) {
	svc, repo, _, _ := newCatalogService(t)
	ctx := context.Background()

	item := tmdb.Normalize(rawMovie(603, "The Matrix"))
	require.NoError(t, repo.UpsertItem(ctx, &item, time.Hour))

	require.NoError(t, svc.ClearCache(ctx))

	items, bundles, err := svc.CachedCounts(ctx)
	require.NoError(t, err)
	assert.Zero(t, items)
	assert.Zero(t, bundles)
}
