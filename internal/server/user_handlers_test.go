package server

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"onstream/internal/models"
)

func TestFavoritesFlow(t *testing.T) {
	s, app, _, _ := newTestServer(t)
	seedMovies(t, s, 1)
	token := registerAndLogin(t, app, "neo")

	resp, env := doJSON(t, app, http.MethodPost, "/api/users/me/favorites", token, map[string]any{
		"tmdb_id": 1,
	})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	require.True(t, env.Success)

	resp, env = doJSON(t, app, http.MethodGet, "/api/users/me/favorites", token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.True(t, env.Success)

	var page models.FavoritePage
	require.NoError(t, json.Unmarshal(env.Data, &page))
	require.Len(t, page.Results, 1)
	assert.Equal(t, "Movie 1", page.Results[0].Title)

	resp, env = doJSON(t, app, http.MethodDelete, "/api/users/me/favorites/1", token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, env.Success)

	resp, env = doJSON(t, app, http.MethodDelete, "/api/users/me/favorites/1", token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.False(t, env.Success)
	assert.Equal(t, models.CodeFavoriteNotFound, env.Error)
}

func TestAddFavoriteRequiresKnownTitle(t *testing.T) {
	_, app, gw, _ := newTestServer(t)
	token := registerAndLogin(t, app, "neo")

	gw.On("Details", mock.Anything, int64(999), models.KindMovie).Return(nil, false).Once()
	gw.On("Details", mock.Anything, int64(999), models.KindSeries).Return(nil, false).Once()

	resp, env := doJSON(t, app, http.MethodPost, "/api/users/me/favorites", token, map[string]any{
		"tmdb_id": 999,
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.False(t, env.Success)
	assert.Equal(t, models.CodeTitleNotFound, env.Error)
}

func TestFavoritesRequireAuth(t *testing.T) {
	_, app, _, _ := newTestServer(t)

	resp, _ := doJSON(t, app, http.MethodGet, "/api/users/me/favorites", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHistoryFlow(t *testing.T) {
	s, app, _, _ := newTestServer(t)
	seedMovies(t, s, 1)
	token := registerAndLogin(t, app, "neo")

	resp, env := doJSON(t, app, http.MethodPost, "/api/users/me/history", token, map[string]any{
		"tmdb_id":  1,
		"progress": 0.25,
	})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	require.True(t, env.Success)

	// A rewatch overwrites the entry rather than adding another one.
	resp, env = doJSON(t, app, http.MethodPost, "/api/users/me/history", token, map[string]any{
		"tmdb_id":  1,
		"progress": 0.9,
	})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	require.True(t, env.Success)

	resp, env = doJSON(t, app, http.MethodGet, "/api/users/me/history", token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.True(t, env.Success)

	var page models.HistoryPage
	require.NoError(t, json.Unmarshal(env.Data, &page))
	require.Len(t, page.Results, 1)
	assert.Equal(t, 0.9, page.Results[0].Progress)

	resp, env = doJSON(t, app, http.MethodDelete, "/api/users/me/history/1", token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, env.Success)

	resp, env = doJSON(t, app, http.MethodDelete, "/api/users/me/history/1", token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.False(t, env.Success)
	assert.Equal(t, models.CodeHistoryNotFound, env.Error)

	resp, env = doJSON(t, app, http.MethodGet, "/api/users/me/history", token, nil)
	require.True(t, env.Success)
	require.NoError(t, json.Unmarshal(env.Data, &page))
	assert.Empty(t, page.Results)
}

func TestHistoryRejectsBadProgress(t *testing.T) {
	_, app, _, _ := newTestServer(t)
	token := registerAndLogin(t, app, "neo")

	resp, env := doJSON(t, app, http.MethodPost, "/api/users/me/history", token, map[string]any{
		"tmdb_id":  1,
		"progress": 1.5,
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.False(t, env.Success)
	assert.Equal(t, models.CodeValidation, env.Error)
}
