package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"onstream/internal/config"
	"onstream/internal/database"
	"onstream/internal/models"
	"onstream/internal/repository"
	"onstream/internal/service"
	"onstream/internal/tmdb"
)

type gatewayMock struct {
	mock.Mock
}

func (m *gatewayMock) PopularMovies(ctx context.Context, page int) tmdb.RawPage {
	args := m.Called(ctx, page)
	return args.Get(0).(tmdb.RawPage)
}

func (m *gatewayMock) PopularTV(ctx context.Context, page int) tmdb.RawPage {
	args := m.Called(ctx, page)
	return args.Get(0).(tmdb.RawPage)
}

func (m *gatewayMock) Trending(ctx context.Context) tmdb.RawPage {
	args := m.Called(ctx)
	return args.Get(0).(tmdb.RawPage)
}

func (m *gatewayMock) SearchMulti(ctx context.Context, query string, page int) tmdb.RawPage {
	args := m.Called(ctx, query, page)
	return args.Get(0).(tmdb.RawPage)
}

func (m *gatewayMock) Details(ctx context.Context, tmdbID int64, kind string) (*tmdb.RawRecord, bool) {
	args := m.Called(ctx, tmdbID, kind)
	var rec *tmdb.RawRecord
	if v := args.Get(0); v != nil {
		rec = v.(*tmdb.RawRecord)
	}
	return rec, args.Bool(1)
}

func (m *gatewayMock) Genres(ctx context.Context) []models.Genre {
	args := m.Called(ctx)
	return args.Get(0).([]models.Genre)
}

type resolverMock struct {
	mock.Mock
}

func (m *resolverMock) Resolve(ctx context.Context, tmdbID int64, title string, year *string) []models.StreamSource {
	args := m.Called(ctx, tmdbID, title, year)
	return args.Get(0).([]models.StreamSource)
}

// newTestServer builds a server on an isolated in-memory database without the
// Prometheus middleware so tests can run side by side.
func newTestServer(t *testing.T) (*Server, *fiber.App, *gatewayMock, *resolverMock) {
	t.Helper()

	db, err := database.ConnectTest()
	require.NoError(t, err)

	cfg := &config.Config{
		Port:            "8001",
		Env:             "test",
		JWTSecret:       "test-secret",
		TokenExpiryMin:  60,
		CatalogTTLHours: 24,
		StreamTTLHours:  1,
	}
	gw := &gatewayMock{}
	res := &resolverMock{}

	s := &Server{
		config:       cfg,
		db:           db,
		catalogRepo:  repository.NewCatalogRepository(db),
		accountRepo:  repository.NewAccountRepository(db),
		userDataRepo: repository.NewUserDataRepository(db),
	}
	s.catalog = service.NewCatalogService(s.catalogRepo, gw, res, cfg.CatalogTTL(), cfg.StreamTTL())
	s.accounts = service.NewAccountService(s.accountRepo, cfg.JWTSecret, time.Hour)

	app := fiber.New()
	s.SetupRoutes(app)
	return s, app, gw, res
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func doJSON(t *testing.T, app *fiber.App, method, path, token string, body any) (*http.Response, envelope) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp, env
}

func registerAndLogin(t *testing.T, app *fiber.App, username string) string {
	t.Helper()

	resp, env := doJSON(t, app, http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": username,
		"email":    username + "@example.com",
		"password": "secret1",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.True(t, env.Success)

	resp, env = doJSON(t, app, http.MethodPost, "/api/auth/login", "", map[string]string{
		"username": username,
		"password": "secret1",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.True(t, env.Success)

	var token models.Token
	require.NoError(t, json.Unmarshal(env.Data, &token))
	require.NotEmpty(t, token.AccessToken)
	return token.AccessToken
}

func seedMovies(t *testing.T, s *Server, n int) {
	t.Helper()

	items := make([]models.CatalogItem, 0, n)
	for i := 1; i <= n; i++ {
		date := "1999-03-31"
		items = append(items, models.CatalogItem{
			TmdbID:      int64(i),
			Title:       fmt.Sprintf("Movie %d", i),
			ReleaseDate: &date,
			Kind:        models.KindMovie,
			Popularity:  float64(i),
		})
	}
	require.NoError(t, s.catalogRepo.UpsertItems(context.Background(), items, time.Hour))
}
