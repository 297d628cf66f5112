package sources

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"onstream/internal/cache"
)

func TestResolveAppendsFallbacksOnTotalFailure(t *testing.T) {
	// Unreachable aggregator: every provider search fails, but the embed
	// fallbacks still make the resolve non-empty.
	r := NewResolver("http://127.0.0.1:1")

	sources := r.Resolve(context.Background(), 603, "The Matrix", nil)

	require.Len(t, sources, 3)
	assert.Equal(t, "VidSrc", sources[0].Server)
	assert.Equal(t, "https://vidsrc.to/embed/movie/603", sources[0].URL)
	assert.Equal(t, "2Embed", sources[1].Server)
	assert.Equal(t, "StreamSB", sources[2].Server)
}

func TestResolvePrependsProviderHits(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/movies/flixhq":
			assert.Equal(t, "The Matrix", r.URL.Query().Get("query"))
			assert.Equal(t, "1999", r.URL.Query().Get("year"))
			w.Write([]byte(`{"results":[{"id":"m1","title":"The Matrix","url":"https://flixhq.example/watch/m1"}]}`))
		default:
			w.WriteHeader(http.StatusBadGateway)
		}
	}))
	defer srv.Close()

	year := "1999"
	r := NewResolver(srv.URL)

	sources := r.Resolve(context.Background(), 603, "The Matrix", &year)

	require.Len(t, sources, 4)
	assert.Equal(t, "flixhq", sources[0].Server)
	assert.Equal(t, "https://flixhq.example/watch/m1", sources[0].URL)
	assert.Equal(t, "VidSrc", sources[1].Server)
}

func TestResolveSkipsHitsWithoutURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"results":[{"id":"m1","title":"No Link"}]}`))
	}))
	defer srv.Close()

	r := NewResolver(srv.URL)

	sources := r.Resolve(context.Background(), 42, "No Link", nil)
	require.Len(t, sources, 3)
	assert.Equal(t, "VidSrc", sources[0].Server)
}

func TestResolveMemoizesProviderSearches(t *testing.T) {
	mr := miniredis.RunT(t)
	cache.SetClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { cache.SetClient(nil) })

	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"results":[{"id":"m1","title":"Heat","url":"https://flixhq.example/watch/m1"}]}`))
	}))
	defer srv.Close()

	r := NewResolver(srv.URL)

	first := r.Resolve(context.Background(), 949, "Heat", nil)
	second := r.Resolve(context.Background(), 949, "Heat", nil)

	assert.Equal(t, first, second)
	// One search per provider, each reused from the memo on the second resolve.
	assert.Equal(t, int64(len(providers)), hits.Load())
}

func TestFallbackEmbeds(t *testing.T) {
	embeds := FallbackEmbeds(1396)
	require.Len(t, embeds, 3)
	for _, s := range embeds {
		assert.Contains(t, s.URL, "1396")
		assert.Equal(t, "HD", s.Quality)
	}
}
