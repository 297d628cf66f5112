// Package tmdb is the gateway to the upstream catalog provider. All calls are
// memoized in Redis for a short window and degrade to empty results on any
// transport or status failure; callers treat "empty" as "try the next
// fallback", never as a fault.
package tmdb

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"onstream/internal/cache"
	"onstream/internal/middleware"
	"onstream/internal/models"
	"onstream/internal/observability"
)

// RawRecord mirrors a provider-native title payload. Movie and series shapes
// share it; pointer fields distinguish "key absent" from "key present but
// empty", which the normalizer relies on to derive the media kind.
type RawRecord struct {
	ID               int64          `json:"id"`
	Title            *string        `json:"title"`
	Name             *string        `json:"name"`
	Overview         string         `json:"overview"`
	PosterPath       *string        `json:"poster_path"`
	BackdropPath     *string        `json:"backdrop_path"`
	ReleaseDate      *string        `json:"release_date"`
	FirstAirDate     *string        `json:"first_air_date"`
	Genres           []models.Genre `json:"genres"`
	VoteAverage      float64        `json:"vote_average"`
	VoteCount        int64          `json:"vote_count"`
	Runtime          *int           `json:"runtime"`
	NumberOfSeasons  *int           `json:"number_of_seasons"`
	NumberOfEpisodes *int           `json:"number_of_episodes"`
	Adult            bool           `json:"adult"`
	OriginalLanguage string         `json:"original_language"`
	Popularity       float64        `json:"popularity"`
	MediaType        string         `json:"media_type"` // set on search/trending payloads
}

// RawPage is a provider-native paginated result.
type RawPage struct {
	Page         int         `json:"page"`
	TotalPages   int         `json:"total_pages"`
	TotalResults int64       `json:"total_results"`
	Results      []RawRecord `json:"results"`
}

type genreListPayload struct {
	Genres []models.Genre `json:"genres"`
}

// Client issues catalog provider calls.
type Client struct {
	apiKey   string
	language string
	baseURL  string
	http     *http.Client
	memoTTL  time.Duration
}

// NewClient returns a catalog provider client.
func NewClient(apiKey, language, baseURL string, memoTTL time.Duration) *Client {
	return &Client{
		apiKey:   apiKey,
		language: language,
		baseURL:  baseURL,
		http:     &http.Client{Timeout: 15 * time.Second},
		memoTTL:  memoTTL,
	}
}

// get performs a memoized provider call, decoding into dest. It reports
// whether dest holds a fresh or memoized successful response. Failures are
// logged and counted, never returned.
func (c *Client) get(ctx context.Context, endpoint string, params url.Values, dest any) bool {
	return c.getWithTTL(ctx, endpoint, params, dest, c.memoTTL)
}

func (c *Client) getWithTTL(ctx context.Context, endpoint string, params url.Values, dest any, ttl time.Duration) bool {
	if params == nil {
		params = url.Values{}
	}

	// The memo key never includes credentials.
	key := cache.TMDBKey(endpoint, params)
	cached, err := cache.CacheAside(ctx, key, dest, ttl, func() error {
		return c.fetch(ctx, endpoint, params, dest)
	})
	if err != nil {
		return false
	}
	if cached {
		observability.GatewayMemoHits.WithLabelValues("tmdb").Inc()
	}
	return true
}

// fetch performs the network call, decoding into dest. Every failure is
// logged and counted before it is returned.
func (c *Client) fetch(ctx context.Context, endpoint string, params url.Values, dest any) error {
	observability.UpstreamRequests.WithLabelValues("tmdb", endpoint).Inc()

	q := url.Values{}
	for k, vs := range params {
		q[k] = vs
	}
	q.Set("api_key", c.apiKey)
	q.Set("language", c.language)

	reqURL := fmt.Sprintf("%s/%s?%s", c.baseURL, endpoint, q.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		observability.UpstreamErrors.WithLabelValues("tmdb", endpoint).Inc()
		middleware.Logger.WarnContext(ctx, "tmdb request build failed",
			slog.String("endpoint", endpoint), slog.String("error", err.Error()))
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		observability.UpstreamErrors.WithLabelValues("tmdb", endpoint).Inc()
		middleware.Logger.WarnContext(ctx, "tmdb request failed",
			slog.String("endpoint", endpoint), slog.String("error", err.Error()))
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		observability.UpstreamErrors.WithLabelValues("tmdb", endpoint).Inc()
		middleware.Logger.WarnContext(ctx, "tmdb non-success status",
			slog.String("endpoint", endpoint), slog.Int("status", resp.StatusCode))
		return fmt.Errorf("tmdb %s: status %d", endpoint, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		observability.UpstreamErrors.WithLabelValues("tmdb", endpoint).Inc()
		middleware.Logger.WarnContext(ctx, "tmdb response decode failed",
			slog.String("endpoint", endpoint), slog.String("error", err.Error()))
		return err
	}
	return nil
}

// PopularMovies fetches a page of popular movies. Empty on failure.
func (c *Client) PopularMovies(ctx context.Context, page int) RawPage {
	var out RawPage
	params := url.Values{}
	params.Set("page", strconv.Itoa(page))
	if !c.get(ctx, "movie/popular", params, &out) {
		return RawPage{}
	}
	return out
}

// PopularTV fetches a page of popular series. Empty on failure.
func (c *Client) PopularTV(ctx context.Context, page int) RawPage {
	var out RawPage
	params := url.Values{}
	params.Set("page", strconv.Itoa(page))
	if !c.get(ctx, "tv/popular", params, &out) {
		return RawPage{}
	}
	return out
}

// Trending fetches the weekly trending feed across movies and series.
func (c *Client) Trending(ctx context.Context) RawPage {
	var out RawPage
	if !c.get(ctx, "trending/all/week", nil, &out) {
		return RawPage{}
	}
	return out
}

// SearchMulti searches movies and series in one call.
func (c *Client) SearchMulti(ctx context.Context, query string, page int) RawPage {
	var out RawPage
	params := url.Values{}
	params.Set("query", query)
	params.Set("page", strconv.Itoa(page))
	params.Set("include_adult", "false")
	if !c.get(ctx, "search/multi", params, &out) {
		return RawPage{}
	}
	return out
}

// Details fetches the full record for one catalog id under the given kind.
// The second return is false when the provider had no usable answer, which
// covers both not-found and degraded upstreams; the caller's fallback chain
// treats them the same way.
func (c *Client) Details(ctx context.Context, tmdbID int64, kind string) (*RawRecord, bool) {
	endpoint := fmt.Sprintf("movie/%d", tmdbID)
	if kind == models.KindSeries {
		endpoint = fmt.Sprintf("tv/%d", tmdbID)
	}

	var out RawRecord
	if !c.get(ctx, endpoint, nil, &out) {
		return nil, false
	}
	if out.ID == 0 {
		return nil, false
	}
	return &out, true
}

// Genres returns the merged movie and series genre lists, de-duplicated by id.
// Genre taxonomies change rarely, so they memoize on their own longer window.
func (c *Client) Genres(ctx context.Context) []models.Genre {
	merged := make(map[int]models.Genre)
	for _, endpoint := range []string{"genre/movie/list", "genre/tv/list"} {
		var payload genreListPayload
		if c.getWithTTL(ctx, endpoint, nil, &payload, cache.GenreListTTL) {
			for _, g := range payload.Genres {
				merged[g.ID] = g
			}
		}
	}

	out := make([]models.Genre, 0, len(merged))
	for _, g := range merged {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
