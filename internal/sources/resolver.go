// Package sources resolves playable stream sources for a catalog title. It
// probes third-party aggregator providers on a best-effort basis and always
// appends a set of embed fallbacks derived from the catalog id, so a resolve
// never comes back empty.
package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"onstream/internal/cache"
	"onstream/internal/middleware"
	"onstream/internal/models"
	"onstream/internal/observability"
)

// providers probed in order; each failure is skipped, never fatal.
var providers = []string{"flixhq", "dramacool", "gogoanime"}

// maxPerProvider caps how many aggregator hits one provider may contribute.
const maxPerProvider = 3

// searchMemoTTL bounds how long a provider search answer is reused. Provider
// catalogs churn, so this stays well below the stream bundle TTL.
const searchMemoTTL = 10 * time.Minute

type providerHit struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	URL   string `json:"url"`
}

type providerSearchPayload struct {
	Results []providerHit `json:"results"`
}

// Resolver looks up stream sources from an aggregator API.
type Resolver struct {
	baseURL string
	http    *http.Client
}

// NewResolver returns a resolver against the given aggregator base URL.
func NewResolver(baseURL string) *Resolver {
	return &Resolver{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// Resolve returns stream sources for a title. Provider hits come first when
// any provider answers; the embed fallbacks are appended unconditionally.
func (r *Resolver) Resolve(ctx context.Context, tmdbID int64, title string, year *string) []models.StreamSource {
	sources := r.searchProviders(ctx, title, year)
	return append(sources, FallbackEmbeds(tmdbID)...)
}

func (r *Resolver) searchProviders(ctx context.Context, title string, year *string) []models.StreamSource {
	var sources []models.StreamSource
	for _, provider := range providers {
		hits, err := r.searchProvider(ctx, provider, title, year)
		if err != nil {
			observability.UpstreamErrors.WithLabelValues("sources", provider).Inc()
			middleware.Logger.WarnContext(ctx, "source provider search failed",
				slog.String("provider", provider), slog.String("error", err.Error()))
			continue
		}
		if len(hits) > maxPerProvider {
			hits = hits[:maxPerProvider]
		}
		for _, hit := range hits {
			if hit.URL == "" {
				continue
			}
			sources = append(sources, models.StreamSource{
				URL:     hit.URL,
				Quality: "auto",
				Server:  provider,
				Type:    "embed",
			})
		}
	}
	return sources
}

func (r *Resolver) searchProvider(ctx context.Context, provider, title string, year *string) ([]providerHit, error) {
	params := url.Values{}
	params.Set("query", title)
	if year != nil && *year != "" {
		params.Set("year", *year)
	}

	key := cache.SourcesKey(provider, params)
	var hits []providerHit
	cached, err := cache.CacheAside(ctx, key, &hits, searchMemoTTL, func() error {
		fetched, ferr := r.fetchProvider(ctx, provider, params)
		if ferr != nil {
			return ferr
		}
		hits = fetched
		return nil
	})
	if err != nil {
		return nil, err
	}
	if cached {
		observability.GatewayMemoHits.WithLabelValues("sources").Inc()
	}
	return hits, nil
}

func (r *Resolver) fetchProvider(ctx context.Context, provider string, params url.Values) ([]providerHit, error) {
	observability.UpstreamRequests.WithLabelValues("sources", provider).Inc()

	reqURL := fmt.Sprintf("%s/movies/%s?%s", r.baseURL, provider, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := r.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("provider %s status %d", provider, resp.StatusCode)
	}

	var payload providerSearchPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, err
	}
	return payload.Results, nil
}

// FallbackEmbeds builds the always-available embed sources for a catalog id.
func FallbackEmbeds(tmdbID int64) []models.StreamSource {
	return []models.StreamSource{
		{
			URL:     fmt.Sprintf("https://vidsrc.to/embed/movie/%d", tmdbID),
			Quality: "HD",
			Server:  "VidSrc",
			Type:    "mp4",
		},
		{
			URL:     fmt.Sprintf("https://www.2embed.cc/embed/%d", tmdbID),
			Quality: "HD",
			Server:  "2Embed",
			Type:    "mp4",
		},
		{
			URL:     fmt.Sprintf("https://embedsb.com/e/%d", tmdbID),
			Quality: "HD",
			Server:  "StreamSB",
			Type:    "mp4",
		},
	}
}
