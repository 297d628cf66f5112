// Package service holds the application's business logic. The catalog service
// implements the cache-through policy: reads go to the store first, upstream
// fills happen only on a miss or a thin result, and every fill is persisted
// before (or alongside) being returned.
package service

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"onstream/internal/cache"
	"onstream/internal/middleware"
	"onstream/internal/models"
	"onstream/internal/observability"
	"onstream/internal/repository"
	"onstream/internal/tmdb"
)

// A stored page below these result counts is considered thin and triggers an
// upstream refresh before answering.
const (
	listThinThreshold   = 10
	searchThinThreshold = 5
)

// Gateway is the upstream catalog provider surface the service depends on.
// All methods degrade to empty results rather than returning errors.
type Gateway interface {
	PopularMovies(ctx context.Context, page int) tmdb.RawPage
	PopularTV(ctx context.Context, page int) tmdb.RawPage
	Trending(ctx context.Context) tmdb.RawPage
	SearchMulti(ctx context.Context, query string, page int) tmdb.RawPage
	Details(ctx context.Context, tmdbID int64, kind string) (*tmdb.RawRecord, bool)
	Genres(ctx context.Context) []models.Genre
}

// SourceResolver resolves playable stream sources for a title.
type SourceResolver interface {
	Resolve(ctx context.Context, tmdbID int64, title string, year *string) []models.StreamSource
}

// CatalogService answers catalog reads through the persistent cache.
type CatalogService struct {
	repo     *repository.CatalogRepository
	gateway  Gateway
	resolver SourceResolver

	catalogTTL time.Duration
	streamTTL  time.Duration

	cacheHits   atomic.Int64
	cacheMisses atomic.Int64
}

func NewCatalogService(repo *repository.CatalogRepository, gateway Gateway, resolver SourceResolver, catalogTTL, streamTTL time.Duration) *CatalogService {
	return &CatalogService{
		repo:       repo,
		gateway:    gateway,
		resolver:   resolver,
		catalogTTL: catalogTTL,
		streamTTL:  streamTTL,
	}
}

// GetByID returns the metadata for one catalog id. On a store miss it asks
// upstream for the movie record first and falls back to the series record,
// since a bare catalog id does not carry its kind. Only when both lookups
// come back empty is the title reported unknown.
func (s *CatalogService) GetByID(ctx context.Context, tmdbID int64) (*models.CatalogItem, error) {
	item, err := s.repo.GetItem(ctx, tmdbID)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	if item != nil {
		s.recordHit("details")
		return item, nil
	}
	s.recordMiss("details")

	raw, ok := s.gateway.Details(ctx, tmdbID, models.KindMovie)
	if !ok {
		raw, ok = s.gateway.Details(ctx, tmdbID, models.KindSeries)
	}
	if !ok {
		return nil, models.NewTitleNotFoundError(tmdbID)
	}

	fresh := tmdb.Normalize(*raw)
	if err := s.repo.UpsertItem(ctx, &fresh, s.catalogTTL); err != nil {
		// Serve the fetched record even if persisting it failed.
		middleware.Logger.WarnContext(ctx, "catalog upsert failed",
			slog.Int64("tmdb_id", tmdbID), slog.String("error", err.Error()))
	}
	return &fresh, nil
}

// List returns one page of the catalog for a kind, optionally filtered by
// genre and year. A thin store triggers a refresh from the upstream popular
// feed before the page is re-read.
func (s *CatalogService) List(ctx context.Context, kind, genre, year string, page, pageSize int) (models.CatalogPage, error) {
	stored, err := s.repo.ListPaginated(ctx, kind, genre, year, page, pageSize)
	if err != nil {
		return models.CatalogPage{}, models.NewInternalError(err)
	}
	if len(stored.Results) >= listThinThreshold {
		s.recordHit("list")
		return stored, nil
	}
	s.recordMiss("list")

	var upstream tmdb.RawPage
	switch kind {
	case models.KindSeries:
		upstream = s.gateway.PopularTV(ctx, page)
	default:
		upstream = s.gateway.PopularMovies(ctx, page)
	}
	s.persistPage(ctx, upstream)

	refreshed, err := s.repo.ListPaginated(ctx, kind, genre, year, page, pageSize)
	if err != nil {
		return models.CatalogPage{}, models.NewInternalError(err)
	}
	return refreshed, nil
}

// Search answers a text query from the store, refreshing from the upstream
// multi-search when the stored answer is thin. When even the refreshed store
// cannot answer (the filters may not match what got persisted), the upstream
// results are served directly as an unpersisted view.
func (s *CatalogService) Search(ctx context.Context, query string, page, pageSize int) (models.SearchPage, error) {
	stored, err := s.repo.SearchText(ctx, query, page, pageSize)
	if err != nil {
		return models.SearchPage{}, models.NewInternalError(err)
	}
	if len(stored.Results) >= searchThinThreshold {
		s.recordHit("search")
		return models.SearchPage{Query: query, CatalogPage: stored}, nil
	}
	s.recordMiss("search")

	upstream := s.gateway.SearchMulti(ctx, query, page)
	titles := titleRecords(upstream)
	s.persistRecords(ctx, titles)

	refreshed, err := s.repo.SearchText(ctx, query, page, pageSize)
	if err != nil {
		return models.SearchPage{}, models.NewInternalError(err)
	}
	if len(refreshed.Results) > 0 || len(titles) == 0 {
		return models.SearchPage{Query: query, CatalogPage: refreshed}, nil
	}

	// Upstream answered but the store view misses it; serve upstream directly.
	items := make([]models.CatalogItem, 0, len(titles))
	for _, raw := range titles {
		items = append(items, tmdb.Normalize(raw))
	}
	return models.SearchPage{
		Query: query,
		CatalogPage: models.CatalogPage{
			Page:         upstream.Page,
			TotalPages:   max(upstream.TotalPages, 1),
			TotalResults: upstream.TotalResults,
			Results:      items,
		},
	}, nil
}

// Trending serves the upstream weekly trending feed, persisting every title
// it carries so later detail reads hit the store. The feed is a single
// synthetic page; its totals count the filtered results, not the upstream
// pagination.
func (s *CatalogService) Trending(ctx context.Context) (models.CatalogPage, error) {
	upstream := s.gateway.Trending(ctx)
	titles := titleRecords(upstream)
	s.persistRecords(ctx, titles)

	items := make([]models.CatalogItem, 0, len(titles))
	for _, raw := range titles {
		items = append(items, tmdb.Normalize(raw))
	}
	return models.CatalogPage{
		Page:         1,
		TotalPages:   1,
		TotalResults: int64(len(items)),
		Results:      items,
	}, nil
}

// Genres returns the merged genre catalog.
func (s *CatalogService) Genres(ctx context.Context) []models.Genre {
	return s.gateway.Genres(ctx)
}

// Streams returns the stream bundle for a catalog id, resolving and
// persisting it on a miss. The id must resolve to a known title first.
func (s *CatalogService) Streams(ctx context.Context, tmdbID int64) (*models.StreamBundle, error) {
	bundle, err := s.repo.GetStreamBundle(ctx, tmdbID)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	if bundle != nil {
		s.recordHit("streams")
		return bundle, nil
	}
	s.recordMiss("streams")

	item, err := s.GetByID(ctx, tmdbID)
	if err != nil {
		return nil, err
	}

	fresh := models.StreamBundle{
		TmdbID:    tmdbID,
		Sources:   s.resolver.Resolve(ctx, tmdbID, item.Title, item.Year),
		Subtitles: []models.SubtitleTrack{},
	}
	if err := s.repo.UpsertStreamBundle(ctx, &fresh, s.streamTTL); err != nil {
		middleware.Logger.WarnContext(ctx, "stream bundle upsert failed",
			slog.Int64("tmdb_id", tmdbID), slog.String("error", err.Error()))
	}
	return &fresh, nil
}

// HitRate reports the share of catalog reads answered by the store since
// startup, as a percentage.
func (s *CatalogService) HitRate() float64 {
	hits := s.cacheHits.Load()
	total := hits + s.cacheMisses.Load()
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total) * 100
}

// ClearCache drops all cached catalog data, including gateway memos.
func (s *CatalogService) ClearCache(ctx context.Context) error {
	if err := s.repo.ClearCatalog(ctx); err != nil {
		return models.NewInternalError(err)
	}
	cache.FlushMemos(ctx)
	return nil
}

// CachedCounts reports stored item and bundle totals for admin stats.
func (s *CatalogService) CachedCounts(ctx context.Context) (items, bundles int64, err error) {
	items, err = s.repo.CountItems(ctx)
	if err != nil {
		return 0, 0, models.NewInternalError(err)
	}
	bundles, err = s.repo.CountBundles(ctx)
	if err != nil {
		return items, 0, models.NewInternalError(err)
	}
	return items, bundles, nil
}

func (s *CatalogService) recordHit(surface string) {
	s.cacheHits.Add(1)
	observability.CatalogCacheHits.WithLabelValues(surface).Inc()
}

func (s *CatalogService) recordMiss(surface string) {
	s.cacheMisses.Add(1)
	observability.CatalogCacheMisses.WithLabelValues(surface).Inc()
}

func (s *CatalogService) persistPage(ctx context.Context, page tmdb.RawPage) {
	s.persistRecords(ctx, titleRecords(page))
}

func (s *CatalogService) persistRecords(ctx context.Context, records []tmdb.RawRecord) {
	if len(records) == 0 {
		return
	}
	items := make([]models.CatalogItem, 0, len(records))
	for _, raw := range records {
		items = append(items, tmdb.Normalize(raw))
	}
	if err := s.repo.UpsertItems(ctx, items, s.catalogTTL); err != nil {
		middleware.Logger.WarnContext(ctx, "catalog batch upsert failed",
			slog.Int("count", len(items)), slog.String("error", err.Error()))
	}
}

// titleRecords drops non-title records (multi feeds interleave people) and
// records without an id.
func titleRecords(page tmdb.RawPage) []tmdb.RawRecord {
	out := make([]tmdb.RawRecord, 0, len(page.Results))
	for _, raw := range page.Results {
		if raw.ID == 0 {
			continue
		}
		switch raw.MediaType {
		case "", models.KindMovie, models.KindSeries:
			out = append(out, raw)
		}
	}
	return out
}
