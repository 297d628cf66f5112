// Package models contains data structures for the application's domain models.
package models

import (
	"math"
	"time"
)

// Media kinds. A catalog id is ambiguous between the two without a kind hint.
const (
	KindMovie  = "movie"
	KindSeries = "tv"
)

// Genre is an id+name pair as delivered by the catalog provider.
type Genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// CatalogItem is the canonical cached metadata shape for a movie or series,
// keyed by the upstream catalog (TMDB) id. Rows past ExpiresAt are invisible
// to reads and are physically removed by the sweep.
type CatalogItem struct {
	ID               uint       `gorm:"primaryKey" json:"-"`
	TmdbID           int64      `gorm:"uniqueIndex;not null" json:"tmdb_id"`
	Title            string     `json:"title"`
	Overview         string     `json:"overview"`
	PosterPath       *string    `json:"poster_path"`
	BackdropPath     *string    `json:"backdrop_path"`
	ReleaseDate      *string    `json:"release_date"`
	FirstAirDate     *string    `json:"first_air_date"`
	Genres           []Genre    `gorm:"serializer:json" json:"genres"`
	VoteAverage      float64    `json:"vote_average"`
	VoteCount        int64      `json:"vote_count"`
	Runtime          *int       `json:"runtime"`
	NumberOfSeasons  *int       `json:"number_of_seasons"`
	NumberOfEpisodes *int       `json:"number_of_episodes"`
	Kind             string     `gorm:"column:kind;index" json:"type"`
	Adult            bool       `json:"adult"`
	OriginalLanguage string     `json:"original_language"`
	Popularity       float64    `json:"popularity"`
	Year             *string    `json:"year,omitempty"`
	CachedAt         time.Time  `json:"cached_at"`
	ExpiresAt        time.Time  `gorm:"index" json:"expires_at"`
}

// StreamSource is one playable link inside a bundle.
type StreamSource struct {
	URL     string            `json:"url"`
	Quality string            `json:"quality"`
	Server  string            `json:"server"`
	Type    string            `json:"type"`
	Headers map[string]string `json:"headers,omitempty"`
}

// SubtitleTrack is an optional subtitle reference attached to a bundle.
type SubtitleTrack struct {
	URL      string `json:"url"`
	Language string `json:"lang"`
}

// StreamBundle holds the streaming sources for one catalog id. Refreshes
// replace it wholesale; sources are never merged.
type StreamBundle struct {
	ID        uint            `gorm:"primaryKey" json:"-"`
	TmdbID    int64           `gorm:"uniqueIndex;not null" json:"tmdb_id"`
	Sources   []StreamSource  `gorm:"serializer:json" json:"sources"`
	Subtitles []SubtitleTrack `gorm:"serializer:json" json:"subtitles"`
	CachedAt  time.Time       `json:"cached_at"`
	ExpiresAt time.Time       `gorm:"index" json:"expires_at"`
}

// CatalogPage is the uniform paginated result shape for catalog reads.
type CatalogPage struct {
	Page         int           `json:"page"`
	TotalPages   int           `json:"total_pages"`
	TotalResults int64         `json:"total_results"`
	Results      []CatalogItem `json:"results"`
}

// SearchPage is a CatalogPage carrying the query it answered.
type SearchPage struct {
	Query string `json:"query"`
	CatalogPage
}

// TotalPages computes a 1-based page count. Empty result sets still occupy
// one page so the response shape stays stable.
func TotalPages(total int64, pageSize int) int {
	if total <= 0 || pageSize <= 0 {
		return 1
	}
	return int(math.Ceil(float64(total) / float64(pageSize)))
}
