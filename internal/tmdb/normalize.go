package tmdb

import (
	"onstream/internal/models"
)

const (
	posterBaseURL   = "https://image.tmdb.org/t/p/w500"
	backdropBaseURL = "https://image.tmdb.org/t/p/w1280"
)

// Normalize converts a provider-native record into the canonical catalog
// shape. It is a pure mapping: no I/O, no clock. Storage timestamps are
// assigned at write time by the repository.
//
// The kind is decided solely by the presence of the first_air_date key in the
// raw payload. A series record carries the key even when its value is empty;
// a movie record never carries it.
func Normalize(raw RawRecord) models.CatalogItem {
	kind := models.KindMovie
	if raw.FirstAirDate != nil {
		kind = models.KindSeries
	}

	title := ""
	if raw.Title != nil {
		title = *raw.Title
	} else if raw.Name != nil {
		title = *raw.Name
	}

	releaseDate := raw.ReleaseDate
	if releaseDate == nil {
		releaseDate = raw.FirstAirDate
	}

	lang := raw.OriginalLanguage
	if lang == "" {
		lang = "en"
	}

	genres := raw.Genres
	if genres == nil {
		genres = []models.Genre{}
	}

	return models.CatalogItem{
		TmdbID:           raw.ID,
		Title:            title,
		Overview:         raw.Overview,
		PosterPath:       prefixImage(raw.PosterPath, posterBaseURL),
		BackdropPath:     prefixImage(raw.BackdropPath, backdropBaseURL),
		ReleaseDate:      releaseDate,
		FirstAirDate:     raw.FirstAirDate,
		Genres:           genres,
		VoteAverage:      raw.VoteAverage,
		VoteCount:        raw.VoteCount,
		Runtime:          raw.Runtime,
		NumberOfSeasons:  raw.NumberOfSeasons,
		NumberOfEpisodes: raw.NumberOfEpisodes,
		Kind:             kind,
		Adult:            raw.Adult,
		OriginalLanguage: lang,
		Popularity:       raw.Popularity,
		Year:             yearOf(releaseDate),
	}
}

// NormalizePage maps every record of a provider page.
func NormalizePage(page RawPage) []models.CatalogItem {
	items := make([]models.CatalogItem, 0, len(page.Results))
	for _, raw := range page.Results {
		items = append(items, Normalize(raw))
	}
	return items
}

// prefixImage turns a provider-relative image path into an absolute URL.
// Absent paths stay absent rather than becoming a bare base URL.
func prefixImage(path *string, base string) *string {
	if path == nil || *path == "" {
		return nil
	}
	full := base + *path
	return &full
}

// yearOf extracts the four-digit year from an ISO date string.
func yearOf(date *string) *string {
	if date == nil || len(*date) < 4 {
		return nil
	}
	y := (*date)[:4]
	return &y
}
