package models

import "time"

// FavoriteEntry is one (username, catalog id) favorite with a denormalized
// snapshot of the title at the time it was added. The pair is unique; adding
// again refreshes AddedAt.
type FavoriteEntry struct {
	ID         uint      `gorm:"primaryKey" json:"-"`
	Username   string    `gorm:"uniqueIndex:idx_favorites_user_title;index;not null" json:"username"`
	TmdbID     int64     `gorm:"uniqueIndex:idx_favorites_user_title;not null" json:"tmdb_id"`
	Title      string    `json:"title"`
	PosterPath *string   `json:"poster_path"`
	Kind       string    `gorm:"column:kind" json:"type"`
	AddedAt    time.Time `json:"added_at"`
}

// HistoryEntry is one (username, catalog id) watch record. Re-watching
// overwrites progress and the timestamp rather than appending a row.
type HistoryEntry struct {
	ID         uint      `gorm:"primaryKey" json:"-"`
	Username   string    `gorm:"index:idx_history_user_title;index;not null" json:"username"`
	TmdbID     int64     `gorm:"index:idx_history_user_title;not null" json:"tmdb_id"`
	Title      string    `json:"title"`
	PosterPath *string   `json:"poster_path"`
	Kind       string    `gorm:"column:kind" json:"type"`
	Progress   float64   `json:"progress"` // watched fraction in [0, 1]
	WatchedAt  time.Time `json:"watched_at"`
}

// FavoritePage is the paginated favorites listing.
type FavoritePage struct {
	Page         int             `json:"page"`
	TotalPages   int             `json:"total_pages"`
	TotalResults int64           `json:"total_results"`
	Results      []FavoriteEntry `json:"results"`
}

// HistoryPage is the paginated watch history listing.
type HistoryPage struct {
	Page         int            `json:"page"`
	TotalPages   int            `json:"total_pages"`
	TotalResults int64          `json:"total_results"`
	Results      []HistoryEntry `json:"results"`
}
