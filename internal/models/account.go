package models

import "time"

// Account is a registered user. Accounts are never hard-deleted by any flow.
type Account struct {
	ID           uint       `gorm:"primaryKey" json:"-"`
	Username     string     `gorm:"uniqueIndex;not null" json:"username"`
	Email        string     `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string     `gorm:"not null" json:"-"`
	IsAdmin      bool       `json:"is_admin"`
	CreatedAt    time.Time  `json:"created_at"`
	LastLogin    *time.Time `json:"last_login"`
}

// Token is the payload returned by a successful login.
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// SystemStats is the admin overview of store and account state.
type SystemStats struct {
	TotalUsers         int64   `json:"total_users"`
	TotalMoviesCached  int64   `json:"total_movies_cached"`
	TotalStreamsCached int64   `json:"total_streams_cached"`
	ActiveUsersToday   int64   `json:"active_users_today"`
	CacheHitRate       float64 `json:"cache_hit_rate"`
}
