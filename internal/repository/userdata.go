package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"onstream/internal/models"
)

// UserDataRepository stores per-user favorites and watch history.
type UserDataRepository struct {
	db *gorm.DB
}

func NewUserDataRepository(db *gorm.DB) *UserDataRepository {
	return &UserDataRepository{db: db}
}

// UpsertFavorite adds a title to a user's favorites. Re-adding refreshes the
// stored snapshot instead of duplicating the row.
func (r *UserDataRepository) UpsertFavorite(ctx context.Context, entry *models.FavoriteEntry) error {
	entry.AddedAt = time.Now().UTC()
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "username"}, {Name: "tmdb_id"}},
		UpdateAll: true,
	}).Create(entry).Error
}

// DeleteFavorite removes one favorite, reporting whether a row existed.
func (r *UserDataRepository) DeleteFavorite(ctx context.Context, username string, tmdbID int64) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("username = ? AND tmdb_id = ?", username, tmdbID).
		Delete(&models.FavoriteEntry{})
	return res.RowsAffected > 0, res.Error
}

// ListFavorites returns one page of a user's favorites, newest first.
func (r *UserDataRepository) ListFavorites(ctx context.Context, username string, page, pageSize int) (models.FavoritePage, error) {
	q := r.db.WithContext(ctx).
		Model(&models.FavoriteEntry{}).
		Where("username = ?", username)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return models.FavoritePage{}, err
	}

	var entries []models.FavoriteEntry
	err := q.Order("added_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&entries).Error
	if err != nil {
		return models.FavoritePage{}, err
	}

	return models.FavoritePage{
		Page:         page,
		TotalPages:   models.TotalPages(total, pageSize),
		TotalResults: total,
		Results:      entries,
	}, nil
}

// RecordHistory stores a watch event. A rewatch of the same title updates the
// existing row's progress and timestamp rather than inserting a new one.
func (r *UserDataRepository) RecordHistory(ctx context.Context, entry *models.HistoryEntry) error {
	entry.WatchedAt = time.Now().UTC()

	var existing models.HistoryEntry
	err := r.db.WithContext(ctx).
		Where("username = ? AND tmdb_id = ?", entry.Username, entry.TmdbID).
		First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return r.db.WithContext(ctx).Create(entry).Error
	}
	if err != nil {
		return err
	}

	entry.ID = existing.ID
	return r.db.WithContext(ctx).Model(&existing).Updates(map[string]any{
		"title":       entry.Title,
		"poster_path": entry.PosterPath,
		"kind":        entry.Kind,
		"progress":    entry.Progress,
		"watched_at":  entry.WatchedAt,
	}).Error
}

// ListHistory returns one page of a user's watch history, most recent first.
func (r *UserDataRepository) ListHistory(ctx context.Context, username string, page, pageSize int) (models.HistoryPage, error) {
	q := r.db.WithContext(ctx).
		Model(&models.HistoryEntry{}).
		Where("username = ?", username)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return models.HistoryPage{}, err
	}

	var entries []models.HistoryEntry
	err := q.Order("watched_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&entries).Error
	if err != nil {
		return models.HistoryPage{}, err
	}

	return models.HistoryPage{
		Page:         page,
		TotalPages:   models.TotalPages(total, pageSize),
		TotalResults: total,
		Results:      entries,
	}, nil
}

// DeleteHistory removes one history entry, reporting whether a row existed.
func (r *UserDataRepository) DeleteHistory(ctx context.Context, username string, tmdbID int64) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("username = ? AND tmdb_id = ?", username, tmdbID).
		Delete(&models.HistoryEntry{})
	return res.RowsAffected > 0, res.Error
}
