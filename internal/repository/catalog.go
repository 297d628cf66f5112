// Package repository wraps all database access behind small per-aggregate
// repositories. Catalog reads are TTL-filtered: an expired row is treated
// exactly like a missing row, and eviction is left to the sweeper.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"onstream/internal/models"
)

// CatalogRepository stores normalized catalog items and stream bundles.
type CatalogRepository struct {
	db *gorm.DB
}

func NewCatalogRepository(db *gorm.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

// UpsertItem writes one catalog item, refreshing the freshness window. A
// conflicting tmdb_id overwrites the stored row in place.
func (r *CatalogRepository) UpsertItem(ctx context.Context, item *models.CatalogItem, ttl time.Duration) error {
	now := time.Now().UTC()
	item.CachedAt = now
	item.ExpiresAt = now.Add(ttl)

	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "tmdb_id"}},
		UpdateAll: true,
	}).Create(item).Error
}

// UpsertItems writes a batch of items under one freshness window.
func (r *CatalogRepository) UpsertItems(ctx context.Context, items []models.CatalogItem, ttl time.Duration) error {
	if len(items) == 0 {
		return nil
	}

	now := time.Now().UTC()
	for i := range items {
		items[i].CachedAt = now
		items[i].ExpiresAt = now.Add(ttl)
	}

	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "tmdb_id"}},
		UpdateAll: true,
	}).Create(&items).Error
}

// GetItem returns the fresh item for a catalog id, or nil when the row is
// missing or past its freshness window.
func (r *CatalogRepository) GetItem(ctx context.Context, tmdbID int64) (*models.CatalogItem, error) {
	var item models.CatalogItem
	err := r.db.WithContext(ctx).
		Where("tmdb_id = ? AND expires_at > ?", tmdbID, time.Now().UTC()).
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// ListPaginated returns one page of fresh items, most popular first. Filters
// are optional; an empty value skips the filter.
func (r *CatalogRepository) ListPaginated(ctx context.Context, kind, genre, year string, page, pageSize int) (models.CatalogPage, error) {
	q := r.freshItems(ctx)
	if kind != "" {
		q = q.Where("kind = ?", kind)
	}
	if genre != "" {
		// Genres are stored as a JSON array column; match on the serialized
		// name field.
		q = q.Where("genres LIKE ?", fmt.Sprintf(`%%"name":%q%%`, genre))
	}
	if year != "" {
		q = yearFilter(q, kind, year)
	}

	var total int64
	if err := q.Model(&models.CatalogItem{}).Count(&total).Error; err != nil {
		return models.CatalogPage{}, err
	}

	var items []models.CatalogItem
	err := q.Order("popularity DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&items).Error
	if err != nil {
		return models.CatalogPage{}, err
	}

	return models.CatalogPage{
		Page:         page,
		TotalPages:   models.TotalPages(total, pageSize),
		TotalResults: total,
		Results:      items,
	}, nil
}

// SearchText returns one page of fresh items matching the query against
// title or overview, most popular first.
func (r *CatalogRepository) SearchText(ctx context.Context, query string, page, pageSize int) (models.CatalogPage, error) {
	pattern := "%" + query + "%"
	q := r.freshItems(ctx).Where("title LIKE ? OR overview LIKE ?", pattern, pattern)

	var total int64
	if err := q.Model(&models.CatalogItem{}).Count(&total).Error; err != nil {
		return models.CatalogPage{}, err
	}

	var items []models.CatalogItem
	err := q.Order("popularity DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&items).Error
	if err != nil {
		return models.CatalogPage{}, err
	}

	return models.CatalogPage{
		Page:         page,
		TotalPages:   models.TotalPages(total, pageSize),
		TotalResults: total,
		Results:      items,
	}, nil
}

// UpsertStreamBundle writes the stream bundle for a catalog id, refreshing
// its freshness window.
func (r *CatalogRepository) UpsertStreamBundle(ctx context.Context, bundle *models.StreamBundle, ttl time.Duration) error {
	now := time.Now().UTC()
	bundle.CachedAt = now
	bundle.ExpiresAt = now.Add(ttl)

	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "tmdb_id"}},
		UpdateAll: true,
	}).Create(bundle).Error
}

// GetStreamBundle returns the fresh stream bundle for a catalog id, or nil
// on miss or expiry.
func (r *CatalogRepository) GetStreamBundle(ctx context.Context, tmdbID int64) (*models.StreamBundle, error) {
	var bundle models.StreamBundle
	err := r.db.WithContext(ctx).
		Where("tmdb_id = ? AND expires_at > ?", tmdbID, time.Now().UTC()).
		First(&bundle).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &bundle, nil
}

// SweepExpired deletes rows past their freshness window, returning deleted
// counts per table.
func (r *CatalogRepository) SweepExpired(ctx context.Context) (items, bundles int64, err error) {
	now := time.Now().UTC()

	res := r.db.WithContext(ctx).Where("expires_at <= ?", now).Delete(&models.CatalogItem{})
	if res.Error != nil {
		return 0, 0, res.Error
	}
	items = res.RowsAffected

	res = r.db.WithContext(ctx).Where("expires_at <= ?", now).Delete(&models.StreamBundle{})
	if res.Error != nil {
		return items, 0, res.Error
	}
	bundles = res.RowsAffected

	return items, bundles, nil
}

// CountItems counts all stored catalog items, fresh or not.
func (r *CatalogRepository) CountItems(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.CatalogItem{}).Count(&n).Error
	return n, err
}

// CountBundles counts all stored stream bundles, fresh or not.
func (r *CatalogRepository) CountBundles(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.StreamBundle{}).Count(&n).Error
	return n, err
}

// ClearCatalog drops every cached item and bundle. User data is untouched.
func (r *CatalogRepository) ClearCatalog(ctx context.Context) error {
	if err := r.db.WithContext(ctx).Where("1 = 1").Delete(&models.CatalogItem{}).Error; err != nil {
		return err
	}
	return r.db.WithContext(ctx).Where("1 = 1").Delete(&models.StreamBundle{}).Error
}

func (r *CatalogRepository) freshItems(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Model(&models.CatalogItem{}).
		Where("expires_at > ?", time.Now().UTC())
}

// yearFilter matches the year prefix of the date column appropriate for the
// kind. Without a kind both date columns are considered.
func yearFilter(q *gorm.DB, kind, year string) *gorm.DB {
	pattern := year + "%"
	switch kind {
	case models.KindMovie:
		return q.Where("release_date LIKE ?", pattern)
	case models.KindSeries:
		return q.Where("first_air_date LIKE ?", pattern)
	default:
		return q.Where("release_date LIKE ? OR first_air_date LIKE ?", pattern, pattern)
	}
}
