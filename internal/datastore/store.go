package datastore

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tphakala/pixalb/internal/errors"
	"github.com/tphakala/pixalb/internal/logger"
)

// Store implements ImageStore on a GORM connection. Timestamps are stored
// and compared in UTC.
type Store struct {
	db  *gorm.DB
	log logger.Logger
}

// New wraps an already opened and migrated connection.
func New(db *gorm.DB, log logger.Logger) *Store {
	if log == nil {
		log = logger.NewDiscardLogger()
	}
	return &Store{db: db, log: log}
}

// DB exposes the underlying connection.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Transaction runs fn inside a database transaction. Returning an error from
// fn rolls back every write made through tx.
func (s *Store) Transaction(ctx context.Context, fn func(tx ImageStore) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx, log: s.log})
	})
}

func (s *Store) AddQuery(ctx context.Context, q *CachedQuery) error {
	row := *q
	row.ExpiryDate = row.ExpiryDate.UTC()
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "inquiry"}},
			UpdateAll: true,
		}).
		Create(&row).Error
	if err != nil {
		return dbError(err, "add_query", "inquiry", q.Inquiry)
	}
	return nil
}

func (s *Store) UpdatePageIndex(ctx context.Context, inquiry string, storedPages int) error {
	err := s.db.WithContext(ctx).Model(&CachedQuery{}).
		Where("inquiry = ?", inquiry).
		Update("stored_pages", storedPages).Error
	if err != nil {
		return dbError(err, "update_page_index", "inquiry", inquiry, "stored_pages", storedPages)
	}
	return nil
}

func (s *Store) FetchQueryInfo(ctx context.Context, inquiry string, now time.Time) (*CachedQuery, error) {
	var q CachedQuery
	err := s.db.WithContext(ctx).
		Where("inquiry = ? AND expiry_date > ?", inquiry, now.UTC()).
		First(&q).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFoundError(ErrCachedQueryNotFound, "fetch_query_info", "inquiry", inquiry)
	}
	if err != nil {
		return nil, dbError(err, "fetch_query_info", "inquiry", inquiry)
	}
	return &q, nil
}

func (s *Store) FetchImages(ctx context.Context, inquiry string, offset, limit int) ([]Image, error) {
	var images []Image
	err := s.db.WithContext(ctx).Model(&Image{}).
		Select("images.*").
		Joins("JOIN query_images ON query_images.image_id = images.image_id").
		Where("query_images.inquiry = ?", inquiry).
		Order("query_images.id").
		Offset(offset).
		Limit(limit).
		Find(&images).Error
	if err != nil {
		return nil, dbError(err, "fetch_images", "inquiry", inquiry, "offset", offset)
	}
	return images, nil
}

func (s *Store) FetchImage(ctx context.Context, imageID int64) (*Image, error) {
	var img Image
	err := s.db.WithContext(ctx).Where("image_id = ?", imageID).First(&img).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFoundError(ErrImageNotFound, "fetch_image", "image_id", imageID)
	}
	if err != nil {
		return nil, dbError(err, "fetch_image", "image_id", imageID)
	}
	return &img, nil
}

func (s *Store) AddImage(ctx context.Context, img *Image) error {
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "image_id"}},
			UpdateAll: true,
		}).
		Create(img).Error
	if err != nil {
		return dbError(err, "add_image", "image_id", img.ImageID)
	}
	return nil
}

func (s *Store) AddImageQuery(ctx context.Context, inquiry string, imageID int64) error {
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&QueryImage{Inquiry: inquiry, ImageID: imageID}).Error
	if err != nil {
		return dbError(err, "add_image_query", "inquiry", inquiry, "image_id", imageID)
	}
	return nil
}

func (s *Store) ClearImageQueries(ctx context.Context, inquiry string) error {
	err := s.db.WithContext(ctx).Where("inquiry = ?", inquiry).Delete(&QueryImage{}).Error
	if err != nil {
		return dbError(err, "clear_image_queries", "inquiry", inquiry)
	}
	return nil
}

func (s *Store) Stats(ctx context.Context, now time.Time) (Stats, error) {
	var stats Stats
	db := s.db.WithContext(ctx)

	if err := db.Model(&CachedQuery{}).Count(&stats.Queries).Error; err != nil {
		return stats, dbError(err, "stats", "table", "cached_queries")
	}
	if err := db.Model(&CachedQuery{}).Where("expiry_date > ?", now.UTC()).Count(&stats.LiveQueries).Error; err != nil {
		return stats, dbError(err, "stats", "table", "cached_queries")
	}
	if err := db.Model(&Image{}).Count(&stats.Images).Error; err != nil {
		return stats, dbError(err, "stats", "table", "images")
	}
	if err := db.Model(&QueryImage{}).Count(&stats.Associations).Error; err != nil {
		return stats, dbError(err, "stats", "table", "query_images")
	}
	return stats, nil
}

func (s *Store) PurgeExpired(ctx context.Context, now time.Time) (PurgeResult, error) {
	var result PurgeResult
	start := time.Now()
	now = now.UTC()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		expired := tx.Model(&CachedQuery{}).Select("inquiry").Where("expiry_date <= ?", now)

		res := tx.Where("inquiry IN (?)", expired).Delete(&QueryImage{})
		if res.Error != nil {
			return res.Error
		}
		result.Associations = res.RowsAffected

		res = tx.Where("expiry_date <= ?", now).Delete(&CachedQuery{})
		if res.Error != nil {
			return res.Error
		}
		result.Queries = res.RowsAffected

		linked := tx.Model(&QueryImage{}).Select("image_id")
		res = tx.Where("image_id NOT IN (?)", linked).Delete(&Image{})
		if res.Error != nil {
			return res.Error
		}
		result.Images = res.RowsAffected
		return nil
	})
	if err != nil {
		return PurgeResult{}, dbError(err, "purge_expired")
	}

	s.log.Info("purged expired cache entries",
		logger.Int64("queries", result.Queries),
		logger.Int64("associations", result.Associations),
		logger.Int64("images", result.Images),
		logger.Duration("duration", time.Since(start)))
	return result, nil
}

// Ping checks that the database answers.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return dbError(err, "ping")
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return dbError(err, "ping")
	}
	return nil
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return dbError(err, "close")
	}
	if err := sqlDB.Close(); err != nil {
		return dbError(err, "close")
	}
	s.log.Debug("database connection closed")
	return nil
}
