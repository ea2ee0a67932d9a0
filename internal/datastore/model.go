package datastore

import "time"

// CachedQuery is the cache metadata for one query text. TotalPages and
// StoredPages are item counts despite their names.
type CachedQuery struct {
	Inquiry     string    `gorm:"primaryKey;size:255"`
	TotalPages  int       `gorm:"not null"`
	StoredPages int       `gorm:"not null"`
	ExpiryDate  time.Time `gorm:"index;not null"`
}

// TableName returns the table name for GORM.
func (CachedQuery) TableName() string {
	return "cached_queries"
}

// Image is a single cached image, shared by every query that returned it.
type Image struct {
	ImageID    int64    `gorm:"primaryKey;autoIncrement:false"`
	User       string   `gorm:"size:255"`
	Tags       []string `gorm:"serializer:json;type:text"`
	Downloads  uint32
	Likes      uint32
	Comments   uint32
	PreviewURL string `gorm:"size:2048"`
	LargeURL   string `gorm:"size:2048"`
}

// TableName returns the table name for GORM.
func (Image) TableName() string {
	return "images"
}

// QueryImage links a query to an image. ID follows insertion order and
// defines the order in which a query's images are paged.
type QueryImage struct {
	ID      uint   `gorm:"primaryKey"`
	Inquiry string `gorm:"size:255;not null;uniqueIndex:idx_query_images_inquiry_image"`
	ImageID int64  `gorm:"not null;uniqueIndex:idx_query_images_inquiry_image"`
}

// TableName returns the table name for GORM.
func (QueryImage) TableName() string {
	return "query_images"
}

// Stats summarizes cache contents.
type Stats struct {
	Queries      int64 `json:"queries"`
	LiveQueries  int64 `json:"live_queries"`
	Images       int64 `json:"images"`
	Associations int64 `json:"associations"`
}

// PurgeResult reports what PurgeExpired removed.
type PurgeResult struct {
	Queries      int64 `json:"queries"`
	Associations int64 `json:"associations"`
	Images       int64 `json:"images"`
}
