// Package datastore persists cached gallery queries and images with GORM.
package datastore

import (
	"context"
	"time"

	"github.com/tphakala/pixalb/internal/errors"
)

// Sentinel errors for lookups. Callers match them with errors.Is.
var (
	// ErrCachedQueryNotFound indicates no live cache row exists for the query.
	ErrCachedQueryNotFound = errors.NewStd("cached query not found")

	// ErrImageNotFound indicates the image is not cached.
	ErrImageNotFound = errors.NewStd("image not found")
)

// ImageStore is the storage engine behind the gallery cache.
type ImageStore interface {
	// Transaction runs fn atomically. fn must only use the store it is given.
	Transaction(ctx context.Context, fn func(tx ImageStore) error) error

	// AddQuery inserts or replaces the metadata row for q.Inquiry.
	AddQuery(ctx context.Context, q *CachedQuery) error

	// UpdatePageIndex sets stored_pages for an existing query row.
	UpdatePageIndex(ctx context.Context, inquiry string, storedPages int) error

	// FetchQueryInfo returns the row for inquiry if it expires after now.
	// Returns ErrCachedQueryNotFound for absent or expired rows.
	FetchQueryInfo(ctx context.Context, inquiry string, now time.Time) (*CachedQuery, error)

	// FetchImages returns up to limit images linked to inquiry, starting at
	// offset, in association order.
	FetchImages(ctx context.Context, inquiry string, offset, limit int) ([]Image, error)

	// FetchImage returns ErrImageNotFound for unknown ids.
	FetchImage(ctx context.Context, imageID int64) (*Image, error)

	// AddImage inserts or overwrites an image row.
	AddImage(ctx context.Context, img *Image) error

	// AddImageQuery links inquiry to imageID. Existing links are left untouched.
	AddImageQuery(ctx context.Context, inquiry string, imageID int64) error

	// ClearImageQueries removes every link of inquiry.
	ClearImageQueries(ctx context.Context, inquiry string) error

	Stats(ctx context.Context, now time.Time) (Stats, error)

	// PurgeExpired deletes expired query rows, their links and images no
	// longer linked to any query.
	PurgeExpired(ctx context.Context, now time.Time) (PurgeResult, error)

	Ping(ctx context.Context) error
	Close() error
}
