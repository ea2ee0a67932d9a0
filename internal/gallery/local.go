package gallery

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tphakala/pixalb/internal/datastore"
	"github.com/tphakala/pixalb/internal/errors"
	"github.com/tphakala/pixalb/internal/logger"
)

// DefaultCacheTTL is how long a populated query stays valid.
const DefaultCacheTTL = 24 * time.Hour

// LocalRepository serves gallery pages from the datastore and decides
// whether a request can be answered locally.
type LocalRepository struct {
	store datastore.ImageStore
	ttl   time.Duration
	now   func() time.Time
	log   logger.Logger
}

// LocalOption customizes a LocalRepository.
type LocalOption func(*LocalRepository)

// WithTTL sets the validity period of newly populated queries.
func WithTTL(ttl time.Duration) LocalOption {
	return func(r *LocalRepository) {
		if ttl > 0 {
			r.ttl = ttl
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) LocalOption {
	return func(r *LocalRepository) { r.now = now }
}

func WithLocalLogger(l logger.Logger) LocalOption {
	return func(r *LocalRepository) {
		if l != nil {
			r.log = l.Module("local")
		}
	}
}

// NewLocalRepository creates a repository on top of store.
func NewLocalRepository(store datastore.ImageStore, opts ...LocalOption) *LocalRepository {
	r := &LocalRepository{
		store: store,
		ttl:   DefaultCacheTTL,
		now:   time.Now,
		log:   logger.NewDiscardLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// FetchOverview returns local page pageID of query. It fails with
// ErrMissingEntry when the query is not cached or expired, ErrEntryCap when
// the page lies past the reported total and ErrMissingPage when the page is
// within the total but not cached yet.
func (r *LocalRepository) FetchOverview(ctx context.Context, query string, pageID int) ([]OverviewItem, error) {
	if err := validateOverviewRequest(query, pageID); err != nil {
		return nil, err
	}

	info, err := r.store.FetchQueryInfo(ctx, query, r.now())
	if errors.Is(err, datastore.ErrCachedQueryNotFound) {
		return nil, ErrMissingEntry
	}
	if err != nil {
		return nil, newError(KindUnsuccessfulDatabaseAccess, err)
	}

	offset := PageOffset(pageID)
	switch {
	case offset >= info.TotalPages:
		return nil, newError(KindEntryCap,
			fmt.Errorf("offset %d is past the %d available results", offset, info.TotalPages))
	case offset >= info.StoredPages:
		return nil, ErrMissingPage
	}

	images, err := r.store.FetchImages(ctx, query, offset, PageSize)
	if err != nil {
		return nil, newError(KindUnsuccessfulDatabaseAccess, err)
	}

	items := make([]OverviewItem, 0, len(images))
	for i := range images {
		items = append(items, toOverviewItem(&images[i]))
	}
	return items, nil
}

// FetchDetailedView returns the cached detail of imageID, or ErrNotFound.
func (r *LocalRepository) FetchDetailedView(ctx context.Context, imageID int64) (DetailViewItem, error) {
	img, err := r.store.FetchImage(ctx, imageID)
	if errors.Is(err, datastore.ErrImageNotFound) {
		return DetailViewItem{}, newError(KindNotFound, err)
	}
	if err != nil {
		return DetailViewItem{}, newError(KindUnsuccessfulDatabaseAccess, err)
	}
	return toDetailViewItem(img), nil
}

// StoreImages writes a remote page for query in one transaction. Pages below
// 5 (re)create the query row with a fresh expiry; later pages grow the cache
// window of a live row and fail if there is none.
func (r *LocalRepository) StoreImages(ctx context.Context, query string, pageID int, resp *RemoteResponse) error {
	if err := validateOverviewRequest(query, pageID); err != nil {
		return err
	}
	if resp == nil || len(resp.Overview) != len(resp.DetailedView) {
		return newError(KindInvalidRequest, errors.NewStd("overview and detail projections differ in length"))
	}

	start := time.Now()
	now := r.now()

	err := r.store.Transaction(ctx, func(tx datastore.ImageStore) error {
		link, err := r.writeQueryInfo(ctx, tx, query, pageID, resp.TotalAmountOfItems, now)
		if err != nil {
			return err
		}
		for i := range resp.Overview {
			img := toImage(&resp.Overview[i], &resp.DetailedView[i])
			if err := tx.AddImage(ctx, img); err != nil {
				return err
			}
			if !link {
				continue
			}
			if err := tx.AddImageQuery(ctx, query, img.ImageID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return newError(KindUnsuccessfulDatabaseAccess, err)
	}

	r.log.Debug("stored remote page",
		logger.String("query", query),
		logger.Int("page", pageID),
		logger.Int("items", len(resp.Overview)),
		logger.Duration("duration", time.Since(start)))
	return nil
}

// writeQueryInfo updates the query row for a write-back of pageID and reports
// whether the page's images are to be linked to the query.
//
// A first-population page for a live row only raises storedPages: the row's
// links already hold that remote page, and a late write-back must not cut a
// window that later pages have grown.
func (r *LocalRepository) writeQueryInfo(ctx context.Context, tx datastore.ImageStore, query string, pageID, total int, now time.Time) (bool, error) {
	info, err := tx.FetchQueryInfo(ctx, query, now)
	live := err == nil
	if err != nil && !errors.Is(err, datastore.ErrCachedQueryNotFound) {
		return false, err
	}

	if isFirstPopulation(pageID) {
		if live {
			return false, tx.UpdatePageIndex(ctx, query, max(info.StoredPages, initialStoredItems(total)))
		}
		// Links left over from an expired generation would shift the offsets.
		if err := tx.ClearImageQueries(ctx, query); err != nil {
			return false, err
		}
		return true, tx.AddQuery(ctx, &datastore.CachedQuery{
			Inquiry:     query,
			TotalPages:  total,
			StoredPages: initialStoredItems(total),
			ExpiryDate:  now.Add(r.ttl),
		})
	}

	if !live {
		return false, err
	}
	return true, tx.UpdatePageIndex(ctx, query, grownStoredItems(pageID, total, info.StoredPages))
}

func validateOverviewRequest(query string, pageID int) error {
	if strings.TrimSpace(query) == "" {
		return newError(KindInvalidRequest, errors.NewStd("query is empty"))
	}
	if pageID < 1 {
		return newError(KindInvalidRequest, fmt.Errorf("page %d is not positive", pageID))
	}
	return nil
}

func toOverviewItem(img *datastore.Image) OverviewItem {
	return OverviewItem{
		ID:        img.ImageID,
		Thumbnail: img.PreviewURL,
		UserName:  img.User,
		Tags:      img.Tags,
	}
}

func toDetailViewItem(img *datastore.Image) DetailViewItem {
	return DetailViewItem{
		ImageURL:  img.LargeURL,
		UserName:  img.User,
		Tags:      img.Tags,
		Likes:     img.Likes,
		Downloads: img.Downloads,
		Comments:  img.Comments,
	}
}

func toImage(overview *OverviewItem, detail *DetailViewItem) *datastore.Image {
	return &datastore.Image{
		ImageID:    overview.ID,
		User:       overview.UserName,
		Tags:       detail.Tags,
		Downloads:  detail.Downloads,
		Likes:      detail.Likes,
		Comments:   detail.Comments,
		PreviewURL: overview.Thumbnail,
		LargeURL:   detail.ImageURL,
	}
}
