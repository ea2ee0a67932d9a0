package gallery

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tphakala/pixalb/internal/errors"
	"github.com/tphakala/pixalb/internal/logger"
	"github.com/tphakala/pixalb/internal/observability/metrics"
)

// CacheRepository is the local side of the store.
type CacheRepository interface {
	FetchOverview(ctx context.Context, query string, pageID int) ([]OverviewItem, error)
	FetchDetailedView(ctx context.Context, imageID int64) (DetailViewItem, error)
	StoreImages(ctx context.Context, query string, pageID int, resp *RemoteResponse) error
}

// Gateway is the remote side of the store.
type Gateway interface {
	Fetch(ctx context.Context, query string, pageID int) (*RemoteResponse, error)
}

// Store resolves gallery requests through the local cache with remote
// fallback and publishes every outcome on its overview and detail view
// channels. Requests are fire-and-forget; only the newest request of a
// channel may publish its result.
type Store struct {
	local    CacheRepository
	remote   Gateway
	overview *Broadcast[[]OverviewItem]
	detail   *Broadcast[DetailViewItem]

	ctx    context.Context
	cancel context.CancelFunc
	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup

	log     logger.Logger
	metrics *metrics.GalleryMetrics
}

// StoreOption customizes a Store.
type StoreOption func(*Store)

func WithStoreLogger(l logger.Logger) StoreOption {
	return func(s *Store) {
		if l != nil {
			s.log = l.Module("gallery")
		}
	}
}

func WithStoreMetrics(m *metrics.GalleryMetrics) StoreOption {
	return func(s *Store) { s.metrics = m }
}

// NewStore creates a store. Call Close to stop in-flight work.
func NewStore(local CacheRepository, remote Gateway, opts ...StoreOption) *Store {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Store{
		local:    local,
		remote:   remote,
		overview: NewBroadcast[[]OverviewItem](),
		detail:   NewBroadcast[DetailViewItem](),
		ctx:      ctx,
		cancel:   cancel,
		log:      logger.NewDiscardLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Overview is the channel fed by FetchOverview.
func (s *Store) Overview() *Broadcast[[]OverviewItem] {
	return s.overview
}

// DetailView is the channel fed by FetchDetailView.
func (s *Store) DetailView() *Broadcast[DetailViewItem] {
	return s.detail
}

// FetchOverview requests local page pageID of query. Pending is published
// before it returns; the outcome follows on the overview channel. The
// returned sequence number identifies the request there.
func (s *Store) FetchOverview(query string, pageID int) uint64 {
	seq := s.overview.begin()
	s.spawn(func(ctx context.Context) {
		start := time.Now()
		items, err := s.resolveOverview(ctx, query, pageID)
		s.metrics.ObserveRequestDuration(metrics.ChannelOverview, time.Since(start))
		if !s.overview.finish(seq, items, err) {
			s.metrics.IncrementStaleResults(metrics.ChannelOverview)
			s.log.WithContext(ctx).Debug("dropped stale overview result",
				logger.Uint64("seq", seq),
				logger.String("query", query),
				logger.Int("page", pageID))
		}
	}, func() {
		s.overview.finish(seq, nil, ErrClosed)
	})
	return seq
}

// FetchDetailView requests the detail of a cached image. There is no remote
// fallback: the image must have been stored by an earlier overview fetch.
func (s *Store) FetchDetailView(imageID int64) uint64 {
	seq := s.detail.begin()
	s.spawn(func(ctx context.Context) {
		start := time.Now()
		item, err := s.local.FetchDetailedView(ctx, imageID)
		s.recordLookup(metrics.ChannelDetailView, err)
		s.metrics.ObserveRequestDuration(metrics.ChannelDetailView, time.Since(start))
		if err != nil {
			s.log.WithContext(ctx).Debug("detail view lookup failed",
				logger.Int64("image_id", imageID),
				logger.Error(err))
		}
		if !s.detail.finish(seq, item, err) {
			s.metrics.IncrementStaleResults(metrics.ChannelDetailView)
		}
	}, func() {
		s.detail.finish(seq, DetailViewItem{}, ErrClosed)
	})
	return seq
}

// spawn runs work on a tracked goroutine, or calls rejected when the store
// is closed.
func (s *Store) spawn(work func(ctx context.Context), rejected func()) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		rejected()
		return
	}
	s.wg.Add(1)
	s.mu.Unlock()

	ctx := logger.WithTraceID(s.ctx, uuid.NewString())
	go func() {
		defer s.wg.Done()
		defer s.metrics.TrackInFlight()()
		work(ctx)
	}()
}

func (s *Store) resolveOverview(ctx context.Context, query string, pageID int) ([]OverviewItem, error) {
	log := s.log.WithContext(ctx).With(logger.String("query", query), logger.Int("page", pageID))

	items, err := s.local.FetchOverview(ctx, query, pageID)
	s.recordLookup(metrics.ChannelOverview, err)
	switch {
	case err == nil:
		log.Debug("served from cache", logger.Int("items", len(items)))
		return items, nil
	case errors.Is(err, ErrMissingEntry), errors.Is(err, ErrMissingPage):
		log.Debug("cache miss, fetching remote page", logger.Error(err))
	default:
		log.Debug("cache lookup failed", logger.Error(err))
		return nil, err
	}

	resp, err := s.remote.Fetch(ctx, query, pageID)
	s.metrics.RecordRemoteFetch(err)
	if err != nil {
		log.Warn("remote fetch failed", logger.Error(err))
		return nil, err
	}

	if err := s.local.StoreImages(ctx, query, pageID, resp); err != nil {
		s.metrics.IncrementWritebackFailures()
		log.Warn("failed to write remote page to cache", logger.Error(err))
	}
	return resp.Overview, nil
}

func (s *Store) recordLookup(channel string, err error) {
	result := metrics.LookupError
	if err == nil {
		result = metrics.LookupHit
	} else if kind, ok := KindOf(err); ok {
		switch kind {
		case KindMissingEntry:
			result = metrics.LookupMissingEntry
		case KindMissingPage:
			result = metrics.LookupMissingPage
		case KindEntryCap:
			result = metrics.LookupEntryCap
		case KindNotFound:
			result = metrics.LookupNotFound
		}
	}
	s.metrics.RecordCacheLookup(channel, result)
}

// Close cancels in-flight work, waits for it and closes all subscriptions.
// Requests made after Close end in ErrClosed.
func (s *Store) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()
	s.overview.close()
	s.detail.close()
}

// Await waits on sub for the outcome of request seq. A newer request may
// supersede seq, in which case its outcome is returned instead. Await
// returns ErrClosed if sub closes first.
func Await[T any](ctx context.Context, sub <-chan State[T], seq uint64) (State[T], error) {
	for {
		select {
		case state, ok := <-sub:
			if !ok {
				return State[T]{}, ErrClosed
			}
			if state.Seq >= seq && state.Terminal() {
				return state, nil
			}
		case <-ctx.Done():
			return State[T]{}, ctx.Err()
		}
	}
}
