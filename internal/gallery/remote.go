package gallery

import (
	"context"
	"strconv"
	"strings"

	"golang.org/x/sync/singleflight"

	"github.com/tphakala/pixalb/internal/errors"
	"github.com/tphakala/pixalb/internal/logger"
	"github.com/tphakala/pixalb/internal/pixabay"
)

// ImageFetcher is the part of pixabay.Client used by the gateway.
type ImageFetcher interface {
	FetchImages(ctx context.Context, query string, page int) (*pixabay.Response, error)
}

// RemoteGateway fetches remote pages for local page requests.
type RemoteGateway struct {
	client ImageFetcher
	group  singleflight.Group
	log    logger.Logger
}

// NewRemoteGateway wraps client. A nil logger discards output.
func NewRemoteGateway(client ImageFetcher, log logger.Logger) *RemoteGateway {
	if log == nil {
		log = logger.NewDiscardLogger()
	}
	return &RemoteGateway{client: client, log: log.Module("remote")}
}

// Fetch retrieves the remote page covering local page pageID. Concurrent
// calls for the same query and remote page share one request.
func (g *RemoteGateway) Fetch(ctx context.Context, query string, pageID int) (*RemoteResponse, error) {
	if err := validateOverviewRequest(query, pageID); err != nil {
		return nil, err
	}

	remotePage := RemotePage(pageID)
	key := query + "\x00" + strconv.Itoa(remotePage)

	ch := g.group.DoChan(key, func() (any, error) {
		return g.client.FetchImages(ctx, query, remotePage)
	})

	var result singleflight.Result
	select {
	case result = <-ch:
	case <-ctx.Done():
		return nil, newError(KindUnsuccessfulRequest, ctx.Err())
	}

	if result.Err != nil {
		g.log.WithContext(ctx).Warn("remote fetch failed",
			logger.String("query", query),
			logger.Int("remote_page", remotePage),
			logger.Bool("shared", result.Shared),
			logger.Error(result.Err))
		return nil, mapClientError(result.Err)
	}

	resp, ok := result.Val.(*pixabay.Response)
	if !ok || resp == nil {
		return nil, newError(KindUnsuccessfulRequest, errors.NewStd("empty response from image API"))
	}
	return toRemoteResponse(resp), nil
}

func mapClientError(err error) error {
	switch {
	case errors.Is(err, pixabay.ErrNoConnection):
		return newError(KindNoConnection, err)
	case errors.Is(err, pixabay.ErrRequestValidation):
		return newError(KindInvalidRequest, err)
	default:
		return newError(KindUnsuccessfulRequest, err)
	}
}

func toRemoteResponse(resp *pixabay.Response) *RemoteResponse {
	out := &RemoteResponse{
		TotalAmountOfItems: resp.Total,
		Overview:           make([]OverviewItem, 0, len(resp.Hits)),
		DetailedView:       make([]DetailViewItem, 0, len(resp.Hits)),
	}
	for i := range resp.Hits {
		hit := &resp.Hits[i]
		tags := splitTags(hit.Tags)
		out.Overview = append(out.Overview, OverviewItem{
			ID:        hit.ID,
			Thumbnail: hit.PreviewURL,
			UserName:  hit.User,
			Tags:      tags,
		})
		out.DetailedView = append(out.DetailedView, DetailViewItem{
			ImageURL:  hit.WebformatURL,
			UserName:  hit.User,
			Tags:      tags,
			Likes:     hit.Likes,
			Downloads: hit.Downloads,
			Comments:  hit.Comments,
		})
	}
	return out
}

// splitTags turns "a, b,c" into [a b c], preserving order.
func splitTags(raw string) []string {
	parts := strings.Split(raw, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			tags = append(tags, p)
		}
	}
	return tags
}

// OfflineGateway is a Gateway for cache-only use. Every fetch fails with
// ErrNoConnection.
type OfflineGateway struct{}

// Fetch implements Gateway.
func (OfflineGateway) Fetch(context.Context, string, int) (*RemoteResponse, error) {
	return nil, ErrNoConnection
}
