// Package pixabay is a client for the Pixabay image search API.
package pixabay

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/antonholmquist/jason"
	"github.com/k3a/html2text"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"github.com/tphakala/pixalb/internal/errors"
	"github.com/tphakala/pixalb/internal/httpclient"
	"github.com/tphakala/pixalb/internal/logger"
	"github.com/tphakala/pixalb/internal/observability/metrics"
)

const (
	maxResponseBytes  = 8 << 20
	errorPreviewChars = 200
)

// Client fetches search result pages from Pixabay.
type Client struct {
	config       Config
	http         *httpclient.Client
	cache        *cache.Cache
	hasConnected func(context.Context) bool
	log          logger.Logger
	metrics      *metrics.PixabayMetrics
}

// Option customizes a Client.
type Option func(*Client)

// WithConnectivityCheck installs a probe consulted before every request.
// When it reports false the request fails with ErrNoConnection without dialing.
func WithConnectivityCheck(probe func(context.Context) bool) Option {
	return func(c *Client) { c.hasConnected = probe }
}

// WithTransport replaces the HTTP transport, mainly for tests.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) { c.http = c.newHTTPClient(rt) }
}

func WithLogger(l logger.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l.Module("pixabay")
		}
	}
}

func WithMetrics(m *metrics.PixabayMetrics) Option {
	return func(c *Client) { c.metrics = m }
}

// NewClient creates a new Pixabay client
func NewClient(config Config, opts ...Option) (*Client, error) {
	if config.APIKey == "" {
		return nil, errors.Newf("pixabay API key is required").
			Component("pixabay").
			Category(errors.CategoryConfiguration).
			Build()
	}

	defaults := DefaultConfig()
	if config.BaseURL == "" {
		config.BaseURL = defaults.BaseURL
	}
	if config.Timeout == 0 {
		config.Timeout = defaults.Timeout
	}

	c := &Client{
		config: config,
		log:    logger.NewDiscardLogger(),
	}
	if config.ResponseCacheTTL > 0 {
		c.cache = cache.New(config.ResponseCacheTTL, 2*config.ResponseCacheTTL)
	}
	c.http = c.newHTTPClient(nil)

	for _, opt := range opts {
		opt(c)
	}

	c.http.SetAfterResponseHook(func(_ *http.Request, resp *http.Response, _ error, elapsed time.Duration) {
		status := 0
		if resp != nil {
			status = resp.StatusCode
		}
		c.metrics.RecordRequest(status, elapsed)
	})

	return c, nil
}

func (c *Client) newHTTPClient(rt http.RoundTripper) *httpclient.Client {
	return httpclient.New(&httpclient.Config{
		DefaultTimeout: c.config.Timeout,
		UserAgent:      "pixalb/1.0",
		RateLimit:      rate.Limit(c.config.RateLimit),
		Burst:          c.config.Burst,
		Transport:      rt,
	})
}

// Close releases pooled connections.
func (c *Client) Close() {
	c.http.Close()
}

// FetchImages retrieves remote page `page` (1-based, ItemsPerPage hits each) for query.
func (c *Client) FetchImages(ctx context.Context, query string, page int) (*Response, error) {
	if strings.TrimSpace(query) == "" || page < 1 {
		return nil, errors.New(fmt.Errorf("%w: query must be non-empty and page >= 1", ErrRequestValidation)).
			Component("pixabay").
			Category(errors.CategoryValidation).
			Context("page", page).
			Build()
	}

	cacheKey := query + "\x00" + strconv.Itoa(page)
	if c.cache != nil {
		if cached, found := c.cache.Get(cacheKey); found {
			if resp, ok := cached.(*Response); ok {
				c.metrics.IncrementResponseCacheHits()
				c.log.Debug("response cache hit", logger.String("query", query), logger.Int("page", page))
				return resp, nil
			}
		}
		c.metrics.IncrementResponseCacheMisses()
	}

	if c.hasConnected != nil && !c.hasConnected(ctx) {
		c.log.Warn("connectivity probe reports offline")
		return nil, ErrNoConnection
	}

	resp, err := c.doRequest(ctx, query, page)
	if err != nil {
		return nil, err
	}

	if c.cache != nil {
		c.cache.Set(cacheKey, resp, cache.DefaultExpiration)
	}
	return resp, nil
}

func (c *Client) buildURL(query string, page int) (string, error) {
	u, err := url.Parse(c.config.BaseURL)
	if err != nil {
		return "", err
	}
	params := url.Values{}
	params.Set("key", c.config.APIKey)
	params.Set("q", query)
	params.Set("page", strconv.Itoa(page))
	params.Set("per_page", strconv.Itoa(ItemsPerPage))
	params.Set("safesearch", strconv.FormatBool(c.config.SafeSearch))
	if c.config.Lang != "" {
		params.Set("lang", c.config.Lang)
	}
	if c.config.ImageType != "" {
		params.Set("image_type", c.config.ImageType)
	}
	u.RawQuery = params.Encode()
	return u.String(), nil
}

func (c *Client) doRequest(ctx context.Context, query string, page int) (*Response, error) {
	start := time.Now()
	log := c.log.WithContext(ctx).With(logger.String("query", query), logger.Int("page", page))

	reqURL, err := c.buildURL(query, page)
	if err != nil {
		return nil, errors.New(fmt.Errorf("invalid base URL: %w", err)).
			Component("pixabay").
			Category(errors.CategoryConfiguration).
			Build()
	}

	resp, err := c.http.Get(ctx, reqURL)
	if err != nil {
		if isConnectivityError(err) {
			log.Warn("pixabay unreachable", logger.Error(err))
			return nil, fmt.Errorf("%w: %w", ErrNoConnection, err)
		}
		log.Error("pixabay request failed", logger.Error(err))
		category := errors.CategoryNetwork
		if errors.Is(err, context.DeadlineExceeded) {
			category = errors.CategoryTimeout
		} else if errors.Is(err, context.Canceled) {
			category = errors.CategoryCancellation
		}
		return nil, errors.New(fmt.Errorf("HTTP request failed: %w", err)).
			Component("pixabay").
			Category(category).
			NetworkContext(c.config.BaseURL, c.config.Timeout).
			Build()
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, errors.New(fmt.Errorf("failed to read response body: %w", err)).
			Component("pixabay").
			Category(errors.CategoryNetwork).
			Context("status_code", resp.StatusCode).
			Build()
	}

	if resp.StatusCode != http.StatusOK {
		reqErr := &RequestError{StatusCode: resp.StatusCode, Message: previewBody(body)}
		log.Warn("pixabay returned error status",
			logger.Int("status_code", resp.StatusCode),
			logger.String("message", reqErr.Message))
		return nil, errors.New(reqErr).
			Component("pixabay").
			Category(reqErr.ErrorCategory()).
			Context("status_code", resp.StatusCode).
			Build()
	}

	result, err := decodeResponse(body)
	if err != nil {
		log.Error("failed to decode pixabay response", logger.Error(err))
		return nil, errors.New(fmt.Errorf("%w: %w", ErrResponseTransform, err)).
			Component("pixabay").
			Category(errors.CategoryFileParsing).
			Context("content_type", resp.Header.Get("Content-Type")).
			Build()
	}

	log.Debug("pixabay page fetched",
		logger.Int("total", result.Total),
		logger.Int("hits", len(result.Hits)),
		logger.Duration("elapsed", time.Since(start)))
	return result, nil
}

// previewBody converts an error body (HTML or text) into a short plain-text message.
func previewBody(body []byte) string {
	text := strings.Join(strings.Fields(html2text.HTML2Text(string(body))), " ")
	if runes := []rune(text); len(runes) > errorPreviewChars {
		text = string(runes[:errorPreviewChars]) + "..."
	}
	return text
}

func decodeResponse(body []byte) (*Response, error) {
	obj, err := jason.NewObjectFromBytes(body)
	if err != nil {
		return nil, err
	}
	total, err := obj.GetInt64("totalHits")
	if err != nil {
		return nil, fmt.Errorf("totalHits: %w", err)
	}
	hits, err := obj.GetObjectArray("hits")
	if err != nil {
		return nil, fmt.Errorf("hits: %w", err)
	}

	resp := &Response{Total: int(total), Hits: make([]Hit, 0, len(hits))}
	for i, h := range hits {
		hit, err := decodeHit(h)
		if err != nil {
			return nil, fmt.Errorf("hits[%d]: %w", i, err)
		}
		resp.Hits = append(resp.Hits, hit)
	}
	return resp, nil
}

func decodeHit(h *jason.Object) (Hit, error) {
	var hit Hit
	var err error

	if hit.ID, err = h.GetInt64("id"); err != nil {
		return hit, fmt.Errorf("id: %w", err)
	}
	if hit.User, err = h.GetString("user"); err != nil {
		return hit, fmt.Errorf("user: %w", err)
	}
	if hit.Tags, err = h.GetString("tags"); err != nil {
		return hit, fmt.Errorf("tags: %w", err)
	}
	if hit.PreviewURL, err = h.GetString("previewURL"); err != nil {
		return hit, fmt.Errorf("previewURL: %w", err)
	}
	if hit.WebformatURL, err = h.GetString("webformatURL"); err != nil {
		return hit, fmt.Errorf("webformatURL: %w", err)
	}
	for _, counter := range []struct {
		key string
		dst *uint32
	}{
		{"downloads", &hit.Downloads},
		{"likes", &hit.Likes},
		{"comments", &hit.Comments},
	} {
		n, err := h.GetInt64(counter.key)
		if err != nil {
			return hit, fmt.Errorf("%s: %w", counter.key, err)
		}
		if n < 0 || n > int64(^uint32(0)) {
			return hit, fmt.Errorf("%s: %d out of range", counter.key, n)
		}
		*counter.dst = uint32(n)
	}
	return hit, nil
}
