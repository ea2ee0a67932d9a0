package pixabay

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/pixalb/internal/errors"
	"github.com/tphakala/pixalb/internal/observability/metrics"
)

const apiPattern = `=~^https://pixabay\.com/api/`

const twoHitsBody = `{
  "total": 4692,
  "totalHits": 500,
  "hits": [
    {
      "id": 195893,
      "pageURL": "https://pixabay.com/en/blossom-bloom-flower-195893/",
      "type": "photo",
      "tags": "blossom, bloom, flower",
      "previewURL": "https://cdn.pixabay.com/photo/2013/10/15/09/12/flower-195893_150.jpg",
      "webformatURL": "https://pixabay.com/get/35bbf209e13e39d2_640.jpg",
      "downloads": 6439,
      "likes": 5,
      "comments": 2,
      "user": "Josch13"
    },
    {
      "id": 73424,
      "tags": "cat, kitten",
      "previewURL": "https://cdn.pixabay.com/p.jpg",
      "webformatURL": "https://pixabay.com/get/w.jpg",
      "downloads": 1,
      "likes": 0,
      "comments": 0,
      "user": "Anna"
    }
  ]
}`

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.APIKey = "12345678-abcdef0123456789"
	cfg.RateLimit = 0
	return cfg
}

func newMockedClient(t *testing.T, cfg Config, opts ...Option) (*Client, *httpmock.MockTransport) {
	t.Helper()
	mock := httpmock.NewMockTransport()
	client, err := NewClient(cfg, append([]Option{WithTransport(mock)}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(client.Close)
	return client, mock
}

func TestNewClientRequiresAPIKey(t *testing.T) {
	t.Parallel()

	_, err := NewClient(Config{})
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
}

func TestFetchImagesDecodesResponse(t *testing.T) {
	t.Parallel()

	client, mock := newMockedClient(t, testConfig())

	var captured url.Values
	mock.RegisterResponder(http.MethodGet, apiPattern,
		func(req *http.Request) (*http.Response, error) {
			captured = req.URL.Query()
			resp := httpmock.NewStringResponse(http.StatusOK, twoHitsBody)
			resp.Header.Set("Content-Type", "application/json")
			return resp, nil
		})

	resp, err := client.FetchImages(t.Context(), "yellow flowers", 2)
	require.NoError(t, err)

	assert.Equal(t, 500, resp.Total)
	require.Len(t, resp.Hits, 2)
	assert.Equal(t, Hit{
		ID:           195893,
		User:         "Josch13",
		Tags:         "blossom, bloom, flower",
		Downloads:    6439,
		Likes:        5,
		Comments:     2,
		PreviewURL:   "https://cdn.pixabay.com/photo/2013/10/15/09/12/flower-195893_150.jpg",
		WebformatURL: "https://pixabay.com/get/35bbf209e13e39d2_640.jpg",
	}, resp.Hits[0])

	assert.Equal(t, "12345678-abcdef0123456789", captured.Get("key"))
	assert.Equal(t, "yellow flowers", captured.Get("q"))
	assert.Equal(t, "2", captured.Get("page"))
	assert.Equal(t, "200", captured.Get("per_page"))
	assert.Equal(t, "true", captured.Get("safesearch"))
	assert.Equal(t, "en", captured.Get("lang"))
	assert.Equal(t, "all", captured.Get("image_type"))
}

func TestFetchImagesMemoizesResponses(t *testing.T) {
	t.Parallel()

	m, err := metrics.NewPixabayMetrics(prometheus.NewRegistry())
	require.NoError(t, err)
	client, mock := newMockedClient(t, testConfig(), WithMetrics(m))
	mock.RegisterResponder(http.MethodGet, apiPattern, httpmock.NewStringResponder(http.StatusOK, twoHitsBody))

	for range 3 {
		_, err := client.FetchImages(t.Context(), "cats", 1)
		require.NoError(t, err)
	}
	_, err = client.FetchImages(t.Context(), "cats", 2)
	require.NoError(t, err)

	assert.Equal(t, 2, mock.GetTotalCallCount())
	assert.InDelta(t, 2, testutil.ToFloat64(m.ResponseCacheHits), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(m.Requests.WithLabelValues("200")), 0)
}

func TestFetchImagesWithoutResponseCache(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.ResponseCacheTTL = 0
	client, mock := newMockedClient(t, cfg)
	mock.RegisterResponder(http.MethodGet, apiPattern, httpmock.NewStringResponder(http.StatusOK, twoHitsBody))

	for range 2 {
		_, err := client.FetchImages(t.Context(), "cats", 1)
		require.NoError(t, err)
	}
	assert.Equal(t, 2, mock.GetTotalCallCount())
}

func TestFetchImagesStatusErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		status   int
		body     string
		category errors.ErrorCategory
		message  string
	}{
		{"invalid key", http.StatusBadRequest, "[ERROR 400] Invalid or missing API key", errors.CategoryConfiguration, "Invalid or missing API key"},
		{"rate limited", http.StatusTooManyRequests, "<html><body><h1>Too many requests</h1></body></html>", errors.CategoryLimit, "Too many requests"},
		{"server error", http.StatusBadGateway, "", errors.CategoryNetwork, "502 Bad Gateway"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			client, mock := newMockedClient(t, testConfig())
			mock.RegisterResponder(http.MethodGet, apiPattern, httpmock.NewStringResponder(tt.status, tt.body))

			_, err := client.FetchImages(t.Context(), "cats", 1)
			require.Error(t, err)

			var reqErr *RequestError
			require.ErrorAs(t, err, &reqErr)
			assert.Equal(t, tt.status, reqErr.StatusCode)
			assert.Contains(t, err.Error(), tt.message)
			assert.True(t, errors.IsCategory(err, tt.category))
			assert.NotErrorIs(t, err, ErrNoConnection)
		})
	}
}

func TestFetchImagesMalformedResponse(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"not json":       "<html>maintenance</html>",
		"missing hits":   `{"totalHits": 3}`,
		"hit without id": `{"totalHits": 1, "hits": [{"user": "a", "tags": "", "previewURL": "", "webformatURL": "", "downloads": 0, "likes": 0, "comments": 0}]}`,
		"negative count": `{"totalHits": 1, "hits": [{"id": 1, "user": "a", "tags": "", "previewURL": "", "webformatURL": "", "downloads": -1, "likes": 0, "comments": 0}]}`,
	}

	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			client, mock := newMockedClient(t, testConfig())
			mock.RegisterResponder(http.MethodGet, apiPattern, httpmock.NewStringResponder(http.StatusOK, body))

			_, err := client.FetchImages(t.Context(), "cats", 1)
			require.ErrorIs(t, err, ErrResponseTransform)
		})
	}
}

func TestFetchImagesValidatesRequest(t *testing.T) {
	t.Parallel()

	client, mock := newMockedClient(t, testConfig())

	_, err := client.FetchImages(t.Context(), "  ", 1)
	require.ErrorIs(t, err, ErrRequestValidation)

	_, err = client.FetchImages(t.Context(), "cats", 0)
	require.ErrorIs(t, err, ErrRequestValidation)

	assert.Zero(t, mock.GetTotalCallCount())
}

func TestFetchImagesConnectivityProbe(t *testing.T) {
	t.Parallel()

	client, mock := newMockedClient(t, testConfig(),
		WithConnectivityCheck(func(context.Context) bool { return false }))

	_, err := client.FetchImages(t.Context(), "cats", 1)
	require.ErrorIs(t, err, ErrNoConnection)
	assert.Zero(t, mock.GetTotalCallCount())
}

func TestFetchImagesRefusedConnectionIsNoConnection(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.NotFoundHandler())
	baseURL := server.URL + "/api/"
	server.Close()

	cfg := testConfig()
	cfg.BaseURL = baseURL
	client, err := NewClient(cfg)
	require.NoError(t, err)
	t.Cleanup(client.Close)

	_, err = client.FetchImages(t.Context(), "cats", 1)
	require.ErrorIs(t, err, ErrNoConnection)
}

func TestFetchImagesAgainstHTTPServer(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(twoHitsBody))
	}))
	t.Cleanup(server.Close)

	cfg := testConfig()
	cfg.BaseURL = server.URL + "/api/"
	client, err := NewClient(cfg, WithConnectivityCheck(NewDialProbe(cfg.BaseURL, time.Second)))
	require.NoError(t, err)
	t.Cleanup(client.Close)

	resp, err := client.FetchImages(t.Context(), "flowers", 1)
	require.NoError(t, err)
	assert.Len(t, resp.Hits, 2)
}

func TestFetchImagesTimeoutIsNotNoConnection(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Timeout = 20 * time.Millisecond
	client, mock := newMockedClient(t, cfg)
	mock.RegisterResponder(http.MethodGet, apiPattern,
		func(req *http.Request) (*http.Response, error) {
			<-req.Context().Done()
			return nil, req.Context().Err()
		})

	_, err := client.FetchImages(t.Context(), "cats", 1)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoConnection)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestDialProbe(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.NotFoundHandler())
	probe := NewDialProbe(server.URL, time.Second)
	assert.True(t, probe(t.Context()))

	server.Close()
	assert.False(t, probe(t.Context()))
}
