package api

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/pixalb/internal/conf"
	"github.com/tphakala/pixalb/internal/errors"
	"github.com/tphakala/pixalb/internal/gallery"
	"github.com/tphakala/pixalb/internal/logger"
	"github.com/tphakala/pixalb/internal/observability"
)

// memoryCache keeps stored pages in a map keyed by query.
type memoryCache struct {
	mu      sync.Mutex
	items   map[string][]gallery.OverviewItem
	details map[int64]gallery.DetailViewItem
}

func newMemoryCache() *memoryCache {
	return &memoryCache{
		items:   make(map[string][]gallery.OverviewItem),
		details: make(map[int64]gallery.DetailViewItem),
	}
}

func (m *memoryCache) FetchOverview(_ context.Context, query string, pageID int) ([]gallery.OverviewItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	items, ok := m.items[query]
	if !ok {
		return nil, gallery.ErrMissingEntry
	}
	offset := gallery.PageOffset(pageID)
	if offset >= len(items) {
		return nil, gallery.ErrMissingPage
	}
	return items[offset:min(len(items), offset+gallery.PageSize)], nil
}

func (m *memoryCache) FetchDetailedView(_ context.Context, imageID int64) (gallery.DetailViewItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.details[imageID]
	if !ok {
		return gallery.DetailViewItem{}, gallery.ErrNotFound
	}
	return item, nil
}

func (m *memoryCache) StoreImages(_ context.Context, query string, _ int, resp *gallery.RemoteResponse) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[query] = append(m.items[query], resp.Overview...)
	for i, item := range resp.Overview {
		m.details[item.ID] = resp.DetailedView[i]
	}
	return nil
}

// stubGateway answers every fetch with n generated images or err.
type stubGateway struct {
	n   int
	err error
}

func (g *stubGateway) Fetch(_ context.Context, _ string, _ int) (*gallery.RemoteResponse, error) {
	if g.err != nil {
		return nil, g.err
	}
	resp := &gallery.RemoteResponse{TotalAmountOfItems: g.n}
	for i := range g.n {
		id := int64(i + 1)
		resp.Overview = append(resp.Overview, gallery.OverviewItem{
			ID:        id,
			Thumbnail: fmt.Sprintf("https://cdn.example/%d_150.jpg", id),
			UserName:  "user",
			Tags:      []string{"cat"},
		})
		resp.DetailedView = append(resp.DetailedView, gallery.DetailViewItem{
			ImageURL: fmt.Sprintf("https://cdn.example/%d_640.jpg", id),
			UserName: "user",
			Tags:     []string{"cat"},
			Likes:    3,
		})
	}
	return resp, nil
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

func newTestServer(t *testing.T, gateway *stubGateway, opts ...Option) *Server {
	t.Helper()
	store := gallery.NewStore(newMemoryCache(), gateway)
	t.Cleanup(store.Close)
	return NewServer(conf.ServerSettings{Listen: "127.0.0.1:0", SSEHeartbeat: time.Hour}, store, nil, opts...)
}

func doRequest(t *testing.T, e *echo.Echo, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader = http.NoBody
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

type stateBody struct {
	Status string          `json:"status"`
	Seq    uint64          `json:"seq"`
	Value  json.RawMessage `json:"value"`
	Error  *struct {
		Kind    string `json:"kind"`
		Message string `json:"message"`
	} `json:"error"`
}

func decodeState(t *testing.T, body []byte) stateBody {
	t.Helper()
	var state stateBody
	require.NoError(t, json.Unmarshal(body, &state))
	return state
}

func TestRequestOverviewWait(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, &stubGateway{n: 120})

	rec := doRequest(t, srv.Echo(), http.MethodPost, "/api/v1/overview?wait=true", `{"query":"cats","page":2}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	state := decodeState(t, rec.Body.Bytes())
	assert.Equal(t, "accepted", state.Status)
	var items []gallery.OverviewItem
	require.NoError(t, json.Unmarshal(state.Value, &items))
	assert.Len(t, items, 120)
}

func TestRequestOverviewAsync(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, &stubGateway{n: 10})

	rec := doRequest(t, srv.Echo(), http.MethodPost, "/api/v1/overview", `{"query":"cats","page":1}`)
	require.Equal(t, http.StatusAccepted, rec.Code)
	var accepted RequestAccepted
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &accepted))
	assert.Equal(t, uint64(1), accepted.Seq)

	require.Eventually(t, func() bool {
		rec := doRequest(t, srv.Echo(), http.MethodGet, "/api/v1/overview", "")
		return decodeState(t, rec.Body.Bytes()).Status == "accepted"
	}, time.Second, 5*time.Millisecond)
}

func TestRequestOverviewValidation(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, &stubGateway{n: 10})

	tests := []struct {
		name string
		body string
	}{
		{"malformed body", `{"query":`},
		{"blank query", `{"query":"  ","page":1}`},
		{"zero page", `{"query":"cats","page":0}`},
		{"negative page", `{"query":"cats","page":-3}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rec := doRequest(t, srv.Echo(), http.MethodPost, "/api/v1/overview", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}

	rec := doRequest(t, srv.Echo(), http.MethodGet, "/api/v1/overview", "")
	assert.Equal(t, "initial", decodeState(t, rec.Body.Bytes()).Status)
}

func TestRequestOverviewRemoteFailure(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, &stubGateway{err: gallery.ErrNoConnection})

	rec := doRequest(t, srv.Echo(), http.MethodPost, "/api/v1/overview?wait=1", `{"query":"cats","page":1}`)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	state := decodeState(t, rec.Body.Bytes())
	assert.Equal(t, "error", state.Status)
	require.NotNil(t, state.Error)
	assert.Equal(t, "no_connection", state.Error.Kind)
}

func TestRequestDetailView(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, &stubGateway{n: 10})
	e := srv.Echo()

	rec := doRequest(t, e, http.MethodPost, "/api/v1/detailview/4?wait=true", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", decodeState(t, rec.Body.Bytes()).Error.Kind)

	rec = doRequest(t, e, http.MethodPost, "/api/v1/overview?wait=true", `{"query":"cats","page":1}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, e, http.MethodPost, "/api/v1/detailview/4?wait=true", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var item gallery.DetailViewItem
	require.NoError(t, json.Unmarshal(decodeState(t, rec.Body.Bytes()).Value, &item))
	assert.Equal(t, "https://cdn.example/4_640.jpg", item.ImageURL)

	rec = doRequest(t, e, http.MethodGet, "/api/v1/detailview", "")
	assert.Equal(t, "accepted", decodeState(t, rec.Body.Bytes()).Status)
}

func TestRequestDetailViewRejectsBadID(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, &stubGateway{n: 10})

	for _, id := range []string{"abc", "0", "-5"} {
		rec := doRequest(t, srv.Echo(), http.MethodPost, "/api/v1/detailview/"+id, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, id)
	}
}

func TestHealthCheck(t *testing.T) {
	t.Parallel()

	healthy := newTestServer(t, &stubGateway{}, WithHealthCheck(stubPinger{}))
	rec := doRequest(t, healthy.Echo(), http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy","database":"connected"}`, rec.Body.String())

	broken := newTestServer(t, &stubGateway{}, WithHealthCheck(stubPinger{err: errors.NewStd("database is locked")}))
	rec = doRequest(t, broken.Echo(), http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()

	m, err := observability.NewMetrics()
	require.NoError(t, err)
	store := gallery.NewStore(newMemoryCache(), &stubGateway{n: 5}, gallery.WithStoreMetrics(m.Gallery))
	t.Cleanup(store.Close)
	srv := NewServer(conf.ServerSettings{}, store, nil, WithMetrics(m))

	rec := doRequest(t, srv.Echo(), http.MethodPost, "/api/v1/overview?wait=true", `{"query":"cats","page":1}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, srv.Echo(), http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "pixalb_gallery_cache_lookups_total")
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestMetricsEndpointAbsentWithoutMetrics(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, &stubGateway{})

	rec := doRequest(t, srv.Echo(), http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRecoveredPanicIsLoggedCentrally(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	store := gallery.NewStore(newMemoryCache(), &stubGateway{})
	t.Cleanup(store.Close)
	srv := NewServer(conf.ServerSettings{SSEHeartbeat: time.Hour}, store,
		logger.NewSlogLogger(buf, logger.LogLevelDebug, time.UTC))
	srv.Echo().GET("/boom", func(echo.Context) error { panic("boom") })

	rec := doRequest(t, srv.Echo(), http.MethodGet, "/boom", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	var recovered map[string]any
	for line := range strings.SplitSeq(strings.TrimSpace(buf.String()), "\n") {
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &entry), line)
		if msg, _ := entry["msg"].(string); strings.Contains(msg, "PANIC RECOVER") {
			recovered = entry
		}
	}
	require.NotNil(t, recovered, "recover output bypassed the logger: %s", buf.String())
	assert.Equal(t, "api.echo", recovered["module"])
}

func TestRequestIDHeader(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, &stubGateway{})

	rec := doRequest(t, srv.Echo(), http.MethodGet, "/healthz", "")
	assert.Len(t, rec.Header().Get(echo.HeaderXRequestID), 36)
}

// readEvent reads one SSE event and returns its name and data.
func readEvent(t *testing.T, r *bufio.Reader) (string, string) {
	t.Helper()
	var event, data string
	for {
		line, err := r.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")
		switch {
		case line == "":
			if event != "" {
				return event, data
			}
		case strings.HasPrefix(line, "event: "):
			event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimPrefix(line, "data: ")
		}
	}
}

func TestStreamOverview(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, &stubGateway{n: 3})
	ts := httptest.NewServer(srv.Echo())
	t.Cleanup(ts.Close)

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/v1/overview/events", http.NoBody)
	require.NoError(t, err)
	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get(echo.HeaderContentType))

	reader := bufio.NewReader(resp.Body)
	event, data := readEvent(t, reader)
	assert.Equal(t, "state", event)
	assert.JSONEq(t, `{"status":"initial","seq":0}`, data)

	srv.Controller().store.FetchOverview("cats", 1)

	// Pending may be coalesced away by the replay-1 buffer.
	for {
		event, data = readEvent(t, reader)
		require.Equal(t, "state", event)
		state := decodeState(t, []byte(data))
		if state.Status == "accepted" {
			assert.Equal(t, uint64(1), state.Seq)
			break
		}
		require.Equal(t, "pending", state.Status)
	}
}

func TestStreamHeartbeat(t *testing.T) {
	t.Parallel()
	store := gallery.NewStore(newMemoryCache(), &stubGateway{})
	t.Cleanup(store.Close)
	srv := NewServer(conf.ServerSettings{SSEHeartbeat: 10 * time.Millisecond}, store, nil)
	ts := httptest.NewServer(srv.Echo())
	t.Cleanup(ts.Close)

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/v1/detailview/events", http.NoBody)
	require.NoError(t, err)
	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	reader := bufio.NewReader(resp.Body)
	event, _ := readEvent(t, reader)
	require.Equal(t, "state", event)

	event, data := readEvent(t, reader)
	assert.Equal(t, "heartbeat", event)
	assert.Contains(t, data, `"subscribers":1`)
}

func TestStreamEndsWhenStoreCloses(t *testing.T) {
	t.Parallel()
	store := gallery.NewStore(newMemoryCache(), &stubGateway{})
	srv := NewServer(conf.ServerSettings{SSEHeartbeat: time.Hour}, store, nil)
	ts := httptest.NewServer(srv.Echo())
	t.Cleanup(ts.Close)

	resp, err := ts.Client().Get(ts.URL + "/api/v1/overview/events")
	require.NoError(t, err)
	defer resp.Body.Close()

	reader := bufio.NewReader(resp.Body)
	readEvent(t, reader)

	store.Close()
	_, err = io.ReadAll(reader)
	assert.NoError(t, err)
}

func TestServerRunStopsOnCancel(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, &stubGateway{})

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	require.Eventually(t, func() bool { return srv.Echo().ListenerAddr() != nil }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func TestStatusFor(t *testing.T) {
	t.Parallel()

	assert.Equal(t, http.StatusOK, statusFor(nil))
	assert.Equal(t, http.StatusBadRequest, statusFor(gallery.ErrInvalidRequest))
	assert.Equal(t, http.StatusNotFound, statusFor(gallery.ErrEntryCap))
	assert.Equal(t, http.StatusNotFound, statusFor(gallery.ErrMissingPage))
	assert.Equal(t, http.StatusServiceUnavailable, statusFor(gallery.ErrClosed))
	assert.Equal(t, http.StatusBadGateway, statusFor(gallery.ErrUnsuccessfulRequest))
	assert.Equal(t, http.StatusInternalServerError, statusFor(gallery.ErrUnsuccessfulDatabaseAccess))
	assert.Equal(t, http.StatusInternalServerError, statusFor(errors.NewStd("boom")))
}
