package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/pixalb/internal/conf"
	"github.com/tphakala/pixalb/internal/errors"
	"github.com/tphakala/pixalb/internal/gallery"
	"github.com/tphakala/pixalb/internal/logger"
)

func testSettings(t *testing.T) *conf.Settings {
	t.Helper()
	settings := conf.DefaultSettings()
	settings.Logging.Console = &logger.ConsoleOutput{Enabled: false}
	settings.Database.SQLite.Path = ":memory:"
	return settings
}

func newTestContext(t *testing.T, settings *conf.Settings) *Context {
	t.Helper()
	ctx, err := NewContext(settings)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ctx.Close() })
	return ctx
}

func TestNewContext(t *testing.T) {
	ctx := newTestContext(t, testSettings(t))

	require.NotNil(t, ctx.Metrics)
	require.NotNil(t, ctx.Log())
	assert.Same(t, ctx.Logger, logger.Global())
	assert.Equal(t, "pixalb@unknown", ctx.BuildInfo.Release())
}

func TestNewContextRejectsBadTimezone(t *testing.T) {
	settings := testSettings(t)
	settings.Logging.Timezone = "Mars/Olympus_Mons"

	_, err := NewContext(settings)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
}

func TestBuildRequiresAPIKey(t *testing.T) {
	ctx := newTestContext(t, testSettings(t))

	_, err := ctx.Build()
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
}

func TestBuildWiresComponents(t *testing.T) {
	settings := testSettings(t)
	settings.Pixabay.APIKey = "test-key"
	settings.Pixabay.ConnectivityCheck = true
	ctx := newTestContext(t, settings)

	components, err := ctx.Build()
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, components.Close()) })

	require.NoError(t, components.Datastore.Ping(t.Context()))
	stats, err := components.Datastore.Stats(t.Context(), time.Now())
	require.NoError(t, err)
	assert.Zero(t, stats.Queries)
	assert.Equal(t, "initial", components.Gallery.Overview().Current().Status.String())
}

func TestBuildLocalNeedsNoAPIKey(t *testing.T) {
	ctx := newTestContext(t, testSettings(t))

	components, err := ctx.BuildLocal()
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, components.Close()) })
	assert.Nil(t, components.Client)

	store := components.Gallery
	detail, err := gallery.Await(t.Context(), store.DetailView().Subscribe(t.Context()), store.FetchDetailView(9))
	require.NoError(t, err)
	require.ErrorIs(t, detail.Err, gallery.ErrNotFound)

	overview, err := gallery.Await(t.Context(), store.Overview().Subscribe(t.Context()), store.FetchOverview("cats", 1))
	require.NoError(t, err)
	require.ErrorIs(t, overview.Err, gallery.ErrNoConnection)
}

func TestPixabayConfig(t *testing.T) {
	t.Parallel()

	cfg := PixabayConfig(conf.PixabaySettings{
		APIKey:           "key",
		BaseURL:          "https://pixabay.example/api/",
		Timeout:          5 * time.Second,
		RateLimit:        2,
		Burst:            3,
		ResponseCacheTTL: time.Minute,
		SafeSearch:       true,
		Lang:             "de",
		ImageType:        "photo",
	})
	assert.Equal(t, "key", cfg.APIKey)
	assert.Equal(t, "https://pixabay.example/api/", cfg.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
	assert.InDelta(t, 2.0, cfg.RateLimit, 1e-9)
	assert.Equal(t, 3, cfg.Burst)
	assert.Equal(t, time.Minute, cfg.ResponseCacheTTL)
	assert.True(t, cfg.SafeSearch)
	assert.Equal(t, "de", cfg.Lang)
	assert.Equal(t, "photo", cfg.ImageType)
}
