// Package config assembles the runtime shared by the pixalb commands: settings,
// logging, telemetry and metrics, plus the gallery component graph built on
// top of them.
package config

import (
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/tphakala/pixalb/internal/buildinfo"
	"github.com/tphakala/pixalb/internal/conf"
	"github.com/tphakala/pixalb/internal/datastore"
	"github.com/tphakala/pixalb/internal/errors"
	"github.com/tphakala/pixalb/internal/gallery"
	"github.com/tphakala/pixalb/internal/logger"
	"github.com/tphakala/pixalb/internal/observability"
	"github.com/tphakala/pixalb/internal/pixabay"
)

const (
	connectivityProbeTimeout = 3 * time.Second
	sentryFlushTimeout       = 2 * time.Second
)

// Context holds the application state every command starts from.
type Context struct {
	Settings  *conf.Settings
	Logger    *logger.CentralLogger
	Metrics   *observability.Metrics
	BuildInfo *buildinfo.Context

	sentryEnabled bool
}

// NewContext configures logging, telemetry and metrics for settings.
func NewContext(settings *conf.Settings) (*Context, error) {
	loggingConfig := settings.Logging
	if settings.Debug {
		loggingConfig.DefaultLevel = string(logger.LogLevelDebug)
		if loggingConfig.Console != nil {
			console := *loggingConfig.Console
			console.Level = loggingConfig.DefaultLevel
			loggingConfig.Console = &console
		}
	}
	central, err := logger.NewCentralLogger(&loggingConfig)
	if err != nil {
		return nil, err
	}
	logger.SetGlobal(central)

	m, err := observability.NewMetrics()
	if err != nil {
		_ = central.Close()
		return nil, err
	}

	ctx := &Context{
		Settings:  settings,
		Logger:    central,
		Metrics:   m,
		BuildInfo: buildinfo.Current(),
	}
	if err := ctx.initSentry(); err != nil {
		_ = central.Close()
		return nil, err
	}
	return ctx, nil
}

func (c *Context) initSentry() error {
	s := c.Settings.Sentry
	if !s.Enabled {
		return nil
	}
	err := sentry.Init(sentry.ClientOptions{
		Dsn:              s.DSN,
		SampleRate:       1.0,
		AttachStacktrace: false,
		Environment:      s.Environment,
		ServerName:       "",
		Release:          c.BuildInfo.Release(),
	})
	if err != nil {
		return errors.New(fmt.Errorf("sentry initialization failed: %w", err)).
			Component("config").
			Category(errors.CategoryConfiguration).
			Build()
	}
	errors.SetTelemetryReporter(errors.NewSentryReporter(true))
	c.sentryEnabled = true
	c.Log().Info("error telemetry enabled", logger.String("environment", s.Environment))
	return nil
}

// Log returns the root application logger.
func (c *Context) Log() logger.Logger {
	return c.Logger.Module("pixalb")
}

// Close flushes telemetry and log output.
func (c *Context) Close() error {
	if c.sentryEnabled {
		errors.SetTelemetryReporter(nil)
		sentry.Flush(sentryFlushTimeout)
	}
	return c.Logger.Close()
}

// OpenDatastore opens the configured cache database.
func (c *Context) OpenDatastore() (*datastore.Store, error) {
	return datastore.Open(c.Settings.Database, c.Log())
}

// Components is the wired gallery stack.
type Components struct {
	Datastore *datastore.Store
	Client    *pixabay.Client
	Local     *gallery.LocalRepository
	Gallery   *gallery.Store
}

// Build wires datastore, Pixabay client, repositories and the gallery store.
// It fails with a configuration error when no API key is set.
func (c *Context) Build() (*Components, error) {
	if err := c.Settings.RequireAPIKey(); err != nil {
		return nil, err
	}
	log := c.Log()

	store, err := c.OpenDatastore()
	if err != nil {
		return nil, err
	}

	opts := []pixabay.Option{
		pixabay.WithLogger(log),
		pixabay.WithMetrics(c.Metrics.Pixabay),
	}
	if c.Settings.Pixabay.ConnectivityCheck {
		opts = append(opts, pixabay.WithConnectivityCheck(
			pixabay.NewDialProbe(c.Settings.Pixabay.BaseURL, connectivityProbeTimeout)))
	}
	client, err := pixabay.NewClient(PixabayConfig(c.Settings.Pixabay), opts...)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	local := gallery.NewLocalRepository(store,
		gallery.WithTTL(c.Settings.Cache.TTL),
		gallery.WithLocalLogger(log))
	remote := gallery.NewRemoteGateway(client, log)

	return &Components{
		Datastore: store,
		Client:    client,
		Local:     local,
		Gallery: gallery.NewStore(local, remote,
			gallery.WithStoreLogger(log),
			gallery.WithStoreMetrics(c.Metrics.Gallery)),
	}, nil
}

// BuildLocal wires the gallery store over the cache alone. It needs no API
// key; overview requests the cache cannot serve end in ErrNoConnection and
// Client is nil.
func (c *Context) BuildLocal() (*Components, error) {
	log := c.Log()

	store, err := c.OpenDatastore()
	if err != nil {
		return nil, err
	}
	local := gallery.NewLocalRepository(store,
		gallery.WithTTL(c.Settings.Cache.TTL),
		gallery.WithLocalLogger(log))

	return &Components{
		Datastore: store,
		Local:     local,
		Gallery: gallery.NewStore(local, gallery.OfflineGateway{},
			gallery.WithStoreLogger(log),
			gallery.WithStoreMetrics(c.Metrics.Gallery)),
	}, nil
}

// Close stops the gallery store before releasing the client and database.
func (cp *Components) Close() error {
	cp.Gallery.Close()
	if cp.Client != nil {
		cp.Client.Close()
	}
	return cp.Datastore.Close()
}

// PixabayConfig maps the pixabay configuration section to a client config.
func PixabayConfig(s conf.PixabaySettings) pixabay.Config {
	return pixabay.Config{
		APIKey:           s.APIKey,
		BaseURL:          s.BaseURL,
		Timeout:          s.Timeout,
		RateLimit:        s.RateLimit,
		Burst:            s.Burst,
		ResponseCacheTTL: s.ResponseCacheTTL,
		SafeSearch:       s.SafeSearch,
		Lang:             s.Lang,
		ImageType:        s.ImageType,
	}
}

// Provider returns the context once the root command has initialized it.
type Provider func() *Context
