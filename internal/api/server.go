package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	mw "github.com/tphakala/pixalb/internal/api/middleware"
	"github.com/tphakala/pixalb/internal/conf"
	"github.com/tphakala/pixalb/internal/gallery"
	"github.com/tphakala/pixalb/internal/logger"
)

const (
	readTimeout     = 15 * time.Second
	idleTimeout     = 60 * time.Second
	shutdownTimeout = 10 * time.Second
	bodyLimit       = "64K"
)

// Server is the HTTP server behind the "serve" command.
type Server struct {
	echo       *echo.Echo
	settings   conf.ServerSettings
	controller *Controller
	log        logger.Logger
}

// NewServer builds the echo instance, its middleware stack and the API routes.
// Controller options such as WithMetrics and WithHealthCheck are passed through.
func NewServer(settings conf.ServerSettings, store *gallery.Store, log logger.Logger, opts ...Option) *Server {
	if log == nil {
		log = logger.NewDiscardLogger()
	}
	s := &Server{
		echo:     echo.New(),
		settings: settings,
		log:      log.Module("api"),
	}
	s.echo.HideBanner = true
	s.echo.HidePort = true
	s.echo.Logger = logger.NewEchoAdapter(s.log.Module("echo"))

	// SSE streams stay open, so no write timeout on the server itself.
	s.echo.Server.ReadTimeout = readTimeout
	s.echo.Server.IdleTimeout = idleTimeout

	s.setupMiddleware()

	opts = append([]Option{WithLogger(log), WithHeartbeat(settings.SSEHeartbeat)}, opts...)
	s.controller = NewController(s.echo, store, opts...)
	return s
}

func (s *Server) setupMiddleware() {
	s.echo.Use(echomw.Recover())
	s.echo.Use(mw.NewRequestID())
	s.echo.Use(mw.NewRequestLoggerWithSkipper(s.log, func(c echo.Context) bool {
		return c.Path() == "/metrics" || c.Path() == "/healthz"
	}))
	s.echo.Use(echomw.BodyLimit(bodyLimit))
}

// Echo returns the underlying echo instance.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

// Controller returns the API controller.
func (s *Server) Controller() *Controller {
	return s.controller
}

// Run serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	// Request contexts derive from ctx so open SSE streams end on shutdown.
	s.echo.Server.BaseContext = func(net.Listener) context.Context { return ctx }

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("starting HTTP server", logger.String("address", s.settings.Listen))
		errCh <- s.echo.Start(s.settings.Listen)
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.log.Info("shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		s.log.Error("error during server shutdown", logger.Error(err))
		return fmt.Errorf("shutdown error: %w", err)
	}
	<-errCh
	return nil
}
