// Package serve provides the serve command
package serve

import (
	"context"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tphakala/pixalb/internal/api"
	"github.com/tphakala/pixalb/internal/config"
	"github.com/tphakala/pixalb/internal/logger"
	"github.com/tphakala/pixalb/internal/mqtt"
)

// Command creates the serve command.
func Command(app config.Provider) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the gallery over HTTP",
		Long:  "Serve exposes the overview and detail view channels over a JSON and Server-Sent Events API, plus /metrics and /healthz. With mqtt.enabled every state is also published to the broker.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := app()
			if listen != "" {
				ctx.Settings.Server.Listen = listen
			}
			return run(cmd.Context(), ctx)
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "Listen address, overrides server.listen")

	return cmd
}

func run(parent context.Context, app *config.Context) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	components, err := app.Build()
	if err != nil {
		return err
	}
	defer func() { _ = components.Close() }()

	log := app.Log()
	var wg sync.WaitGroup

	if app.Settings.MQTT.Enabled {
		cfg := mqtt.ConfigFromSettings(app.Settings.MQTT)
		client, err := mqtt.NewClient(cfg, app.Metrics.MQTT, log)
		if err != nil {
			return err
		}
		if err := client.Connect(ctx); err != nil {
			// paho keeps retrying; publishes fail until it connects
			log.Warn("initial MQTT connection failed", logger.Error(err))
		}
		defer client.Disconnect()

		bridge := mqtt.NewBridge(client, cfg, log)
		wg.Add(1)
		go func() {
			defer wg.Done()
			bridge.Run(ctx, components.Gallery)
		}()
	}

	server := api.NewServer(app.Settings.Server, components.Gallery, log,
		api.WithMetrics(app.Metrics),
		api.WithHealthCheck(components.Datastore))

	err = server.Run(ctx)
	stop()
	wg.Wait()
	return err
}
