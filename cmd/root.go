package cmd

import (
	"github.com/spf13/cobra"

	"github.com/tphakala/pixalb/cmd/cache"
	"github.com/tphakala/pixalb/cmd/configinit"
	"github.com/tphakala/pixalb/cmd/detail"
	"github.com/tphakala/pixalb/cmd/search"
	"github.com/tphakala/pixalb/cmd/serve"
	"github.com/tphakala/pixalb/cmd/version"
	"github.com/tphakala/pixalb/internal/conf"
	"github.com/tphakala/pixalb/internal/config"
)

// Execute runs the CLI and releases the runtime afterwards, also when the
// command failed.
func Execute() error {
	root, app := RootCommand()
	err := root.Execute()
	if ctx := app(); ctx != nil {
		if closeErr := ctx.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}
	return err
}

// RootCommand creates the root command and a getter for the runtime context
// its PersistentPreRunE sets up.
func RootCommand() (*cobra.Command, config.Provider) {
	var (
		configFile string
		debug      bool
		app        *config.Context
	)

	rootCmd := &cobra.Command{
		Use:          "pixalb",
		Short:        "Cached Pixabay image gallery",
		Long:         "pixalb searches the Pixabay image API page by page and keeps the results in a local cache.",
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to config.yaml (default: search ., ~/.config/pixalb, /etc/pixalb)")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "Enable debug output")

	provider := config.Provider(func() *config.Context { return app })

	versionCmd := version.Command()
	configCmd := configinit.Command()

	rootCmd.AddCommand(
		search.Command(provider),
		detail.Command(provider),
		serve.Command(provider),
		cache.Command(provider),
		configCmd,
		versionCmd,
	)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		// Skip setup for commands that do not touch the gallery.
		for c := cmd; c != nil; c = c.Parent() {
			if c == versionCmd || c == configCmd {
				return nil
			}
		}
		return initialize(configFile, debug, &app)
	}

	return rootCmd, provider
}

// initialize loads .env files and configuration, then sets up logging,
// telemetry and metrics.
func initialize(configFile string, debug bool, app **config.Context) error {
	if err := conf.LoadDotEnv(); err != nil {
		return err
	}
	settings, err := conf.Load(configFile)
	if err != nil {
		return err
	}
	if debug {
		settings.Debug = true
	}

	ctx, err := config.NewContext(settings)
	if err != nil {
		return err
	}
	*app = ctx
	return nil
}
