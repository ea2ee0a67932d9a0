// Package cache provides the cache maintenance commands
package cache

import (
	"encoding/json"
	"io"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/tphakala/pixalb/internal/config"
	"github.com/tphakala/pixalb/internal/datastore"
)

// Command creates the cache command with its stats and purge subcommands.
func Command(app config.Provider) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and maintain the local image cache",
	}
	cmd.PersistentFlags().BoolVar(&asJSON, "json", false, "Print JSON instead of text")

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show cache table sizes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := app().OpenDatastore()
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			stats, err := store.Stats(cmd.Context(), time.Now())
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), stats)
			}
			return PrintStats(cmd.OutOrStdout(), language.Make(app().Settings.Pixabay.Lang), stats)
		},
	}

	purgeCmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete expired queries and images no live query references",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := app().OpenDatastore()
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			result, err := store.PurgeExpired(cmd.Context(), time.Now())
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), result)
			}
			return PrintPurge(cmd.OutOrStdout(), language.Make(app().Settings.Pixabay.Lang), result)
		},
	}

	cmd.AddCommand(statsCmd, purgeCmd)
	return cmd
}

// PrintStats writes table sizes with localized numbers.
func PrintStats(w io.Writer, lang language.Tag, s datastore.Stats) error {
	p := message.NewPrinter(lang)
	_, err := p.Fprintf(w, "Queries:      %d (%d live)\nImages:       %d\nAssociations: %d\n",
		s.Queries, s.LiveQueries, s.Images, s.Associations)
	return err
}

// PrintPurge writes what a purge removed.
func PrintPurge(w io.Writer, lang language.Tag, r datastore.PurgeResult) error {
	p := message.NewPrinter(lang)
	_, err := p.Fprintf(w, "Removed %d expired queries, %d associations and %d images\n",
		r.Queries, r.Associations, r.Images)
	return err
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
