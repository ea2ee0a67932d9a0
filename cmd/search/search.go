// Package search provides the search command
package search

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/tphakala/pixalb/internal/config"
	"github.com/tphakala/pixalb/internal/gallery"
	"github.com/tphakala/pixalb/pkg/spinner"
)

// Command creates the search command.
func Command(app config.Provider) *cobra.Command {
	var (
		page    int
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Show one page of search results",
		Long:  "Search prints one page of 50 images, served from the local cache when possible and fetched from Pixabay otherwise.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var progress io.Writer
			if spinner.IsTerminal(cmd.ErrOrStderr()) {
				progress = cmd.ErrOrStderr()
			}
			return run(cmd.Context(), app(), cmd.OutOrStdout(), progress, strings.Join(args, " "), page, timeout)
		},
	}

	cmd.Flags().IntVarP(&page, "page", "p", 1, "Page number (50 images per page)")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "Give up waiting for results after this long")

	return cmd
}

// run prints the page to w. A spinner is drawn on progress while the page
// is pending; nil disables it.
func run(ctx context.Context, app *config.Context, w, progress io.Writer, query string, page int, timeout time.Duration) error {
	components, err := app.Build()
	if err != nil {
		return err
	}
	defer func() { _ = components.Close() }()

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	store := components.Gallery
	sub := store.Overview().Subscribe(ctx)
	seq := store.FetchOverview(query, page)

	stop := func() {}
	if progress != nil {
		stop = spinner.New(progress, "searching Pixabay").Start(ctx, spinner.DefaultInterval)
	}
	state, err := gallery.Await(ctx, sub, seq)
	stop()
	if err != nil {
		return fmt.Errorf("waiting for results: %w", err)
	}
	if state.Err != nil {
		return state.Err
	}

	return PrintOverview(w, language.Make(app.Settings.Pixabay.Lang), query, page, state.Value)
}

// PrintOverview writes items as a table headed by a summary line.
func PrintOverview(w io.Writer, lang language.Tag, query string, page int, items []gallery.OverviewItem) error {
	p := message.NewPrinter(lang)
	if _, err := p.Fprintf(w, "%q page %d: %d images\n", query, page, len(items)); err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tUSER\tTAGS\tTHUMBNAIL")
	for _, item := range items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			strconv.FormatInt(item.ID, 10),
			item.UserName,
			strings.Join(item.Tags, ", "),
			item.Thumbnail)
	}
	return tw.Flush()
}
