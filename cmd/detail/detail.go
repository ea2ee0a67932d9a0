// Package detail provides the detail command
package detail

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/tphakala/pixalb/internal/config"
	"github.com/tphakala/pixalb/internal/gallery"
)

// Command creates the detail command.
func Command(app config.Provider) *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "detail <image-id>",
		Short: "Show the details of a cached image",
		Long:  "Detail looks up an image stored by an earlier search. It never calls Pixabay.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid image id %q", args[0])
			}
			return run(cmd.Context(), app(), cmd.OutOrStdout(), id, timeout)
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "Give up waiting for the lookup after this long")

	return cmd
}

func run(ctx context.Context, app *config.Context, w io.Writer, id int64, timeout time.Duration) error {
	components, err := app.BuildLocal()
	if err != nil {
		return err
	}
	defer func() { _ = components.Close() }()

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	store := components.Gallery
	sub := store.DetailView().Subscribe(ctx)
	seq := store.FetchDetailView(id)

	state, err := gallery.Await(ctx, sub, seq)
	if err != nil {
		return fmt.Errorf("waiting for image %d: %w", id, err)
	}
	if state.Err != nil {
		return state.Err
	}
	return PrintDetail(w, language.Make(app.Settings.Pixabay.Lang), id, state.Value)
}

// PrintDetail writes one image with localized counts.
func PrintDetail(w io.Writer, lang language.Tag, id int64, item gallery.DetailViewItem) error {
	p := message.NewPrinter(lang)
	_, err := p.Fprintf(w,
		"Image:     %s\nID:        %s\nUser:      %s\nTags:      %s\nLikes:     %d\nDownloads: %d\nComments:  %d\n",
		item.ImageURL,
		strconv.FormatInt(id, 10),
		item.UserName,
		strings.Join(item.Tags, ", "),
		item.Likes,
		item.Downloads,
		item.Comments)
	return err
}
