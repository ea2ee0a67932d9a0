package search

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/tphakala/pixalb/internal/gallery"
)

func TestPrintOverview(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	err := PrintOverview(&buf, language.English, "yellow flowers", 3, []gallery.OverviewItem{
		{ID: 1234567, UserName: "anna", Tags: []string{"flower", "yellow"}, Thumbnail: "https://cdn.example/1_150.jpg"},
		{ID: 42, UserName: "bo", Thumbnail: "https://cdn.example/42_150.jpg"},
	})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, `"yellow flowers" page 3: 2 images`, lines[0])
	assert.Regexp(t, `^ID\s+USER\s+TAGS\s+THUMBNAIL$`, lines[1])
	// ids are not grouped like counts
	assert.Regexp(t, `^1234567\s+anna\s+flower, yellow\s+https://cdn.example/1_150.jpg$`, lines[2])
	assert.Regexp(t, `^42\s+bo\s+https://cdn.example/42_150.jpg$`, lines[3])
}

func TestPrintOverviewEmpty(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, PrintOverview(&buf, language.English, "nothing", 1, nil))
	assert.Equal(t, "\"nothing\" page 1: 0 images\n", buf.String())
}

func TestCommandFlags(t *testing.T) {
	t.Parallel()

	cmd := Command(nil)
	page, err := cmd.Flags().GetInt("page")
	require.NoError(t, err)
	assert.Equal(t, 1, page)
	require.Error(t, cmd.Args(cmd, nil))
	require.NoError(t, cmd.Args(cmd, []string{"yellow", "flowers"}))
}
