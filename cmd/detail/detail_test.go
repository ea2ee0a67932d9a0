package detail

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/tphakala/pixalb/internal/gallery"
)

func TestPrintDetail(t *testing.T) {
	t.Parallel()

	item := gallery.DetailViewItem{
		ImageURL:  "https://cdn.example/7_640.jpg",
		UserName:  "anna",
		Tags:      []string{"flower", "yellow"},
		Likes:     1520,
		Downloads: 1234567,
		Comments:  12,
	}

	var buf bytes.Buffer
	require.NoError(t, PrintDetail(&buf, language.English, 1234567, item))
	assert.Equal(t, "Image:     https://cdn.example/7_640.jpg\n"+
		"ID:        1234567\n"+
		"User:      anna\n"+
		"Tags:      flower, yellow\n"+
		"Likes:     1,520\n"+
		"Downloads: 1,234,567\n"+
		"Comments:  12\n", buf.String())

	buf.Reset()
	require.NoError(t, PrintDetail(&buf, language.German, 7, item))
	assert.Contains(t, buf.String(), "Downloads: 1.234.567\n")
}

func TestCommandRejectsBadID(t *testing.T) {
	t.Parallel()

	for _, id := range []string{"abc", "0", "-1"} {
		cmd := Command(nil)
		cmd.SetArgs([]string{"--", id})
		cmd.SilenceUsage = true
		cmd.SilenceErrors = true
		err := cmd.Execute()
		require.Error(t, err, id)
		assert.Contains(t, err.Error(), "invalid image id")
	}
}
