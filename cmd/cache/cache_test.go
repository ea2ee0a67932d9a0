package cache

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/tphakala/pixalb/internal/datastore"
)

func TestPrintStats(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, PrintStats(&buf, language.English, datastore.Stats{
		Queries: 12, LiveQueries: 9, Images: 2400, Associations: 2600,
	}))
	assert.Equal(t, "Queries:      12 (9 live)\nImages:       2,400\nAssociations: 2,600\n", buf.String())
}

func TestPrintPurge(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, PrintPurge(&buf, language.English, datastore.PurgeResult{Queries: 3, Associations: 1200, Images: 950}))
	assert.Equal(t, "Removed 3 expired queries, 1,200 associations and 950 images\n", buf.String())
}

func TestWriteJSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, writeJSON(&buf, datastore.Stats{Queries: 1, LiveQueries: 1, Images: 200, Associations: 200}))
	assert.JSONEq(t, `{"queries":1,"live_queries":1,"images":200,"associations":200}`, buf.String())
}

func TestCommandTree(t *testing.T) {
	t.Parallel()

	cmd := Command(nil)
	names := make([]string, 0, 2)
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	assert.ElementsMatch(t, []string{"stats", "purge"}, names)
	require.NotNil(t, cmd.PersistentFlags().Lookup("json"))
}
