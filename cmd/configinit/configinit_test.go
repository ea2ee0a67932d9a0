package configinit

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/pixalb/internal/conf"
)

func TestWriteDefaultsRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	require.NoError(t, WriteDefaults(path, false))

	settings, err := conf.Load(path)
	require.NoError(t, err)
	assert.Equal(t, conf.DefaultSettings().Cache.TTL, settings.Cache.TTL)
	assert.Equal(t, "sqlite", settings.Database.Type)
}

func TestWriteDefaultsRefusesOverwrite(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("debug: true\n"), 0o600))

	err := WriteDefaults(path, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--force")

	require.NoError(t, WriteDefaults(path, true))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "pixabay:")
}
