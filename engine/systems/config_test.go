package systems

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()
	assert.Equal(t, "assets", config.BasePath)
	assert.Equal(t, "images", config.ImageDir)
	assert.Equal(t, "atlases", config.AtlasDir)
	assert.Equal(t, 30*time.Second, config.HTTPTimeout())
	assert.False(t, config.WatchAssets)
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pulse.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
base_path = "gamedata"
image_dir = "sprites"
http_timeout_seconds = 5
log_level = "debug"
`), 0o644))

	config, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "gamedata", config.BasePath)
	assert.Equal(t, "sprites", config.ImageDir)
	// Unset fields keep their defaults.
	assert.Equal(t, "audio", config.AudioDir)
	assert.Equal(t, "atlases", config.AtlasDir)
	assert.Equal(t, 5*time.Second, config.HTTPTimeout())
	assert.Equal(t, "debug", config.LogLevel)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml"))
	require.Error(t, err)
}

func TestLoadConfigMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pulse.toml")
	require.NoError(t, os.WriteFile(path, []byte(`base_path = [`), 0o644))

	_, err := LoadConfig(path)
	require.Error(t, err)
}

func TestLoadConfigRejectsNonPositiveTimeout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pulse.toml")
	require.NoError(t, os.WriteFile(path, []byte(`http_timeout_seconds = 0`), 0o644))

	_, err := LoadConfig(path)
	require.Error(t, err)
}
