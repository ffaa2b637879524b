package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 8080, c.HTTP.Port)
	assert.Equal(t, 5*time.Minute, c.HTTP.TimeoutDuration())
	assert.Equal(t, []string{"*"}, c.HTTP.AllowedOrigins)
	assert.Equal(t, int64(42), c.ML.Seed)
	assert.Equal(t, 0.2, c.ML.TestSize)
	assert.Equal(t, 64, c.Sessions.Capacity)
	assert.Equal(t, "models/model.bundle", c.ML.ModelPath)
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("http:\n  port: 9090\nml:\n  seed: 7\n"), 0o644))
	t.Setenv("DATALAB_ML_TEST_SIZE", "0.3")

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9090, c.HTTP.Port)
	assert.Equal(t, int64(7), c.ML.Seed)
	assert.Equal(t, 0.3, c.ML.TestSize)
	assert.Equal(t, "info", c.Log.Level)
}

func TestLoadRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("ml:\n  test_size: 1.5\n"), 0o644))
	_, err := Load(path)
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(path, []byte("http: [broken"), 0o644))
	_, err = Load(path)
	assert.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	c := Default()
	c.HTTP.Port = 9999
	c.Charts.PlotlyCDN = "https://cdn.plot.ly/plotly-2.35.2.min.js"
	require.NoError(t, Save(c, path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, c, loaded)
}

func TestMissingFileUsesDefaults(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 8080, c.HTTP.Port)
}
