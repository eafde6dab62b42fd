package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "artifacts", cfg.Artifacts.Dir)
	assert.Equal(t, 5, cfg.Training.CVSplits)
	assert.Equal(t, 3, cfg.Training.CVRepeats)
	assert.Equal(t, int64(42), cfg.Training.Seed)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ordercast.yaml")
	yaml := "log:\n  level: debug\nartifacts:\n  dir: /var/lib/ordercast\ntraining:\n  cv_splits: 4\n"
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "/var/lib/ordercast", cfg.Artifacts.Dir)
	assert.Equal(t, 4, cfg.Training.CVSplits)
	assert.Equal(t, 3, cfg.Training.CVRepeats, "unset keys keep defaults")
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err, "an explicitly named config file must exist")
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("ORDERCAST_LOG_LEVEL", "warn")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Log.Level)
}
