package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 120, cfg.Sync.DebounceMS)
	assert.Equal(t, "url-wins", cfg.Sync.ConflictStrategy)
	assert.False(t, cfg.Broadcast.Enabled)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("SYNC_DEBOUNCE_MS", "250")
	t.Setenv("SYNC_CONFLICT_STRATEGY", "overlay-wins")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 250, cfg.Sync.DebounceMS)
	assert.Equal(t, "overlay-wins", cfg.Sync.ConflictStrategy)
}

func TestLoadFileTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "core.toml")
	data := "[sync]\ndebounce_ms = 300\n\n[broadcast]\nenabled = true\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg := Default()
	require.NoError(t, LoadFile(cfg, path))
	assert.Equal(t, 300, cfg.Sync.DebounceMS)
	assert.True(t, cfg.Broadcast.Enabled)
}

func TestLoadFileYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "core.yaml")
	data := "sync:\n  max_props_length: 512\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg := Default()
	require.NoError(t, LoadFile(cfg, path))
	assert.Equal(t, 512, cfg.Sync.MaxPropsLength)
}

func TestLoadFileMissingIsNoop(t *testing.T) {
	cfg := Default()
	require.NoError(t, LoadFile(cfg, filepath.Join(t.TempDir(), "absent.toml")))
	assert.Equal(t, Default(), cfg)
}
