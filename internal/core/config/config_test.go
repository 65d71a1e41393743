package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("missing file uses defaults", func(t *testing.T) {
		cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), t.TempDir())
		require.NoError(t, err)

		assert.Equal(t, "http://localhost:5000", cfg.Server.URL)
		assert.Equal(t, 30*time.Second, cfg.Server.Timeout())
		assert.Equal(t, 240*time.Second, cfg.Server.AnalysisTimeout())
		assert.Equal(t, "both", cfg.Upload.GuidelinesPreference)
		assert.Equal(t, []string{"**/*.docx"}, cfg.Upload.DocumentGlobs)
	})

	t.Run("file overrides defaults", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`
server:
  url: https://prism.example.com
  timeout_seconds: 10
upload:
  guidelines_preference: new_only
tui:
  theme: light
`), 0o644))

		cfg, err := Load(path, dir)
		require.NoError(t, err)

		assert.Equal(t, "https://prism.example.com", cfg.Server.URL)
		assert.Equal(t, 10*time.Second, cfg.Server.Timeout())
		assert.Equal(t, "new_only", cfg.Upload.GuidelinesPreference)
		assert.Equal(t, "light", cfg.TUI.Theme)
		// Unset values fall back to defaults
		assert.Equal(t, 240, cfg.Server.AnalysisTimeoutSeconds)
		assert.Equal(t, 3, cfg.Retry.Attempts)
	})

	t.Run("invalid values rejected", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`
server:
  url: "ftp://wrong"
upload:
  guidelines_preference: sometimes
`), 0o644))

		_, err := Load(path, dir)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "server.url")
	})
}

func TestValidate(t *testing.T) {
	base := func() Config {
		cfg := DefaultConfig()
		return cfg
	}

	t.Run("default config is valid", func(t *testing.T) {
		cfg := base()
		assert.NoError(t, cfg.Validate())
	})

	t.Run("bad glob", func(t *testing.T) {
		cfg := base()
		cfg.Upload.DocumentGlobs = []string{"[unclosed"}
		assert.Error(t, cfg.Validate())
	})

	t.Run("bad highlight color", func(t *testing.T) {
		cfg := base()
		cfg.TUI.HighlightColor = "mauve"
		assert.Error(t, cfg.Validate())
	})

	t.Run("zero timeout", func(t *testing.T) {
		cfg := base()
		cfg.Server.TimeoutSeconds = 0
		assert.Error(t, cfg.Validate())
	})
}
