package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	require.Equal(t, "https://www.linkedin.com/", cfg.LinkedIn.BaseURL)
	require.Equal(t, 9, cfg.Limits.MaxRequestsPerRun)
	require.Equal(t, 180, cfg.Cooldowns.SearchMin)
	require.Equal(t, 600, cfg.Cooldowns.SearchMax)
	require.Equal(t, "llama-3.1-8b-instant", cfg.AI.Model)
	require.Contains(t, cfg.Search.RelevanceKeywords, "hiring")
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
limits:
  max_requests_per_run: 3
cooldowns:
  request_min: 10
  request_max: 20
logging:
  level: "debug"
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 3, cfg.Limits.MaxRequestsPerRun)
	require.Equal(t, 10, cfg.Cooldowns.RequestMin)
	require.Equal(t, "debug", cfg.Logging.Level)
	// Untouched sections keep their defaults.
	require.Equal(t, 50, cfg.Limits.MaxProspectsPerRun)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("OUTREACHBOT_DB_PATH", "/tmp/override.db")
	t.Setenv("OUTREACHBOT_LOG_LEVEL", "warn")
	t.Setenv("OUTREACHBOT_HEADLESS", "true")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	require.Equal(t, "/tmp/override.db", cfg.Database.Path)
	require.Equal(t, "warn", cfg.Logging.Level)
	require.True(t, cfg.Stealth.Headless)
}

func TestLoadRejectsBadRanges(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
cooldowns:
  request_min: 100
  request_max: 10
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "cooldown")
}
