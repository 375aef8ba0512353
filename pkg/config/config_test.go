package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chdirTemp(t *testing.T) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, "drive_structure_for_", cfg.Cache.FolderStructure.Prefix)
	assert.Equal(t, time.Hour, cfg.Cache.FolderStructure.TTL)
	assert.Equal(t, "google_credentials_for_", cfg.Cache.Credentials.Prefix)
	assert.Equal(t, 15*time.Minute, cfg.Cache.Credentials.TTL)
	assert.Equal(t, 100, cfg.Spaces.ScanWindow)
	assert.Equal(t, int64(24*1024*1024), cfg.Spaces.MaxUploadBytes)
	assert.ElementsMatch(t, DefaultSpreadsheetMIMEs, cfg.Spaces.AllowedMIMEs)
	assert.Equal(t, "leads_management", cfg.Google.RootFolderName)
}

func TestLoadOverridesFromEnv(t *testing.T) {
	chdirTemp(t)
	t.Setenv("CACHE_FOLDER_STRUCTURE_TTL", "30m")
	t.Setenv("SPACES_SCAN_WINDOW", "250")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example ,")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 30*time.Minute, cfg.Cache.FolderStructure.TTL)
	assert.Equal(t, 250, cfg.Spaces.ScanWindow)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
}

func TestParseDurationFallback(t *testing.T) {
	assert.Equal(t, time.Minute, parseDuration("", time.Minute))
	assert.Equal(t, time.Minute, parseDuration("nonsense", time.Minute))
	assert.Equal(t, 2*time.Second, parseDuration("2s", time.Minute))
}
