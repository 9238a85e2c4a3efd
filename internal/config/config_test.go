package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vidfriends/linkresolver/internal/resolver"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	t.Run("local development defaults", func(t *testing.T) {
		assert.Equal(t, 8080, cfg.AppPort)
		assert.Equal(t, "info", cfg.LogLevel)
		assert.Equal(t, "migrations", cfg.MigrationDir)
		assert.Equal(t, 30*time.Second, cfg.HTTPTimeout)
		assert.Zero(t, cfg.CacheTTL)
		assert.Equal(t, time.Minute, cfg.RateLimit.Window)
		assert.Equal(t, []string{"mp4"}, cfg.FuzzyExtensions)
		assert.False(t, cfg.Archive.Enabled)
	})

	t.Run("provider left unconfigured", func(t *testing.T) {
		assert.Equal(t, resolver.MethodGet, cfg.Provider.Method)
		assert.Empty(t, cfg.Provider.APIKey)
		assert.Error(t, cfg.Provider.Validate())
	})
}

func TestLoadEnvironment(t *testing.T) {
	t.Setenv("RESOLVER_PORT", "9090")
	t.Setenv("RESOLVER_PROVIDER_API_KEY", "env-key")
	t.Setenv("RESOLVER_PROVIDER_METHOD", "post")
	t.Setenv("RESOLVER_PROVIDER_USE_PROXY", "true")
	t.Setenv("RESOLVER_FUZZY_EXTENSIONS", "mp4, webm ,,mkv")
	t.Setenv("RESOLVER_CACHE_TTL", "5m")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.AppPort)
	assert.Equal(t, "env-key", cfg.Provider.APIKey)
	assert.Equal(t, resolver.MethodPost, cfg.Provider.Method)
	assert.True(t, cfg.Provider.UseProxy)
	assert.Equal(t, 5*time.Minute, cfg.CacheTTL)
	assert.Equal(t, []string{"mp4", "webm", "mkv"}, cfg.FuzzyExtensions)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "unknown method", key: "RESOLVER_PROVIDER_METHOD", value: "PATCH"},
		{name: "malformed duration", key: "RESOLVER_HTTP_TIMEOUT", value: "soon"},
		{name: "archive without bucket", key: "RESOLVER_ARCHIVE_ENABLED", value: "true"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "linkresolver.yaml")
	body := "port: 7000\nprovider:\n  api_key: file-key\n  api_host: host.example.com\n  base_url: https://host.example.com/get\narchive:\n  enabled: true\nobject_store:\n  bucket: responses\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, 7000, cfg.AppPort)
	assert.Equal(t, "file-key", cfg.Provider.APIKey)
	assert.NoError(t, cfg.Provider.Validate())
	assert.Equal(t, "responses", cfg.ObjectStore.Bucket)
	assert.Equal(t, "unresolved", cfg.ObjectStore.Prefix)
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
