package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":3000", cfg.Addr)
	assert.Equal(t, 80, cfg.MetImportLimit)
	assert.Equal(t, 15*time.Second, cfg.MetSearchTimeout)
	assert.Equal(t, 10*time.Second, cfg.MetObjectTimeout)
	assert.Equal(t, time.Hour, cfg.MetCacheTTL)
	assert.Equal(t, 24*time.Hour, cfg.AICacheTTL)
	assert.Equal(t, "gpt-4o", cfg.LLMModel)
	assert.Contains(t, cfg.AllowedOrigins, "http://localhost:5173")
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("ADDR", ":9090")
	t.Setenv("MET_IMPORT_LIMIT", "25")
	t.Setenv("MET_CACHE_TTL", "90s")
	t.Setenv("CORS_ORIGINS", "https://gallery.example,https://admin.example")
	t.Setenv("MINIO_SECURE", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, 25, cfg.MetImportLimit)
	assert.Equal(t, 90*time.Second, cfg.MetCacheTTL)
	assert.Equal(t, []string{"https://gallery.example", "https://admin.example"}, cfg.AllowedOrigins)
	assert.True(t, cfg.MinIOSecure)
}

func TestLoad_RejectsNonPositiveImportLimit(t *testing.T) {
	t.Setenv("MET_IMPORT_LIMIT", "0")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MET_IMPORT_LIMIT")
}
