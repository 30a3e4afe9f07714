package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "gemini-2.0-flash", cfg.GeminiModel)
	assert.Equal(t, 900*time.Second, cfg.UploadURLTTL())
	assert.Equal(t, 30*time.Second, cfg.AssetMissTTL())
	assert.False(t, cfg.UseDBImages)
	assert.False(t, cfg.IsProduction())
}

func TestParseOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "Production")
	t.Setenv("USE_DB_IMAGES", "true")
	t.Setenv("R2_PUBLIC_URL", "https://pub.example.com")
	t.Setenv("UPLOAD_URL_TTL_SECONDS", "60")

	cfg, err := Parse()
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.True(t, cfg.UseDBImages)
	assert.Equal(t, "https://pub.example.com", cfg.StorageEndpoint())
	assert.Equal(t, time.Minute, cfg.UploadURLTTL())
}

func TestStorageEndpointPrefersR2Endpoint(t *testing.T) {
	cfg := &Config{R2Endpoint: "https://acc.r2.cloudflarestorage.com", R2PublicURL: "https://pub.example.com"}
	assert.Equal(t, "https://acc.r2.cloudflarestorage.com", cfg.StorageEndpoint())
}

func TestParseRejectsBadInt(t *testing.T) {
	t.Setenv("PORT", "not-a-number")
	_, err := Parse()
	assert.Error(t, err)
}

func TestStorageSettings(t *testing.T) {
	t.Setenv("R2_PUBLIC_URL", "https://pub.example.com")
	t.Setenv("R2_BUCKET", "assets")

	cfg, err := Parse()
	require.NoError(t, err)

	s := cfg.Storage()
	assert.Equal(t, "https://pub.example.com", s.Endpoint)
	assert.Equal(t, "https://pub.example.com", s.PublicBaseURL)
	assert.Equal(t, "assets", s.Bucket)

	t.Setenv("R2_PUBLIC_BASE_URL", "https://cdn.example.com")
	cfg, err = Parse()
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com", cfg.Storage().PublicBaseURL)
}
