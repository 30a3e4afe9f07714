package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/portfolio/backend/internal/storage"
)

// Config holds every environment option the backend recognizes.
type Config struct {
	// Server
	Port       int    `env:"PORT" envDefault:"8080"`
	AppEnv     string `env:"APP_ENV" envDefault:"development"`
	GinMode    string `env:"GIN_MODE" envDefault:"debug"`
	CORSOrigin string `env:"CORS_ORIGIN" envDefault:"*"`

	// Database
	DatabaseURL string `env:"DATABASE_URL"`

	// Object storage (R2, S3-compatible)
	R2Endpoint      string `env:"R2_ENDPOINT"`
	R2PublicURL     string `env:"R2_PUBLIC_URL"`
	R2PublicBaseURL string `env:"R2_PUBLIC_BASE_URL"`
	R2Bucket        string `env:"R2_BUCKET"`
	R2AccessKeyID   string `env:"R2_ACCESS_KEY_ID"`
	R2SecretKey     string `env:"R2_SECRET_ACCESS_KEY"`
	UploadURLTTLSec int    `env:"UPLOAD_URL_TTL_SECONDS" envDefault:"900"`

	// Gemini
	GoogleAPIKey      string `env:"GOOGLE_API_KEY"`
	GeminiModel       string `env:"GEMINI_MODEL" envDefault:"gemini-2.0-flash"`
	GeminiBaseURL     string `env:"GEMINI_BASE_URL" envDefault:"https://generativelanguage.googleapis.com/v1beta"`
	GeminiTimeoutSecs int    `env:"GEMINI_TIMEOUT_SECONDS" envDefault:"60"`

	// Edge relay
	ProxyKey string `env:"PROXY_KEY"`

	// Asset resolution
	UseDBImages        bool `env:"USE_DB_IMAGES" envDefault:"false"`
	AssetMissTTLSecond int  `env:"ASSET_MISS_TTL_SECONDS" envDefault:"30"`

	// GitHub showcase
	GitHubToken        string `env:"GITHUB_TOKEN"`
	GitHubUsername     string `env:"GITHUB_USERNAME" envDefault:"flowprimedesign"`
	GitHubCacheSeconds int    `env:"GITHUB_CACHE_SECONDS" envDefault:"300"`
}

// Load reads .env (if present) and parses the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return Parse()
}

// Parse reads the process environment without touching .env.
func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, "production")
}

// StorageEndpoint is R2_ENDPOINT with R2_PUBLIC_URL as fallback.
func (c *Config) StorageEndpoint() string {
	if c.R2Endpoint != "" {
		return c.R2Endpoint
	}
	return c.R2PublicURL
}

// Storage builds the object storage settings. Sync-generated URLs use
// R2_PUBLIC_BASE_URL, falling back to R2_PUBLIC_URL.
func (c *Config) Storage() storage.Config {
	publicBase := c.R2PublicBaseURL
	if publicBase == "" {
		publicBase = c.R2PublicURL
	}
	return storage.Config{
		Endpoint:        c.StorageEndpoint(),
		Bucket:          c.R2Bucket,
		AccessKeyID:     c.R2AccessKeyID,
		SecretAccessKey: c.R2SecretKey,
		PublicBaseURL:   publicBase,
	}
}

func (c *Config) UploadURLTTL() time.Duration {
	return time.Duration(c.UploadURLTTLSec) * time.Second
}

func (c *Config) GeminiTimeout() time.Duration {
	return time.Duration(c.GeminiTimeoutSecs) * time.Second
}

func (c *Config) AssetMissTTL() time.Duration {
	return time.Duration(c.AssetMissTTLSecond) * time.Second
}

func (c *Config) GitHubCacheTTL() time.Duration {
	return time.Duration(c.GitHubCacheSeconds) * time.Second
}
