package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

type Config struct {
	Addr           string   `env:"ADDR" env-default:":3000"`
	BaseURL        string   `env:"BASE_URL" env-default:"http://localhost:3000"`
	AllowedOrigins []string `env:"CORS_ORIGINS" env-separator:"," env-default:"http://localhost:5173,http://localhost:5174,http://localhost:3000"`
	LogLevel       string   `env:"LOG_LEVEL" env-default:"info"`
	LogFormat      string   `env:"LOG_FORMAT" env-default:"text"`
	TempDir        string   `env:"UPLOAD_TMP_DIR"`

	DatabaseDSN string `env:"DATABASE_DSN" env-default:"tema:tema@tcp(127.0.0.1:3306)/tema?charset=utf8mb4&parseTime=True&loc=Local"`

	MinIOEndpoint  string `env:"MINIO_ENDPOINT" env-default:"127.0.0.1:9000"`
	MinIOAccessKey string `env:"MINIO_ACCESS_KEY" env-default:"minioadmin"`
	MinIOSecretKey string `env:"MINIO_SECRET_KEY" env-default:"minioadmin"`
	MinIOSecure    bool   `env:"MINIO_SECURE" env-default:"false"`
	MinIOBucket    string `env:"MINIO_BUCKET" env-default:"collections"`

	MetBaseURL       string        `env:"MET_BASE_URL" env-default:"https://collectionapi.metmuseum.org/public/collection/v1"`
	MetSearchTimeout time.Duration `env:"MET_SEARCH_TIMEOUT" env-default:"15s"`
	MetObjectTimeout time.Duration `env:"MET_OBJECT_TIMEOUT" env-default:"10s"`
	MetDeptTimeout   time.Duration `env:"MET_DEPARTMENTS_TIMEOUT" env-default:"8s"`
	MetImportLimit   int           `env:"MET_IMPORT_LIMIT" env-default:"80"`
	MetConcurrency   int           `env:"MET_CONCURRENCY" env-default:"8"`
	MetRatePerSecond float64       `env:"MET_RATE_PER_SECOND" env-default:"40"`
	MetRateBurst     int           `env:"MET_RATE_BURST" env-default:"10"`
	MetCacheTTL      time.Duration `env:"MET_CACHE_TTL" env-default:"1h"`
	MetCacheCleanup  time.Duration `env:"MET_CACHE_CLEANUP" env-default:"5m"`

	LLMBaseURL   string        `env:"LLM_BASE_URL" env-default:"https://api.openai.com/v1"`
	LLMAPIKey    string        `env:"LLM_API_KEY"`
	LLMModel     string        `env:"LLM_MODEL" env-default:"gpt-4o"`
	LLMTimeout   time.Duration `env:"LLM_TIMEOUT" env-default:"30s"`
	AICacheTTL   time.Duration `env:"AI_CACHE_TTL" env-default:"24h"`
	AICacheClean time.Duration `env:"AI_CACHE_CLEANUP" env-default:"10m"`
}

// Load reads an optional .env file, then the process environment.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: read env: %w", err)
	}
	if cfg.MetImportLimit < 1 {
		return Config{}, fmt.Errorf("config: MET_IMPORT_LIMIT must be positive, got %d", cfg.MetImportLimit)
	}
	if cfg.MetConcurrency < 1 {
		cfg.MetConcurrency = 1
	}
	return cfg, nil
}
