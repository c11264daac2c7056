package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/xxxsen/common/logger"
)

type Config struct {
	Port          int              `json:"port" env:"TUNEBOX_PORT"`
	LogConfig     logger.LogConfig `json:"log_config"`
	Store         StoreConfig      `json:"store"`
	RapidAPI      RapidAPIConfig   `json:"rapid_api"`
	CacheTTL      CacheTTLConfig   `json:"cache_ttl"`
	LocalCache    LocalCacheConfig `json:"local_cache"`
	Embedding     EmbeddingConfig  `json:"embedding"`
	Popular       PopularConfig    `json:"popular"`
	Jobs          JobsConfig       `json:"jobs"`
	CORSAllowlist []string         `json:"cors_allowlist"`
	// seconds between two download requests from the same client
	DownloadRateLimit int `json:"download_rate_limit"`
}

type StoreConfig struct {
	Type     string         `json:"type" env:"TUNEBOX_STORE_TYPE"`
	Postgres DatabaseConfig `json:"postgres"`
	SQLite   SQLiteConfig   `json:"sqlite"`
	Mongo    MongoConfig    `json:"mongo"`
}

type DatabaseConfig struct {
	DSN      string `json:"dsn" env:"TUNEBOX_PG_DSN"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password" env:"TUNEBOX_PG_PASSWORD"`
	DBName   string `json:"db_name"`
	SSLMode  string `json:"ssl_mode"`

	// 0 means 20
	MaxOpenConns int `json:"max_open_conns"`
}

type SQLiteConfig struct {
	Path string `json:"path" env:"TUNEBOX_SQLITE_PATH"`
}

type MongoConfig struct {
	URI         string `json:"uri" env:"TUNEBOX_MONGO_URI"`
	Database    string `json:"database"`
	VectorIndex string `json:"vector_index"`
}

type RapidAPIConfig struct {
	APIKey         string  `json:"api_key" env:"TUNEBOX_RAPIDAPI_KEY"`
	Host           string  `json:"host"`
	BaseURL        string  `json:"base_url"`
	DownloadHost   string  `json:"download_host"`
	DownloadURL    string  `json:"download_url"`
	TimeoutSeconds int     `json:"timeout_seconds"`
	RatePerSecond  float64 `json:"rate_per_second"`
	Burst          int     `json:"burst"`
}

type CacheTTLConfig struct {
	SearchHours     int `json:"search_hours"`
	TrendingHours   int `json:"trending_hours"`
	DownloadMinutes int `json:"download_minutes"`
	LyricsHours     int `json:"lyrics_hours"`
	TrackInfoHours  int `json:"track_info_hours"`
	PopularHours    int `json:"popular_hours"`
}

type LocalCacheConfig struct {
	Size       int `json:"size"`
	TTLSeconds int `json:"ttl_seconds"`
}

type EmbeddingConfig struct {
	// metadata or hybrid; fixed for the lifetime of a deployment
	Mode      string                `json:"mode"`
	Dimension int                   `json:"dimension"`
	Providers []EmbedProviderConfig `json:"providers"`
	LRUSize   int                   `json:"lru_size"`
	// minutes
	LRUTTL          int  `json:"lru_ttl"`
	DBCache         bool `json:"db_cache"`
	CacheMaxAgeDays int  `json:"cache_max_age_days"`
	Timeout         int  `json:"timeout"`
}

type EmbedProviderConfig struct {
	Name  string      `json:"name"`
	Model string      `json:"model"`
	Data  interface{} `json:"data"`
}

type PopularConfig struct {
	Concurrency    int      `json:"concurrency"`
	TimeoutSeconds int      `json:"timeout_seconds"`
	SampleSize     int      `json:"sample_size"`
	WarmupCountry  []string `json:"warmup_country"`
}

type JobsConfig struct {
	EmbeddingBackfill     string `json:"embedding_backfill"`
	EmbeddingBackfillSize int    `json:"embedding_backfill_size"`
	PopularWarmup         string `json:"popular_warmup"`
	EmbeddingCacheCleanup string `json:"embedding_cache_cleanup"`

	// run popular_warmup once right after start
	WarmupOnStart bool `json:"warmup_on_start"`
}

func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (cfg *Config) normalize() error {
	if cfg.Port == 0 {
		return fmt.Errorf("port is required")
	}
	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}
	cfg.Store.Type = strings.ToLower(strings.TrimSpace(cfg.Store.Type))
	if cfg.Store.Type == "" {
		cfg.Store.Type = "sqlite"
	}
	switch cfg.Store.Type {
	case "sqlite":
		if cfg.Store.SQLite.Path == "" {
			return fmt.Errorf("store.sqlite.path is required for sqlite store")
		}
	case "postgres":
		if cfg.Store.Postgres.DSN == "" && cfg.Store.Postgres.Host == "" {
			return fmt.Errorf("store.postgres dsn or host is required for postgres store")
		}
		if cfg.Store.Postgres.Port == 0 {
			cfg.Store.Postgres.Port = 5432
		}
	case "mongo":
		if cfg.Store.Mongo.URI == "" || cfg.Store.Mongo.Database == "" {
			return fmt.Errorf("store.mongo uri/database are required for mongo store")
		}
		if cfg.Store.Mongo.VectorIndex == "" {
			cfg.Store.Mongo.VectorIndex = "vector_index"
		}
	default:
		return fmt.Errorf("store.type must be sqlite, postgres or mongo")
	}
	if cfg.RapidAPI.APIKey == "" {
		return fmt.Errorf("rapid_api.api_key is required")
	}
	if cfg.RapidAPI.Host == "" || cfg.RapidAPI.BaseURL == "" {
		return fmt.Errorf("rapid_api host/base_url are required")
	}
	if cfg.RapidAPI.TimeoutSeconds <= 0 {
		cfg.RapidAPI.TimeoutSeconds = 10
	}
	cfg.Embedding.Mode = strings.ToLower(strings.TrimSpace(cfg.Embedding.Mode))
	if cfg.Embedding.Mode == "" {
		cfg.Embedding.Mode = "metadata"
	}
	if cfg.Embedding.Mode != "metadata" && cfg.Embedding.Mode != "hybrid" {
		return fmt.Errorf("embedding.mode must be metadata or hybrid")
	}
	if len(cfg.Embedding.Providers) == 0 {
		cfg.Embedding.Providers = []EmbedProviderConfig{{Name: "local"}}
	}
	if cfg.Embedding.LRUSize == 0 {
		cfg.Embedding.LRUSize = 4096
	}
	if cfg.Embedding.LRUTTL == 0 {
		cfg.Embedding.LRUTTL = 120
	}
	if cfg.Embedding.CacheMaxAgeDays == 0 {
		cfg.Embedding.CacheMaxAgeDays = 30
	}
	if cfg.Popular.Concurrency <= 0 {
		cfg.Popular.Concurrency = 5
	}
	if cfg.Popular.TimeoutSeconds <= 0 {
		cfg.Popular.TimeoutSeconds = 5
	}
	if cfg.Popular.SampleSize <= 0 {
		cfg.Popular.SampleSize = 10
	}
	if cfg.Jobs.EmbeddingBackfillSize <= 0 {
		cfg.Jobs.EmbeddingBackfillSize = 50
	}
	return nil
}
