package config

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	libconfig "lprwatch/backend/libs/config"
	"lprwatch/backend/services/lpr-service/internal/similarity"
)

const defaultHTTPPort = "3000"

// HTTPConfig holds listener settings.
type HTTPConfig struct {
	Port            string        `yaml:"port" env:"LPR_HTTP_PORT"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout" env:"LPR_SHUTDOWN_TIMEOUT"`
}

// DatabaseConfig holds Postgres settings.
type DatabaseConfig struct {
	DSN      string `yaml:"dsn" env:"LPR_POSTGRES_DSN"`
	MaxConns int32  `yaml:"maxConns" env:"LPR_POSTGRES_MAX_CONNS"`
	Migrate  bool   `yaml:"migrate" env:"LPR_DB_MIGRATE"`
}

// RedisConfig holds the optional plate index settings. An empty Addr disables redis.
type RedisConfig struct {
	Addr     string `yaml:"addr" env:"LPR_REDIS_ADDR"`
	Password string `yaml:"password" env:"LPR_REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"LPR_REDIS_DB"`
	Key      string `yaml:"key" env:"LPR_REDIS_PLATES_KEY"`
}

// SimilarityConfig tunes the near-duplicate plate scan.
type SimilarityConfig struct {
	Threshold float64 `yaml:"threshold" env:"LPR_SIMILARITY_THRESHOLD"`
	Limit     int     `yaml:"limit" env:"LPR_SIMILARITY_LIMIT"`
}

// Config defines lpr service configuration.
type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Similarity SimilarityConfig `yaml:"similarity"`
}

// Default returns configuration with every optional value filled in.
func Default() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Port:            defaultHTTPPort,
			ShutdownTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{
			MaxConns: 10,
			Migrate:  true,
		},
		Similarity: SimilarityConfig{
			Threshold: similarity.DefaultThreshold,
			Limit:     similarity.DefaultLimit,
		},
	}
}

// Load reads configuration via shared helper.
func Load() (*Config, error) {
	cfg := Default()
	if err := libconfig.LoadConfig(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks required values and ranges.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Database.DSN) == "" {
		return errors.New("config: database dsn required")
	}
	if t := c.Similarity.Threshold; math.IsNaN(t) || t < 0 || t >= 1 {
		return fmt.Errorf("config: similarity threshold %v must be in [0,1)", c.Similarity.Threshold)
	}
	if c.Similarity.Limit <= 0 {
		return fmt.Errorf("config: similarity limit %d must be positive", c.Similarity.Limit)
	}
	return nil
}

// HTTPAddress returns :port style.
func (c *Config) HTTPAddress() string {
	port := strings.TrimSpace(c.HTTP.Port)
	if port == "" {
		port = defaultHTTPPort
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return fmt.Sprintf(":%s", port)
}

// RedisEnabled reports whether the plate index should be backed by redis.
func (c *Config) RedisEnabled() bool {
	return strings.TrimSpace(c.Redis.Addr) != ""
}
