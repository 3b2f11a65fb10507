package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Environment string `envconfig:"ENVIRONMENT" default:"local"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`
	DBMinConns  int32  `envconfig:"ROLLUP_DB_MIN_CONNS" default:"1"`
	DBMaxConns  int32  `envconfig:"ROLLUP_DB_MAX_CONNS" default:"8"`

	PollWorkers       int           `envconfig:"POLL_WORKERS" default:"8"`
	PollInterval      time.Duration `envconfig:"POLL_INTERVAL" default:"30m"`
	FetchTimeout      time.Duration `envconfig:"FETCH_TIMEOUT" default:"20s"`
	FetchUserAgent    string        `envconfig:"FETCH_USER_AGENT" default:"rollup/1.0 (+feed-aggregator)"`
	ClusterWindow     time.Duration `envconfig:"CLUSTER_WINDOW" default:"72h"`
	ClusterCandidates int           `envconfig:"CLUSTER_CANDIDATES" default:"300"`

	DigestBacklogThreshold int           `envconfig:"DIGEST_BACKLOG_THRESHOLD" default:"50"`
	DigestAwayLookback     time.Duration `envconfig:"DIGEST_AWAY_LOOKBACK" default:"24h"`

	RetentionDays int `envconfig:"RETENTION_DAYS" default:"90"`

	OllamaHost  string `envconfig:"OLLAMA_HOST" default:"http://127.0.0.1:11434"`
	OllamaModel string `envconfig:"OLLAMA_MODEL" default:"llama3.2"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.DBMinConns < 0 {
		return fmt.Errorf("ROLLUP_DB_MIN_CONNS must be >= 0")
	}
	if c.DBMaxConns < 1 {
		return fmt.Errorf("ROLLUP_DB_MAX_CONNS must be >= 1")
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("ROLLUP_DB_MIN_CONNS (%d) cannot exceed ROLLUP_DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}
	if c.PollWorkers < 1 {
		return fmt.Errorf("POLL_WORKERS must be >= 1")
	}
	if c.FetchTimeout <= 0 {
		return fmt.Errorf("FETCH_TIMEOUT must be > 0")
	}
	if c.ClusterCandidates < 1 {
		return fmt.Errorf("CLUSTER_CANDIDATES must be >= 1")
	}
	if c.DigestBacklogThreshold < 1 {
		return fmt.Errorf("DIGEST_BACKLOG_THRESHOLD must be >= 1")
	}
	if c.RetentionDays < 1 {
		return fmt.Errorf("RETENTION_DAYS must be >= 1")
	}
	return nil
}
