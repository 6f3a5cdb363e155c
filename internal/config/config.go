package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr    string   `env:"HTTP_ADDR" envDefault:":8080"`
	PostgresDSN string   `env:"POSTGRES_DSN,required"`
	JWTSecret   string   `env:"JWT_SECRET,required"`
	CORSOrigins []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000,http://localhost:5173"`

	// Empty disables Elasticsearch; catalog search falls back to SQL.
	ElasticURL string `env:"ELASTIC_URL"`

	SyncInterval     time.Duration `env:"SYNC_INTERVAL" envDefault:"1s"`
	DLQRetryInterval time.Duration `env:"DLQ_RETRY_INTERVAL" envDefault:"30s"`
	OutboxBatchSize  int           `env:"OUTBOX_BATCH_SIZE" envDefault:"200"`

	AggregateCacheTTL time.Duration `env:"AGGREGATE_CACHE_TTL" envDefault:"5s"`

	SeedSampleData bool `env:"SEED_SAMPLE_DATA"`
}

// Load reads .env when present, then parses the environment.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
