// Package config loads runtime configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds all auctiond configuration.
type Config struct {
	DatabaseURL string `env:"DATABASE_URL,required"`
	RedisAddr   string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RabbitMQURL string `env:"RABBITMQ_URL,required"`

	RelayConsumer  string        `env:"RELAY_CONSUMER" envDefault:"auction-relay"`
	RelayBatchSize int           `env:"RELAY_BATCH_SIZE" envDefault:"100"`
	RelayInterval  time.Duration `env:"RELAY_INTERVAL" envDefault:"500ms"`

	TimerResolution time.Duration `env:"TIMER_RESOLUTION" envDefault:"1s"`
	LockTimeout     time.Duration `env:"DB_LOCK_TIMEOUT" envDefault:"3s"`

	CacheTTL        time.Duration `env:"AGGREGATE_CACHE_TTL" envDefault:"10m"`
	CommandRetries  int           `env:"COMMAND_RETRIES" envDefault:"3"`
	ReductionFactor string        `env:"PRICE_REDUCTION_FACTOR" envDefault:"0.95"`
}

// Load reads .env files (local overrides .env) and parses the
// environment.
func Load() (*Config, error) {
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	return &cfg, nil
}
