// Package config loads the service's configuration from environment
// variables (with an optional .env file for local development),
// mirroring the section-per-concern layout used across the stack.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
)

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Host            string        `env:"SERVER_HOST,default=0.0.0.0"`
	Port            int           `env:"SERVER_PORT,default=8080"`
	RequestTimeout  time.Duration `env:"SERVER_REQUEST_TIMEOUT,default=30s"`
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT,default=10s"`
}

// DatabaseConfig controls the Postgres connection pool.
type DatabaseConfig struct {
	DSN             string        `env:"DATABASE_DSN,required"`
	MaxOpenConns    int           `env:"DATABASE_MAX_OPEN_CONNS,default=20"`
	MaxIdleConns    int           `env:"DATABASE_MAX_IDLE_CONNS,default=5"`
	ConnMaxLifetime time.Duration `env:"DATABASE_CONN_MAX_LIFETIME,default=30m"`
	MigrateOnStart  bool          `env:"DATABASE_MIGRATE_ON_START,default=true"`
}

// LoggingConfig controls the structured logger.
type LoggingConfig struct {
	Level  string `env:"LOG_LEVEL,default=info"`
	Format string `env:"LOG_FORMAT,default=json"`
}

// AuthConfig controls bearer-token resolution for the RPC surface.
type AuthConfig struct {
	// RPCRequestsPerSecond and RPCBurst bound the rate of RPC calls
	// accepted per access token.
	RPCRequestsPerSecond float64 `env:"AUTH_RPC_RPS,default=5"`
	RPCBurst             int     `env:"AUTH_RPC_BURST,default=20"`
}

// UpstreamConfig controls the upstream map data and editing API client.
type UpstreamConfig struct {
	SnapshotURL       string        `env:"UPSTREAM_SNAPSHOT_URL,required"`
	EditingAPIBaseURL string        `env:"UPSTREAM_EDITING_API_URL,required"`
	RequestTimeout    time.Duration `env:"UPSTREAM_REQUEST_TIMEOUT,default=30s"`
	EditingAPIRPS     float64       `env:"UPSTREAM_EDITING_API_RPS,default=10"`
	EditingAPIBurst   int           `env:"UPSTREAM_EDITING_API_BURST,default=20"`
	SyncSchedule      string        `env:"UPSTREAM_SYNC_SCHEDULE,default=0 */30 * * * *"`
}

// LightningConfig controls the Lightning invoice gateway client and the
// boost/comment paywall prices.
type LightningConfig struct {
	GatewayBaseURL    string        `env:"LIGHTNING_GATEWAY_URL,required"`
	GatewayAPIKey     string        `env:"LIGHTNING_GATEWAY_API_KEY,required"`
	RequestTimeout    time.Duration `env:"LIGHTNING_REQUEST_TIMEOUT,default=15s"`
	Boost30DaySats    int64         `env:"BOOST_PRICE_30D_SATS,default=5000"`
	Boost90DaySats    int64         `env:"BOOST_PRICE_90D_SATS,default=12000"`
	Boost365DaySats   int64         `env:"BOOST_PRICE_365D_SATS,default=40000"`
	CommentPriceSats  int64         `env:"COMMENT_PRICE_SATS,default=1000"`
	InvoicePollPeriod time.Duration `env:"INVOICE_POLL_PERIOD,default=20s"`
}

// NotifyConfig controls the outbound notification sink.
type NotifyConfig struct {
	WebhookURL     string        `env:"NOTIFY_WEBHOOK_URL"`
	RequestTimeout time.Duration `env:"NOTIFY_REQUEST_TIMEOUT,default=10s"`
}

// CacheConfig controls the optional Redis-backed cache.
type CacheConfig struct {
	RedisAddr string `env:"REDIS_ADDR"`
	RedisDB   int    `env:"REDIS_DB,default=0"`
}

// Config is the fully-populated top-level configuration.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Logging   LoggingConfig
	Auth      AuthConfig
	Upstream  UpstreamConfig
	Lightning LightningConfig
	Notify    NotifyConfig
	Cache     CacheConfig
}

// Load reads a .env file if present (ignored if absent) and decodes the
// environment into a Config.
func Load() (*Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("load .env: %w", err)
		}
	}

	var cfg Config
	if err := envdecode.StrictDecode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &cfg, nil
}
