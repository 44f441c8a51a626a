// Package config defines the service configuration and its loader.
package config

import (
	"fmt"
	"time"

	"github.com/gateward/gateward/pkg/constants"
)

// Config holds the full service configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Kafka     KafkaConfig     `mapstructure:"kafka"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Log       LogConfig       `mapstructure:"log"`
	Tracing   TracingConfig   `mapstructure:"tracing"`
}

// ServerConfig holds the HTTP server settings.
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`

	// AdminToken guards the key management endpoints. Empty disables them.
	AdminToken string `mapstructure:"admin_token"`

	// CORSOrigins lists allowed origins; empty allows none.
	CORSOrigins []string `mapstructure:"cors_origins"`

	// EnablePprof mounts the pprof handlers under /debug/pprof.
	EnablePprof bool `mapstructure:"enable_pprof"`
}

// StorageDriver selects the durable persistence backend.
type StorageDriver string

const (
	// DriverMemory keeps everything in-process. Single-node only.
	DriverMemory StorageDriver = "memory"
	// DriverPostgres persists keys and counters in PostgreSQL.
	DriverPostgres StorageDriver = "postgres"
	// DriverRedis persists counters in Redis; keys stay in PostgreSQL
	// when configured, in memory otherwise.
	DriverRedis StorageDriver = "redis"
)

// StorageConfig selects the persistence backend.
type StorageConfig struct {
	Driver StorageDriver `mapstructure:"driver"`
}

// DatabaseConfig holds PostgreSQL settings.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxConns        int           `mapstructure:"max_conns"`
	MinConns        int           `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
	ConnTimeout     time.Duration `mapstructure:"conn_timeout"`
}

// RedisConfig holds Redis settings.
type RedisConfig struct {
	Mode           string        `mapstructure:"mode"`
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	Password       string        `mapstructure:"password"`
	DB             int           `mapstructure:"db"`
	SentinelAddrs  []string      `mapstructure:"sentinel_addrs"`
	SentinelMaster string        `mapstructure:"sentinel_master"`
	PoolSize       int           `mapstructure:"pool_size"`
	MinIdleConns   int           `mapstructure:"min_idle_conns"`
	DialTimeout    time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
}

// KafkaConfig holds the audit producer settings. No brokers means audit
// events go to the structured log instead.
type KafkaConfig struct {
	Brokers      []string      `mapstructure:"brokers"`
	Topic        string        `mapstructure:"topic"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	BatchSize    int           `mapstructure:"batch_size"`
	BatchTimeout time.Duration `mapstructure:"batch_timeout"`
	RequiredAcks int           `mapstructure:"required_acks"`
}

// TierConfig is one named rate limit tier.
type TierConfig struct {
	Window      time.Duration `mapstructure:"window"`
	MaxRequests int           `mapstructure:"max_requests"`
}

// RateLimitConfig holds limiter settings and the tier table.
type RateLimitConfig struct {
	// KeyPrefix namespaces rate-limit keys in the shared store.
	KeyPrefix string `mapstructure:"key_prefix"`

	// SweepProbability is the chance an admitted request triggers an
	// expired-counter sweep. Zero disables sweeping.
	SweepProbability float64 `mapstructure:"sweep_probability"`

	// StoreTimeout bounds each durable store round trip.
	StoreTimeout time.Duration `mapstructure:"store_timeout"`

	Public        TierConfig `mapstructure:"public"`
	Authenticated TierConfig `mapstructure:"authenticated"`
	Premium       TierConfig `mapstructure:"premium"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// TracingConfig holds OpenTelemetry settings.
type TracingConfig struct {
	Enabled        bool    `mapstructure:"enabled"`
	JaegerEndpoint string  `mapstructure:"jaeger_endpoint"`
	ServiceName    string  `mapstructure:"service_name"`
	Environment    string  `mapstructure:"environment"`
	SamplingRate   float64 `mapstructure:"sampling_rate"`
}

// Validate checks cross-field consistency. Defaults are applied by the
// loader, so only genuinely broken values fail here.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case DriverMemory, DriverPostgres, DriverRedis:
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}

	for name, tier := range map[string]TierConfig{
		"public":        c.RateLimit.Public,
		"authenticated": c.RateLimit.Authenticated,
		"premium":       c.RateLimit.Premium,
	} {
		if tier.Window <= 0 || tier.MaxRequests <= 0 {
			return fmt.Errorf("rate limit tier %q must have a positive window and budget", name)
		}
	}

	if c.RateLimit.SweepProbability < 0 || c.RateLimit.SweepProbability > 1 {
		return fmt.Errorf("sweep probability must be in [0, 1], got %g", c.RateLimit.SweepProbability)
	}
	return nil
}

// applyDefaults fills unset fields before validation.
func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 15 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 15 * time.Second
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = DriverMemory
	}
	if c.RateLimit.KeyPrefix == "" {
		c.RateLimit.KeyPrefix = "rl"
	}
	if c.RateLimit.SweepProbability == 0 {
		c.RateLimit.SweepProbability = constants.DefaultSweepProbability
	}
	if c.RateLimit.StoreTimeout == 0 {
		c.RateLimit.StoreTimeout = constants.DefaultStoreTimeout
	}
	if c.RateLimit.Public.Window == 0 {
		c.RateLimit.Public = TierConfig{
			Window:      constants.DefaultWindow,
			MaxRequests: constants.PublicTierMaxRequests,
		}
	}
	if c.RateLimit.Authenticated.Window == 0 {
		c.RateLimit.Authenticated = TierConfig{
			Window:      constants.DefaultWindow,
			MaxRequests: constants.AuthenticatedTierMaxRequests,
		}
	}
	if c.RateLimit.Premium.Window == 0 {
		c.RateLimit.Premium = TierConfig{
			Window:      constants.DefaultWindow,
			MaxRequests: constants.PremiumTierMaxRequests,
		}
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	if c.Tracing.SamplingRate == 0 {
		c.Tracing.SamplingRate = 0.1
	}
}
