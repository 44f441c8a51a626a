// Package redis provides the Redis-backed durable counter store and its
// connection management.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/gateward/gateward/pkg/logger"
)

// ConnectionMode selects the Redis deployment topology.
type ConnectionMode string

const (
	// ModeStandalone is a single Redis instance.
	ModeStandalone ConnectionMode = "standalone"
	// ModeSentinel is sentinel-managed failover.
	ModeSentinel ConnectionMode = "sentinel"
)

// Config holds Redis connection parameters.
type Config struct {
	Mode     ConnectionMode `json:"mode" yaml:"mode"`
	Host     string         `json:"host" yaml:"host"`
	Port     int            `json:"port" yaml:"port"`
	Password string         `json:"password" yaml:"password"`
	DB       int            `json:"db" yaml:"db"`

	SentinelAddrs  []string `json:"sentinel_addrs" yaml:"sentinel_addrs"`
	SentinelMaster string   `json:"sentinel_master" yaml:"sentinel_master"`

	PoolSize     int           `json:"pool_size" yaml:"pool_size"`
	MinIdleConns int           `json:"min_idle_conns" yaml:"min_idle_conns"`
	DialTimeout  time.Duration `json:"dial_timeout" yaml:"dial_timeout"`
	ReadTimeout  time.Duration `json:"read_timeout" yaml:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout" yaml:"write_timeout"`
}

// Connection manages the Redis client lifecycle.
type Connection struct {
	config *Config
	client redis.UniversalClient
	log    logger.Logger
}

// NewConnection creates a connection manager; Connect must be called before use.
func NewConnection(config *Config, log logger.Logger) *Connection {
	return &Connection{config: config, log: log.WithComponent("redis")}
}

// Connect establishes the client for the configured mode and verifies
// connectivity with a ping.
func (c *Connection) Connect(ctx context.Context) error {
	c.setDefaults()

	switch c.config.Mode {
	case ModeStandalone:
		c.client = redis.NewClient(&redis.Options{
			Addr:         fmt.Sprintf("%s:%d", c.config.Host, c.config.Port),
			Password:     c.config.Password,
			DB:           c.config.DB,
			PoolSize:     c.config.PoolSize,
			MinIdleConns: c.config.MinIdleConns,
			DialTimeout:  c.config.DialTimeout,
			ReadTimeout:  c.config.ReadTimeout,
			WriteTimeout: c.config.WriteTimeout,
		})
	case ModeSentinel:
		if len(c.config.SentinelAddrs) == 0 || c.config.SentinelMaster == "" {
			return fmt.Errorf("sentinel mode requires addresses and a master name")
		}
		c.client = redis.NewFailoverClient(&redis.FailoverOptions{
			MasterName:    c.config.SentinelMaster,
			SentinelAddrs: c.config.SentinelAddrs,
			Password:      c.config.Password,
			DB:            c.config.DB,
			PoolSize:      c.config.PoolSize,
			MinIdleConns:  c.config.MinIdleConns,
			DialTimeout:   c.config.DialTimeout,
			ReadTimeout:   c.config.ReadTimeout,
			WriteTimeout:  c.config.WriteTimeout,
		})
	default:
		return fmt.Errorf("unsupported redis mode: %q", c.config.Mode)
	}

	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := c.client.Ping(pctx).Err(); err != nil {
		_ = c.client.Close()
		c.client = nil
		return fmt.Errorf("redis ping failed: %w", err)
	}

	c.log.Info(ctx, "redis connection established",
		logger.String("mode", string(c.config.Mode)),
		logger.Int("pool_size", c.config.PoolSize),
	)
	return nil
}

func (c *Connection) setDefaults() {
	if c.config.Mode == "" {
		c.config.Mode = ModeStandalone
	}
	if c.config.Host == "" {
		c.config.Host = "localhost"
	}
	if c.config.Port == 0 {
		c.config.Port = 6379
	}
	if c.config.PoolSize == 0 {
		c.config.PoolSize = 10
	}
	if c.config.MinIdleConns == 0 {
		c.config.MinIdleConns = 2
	}
	if c.config.DialTimeout == 0 {
		c.config.DialTimeout = 5 * time.Second
	}
	if c.config.ReadTimeout == 0 {
		c.config.ReadTimeout = 3 * time.Second
	}
	if c.config.WriteTimeout == 0 {
		c.config.WriteTimeout = 3 * time.Second
	}
}

// Client returns the underlying client, or nil before Connect.
func (c *Connection) Client() redis.UniversalClient {
	return c.client
}

// Ping checks server connectivity.
func (c *Connection) Ping(ctx context.Context) error {
	if c.client == nil {
		return fmt.Errorf("redis connection not initialized")
	}
	return c.client.Ping(ctx).Err()
}

// Close releases the client and its pool.
func (c *Connection) Close() error {
	if c.client == nil {
		return nil
	}
	err := c.client.Close()
	c.client = nil
	return err
}
