// Package postgres implements the durable persistence layer on PostgreSQL:
// API key records and the shared window counter store, using the pgx driver
// with connection pooling.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gateward/gateward/pkg/logger"
)

// Config holds PostgreSQL connection parameters.
type Config struct {
	Host     string `json:"host" yaml:"host"`
	Port     int    `json:"port" yaml:"port"`
	User     string `json:"user" yaml:"user"`
	Password string `json:"password" yaml:"password"`
	Database string `json:"database" yaml:"database"`
	SSLMode  string `json:"ssl_mode" yaml:"ssl_mode"`

	MaxConns        int           `json:"max_conns" yaml:"max_conns"`
	MinConns        int           `json:"min_conns" yaml:"min_conns"`
	MaxConnLifetime time.Duration `json:"max_conn_lifetime" yaml:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `json:"max_conn_idle_time" yaml:"max_conn_idle_time"`
	ConnTimeout     time.Duration `json:"conn_timeout" yaml:"conn_timeout"`
}

// DBConnection manages the pgx connection pool lifecycle.
type DBConnection struct {
	pool *pgxpool.Pool
	log  logger.Logger
}

// NewDBConnection builds the pool from config and verifies connectivity.
func NewDBConnection(ctx context.Context, cfg *Config, log logger.Logger) (*DBConnection, error) {
	if cfg == nil {
		return nil, fmt.Errorf("postgres config is required")
	}
	cfg.setDefaults()

	connString := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	poolConfig, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}
	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	connectCtx, cancel := context.WithTimeout(ctx, cfg.ConnTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create postgres pool: %w", err)
	}

	db := &DBConnection{pool: pool, log: log.WithComponent("postgres")}
	if err := db.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	db.log.Info(ctx, "postgres connection pool initialized",
		logger.String("host", cfg.Host),
		logger.String("database", cfg.Database),
		logger.Int("max_conns", cfg.MaxConns),
	)
	return db, nil
}

func (c *Config) setDefaults() {
	if c.Host == "" {
		c.Host = "localhost"
	}
	if c.Port == 0 {
		c.Port = 5432
	}
	if c.SSLMode == "" {
		c.SSLMode = "disable"
	}
	if c.MaxConns == 0 {
		c.MaxConns = 10
	}
	if c.MinConns == 0 {
		c.MinConns = 2
	}
	if c.MaxConnLifetime == 0 {
		c.MaxConnLifetime = time.Hour
	}
	if c.MaxConnIdleTime == 0 {
		c.MaxConnIdleTime = 30 * time.Minute
	}
	if c.ConnTimeout == 0 {
		c.ConnTimeout = 10 * time.Second
	}
}

// Pool returns the underlying pool for repository implementations.
func (db *DBConnection) Pool() *pgxpool.Pool {
	return db.pool
}

// Ping verifies database connectivity.
func (db *DBConnection) Ping(ctx context.Context) error {
	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.pool.Ping(pctx); err != nil {
		return fmt.Errorf("postgres ping failed: %w", err)
	}
	return nil
}

// EnsureSchema creates the tables and indexes this package relies on.
// Idempotent; meant for startup, not as a general migration framework.
func (db *DBConnection) EnsureSchema(ctx context.Context) error {
	if _, err := db.pool.Exec(ctx, schemaDDL); err != nil {
		return fmt.Errorf("ensure postgres schema: %w", err)
	}
	db.log.Info(ctx, "postgres schema ensured")
	return nil
}

// Close drains and closes the pool.
func (db *DBConnection) Close() {
	db.pool.Close()
}
