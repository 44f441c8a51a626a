// Command server runs the gateward admission gateway: a fixed-window rate
// limiter and API key manager in front of a data API.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gateward/gateward/internal/application/service"
	"github.com/gateward/gateward/internal/config"
	"github.com/gateward/gateward/internal/domain/models"
	"github.com/gateward/gateward/internal/domain/repository"
	domainservice "github.com/gateward/gateward/internal/domain/service"
	"github.com/gateward/gateward/internal/infrastructure/audit"
	"github.com/gateward/gateward/internal/infrastructure/monitoring"
	"github.com/gateward/gateward/internal/infrastructure/persistence/memory"
	"github.com/gateward/gateward/internal/infrastructure/persistence/postgres"
	redisstore "github.com/gateward/gateward/internal/infrastructure/persistence/redis"
	"github.com/gateward/gateward/internal/infrastructure/ratelimit"
	"github.com/gateward/gateward/internal/interfaces/http/handlers"
	"github.com/gateward/gateward/internal/interfaces/http/middleware"
	"github.com/gateward/gateward/internal/interfaces/http/router"
	"github.com/gateward/gateward/pkg/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "gateward: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	cfg, v, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := monitoring.NewZapLogger(&monitoring.LogConfig{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer monitoring.Sync(log)

	log.Info(ctx, "starting gateward",
		logger.String("storage_driver", string(cfg.Storage.Driver)),
		logger.Int("port", cfg.Server.Port),
	)

	tracing, err := monitoring.NewTracingManager(&monitoring.TracingConfig{
		Enabled:        cfg.Tracing.Enabled,
		JaegerEndpoint: cfg.Tracing.JaegerEndpoint,
		ServiceName:    cfg.Tracing.ServiceName,
		Environment:    cfg.Tracing.Environment,
		SamplingRate:   cfg.Tracing.SamplingRate,
	}, log)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracing.Shutdown(shutdownCtx); err != nil {
			log.Warn(shutdownCtx, "tracing shutdown failed", logger.Err(err))
		}
	}()

	storage, err := buildStorage(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer storage.close(ctx, log)

	auditSink := buildAuditSink(cfg, log)
	defer func() {
		if err := auditSink.Close(); err != nil {
			log.Warn(ctx, "audit sink close failed", logger.Err(err))
		}
	}()

	metrics := monitoring.NewMetrics()

	keys := domainservice.NewAPIKeyService(storage.keyRepo, auditSink, log)
	limiter := ratelimit.NewFixedWindowLimiter(
		ratelimit.NewWindowCache(),
		storage.counterStore,
		log,
		ratelimit.WithSweepProbability(cfg.RateLimit.SweepProbability),
		ratelimit.WithStoreTimeout(cfg.RateLimit.StoreTimeout),
		ratelimit.WithStoreMetrics(metrics),
	)

	tiers := service.Tiers{
		Public:        policy(cfg.RateLimit.Public),
		Authenticated: policy(cfg.RateLimit.Authenticated),
		Premium:       policy(cfg.RateLimit.Premium),
	}
	admission := service.NewAdmissionService(
		keys, limiter, domainservice.NewPermissionEvaluator(), metrics, log, tiers,
	)

	keyHandler := handlers.NewAPIKeyHandler(keys, tiers, metrics, log)
	healthHandler := handlers.NewHealthHandler(log, storage.pingers...)
	dataHandler := handlers.NewDataHandler()

	r := router.New(cfg, log, keyHandler, healthHandler,
		middleware.Admission(admission, cfg.RateLimit.KeyPrefix, log),
		tracing.Tracer())
	r.SetupRoutes()
	r.DataGroup().GET("/data", dataHandler.Get)

	config.Watch(v, log, func(next *config.Config) {
		// Tier and server changes need a restart; only log the reload.
		log.Info(ctx, "configuration reloaded",
			logger.String("storage_driver", string(next.Storage.Driver)),
		)
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- r.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case sig := <-quit:
		log.Info(ctx, "shutting down", logger.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := r.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	log.Info(ctx, "gateward stopped")
	return nil
}

// storageSet bundles the driver-specific repositories plus their lifecycle
// hooks.
type storageSet struct {
	keyRepo      repository.APIKeyRepository
	counterStore repository.CounterStore
	pingers      []handlers.Pinger
	closers      []func() error
}

func (s *storageSet) close(ctx context.Context, log logger.Logger) {
	for _, c := range s.closers {
		if err := c(); err != nil {
			log.Warn(ctx, "storage close failed", logger.Err(err))
		}
	}
}

func buildStorage(ctx context.Context, cfg *config.Config, log logger.Logger) (*storageSet, error) {
	switch cfg.Storage.Driver {
	case config.DriverMemory:
		return &storageSet{
			keyRepo:      memory.NewAPIKeyRepo(),
			counterStore: memory.NewCounterStore(),
		}, nil

	case config.DriverPostgres:
		db, err := postgres.NewDBConnection(ctx, pgConfig(cfg), log)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		if err := db.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
		return &storageSet{
			keyRepo:      postgres.NewAPIKeyRepository(db, log),
			counterStore: postgres.NewCounterStore(db, log),
			pingers:      []handlers.Pinger{{Name: "postgres", Ping: db.Ping}},
			closers:      []func() error{func() error { db.Close(); return nil }},
		}, nil

	case config.DriverRedis:
		conn := redisstore.NewConnection(redisConfig(cfg), log)
		if err := conn.Connect(ctx); err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		set := &storageSet{
			counterStore: redisstore.NewCounterStore(conn.Client(), log),
			pingers:      []handlers.Pinger{{Name: "redis", Ping: conn.Ping}},
			closers:      []func() error{conn.Close},
		}

		// Redis carries the counters; keys live in PostgreSQL when the
		// database is configured, in memory otherwise.
		if cfg.Database.Host != "" {
			db, err := postgres.NewDBConnection(ctx, pgConfig(cfg), log)
			if err != nil {
				conn.Close()
				return nil, fmt.Errorf("connect postgres: %w", err)
			}
			if err := db.EnsureSchema(ctx); err != nil {
				conn.Close()
				db.Close()
				return nil, fmt.Errorf("ensure schema: %w", err)
			}
			set.keyRepo = postgres.NewAPIKeyRepository(db, log)
			set.pingers = append(set.pingers, handlers.Pinger{Name: "postgres", Ping: db.Ping})
			set.closers = append(set.closers, func() error { db.Close(); return nil })
		} else {
			set.keyRepo = memory.NewAPIKeyRepo()
		}
		return set, nil
	}
	return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
}

func buildAuditSink(cfg *config.Config, log logger.Logger) domainservice.AuditService {
	if len(cfg.Kafka.Brokers) == 0 {
		return audit.NewLogSink(log)
	}
	return audit.NewKafkaProducer(audit.KafkaConfig{
		Brokers:      cfg.Kafka.Brokers,
		Topic:        cfg.Kafka.Topic,
		WriteTimeout: cfg.Kafka.WriteTimeout,
		BatchSize:    cfg.Kafka.BatchSize,
		BatchTimeout: cfg.Kafka.BatchTimeout,
		RequiredAcks: cfg.Kafka.RequiredAcks,
	}, log)
}

func policy(tier config.TierConfig) models.RateLimitPolicy {
	return models.RateLimitPolicy{Window: tier.Window, MaxRequests: tier.MaxRequests}
}

func pgConfig(cfg *config.Config) *postgres.Config {
	return &postgres.Config{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		Database:        cfg.Database.Database,
		SSLMode:         cfg.Database.SSLMode,
		MaxConns:        cfg.Database.MaxConns,
		MinConns:        cfg.Database.MinConns,
		MaxConnLifetime: cfg.Database.MaxConnLifetime,
		MaxConnIdleTime: cfg.Database.MaxConnIdleTime,
		ConnTimeout:     cfg.Database.ConnTimeout,
	}
}

func redisConfig(cfg *config.Config) *redisstore.Config {
	return &redisstore.Config{
		Mode:           redisstore.ConnectionMode(cfg.Redis.Mode),
		Host:           cfg.Redis.Host,
		Port:           cfg.Redis.Port,
		Password:       cfg.Redis.Password,
		DB:             cfg.Redis.DB,
		SentinelAddrs:  cfg.Redis.SentinelAddrs,
		SentinelMaster: cfg.Redis.SentinelMaster,
		PoolSize:       cfg.Redis.PoolSize,
		MinIdleConns:   cfg.Redis.MinIdleConns,
		DialTimeout:    cfg.Redis.DialTimeout,
		ReadTimeout:    cfg.Redis.ReadTimeout,
		WriteTimeout:   cfg.Redis.WriteTimeout,
	}
}
