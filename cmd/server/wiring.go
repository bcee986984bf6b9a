package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"screener/internal/evaluation"
	"screener/internal/evaluation/cache"
	"screener/internal/evaluation/store"
	"screener/internal/platform/config"
	"screener/internal/platform/database"
	"screener/internal/platform/kafka"
	platformredis "screener/internal/platform/redis"
	"screener/pkg/platform/audit"
	"screener/pkg/platform/audit/outbox"
	auditmemory "screener/pkg/platform/audit/store/memory"
	auditpostgres "screener/pkg/platform/audit/store/postgres"
	"screener/pkg/platform/circuit"
)

const (
	auditMigrationsTable = "audit_schema_migrations"
	cacheBreakerCooldown = 30 * time.Second
)

type recordStoreDeps struct {
	store evaluation.RecordStore
	ping  func(context.Context) error
	close func()
}

// openRecordStore selects the backend named by STORE_BACKEND and applies its
// migrations.
func openRecordStore(ctx context.Context, cfg config.Server, log *slog.Logger) (*recordStoreDeps, error) {
	switch cfg.Storage.Backend {
	case config.BackendSQLite:
		if err := database.Migrate(store.Migrations, store.SQLiteMigrationsDir,
			database.SQLiteTarget(cfg.Storage.SQLitePath), log); err != nil {
			return nil, err
		}
		db, err := database.OpenSQLite(ctx, cfg.Storage.SQLitePath)
		if err != nil {
			return nil, err
		}
		s := store.NewSQLite(db)
		return &recordStoreDeps{store: s, ping: s.Ping, close: func() { _ = db.Close() }}, nil

	case config.BackendPostgres:
		if err := database.Migrate(store.Migrations, store.PostgresMigrationsDir,
			database.PgxTarget(cfg.Storage.DatabaseURL, store.MigrationsTable), log); err != nil {
			return nil, err
		}
		pool, err := database.Connect(ctx, cfg.Storage.DatabaseURL)
		if err != nil {
			return nil, err
		}
		s := store.NewPostgres(pool)
		return &recordStoreDeps{store: s, ping: s.Ping, close: pool.Close}, nil

	default:
		log.Warn("using in-memory record store; records are lost on restart")
		s := store.NewInMemory()
		return &recordStoreDeps{store: s, ping: s.Ping, close: func() {}}, nil
	}
}

// openFingerprintCache returns a Redis cache guarded by a circuit breaker
// when REDIS_URL is set, otherwise a process-local LRU.
func openFingerprintCache(ctx context.Context, cfg config.Server, log *slog.Logger) (evaluation.FingerprintCache, func(), error) {
	local := cache.NewLRU(cfg.Cache.Size, cfg.Cache.TTL)

	client, err := platformredis.New(ctx, cfg.Redis)
	if err != nil {
		return nil, nil, err
	}
	if client == nil {
		return local, func() {}, nil
	}

	shared := cache.NewRedis(client.Client,
		cache.WithKeyPrefix(cfg.Redis.KeyPrefix),
		cache.WithTTL(cfg.Cache.TTL),
	)
	breaker := circuit.New("fingerprint-cache", circuit.WithCooldown(cacheBreakerCooldown))
	return cache.NewGuarded(shared, local, breaker, log), func() { _ = client.Close() }, nil
}

type auditDeps struct {
	store audit.Store
	relay *outbox.Relay
	ping  func(context.Context) error
	close func()
}

// openAudit writes compliance events to the Postgres outbox when
// AUDIT_DATABASE_URL is set and relays them to Kafka when brokers are
// configured. Without a database, events stay in memory.
func openAudit(ctx context.Context, cfg config.Server, log *slog.Logger) (*auditDeps, error) {
	if cfg.Audit.DatabaseURL == "" {
		log.Warn("audit events kept in memory; only the most recent are retained",
			"capacity", auditmemory.DefaultCapacity,
		)
		return &auditDeps{store: auditmemory.NewInMemoryStore(), close: func() {}}, nil
	}

	if err := database.Migrate(auditpostgres.Migrations, "migrations",
		database.PostgresTarget(cfg.Audit.DatabaseURL, auditMigrationsTable), log); err != nil {
		return nil, err
	}
	db, err := database.OpenPostgres(ctx, cfg.Audit.DatabaseURL)
	if err != nil {
		return nil, err
	}
	outboxStore := auditpostgres.New(db)
	deps := &auditDeps{
		store: outboxStore,
		ping:  db.PingContext,
		close: func() { _ = db.Close() },
	}
	if !cfg.RelayEnabled() {
		log.Warn("audit outbox has no relay configured; events accumulate until KAFKA_BROKERS is set")
		return deps, nil
	}

	producer, err := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic, log)
	if err != nil {
		deps.close()
		return nil, err
	}
	if err := producer.Ping(ctx); err != nil {
		producer.Close()
		deps.close()
		return nil, fmt.Errorf("reach kafka brokers: %w", err)
	}
	if err := producer.EnsureTopic(ctx, 1, 1); err != nil {
		producer.Close()
		deps.close()
		return nil, fmt.Errorf("ensure topic %s: %w", cfg.Kafka.Topic, err)
	}

	deps.relay = outbox.NewRelay(outboxStore, producer,
		outbox.WithInterval(cfg.Audit.PollInterval),
		outbox.WithBatchSize(cfg.Audit.BatchSize),
		outbox.WithLogger(log),
		outbox.WithMetrics(outbox.NewMetrics()),
	)
	closeDB := deps.close
	deps.close = func() {
		producer.Close()
		closeDB()
	}
	return deps, nil
}
