package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	liststr "screener/pkg/platform/strings"
)

// Store backends accepted by STORE_BACKEND.
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// Server captures process level configuration.
type Server struct {
	Addr            string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	Storage StorageConfig
	Upload  UploadConfig
	Cache   CacheConfig
	Redis   RedisConfig
	Audit   AuditConfig
	Kafka   KafkaConfig
}

// StorageConfig selects and locates the record store.
type StorageConfig struct {
	Backend     string
	SQLitePath  string
	DatabaseURL string
}

// UploadConfig bounds and locates attachment storage.
type UploadConfig struct {
	Dir      string
	MaxBytes int64
}

// CacheConfig sizes the in-process fingerprint cache used when Redis is not
// configured.
type CacheConfig struct {
	Size int
	TTL  time.Duration
}

// RedisConfig configures the shared fingerprint cache. An empty URL disables it.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	KeyPrefix    string
}

// AuditConfig locates the audit outbox. An empty DatabaseURL keeps audit
// events in memory.
type AuditConfig struct {
	DatabaseURL  string
	PollInterval time.Duration
	BatchSize    int
}

// KafkaConfig configures the outbox relay target. No brokers disables the relay.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() (Server, error) {
	var errs []error
	cfg := Server{
		Addr:      getEnvDefault("SCREENER_ADDR", ":8080"),
		LogLevel:  getEnvDefault("LOG_LEVEL", "info"),
		LogFormat: getEnvDefault("LOG_FORMAT", "json"),
		Storage: StorageConfig{
			Backend:     strings.ToLower(getEnvDefault("STORE_BACKEND", BackendMemory)),
			SQLitePath:  getEnvDefault("SQLITE_PATH", "screener.db"),
			DatabaseURL: os.Getenv("DATABASE_URL"),
		},
		Upload: UploadConfig{
			Dir: getEnvDefault("UPLOAD_DIR", "uploads"),
		},
		Redis: RedisConfig{
			URL:       os.Getenv("REDIS_URL"),
			KeyPrefix: getEnvDefault("REDIS_KEY_PREFIX", "screener:fp:"),
		},
		Audit: AuditConfig{
			DatabaseURL: os.Getenv("AUDIT_DATABASE_URL"),
		},
		Kafka: KafkaConfig{
			Brokers: liststr.SplitList(os.Getenv("KAFKA_BROKERS"), ","),
			Topic:   getEnvDefault("KAFKA_TOPIC", "submission.decisions"),
		},
	}

	cfg.ShutdownTimeout = getEnvDuration(&errs, "SHUTDOWN_TIMEOUT", 10*time.Second)
	cfg.Upload.MaxBytes = int64(getEnvInt(&errs, "UPLOAD_MAX_BYTES", 2<<20))
	cfg.Cache.Size = getEnvInt(&errs, "FINGERPRINT_CACHE_SIZE", 10000)
	cfg.Cache.TTL = getEnvDuration(&errs, "FINGERPRINT_CACHE_TTL", time.Hour)
	cfg.Redis.PoolSize = getEnvInt(&errs, "REDIS_POOL_SIZE", 10)
	cfg.Redis.MinIdleConns = getEnvInt(&errs, "REDIS_MIN_IDLE_CONNS", 2)
	cfg.Redis.DialTimeout = getEnvDuration(&errs, "REDIS_DIAL_TIMEOUT", 5*time.Second)
	cfg.Redis.ReadTimeout = getEnvDuration(&errs, "REDIS_READ_TIMEOUT", time.Second)
	cfg.Redis.WriteTimeout = getEnvDuration(&errs, "REDIS_WRITE_TIMEOUT", time.Second)
	cfg.Audit.PollInterval = getEnvDuration(&errs, "OUTBOX_POLL_INTERVAL", 2*time.Second)
	cfg.Audit.BatchSize = getEnvInt(&errs, "OUTBOX_BATCH_SIZE", 100)

	if err := errors.Join(errs...); err != nil {
		return Server{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Server{}, err
	}
	return cfg, nil
}

// Validate rejects combinations the process cannot start with.
func (s Server) Validate() error {
	var errs []error
	switch s.Storage.Backend {
	case BackendMemory:
	case BackendSQLite:
		if s.Storage.SQLitePath == "" {
			errs = append(errs, fmt.Errorf("SQLITE_PATH is required for the sqlite backend"))
		}
	case BackendPostgres:
		if s.Storage.DatabaseURL == "" {
			errs = append(errs, fmt.Errorf("DATABASE_URL is required for the postgres backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("STORE_BACKEND: unknown backend %q (memory, sqlite, postgres)", s.Storage.Backend))
	}

	switch s.LogFormat {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("LOG_FORMAT: unknown format %q (json, text)", s.LogFormat))
	}
	if s.Upload.MaxBytes <= 0 {
		errs = append(errs, fmt.Errorf("UPLOAD_MAX_BYTES must be positive"))
	}
	if s.Upload.Dir == "" {
		errs = append(errs, fmt.Errorf("UPLOAD_DIR is required"))
	}
	if s.Cache.Size <= 0 {
		errs = append(errs, fmt.Errorf("FINGERPRINT_CACHE_SIZE must be positive"))
	}
	if s.Audit.BatchSize <= 0 {
		errs = append(errs, fmt.Errorf("OUTBOX_BATCH_SIZE must be positive"))
	}
	if s.Audit.PollInterval <= 0 {
		errs = append(errs, fmt.Errorf("OUTBOX_POLL_INTERVAL must be positive"))
	}
	if len(s.Kafka.Brokers) > 0 && s.Kafka.Topic == "" {
		errs = append(errs, fmt.Errorf("KAFKA_TOPIC is required when KAFKA_BROKERS is set"))
	}
	return errors.Join(errs...)
}

// RelayEnabled reports whether the outbox relay should run.
func (s Server) RelayEnabled() bool {
	return s.Audit.DatabaseURL != "" && len(s.Kafka.Brokers) > 0
}

func getEnvDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(errs *[]error, key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: invalid integer %q", key, val))
		return defaultVal
	}
	return n
}

func getEnvDuration(errs *[]error, key string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: invalid duration %q (use Go format: 30s, 1h)", key, val))
		return defaultVal
	}
	return d
}
