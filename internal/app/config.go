package app

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

// StorageDriver выбирает реализацию репозиториев.
type StorageDriver string

const (
	StorageDriverMemory   StorageDriver = "memory"
	StorageDriverPostgres StorageDriver = "postgres"
)

// Config описывает настройки запуска сервиса.
type Config struct {
	HTTPAddr    string
	GRPCAddr    string
	MetricsAddr string

	StorageDriver       StorageDriver
	PostgresDSN         string
	PostgresAutoMigrate bool

	// RedisAddr включает кэш клиентов; пустое значение отключает его.
	RedisAddr        string
	CustomerCacheTTL time.Duration

	LogLevel    log.Level
	CORSOrigins []string
}

// DefaultConfig возвращает настройки для локального запуска без внешних зависимостей.
func DefaultConfig() Config {
	return Config{
		HTTPAddr:            ":3333",
		GRPCAddr:            ":50051",
		MetricsAddr:         ":9090",
		StorageDriver:       StorageDriverMemory,
		PostgresAutoMigrate: true,
		CustomerCacheTTL:    5 * time.Minute,
		LogLevel:            log.InfoLevel,
		CORSOrigins:         []string{"*"},
	}
}

// LoadConfigFromEnv читает .env (если он есть) и переменные окружения ORDERS_*.
// Уже заданные переменные окружения имеют приоритет над .env.
func LoadConfigFromEnv() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return LoadConfig(os.LookupEnv)
}

// LoadConfig накладывает значения из lookup на DefaultConfig и проверяет результат.
func LoadConfig(lookup func(string) (string, bool)) (Config, error) {
	cfg := DefaultConfig()

	get := func(key string) (string, bool) {
		v, ok := lookup(key)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}

	if v, ok := get("ORDERS_HTTP_ADDR"); ok {
		cfg.HTTPAddr = v
	}
	if v, ok := get("ORDERS_GRPC_ADDR"); ok {
		cfg.GRPCAddr = v
	}
	if v, ok := get("ORDERS_METRICS_ADDR"); ok {
		cfg.MetricsAddr = v
	}
	if v, ok := get("ORDERS_STORAGE_DRIVER"); ok {
		cfg.StorageDriver = StorageDriver(strings.ToLower(v))
	}
	if v, ok := get("ORDERS_POSTGRES_DSN"); ok {
		cfg.PostgresDSN = v
	}
	if v, ok := get("ORDERS_POSTGRES_AUTO_MIGRATE"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("ORDERS_POSTGRES_AUTO_MIGRATE: %w", err)
		}
		cfg.PostgresAutoMigrate = b
	}
	if v, ok := get("ORDERS_REDIS_ADDR"); ok {
		cfg.RedisAddr = v
	}
	if v, ok := get("ORDERS_CUSTOMER_CACHE_TTL"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("ORDERS_CUSTOMER_CACHE_TTL: %w", err)
		}
		cfg.CustomerCacheTTL = d
	}
	if v, ok := get("ORDERS_LOG_LEVEL"); ok {
		level, err := log.ParseLevel(v)
		if err != nil {
			return Config{}, fmt.Errorf("ORDERS_LOG_LEVEL: %w", err)
		}
		cfg.LogLevel = level
	}
	if v, ok := get("ORDERS_CORS_ORIGINS"); ok {
		cfg.CORSOrigins = splitList(v)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate проверяет согласованность настроек.
func (c Config) Validate() error {
	switch c.StorageDriver {
	case StorageDriverMemory:
	case StorageDriverPostgres:
		if c.PostgresDSN == "" {
			return errors.New("ORDERS_POSTGRES_DSN is required for postgres storage")
		}
	default:
		return fmt.Errorf("unsupported storage driver: %q", c.StorageDriver)
	}
	if c.CustomerCacheTTL <= 0 {
		return fmt.Errorf("customer cache ttl must be positive, got %s", c.CustomerCacheTTL)
	}
	return nil
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
