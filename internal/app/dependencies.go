package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/orders/internal/domain"
	healthcheck "github.com/vladislavdragonenkov/orders/internal/health"
	"github.com/vladislavdragonenkov/orders/internal/metrics"
	"github.com/vladislavdragonenkov/orders/internal/service/orders"
	"github.com/vladislavdragonenkov/orders/internal/storage/cache"
	"github.com/vladislavdragonenkov/orders/internal/storage/memory"
	"github.com/vladislavdragonenkov/orders/internal/storage/postgres"
	"github.com/vladislavdragonenkov/orders/internal/version"
)

const redisPingTimeout = 2 * time.Second

// Dependencies — собранный граф зависимостей сервиса.
type Dependencies struct {
	Customers domain.CustomerRepository
	Products  domain.ProductRepository
	Orders    domain.OrderRepository
	Tx        domain.TxManager

	Service *orders.Service
	Health  *healthcheck.Handler

	closers []func() error
}

// Close освобождает подключения в обратном порядке открытия.
func (d *Dependencies) Close() error {
	var errs []error
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	d.closers = nil
	return errors.Join(errs...)
}

// initDependencies открывает хранилище и кэш согласно cfg и собирает сервис заказов.
func initDependencies(ctx context.Context, cfg Config, logger *log.Entry, m *metrics.OrderMetrics) (*Dependencies, error) {
	deps := &Dependencies{Health: healthcheck.NewHandler(version.Version())}

	switch cfg.StorageDriver {
	case StorageDriverMemory:
		store := memory.NewStore()
		deps.Customers, deps.Products, deps.Orders, deps.Tx = store.Customers(), store.Products(), store.Orders(), store
		logger.Info("используем in-memory хранилище")

	case StorageDriverPostgres:
		store, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		deps.closers = append(deps.closers, store.Close)

		if cfg.PostgresAutoMigrate {
			if err := store.MigrateUp(ctx, 0); err != nil {
				_ = deps.Close()
				return nil, fmt.Errorf("apply migrations: %w", err)
			}
			logger.Info("миграции PostgreSQL применены")
		}

		deps.Customers, deps.Products, deps.Orders, deps.Tx = store.Customers(), store.Products(), store.Orders(), store
		deps.Health.RegisterChecker("postgres", healthcheck.NewCriticalChecker("postgres", store.Ping))
		logger.Info("используем PostgreSQL хранилище")

	default:
		return nil, fmt.Errorf("unsupported storage driver: %q", cfg.StorageDriver)
	}

	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		deps.closers = append(deps.closers, client.Close)

		pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
		if err := client.Ping(pingCtx).Err(); err != nil {
			// Кэш необязателен: при недоступном Redis запросы идут напрямую в хранилище.
			logger.WithError(err).WithField("addr", cfg.RedisAddr).Warn("redis недоступен, кэш клиентов работает в режиме деградации")
		}
		cancel()

		deps.Customers = cache.NewCustomerCache(deps.Customers, client, cfg.CustomerCacheTTL, logger, m)
		deps.Health.RegisterChecker("redis", healthcheck.NewOptionalChecker("redis", func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		}))
		logger.WithField("addr", cfg.RedisAddr).Info("кэш клиентов в Redis включён")
	}

	deps.Service = orders.NewService(
		deps.Customers,
		deps.Products,
		deps.Orders,
		deps.Tx,
		logger.WithField("layer", "orders"),
		orders.WithMetrics(m),
	)

	return deps, nil
}
