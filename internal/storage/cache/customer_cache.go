// Package cache содержит Redis-кэш поверх репозиториев, данные которых не меняются после создания.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/vladislavdragonenkov/orders/internal/domain"
	"github.com/vladislavdragonenkov/orders/internal/metrics"
)

const (
	keyPrefix  = "orders:customer:"
	opTimeout  = 500 * time.Millisecond
	defaultTTL = 5 * time.Minute

	// loadTimeout ограничивает общую загрузку промаха, отвязанную от отмены вызывающих.
	loadTimeout = 5 * time.Second
)

// Результаты обращения к кэшу для метрики orders_customer_cache_total.
const (
	ResultHit   = "hit"
	ResultMiss  = "miss"
	ResultError = "error"
)

// CustomerCache — cache-aside декоратор CustomerRepository.
// Ошибки Redis не прерывают запрос: чтение уходит в next.
type CustomerCache struct {
	next    domain.CustomerRepository
	client  *redis.Client
	ttl     time.Duration
	group   singleflight.Group
	logger  *log.Entry
	metrics *metrics.OrderMetrics
}

// NewCustomerCache оборачивает next кэшем. ttl <= 0 заменяется значением по умолчанию.
func NewCustomerCache(next domain.CustomerRepository, client *redis.Client, ttl time.Duration, logger *log.Entry, m *metrics.OrderMetrics) *CustomerCache {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	if logger == nil {
		logger = log.New().WithField("component", "customer-cache")
	}
	return &CustomerCache{
		next:    next,
		client:  client,
		ttl:     ttl,
		logger:  logger.WithField("layer", "cache"),
		metrics: m,
	}
}

func key(id string) string {
	return keyPrefix + id
}

// cachedCustomer — JSON-представление клиента в Redis.
type cachedCustomer struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Create пишет в next; кэш заполняется при первом чтении.
func (c *CustomerCache) Create(ctx context.Context, customer domain.Customer) error {
	return c.next.Create(ctx, customer)
}

// FindByEmail не кэшируется.
func (c *CustomerCache) FindByEmail(ctx context.Context, email string) (domain.Customer, error) {
	return c.next.FindByEmail(ctx, email)
}

// FindByID читает клиента из Redis, при промахе загружает из next и сохраняет с TTL.
// Отсутствие клиента не кэшируется.
func (c *CustomerCache) FindByID(ctx context.Context, id string) (domain.Customer, error) {
	if customer, ok := c.get(ctx, id); ok {
		c.metrics.RecordCustomerCache(ResultHit)
		return customer, nil
	}
	c.metrics.RecordCustomerCache(ResultMiss)

	// Общая загрузка не прерывается отменой одного из ждущих; каждый ждёт только свой ctx.
	loadCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(id, func() (any, error) {
		opCtx, cancel := context.WithTimeout(loadCtx, loadTimeout)
		defer cancel()

		customer, err := c.next.FindByID(opCtx, id)
		if err != nil {
			return domain.Customer{}, err
		}
		c.set(opCtx, customer)
		return customer, nil
	})

	select {
	case <-ctx.Done():
		return domain.Customer{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return domain.Customer{}, res.Err
		}
		return res.Val.(domain.Customer), nil
	}
}

func (c *CustomerCache) get(ctx context.Context, id string) (domain.Customer, bool) {
	opCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	raw, err := c.client.Get(opCtx, key(id)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.metrics.RecordCustomerCache(ResultError)
			c.logger.WithError(err).WithField("customer_id", id).Warn("customer cache read failed")
		}
		return domain.Customer{}, false
	}

	var cached cachedCustomer
	if err := json.Unmarshal(raw, &cached); err != nil {
		c.metrics.RecordCustomerCache(ResultError)
		c.logger.WithError(err).WithField("customer_id", id).Warn("customer cache entry is corrupted")
		return domain.Customer{}, false
	}
	return domain.Customer(cached), true
}

func (c *CustomerCache) set(ctx context.Context, customer domain.Customer) {
	payload, err := json.Marshal(cachedCustomer(customer))
	if err != nil {
		c.logger.WithError(err).WithField("customer_id", customer.ID).Warn("customer cache encode failed")
		return
	}

	opCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if err := c.client.Set(opCtx, key(customer.ID), payload, c.ttl).Err(); err != nil {
		c.metrics.RecordCustomerCache(ResultError)
		c.logger.WithError(err).WithField("customer_id", customer.ID).Warn("customer cache write failed")
	}
}

var _ domain.CustomerRepository = (*CustomerCache)(nil)
