package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/orders/internal/domain"
	"github.com/vladislavdragonenkov/orders/internal/metrics"
)

// RequestedProduct — строка запроса: товар и желаемое количество.
type RequestedProduct struct {
	ID       string
	Quantity int32
}

// CreateOrderRequest — входные данные оформления заказа.
type CreateOrderRequest struct {
	CustomerID string
	Products   []RequestedProduct
}

// Service оформляет заказы поверх репозиториев клиентов, каталога и заказов.
type Service struct {
	customers domain.CustomerRepository
	products  domain.ProductRepository
	orders    domain.OrderRepository
	tx        domain.TxManager
	logger    *log.Entry
	metrics   *metrics.OrderMetrics
	now       func() time.Time
}

// Option настраивает Service.
type Option func(*Service)

// WithMetrics подключает Prometheus-метрики.
func WithMetrics(m *metrics.OrderMetrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithClock подменяет источник времени (для тестов).
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService конструирует сервис. Если tx == nil, записи выполняются без общей транзакции.
func NewService(
	customers domain.CustomerRepository,
	products domain.ProductRepository,
	orders domain.OrderRepository,
	tx domain.TxManager,
	logger *log.Entry,
	opts ...Option,
) *Service {
	if logger == nil {
		logger = log.New().WithField("component", "orders")
	}
	if tx == nil {
		tx = noTx{}
	}
	s := &Service{
		customers: customers,
		products:  products,
		orders:    orders,
		tx:        tx,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateOrder проверяет клиента, наличие товаров и остатки, сохраняет заказ и списывает остатки.
// Любая ошибка возвращается до записи в хранилище; запись заказа и списание остатков
// выполняются в одной транзакции TxManager.
func (s *Service) CreateOrder(ctx context.Context, req CreateOrderRequest) (domain.Order, error) {
	start := time.Now()
	s.metrics.RecordOrderStarted()
	defer func() { s.metrics.RecordOrderFinished(time.Since(start)) }()

	order, err := s.createOrder(ctx, req)
	if err != nil {
		s.metrics.RecordOrderRejected(domain.Kind(err))
		entry := s.logger.WithError(err).WithFields(log.Fields{
			"customer_id": req.CustomerID,
			"kind":        domain.Kind(err),
		})
		if domain.IsBusinessError(err) {
			entry.Info("order rejected")
		} else {
			entry.Error("failed to create order")
		}
		return domain.Order{}, err
	}

	s.metrics.RecordOrderCreated(len(order.Products))
	s.logger.WithFields(log.Fields{
		"order_id":    order.ID,
		"customer_id": order.Customer.ID,
		"items":       len(order.Products),
		"total":       order.Total().StringFixed(2),
	}).Info("order created")

	return order, nil
}

func (s *Service) createOrder(ctx context.Context, req CreateOrderRequest) (domain.Order, error) {
	ids, err := validateOrderRequest(req)
	if err != nil {
		return domain.Order{}, err
	}

	customer, err := s.customers.FindByID(ctx, req.CustomerID)
	if err != nil {
		if errors.Is(err, domain.ErrCustomerNotFound) {
			return domain.Order{}, domain.NewOrderError(domain.ErrInvalidCustomer, "invalid customer")
		}
		return domain.Order{}, fmt.Errorf("find customer: %w", err)
	}

	found, err := s.products.FindAllByIDs(ctx, ids)
	if err != nil {
		return domain.Order{}, fmt.Errorf("find products: %w", err)
	}
	if len(found) != len(ids) {
		return domain.Order{}, domain.NewOrderError(domain.ErrInvalidProducts, "invalid products")
	}

	requested := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		requested[id] = struct{}{}
	}
	catalog := make(map[string]domain.Product, len(found))
	for _, p := range found {
		catalog[p.ID] = p
	}
	// Повторная сверка с запросом: при корректном репозитории сюда не попадаем.
	for _, p := range found {
		if _, ok := requested[p.ID]; !ok {
			return domain.Order{}, &domain.OrderError{
				Kind:      domain.ErrProductNotFound,
				ProductID: p.ID,
				Message:   fmt.Sprintf("could not find product %s", p.ID),
			}
		}
	}
	for _, id := range ids {
		if _, ok := catalog[id]; !ok {
			return domain.Order{}, &domain.OrderError{
				Kind:      domain.ErrProductNotFound,
				ProductID: id,
				Message:   fmt.Sprintf("could not find product %s", id),
			}
		}
	}

	for _, line := range req.Products {
		if line.Quantity > catalog[line.ID].Quantity {
			return domain.Order{}, &domain.OrderError{
				Kind:      domain.ErrInsufficientStock,
				ProductID: line.ID,
				Quantity:  line.Quantity,
				Message:   fmt.Sprintf("the quantity %d is not available for %s", line.Quantity, line.ID),
			}
		}
	}

	draft := domain.OrderDraft{
		Customer: customer,
		Products: make([]domain.OrderProductDraft, 0, len(req.Products)),
	}
	for _, line := range req.Products {
		draft.Products = append(draft.Products, domain.OrderProductDraft{
			ProductID: line.ID,
			Quantity:  line.Quantity,
			Price:     catalog[line.ID].Price,
		})
	}

	var order domain.Order
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		created, err := s.orders.Create(ctx, draft)
		if err != nil {
			return fmt.Errorf("create order: %w", err)
		}

		updates := make([]domain.StockUpdate, 0, len(created.Products))
		for _, item := range created.Products {
			updates = append(updates, domain.StockUpdate{
				ID:       item.ProductID,
				Quantity: catalog[item.ProductID].Quantity - item.Quantity,
			})
		}
		if err := s.products.UpdateQuantities(ctx, updates); err != nil {
			return fmt.Errorf("update stock: %w", err)
		}

		order = created
		return nil
	})
	if err != nil {
		return domain.Order{}, err
	}

	return order, nil
}

// validateOrderRequest проверяет форму запроса и возвращает уникальные ID товаров в порядке запроса.
func validateOrderRequest(req CreateOrderRequest) ([]string, error) {
	if strings.TrimSpace(req.CustomerID) == "" {
		return nil, domain.NewOrderError(domain.ErrInvalidCustomer, "invalid customer")
	}
	if len(req.Products) == 0 {
		return nil, domain.NewOrderError(domain.ErrInvalidProducts, "order must contain at least one product")
	}

	ids := make([]string, 0, len(req.Products))
	seen := make(map[string]struct{}, len(req.Products))
	for idx, line := range req.Products {
		if strings.TrimSpace(line.ID) == "" {
			return nil, domain.NewOrderError(domain.ErrInvalidProducts, "products[%d].id is required", idx)
		}
		if line.Quantity <= 0 {
			return nil, &domain.OrderError{
				Kind:      domain.ErrInvalidRequest,
				ProductID: line.ID,
				Quantity:  line.Quantity,
				Message:   fmt.Sprintf("products[%d].quantity must be greater than zero", idx),
			}
		}
		if _, dup := seen[line.ID]; dup {
			return nil, &domain.OrderError{
				Kind:      domain.ErrInvalidProducts,
				ProductID: line.ID,
				Message:   fmt.Sprintf("duplicate product %s", line.ID),
			}
		}
		seen[line.ID] = struct{}{}
		ids = append(ids, line.ID)
	}

	return ids, nil
}

// FindOrder возвращает заказ вместе с клиентом и позициями.
func (s *Service) FindOrder(ctx context.Context, id string) (domain.Order, error) {
	if strings.TrimSpace(id) == "" {
		return domain.Order{}, domain.NewOrderError(domain.ErrInvalidRequest, "order id is required")
	}
	order, err := s.orders.FindByID(ctx, id)
	if err != nil {
		if !errors.Is(err, domain.ErrOrderNotFound) {
			s.logger.WithError(err).WithField("order_id", id).Error("failed to load order")
		}
		return domain.Order{}, err
	}
	return order, nil
}

// CreateCustomer регистрирует клиента; e-mail должен быть уникальным.
func (s *Service) CreateCustomer(ctx context.Context, name, email string) (domain.Customer, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))
	if name == "" {
		return domain.Customer{}, domain.NewOrderError(domain.ErrInvalidRequest, "name is required")
	}
	if email == "" {
		return domain.Customer{}, domain.NewOrderError(domain.ErrInvalidRequest, "email is required")
	}

	_, err := s.customers.FindByEmail(ctx, email)
	switch {
	case err == nil:
		return domain.Customer{}, domain.NewOrderError(domain.ErrEmailInUse, "this email is already assigned to a customer")
	case !errors.Is(err, domain.ErrCustomerNotFound):
		return domain.Customer{}, fmt.Errorf("find customer by email: %w", err)
	}

	now := s.now()
	customer := domain.Customer{
		ID:        uuid.NewString(),
		Name:      name,
		Email:     email,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.customers.Create(ctx, customer); err != nil {
		if errors.Is(err, domain.ErrEmailInUse) {
			return domain.Customer{}, domain.NewOrderError(domain.ErrEmailInUse, "this email is already assigned to a customer")
		}
		return domain.Customer{}, fmt.Errorf("create customer: %w", err)
	}

	s.logger.WithField("customer_id", customer.ID).Info("customer created")
	return customer, nil
}

// CreateProduct добавляет товар в каталог; название должно быть уникальным.
func (s *Service) CreateProduct(ctx context.Context, name string, price decimal.Decimal, quantity int32) (domain.Product, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Product{}, domain.NewOrderError(domain.ErrInvalidRequest, "name is required")
	}
	if price.IsNegative() {
		return domain.Product{}, domain.NewOrderError(domain.ErrInvalidRequest, "price must be non-negative")
	}
	if quantity < 0 {
		return domain.Product{}, domain.NewOrderError(domain.ErrInvalidRequest, "quantity must be non-negative")
	}

	_, err := s.products.FindByName(ctx, name)
	switch {
	case err == nil:
		return domain.Product{}, domain.NewOrderError(domain.ErrProductNameInUse, "product %q already exists", name)
	case !errors.Is(err, domain.ErrProductNotFound):
		return domain.Product{}, fmt.Errorf("find product by name: %w", err)
	}

	now := s.now()
	product := domain.Product{
		ID:        uuid.NewString(),
		Name:      name,
		Price:     price.Round(2),
		Quantity:  quantity,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.products.Create(ctx, product); err != nil {
		if errors.Is(err, domain.ErrProductNameInUse) {
			return domain.Product{}, domain.NewOrderError(domain.ErrProductNameInUse, "product %q already exists", name)
		}
		return domain.Product{}, fmt.Errorf("create product: %w", err)
	}

	s.logger.WithField("product_id", product.ID).Info("product created")
	return product, nil
}

// noTx выполняет fn без транзакции, когда хранилище её не поддерживает.
type noTx struct{}

func (noTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
