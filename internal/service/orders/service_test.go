package orders_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/vladislavdragonenkov/orders/internal/domain"
	"github.com/vladislavdragonenkov/orders/internal/metrics"
	"github.com/vladislavdragonenkov/orders/internal/service/orders"
	"github.com/vladislavdragonenkov/orders/internal/storage/memory"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func loggerForTests() *log.Entry {
	logger := log.New()
	logger.SetOutput(io.Discard)
	return logger.WithField("component", "test")
}

// fixture — каталог из сценариев: клиент C1, товар P1 по 10.00 с остатком 5.
type fixture struct {
	store   *memory.Store
	service *orders.Service
}

func newFixture(t *testing.T, products ...domain.Product) fixture {
	t.Helper()

	ctx := context.Background()
	store := memory.NewStore()
	require.NoError(t, store.Customers().Create(ctx, domain.Customer{ID: "C1", Name: "Ada", Email: "ada@example.com"}))

	if len(products) == 0 {
		products = []domain.Product{{ID: "P1", Name: "Keyboard", Price: decimal.RequireFromString("10.00"), Quantity: 5}}
	}
	for _, p := range products {
		require.NoError(t, store.Products().Create(ctx, p))
	}

	svc := orders.NewService(store.Customers(), store.Products(), store.Orders(), store, loggerForTests())
	return fixture{store: store, service: svc}
}

func (f fixture) stock(t *testing.T, id string) int32 {
	t.Helper()
	found, err := f.store.Products().FindAllByIDs(context.Background(), []string{id})
	require.NoError(t, err)
	require.Len(t, found, 1)
	return found[0].Quantity
}

func TestCreateOrder_Success(t *testing.T) {
	f := newFixture(t)

	order, err := f.service.CreateOrder(context.Background(), orders.CreateOrderRequest{
		CustomerID: "C1",
		Products:   []orders.RequestedProduct{{ID: "P1", Quantity: 3}},
	})
	require.NoError(t, err)

	require.NotEmpty(t, order.ID)
	assert.Equal(t, "C1", order.Customer.ID)
	require.Len(t, order.Products, 1)
	assert.Equal(t, "P1", order.Products[0].ProductID)
	assert.Equal(t, int32(3), order.Products[0].Quantity)
	assert.True(t, order.Products[0].Price.Equal(decimal.RequireFromString("10.00")))
	assert.NotEmpty(t, order.Products[0].ID)
	assert.Equal(t, int32(2), f.stock(t, "P1"))

	stored, err := f.service.FindOrder(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Products, 1)
}

func TestCreateOrder_InsufficientStock(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.CreateOrder(context.Background(), orders.CreateOrderRequest{
		CustomerID: "C1",
		Products:   []orders.RequestedProduct{{ID: "P1", Quantity: 7}},
	})
	require.ErrorIs(t, err, domain.ErrInsufficientStock)

	var orderErr *domain.OrderError
	require.ErrorAs(t, err, &orderErr)
	assert.Equal(t, "P1", orderErr.ProductID)
	assert.Equal(t, int32(7), orderErr.Quantity)
	assert.Equal(t, "the quantity 7 is not available for P1", err.Error())
	assert.Equal(t, int32(5), f.stock(t, "P1"))
}

func TestCreateOrder_UnknownProduct(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.CreateOrder(context.Background(), orders.CreateOrderRequest{
		CustomerID: "C1",
		Products:   []orders.RequestedProduct{{ID: "P2", Quantity: 1}},
	})
	require.ErrorIs(t, err, domain.ErrInvalidProducts)
	assert.Equal(t, int32(5), f.stock(t, "P1"))
}

func TestCreateOrder_FirstOffendingLineWins(t *testing.T) {
	f := newFixture(t,
		domain.Product{ID: "P1", Name: "Keyboard", Price: decimal.RequireFromString("10.00"), Quantity: 5},
		domain.Product{ID: "P2", Name: "Mouse", Price: decimal.RequireFromString("4.50"), Quantity: 1},
		domain.Product{ID: "P3", Name: "Monitor", Price: decimal.RequireFromString("199.99"), Quantity: 0},
	)

	_, err := f.service.CreateOrder(context.Background(), orders.CreateOrderRequest{
		CustomerID: "C1",
		Products: []orders.RequestedProduct{
			{ID: "P1", Quantity: 5},
			{ID: "P3", Quantity: 1},
			{ID: "P2", Quantity: 2},
		},
	})

	var orderErr *domain.OrderError
	require.ErrorAs(t, err, &orderErr)
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	assert.Equal(t, "P3", orderErr.ProductID)
	assert.Equal(t, int32(1), orderErr.Quantity)
	assert.Equal(t, int32(5), f.stock(t, "P1"))
	assert.Equal(t, int32(1), f.stock(t, "P2"))
	assert.Equal(t, int32(0), f.stock(t, "P3"))
}

func TestCreateOrder_MultipleProducts(t *testing.T) {
	f := newFixture(t,
		domain.Product{ID: "P1", Name: "Keyboard", Price: decimal.RequireFromString("10.00"), Quantity: 5},
		domain.Product{ID: "P2", Name: "Mouse", Price: decimal.RequireFromString("4.50"), Quantity: 3},
	)

	order, err := f.service.CreateOrder(context.Background(), orders.CreateOrderRequest{
		CustomerID: "C1",
		Products: []orders.RequestedProduct{
			{ID: "P2", Quantity: 3},
			{ID: "P1", Quantity: 1},
		},
	})
	require.NoError(t, err)

	require.Len(t, order.Products, 2)
	assert.Equal(t, "P2", order.Products[0].ProductID)
	assert.Equal(t, "P1", order.Products[1].ProductID)
	assert.True(t, order.Total().Equal(decimal.RequireFromString("23.50")))
	assert.Equal(t, int32(4), f.stock(t, "P1"))
	assert.Equal(t, int32(0), f.stock(t, "P2"))
}

func TestCreateOrder_QuantityBoundary(t *testing.T) {
	for qty := int32(1); qty <= 8; qty++ {
		t.Run(fmt.Sprintf("qty=%d", qty), func(t *testing.T) {
			f := newFixture(t)

			_, err := f.service.CreateOrder(context.Background(), orders.CreateOrderRequest{
				CustomerID: "C1",
				Products:   []orders.RequestedProduct{{ID: "P1", Quantity: qty}},
			})
			if qty <= 5 {
				require.NoError(t, err)
				assert.Equal(t, 5-qty, f.stock(t, "P1"))
				return
			}
			require.ErrorIs(t, err, domain.ErrInsufficientStock)
			assert.Equal(t, int32(5), f.stock(t, "P1"))
		})
	}
}

func TestCreateOrder_ValidationPerformsNoCalls(t *testing.T) {
	tests := []struct {
		name string
		req  orders.CreateOrderRequest
		want error
	}{
		{
			name: "empty customer",
			req:  orders.CreateOrderRequest{Products: []orders.RequestedProduct{{ID: "P1", Quantity: 1}}},
			want: domain.ErrInvalidCustomer,
		},
		{
			name: "no products",
			req:  orders.CreateOrderRequest{CustomerID: "C1"},
			want: domain.ErrInvalidProducts,
		},
		{
			name: "empty product id",
			req:  orders.CreateOrderRequest{CustomerID: "C1", Products: []orders.RequestedProduct{{Quantity: 1}}},
			want: domain.ErrInvalidProducts,
		},
		{
			name: "zero quantity",
			req:  orders.CreateOrderRequest{CustomerID: "C1", Products: []orders.RequestedProduct{{ID: "P1", Quantity: 0}}},
			want: domain.ErrInvalidRequest,
		},
		{
			name: "negative quantity",
			req:  orders.CreateOrderRequest{CustomerID: "C1", Products: []orders.RequestedProduct{{ID: "P1", Quantity: -2}}},
			want: domain.ErrInvalidRequest,
		},
		{
			name: "duplicate product",
			req: orders.CreateOrderRequest{CustomerID: "C1", Products: []orders.RequestedProduct{
				{ID: "P1", Quantity: 1},
				{ID: "P1", Quantity: 2},
			}},
			want: domain.ErrInvalidProducts,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			customers, products, ordersRepo := &mockCustomers{}, &mockProducts{}, &mockOrders{}
			svc := orders.NewService(customers, products, ordersRepo, nil, loggerForTests())

			_, err := svc.CreateOrder(context.Background(), tt.req)
			require.ErrorIs(t, err, tt.want)

			customers.AssertExpectations(t)
			products.AssertNotCalled(t, "FindAllByIDs", mock.Anything, mock.Anything)
			ordersRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		})
	}
}

func TestCreateOrder_UnknownCustomerPerformsNoWrites(t *testing.T) {
	customers, products, ordersRepo := &mockCustomers{}, &mockProducts{}, &mockOrders{}
	customers.On("FindByID", mock.Anything, "ghost").Return(domain.Customer{}, domain.ErrCustomerNotFound)

	svc := orders.NewService(customers, products, ordersRepo, nil, loggerForTests())
	_, err := svc.CreateOrder(context.Background(), orders.CreateOrderRequest{
		CustomerID: "ghost",
		Products:   []orders.RequestedProduct{{ID: "P1", Quantity: 1}},
	})

	require.ErrorIs(t, err, domain.ErrInvalidCustomer)
	customers.AssertExpectations(t)
	products.AssertNotCalled(t, "FindAllByIDs", mock.Anything, mock.Anything)
	products.AssertNotCalled(t, "UpdateQuantities", mock.Anything, mock.Anything)
	ordersRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCreateOrder_UnknownProductPerformsNoWrites(t *testing.T) {
	customers, products, ordersRepo := &mockCustomers{}, &mockProducts{}, &mockOrders{}
	customers.On("FindByID", mock.Anything, "C1").Return(domain.Customer{ID: "C1"}, nil)
	products.On("FindAllByIDs", mock.Anything, []string{"P1", "P2"}).
		Return([]domain.Product{{ID: "P1", Price: decimal.NewFromInt(10), Quantity: 5}}, nil)

	svc := orders.NewService(customers, products, ordersRepo, nil, loggerForTests())
	_, err := svc.CreateOrder(context.Background(), orders.CreateOrderRequest{
		CustomerID: "C1",
		Products: []orders.RequestedProduct{
			{ID: "P1", Quantity: 1},
			{ID: "P2", Quantity: 1},
		},
	})

	require.ErrorIs(t, err, domain.ErrInvalidProducts)
	products.AssertExpectations(t)
	products.AssertNotCalled(t, "UpdateQuantities", mock.Anything, mock.Anything)
	ordersRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCreateOrder_ResolvedProductNotRequested(t *testing.T) {
	customers, products, ordersRepo := &mockCustomers{}, &mockProducts{}, &mockOrders{}
	customers.On("FindByID", mock.Anything, "C1").Return(domain.Customer{ID: "C1"}, nil)
	products.On("FindAllByIDs", mock.Anything, []string{"P1"}).
		Return([]domain.Product{{ID: "PX", Price: decimal.NewFromInt(1), Quantity: 5}}, nil)

	svc := orders.NewService(customers, products, ordersRepo, nil, loggerForTests())
	_, err := svc.CreateOrder(context.Background(), orders.CreateOrderRequest{
		CustomerID: "C1",
		Products:   []orders.RequestedProduct{{ID: "P1", Quantity: 1}},
	})

	var orderErr *domain.OrderError
	require.ErrorAs(t, err, &orderErr)
	assert.ErrorIs(t, err, domain.ErrProductNotFound)
	assert.Equal(t, "PX", orderErr.ProductID)
	ordersRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCreateOrder_WritesSnapshotAndStockBatch(t *testing.T) {
	customers, products, ordersRepo := &mockCustomers{}, &mockProducts{}, &mockOrders{}
	customer := domain.Customer{ID: "C1", Name: "Ada"}
	customers.On("FindByID", mock.Anything, "C1").Return(customer, nil)
	products.On("FindAllByIDs", mock.Anything, []string{"P1", "P2"}).Return([]domain.Product{
		{ID: "P2", Price: decimal.RequireFromString("4.50"), Quantity: 3},
		{ID: "P1", Price: decimal.RequireFromString("10.00"), Quantity: 5},
	}, nil)

	wantDraft := domain.OrderDraft{
		Customer: customer,
		Products: []domain.OrderProductDraft{
			{ProductID: "P1", Quantity: 2, Price: decimal.RequireFromString("10.00")},
			{ProductID: "P2", Quantity: 1, Price: decimal.RequireFromString("4.50")},
		},
	}
	persisted := domain.Order{
		ID:       "O1",
		Customer: customer,
		Products: []domain.OrderProduct{
			{ID: "I1", OrderID: "O1", ProductID: "P1", Quantity: 2, Price: decimal.RequireFromString("10.00")},
			{ID: "I2", OrderID: "O1", ProductID: "P2", Quantity: 1, Price: decimal.RequireFromString("4.50")},
		},
	}
	ordersRepo.On("Create", mock.Anything, wantDraft).Return(persisted, nil).Once()
	products.On("UpdateQuantities", mock.Anything, []domain.StockUpdate{
		{ID: "P1", Quantity: 3},
		{ID: "P2", Quantity: 2},
	}).Return(nil).Once()

	svc := orders.NewService(customers, products, ordersRepo, nil, loggerForTests())
	order, err := svc.CreateOrder(context.Background(), orders.CreateOrderRequest{
		CustomerID: "C1",
		Products: []orders.RequestedProduct{
			{ID: "P1", Quantity: 2},
			{ID: "P2", Quantity: 1},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, persisted, order)

	customers.AssertExpectations(t)
	products.AssertExpectations(t)
	ordersRepo.AssertExpectations(t)
}

func TestCreateOrder_InfrastructureErrorsAreWrapped(t *testing.T) {
	dbErr := errors.New("connection reset")

	customers, products, ordersRepo := &mockCustomers{}, &mockProducts{}, &mockOrders{}
	customers.On("FindByID", mock.Anything, "C1").Return(domain.Customer{}, dbErr)

	svc := orders.NewService(customers, products, ordersRepo, nil, loggerForTests())
	_, err := svc.CreateOrder(context.Background(), orders.CreateOrderRequest{
		CustomerID: "C1",
		Products:   []orders.RequestedProduct{{ID: "P1", Quantity: 1}},
	})

	require.ErrorIs(t, err, dbErr)
	assert.False(t, domain.IsBusinessError(err))
}

// failingStock проваливает списание остатков, чтобы проверить откат заказа.
type failingStock struct {
	domain.ProductRepository
	err error
}

func (f failingStock) UpdateQuantities(context.Context, []domain.StockUpdate) error {
	return f.err
}

// recordingOrders запоминает ID созданных заказов.
type recordingOrders struct {
	domain.OrderRepository
	created []string
}

func (r *recordingOrders) Create(ctx context.Context, draft domain.OrderDraft) (domain.Order, error) {
	order, err := r.OrderRepository.Create(ctx, draft)
	if err == nil {
		r.created = append(r.created, order.ID)
	}
	return order, err
}

func TestCreateOrder_StockFailureRollsBackOrder(t *testing.T) {
	f := newFixture(t)
	stockErr := errors.New("stock write failed")
	ordersRepo := &recordingOrders{OrderRepository: f.store.Orders()}

	svc := orders.NewService(
		f.store.Customers(),
		failingStock{ProductRepository: f.store.Products(), err: stockErr},
		ordersRepo,
		f.store,
		loggerForTests(),
	)

	_, err := svc.CreateOrder(context.Background(), orders.CreateOrderRequest{
		CustomerID: "C1",
		Products:   []orders.RequestedProduct{{ID: "P1", Quantity: 3}},
	})
	require.ErrorIs(t, err, stockErr)

	require.Len(t, ordersRepo.created, 1)
	_, err = f.store.Orders().FindByID(context.Background(), ordersRepo.created[0])
	require.ErrorIs(t, err, domain.ErrOrderNotFound)
	assert.Equal(t, int32(5), f.stock(t, "P1"))
}

func TestCreateOrder_RecordsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	f := newFixture(t)
	svc := orders.NewService(f.store.Customers(), f.store.Products(), f.store.Orders(), f.store, loggerForTests(),
		orders.WithMetrics(metrics.NewOrderMetricsWithRegisterer(reg)))

	_, err := svc.CreateOrder(context.Background(), orders.CreateOrderRequest{
		CustomerID: "C1",
		Products:   []orders.RequestedProduct{{ID: "P1", Quantity: 1}},
	})
	require.NoError(t, err)
	_, err = svc.CreateOrder(context.Background(), orders.CreateOrderRequest{
		CustomerID: "C1",
		Products:   []orders.RequestedProduct{{ID: "P1", Quantity: 100}},
	})
	require.Error(t, err)

	families, err := reg.Gather()
	require.NoError(t, err)

	values := map[string]float64{}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			if m.GetCounter() == nil {
				continue
			}
			key := mf.GetName()
			for _, l := range m.GetLabel() {
				key += ":" + l.GetValue()
			}
			values[key] = m.GetCounter().GetValue()
		}
	}
	assert.Equal(t, 1.0, values["orders_created_total"])
	assert.Equal(t, 1.0, values["orders_rejected_total:insufficient_stock"])
	assert.Equal(t, 1.0, values["orders_line_items_total"])
}

func TestFindOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.service.FindOrder(ctx, "missing")
	require.ErrorIs(t, err, domain.ErrOrderNotFound)

	_, err = f.service.FindOrder(ctx, " ")
	require.ErrorIs(t, err, domain.ErrInvalidRequest)
}

func TestCreateCustomer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	svc := orders.NewService(f.store.Customers(), f.store.Products(), f.store.Orders(), f.store, loggerForTests(),
		orders.WithClock(func() time.Time { return fixed }))

	customer, err := svc.CreateCustomer(ctx, "  Grace ", " Grace@Example.com ")
	require.NoError(t, err)
	assert.NotEmpty(t, customer.ID)
	assert.Equal(t, "Grace", customer.Name)
	assert.Equal(t, "grace@example.com", customer.Email)
	assert.Equal(t, fixed, customer.CreatedAt)

	_, err = svc.CreateCustomer(ctx, "Ada again", "ada@example.com")
	require.ErrorIs(t, err, domain.ErrEmailInUse)

	_, err = svc.CreateCustomer(ctx, "", "x@example.com")
	require.ErrorIs(t, err, domain.ErrInvalidRequest)

	_, err = svc.CreateCustomer(ctx, "Nameless", "")
	require.ErrorIs(t, err, domain.ErrInvalidRequest)
}

func TestCreateProduct(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	product, err := f.service.CreateProduct(ctx, "Mouse", decimal.RequireFromString("4.499"), 10)
	require.NoError(t, err)
	assert.NotEmpty(t, product.ID)
	assert.True(t, product.Price.Equal(decimal.RequireFromString("4.50")))
	assert.Equal(t, int32(10), f.stock(t, product.ID))

	_, err = f.service.CreateProduct(ctx, "Keyboard", decimal.NewFromInt(1), 1)
	require.ErrorIs(t, err, domain.ErrProductNameInUse)

	_, err = f.service.CreateProduct(ctx, "Cable", decimal.NewFromInt(-1), 1)
	require.ErrorIs(t, err, domain.ErrInvalidRequest)

	_, err = f.service.CreateProduct(ctx, "Cable", decimal.NewFromInt(1), -1)
	require.ErrorIs(t, err, domain.ErrInvalidRequest)

	_, err = f.service.CreateProduct(ctx, " ", decimal.NewFromInt(1), 1)
	require.ErrorIs(t, err, domain.ErrInvalidRequest)
}
