package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/orders/internal/domain"
)

func seedCatalog(t *testing.T, store *Store) (domain.Customer, domain.Product) {
	t.Helper()

	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	customer := domain.Customer{ID: "C1", Name: "Ada", Email: "ada@example.com", CreatedAt: now, UpdatedAt: now}
	require.NoError(t, store.Customers().Create(ctx, customer))

	product := domain.Product{ID: "P1", Name: "Keyboard", Price: decimal.RequireFromString("10.00"), Quantity: 5, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, store.Products().Create(ctx, product))

	return customer, product
}

func TestCustomerRepository_Postgres(t *testing.T) {
	store := openStoreForIntegrationTest(t)
	customer, _ := seedCatalog(t, store)
	ctx := context.Background()

	byID, err := store.Customers().FindByID(ctx, customer.ID)
	require.NoError(t, err)
	assert.Equal(t, customer.Email, byID.Email)

	byEmail, err := store.Customers().FindByEmail(ctx, "ADA@example.com")
	require.NoError(t, err)
	assert.Equal(t, customer.ID, byEmail.ID)

	_, err = store.Customers().FindByID(ctx, "missing")
	require.ErrorIs(t, err, domain.ErrCustomerNotFound)

	err = store.Customers().Create(ctx, domain.Customer{ID: "C2", Name: "Other", Email: "Ada@Example.com"})
	require.ErrorIs(t, err, domain.ErrEmailInUse)
}

func TestProductRepository_Postgres(t *testing.T) {
	store := openStoreForIntegrationTest(t)
	_, product := seedCatalog(t, store)
	ctx := context.Background()

	mouse := domain.Product{ID: "P2", Name: "Mouse", Price: decimal.RequireFromString("4.50"), Quantity: 3}
	require.NoError(t, store.Products().Create(ctx, mouse))

	found, err := store.Products().FindAllByIDs(ctx, []string{"P2", "missing", "P1"})
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, "P2", found[0].ID)
	assert.Equal(t, "P1", found[1].ID)
	assert.True(t, found[1].Price.Equal(product.Price))

	byName, err := store.Products().FindByName(ctx, "Mouse")
	require.NoError(t, err)
	assert.Equal(t, "P2", byName.ID)

	_, err = store.Products().FindByName(ctx, "Monitor")
	require.ErrorIs(t, err, domain.ErrProductNotFound)

	dup := mouse
	dup.ID = "P3"
	require.ErrorIs(t, store.Products().Create(ctx, dup), domain.ErrProductNameInUse)

	err = store.Products().UpdateQuantities(ctx, []domain.StockUpdate{{ID: "P1", Quantity: 1}, {ID: "missing", Quantity: 1}})
	require.ErrorIs(t, err, domain.ErrProductNotFound)

	err = store.Products().UpdateQuantities(ctx, []domain.StockUpdate{{ID: "P1", Quantity: 2}, {ID: "P2", Quantity: -1}})
	require.Error(t, err)

	found, err = store.Products().FindAllByIDs(ctx, []string{"P1", "P2"})
	require.NoError(t, err)
	assert.Equal(t, int32(5), found[0].Quantity, "failed batch must not change stock")
	assert.Equal(t, int32(3), found[1].Quantity)

	require.NoError(t, store.Products().UpdateQuantities(ctx, []domain.StockUpdate{{ID: "P1", Quantity: 2}}))
	found, err = store.Products().FindAllByIDs(ctx, []string{"P1"})
	require.NoError(t, err)
	assert.Equal(t, int32(2), found[0].Quantity)
}

func TestOrderRepository_Postgres(t *testing.T) {
	store := openStoreForIntegrationTest(t)
	customer, product := seedCatalog(t, store)
	ctx := context.Background()

	mouse := domain.Product{ID: "P2", Name: "Mouse", Price: decimal.RequireFromString("4.50"), Quantity: 3}
	require.NoError(t, store.Products().Create(ctx, mouse))

	created, err := store.Orders().Create(ctx, domain.OrderDraft{
		Customer: customer,
		Products: []domain.OrderProductDraft{
			{ProductID: "P2", Quantity: 1, Price: mouse.Price},
			{ProductID: "P1", Quantity: 3, Price: product.Price},
		},
	})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	require.Len(t, created.Products, 2)

	stored, err := store.Orders().FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, customer.Email, stored.Customer.Email)
	require.Len(t, stored.Products, 2)
	assert.Equal(t, "P2", stored.Products[0].ProductID)
	assert.Equal(t, "P1", stored.Products[1].ProductID)
	assert.True(t, stored.Total().Equal(decimal.RequireFromString("34.50")))

	_, err = store.Orders().FindByID(ctx, "missing")
	require.ErrorIs(t, err, domain.ErrOrderNotFound)

	_, err = store.Orders().Create(ctx, domain.OrderDraft{
		Customer: domain.Customer{ID: "ghost"},
		Products: []domain.OrderProductDraft{{ProductID: "P1", Quantity: 1, Price: product.Price}},
	})
	require.ErrorIs(t, err, domain.ErrCustomerNotFound)

	_, err = store.Orders().Create(ctx, domain.OrderDraft{
		Customer: customer,
		Products: []domain.OrderProductDraft{{ProductID: "ghost", Quantity: 1, Price: product.Price}},
	})
	require.ErrorIs(t, err, domain.ErrProductNotFound)
}

func TestStore_WithinTxRollsBackOrderAndStock(t *testing.T) {
	store := openStoreForIntegrationTest(t)
	customer, product := seedCatalog(t, store)
	ctx := context.Background()
	boom := errors.New("boom")

	var orderID string
	err := store.WithinTx(ctx, func(ctx context.Context) error {
		order, err := store.Orders().Create(ctx, domain.OrderDraft{
			Customer: customer,
			Products: []domain.OrderProductDraft{{ProductID: product.ID, Quantity: 2, Price: product.Price}},
		})
		if err != nil {
			return err
		}
		orderID = order.ID
		if err := store.Products().UpdateQuantities(ctx, []domain.StockUpdate{{ID: product.ID, Quantity: 3}}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = store.Orders().FindByID(ctx, orderID)
	require.ErrorIs(t, err, domain.ErrOrderNotFound)

	found, err := store.Products().FindAllByIDs(ctx, []string{product.ID})
	require.NoError(t, err)
	assert.Equal(t, product.Quantity, found[0].Quantity)
}

func TestStore_WithinTxCommits(t *testing.T) {
	store := openStoreForIntegrationTest(t)
	customer, product := seedCatalog(t, store)
	ctx := context.Background()

	var orderID string
	err := store.WithinTx(ctx, func(ctx context.Context) error {
		order, err := store.Orders().Create(ctx, domain.OrderDraft{
			Customer: customer,
			Products: []domain.OrderProductDraft{{ProductID: product.ID, Quantity: 2, Price: product.Price}},
		})
		if err != nil {
			return err
		}
		orderID = order.ID
		return store.Products().UpdateQuantities(ctx, []domain.StockUpdate{{ID: product.ID, Quantity: 3}})
	})
	require.NoError(t, err)

	_, err = store.Orders().FindByID(ctx, orderID)
	require.NoError(t, err)

	found, err := store.Products().FindAllByIDs(ctx, []string{product.ID})
	require.NoError(t, err)
	assert.Equal(t, int32(3), found[0].Quantity)
}
