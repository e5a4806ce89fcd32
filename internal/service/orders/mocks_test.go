package orders_test

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/vladislavdragonenkov/orders/internal/domain"
)

type mockCustomers struct{ mock.Mock }

func (m *mockCustomers) Create(ctx context.Context, customer domain.Customer) error {
	return m.Called(ctx, customer).Error(0)
}

func (m *mockCustomers) FindByID(ctx context.Context, id string) (domain.Customer, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.Customer), args.Error(1)
}

func (m *mockCustomers) FindByEmail(ctx context.Context, email string) (domain.Customer, error) {
	args := m.Called(ctx, email)
	return args.Get(0).(domain.Customer), args.Error(1)
}

type mockProducts struct{ mock.Mock }

func (m *mockProducts) Create(ctx context.Context, product domain.Product) error {
	return m.Called(ctx, product).Error(0)
}

func (m *mockProducts) FindByName(ctx context.Context, name string) (domain.Product, error) {
	args := m.Called(ctx, name)
	return args.Get(0).(domain.Product), args.Error(1)
}

func (m *mockProducts) FindAllByIDs(ctx context.Context, ids []string) ([]domain.Product, error) {
	args := m.Called(ctx, ids)
	products, _ := args.Get(0).([]domain.Product)
	return products, args.Error(1)
}

func (m *mockProducts) UpdateQuantities(ctx context.Context, updates []domain.StockUpdate) error {
	return m.Called(ctx, updates).Error(0)
}

type mockOrders struct{ mock.Mock }

func (m *mockOrders) Create(ctx context.Context, draft domain.OrderDraft) (domain.Order, error) {
	args := m.Called(ctx, draft)
	return args.Get(0).(domain.Order), args.Error(1)
}

func (m *mockOrders) FindByID(ctx context.Context, id string) (domain.Order, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.Order), args.Error(1)
}
