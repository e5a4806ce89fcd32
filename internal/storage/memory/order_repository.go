package memory

import (
	"context"
	"fmt"
	"slices"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/orders/internal/domain"
)

// orderRepositoryInMemory — простая in-memory реализация OrderRepository.
type orderRepositoryInMemory struct {
	store *Store
}

// Create сохраняет заказ и генерирует ID заказа и позиций.
func (r *orderRepositoryInMemory) Create(ctx context.Context, draft domain.OrderDraft) (domain.Order, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	customer, ok := s.customers[draft.Customer.ID]
	if !ok {
		return domain.Order{}, fmt.Errorf("%w: %s", domain.ErrCustomerNotFound, draft.Customer.ID)
	}

	now := s.now()
	stored := storedOrder{
		id:         uuid.NewString(),
		customerID: customer.ID,
		products:   make([]domain.OrderProduct, 0, len(draft.Products)),
		createdAt:  now,
		updatedAt:  now,
	}
	for _, p := range draft.Products {
		if _, ok := s.products[p.ProductID]; !ok {
			return domain.Order{}, fmt.Errorf("%w: %s", domain.ErrProductNotFound, p.ProductID)
		}
		stored.products = append(stored.products, domain.OrderProduct{
			ID:        uuid.NewString(),
			OrderID:   stored.id,
			ProductID: p.ProductID,
			Quantity:  p.Quantity,
			Price:     p.Price,
			CreatedAt: now,
		})
	}
	s.orders[stored.id] = stored
	recordUndo(ctx, func() { delete(s.orders, stored.id) })

	return toOrder(stored, customer), nil
}

// FindByID возвращает заказ или ErrOrderNotFound.
func (r *orderRepositoryInMemory) FindByID(_ context.Context, id string) (domain.Order, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored, ok := s.orders[id]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return toOrder(stored, s.customers[stored.customerID]), nil
}

func toOrder(stored storedOrder, customer domain.Customer) domain.Order {
	// Копируем позиции, чтобы вызывающий код не менял состояние хранилища.
	return domain.Order{
		ID:        stored.id,
		Customer:  customer,
		Products:  slices.Clone(stored.products),
		CreatedAt: stored.createdAt,
		UpdatedAt: stored.updatedAt,
	}
}

var _ domain.OrderRepository = (*orderRepositoryInMemory)(nil)
