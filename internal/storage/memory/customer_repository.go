package memory

import (
	"context"
	"fmt"
	"strings"

	"github.com/vladislavdragonenkov/orders/internal/domain"
)

type customerRepositoryInMemory struct {
	store *Store
}

// Create сохраняет клиента, если ID и e-mail ещё не заняты.
func (r *customerRepositoryInMemory) Create(ctx context.Context, customer domain.Customer) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.customers[customer.ID]; exists {
		return fmt.Errorf("customer %s already exists", customer.ID)
	}
	for _, c := range s.customers {
		if strings.EqualFold(c.Email, customer.Email) {
			return domain.ErrEmailInUse
		}
	}
	s.customers[customer.ID] = customer
	recordUndo(ctx, func() { delete(s.customers, customer.ID) })
	return nil
}

// FindByID возвращает клиента или ErrCustomerNotFound.
func (r *customerRepositoryInMemory) FindByID(_ context.Context, id string) (domain.Customer, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	customer, ok := s.customers[id]
	if !ok {
		return domain.Customer{}, domain.ErrCustomerNotFound
	}
	return customer, nil
}

// FindByEmail ищет клиента по e-mail без учёта регистра.
func (r *customerRepositoryInMemory) FindByEmail(_ context.Context, email string) (domain.Customer, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, c := range s.customers {
		if strings.EqualFold(c.Email, email) {
			return c, nil
		}
	}
	return domain.Customer{}, domain.ErrCustomerNotFound
}

var _ domain.CustomerRepository = (*customerRepositoryInMemory)(nil)
