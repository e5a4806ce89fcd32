package memory

import (
	"context"
	"errors"
	"fmt"

	"github.com/vladislavdragonenkov/orders/internal/domain"
)

var errNegativeStock = errors.New("stock quantity must be non-negative")

type productRepositoryInMemory struct {
	store *Store
}

// Create добавляет товар в каталог, если название свободно.
func (r *productRepositoryInMemory) Create(ctx context.Context, product domain.Product) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.products {
		if p.Name == product.Name {
			return domain.ErrProductNameInUse
		}
	}
	s.products[product.ID] = product
	recordUndo(ctx, func() { delete(s.products, product.ID) })
	return nil
}

// FindByName возвращает товар или ErrProductNotFound.
func (r *productRepositoryInMemory) FindByName(_ context.Context, name string) (domain.Product, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.products {
		if p.Name == name {
			return p, nil
		}
	}
	return domain.Product{}, domain.ErrProductNotFound
}

// FindAllByIDs возвращает найденные товары в порядке ids, без повторов.
func (r *productRepositoryInMemory) FindAllByIDs(_ context.Context, ids []string) ([]domain.Product, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Product, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if p, ok := s.products[id]; ok {
			result = append(result, p)
		}
	}
	return result, nil
}

// UpdateQuantities применяет пакет остатков целиком: при ошибке ни один товар не меняется.
func (r *productRepositoryInMemory) UpdateQuantities(ctx context.Context, updates []domain.StockUpdate) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range updates {
		if _, ok := s.products[u.ID]; !ok {
			return fmt.Errorf("%w: %s", domain.ErrProductNotFound, u.ID)
		}
		if u.Quantity < 0 {
			return fmt.Errorf("%w: product %s", errNegativeStock, u.ID)
		}
	}

	now := s.now()
	for _, u := range updates {
		p := s.products[u.ID]
		prev := p
		recordUndo(ctx, func() { s.products[prev.ID] = prev })
		p.Quantity = u.Quantity
		p.UpdatedAt = now
		s.products[u.ID] = p
	}
	return nil
}

var _ domain.ProductRepository = (*productRepositoryInMemory)(nil)
