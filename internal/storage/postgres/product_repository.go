package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vladislavdragonenkov/orders/internal/domain"
)

type productRepository struct {
	store *Store
}

func (r *productRepository) Create(ctx context.Context, product domain.Product) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	_, err := r.store.exec(ctx).ExecContext(ctx, `
		INSERT INTO products (id, name, price, quantity, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, product.ID, product.Name, product.Price, product.Quantity, product.CreatedAt, product.UpdatedAt)
	if err != nil {
		if _, constraint := pgErrorCode(err); isUniqueViolation(err) && constraint == "products_name_key" {
			return domain.ErrProductNameInUse
		}
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

func (r *productRepository) FindByName(ctx context.Context, name string) (domain.Product, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var p domain.Product
	err := r.store.exec(ctx).QueryRowContext(ctx, `
		SELECT id, name, price, quantity, created_at, updated_at
		FROM products
		WHERE name = $1
	`, name).Scan(&p.ID, &p.Name, &p.Price, &p.Quantity, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Product{}, domain.ErrProductNotFound
		}
		return domain.Product{}, fmt.Errorf("select product: %w", err)
	}
	return p, nil
}

// FindAllByIDs возвращает найденные товары в порядке запроса; отсутствующие ID пропускаются.
func (r *productRepository) FindAllByIDs(ctx context.Context, ids []string) ([]domain.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	rows, err := r.store.exec(ctx).QueryContext(ctx, `
		SELECT id, name, price, quantity, created_at, updated_at
		FROM products
		WHERE id = ANY($1)
	`, ids)
	if err != nil {
		return nil, fmt.Errorf("select products: %w", err)
	}
	defer rows.Close()

	byID := make(map[string]domain.Product, len(ids))
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Price, &p.Quantity, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		byID[p.ID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}

	products := make([]domain.Product, 0, len(byID))
	for _, id := range ids {
		p, ok := byID[id]
		if !ok {
			continue
		}
		products = append(products, p)
		delete(byID, id)
	}
	return products, nil
}

// UpdateQuantities выставляет новые остатки пакетом: либо все строки, либо ни одной.
func (r *productRepository) UpdateQuantities(ctx context.Context, updates []domain.StockUpdate) error {
	if len(updates) == 0 {
		return nil
	}

	return r.store.WithinTx(ctx, func(ctx context.Context) error {
		opCtx, cancel := context.WithTimeout(ctx, opTimeout)
		defer cancel()

		for _, u := range updates {
			res, err := r.store.exec(ctx).ExecContext(opCtx, `
				UPDATE products
				SET quantity = $2,
				    updated_at = NOW()
				WHERE id = $1
			`, u.ID, u.Quantity)
			if err != nil {
				return fmt.Errorf("update product %s quantity: %w", u.ID, err)
			}
			affected, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("rows affected: %w", err)
			}
			if affected == 0 {
				return fmt.Errorf("%w: %s", domain.ErrProductNotFound, u.ID)
			}
		}
		return nil
	})
}

var _ domain.ProductRepository = (*productRepository)(nil)
