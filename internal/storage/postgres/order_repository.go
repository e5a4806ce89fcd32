package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/orders/internal/domain"
)

type orderRepository struct {
	store *Store
}

// Create сохраняет заказ и его позиции в одной транзакции (или во внешней из контекста).
func (r *orderRepository) Create(ctx context.Context, draft domain.OrderDraft) (domain.Order, error) {
	now := time.Now().UTC()
	order := domain.Order{
		ID:        uuid.NewString(),
		Customer:  draft.Customer,
		Products:  make([]domain.OrderProduct, 0, len(draft.Products)),
		CreatedAt: now,
		UpdatedAt: now,
	}
	for _, p := range draft.Products {
		order.Products = append(order.Products, domain.OrderProduct{
			ID:        uuid.NewString(),
			OrderID:   order.ID,
			ProductID: p.ProductID,
			Quantity:  p.Quantity,
			Price:     p.Price,
			CreatedAt: now,
		})
	}

	err := r.store.WithinTx(ctx, func(ctx context.Context) error {
		opCtx, cancel := context.WithTimeout(ctx, opTimeout)
		defer cancel()
		db := r.store.exec(ctx)

		if _, err := db.ExecContext(opCtx, `
			INSERT INTO orders (id, customer_id, created_at, updated_at)
			VALUES ($1, $2, $3, $4)
		`, order.ID, order.Customer.ID, order.CreatedAt, order.UpdatedAt); err != nil {
			if isForeignKeyViolation(err) {
				return fmt.Errorf("%w: %s", domain.ErrCustomerNotFound, order.Customer.ID)
			}
			return fmt.Errorf("insert order: %w", err)
		}

		for pos, item := range order.Products {
			if _, err := db.ExecContext(opCtx, `
				INSERT INTO orders_products (id, order_id, product_id, position, quantity, price, created_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7)
			`, item.ID, item.OrderID, item.ProductID, pos, item.Quantity, item.Price, item.CreatedAt); err != nil {
				if isForeignKeyViolation(err) {
					return fmt.Errorf("%w: %s", domain.ErrProductNotFound, item.ProductID)
				}
				return fmt.Errorf("insert order product: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return domain.Order{}, err
	}

	return order, nil
}

// FindByID возвращает заказ вместе с клиентом и позициями в исходном порядке.
func (r *orderRepository) FindByID(ctx context.Context, id string) (domain.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	db := r.store.exec(ctx)

	var order domain.Order
	err := db.QueryRowContext(ctx, `
		SELECT o.id, o.created_at, o.updated_at,
		       c.id, c.name, c.email, c.created_at, c.updated_at
		FROM orders o
		JOIN customers c ON c.id = o.customer_id
		WHERE o.id = $1
	`, id).Scan(
		&order.ID, &order.CreatedAt, &order.UpdatedAt,
		&order.Customer.ID, &order.Customer.Name, &order.Customer.Email,
		&order.Customer.CreatedAt, &order.Customer.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Order{}, domain.ErrOrderNotFound
		}
		return domain.Order{}, fmt.Errorf("select order: %w", err)
	}

	items, err := loadOrderProducts(ctx, db, order.ID)
	if err != nil {
		return domain.Order{}, err
	}
	order.Products = items

	return order, nil
}

func loadOrderProducts(ctx context.Context, db executor, orderID string) ([]domain.OrderProduct, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, order_id, product_id, quantity, price, created_at
		FROM orders_products
		WHERE order_id = $1
		ORDER BY position ASC
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("select order products: %w", err)
	}
	defer rows.Close()

	items := make([]domain.OrderProduct, 0)
	for rows.Next() {
		var item domain.OrderProduct
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.Quantity, &item.Price, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan order product: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order products: %w", err)
	}

	return items, nil
}

var _ domain.OrderRepository = (*orderRepository)(nil)
