package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderProduct представляет одну позицию заказа.
type OrderProduct struct {
	// ID генерируется хранилищем при создании заказа.
	ID        string
	OrderID   string
	ProductID string
	// Quantity — заказанное количество, всегда > 0.
	Quantity int32
	// Price — цена за единицу на момент оформления; последующие изменения каталога её не трогают.
	Price     decimal.Decimal
	CreatedAt time.Time
}

// Order агрегирует заказ клиента и его позиции.
type Order struct {
	ID        string
	Customer  Customer
	Products  []OrderProduct
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Total возвращает сумму заказа: Σ price × quantity.
func (o *Order) Total() decimal.Decimal {
	total := decimal.Zero
	for _, p := range o.Products {
		total = total.Add(p.Price.Mul(decimal.NewFromInt32(p.Quantity)))
	}
	return total
}

// OrderDraft — данные для создания заказа до сохранения.
type OrderDraft struct {
	Customer Customer
	Products []OrderProductDraft
}

// OrderProductDraft — позиция будущего заказа.
type OrderProductDraft struct {
	ProductID string
	Quantity  int32
	Price     decimal.Decimal
}
