package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product — позиция каталога с ценой и доступным остатком.
type Product struct {
	ID       string
	Name     string
	Price    decimal.Decimal
	Quantity int32
	// CreatedAt/UpdatedAt заполняет репозиторий.
	CreatedAt time.Time
	UpdatedAt time.Time
}

// StockUpdate задаёт новый остаток товара.
type StockUpdate struct {
	ID       string
	Quantity int32
}
