// Package dto описывает JSON-представление ресурсов API, общее для REST и gRPC.
package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/orders/internal/domain"
	"github.com/vladislavdragonenkov/orders/internal/service/orders"
)

// CreateCustomerRequest — тело POST /customers.
type CreateCustomerRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// CreateProductRequest — тело POST /products. Цена принимается строкой или числом.
type CreateProductRequest struct {
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Quantity int32           `json:"quantity"`
}

// OrderLine — строка запроса на заказ.
type OrderLine struct {
	ID       string `json:"id"`
	Quantity int32  `json:"quantity"`
}

// CreateOrderRequest — тело POST /orders.
type CreateOrderRequest struct {
	CustomerID string      `json:"customer_id"`
	Products   []OrderLine `json:"products"`
}

// GetOrderRequest — запрос заказа по ID (gRPC).
type GetOrderRequest struct {
	ID string `json:"id"`
}

// ToService переводит запрос в вход оркестратора.
func (r CreateOrderRequest) ToService() orders.CreateOrderRequest {
	lines := make([]orders.RequestedProduct, 0, len(r.Products))
	for _, p := range r.Products {
		lines = append(lines, orders.RequestedProduct{ID: p.ID, Quantity: p.Quantity})
	}
	return orders.CreateOrderRequest{CustomerID: r.CustomerID, Products: lines}
}

// Customer — клиент в ответах API.
type Customer struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Product — товар в ответах API; цена передаётся строкой с двумя знаками.
type Product struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Price     string    `json:"price"`
	Quantity  int32     `json:"quantity"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// OrderProduct — позиция заказа с ценой на момент оформления.
type OrderProduct struct {
	ID        string `json:"id"`
	ProductID string `json:"product_id"`
	Quantity  int32  `json:"quantity"`
	Price     string `json:"price"`
}

// Order — заказ с клиентом, позициями и итоговой суммой.
type Order struct {
	ID        string         `json:"id"`
	Customer  Customer       `json:"customer"`
	Products  []OrderProduct `json:"products"`
	Total     string         `json:"total"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// Error — тело ответа с ошибкой.
type Error struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Kind    string `json:"kind,omitempty"`
}

// FromCustomer строит представление клиента.
func FromCustomer(c domain.Customer) Customer {
	return Customer{ID: c.ID, Name: c.Name, Email: c.Email, CreatedAt: c.CreatedAt, UpdatedAt: c.UpdatedAt}
}

// FromProduct строит представление товара.
func FromProduct(p domain.Product) Product {
	return Product{
		ID:        p.ID,
		Name:      p.Name,
		Price:     p.Price.StringFixed(2),
		Quantity:  p.Quantity,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

// FromOrder строит представление заказа и считает итог.
func FromOrder(o domain.Order) Order {
	items := make([]OrderProduct, 0, len(o.Products))
	for _, p := range o.Products {
		items = append(items, OrderProduct{
			ID:        p.ID,
			ProductID: p.ProductID,
			Quantity:  p.Quantity,
			Price:     p.Price.StringFixed(2),
		})
	}
	return Order{
		ID:        o.ID,
		Customer:  FromCustomer(o.Customer),
		Products:  items,
		Total:     o.Total().StringFixed(2),
		CreatedAt: o.CreatedAt,
		UpdatedAt: o.UpdatedAt,
	}
}
