package domain

import "context"

// CustomerRepository описывает требования к хранилищу клиентов.
type CustomerRepository interface {
	// Create сохраняет нового клиента, ID и временные метки должны быть заполнены.
	Create(ctx context.Context, customer Customer) error
	// FindByID возвращает клиента или ErrCustomerNotFound.
	FindByID(ctx context.Context, id string) (Customer, error)
	// FindByEmail возвращает клиента по e-mail или ErrCustomerNotFound.
	FindByEmail(ctx context.Context, email string) (Customer, error)
}

// ProductRepository описывает каталог товаров.
type ProductRepository interface {
	Create(ctx context.Context, product Product) error
	// FindByName возвращает товар или ErrProductNotFound.
	FindByName(ctx context.Context, name string) (Product, error)
	// FindAllByIDs возвращает найденные товары; отсутствующие идентификаторы молча пропускаются.
	FindAllByIDs(ctx context.Context, ids []string) ([]Product, error)
	// UpdateQuantities записывает новые остатки пакетом.
	UpdateQuantities(ctx context.Context, updates []StockUpdate) error
}

// OrderRepository описывает требования к хранилищу заказов.
type OrderRepository interface {
	// Create сохраняет заказ вместе с позициями и возвращает его с сгенерированными ID.
	Create(ctx context.Context, draft OrderDraft) (Order, error)
	// FindByID возвращает заказ или ErrOrderNotFound.
	FindByID(ctx context.Context, id string) (Order, error)
}

// TxManager выполняет fn атомарно: либо применяются все записи, либо ни одной.
// Репозитории, вызванные с ctx из fn, работают внутри той же транзакции.
type TxManager interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}
