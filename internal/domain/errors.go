package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidCustomer — клиент с указанным идентификатором не найден.
	ErrInvalidCustomer = errors.New("invalid customer")
	// ErrInvalidProducts — часть запрошенных товаров отсутствует в каталоге.
	ErrInvalidProducts = errors.New("invalid products")
	// ErrProductNotFound — конкретный товар не найден среди загруженных.
	ErrProductNotFound = errors.New("product not found")
	// ErrInsufficientStock — запрошенное количество превышает остаток.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrInvalidRequest — некорректные входные данные (пустые поля, неположительное количество).
	ErrInvalidRequest = errors.New("invalid request")
	// ErrEmailInUse — e-mail уже закреплён за другим клиентом.
	ErrEmailInUse = errors.New("email already assigned to a customer")
	// ErrProductNameInUse — товар с таким названием уже существует.
	ErrProductNameInUse = errors.New("product name already in use")
	// ErrCustomerNotFound возвращается репозиторием клиентов, если записи нет.
	ErrCustomerNotFound = errors.New("customer not found")
	// ErrOrderNotFound возвращается, если заказ не найден в репозитории.
	ErrOrderNotFound = errors.New("order not found")
)

// OrderError описывает отказ бизнес-операции: вид ошибки плюс контекст для ответа клиенту.
type OrderError struct {
	Kind      error
	ProductID string
	Quantity  int32
	Message   string
}

func (e *OrderError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Kind.Error()
}

// Unwrap позволяет сравнивать ошибку с sentinel-видом через errors.Is.
func (e *OrderError) Unwrap() error {
	return e.Kind
}

// NewOrderError создаёт ошибку указанного вида с форматированным сообщением.
func NewOrderError(kind error, format string, args ...any) *OrderError {
	return &OrderError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Kind возвращает короткое имя вида ошибки для логов, метрик и ответов API.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidCustomer):
		return "invalid_customer"
	case errors.Is(err, ErrInvalidProducts):
		return "invalid_products"
	case errors.Is(err, ErrProductNotFound):
		return "product_not_found"
	case errors.Is(err, ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, ErrInvalidRequest):
		return "invalid_request"
	case errors.Is(err, ErrEmailInUse):
		return "email_in_use"
	case errors.Is(err, ErrProductNameInUse):
		return "product_name_in_use"
	case errors.Is(err, ErrOrderNotFound):
		return "order_not_found"
	default:
		return "internal"
	}
}

// IsBusinessError сообщает, что ошибка вызвана входными данными, а не инфраструктурой.
func IsBusinessError(err error) bool {
	k := Kind(err)
	return k != "" && k != "internal"
}
