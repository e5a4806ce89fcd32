package memory

import (
	"context"
	"sync"
	"time"

	"github.com/vladislavdragonenkov/orders/internal/domain"
)

// Store — общее in-memory хранилище клиентов, каталога и заказов для локальной разработки и тестов.
// Репозитории, полученные из одного Store, видят одни и те же данные и участвуют в одной транзакции.
type Store struct {
	mu        sync.RWMutex
	customers map[string]domain.Customer
	products  map[string]domain.Product
	orders    map[string]storedOrder

	// txMu сериализует транзакции между собой; записи вне транзакций его не берут.
	txMu sync.Mutex
	now  func() time.Time
}

// storedOrder хранит заказ без копии клиента; клиент подставляется при чтении.
type storedOrder struct {
	id         string
	customerID string
	products   []domain.OrderProduct
	createdAt  time.Time
	updatedAt  time.Time
}

type txKey struct{}

// txLog — журнал отмены изменений одной транзакции. Откат возвращает только
// ключи, которых касалась транзакция, и не трогает чужие записи.
type txLog struct {
	mu   sync.Mutex
	undo []func()
}

// recordUndo добавляет шаг отмены, если ctx принадлежит транзакции.
// Вызывается под s.mu; шаг отмены выполняется тоже под s.mu.
func recordUndo(ctx context.Context, undo func()) {
	tx, ok := ctx.Value(txKey{}).(*txLog)
	if !ok {
		return
	}
	tx.mu.Lock()
	tx.undo = append(tx.undo, undo)
	tx.mu.Unlock()
}

// NewStore создаёт пустое хранилище.
func NewStore() *Store {
	return &Store{
		customers: make(map[string]domain.Customer),
		products:  make(map[string]domain.Product),
		orders:    make(map[string]storedOrder),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Customers возвращает репозиторий клиентов поверх хранилища.
func (s *Store) Customers() domain.CustomerRepository {
	return &customerRepositoryInMemory{store: s}
}

// Products возвращает репозиторий каталога поверх хранилища.
func (s *Store) Products() domain.ProductRepository {
	return &productRepositoryInMemory{store: s}
}

// Orders возвращает репозиторий заказов поверх хранилища.
func (s *Store) Orders() domain.OrderRepository {
	return &orderRepositoryInMemory{store: s}
}

// WithinTx выполняет fn и при ошибке или панике откатывает изменения, сделанные внутри.
// Вложенный вызов выполняется в рамках внешней транзакции.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if _, ok := ctx.Value(txKey{}).(*txLog); ok {
		return fn(ctx)
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	tx := &txLog{}
	defer func() {
		if p := recover(); p != nil {
			s.rollback(tx)
			panic(p)
		}
		if err != nil {
			s.rollback(tx)
		}
	}()

	return fn(context.WithValue(ctx, txKey{}, tx))
}

// rollback применяет шаги отмены в обратном порядке.
func (s *Store) rollback(tx *txLog) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx.mu.Lock()
	defer tx.mu.Unlock()

	for i := len(tx.undo) - 1; i >= 0; i-- {
		tx.undo[i]()
	}
	tx.undo = nil
}

var _ domain.TxManager = (*Store)(nil)
