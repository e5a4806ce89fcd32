package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// OrderMetrics содержит метрики оформления заказов и каталога.
// Все методы безопасно вызывать на nil-получателе: метрики тогда просто не пишутся.
type OrderMetrics struct {
	// Счётчики результатов
	ordersCreated  prometheus.Counter
	ordersRejected *prometheus.CounterVec
	lineItems      prometheus.Counter

	// Время выполнения CreateOrder
	createDuration prometheus.Histogram

	// Результаты обращений к кэшу клиентов (hit/miss/error)
	customerCache *prometheus.CounterVec

	// Gauge для заказов в обработке
	inFlight prometheus.Gauge
}

// NewOrderMetrics создаёт метрики в глобальном реестре Prometheus.
func NewOrderMetrics() *OrderMetrics {
	return NewOrderMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

// NewOrderMetricsWithRegisterer создаёт метрики в указанном реестре (удобно для тестов).
func NewOrderMetricsWithRegisterer(registerer prometheus.Registerer) *OrderMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &OrderMetrics{
		ordersCreated: registerCounter(registerer, prometheus.CounterOpts{
			Name: "orders_created_total",
			Help: "Total number of orders persisted",
		}),
		ordersRejected: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "orders_rejected_total",
			Help: "Total number of order requests rejected, by error kind",
		}, []string{"kind"}),
		lineItems: registerCounter(registerer, prometheus.CounterOpts{
			Name: "orders_line_items_total",
			Help: "Total number of line items in persisted orders",
		}),
		createDuration: registerHistogram(registerer, prometheus.HistogramOpts{
			Name:    "orders_create_duration_seconds",
			Help:    "Duration of CreateOrder operations in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}),
		customerCache: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "orders_customer_cache_total",
			Help: "Customer cache lookups by result",
		}, []string{"result"}),
		inFlight: registerGauge(registerer, prometheus.GaugeOpts{
			Name: "orders_create_in_flight",
			Help: "Number of CreateOrder operations currently in progress",
		}),
	}
}

func registerCounter(registerer prometheus.Registerer, opts prometheus.CounterOpts) prometheus.Counter {
	collector := prometheus.NewCounter(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Counter)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter %q: %v", opts.Name, err))
	}
	return collector
}

func registerCounterVec(registerer prometheus.Registerer, opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	collector := prometheus.NewCounterVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.CounterVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter vec %q: %v", opts.Name, err))
	}
	return collector
}

func registerGauge(registerer prometheus.Registerer, opts prometheus.GaugeOpts) prometheus.Gauge {
	collector := prometheus.NewGauge(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Gauge)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register gauge %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogram(registerer prometheus.Registerer, opts prometheus.HistogramOpts) prometheus.Histogram {
	collector := prometheus.NewHistogram(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Histogram)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram %q: %v", opts.Name, err))
	}
	return collector
}

// RecordOrderStarted отмечает начало обработки заказа.
func (m *OrderMetrics) RecordOrderStarted() {
	if m == nil {
		return
	}
	m.inFlight.Inc()
}

// RecordOrderFinished фиксирует длительность и уменьшает число заказов в обработке.
func (m *OrderMetrics) RecordOrderFinished(duration time.Duration) {
	if m == nil {
		return
	}
	m.inFlight.Dec()
	m.createDuration.Observe(duration.Seconds())
}

// RecordOrderCreated увеличивает счётчик созданных заказов и их позиций.
func (m *OrderMetrics) RecordOrderCreated(lineItems int) {
	if m == nil {
		return
	}
	m.ordersCreated.Inc()
	m.lineItems.Add(float64(lineItems))
}

// RecordOrderRejected увеличивает счётчик отказов с меткой вида ошибки.
func (m *OrderMetrics) RecordOrderRejected(kind string) {
	if m == nil {
		return
	}
	m.ordersRejected.WithLabelValues(kind).Inc()
}

// RecordCustomerCache учитывает результат обращения к кэшу клиентов.
func (m *OrderMetrics) RecordCustomerCache(result string) {
	if m == nil {
		return
	}
	m.customerCache.WithLabelValues(result).Inc()
}
