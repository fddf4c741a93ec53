package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// StockMetrics содержит метрики мутаций стока.
type StockMetrics struct {
	// Счётчики исходов мутаций
	mutationsApplied  *prometheus.CounterVec
	mutationsRejected *prometheus.CounterVec

	// Гистограмма времени выполнения мутации (от начала транзакции до коммита)
	mutationDuration prometheus.Histogram

	// Gauge активных мутаций
	activeMutations prometheus.Gauge

	// Счётчики журнала и событий
	movementsRecorded prometheus.Counter
	eventsPublished   prometheus.Counter
}

// NewStockMetrics создаёт метрики стока на default registerer.
func NewStockMetrics() *StockMetrics {
	return newStockMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

// NewStockMetricsOn создаёт метрики стока на заданном registerer.
// Изолированный registry позволяет тестам читать значения счётчиков,
// не задевая default registerer.
func NewStockMetricsOn(registerer prometheus.Registerer) *StockMetrics {
	return newStockMetricsWithRegisterer(registerer)
}

func newStockMetricsWithRegisterer(registerer prometheus.Registerer) *StockMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &StockMetrics{
		mutationsApplied: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "stock_mutations_applied_total",
			Help: "Total number of committed stock mutations",
		}, []string{"dimension"}),
		mutationsRejected: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "stock_mutations_rejected_total",
			Help: "Total number of rejected stock mutations",
		}, []string{"reason"}),
		mutationDuration: registerHistogram(registerer, prometheus.HistogramOpts{
			Name:    "stock_mutation_duration_seconds",
			Help:    "Duration of stock mutations in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5},
		}),
		activeMutations: registerGauge(registerer, prometheus.GaugeOpts{
			Name: "stock_mutations_in_flight",
			Help: "Number of stock mutations currently holding a row lock",
		}),
		movementsRecorded: registerCounter(registerer, prometheus.CounterOpts{
			Name: "stock_movements_recorded_total",
			Help: "Total number of stock movement journal records written",
		}),
		eventsPublished: registerCounter(registerer, prometheus.CounterOpts{
			Name: "stock_events_published_total",
			Help: "Total number of stock domain events published",
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

// RecordApplied увеличивает счётчик зафиксированных мутаций по измерению.
func (m *StockMetrics) RecordApplied(dimension string) {
	m.mutationsApplied.WithLabelValues(dimension).Inc()
}

// RecordRejected увеличивает счётчик отклонённых мутаций по классу ошибки.
func (m *StockMetrics) RecordRejected(reason string) {
	m.mutationsRejected.WithLabelValues(reason).Inc()
}

// RecordDuration фиксирует длительность мутации.
func (m *StockMetrics) RecordDuration(duration time.Duration) {
	m.mutationDuration.Observe(duration.Seconds())
}

// MutationStarted увеличивает количество активных мутаций.
func (m *StockMetrics) MutationStarted() {
	m.activeMutations.Inc()
}

// MutationFinished уменьшает количество активных мутаций.
func (m *StockMetrics) MutationFinished() {
	m.activeMutations.Dec()
}

// RecordMovement увеличивает счётчик записей журнала движений.
func (m *StockMetrics) RecordMovement() {
	m.movementsRecorded.Inc()
}

// RecordEventPublished увеличивает счётчик опубликованных событий.
func (m *StockMetrics) RecordEventPublished() {
	m.eventsPublished.Inc()
}
