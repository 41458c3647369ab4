package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

// PaymentMetrics tracks payment lifecycle operations and the stats cache.
type PaymentMetrics struct {
	operations *prometheus.CounterVec
	refunded   *prometheus.CounterVec
	statsCache *prometheus.CounterVec
}

// NewPaymentMetrics registers the payment metrics on the provided registerer.
// A nil registerer yields a no-op recorder.
func NewPaymentMetrics(reg prometheus.Registerer) *PaymentMetrics {
	if reg == nil {
		return &PaymentMetrics{}
	}
	operations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "comercio_payment_operations_total",
		Help: "Payment operations by name and outcome.",
	}, []string{"operation", "outcome"})
	refunded := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "comercio_payment_refunded_amount_total",
		Help: "Sum of refunded amounts by refund kind.",
	}, []string{"kind"})
	statsCache := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "comercio_payment_stats_cache_total",
		Help: "Payment stats cache lookups by result.",
	}, []string{"result"})
	reg.MustRegister(operations, refunded, statsCache)
	return &PaymentMetrics{
		operations: operations,
		refunded:   refunded,
		statsCache: statsCache,
	}
}

// ObserveOperation counts an operation; err decides the outcome label.
func (m *PaymentMetrics) ObserveOperation(operation string, err error) {
	if m == nil || m.operations == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.operations.WithLabelValues(normalizeLabel(operation), outcome).Inc()
}

// AddRefund adds a refunded amount under "full" or "partial".
func (m *PaymentMetrics) AddRefund(full bool, amount decimal.Decimal) {
	if m == nil || m.refunded == nil {
		return
	}
	kind := "partial"
	if full {
		kind = "full"
	}
	value, _ := amount.Float64()
	m.refunded.WithLabelValues(kind).Add(value)
}

// StatsCacheHit records a served-from-cache stats lookup.
func (m *PaymentMetrics) StatsCacheHit() { m.statsCacheInc("hit") }

// StatsCacheMiss records a stats lookup that had to aggregate.
func (m *PaymentMetrics) StatsCacheMiss() { m.statsCacheInc("miss") }

func (m *PaymentMetrics) statsCacheInc(result string) {
	if m == nil || m.statsCache == nil {
		return
	}
	m.statsCache.WithLabelValues(result).Inc()
}
