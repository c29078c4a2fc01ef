// Package metrics exposes ledger and provider counters to Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shopspring/decimal"
)

// Collector is what the services report to.
type Collector interface {
	RecordTransaction(txType, status string)
	RecordProviderCall(provider, operation, outcome string, d time.Duration)
	RecordWebhook(eventType, outcome string)
	RecordCashback(service string, amount decimal.Decimal)
	RecordRevenueCollected(amount decimal.Decimal)
	RecordLockWait(d time.Duration)
}

// NoopCollector is a no-op implementation of Collector
type NoopCollector struct{}

func (NoopCollector) RecordTransaction(string, string)                          {}
func (NoopCollector) RecordProviderCall(string, string, string, time.Duration) {}
func (NoopCollector) RecordWebhook(string, string)                              {}
func (NoopCollector) RecordCashback(string, decimal.Decimal)                    {}
func (NoopCollector) RecordRevenueCollected(decimal.Decimal)                    {}
func (NoopCollector) RecordLockWait(time.Duration)                              {}

type Prometheus struct {
	transactions     *prometheus.CounterVec
	providerCalls    *prometheus.CounterVec
	providerDuration *prometheus.HistogramVec
	webhooks         *prometheus.CounterVec
	cashback         *prometheus.CounterVec
	revenueCollected prometheus.Counter
	lockWait         prometheus.Histogram
}

// NewPrometheus registers the engine's metrics on reg.
func NewPrometheus(reg prometheus.Registerer) *Prometheus {
	factory := promauto.With(reg)
	return &Prometheus{
		transactions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_transactions_total",
				Help: "Ledger records written, by type and status",
			},
			[]string{"type", "status"},
		),
		providerCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "provider_calls_total",
				Help: "External provider calls by provider, operation and outcome",
			},
			[]string{"provider", "operation", "outcome"},
		),
		providerDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "provider_call_duration_seconds",
				Help:    "Latency of external provider calls",
				Buckets: []float64{.05, .1, .25, .5, 1, 2, 5, 10, 30},
			},
			[]string{"provider", "operation"},
		),
		webhooks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webhook_events_total",
				Help: "Webhook events by type and reconciliation outcome",
			},
			[]string{"event_type", "outcome"},
		),
		cashback: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "loyalty_cashback_amount_total",
				Help: "Cashback credited, in currency units",
			},
			[]string{"service"},
		),
		revenueCollected: factory.NewCounter(prometheus.CounterOpts{
			Name: "revenue_collected_amount_total",
			Help: "Revenue swept to the settlement account, in currency units",
		}),
		lockWait: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "wallet_lock_wait_seconds",
			Help:    "Time spent waiting for a per-user wallet lock",
			Buckets: []float64{.001, .01, .05, .1, .5, 1, 5},
		}),
	}
}

func (p *Prometheus) RecordTransaction(txType, status string) {
	p.transactions.WithLabelValues(txType, status).Inc()
}

func (p *Prometheus) RecordProviderCall(provider, operation, outcome string, d time.Duration) {
	p.providerCalls.WithLabelValues(provider, operation, outcome).Inc()
	p.providerDuration.WithLabelValues(provider, operation).Observe(d.Seconds())
}

func (p *Prometheus) RecordWebhook(eventType, outcome string) {
	p.webhooks.WithLabelValues(eventType, outcome).Inc()
}

func (p *Prometheus) RecordCashback(service string, amount decimal.Decimal) {
	p.cashback.WithLabelValues(service).Add(amount.InexactFloat64())
}

func (p *Prometheus) RecordRevenueCollected(amount decimal.Decimal) {
	p.revenueCollected.Add(amount.InexactFloat64())
}

func (p *Prometheus) RecordLockWait(d time.Duration) {
	p.lockWait.Observe(d.Seconds())
}
