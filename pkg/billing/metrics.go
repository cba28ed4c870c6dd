package billing

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes Prometheus collectors for reconciliation and billing actions.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	reconciles      *prometheus.CounterVec
	batchDuration   prometheus.Histogram
	providerLatency *prometheus.HistogramVec
	gatewayActions  *prometheus.CounterVec
}

// MustNewMetrics registers the collectors with reg, reusing collectors that are
// already registered. Any other registration error panics.
func MustNewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		reconciles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "billsync",
			Name:      "reconcile_total",
			Help:      "Tenant reconciliations by mode and outcome.",
		}, []string{"mode", "outcome"}),
		batchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "billsync",
			Name:      "reconcile_batch_duration_seconds",
			Help:      "Wall time of full reconciliation batches.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		}),
		providerLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "billsync",
			Name:      "provider_request_duration_seconds",
			Help:      "Billing provider request latency by operation and result.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation", "result"}),
		gatewayActions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "billsync",
			Name:      "gateway_actions_total",
			Help:      "User-triggered billing actions by action and outcome.",
		}, []string{"action", "outcome"}),
	}

	if err := reg.Register(m.reconciles); err != nil {
		m.reconciles = existing[*prometheus.CounterVec](err)
	}
	if err := reg.Register(m.batchDuration); err != nil {
		m.batchDuration = existing[prometheus.Histogram](err)
	}
	if err := reg.Register(m.providerLatency); err != nil {
		m.providerLatency = existing[*prometheus.HistogramVec](err)
	}
	if err := reg.Register(m.gatewayActions); err != nil {
		m.gatewayActions = existing[*prometheus.CounterVec](err)
	}
	return m
}

func existing[T prometheus.Collector](err error) T {
	already, ok := err.(prometheus.AlreadyRegisteredError)
	if !ok {
		panic(err)
	}
	c, ok := already.ExistingCollector.(T)
	if !ok {
		panic(err)
	}
	return c
}

// ObserveReconcile counts one tenant reconciliation. mode is "batch" or "single".
func (m *Metrics) ObserveReconcile(mode string, res Result) {
	if m == nil {
		return
	}
	m.reconciles.WithLabelValues(mode, outcome(res)).Inc()
}

func (m *Metrics) ObserveBatch(d time.Duration) {
	if m == nil {
		return
	}
	m.batchDuration.Observe(d.Seconds())
}

func (m *Metrics) ObserveProviderRequest(operation string, err error, d time.Duration) {
	if m == nil {
		return
	}
	m.providerLatency.WithLabelValues(operation, resultLabel(err)).Observe(d.Seconds())
}

func (m *Metrics) ObserveGatewayAction(action string, err error) {
	if m == nil {
		return
	}
	m.gatewayActions.WithLabelValues(action, resultLabel(err)).Inc()
}

func outcome(res Result) string {
	switch {
	case res.Skipped:
		return "skipped"
	case res.Success:
		return "success"
	default:
		return string(res.ErrorKind)
	}
}

func resultLabel(err error) string {
	if err == nil {
		return "success"
	}
	return string(KindOf(err))
}
