package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "checkout"

// CheckoutMetrics counts payment sessions and confirmations.
type CheckoutMetrics struct {
	sessions      *prometheus.CounterVec
	rollbacks     prometheus.Counter
	confirmations *prometheus.CounterVec
	pendingSize   prometheus.Gauge
}

// NewCheckoutMetrics registers the checkout metrics on the provided registerer.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	sessions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sessions_total",
		Help:      "Checkout session attempts by result and failing stage.",
	}, []string{"result", "stage"})
	rollbacks := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "pending_rollbacks_total",
		Help:      "Pending intents evicted after a failed session creation.",
	})
	confirmations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "confirmations_total",
		Help:      "Payment confirmations by outcome.",
	}, []string{"outcome"})
	pendingSize := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "pending_intents",
		Help:      "Pending intents held by the in-process store after the last sweep.",
	})
	reg.MustRegister(sessions, rollbacks, confirmations, pendingSize)
	return &CheckoutMetrics{
		sessions:      sessions,
		rollbacks:     rollbacks,
		confirmations: confirmations,
		pendingSize:   pendingSize,
	}
}

func (m *CheckoutMetrics) SessionCreated() {
	if m == nil || m.sessions == nil {
		return
	}
	m.sessions.WithLabelValues("created", "").Inc()
}

func (m *CheckoutMetrics) SessionFailed(stage string) {
	if m == nil || m.sessions == nil {
		return
	}
	m.sessions.WithLabelValues("failed", normalizeLabel(stage)).Inc()
}

func (m *CheckoutMetrics) IntentRolledBack() {
	if m == nil || m.rollbacks == nil {
		return
	}
	m.rollbacks.Inc()
}

func (m *CheckoutMetrics) Confirmation(outcome string) {
	if m == nil || m.confirmations == nil {
		return
	}
	m.confirmations.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// SetPendingSize records the current number of live pending intents.
func (m *CheckoutMetrics) SetPendingSize(n int) {
	if m == nil || m.pendingSize == nil {
		return
	}
	m.pendingSize.Set(float64(n))
}
