package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "smartchat"

// ChatMetrics exposes counters/histograms for conversation flows.
type ChatMetrics struct {
	turnsTotal       *prometheus.CounterVec
	intentTotal      *prometheus.CounterVec
	stateTransitions *prometheus.CounterVec
	leadDeliveries   *prometheus.CounterVec
	leadLatency      *prometheus.HistogramVec
	sessionStoreErrs *prometheus.CounterVec
	turnLatency      *prometheus.HistogramVec
}

func NewChatMetrics(reg prometheus.Registerer) *ChatMetrics {
	m := &ChatMetrics{
		turnsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chat",
			Name:      "turns_total",
			Help:      "Visitor turns by the responder that answered",
		}, []string{"matcher", "lang"}),
		intentTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chat",
			Name:      "intent_total",
			Help:      "Classified visitor intent levels",
		}, []string{"level"}),
		stateTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chat",
			Name:      "state_transitions_total",
			Help:      "Conversation state changes",
		}, []string{"from", "to"}),
		leadDeliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "leads",
			Name:      "deliveries_total",
			Help:      "Lead deliveries by sink and outcome",
		}, []string{"sink", "outcome"}),
		leadLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "leads",
			Name:      "delivery_latency_seconds",
			Help:      "Latency of lead delivery per sink",
			Buckets:   prometheus.DefBuckets,
		}, []string{"sink"}),
		sessionStoreErrs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "store_errors_total",
			Help:      "Session persistence failures by operation",
		}, []string{"op"}),
		turnLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "chat",
			Name:      "turn_latency_seconds",
			Help:      "Time to process one visitor turn, typing delay included",
			Buckets:   prometheus.DefBuckets,
		}, []string{"transport"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.turnsTotal, m.intentTotal, m.stateTransitions, m.leadDeliveries, m.leadLatency, m.sessionStoreErrs, m.turnLatency)
	return m
}

func (m *ChatMetrics) ObserveTurn(matcher, lang string) {
	if m == nil {
		return
	}
	if matcher == "" {
		matcher = "lead_form"
	}
	m.turnsTotal.WithLabelValues(matcher, lang).Inc()
}

func (m *ChatMetrics) ObserveIntent(level string) {
	if m == nil || level == "" {
		return
	}
	m.intentTotal.WithLabelValues(level).Inc()
}

func (m *ChatMetrics) ObserveTransition(from, to string) {
	if m == nil || from == to {
		return
	}
	m.stateTransitions.WithLabelValues(from, to).Inc()
}

func (m *ChatMetrics) ObserveLeadDelivery(sink string, err error, seconds float64) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.leadDeliveries.WithLabelValues(sink, outcome).Inc()
	m.leadLatency.WithLabelValues(sink).Observe(seconds)
}

func (m *ChatMetrics) ObserveSessionStoreError(op string) {
	if m == nil {
		return
	}
	m.sessionStoreErrs.WithLabelValues(op).Inc()
}

func (m *ChatMetrics) ObserveTurnLatency(transport string, seconds float64) {
	if m == nil {
		return
	}
	m.turnLatency.WithLabelValues(transport).Observe(seconds)
}
