package metrics

import "github.com/prometheus/client_golang/prometheus"

// SchedulingMetrics exposes counters for booking-engine operations.
type SchedulingMetrics struct {
	bookingsTotal      *prometheus.CounterVec
	cancellationsTotal *prometheus.CounterVec
	reschedulesTotal   *prometheus.CounterVec
	availabilityTotal  prometheus.Counter
	adapterMode        *prometheus.GaugeVec
	adapterFallbacks   prometheus.Counter
}

func NewSchedulingMetrics(reg prometheus.Registerer) *SchedulingMetrics {
	m := &SchedulingMetrics{
		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "carewell",
			Subsystem: "scheduling",
			Name:      "bookings_total",
			Help:      "Total booking attempts",
		}, []string{"appointment_type", "status"}),
		cancellationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "carewell",
			Subsystem: "scheduling",
			Name:      "cancellations_total",
			Help:      "Total cancellation attempts",
		}, []string{"status"}),
		reschedulesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "carewell",
			Subsystem: "scheduling",
			Name:      "reschedules_total",
			Help:      "Total reschedule attempts",
		}, []string{"status"}),
		availabilityTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "carewell",
			Subsystem: "scheduling",
			Name:      "availability_queries_total",
			Help:      "Total availability queries",
		}),
		adapterMode: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "carewell",
			Subsystem: "scheduling",
			Name:      "adapter_mode",
			Help:      "Current scheduling adapter mode (1 for the active mode)",
		}, []string{"mode"}),
		adapterFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "carewell",
			Subsystem: "scheduling",
			Name:      "adapter_fallbacks_total",
			Help:      "Times the adapter degraded from real to fallback mode",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.bookingsTotal, m.cancellationsTotal, m.reschedulesTotal,
		m.availabilityTotal, m.adapterMode, m.adapterFallbacks)
	return m
}

func (m *SchedulingMetrics) ObserveBooking(appointmentType, status string) {
	if m == nil {
		return
	}
	m.bookingsTotal.WithLabelValues(appointmentType, status).Inc()
}

func (m *SchedulingMetrics) ObserveCancellation(status string) {
	if m == nil {
		return
	}
	m.cancellationsTotal.WithLabelValues(status).Inc()
}

func (m *SchedulingMetrics) ObserveReschedule(status string) {
	if m == nil {
		return
	}
	m.reschedulesTotal.WithLabelValues(status).Inc()
}

func (m *SchedulingMetrics) ObserveAvailabilityQuery() {
	if m == nil {
		return
	}
	m.availabilityTotal.Inc()
}

func (m *SchedulingMetrics) SetAdapterMode(mode string) {
	if m == nil {
		return
	}
	for _, known := range []string{"real", "mock", "fallback"} {
		v := 0.0
		if known == mode {
			v = 1.0
		}
		m.adapterMode.WithLabelValues(known).Set(v)
	}
}

func (m *SchedulingMetrics) ObserveAdapterFallback() {
	if m == nil {
		return
	}
	m.adapterFallbacks.Inc()
}

// ConversationMetrics exposes counters/histograms for the chat loop.
type ConversationMetrics struct {
	turnsTotal        *prometheus.CounterVec
	toolCallsTotal    *prometheus.CounterVec
	modelCallDuration *prometheus.HistogramVec
	roundsPerTurn     prometheus.Histogram
}

func NewConversationMetrics(reg prometheus.Registerer) *ConversationMetrics {
	m := &ConversationMetrics{
		turnsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "carewell",
			Subsystem: "conversation",
			Name:      "turns_total",
			Help:      "Total chat turns processed",
		}, []string{"outcome"}),
		toolCallsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "carewell",
			Subsystem: "conversation",
			Name:      "tool_calls_total",
			Help:      "Total tool invocations requested by the model",
		}, []string{"tool", "status"}),
		modelCallDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "carewell",
			Subsystem: "conversation",
			Name:      "model_call_duration_seconds",
			Help:      "Latency of model provider calls",
			Buckets:   prometheus.DefBuckets,
		}, []string{"provider"}),
		roundsPerTurn: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "carewell",
			Subsystem: "conversation",
			Name:      "rounds_per_turn",
			Help:      "Tool-execution rounds consumed per chat turn",
			Buckets:   []float64{1, 2, 3, 4, 5},
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.turnsTotal, m.toolCallsTotal, m.modelCallDuration, m.roundsPerTurn)
	return m
}

func (m *ConversationMetrics) ObserveTurn(outcome string) {
	if m == nil {
		return
	}
	m.turnsTotal.WithLabelValues(outcome).Inc()
}

func (m *ConversationMetrics) ObserveToolCall(tool, status string) {
	if m == nil {
		return
	}
	m.toolCallsTotal.WithLabelValues(tool, status).Inc()
}

func (m *ConversationMetrics) ObserveModelCall(provider string, seconds float64) {
	if m == nil {
		return
	}
	m.modelCallDuration.WithLabelValues(provider).Observe(seconds)
}

func (m *ConversationMetrics) ObserveRounds(rounds int) {
	if m == nil {
		return
	}
	m.roundsPerTurn.Observe(float64(rounds))
}
