package metrics

import "github.com/prometheus/client_golang/prometheus"

// ChatMetrics exposes counters for the chat and booking flows.
type ChatMetrics struct {
	chatTurns       *prometheus.CounterVec
	bookingsCreated prometheus.Counter
	llmFailures     prometheus.Counter
	remindersSent   *prometheus.CounterVec
}

func NewChatMetrics(reg prometheus.Registerer) *ChatMetrics {
	m := &ChatMetrics{
		chatTurns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "raven",
			Subsystem: "chat",
			Name:      "turns_total",
			Help:      "Total chat turns handled",
		}, []string{"language"}),
		bookingsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "raven",
			Subsystem: "chat",
			Name:      "bookings_created_total",
			Help:      "Total appointments booked through the chat flow",
		}),
		llmFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "raven",
			Subsystem: "chat",
			Name:      "llm_failures_total",
			Help:      "Total LLM calls that returned an error",
		}),
		remindersSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "raven",
			Subsystem: "reminders",
			Name:      "sent_total",
			Help:      "Total appointment reminders sent",
		}, []string{"kind"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.chatTurns, m.bookingsCreated, m.llmFailures, m.remindersSent)
	return m
}

func (m *ChatMetrics) ObserveChatTurn(language string) {
	if m == nil {
		return
	}
	if language == "" {
		language = "fr"
	}
	m.chatTurns.WithLabelValues(language).Inc()
}

func (m *ChatMetrics) ObserveBookingCreated() {
	if m == nil {
		return
	}
	m.bookingsCreated.Inc()
}

func (m *ChatMetrics) ObserveLLMFailure() {
	if m == nil {
		return
	}
	m.llmFailures.Inc()
}

func (m *ChatMetrics) ObserveReminderSent(kind string) {
	if m == nil {
		return
	}
	m.remindersSent.WithLabelValues(kind).Inc()
}
