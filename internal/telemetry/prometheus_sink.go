package telemetry

import (
	"github.com/sbditto85/eventide-go/internal/observability"
)

// PrometheusSink adapts the generic Sink interface onto this domain's
// Prometheus vectors, so the core's signal/record-data model and
// Prometheus metrics are wired through the same fan-out rather than two
// parallel observability paths. Category is fixed at construction since
// one consumer (and one sink registration) is scoped to one category.
type PrometheusSink struct {
	category string
	inner    *InMemorySink
}

// NewPrometheusSink constructs a sink that increments/observes the
// matching consumer_* vector for every recorded signal, while still
// accumulating in-memory state so Recorded/DataRecorded remain queryable.
func NewPrometheusSink(category string) *PrometheusSink {
	return &PrometheusSink{category: category, inner: NewInMemorySink()}
}

// Record increments the matching counter vector for known signals; unknown
// signals are recorded in-memory only.
func (s *PrometheusSink) Record(signal string) {
	s.inner.Record(signal)
	switch signal {
	case "consumer.handler_error":
		observability.ConsumerHandlerErrorsTotal.WithLabelValues(s.category, "").Inc()
	case "put_count":
		observability.PositionStorePutTotal.WithLabelValues(s.category).Inc()
	}
}

// RecordData increments/observes the matching vector with a structured
// payload attached, and records the payload in-memory.
func (s *PrometheusSink) RecordData(signal string, data any) {
	s.inner.RecordData(signal, data)
	switch signal {
	case "consumer.iteration":
		observability.ConsumerIterationsTotal.WithLabelValues(s.category).Inc()
	case "get_messages_count":
		if count, ok := toFloat64(data); ok {
			observability.ConsumerMessagesHandledTotal.WithLabelValues(s.category).Add(count)
		}
	}
}

// Recorded reports whether signal has been recorded at least once.
func (s *PrometheusSink) Recorded(signal string) bool {
	return s.inner.Recorded(signal)
}

// DataRecorded returns the payload recorded for signal, if any.
func (s *PrometheusSink) DataRecorded(signal string) (any, bool) {
	return s.inner.DataRecorded(signal)
}

func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case uint64:
		return float64(n), true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}
