package telemetry

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/twmb/franz-go/plugin/kotel"
	"go.opentelemetry.io/otel"
)

// kafkaSignal is the wire payload published for every recorded signal.
type kafkaSignal struct {
	Signal    string          `json:"signal"`
	Data      json.RawMessage `json:"data,omitempty"`
	Recordedt int64           `json:"recorded_at"`
}

// KafkaSink publishes every recorded signal (and its JSON payload, if
// any) to an operator-facing audit topic. The core never consumes or
// produces business messages over Kafka — the message store is
// Postgres — but telemetry signals are a natural thing to ship to a
// broker for downstream alerting.
type KafkaSink struct {
	client *kgo.Client
	topic  string
	inner  *InMemorySink
}

// NewKafkaSink constructs a producer-only client against brokers, wired
// with the same kotel tracing hooks the teacher's Redpanda consumer
// uses, and publishing to topic.
func NewKafkaSink(brokers []string, topic string) (*KafkaSink, error) {
	tracer := kotel.NewTracer(kotel.TracerProvider(otel.GetTracerProvider()))
	kotelService := kotel.NewKotel(kotel.WithTracer(tracer))

	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.WithHooks(kotelService.Hooks()...),
	)
	if err != nil {
		return nil, err
	}

	return &KafkaSink{client: client, topic: topic, inner: NewInMemorySink()}, nil
}

// Record publishes a bare signal (no payload) to the audit topic.
func (s *KafkaSink) Record(signal string) {
	s.inner.Record(signal)
	s.publish(signal, nil)
}

// RecordData publishes signal with its JSON-encoded payload to the audit
// topic.
func (s *KafkaSink) RecordData(signal string, data any) {
	s.inner.RecordData(signal, data)
	raw, err := json.Marshal(data)
	if err != nil {
		slog.Error("kafka sink: failed to marshal telemetry payload", slog.String("signal", signal), slog.Any("error", err))
		s.publish(signal, nil)
		return
	}
	s.publish(signal, raw)
}

// Recorded reports whether signal has been recorded at least once.
func (s *KafkaSink) Recorded(signal string) bool {
	return s.inner.Recorded(signal)
}

// DataRecorded returns the payload recorded for signal, if any.
func (s *KafkaSink) DataRecorded(signal string) (any, bool) {
	return s.inner.DataRecorded(signal)
}

// Close flushes and closes the underlying producer.
func (s *KafkaSink) Close() {
	if s == nil || s.client == nil {
		return
	}
	s.client.Close()
}

func (s *KafkaSink) publish(signal string, data json.RawMessage) {
	payload, err := json.Marshal(kafkaSignal{Signal: signal, Data: data, Recordedt: time.Now().UnixNano()})
	if err != nil {
		slog.Error("kafka sink: failed to marshal audit record", slog.String("signal", signal), slog.Any("error", err))
		return
	}

	record := &kgo.Record{Topic: s.topic, Key: []byte(signal), Value: payload}
	s.client.Produce(context.Background(), record, func(_ *kgo.Record, err error) {
		if err != nil {
			slog.Error("kafka sink: failed to publish telemetry record", slog.String("signal", signal), slog.Any("error", err))
		}
	})
}
