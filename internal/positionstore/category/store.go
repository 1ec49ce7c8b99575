// Package category provides the production PositionStore: checkpoints are
// written as Recorded events to a <category>:position stream and resumed by
// reading that stream's last message.
package category

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/sbditto85/eventide-go/internal/positionstore"
	"github.com/sbditto85/eventide-go/internal/telemetry"
)

// recordedPayload is the JSON shape written to the position stream.
type recordedPayload struct {
	Position uint64 `json:"position"`
}

// Store writes Recorded position events via write_message and resumes by
// reading the position stream's last message.
type Store struct {
	pool       *pgxpool.Pool
	category   string
	streamName string
	sink       telemetry.Sink
}

// Option customizes a Store at construction.
type Option func(*Store)

// WithSink registers a telemetry sink the store records get/put signals to.
func WithSink(sink telemetry.Sink) Option {
	return func(s *Store) { s.sink = sink }
}

// NewStore builds a production position store for category against pool.
func NewStore(pool *pgxpool.Pool, category string, opts ...Option) *Store {
	s := &Store{
		pool:       pool,
		category:   category,
		streamName: PositionStreamName(category),
		sink:       telemetry.NewInMemorySink(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get reads the last recorded position event on the position stream, or
// positionstore.DefaultPosition if the stream is empty.
func (s *Store) Get() uint64 {
	s.sink.Record("get_count")
	ctx := context.Background()

	tracer := otel.Tracer("positionstore.category")
	ctx, span := tracer.Start(ctx, "category.Get")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation", "SELECT"),
		attribute.String("stream_name", s.streamName),
	)

	var data []byte
	row := s.pool.QueryRow(ctx, GetLastStreamMessageSQL, s.streamName)
	err := row.Scan(&data)
	if err != nil {
		slog.Warn("op=positionstore.category.Get: no recorded position, resuming from default",
			slog.String("stream_name", s.streamName), slog.Any("error", err))
		return positionstore.DefaultPosition
	}

	var payload recordedPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		slog.Error("op=positionstore.category.Get: malformed recorded position, resuming from default",
			slog.String("stream_name", s.streamName), slog.Any("error", err))
		return positionstore.DefaultPosition
	}
	return payload.Position
}

// Put durably records position as a Recorded event on the position stream.
// Failures are logged, not returned: per spec, put is best-effort durable
// and the consumer tolerates loss of the most recent un-flushed positions.
func (s *Store) Put(position uint64) {
	s.sink.Record("put_count")
	ctx := context.Background()

	tracer := otel.Tracer("positionstore.category")
	ctx, span := tracer.Start(ctx, "category.Put")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation", "INSERT"),
		attribute.String("stream_name", s.streamName),
		attribute.Int64("position", int64(position)),
	)

	data, err := json.Marshal(recordedPayload{Position: position})
	if err != nil {
		slog.Error("op=positionstore.category.Put: marshaling payload", slog.Any("error", err))
		return
	}

	_, err = s.pool.Exec(ctx, WriteMessageSQL,
		uuid.New().String(), s.streamName, "Recorded", data, []byte("{}"), AnyVersion)
	if err != nil {
		slog.Error("op=positionstore.category.Put: write_message failed",
			slog.String("stream_name", s.streamName), slog.Any("error", err))
		return
	}
}
