// Package category provides the production Getter: a single
// get_category_messages call per fetch against a PostgreSQL-backed message
// store, guarded by a circuit breaker and an optional rate limiter.
package category

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/sbditto85/eventide-go/internal/messagestore"
	"github.com/sbditto85/eventide-go/internal/observability"
	"github.com/sbditto85/eventide-go/internal/telemetry"
)

// RateLimiter throttles Getter.Get calls per category. Implementations may
// fail open (return allowed=true) on their own transport errors.
type RateLimiter interface {
	Allow(ctx context.Context, key string, cost int64) (allowed bool, err error)
}

// Config carries the fetch-shaping knobs the getter reads at construction:
// batch size, correlation filter, consumer-group partitioning, and a
// server-side condition. These are read once and never mutated after the
// getter is built, per design note 9's settings-sharing guidance.
type Config struct {
	BatchSize           uint64
	Correlation         string
	ConsumerGroupMember *uint64
	ConsumerGroupSize   *uint64
	Condition           string
}

// Getter issues get_category_messages calls against a pgx pool.
type Getter struct {
	pool     *pgxpool.Pool
	category string
	cfg      Config
	sink     telemetry.Sink
	breaker  *observability.CircuitBreaker
	limiter  RateLimiter
}

// Option customizes a Getter at construction.
type Option func(*Getter)

// WithSink registers a telemetry sink the getter records get/get-messages
// signals to.
func WithSink(sink telemetry.Sink) Option {
	return func(g *Getter) { g.sink = sink }
}

// WithCircuitBreaker installs a circuit breaker guarding Get calls. Without
// one, Get always executes.
func WithCircuitBreaker(breaker *observability.CircuitBreaker) Option {
	return func(g *Getter) { g.breaker = breaker }
}

// WithRateLimiter installs a rate limiter throttling Get calls across
// partitioned consumer-group processes sharing this category.
func WithRateLimiter(limiter RateLimiter) Option {
	return func(g *Getter) { g.limiter = limiter }
}

// NewGetter builds a production Getter for category against pool.
func NewGetter(pool *pgxpool.Pool, category string, cfg Config, opts ...Option) *Getter {
	g := &Getter{pool: pool, category: category, cfg: cfg, sink: telemetry.NewInMemorySink()}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Get issues a single get_category_messages call starting at position,
// inclusive, and maps each returned row into a MessageData.
func (g *Getter) Get(position uint64) ([]messagestore.MessageData, error) {
	ctx := context.Background()

	if g.breaker != nil && !g.breaker.CanExecute() {
		err := fmt.Errorf("circuit breaker open for category %s", g.category)
		return nil, messagestore.NewGetError(g.category, position, err)
	}

	if g.limiter != nil {
		allowed, err := g.limiter.Allow(ctx, g.category, 1)
		if err == nil && !allowed {
			return nil, messagestore.NewGetError(g.category, position, fmt.Errorf("rate limited"))
		}
	}

	tracer := otel.Tracer("messagestore.category")
	ctx, span := tracer.Start(ctx, "category.Get")
	defer span.End()
	span.SetAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation", "SELECT"),
		attribute.String("category", g.category),
		attribute.Int64("position", int64(position)),
	)

	g.sink.Record("get_count")

	rows, err := g.query(ctx, position)
	if err != nil {
		if g.breaker != nil {
			g.breaker.RecordFailure()
		}
		return nil, messagestore.NewGetError(g.category, position, fmt.Errorf("op=messagestore.category.Get: %w", err))
	}

	if g.breaker != nil {
		g.breaker.RecordSuccess()
	}
	g.sink.RecordData("get_messages_count", len(rows))
	return rows, nil
}

func (g *Getter) query(ctx context.Context, position uint64) ([]messagestore.MessageData, error) {
	batchSize := g.cfg.BatchSize
	if batchSize == 0 {
		batchSize = 1000
	}

	var correlation, condition any
	if g.cfg.Correlation != "" {
		correlation = g.cfg.Correlation
	}
	if g.cfg.Condition != "" {
		condition = g.cfg.Condition
	}
	var member, size any
	if g.cfg.ConsumerGroupMember != nil {
		member = *g.cfg.ConsumerGroupMember
	}
	if g.cfg.ConsumerGroupSize != nil {
		size = *g.cfg.ConsumerGroupSize
	}

	rows, err := g.pool.Query(ctx, GetCategoryMessagesSQL,
		g.category, int64(position), int64(batchSize), correlation, member, size, condition)
	if err != nil {
		return nil, fmt.Errorf("executing get_category_messages: %w", err)
	}
	defer rows.Close()

	var messages []messagestore.MessageData
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return messages, fmt.Errorf("scanning row: %w", err)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return messages, fmt.Errorf("iterating rows: %w", err)
	}
	return messages, nil
}

func scanMessage(rows pgx.Rows) (messagestore.MessageData, error) {
	fields := rows.FieldDescriptions()
	values, err := rows.Values()
	if err != nil {
		return messagestore.MessageData{}, err
	}

	var msg messagestore.MessageData
	for i, f := range fields {
		switch string(f.Name) {
		case "global_position":
			pos, err := toUint64(values[i])
			if err != nil {
				return messagestore.MessageData{}, fmt.Errorf("reading global_position: %w", err)
			}
			msg.GlobalPosition = pos
		case "data":
			if values[i] != nil {
				payload, err := json.Marshal(values[i])
				if err != nil {
					return messagestore.MessageData{}, fmt.Errorf("marshaling data column: %w", err)
				}
				msg.Payload = payload
			}
		}
	}
	return msg, nil
}

func toUint64(v any) (uint64, error) {
	switch n := v.(type) {
	case int64:
		return uint64(n), nil
	case int32:
		return uint64(n), nil
	case int:
		return uint64(n), nil
	default:
		return 0, fmt.Errorf("unexpected global_position type %T", v)
	}
}
