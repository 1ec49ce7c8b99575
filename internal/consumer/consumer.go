// Package consumer implements the category-stream consumer engine: the
// poll loop that gets a batch of messages, dispatches them to ordered
// handlers, checkpoints progress, and paces itself with a back-off policy
// between iterations.
package consumer

import (
	"context"
	"log/slog"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/sbditto85/eventide-go/internal/backoff"
	"github.com/sbditto85/eventide-go/internal/messagestore"
	"github.com/sbditto85/eventide-go/internal/positionstore"
	"github.com/sbditto85/eventide-go/internal/runtimeclock"
	"github.com/sbditto85/eventide-go/internal/telemetry"
)

// Consumer is the owned aggregate: category, ordered handlers, current
// position, a position-update counter, settings, and the collaborators it
// polls and checkpoints through. Once started, it lives exclusively in its
// own worker goroutine until the worker returns; only the active flag and
// iterations counter are shared with the caller's Handle.
type Consumer struct {
	category string
	handlers []Handler
	settings Settings

	getter        messagestore.Getter
	backOff       backoff.BackOff
	runtime       runtimeclock.RunTime
	positionStore positionstore.Store
	sink          telemetry.Sink

	position              uint64
	positionUpdateCounter uint64

	active     *atomic.Bool
	iterations *atomic.Uint64
}

// Category reports the category this consumer polls.
func (c *Consumer) Category() string { return c.category }

// Position reports the in-memory next-position-to-request. Only
// meaningful once the worker has exited and the Consumer value is
// inspected through Wait's result.
func (c *Consumer) Position() uint64 { return c.position }

// initialize loads the starting position from the position store and logs
// it, per the poll loop's start-up step. Runs exactly once, at Start; this
// consumer is single-shot, matching the reference implementation's
// never-restarts behavior — a new Builder must be used to resume.
func (c *Consumer) initialize() {
	c.position = c.positionStore.Get()
	slog.Info("consumer initialized",
		slog.String("category", c.category),
		slog.Uint64("position", c.position))
}

// setInactive idempotently marks the consumer inactive.
func (c *Consumer) setInactive() {
	c.active.Store(false)
}

// run executes the poll loop until cancellation, a run-limit, or an error.
// Step numbering follows the poll loop's specification: read active,
// increment iterations, get, dispatch, checkpoint, back off, sleep,
// consult should_continue.
func (c *Consumer) run() error {
	tracer := otel.Tracer("consumer")

	for {
		if !c.active.Load() {
			c.setInactive()
			return nil
		}

		iteration := c.iterations.Add(1)

		_, span := tracer.Start(context.Background(), "consumer.iteration")
		span.SetAttributes(
			attribute.String("category", c.category),
			attribute.Int64("iteration", int64(iteration)),
		)

		messages, err := c.getter.Get(c.position)
		if err != nil {
			span.SetAttributes(attribute.Bool("error", true))
			span.End()
			c.setInactive()
			return err
		}
		span.SetAttributes(attribute.Int("messages_fetched", len(messages)))

		if err := c.dispatch(messages); err != nil {
			span.End()
			c.setInactive()
			return err
		}
		span.End()

		c.sink.RecordData("consumer.iteration", iteration)

		wait := c.backOff.Duration(uint64(len(messages)))
		c.runtime.Sleep(wait)

		if !c.active.Load() {
			c.setInactive()
			return nil
		}
		if !c.runtime.ShouldContinue() {
			c.setInactive()
			return nil
		}
	}
}

// dispatch invokes every handler, in order, for each message in order. If
// any handler fails, the iteration aborts without updating position or
// flushing a checkpoint — the failing message is re-dispatched on a future
// consumer start.
func (c *Consumer) dispatch(messages []messagestore.MessageData) error {
	for _, message := range messages {
		for _, handler := range c.handlers {
			if err := handler.Handle(message); err != nil {
				c.sink.Record("consumer.handler_error")
				return &HandlerError{GlobalPosition: message.GlobalPosition, Err: err}
			}
		}

		c.position = message.GlobalPosition + 1
		c.positionUpdateCounter++
		if c.positionUpdateCounter >= c.settings.PositionUpdateInterval {
			c.positionStore.Put(message.GlobalPosition)
			c.positionUpdateCounter = 0
		}
	}
	return nil
}
