package consumer

import (
	"sync/atomic"

	"github.com/sbditto85/eventide-go/internal/backoff"
	"github.com/sbditto85/eventide-go/internal/messagestore"
	"github.com/sbditto85/eventide-go/internal/messagestore/substitute"
	positionsubstitute "github.com/sbditto85/eventide-go/internal/positionstore/substitute"
	"github.com/sbditto85/eventide-go/internal/runtimeclock"
	"github.com/sbditto85/eventide-go/internal/telemetry"

	positionstorepkg "github.com/sbditto85/eventide-go/internal/positionstore"
)

// DefaultBackOffDuration is used when a Builder is not given an explicit
// back-off policy.
const DefaultBackOffDuration = 0

// Builder offers a synchronous, non-fallible configuration surface before a
// consumer is moved into its own worker goroutine by Start. Interface-typed
// fields let any With* call swap one capability without re-specifying the
// others, satisfying the "type-transforming setter" requirement with plain
// Go interfaces instead of generic staged builders.
type Builder struct {
	consumer *Consumer

	substituteGetter        *substitute.Getter
	substitutePositionStore *positionsubstitute.Store
}

// NewTestBuilder constructs a Builder wired entirely to in-memory
// substitutes: a substitute.Getter, an in-memory position store, and a
// SubstituteRunTime with a run budget of zero, so the loop stops after its
// first iteration unless WithRunTime installs a different runtime. This is
// the entry point deterministic unit tests use.
func NewTestBuilder(category string) *Builder {
	primary := telemetry.NewInMemorySink()
	fanout := telemetry.NewFanout()
	fanout.Register(primary)

	getter := substitute.NewGetter(category, primary)
	// The position store records its own "get_count" signal, so it gets a
	// separate sink to keep the getter's counts apart.
	positionStore := positionsubstitute.NewStore(telemetry.NewInMemorySink())

	c := &Consumer{
		category:      category,
		settings:      NewSettings(),
		getter:        getter,
		backOff:       backoff.NewConstant(DefaultBackOffDuration),
		runtime:       runtimeclock.NewSubstituteRunTime(0),
		positionStore: positionStore,
		sink:          fanout,
	}
	return &Builder{consumer: c, substituteGetter: getter, substitutePositionStore: positionStore}
}

// Getter returns the substitute.Getter backing a NewTestBuilder consumer,
// for tests that assert on get_count/get_messages_count before Start. Nil
// for builders constructed with New.
func (b *Builder) Getter() *substitute.Getter {
	return b.substituteGetter
}

// PositionStore returns the substitute position store backing a
// NewTestBuilder consumer, for tests that seed a resume position or assert
// on put_count. Nil for builders constructed with New.
func (b *Builder) PositionStore() *positionsubstitute.Store {
	return b.substitutePositionStore
}

// New constructs a Builder around caller-supplied collaborators, the
// general-purpose entry point production code uses once it has built a
// category.Getter and category.Store against a real store session.
func New(category string, getter messagestore.Getter, positionStore positionstorepkg.Store) *Builder {
	c := &Consumer{
		category:      category,
		settings:      NewSettings(),
		getter:        getter,
		backOff:       backoff.NewConstant(DefaultBackOffDuration),
		runtime:       runtimeclock.NewSystemRunTime(),
		positionStore: positionStore,
		sink:          telemetry.NewFanout(),
	}
	return &Builder{consumer: c}
}

// AddHandler appends a handler to the ordered dispatch list.
func (b *Builder) AddHandler(h Handler) *Builder {
	b.consumer.handlers = append(b.consumer.handlers, h)
	return b
}

// WithSettings replaces the settings value. The getter must already be
// constructed against the fields it cares about (batch size, correlation,
// consumer-group partition, condition); only PositionUpdateInterval is read
// by the consumer itself, per design note 9's settings-sharing guidance.
func (b *Builder) WithSettings(s Settings) *Builder {
	b.consumer.settings = s
	return b
}

// WithBackOff replaces the back-off policy.
func (b *Builder) WithBackOff(backOff backoff.BackOff) *Builder {
	b.consumer.backOff = backOff
	return b
}

// WithRunTime replaces the runtime clock.
func (b *Builder) WithRunTime(rt runtimeclock.RunTime) *Builder {
	b.consumer.runtime = rt
	return b
}

// WithGetter replaces the getter.
func (b *Builder) WithGetter(getter messagestore.Getter) *Builder {
	b.consumer.getter = getter
	return b
}

// WithPositionStore replaces the position store.
func (b *Builder) WithPositionStore(store positionstorepkg.Store) *Builder {
	b.consumer.positionStore = store
	return b
}

// WithTelemetrySink registers an additional telemetry sink on the
// consumer's fan-out, if one is in use. No-op if the builder's consumer was
// constructed with a non-fan-out sink.
func (b *Builder) WithTelemetrySink(sink telemetry.Sink) *Builder {
	if fanout, ok := b.consumer.sink.(*telemetry.Fanout); ok {
		fanout.Register(sink)
	}
	return b
}

// Start transfers ownership of the configured consumer into a worker
// goroutine and returns a Handle. Per the poll loop's start-up contract:
// the shared active flag and iterations counter are established here
// (the only state visible to the Handle), then the worker calls initialize
// and enters the poll loop.
func (b *Builder) Start() *Handle {
	c := b.consumer

	active := &atomic.Bool{}
	active.Store(true)
	iterations := &atomic.Uint64{}

	c.active = active
	c.iterations = iterations

	resultCh := make(chan workerResult, 1)

	go func() {
		c.initialize()
		err := c.run()
		resultCh <- workerResult{consumer: c, err: err}
	}()

	return &Handle{
		active:     active,
		iterations: iterations,
		resultCh:   resultCh,
	}
}
