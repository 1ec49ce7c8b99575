// Package substitute provides the in-memory Getter test double used by
// consumer unit tests in place of a real store round-trip.
package substitute

import (
	"github.com/sbditto85/eventide-go/internal/messagestore"
	"github.com/sbditto85/eventide-go/internal/telemetry"
)

// Getter holds an in-memory queue of messages and drains it per Get call,
// slicing from index position-1 so tests can simulate resuming from any
// position within (or past) the queue.
type Getter struct {
	category     string
	lastPosition uint64
	messages     []messagestore.MessageData
	sink         telemetry.Sink
}

// NewGetter constructs an empty substitute getter for category. sink may be
// nil, in which case telemetry is silently discarded.
func NewGetter(category string, sink telemetry.Sink) *Getter {
	if sink == nil {
		sink = telemetry.NewInMemorySink()
	}
	return &Getter{category: category, sink: sink}
}

// QueueMessages appends messages to the in-memory queue returned by
// subsequent Get calls.
func (g *Getter) QueueMessages(messages ...messagestore.MessageData) {
	g.messages = append(g.messages, messages...)
}

// LastPositionRequested reports the position passed to the most recent Get
// call, or 0 if Get has never been called.
func (g *Getter) LastPositionRequested() uint64 {
	return g.lastPosition
}

// GetCount reports how many times Get has been called.
func (g *Getter) GetCount() uint64 {
	return readCount(g.sink, "get_count")
}

// GetMessagesCount reports the cumulative number of messages returned
// across all Get calls.
func (g *Getter) GetMessagesCount() uint64 {
	return readCount(g.sink, "get_messages_count")
}

// Get returns the queued messages from queue index position-1 onward,
// treating position as inclusive of the first eligible message (a position
// of 1 addresses the first queued message). The queued messages' own
// GlobalPosition values are not consulted.
func (g *Getter) Get(position uint64) ([]messagestore.MessageData, error) {
	g.lastPosition = position
	recordIncrement(g.sink, "get_count", 1)

	if len(g.messages) == 0 {
		return []messagestore.MessageData{}, nil
	}

	index := position - 1
	if index >= uint64(len(g.messages)) {
		recordIncrement(g.sink, "get_messages_count", 0)
		return []messagestore.MessageData{}, nil
	}

	limited := append([]messagestore.MessageData(nil), g.messages[index:]...)
	recordIncrement(g.sink, "get_messages_count", uint64(len(limited)))
	return limited, nil
}

func readCount(sink telemetry.Sink, signal string) uint64 {
	data, ok := sink.DataRecorded(signal)
	if !ok {
		return 0
	}
	count, ok := data.(uint64)
	if !ok {
		return 0
	}
	return count
}

func recordIncrement(sink telemetry.Sink, signal string, delta uint64) {
	sink.RecordData(signal, readCount(sink, signal)+delta)
}
