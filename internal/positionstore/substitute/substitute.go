// Package substitute provides the in-memory PositionStore test double.
package substitute

import (
	"github.com/sbditto85/eventide-go/internal/positionstore"
	"github.com/sbditto85/eventide-go/internal/telemetry"
)

// Store is the in-memory position store: Get returns a seeded position (or
// positionstore.DefaultPosition if never seeded), and Put only records
// telemetry — it does not itself advance the position a later Get returns,
// matching the reference implementation's substitute, which lets tests seed
// the resume point explicitly via SetPosition rather than through Put.
type Store struct {
	position *uint64
	sink     telemetry.Sink
}

// NewStore constructs an empty position store. sink may be nil, in which
// case telemetry is silently discarded.
func NewStore(sink telemetry.Sink) *Store {
	if sink == nil {
		sink = telemetry.NewInMemorySink()
	}
	return &Store{sink: sink}
}

// SetPosition seeds the position Get will return, for tests simulating a
// resumed consumer.
func (s *Store) SetPosition(position uint64) {
	p := position
	s.position = &p
}

// Get returns the seeded position, or positionstore.DefaultPosition if none
// was seeded.
func (s *Store) Get() uint64 {
	recordIncrement(s.sink, "get_count")
	if s.position == nil {
		return positionstore.DefaultPosition
	}
	return *s.position
}

// Put records that a flush was requested.
func (s *Store) Put(_ uint64) {
	recordIncrement(s.sink, "put_count")
}

// GetCount reports how many times Get has been called.
func (s *Store) GetCount() uint64 {
	return readCount(s.sink, "get_count")
}

// PutCount reports how many times Put has been called.
func (s *Store) PutCount() uint64 {
	return readCount(s.sink, "put_count")
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

func recordIncrement(sink telemetry.Sink, signal string) {
	sink.RecordData(signal, readCount(sink, signal)+1)
}
