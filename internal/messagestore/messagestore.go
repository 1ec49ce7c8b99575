// Package messagestore defines the fetch abstraction the consumer engine
// polls: MessageData, the Getter capability, and the error it raises.
package messagestore

import (
	"encoding/json"
	"fmt"
)

// MessageData is the minimum surface the core requires from a stored
// message: a monotonically increasing global position plus an opaque
// application payload the core never interprets.
type MessageData struct {
	GlobalPosition uint64
	Payload        json.RawMessage
}

// GetError wraps a failure to obtain messages from the store, whether a
// transport failure or a malformed row.
type GetError struct {
	Category string
	Position uint64
	Err      error
}

func (e *GetError) Error() string {
	return fmt.Sprintf("op=messagestore.Get category=%s position=%d: %v", e.Category, e.Position, e.Err)
}

func (e *GetError) Unwrap() error {
	return e.Err
}

// NewGetError constructs a GetError wrapping cause.
func NewGetError(category string, position uint64, cause error) *GetError {
	return &GetError{Category: category, Position: position, Err: cause}
}

// Getter fetches a batch of messages for a category starting at a given
// global position. Implementations honor batch size, correlation filter,
// consumer-group partitioning, and SQL condition per the settings they were
// constructed with; they return messages with strictly increasing global
// position, all >= the requested position.
type Getter interface {
	Get(position uint64) ([]MessageData, error)
}
