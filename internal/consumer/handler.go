package consumer

import "github.com/sbditto85/eventide-go/internal/messagestore"

// Handler receives one message at a time, invoked synchronously in the
// consumer's worker goroutine, in the order handlers were added. An error
// from any handler aborts the current iteration's remaining messages.
type Handler interface {
	Handle(message messagestore.MessageData) error
}

// HandlerFunc adapts a plain function to the Handler interface.
type HandlerFunc func(message messagestore.MessageData) error

// Handle invokes the underlying function.
func (f HandlerFunc) Handle(message messagestore.MessageData) error {
	return f(message)
}
