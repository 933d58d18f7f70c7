package streamchat

import "context"

// Stream uses a pull-based iterator pattern: Go has no native async
// generator, and a pull loop composes cleanly with context cancellation.
// Next returns io.EOF when the underlying transport ends normally; a
// well-behaved Connection always yields an EventRunFinished or
// EventRunError before EOF, but Next must tolerate a transport that simply
// closes without one — callers needing that guarantee use Session, whose
// DefaultSession synthesizes the missing terminal event.
type Stream interface {
	// Next returns the next event, or io.EOF when the stream is exhausted.
	Next() (Event, error)
	// Close releases the underlying transport. Safe to call more than once.
	Close() error
}

// Connection is the transport abstraction: one Stream per Connect call.
// Implementations must honor ctx cancellation, surface HTTP/protocol errors
// as errors from Stream.Next (never panic), and yield events conforming to
// the schema in event.go.
type Connection interface {
	Connect(ctx context.Context, messages []Message, data any) (Stream, error)
}

// ConnectionFunc adapts a plain function to a Connection, mirroring the
// http.HandlerFunc pattern for the simplest possible in-process adapter.
type ConnectionFunc func(ctx context.Context, messages []Message, data any) (Stream, error)

// Connect implements Connection.
func (f ConnectionFunc) Connect(ctx context.Context, messages []Message, data any) (Stream, error) {
	return f(ctx, messages, data)
}
