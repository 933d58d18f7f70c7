package streamchat

import "errors"

// Sentinel errors for common failure modes. Wrap with fmt.Errorf("...: %w", ...)
// at each boundary rather than constructing new sentinels.
var (
	// ErrValidation indicates a message or event failed structural validation.
	ErrValidation = errors.New("validation error")

	// ErrTransport indicates a connection or session failed to deliver events
	// (non-2xx response, dropped socket, aborted network read).
	ErrTransport = errors.New("transport error")

	// ErrStreamClosed indicates an operation on a stream that has already
	// reached a terminal state or been closed.
	ErrStreamClosed = errors.New("stream closed")

	// ErrUnknownMessage indicates an operation referenced a message id that
	// does not exist in the conversation.
	ErrUnknownMessage = errors.New("unknown message")

	// ErrUnknownToolCall indicates an operation referenced a tool-call id
	// that has no owning message.
	ErrUnknownToolCall = errors.New("unknown tool call")
)
