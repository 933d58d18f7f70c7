// Package mock provides test doubles for streamchat interfaces, each one a
// small struct of function fields set per test case.
package mock

import (
	"context"

	"github.com/streamchat/streamchat"
)

// Interface compliance checks.
var (
	_ streamchat.Connection = (*Connection)(nil)
	_ streamchat.Stream     = (*Stream)(nil)
	_ streamchat.Session    = (*Session)(nil)
)

// Connection is a test double for streamchat.Connection. Set ConnectFn
// before calling Connect.
type Connection struct {
	ConnectFn func(ctx context.Context, messages []streamchat.Message, data any) (streamchat.Stream, error)
}

// Connect delegates to ConnectFn.
func (c *Connection) Connect(ctx context.Context, messages []streamchat.Message, data any) (streamchat.Stream, error) {
	return c.ConnectFn(ctx, messages, data)
}

// Stream is a test double for streamchat.Stream.
// Set the function fields for the methods you need. NextFn panics when nil
// to catch missing setup. CloseFn is nil-safe (no-op) because test code
// commonly calls defer stream.Close() and rarely needs custom behavior.
type Stream struct {
	NextFn  func() (streamchat.Event, error)
	CloseFn func() error
}

// Next delegates to NextFn.
func (s *Stream) Next() (streamchat.Event, error) {
	return s.NextFn()
}

// Close delegates to CloseFn. Returns nil when CloseFn is not set.
func (s *Stream) Close() error {
	if s.CloseFn == nil {
		return nil
	}
	return s.CloseFn()
}

// Session is a test double for streamchat.Session.
// Set the function fields for the methods you need.
type Session struct {
	SubscribeFn func(ctx context.Context) (streamchat.Stream, error)
	SendFn      func(ctx context.Context, messages []streamchat.Message, data any) error
}

// Subscribe delegates to SubscribeFn.
func (s *Session) Subscribe(ctx context.Context) (streamchat.Stream, error) {
	return s.SubscribeFn(ctx)
}

// Send delegates to SendFn.
func (s *Session) Send(ctx context.Context, messages []streamchat.Message, data any) error {
	return s.SendFn(ctx, messages, data)
}

// ClientTool is a test double for a streamchat.ClientTool.
// Set ExecuteFn before calling Execute.
type ClientTool struct {
	ExecuteFn func(ctx context.Context, input any) (any, error)
}

// Execute delegates to ExecuteFn.
func (t *ClientTool) Execute(ctx context.Context, input any) (any, error) {
	return t.ExecuteFn(ctx, input)
}

// AsFunc adapts a *ClientTool to the streamchat.ClientTool function type.
func (t *ClientTool) AsFunc() streamchat.ClientTool {
	return t.Execute
}
