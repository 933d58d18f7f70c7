// Package inprocess adapts a plain []Event or chan Event to
// streamchat.Stream — the Go shape of "an async iterable of event
// objects" for adapters that produce events in the same process (tests,
// an embedded model runtime, a fake for exercising Processor/Client
// without a real transport).
package inprocess

import (
	"context"
	"io"
	"sync"

	"github.com/streamchat/streamchat"
)

// SliceStream replays a fixed slice of events, then io.EOF. Used heavily by
// processor and client tests in place of a literal async generator.
type SliceStream struct {
	events []streamchat.Event
	pos    int
}

// NewSliceStream returns a Stream that yields events in order.
func NewSliceStream(events []streamchat.Event) *SliceStream {
	return &SliceStream{events: events}
}

// Next implements streamchat.Stream.
func (s *SliceStream) Next() (streamchat.Event, error) {
	if s.pos >= len(s.events) {
		return nil, io.EOF
	}
	e := s.events[s.pos]
	s.pos++
	return e, nil
}

// Close implements streamchat.Stream. It is a no-op.
func (s *SliceStream) Close() error { return nil }

var _ streamchat.Stream = (*SliceStream)(nil)

// ChannelStream adapts a chan Event, closed by the producer to signal EOF,
// to streamchat.Stream. Useful when the producer runs on its own goroutine
// (a fake model, a manual test driver).
type ChannelStream struct {
	ctx    context.Context
	cancel context.CancelFunc
	events <-chan streamchat.Event

	closeOnce sync.Once
}

// NewChannelStream wraps events. ctx bounds how long Next will block waiting
// for the next event.
func NewChannelStream(ctx context.Context, events <-chan streamchat.Event) *ChannelStream {
	cctx, cancel := context.WithCancel(ctx)
	return &ChannelStream{ctx: cctx, cancel: cancel, events: events}
}

// Next implements streamchat.Stream.
func (s *ChannelStream) Next() (streamchat.Event, error) {
	select {
	case e, ok := <-s.events:
		if !ok {
			return nil, io.EOF
		}
		return e, nil
	case <-s.ctx.Done():
		return nil, s.ctx.Err()
	}
}

// Close implements streamchat.Stream. Safe to call more than once.
func (s *ChannelStream) Close() error {
	s.closeOnce.Do(s.cancel)
	return nil
}

var _ streamchat.Stream = (*ChannelStream)(nil)

// Connection wraps a factory function producing a Stream per Connect call,
// the in-process equivalent of streamchat.ConnectionFunc specialized to
// this package's Stream types.
type Connection struct {
	NewStream func(ctx context.Context, messages []streamchat.Message, data any) (streamchat.Stream, error)
}

// Connect implements streamchat.Connection.
func (c *Connection) Connect(ctx context.Context, messages []streamchat.Message, data any) (streamchat.Stream, error) {
	return c.NewStream(ctx, messages, data)
}

var _ streamchat.Connection = (*Connection)(nil)
