package streamchat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
)

// Session is a long-lived subscribe/send channel between client and server,
// as opposed to Connection's one-Stream-per-request shape. Subscribe returns
// a Stream that yields every event pushed by any Send call until ctx is
// done; Send drives a Connection to completion and pushes each of its
// events through the subscription.
type Session interface {
	Subscribe(ctx context.Context) (Stream, error)
	Send(ctx context.Context, messages []Message, data any) error
}

// eventQueue is a mutex-protected FIFO with a single-slot wakeup channel:
// one producer appends under a lock, one consumer drains under the same
// lock, with a buffered notify channel waking a blocked consumer instead of
// busy-polling.
type eventQueue struct {
	mu     sync.Mutex
	items  []Event
	notify chan struct{}
}

func newEventQueue() *eventQueue {
	return &eventQueue{notify: make(chan struct{}, 1)}
}

func (q *eventQueue) push(e Event) {
	q.mu.Lock()
	q.items = append(q.items, e)
	q.mu.Unlock()
	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// drainInto moves every buffered-but-unconsumed item from q into dst,
// preserving order. Used when a new subscriber adopts a detached queue's
// backlog.
func (q *eventQueue) drainInto(dst *eventQueue) {
	q.mu.Lock()
	dst.items = append(dst.items, q.items...)
	q.items = nil
	q.mu.Unlock()
}

func (q *eventQueue) pull(ctx context.Context) (Event, error) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			e := q.items[0]
			q.items = q.items[1:]
			q.mu.Unlock()
			return e, nil
		}
		q.mu.Unlock()
		select {
		case <-q.notify:
			continue
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// queueStream adapts an eventQueue to Stream for a single Subscribe call.
type queueStream struct {
	ctx    context.Context
	cancel context.CancelFunc
	q      *eventQueue
	closed atomic.Bool
}

// Next implements Stream. Once Close has been called, Next reports
// ErrStreamClosed rather than the raw context-cancellation error the
// closed ctx would otherwise surface, so a caller can tell a deliberate
// Close apart from the subscription's parent ctx being done for some
// other reason.
func (s *queueStream) Next() (Event, error) {
	e, err := s.q.pull(s.ctx)
	if err != nil && s.closed.Load() {
		return nil, ErrStreamClosed
	}
	return e, err
}

func (s *queueStream) Close() error {
	s.closed.Store(true)
	s.cancel()
	return nil
}

// DefaultSession wraps a Connection with a single-subscriber queue.
// Subscribe replaces the active queue synchronously, carrying over any
// events buffered but not yet delivered to the previous
// subscriber (whose Stream becomes detached and will observe no further
// events) — this is what makes reload-while-streaming safe: the old
// subscriber cannot race a new one's cleanup into destroying chunks the new
// one needs.
type DefaultSession struct {
	conn Connection

	mu     sync.Mutex
	active *eventQueue
}

// NewDefaultSession creates a session backed by conn.
func NewDefaultSession(conn Connection) *DefaultSession {
	return &DefaultSession{conn: conn, active: newEventQueue()}
}

// Subscribe implements Session.
func (s *DefaultSession) Subscribe(ctx context.Context) (Stream, error) {
	next := newEventQueue()
	s.mu.Lock()
	old := s.active
	s.active = next
	s.mu.Unlock()
	old.drainInto(next)

	sctx, cancel := context.WithCancel(ctx)
	return &queueStream{ctx: sctx, cancel: cancel, q: next}, nil
}

// Send implements Session. It drives conn to completion, pushing each event
// to the currently active queue (fetched fresh on every push, so a
// concurrent Subscribe mid-send redirects subsequent events to the new
// subscriber rather than the detached one).
func (s *DefaultSession) Send(ctx context.Context, messages []Message, data any) error {
	stream, err := s.conn.Connect(ctx, messages, data)
	if err != nil {
		s.push(EventRunError{eventBase: eventBase{Timestamp: NewTimestamp()}, Message: err.Error()})
		return fmt.Errorf("streamchat: connect: %w", err)
	}
	defer stream.Close()

	sawTerminal := false
	for {
		evt, err := stream.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			s.push(EventRunError{eventBase: eventBase{Timestamp: NewTimestamp()}, Message: err.Error()})
			return fmt.Errorf("streamchat: %w: %w", ErrTransport, err)
		}
		s.push(evt)
		switch evt.(type) {
		case EventRunFinished, EventRunError:
			sawTerminal = true
		}
	}

	if !sawTerminal {
		s.push(EventRunFinished{eventBase: eventBase{Timestamp: NewTimestamp()}, FinishReason: "stop"})
	}
	return nil
}

func (s *DefaultSession) push(e Event) {
	s.mu.Lock()
	q := s.active
	s.mu.Unlock()
	q.push(e)
}

var _ Session = (*DefaultSession)(nil)
