// Package rpc implements a streamchat.Connection over a WebSocket: one
// JSON-framed eventwire.Event per text message, with the request sent as
// the connection's first frame, adapted from HTTP+SSE to a long-lived
// socket via gorilla/websocket.
package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/gorilla/websocket"
	"github.com/streamchat/streamchat"
	"github.com/streamchat/streamchat/eventwire"
)

// Connection dials Dialer at URL and speaks the request/event-stream
// protocol described above.
type Connection struct {
	URL    string
	Dialer *websocket.Dialer // defaults to websocket.DefaultDialer when nil
	Header map[string][]string
}

type requestFrame struct {
	Messages []streamchat.Message `json:"messages"`
	Data     any                  `json:"data,omitempty"`
}

// Connect implements streamchat.Connection.
func (c *Connection) Connect(ctx context.Context, messages []streamchat.Message, data any) (streamchat.Stream, error) {
	dialer := c.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	conn, _, err := dialer.DialContext(ctx, c.URL, c.Header)
	if err != nil {
		return nil, fmt.Errorf("rpc: %w: dial: %w", streamchat.ErrTransport, err)
	}

	if err := conn.WriteJSON(requestFrame{Messages: messages, Data: data}); err != nil {
		conn.Close()
		return nil, fmt.Errorf("rpc: %w: send request frame: %w", streamchat.ErrTransport, err)
	}

	sctx, cancel := context.WithCancel(ctx)
	s := &stream{conn: conn, ctx: sctx, cancel: cancel}
	go s.watchContext()
	return s, nil
}

// stream implements streamchat.Stream by reading one JSON text message per
// call to Next.
type stream struct {
	conn   *websocket.Conn
	ctx    context.Context
	cancel context.CancelFunc
}

var _ streamchat.Stream = (*stream)(nil)

func (s *stream) watchContext() {
	<-s.ctx.Done()
	s.conn.Close()
}

// Next implements streamchat.Stream.
func (s *stream) Next() (streamchat.Event, error) {
	_, raw, err := s.conn.ReadMessage()
	if err != nil {
		if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			return nil, io.EOF
		}
		if s.ctx.Err() != nil {
			return nil, s.ctx.Err()
		}
		return nil, fmt.Errorf("rpc: %w: read: %w", streamchat.ErrTransport, err)
	}

	var envelope struct {
		Done bool `json:"done"`
	}
	if err := json.Unmarshal(raw, &envelope); err == nil && envelope.Done {
		return nil, io.EOF
	}

	evt, err := eventwire.Unmarshal(raw)
	if err != nil {
		return nil, fmt.Errorf("rpc: %w", err)
	}
	return evt, nil
}

// Close closes the underlying WebSocket connection. Safe to call more than
// once.
func (s *stream) Close() error {
	s.cancel()
	return nil
}
