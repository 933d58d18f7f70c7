// Package sse implements a streamchat.Connection over HTTP + Server-Sent
// Events. A scanner-based reader loop accumulates "data:" lines into a
// complete payload per event, decoded into the canonical event union, with
// a literal "data: [DONE]" sentinel line terminating the stream.
package sse

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/streamchat/streamchat"
	"github.com/streamchat/streamchat/eventwire"
)

// Connection POSTs {messages, data} to Endpoint and parses the response
// body as an SSE event stream, one JSON-encoded streamchat.Event per
// "data:" line (see eventwire for the wire encoding).
type Connection struct {
	Endpoint string
	Client   *http.Client // defaults to http.DefaultClient when nil

	// ExtraBody, if set, is merged into the request body alongside
	// messages/data.
	ExtraBody map[string]any
	// Header, if set, is applied to every request (auth, content negotiation).
	Header http.Header
}

type requestBody struct {
	Messages []streamchat.Message `json:"messages"`
	Data     any                  `json:"data,omitempty"`
}

// Connect implements streamchat.Connection.
func (c *Connection) Connect(ctx context.Context, messages []streamchat.Message, data any) (streamchat.Stream, error) {
	body, err := c.buildBody(messages, data)
	if err != nil {
		return nil, fmt.Errorf("sse: build request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("sse: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	for k, vs := range c.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	client := c.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sse: %w: %w", streamchat.ErrTransport, err)
	}
	if resp.StatusCode >= 300 {
		defer resp.Body.Close()
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("sse: %w: status %d: %s", streamchat.ErrTransport, resp.StatusCode, string(payload))
	}
	return newStream(resp.Body), nil
}

func (c *Connection) buildBody(messages []streamchat.Message, data any) ([]byte, error) {
	if len(c.ExtraBody) == 0 {
		return json.Marshal(requestBody{Messages: messages, Data: data})
	}
	base, err := json.Marshal(requestBody{Messages: messages, Data: data})
	if err != nil {
		return nil, err
	}
	var merged map[string]any
	if err := json.Unmarshal(base, &merged); err != nil {
		return nil, err
	}
	for k, v := range c.ExtraBody {
		merged[k] = v
	}
	return json.Marshal(merged)
}

// stream implements streamchat.Stream by parsing SSE events from an HTTP
// response body.
type stream struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
	done    bool
	err     error
}

var _ streamchat.Stream = (*stream)(nil)

func newStream(body io.ReadCloser) *stream {
	return &stream{body: body, scanner: bufio.NewScanner(body)}
}

// Next reads the next SSE event and decodes its data payload as an Event.
// Non-semantic lines (comments, blank keep-alives) are skipped internally.
func (s *stream) Next() (streamchat.Event, error) {
	if s.done {
		return nil, io.EOF
	}
	if s.err != nil {
		return nil, s.err
	}
	for {
		data, err := s.readSSEData()
		if err != nil {
			s.err = err
			return nil, err
		}
		if data == "[DONE]" {
			s.done = true
			return nil, io.EOF
		}
		if data == "" {
			continue
		}
		evt, err := eventwire.Unmarshal([]byte(data))
		if err != nil {
			s.err = fmt.Errorf("sse: %w", err)
			return nil, s.err
		}
		return evt, nil
	}
}

// readSSEData reads lines until a complete "data:" payload is assembled,
// accumulating until a blank line; this protocol has no "event:" field.
func (s *stream) readSSEData() (string, error) {
	var buf strings.Builder
	for s.scanner.Scan() {
		line := s.scanner.Text()
		if line == "" {
			if buf.Len() > 0 {
				return buf.String(), nil
			}
			continue
		}
		if strings.HasPrefix(line, "data:") {
			if buf.Len() > 0 {
				buf.WriteByte('\n')
			}
			buf.WriteString(strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		}
		// Ignore comment lines (":") and any other field.
	}
	if err := s.scanner.Err(); err != nil {
		return "", fmt.Errorf("sse: %w: %w", streamchat.ErrTransport, err)
	}
	if buf.Len() > 0 {
		return buf.String(), nil
	}
	return "", io.EOF
}

// Close closes the underlying HTTP response body.
func (s *stream) Close() error {
	return s.body.Close()
}
