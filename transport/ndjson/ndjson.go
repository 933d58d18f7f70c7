// Package ndjson implements a streamchat.Connection over HTTP with a
// newline-delimited-JSON response body: one compact eventwire-encoded
// Event per line, plain EOF terminates. Simplified sibling of
// transport/sse's scanner loop — no "event:"/"data:" framing, no [DONE]
// sentinel.
package ndjson

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/streamchat/streamchat"
	"github.com/streamchat/streamchat/eventwire"
)

// Connection POSTs {messages, data} to Endpoint and parses the response
// body as newline-delimited JSON events.
type Connection struct {
	Endpoint string
	Client   *http.Client
	Header   http.Header
}

type requestBody struct {
	Messages []streamchat.Message `json:"messages"`
	Data     any                  `json:"data,omitempty"`
}

// Connect implements streamchat.Connection.
func (c *Connection) Connect(ctx context.Context, messages []streamchat.Message, data any) (streamchat.Stream, error) {
	body, err := json.Marshal(requestBody{Messages: messages, Data: data})
	if err != nil {
		return nil, fmt.Errorf("ndjson: build request body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("ndjson: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/x-ndjson")
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
		return nil, fmt.Errorf("ndjson: %w: %w", streamchat.ErrTransport, err)
	}
	if resp.StatusCode >= 300 {
		defer resp.Body.Close()
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("ndjson: %w: status %d: %s", streamchat.ErrTransport, resp.StatusCode, string(payload))
	}
	return &stream{body: resp.Body, scanner: bufio.NewScanner(resp.Body)}, nil
}

type stream struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
}

var _ streamchat.Stream = (*stream)(nil)

// Next decodes the next non-blank line as an Event.
func (s *stream) Next() (streamchat.Event, error) {
	for s.scanner.Scan() {
		line := s.scanner.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		evt, err := eventwire.Unmarshal(line)
		if err != nil {
			return nil, fmt.Errorf("ndjson: %w", err)
		}
		return evt, nil
	}
	if err := s.scanner.Err(); err != nil {
		return nil, fmt.Errorf("ndjson: %w: %w", streamchat.ErrTransport, err)
	}
	return nil, io.EOF
}

// Close closes the underlying HTTP response body.
func (s *stream) Close() error { return s.body.Close() }
