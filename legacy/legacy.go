// Package legacy translates an older, informally-typed chunk vocabulary
// ("text", "tool-call-delta", "done") onto the canonical streamchat.Event
// set, so an adapter that has not yet migrated can still be consumed by
// Processor unmodified.
package legacy

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"

	"github.com/streamchat/streamchat"
)

// chunk is the legacy wire shape.
type chunk struct {
	Type       string `json:"type"`
	MessageID  string `json:"messageId,omitempty"`
	Text       string `json:"text,omitempty"`
	ToolCallID string `json:"toolCallId,omitempty"`
	ToolName   string `json:"toolName,omitempty"`
	Delta      string `json:"delta,omitempty"`
	Reason     string `json:"reason,omitempty"`
}

// Translate maps one legacy JSON chunk onto its canonical Event. Every
// legacy chunk maps to exactly one canonical event; there is no legacy
// equivalent of MESSAGES_SNAPSHOT or CUSTOM, so those are never produced
// here.
func Translate(raw []byte) (streamchat.Event, error) {
	var c chunk
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("legacy: unmarshal chunk: %w: %w", streamchat.ErrValidation, err)
	}
	now := streamchat.NewTimestamp()
	switch c.Type {
	case "text":
		e := streamchat.EventTextMessageContent{MessageID: c.MessageID, Delta: c.Text}
		e.Timestamp = now
		return e, nil
	case "tool-call-delta":
		e := streamchat.EventToolCallArgs{ToolCallID: c.ToolCallID, Delta: c.Delta}
		e.Timestamp = now
		return e, nil
	case "tool-call-start":
		e := streamchat.EventToolCallStart{ToolCallID: c.ToolCallID, ToolName: c.ToolName}
		e.Timestamp = now
		return e, nil
	case "done":
		reason := c.Reason
		if reason == "" {
			reason = "stop"
		}
		e := streamchat.EventRunFinished{FinishReason: reason}
		e.Timestamp = now
		return e, nil
	case "error":
		e := streamchat.EventRunError{Message: c.Text}
		e.Timestamp = now
		return e, nil
	default:
		return nil, fmt.Errorf("legacy: unknown chunk type %q: %w", c.Type, streamchat.ErrValidation)
	}
}

// Stream adapts an io.Reader of newline-delimited legacy chunks to
// streamchat.Stream, translating each line through Translate.
type Stream struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
}

var _ streamchat.Stream = (*Stream)(nil)

// NewStream wraps body, taking ownership of it (Close closes it).
func NewStream(body io.ReadCloser) *Stream {
	return &Stream{body: body, scanner: bufio.NewScanner(body)}
}

// Next implements streamchat.Stream.
func (s *Stream) Next() (streamchat.Event, error) {
	for s.scanner.Scan() {
		line := s.scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		return Translate(line)
	}
	if err := s.scanner.Err(); err != nil {
		return nil, fmt.Errorf("legacy: %w: %w", streamchat.ErrTransport, err)
	}
	return nil, io.EOF
}

// Close implements streamchat.Stream.
func (s *Stream) Close() error { return s.body.Close() }
