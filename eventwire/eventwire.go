// Package eventwire is the JSON wire encoding for streamchat.Event, kept
// out of the root package so the core event union never imports
// encoding/json for its own sake. Every transport that moves events over a
// byte-oriented wire (transport/sse, transport/ndjson, transport/rpc,
// replayjson) shares this single discriminated-union encoding; legacy
// decodes its own older chunk format instead.
package eventwire

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/streamchat/streamchat"
)

// dto is the JSON representation of an Event with a "type" discriminator:
// one flat struct with every variant's fields declared optional.
type dto struct {
	Type      string          `json:"type"`
	Timestamp int64           `json:"timestamp"` // unix millis
	MessageID string          `json:"messageId,omitempty"`
	Role      string          `json:"role,omitempty"`
	Delta     string          `json:"delta,omitempty"`
	Content   string          `json:"content,omitempty"`

	ToolCallID      string          `json:"toolCallId,omitempty"`
	ToolName        string          `json:"toolName,omitempty"`
	ParentMessageID string          `json:"parentMessageId,omitempty"`
	Index           int             `json:"index,omitempty"`
	Input           json.RawMessage `json:"input,omitempty"`
	Result          json.RawMessage `json:"result,omitempty"`

	FinishReason string `json:"finishReason,omitempty"`
	Message      string `json:"message,omitempty"`
	Code         string `json:"code,omitempty"`

	Messages []messageDTO `json:"messages,omitempty"`

	Name string          `json:"name,omitempty"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Marshal encodes evt as a single JSON object.
func Marshal(evt streamchat.Event) ([]byte, error) {
	d, err := toDTO(evt)
	if err != nil {
		return nil, err
	}
	return json.Marshal(d)
}

// Unmarshal decodes a single JSON object into an Event.
func Unmarshal(raw []byte) (streamchat.Event, error) {
	var d dto
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("eventwire: unmarshal envelope: %w: %w", streamchat.ErrValidation, err)
	}
	return fromDTO(d)
}

func toDTO(evt streamchat.Event) (dto, error) {
	d := dto{Timestamp: evt.Time().UnixMilli()}
	switch e := evt.(type) {
	case streamchat.EventTextMessageStart:
		d.Type = "TEXT_MESSAGE_START"
		d.MessageID = e.MessageID
		d.Role = string(e.Role)
	case streamchat.EventTextMessageContent:
		d.Type = "TEXT_MESSAGE_CONTENT"
		d.MessageID = e.MessageID
		d.Delta = e.Delta
		d.Content = e.Content
	case streamchat.EventTextMessageEnd:
		d.Type = "TEXT_MESSAGE_END"
		d.MessageID = e.MessageID
	case streamchat.EventToolCallStart:
		d.Type = "TOOL_CALL_START"
		d.ToolCallID = e.ToolCallID
		d.ToolName = e.ToolName
		d.ParentMessageID = e.ParentMessageID
		d.Index = e.Index
	case streamchat.EventToolCallArgs:
		d.Type = "TOOL_CALL_ARGS"
		d.ToolCallID = e.ToolCallID
		d.Delta = e.Delta
	case streamchat.EventToolCallEnd:
		d.Type = "TOOL_CALL_END"
		d.ToolCallID = e.ToolCallID
		d.Input = json.RawMessage(e.Input)
		d.Result = json.RawMessage(e.Result)
	case streamchat.EventStepFinished:
		d.Type = "STEP_FINISHED"
		d.MessageID = e.MessageID
		d.Delta = e.Delta
		d.Content = e.Content
	case streamchat.EventRunFinished:
		d.Type = "RUN_FINISHED"
		d.FinishReason = e.FinishReason
	case streamchat.EventRunError:
		d.Type = "RUN_ERROR"
		d.Message = e.Message
		d.Code = e.Code
	case streamchat.EventMessagesSnapshot:
		d.Type = "MESSAGES_SNAPSHOT"
		msgs, err := marshalMessages(e.Messages)
		if err != nil {
			return dto{}, err
		}
		d.Messages = msgs
	case streamchat.EventCustom:
		d.Type = "CUSTOM"
		d.Name = e.Name
		data, err := json.Marshal(e.Data)
		if err != nil {
			return dto{}, fmt.Errorf("eventwire: marshal custom data: %w", err)
		}
		d.Data = data
	default:
		return dto{}, fmt.Errorf("eventwire: unknown event type %T: %w", evt, streamchat.ErrValidation)
	}
	return d, nil
}

// fromDTO reconstructs an Event, restoring its wire timestamp through the
// Timestamp field promoted from Event's unexported eventBase — the field
// itself is exported, so a cross-package selector assignment is enough
// without any constructor helper in the root package.
func fromDTO(d dto) (streamchat.Event, error) {
	ts := time.UnixMilli(d.Timestamp).UTC()
	switch d.Type {
	case "TEXT_MESSAGE_START":
		e := streamchat.EventTextMessageStart{MessageID: d.MessageID, Role: streamchat.Role(d.Role)}
		e.Timestamp = ts
		return e, nil
	case "TEXT_MESSAGE_CONTENT":
		e := streamchat.EventTextMessageContent{MessageID: d.MessageID, Delta: d.Delta, Content: d.Content}
		e.Timestamp = ts
		return e, nil
	case "TEXT_MESSAGE_END":
		e := streamchat.EventTextMessageEnd{MessageID: d.MessageID}
		e.Timestamp = ts
		return e, nil
	case "TOOL_CALL_START":
		e := streamchat.EventToolCallStart{ToolCallID: d.ToolCallID, ToolName: d.ToolName, ParentMessageID: d.ParentMessageID, Index: d.Index}
		e.Timestamp = ts
		return e, nil
	case "TOOL_CALL_ARGS":
		e := streamchat.EventToolCallArgs{ToolCallID: d.ToolCallID, Delta: d.Delta}
		e.Timestamp = ts
		return e, nil
	case "TOOL_CALL_END":
		e := streamchat.EventToolCallEnd{ToolCallID: d.ToolCallID, Input: []byte(d.Input), Result: []byte(d.Result)}
		e.Timestamp = ts
		return e, nil
	case "STEP_FINISHED":
		e := streamchat.EventStepFinished{MessageID: d.MessageID, Delta: d.Delta, Content: d.Content}
		e.Timestamp = ts
		return e, nil
	case "RUN_FINISHED":
		e := streamchat.EventRunFinished{FinishReason: d.FinishReason}
		e.Timestamp = ts
		return e, nil
	case "RUN_ERROR":
		e := streamchat.EventRunError{Message: d.Message, Code: d.Code}
		e.Timestamp = ts
		return e, nil
	case "MESSAGES_SNAPSHOT":
		msgs, err := unmarshalMessages(d.Messages)
		if err != nil {
			return nil, err
		}
		e := streamchat.EventMessagesSnapshot{Messages: msgs}
		e.Timestamp = ts
		return e, nil
	case "CUSTOM":
		data, err := unmarshalCustomData(d.Name, d.Data)
		if err != nil {
			return nil, err
		}
		e := streamchat.EventCustom{Name: d.Name, Data: data}
		e.Timestamp = ts
		return e, nil
	default:
		return nil, fmt.Errorf("eventwire: unknown event type %q: %w", d.Type, streamchat.ErrValidation)
	}
}

// messageDTO and partDTO are a flat, type-discriminated struct per union,
// used only for the rare EventMessagesSnapshot payload.
type messageDTO struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Parts     []partDTO `json:"parts"`
	CreatedAt int64     `json:"createdAt"`
}

type partDTO struct {
	Type          string          `json:"type"`
	Content       string          `json:"content,omitempty"`
	ID            string          `json:"id,omitempty"`
	Name          string          `json:"name,omitempty"`
	Arguments     string          `json:"arguments,omitempty"`
	State         string          `json:"state,omitempty"`
	Output        json.RawMessage `json:"output,omitempty"`
	ToolCallID    string          `json:"toolCallId,omitempty"`
	Error         string          `json:"error,omitempty"`
	ApprovalID    string          `json:"approvalId,omitempty"`
	NeedsApproval bool            `json:"needsApproval,omitempty"`
	Approved      *bool           `json:"approved,omitempty"`
	Kind          string          `json:"kind,omitempty"`
	SourceType    string          `json:"sourceType,omitempty"`
	SourceValue   string          `json:"sourceValue,omitempty"`
	MimeType      string          `json:"mimeType,omitempty"`
}

// MarshalMessages encodes messages as JSON, exported for replayjson's
// Recording.Result serialization.
func MarshalMessages(messages []streamchat.Message) ([]byte, error) {
	dtos, err := marshalMessages(messages)
	if err != nil {
		return nil, err
	}
	return json.Marshal(dtos)
}

// UnmarshalMessages decodes JSON produced by MarshalMessages.
func UnmarshalMessages(raw []byte) ([]streamchat.Message, error) {
	var dtos []messageDTO
	if err := json.Unmarshal(raw, &dtos); err != nil {
		return nil, fmt.Errorf("eventwire: unmarshal messages: %w: %w", streamchat.ErrValidation, err)
	}
	return unmarshalMessages(dtos)
}

func marshalMessages(messages []streamchat.Message) ([]messageDTO, error) {
	out := make([]messageDTO, len(messages))
	for i, m := range messages {
		parts := make([]partDTO, len(m.Parts))
		for j, p := range m.Parts {
			pd, err := marshalPart(p)
			if err != nil {
				return nil, fmt.Errorf("eventwire: message %d part %d: %w", i, j, err)
			}
			parts[j] = pd
		}
		out[i] = messageDTO{ID: m.ID, Role: string(m.Role), Parts: parts, CreatedAt: m.CreatedAt.UnixMilli()}
	}
	return out, nil
}

func unmarshalMessages(dtos []messageDTO) ([]streamchat.Message, error) {
	out := make([]streamchat.Message, len(dtos))
	for i, d := range dtos {
		parts := make([]streamchat.Part, len(d.Parts))
		for j, pd := range d.Parts {
			p, err := unmarshalPart(pd)
			if err != nil {
				return nil, fmt.Errorf("eventwire: message %d part %d: %w", i, j, err)
			}
			parts[j] = p
		}
		out[i] = streamchat.Message{
			ID:        d.ID,
			Role:      streamchat.Role(d.Role),
			Parts:     parts,
			CreatedAt: time.UnixMilli(d.CreatedAt).UTC(),
		}
	}
	return out, nil
}

func marshalPart(p streamchat.Part) (partDTO, error) {
	switch v := p.(type) {
	case streamchat.TextPart:
		return partDTO{Type: "text", Content: v.Content}, nil
	case streamchat.ThinkingPart:
		return partDTO{Type: "thinking", Content: v.Content}, nil
	case streamchat.ToolCallPart:
		d := partDTO{Type: "tool-call", ID: v.ID, Name: v.Name, Arguments: v.Arguments, State: string(v.State)}
		if v.Output != nil {
			out, err := json.Marshal(v.Output)
			if err != nil {
				return partDTO{}, fmt.Errorf("marshal tool call output: %w", err)
			}
			d.Output = out
		}
		if v.Approval != nil {
			d.ApprovalID = v.Approval.ID
			d.NeedsApproval = v.Approval.NeedsApproval
			d.Approved = v.Approval.Approved
		}
		return d, nil
	case streamchat.ToolResultPart:
		return partDTO{Type: "tool-result", ToolCallID: v.ToolCallID, Content: v.Content, State: string(v.State), Error: v.Error}, nil
	case streamchat.ContentPart:
		return partDTO{Type: "content", Kind: string(v.Kind), Content: v.Text, SourceType: string(v.Source.Type), SourceValue: v.Source.Value, MimeType: v.Source.MimeType}, nil
	default:
		return partDTO{}, fmt.Errorf("unknown part type %T: %w", p, streamchat.ErrValidation)
	}
}

func unmarshalPart(d partDTO) (streamchat.Part, error) {
	switch d.Type {
	case "text":
		return streamchat.TextPart{Content: d.Content}, nil
	case "thinking":
		return streamchat.ThinkingPart{Content: d.Content}, nil
	case "tool-call":
		tc := streamchat.ToolCallPart{ID: d.ID, Name: d.Name, Arguments: d.Arguments, State: streamchat.ToolCallState(d.State)}
		if len(d.Output) > 0 {
			var out any
			if err := json.Unmarshal(d.Output, &out); err != nil {
				return nil, fmt.Errorf("unmarshal tool call output: %w", err)
			}
			tc.Output = out
		}
		if d.ApprovalID != "" {
			tc.Approval = &streamchat.Approval{ID: d.ApprovalID, NeedsApproval: d.NeedsApproval, Approved: d.Approved}
		}
		return tc, nil
	case "tool-result":
		return streamchat.ToolResultPart{ToolCallID: d.ToolCallID, Content: d.Content, State: streamchat.ToolResultState(d.State), Error: d.Error}, nil
	case "content":
		return streamchat.ContentPart{
			Kind: streamchat.ContentKind(d.Kind),
			Text: d.Content,
			Source: streamchat.ContentSource{
				Type:     streamchat.ContentSourceType(d.SourceType),
				Value:    d.SourceValue,
				MimeType: d.MimeType,
			},
		}, nil
	default:
		return nil, fmt.Errorf("unknown part type %q: %w", d.Type, streamchat.ErrValidation)
	}
}

func unmarshalCustomData(name string, raw json.RawMessage) (any, error) {
	switch name {
	case streamchat.CustomToolInputAvailable:
		var v streamchat.CustomToolInputAvailableData
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("eventwire: unmarshal %s data: %w", name, err)
		}
		return v, nil
	case streamchat.CustomApprovalRequested:
		var v streamchat.CustomApprovalRequestedData
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("eventwire: unmarshal %s data: %w", name, err)
		}
		return v, nil
	default:
		var v any
		if len(raw) == 0 {
			return nil, nil
		}
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("eventwire: unmarshal custom data: %w", err)
		}
		return v, nil
	}
}
