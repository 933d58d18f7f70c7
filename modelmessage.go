package streamchat

import "strings"

// ModelToolCall is the wire shape a model expects for a tool invocation it
// requested and the client is reporting back on.
type ModelToolCall struct {
	ID        string
	Name      string
	Arguments string
}

// ModelMessage is the flattened, model-facing projection of a Message:
// ThinkingParts never appear, and each ToolResultPart spawns its own
// role="tool" ModelMessage rather than staying nested.
type ModelMessage struct {
	Role       string
	Content    any // string, or []ModelContentPart for multimodal user/system turns
	ToolCalls  []ModelToolCall
	ToolCallID string // set only on role="tool" messages
}

// ModelContentPart is one element of a multimodal ModelMessage's Content.
type ModelContentPart struct {
	Kind   ContentKind
	Text   string
	Source ContentSource
}

// ToModelMessages projects a conversation to the shape a model round-trip
// expects, dropping ThinkingParts and unbundling ToolResultParts into
// sibling role="tool" messages.
func ToModelMessages(messages []Message) []ModelMessage {
	var out []ModelMessage
	for _, m := range messages {
		switch m.Role {
		case RoleUser, RoleSystem:
			out = append(out, ModelMessage{Role: string(m.Role), Content: contentFromParts(m.Parts)})
		case RoleAssistant:
			out = append(out, assistantModelMessages(m)...)
		}
	}
	return out
}

func assistantModelMessages(m Message) []ModelMessage {
	var text strings.Builder
	var contentParts []ModelContentPart
	var toolCalls []ModelToolCall
	var toolResults []ModelMessage
	plainText := true

	for _, part := range m.Parts {
		switch v := part.(type) {
		case TextPart:
			text.WriteString(v.Content)
			contentParts = append(contentParts, ModelContentPart{Kind: ContentText, Text: v.Content})
		case ThinkingPart:
			// dropped: never sent back to the model
		case ToolCallPart:
			toolCalls = append(toolCalls, ModelToolCall{ID: v.ID, Name: v.Name, Arguments: v.Arguments})
		case ToolResultPart:
			toolResults = append(toolResults, ModelMessage{Role: "tool", ToolCallID: v.ToolCallID, Content: v.Content})
		case ContentPart:
			plainText = false
			contentParts = append(contentParts, ModelContentPart{Kind: v.Kind, Text: v.Text, Source: v.Source})
		}
	}

	var content any
	if plainText {
		content = text.String()
	} else {
		content = contentParts
	}

	msgs := []ModelMessage{{Role: "assistant", Content: content, ToolCalls: toolCalls}}
	return append(msgs, toolResults...)
}

func contentFromParts(parts []Part) any {
	plainText := true
	var text strings.Builder
	var contentParts []ModelContentPart
	for _, part := range parts {
		switch v := part.(type) {
		case TextPart:
			text.WriteString(v.Content)
			contentParts = append(contentParts, ModelContentPart{Kind: ContentText, Text: v.Content})
		case ContentPart:
			plainText = false
			contentParts = append(contentParts, ModelContentPart{Kind: v.Kind, Text: v.Text, Source: v.Source})
		}
	}
	if plainText {
		return text.String()
	}
	return contentParts
}
