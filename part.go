package streamchat

// Part is a sealed interface representing a typed fragment of a Message.
// The unexported marker method prevents external implementations.
type Part interface {
	part()
}

// TextPart holds model or user prose.
type TextPart struct {
	Content string
}

func (TextPart) part() {}

// ThinkingPart holds model reasoning. UI-only: never sent back to the model
// (see ToModelMessages).
type ThinkingPart struct {
	Content string
}

func (ThinkingPart) part() {}

// Approval carries the state of an approval-gated tool call.
type Approval struct {
	ID            string
	NeedsApproval bool
	Approved      *bool
}

// ToolCallPart represents a single tool invocation and its lifecycle.
type ToolCallPart struct {
	ID        string
	Name      string
	Arguments string // raw accumulated/finalized JSON argument text
	State     ToolCallState
	Approval  *Approval
	Output    any
}

func (ToolCallPart) part() {}

// ToolResultPart carries the outcome of a tool execution, keyed by the
// originating call's id. Kept distinct from ToolCallPart because the model
// round-trip (see ToModelMessages) requires a result record keyed by id.
type ToolResultPart struct {
	ToolCallID string
	Content    string
	State      ToolResultState
	Error      string
}

func (ToolResultPart) part() {}

// ContentSourceType distinguishes an inline data URI from a remote URL for
// multimodal ContentPart sources.
type ContentSourceType string

const (
	ContentSourceURL  ContentSourceType = "url"
	ContentSourceData ContentSourceType = "data"
)

// ContentSource locates a multimodal ContentPart's payload.
type ContentSource struct {
	Type     ContentSourceType
	Value    string
	MimeType string
}

// ContentKind distinguishes the modality of a ContentPart.
type ContentKind string

const (
	ContentText     ContentKind = "text"
	ContentImage    ContentKind = "image"
	ContentAudio    ContentKind = "audio"
	ContentVideo    ContentKind = "video"
	ContentDocument ContentKind = "document"
)

// ContentPart passes multimodal input through opaquely; the processor never
// interprets Source, only routes it.
type ContentPart struct {
	Kind   ContentKind
	Text   string // populated when Kind == ContentText
	Source ContentSource
}

func (ContentPart) part() {}

var (
	_ Part = TextPart{}
	_ Part = ThinkingPart{}
	_ Part = ToolCallPart{}
	_ Part = ToolResultPart{}
	_ Part = ContentPart{}
)
