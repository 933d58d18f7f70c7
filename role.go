package streamchat

// Role identifies the sender of a Message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// ToolCallState tracks the lifecycle of a ToolCallPart. States advance
// monotonically; see Processor for the transition rules.
type ToolCallState string

const (
	ToolCallAwaitingInput      ToolCallState = "awaiting-input"
	ToolCallInputStreaming     ToolCallState = "input-streaming"
	ToolCallInputComplete      ToolCallState = "input-complete"
	ToolCallApprovalRequested  ToolCallState = "approval-requested"
	ToolCallApprovalResponded  ToolCallState = "approval-responded"
)

// toolCallStateRank orders states for monotonicity checks. The approval
// states rank above input-complete; Processor compares against
// input-complete to drop late argument deltas and to keep the stream-end
// safety net from moving an approval-track call back.
var toolCallStateRank = map[ToolCallState]int{
	ToolCallAwaitingInput:     0,
	ToolCallInputStreaming:    1,
	ToolCallInputComplete:     2,
	ToolCallApprovalRequested: 3,
	ToolCallApprovalResponded: 4,
}

// ToolResultState tracks the lifecycle of a ToolResultPart.
type ToolResultState string

const (
	ToolResultStreaming ToolResultState = "streaming"
	ToolResultComplete  ToolResultState = "complete"
	ToolResultError     ToolResultState = "error"
)

// ClientStatus is the ChatClient's externally observable state machine.
type ClientStatus string

const (
	StatusReady     ClientStatus = "ready"
	StatusSubmitted ClientStatus = "submitted"
	StatusStreaming ClientStatus = "streaming"
	StatusError     ClientStatus = "error"
)
