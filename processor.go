package streamchat

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/streamchat/streamchat/partialjson"
)

// Hooks are the Processor's lifecycle callbacks. Every field is
// optional; a nil hook is simply not invoked.
type Hooks struct {
	OnMessagesChange      func([]Message)
	OnStreamStart         func()
	OnStreamEnd           func(Message)
	OnError               func(error)
	OnTextUpdate          func(messageID, content string)
	OnThinkingUpdate      func(messageID, content string)
	OnToolCallStateChange func(messageID, toolCallID string, state ToolCallState, args string)
	OnToolCall            func(toolCallID, toolName string, input any)
	OnApprovalRequest     func(toolCallID, toolName string, input any, approvalID string)
}

func (h Hooks) fireMessagesChange(messages []Message) {
	if h.OnMessagesChange != nil {
		h.OnMessagesChange(cloneMessages(messages))
	}
}

// internalToolCallState tracks one in-flight tool call's argument
// accumulation, one per open tool call id rather than per block index,
// since tool calls interleave across the whole message.
type internalToolCallState struct {
	id, name string
	argsBuf  strings.Builder
	state    ToolCallState
}

// messageStreamState is the per-message bookkeeping Processor keeps while a
// message is being streamed.
type messageStreamState struct {
	role                       Role
	totalTextContent           int
	currentSegmentText         string
	lastEmittedText            string
	thinkingContent            string
	toolCalls                  map[string]*internalToolCallState
	toolCallOrder              []string
	hasToolCallsSinceTextStart bool
	isComplete                 bool
}

func newMessageStreamState(role Role) *messageStreamState {
	return &messageStreamState{
		role:      role,
		toolCalls: make(map[string]*internalToolCallState),
	}
}

// ProcessorOption configures a Processor at construction time.
type ProcessorOption func(*Processor)

// WithEmissionStrategy overrides the default Immediate emission strategy.
func WithEmissionStrategy(s EmissionStrategy) ProcessorOption {
	return func(p *Processor) { p.strategy = s }
}

// WithIDGenerator overrides the default uuid.NewString id generator, mainly
// for deterministic tests.
func WithIDGenerator(gen func() string) ProcessorOption {
	return func(p *Processor) { p.newID = gen }
}

// Processor is the deterministic state machine converting an ordered
// adapter event stream into an ordered []Message. ProcessChunk never panics
// or returns an error: adapter protocol violations are tolerated locally.
// Its exported methods lock mu internally, so ProcessChunk may safely run on
// one goroutine (a stream drain loop, say) while another calls AddToolResult
// or AddToolApprovalResponse concurrently. Hooks fire while mu is held, so a
// hook must never call back into the same Processor synchronously.
type Processor struct {
	hooks    Hooks
	strategy EmissionStrategy
	newID    func() string

	mu sync.Mutex

	messages             []Message
	messageStates        map[string]*messageStreamState
	activeMessageIDs     []string
	toolCallToMessage    map[string]string
	currentTurnToolCalls []string
	pendingManualID      string
	finishReason         string
	hasError             bool
	isDone               bool
	recording            *Recording
}

// NewProcessor creates a Processor with the given lifecycle hooks.
func NewProcessor(hooks Hooks, opts ...ProcessorOption) *Processor {
	p := &Processor{
		hooks:             hooks,
		strategy:          Immediate{},
		newID:             uuid.NewString,
		messageStates:     make(map[string]*messageStreamState),
		toolCallToMessage: make(map[string]string),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// GetMessages returns a read-only snapshot of the conversation.
func (p *Processor) GetMessages() []Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return cloneMessages(p.messages)
}

// SetMessages authoritatively replaces the conversation (a user-driven
// reset, or the effect of an EventMessagesSnapshot) and rebuilds the
// toolCallToMessage routing index, the only back-index in the processor:
// no cyclic references, everything derived fresh on every replace.
func (p *Processor) SetMessages(messages []Message) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.setMessagesLocked(messages)
	p.hooks.fireMessagesChange(p.messages)
}

func (p *Processor) setMessagesLocked(messages []Message) {
	p.messages = cloneMessages(messages)
	p.toolCallToMessage = make(map[string]string)
	for _, m := range p.messages {
		for _, part := range m.Parts {
			if tc, ok := part.(ToolCallPart); ok {
				p.toolCallToMessage[tc.ID] = m.ID
			}
		}
	}
}

// AddUserMessage appends a user message to the conversation. It is the only
// way a user message is ever created; the processor itself never
// synthesizes one.
func (p *Processor) AddUserMessage(parts []Part) Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	msg := Message{ID: p.newID(), Role: RoleUser, Parts: append([]Part(nil), parts...), CreatedAt: NewTimestamp()}
	p.messages = append(p.messages, msg)
	p.hooks.fireMessagesChange(p.messages)
	return msg
}

// PrepareAssistantMessage resets per-stream bookkeeping and reserves a
// message id for the upcoming assistant turn without pushing a Message —
// lazy creation defers that to the first content-bearing event, so a turn
// that streams no content (a tool-only continuation, say) never flickers an
// empty bubble into the UI. It also clears the record of which tool calls
// belong to the current turn, so a later AreAllToolsComplete only considers
// calls introduced from here forward.
func (p *Processor) PrepareAssistantMessage() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pendingManualID = p.newID()
	p.finishReason = ""
	p.hasError = false
	p.isDone = false
	p.activeMessageIDs = nil
	p.currentTurnToolCalls = nil
	return p.pendingManualID
}

// ensureMessageState returns the message's stream state, creating it (and,
// if needed, the underlying Message) on first use.
func (p *Processor) ensureMessageState(id string, role Role) *messageStreamState {
	if st, ok := p.messageStates[id]; ok {
		return st
	}
	st := newMessageStreamState(role)
	p.messageStates[id] = st
	p.activeMessageIDs = append(p.activeMessageIDs, id)
	p.ensureMessage(id, role)
	return st
}

func (p *Processor) ensureMessage(id string, role Role) {
	if findMessageIndex(p.messages, id) >= 0 {
		return
	}
	p.messages = append(p.messages, Message{ID: id, Role: role, CreatedAt: NewTimestamp()})
}

// resolveMessageID picks the message a messageId-less event (tool call
// start/args/end never carry one; STEP_FINISHED's is optional) belongs to:
// the explicit id if given, else the pending manual id, else the most
// recently active message, else a freshly minted one.
func (p *Processor) resolveMessageID(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if p.pendingManualID != "" {
		return p.pendingManualID
	}
	if n := len(p.activeMessageIDs); n > 0 {
		return p.activeMessageIDs[n-1]
	}
	return p.newID()
}

// rebindMessageID rewrites a message's id and every state key that
// references it, atomically from the caller's perspective.
func (p *Processor) rebindMessageID(oldID, newID string) {
	if oldID == newID {
		return
	}
	if idx := findMessageIndex(p.messages, oldID); idx >= 0 {
		p.messages[idx].ID = newID
	}
	if st, ok := p.messageStates[oldID]; ok {
		delete(p.messageStates, oldID)
		p.messageStates[newID] = st
	}
	for i, id := range p.activeMessageIDs {
		if id == oldID {
			p.activeMessageIDs[i] = newID
		}
	}
	for callID, mid := range p.toolCallToMessage {
		if mid == oldID {
			p.toolCallToMessage[callID] = newID
		}
	}
	if p.pendingManualID == oldID {
		p.pendingManualID = newID
	}
}

// ProcessChunk applies a single event to the conversation. It locks the
// processor for the duration of the call and never panics or returns an
// error: unknown event types are silently ignored by Go's type switch
// default case.
func (p *Processor) ProcessChunk(evt Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.recording != nil {
		p.recording.Events = append(p.recording.Events, evt)
	}
	switch e := evt.(type) {
	case EventTextMessageStart:
		p.handleTextMessageStart(e)
	case EventTextMessageContent:
		p.handleTextMessageContent(e)
	case EventTextMessageEnd:
		p.handleTextMessageEnd(e)
	case EventToolCallStart:
		p.handleToolCallStart(e)
	case EventToolCallArgs:
		p.handleToolCallArgs(e)
	case EventToolCallEnd:
		p.handleToolCallEnd(e)
	case EventStepFinished:
		p.handleStepFinished(e)
	case EventRunFinished:
		p.handleRunFinished(e)
	case EventRunError:
		p.handleRunError(e)
	case EventMessagesSnapshot:
		p.setMessagesLocked(e.Messages)
		p.hooks.fireMessagesChange(p.messages)
	case EventCustom:
		p.handleCustom(e)
	}
}

// Process drains stream, calling ProcessChunk for every event, until io.EOF
// or a terminal event. Suspension only happens at stream.Next(); ProcessChunk
// itself never suspends.
func (p *Processor) Process(stream Stream) error {
	if p.hooks.OnStreamStart != nil {
		p.hooks.OnStreamStart()
	}
	for {
		evt, err := stream.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("streamchat: process: %w", err)
		}
		p.ProcessChunk(evt)
		switch evt.(type) {
		case EventRunFinished, EventRunError:
			return nil
		}
	}
}

func (p *Processor) handleTextMessageStart(e EventTextMessageStart) {
	msgID := e.MessageID
	if p.pendingManualID != "" && p.pendingManualID != msgID {
		p.rebindMessageID(p.pendingManualID, msgID)
	}
	p.pendingManualID = ""
	role := e.Role
	if role == "" {
		role = RoleAssistant
	}
	st := p.ensureMessageState(msgID, role)
	st.currentSegmentText = ""
	st.lastEmittedText = ""
	st.hasToolCallsSinceTextStart = false
	p.strategy.Reset()
}

func (p *Processor) handleTextMessageContent(e EventTextMessageContent) {
	msgID := p.resolveMessageID(e.MessageID)
	st := p.ensureMessageState(msgID, RoleAssistant)

	if st.hasToolCallsSinceTextStart {
		st.currentSegmentText = ""
		st.lastEmittedText = ""
		st.hasToolCallsSinceTextStart = false
		p.strategy.Reset()
	}

	prev := st.currentSegmentText
	var next string
	switch {
	case e.Delta != "":
		next = prev + e.Delta
	case strings.HasPrefix(prev, e.Content):
		next = prev // content is a stale prefix of what we already have; ignore
	case strings.HasPrefix(e.Content, prev):
		next = e.Content // adopt the fuller accumulation
	default:
		next = prev + e.Content // safety net for a misbehaving adapter
	}

	st.totalTextContent += len(next) - len(prev)
	st.currentSegmentText = next
	p.messages = updateTextPart(p.messages, msgID, next)
	p.hooks.fireMessagesChange(p.messages)

	if p.strategy.ShouldEmit(e.Delta, next) {
		st.lastEmittedText = next
		if p.hooks.OnTextUpdate != nil {
			p.hooks.OnTextUpdate(msgID, next)
		}
	}
}

func (p *Processor) handleTextMessageEnd(e EventTextMessageEnd) {
	st, ok := p.messageStates[e.MessageID]
	if !ok {
		return
	}
	if st.lastEmittedText != st.currentSegmentText && p.hooks.OnTextUpdate != nil {
		st.lastEmittedText = st.currentSegmentText
		p.hooks.OnTextUpdate(e.MessageID, st.currentSegmentText)
	}
	p.completeMessageToolCalls(e.MessageID)
}

func (p *Processor) handleToolCallStart(e EventToolCallStart) {
	if _, exists := p.toolCallToMessage[e.ToolCallID]; exists {
		return // duplicate START is a no-op
	}
	msgID := p.resolveMessageID(e.ParentMessageID)
	st := p.ensureMessageState(msgID, RoleAssistant)
	st.hasToolCallsSinceTextStart = true

	st.toolCalls[e.ToolCallID] = &internalToolCallState{id: e.ToolCallID, name: e.ToolName, state: ToolCallAwaitingInput}
	st.toolCallOrder = append(st.toolCallOrder, e.ToolCallID)
	p.toolCallToMessage[e.ToolCallID] = msgID
	p.currentTurnToolCalls = append(p.currentTurnToolCalls, e.ToolCallID)

	p.messages = updateToolCallPart(p.messages, msgID, toolCallUpdate{
		ID: e.ToolCallID, Name: e.ToolName, Arguments: "", State: ToolCallAwaitingInput,
	})
	p.fireToolCallState(msgID, e.ToolCallID, ToolCallAwaitingInput, "")
}

func (p *Processor) handleToolCallArgs(e EventToolCallArgs) {
	msgID, ok := p.toolCallToMessage[e.ToolCallID]
	if !ok {
		return // orphan args event, dropped
	}
	st := p.messageStates[msgID]
	if st == nil {
		return // routed via SetMessages, no stream state for this message
	}
	tc := st.toolCalls[e.ToolCallID]
	if tc == nil {
		return
	}
	if toolCallStateRank[tc.state] >= toolCallStateRank[ToolCallInputComplete] {
		return // stale args arriving after this call already completed
	}
	if e.Delta != "" {
		first := tc.argsBuf.Len() == 0
		tc.argsBuf.WriteString(e.Delta)
		if first && tc.state == ToolCallAwaitingInput {
			tc.state = ToolCallInputStreaming
		}
	}
	args := tc.argsBuf.String()
	p.messages = updateToolCallPart(p.messages, msgID, toolCallUpdate{
		ID: e.ToolCallID, Name: tc.name, Arguments: args, State: tc.state,
	})
	p.fireToolCallState(msgID, e.ToolCallID, tc.state, args)
}

func (p *Processor) handleToolCallEnd(e EventToolCallEnd) {
	msgID, ok := p.toolCallToMessage[e.ToolCallID]
	if !ok {
		return
	}
	st := p.messageStates[msgID]
	if st == nil {
		return // routed via SetMessages, no stream state for this message
	}
	tc := st.toolCalls[e.ToolCallID]
	if tc == nil {
		return
	}
	args := tc.argsBuf.String()
	if e.Input != nil {
		args = string(e.Input)
	}
	tc.state = ToolCallInputComplete
	p.messages = updateToolCallPart(p.messages, msgID, toolCallUpdate{
		ID: e.ToolCallID, Name: tc.name, Arguments: args, State: ToolCallInputComplete,
	})
	p.fireToolCallState(msgID, e.ToolCallID, ToolCallInputComplete, args)

	if e.Result != nil {
		output := decodeJSONAny(e.Result)
		p.messages = updateToolCallWithOutput(p.messages, e.ToolCallID, output, ToolCallInputComplete)
		p.messages = updateToolResultPart(p.messages, msgID, e.ToolCallID, string(e.Result), ToolResultComplete, "")
		p.hooks.fireMessagesChange(p.messages)
	}
}

func (p *Processor) handleStepFinished(e EventStepFinished) {
	msgID := p.resolveMessageID(e.MessageID)
	st := p.ensureMessageState(msgID, RoleAssistant)
	content := e.Content
	if e.Delta != "" {
		content = st.thinkingContent + e.Delta
	}
	st.thinkingContent = content
	p.messages = updateThinkingPart(p.messages, msgID, content)
	p.hooks.fireMessagesChange(p.messages)
	if p.hooks.OnThinkingUpdate != nil {
		p.hooks.OnThinkingUpdate(msgID, content)
	}
}

func (p *Processor) handleRunFinished(e EventRunFinished) {
	p.finishReason = e.FinishReason
	p.completeAllToolCalls()
	p.isDone = true
	p.finalizeStream()
}

func (p *Processor) handleRunError(e EventRunError) {
	p.hasError = true
	p.completeAllToolCalls()
	p.isDone = true
	if p.hooks.OnError != nil {
		p.hooks.OnError(fmt.Errorf("streamchat: run error%s: %s", codeSuffix(e.Code), e.Message))
	}
	p.finalizeStream()
}

func codeSuffix(code string) string {
	if code == "" {
		return ""
	}
	return " [" + code + "]"
}

func (p *Processor) handleCustom(e EventCustom) {
	switch e.Name {
	case CustomToolInputAvailable:
		data, ok := e.Data.(CustomToolInputAvailableData)
		if !ok || p.hooks.OnToolCall == nil {
			return
		}
		p.hooks.OnToolCall(data.ToolCallID, data.ToolName, data.Input)
	case CustomApprovalRequested:
		data, ok := e.Data.(CustomApprovalRequestedData)
		if !ok {
			return
		}
		msgID, exists := p.toolCallToMessage[data.ToolCallID]
		if !exists {
			return
		}
		p.messages = updateToolCallApproval(p.messages, msgID, data.ToolCallID, data.ApprovalID)
		p.fireToolCallState(msgID, data.ToolCallID, ToolCallApprovalRequested, "")
		if p.hooks.OnApprovalRequest != nil {
			p.hooks.OnApprovalRequest(data.ToolCallID, data.ToolName, data.Input, data.ApprovalID)
		}
	}
	// Unknown CUSTOM names are ignored rather than treated as an error.
}

// completeMessageToolCalls force-completes every tool call belonging to
// messageID that has not yet reached input-complete.
func (p *Processor) completeMessageToolCalls(messageID string) {
	st, ok := p.messageStates[messageID]
	if !ok {
		return
	}
	idx := findMessageIndex(p.messages, messageID)
	changed := false
	for _, id := range st.toolCallOrder {
		tc := st.toolCalls[id]
		if tc == nil || tc.state == ToolCallInputComplete || tc.state == ToolCallApprovalResponded {
			continue
		}
		if idx >= 0 {
			if part, found := findToolCallPart(p.messages[idx], id); found && toolCallStateRank[part.State] > toolCallStateRank[ToolCallInputComplete] {
				continue // already on the approval track; never moved back
			}
		}
		tc.state = ToolCallInputComplete
		args := tc.argsBuf.String()
		p.messages = updateToolCallPart(p.messages, messageID, toolCallUpdate{
			ID: id, Name: tc.name, Arguments: args, State: ToolCallInputComplete,
		})
		p.fireToolCallState(messageID, id, ToolCallInputComplete, args)
		changed = true
	}
	if changed {
		p.hooks.fireMessagesChange(p.messages)
	}
}

// completeAllToolCalls is the stream-end safety net: every active message's
// unfinished tool calls are force-advanced.
func (p *Processor) completeAllToolCalls() {
	for _, id := range p.activeMessageIDs {
		p.completeMessageToolCalls(id)
	}
}

// finalizeStream prunes a whitespace-only trailing assistant message
// and fires OnStreamEnd, then clears per-stream bookkeeping.
func (p *Processor) finalizeStream() {
	p.completeAllToolCalls()

	if lastID := p.lastActiveMessageID(); lastID != "" && !p.hasError {
		if idx := findMessageIndex(p.messages, lastID); idx >= 0 && isWhitespaceOnly(p.messages[idx]) {
			p.messages = append(p.messages[:idx], p.messages[idx+1:]...)
			delete(p.messageStates, lastID)
			for callID, mid := range p.toolCallToMessage {
				if mid == lastID {
					delete(p.toolCallToMessage, callID)
				}
			}
		}
	}

	for _, id := range p.activeMessageIDs {
		if st, ok := p.messageStates[id]; ok {
			st.isComplete = true
		}
	}

	p.hooks.fireMessagesChange(p.messages)
	if p.hooks.OnStreamEnd != nil {
		if lastID := p.lastActiveMessageID(); lastID != "" {
			if idx := findMessageIndex(p.messages, lastID); idx >= 0 {
				p.hooks.OnStreamEnd(p.messages[idx].clone())
			}
		}
	}
	p.activeMessageIDs = nil
}

func (p *Processor) lastActiveMessageID() string {
	if n := len(p.activeMessageIDs); n > 0 {
		return p.activeMessageIDs[n-1]
	}
	return ""
}

func isWhitespaceOnly(m Message) bool {
	for _, part := range m.Parts {
		tp, ok := part.(TextPart)
		if !ok {
			return false
		}
		if strings.TrimSpace(tp.Content) != "" {
			return false
		}
	}
	return true
}

func (p *Processor) fireToolCallState(messageID, toolCallID string, state ToolCallState, args string) {
	p.hooks.fireMessagesChange(p.messages)
	if p.hooks.OnToolCallStateChange != nil {
		p.hooks.OnToolCallStateChange(messageID, toolCallID, state, args)
	}
}

// AddToolResult records the outcome of a client-executed tool call: sets the
// ToolCallPart's Output and appends a ToolResultPart. errText, when
// non-empty, marks the result as ToolResultError instead of
// ToolResultComplete.
func (p *Processor) AddToolResult(toolCallID string, output any, content string, errText string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	msgID, ok := p.toolCallToMessage[toolCallID]
	if !ok {
		return fmt.Errorf("streamchat: add tool result: %w: %s", ErrUnknownToolCall, toolCallID)
	}
	state := ToolResultComplete
	if errText != "" {
		state = ToolResultError
	}
	p.messages = updateToolCallWithOutput(p.messages, toolCallID, output, ToolCallInputComplete)
	p.messages = updateToolResultPart(p.messages, msgID, toolCallID, content, state, errText)
	p.hooks.fireMessagesChange(p.messages)
	return nil
}

// AddToolApprovalResponse records an approval decision. A response for an
// unknown approvalID is a silent no-op.
func (p *Processor) AddToolApprovalResponse(approvalID string, approved bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = updateToolCallApprovalResponse(p.messages, approvalID, approved)
	p.hooks.fireMessagesChange(p.messages)
}

// AreAllToolsComplete reports whether every tool call introduced since the
// last PrepareAssistantMessage is resolved: its arguments are complete and
// it has an Output or a ToolResultPart, or its approval was declined. A call
// still streaming input or awaiting approval is unresolved. This is the
// signal that the current turn is ready for a model
// round-trip / auto-continue. Tool calls from earlier turns are not
// reconsidered, so a call resolved once does not keep this vacuously true
// for the rest of the conversation.
func (p *Processor) AreAllToolsComplete() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, id := range p.currentTurnToolCalls {
		msgID, ok := p.toolCallToMessage[id]
		if !ok {
			continue
		}
		idx := findMessageIndex(p.messages, msgID)
		if idx < 0 {
			continue
		}
		tc, found := findToolCallPart(p.messages[idx], id)
		if !found {
			continue
		}
		if !toolCallResolved(tc, p.messages[idx]) {
			return false
		}
	}
	return true
}

func findToolCallPart(m Message, id string) (ToolCallPart, bool) {
	for _, part := range m.Parts {
		if tc, ok := part.(ToolCallPart); ok && tc.ID == id {
			return tc, true
		}
	}
	return ToolCallPart{}, false
}

func toolCallResolved(tc ToolCallPart, m Message) bool {
	switch tc.State {
	case ToolCallAwaitingInput, ToolCallInputStreaming, ToolCallApprovalRequested:
		return false
	case ToolCallApprovalResponded:
		if tc.Approval != nil && tc.Approval.Approved != nil && !*tc.Approval.Approved {
			return true // declined approval never produces output; not a blocker
		}
		return tc.Output != nil || hasToolResult(m, tc.ID)
	default: // ToolCallInputComplete
		return tc.Output != nil || hasToolResult(m, tc.ID)
	}
}

func hasToolResult(m Message, toolCallID string) bool {
	for _, part := range m.Parts {
		if tr, ok := part.(ToolResultPart); ok && tr.ToolCallID == toolCallID {
			return true
		}
	}
	return false
}

// RemoveMessagesAfter truncates the conversation to end at (and include)
// messageID, discarding everything after it. Used by Client.Reload to drop
// a superseded assistant turn before resubmitting.
func (p *Processor) RemoveMessagesAfter(messageID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	idx := findMessageIndex(p.messages, messageID)
	if idx < 0 {
		return
	}
	kept := p.messages[:idx+1]
	keepSet := make(map[string]bool, len(kept))
	for _, m := range kept {
		keepSet[m.ID] = true
	}
	p.messages = append([]Message(nil), kept...)
	for id := range p.messageStates {
		if !keepSet[id] {
			delete(p.messageStates, id)
		}
	}
	for callID, mid := range p.toolCallToMessage {
		if !keepSet[mid] {
			delete(p.toolCallToMessage, callID)
		}
	}
	p.hooks.fireMessagesChange(p.messages)
}

// ClearMessages empties the conversation and all derived state.
func (p *Processor) ClearMessages() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clearMessagesLocked()
	p.hooks.fireMessagesChange(p.messages)
}

func (p *Processor) clearMessagesLocked() {
	p.messages = nil
	p.messageStates = make(map[string]*messageStreamState)
	p.toolCallToMessage = make(map[string]string)
	p.activeMessageIDs = nil
	p.currentTurnToolCalls = nil
	p.pendingManualID = ""
	p.finishReason = ""
	p.hasError = false
	p.isDone = false
}

// Reset restores the Processor to its zero conversation state, including
// clearing any in-progress recording.
func (p *Processor) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clearMessagesLocked()
	p.recording = nil
	p.hooks.fireMessagesChange(p.messages)
}

// FinishReason returns the reason recorded by the most recent EventRunFinished.
func (p *Processor) FinishReason() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.finishReason
}

// HasError reports whether the most recent run ended in EventRunError.
func (p *Processor) HasError() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.hasError
}

func decodeJSONAny(raw []byte) any {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return string(raw)
	}
	return v
}

// ParsedArguments returns a best-effort parse of a ToolCallPart's raw
// argument text using partialjson, safe to call mid-stream on an
// input-streaming call.
func (t ToolCallPart) ParsedArguments() any {
	return partialjson.Parse(t.Arguments)
}
