package streamchat

// This file implements the pure message mutators: each function is total,
// idempotent on equal inputs, and returns a new []Message with structural
// sharing of untouched messages, operating on plain values rather than
// through a receiver.

// updateTextPart replaces the target message's last part in place if it is a
// TextPart, otherwise appends a new TextPart. Within one segment, text is
// extended in place; a preceding non-text part forces a new TextPart, which
// the caller arranges by not calling this function across a segment
// boundary.
func updateTextPart(messages []Message, messageID, content string) []Message {
	out := cloneMessages(messages)
	idx := findMessageIndex(out, messageID)
	if idx < 0 {
		return out
	}
	msg := out[idx]
	if last, ok := msg.lastPart().(TextPart); ok {
		msg.Parts[len(msg.Parts)-1] = TextPart{Content: content}
		_ = last
	} else {
		msg.Parts = append(msg.Parts, TextPart{Content: content})
	}
	out[idx] = msg
	return out
}

// updateThinkingPart replaces the latest ThinkingPart in place, or appends
// one if the message has none yet: at most one open ThinkingPart per
// segment.
func updateThinkingPart(messages []Message, messageID, content string) []Message {
	out := cloneMessages(messages)
	idx := findMessageIndex(out, messageID)
	if idx < 0 {
		return out
	}
	msg := out[idx]
	for i := len(msg.Parts) - 1; i >= 0; i-- {
		if _, ok := msg.Parts[i].(ThinkingPart); ok {
			msg.Parts[i] = ThinkingPart{Content: content}
			out[idx] = msg
			return out
		}
	}
	msg.Parts = append(msg.Parts, ThinkingPart{Content: content})
	out[idx] = msg
	return out
}

// toolCallUpdate carries the fields updateToolCallPart may set. Zero-value
// State means "leave unchanged" is not representable, so callers always pass
// the call's full desired state explicitly.
type toolCallUpdate struct {
	ID        string
	Name      string
	Arguments string
	State     ToolCallState
}

// updateToolCallPart upserts a ToolCallPart by ID: if a part with the id
// already exists it is replaced with a merged copy (id/name are sticky once
// set, arguments/state take the new value), otherwise a new part is appended.
func updateToolCallPart(messages []Message, messageID string, upd toolCallUpdate) []Message {
	out := cloneMessages(messages)
	idx := findMessageIndex(out, messageID)
	if idx < 0 {
		return out
	}
	msg := out[idx]
	for i, p := range msg.Parts {
		tc, ok := p.(ToolCallPart)
		if !ok || tc.ID != upd.ID {
			continue
		}
		if upd.Name != "" {
			tc.Name = upd.Name
		}
		tc.Arguments = upd.Arguments
		tc.State = upd.State
		msg.Parts[i] = tc
		out[idx] = msg
		return out
	}
	msg.Parts = append(msg.Parts, ToolCallPart{
		ID:        upd.ID,
		Name:      upd.Name,
		Arguments: upd.Arguments,
		State:     upd.State,
	})
	out[idx] = msg
	return out
}

// updateToolCallWithOutput sets Output (and, when non-empty, State) on the
// ToolCallPart matching toolCallID, searching all messages since callers
// (Client) address tool calls by id alone.
func updateToolCallWithOutput(messages []Message, toolCallID string, output any, state ToolCallState) []Message {
	out := cloneMessages(messages)
	for mi, msg := range out {
		for i, p := range msg.Parts {
			tc, ok := p.(ToolCallPart)
			if !ok || tc.ID != toolCallID {
				continue
			}
			tc.Output = output
			if state != "" {
				tc.State = state
			}
			msg.Parts[i] = tc
			out[mi] = msg
			return out
		}
	}
	return out
}

// updateToolCallApproval attaches approval metadata to the named tool call
// and sets its state to approval-requested.
func updateToolCallApproval(messages []Message, messageID, toolCallID, approvalID string) []Message {
	out := cloneMessages(messages)
	idx := findMessageIndex(out, messageID)
	if idx < 0 {
		return out
	}
	msg := out[idx]
	for i, p := range msg.Parts {
		tc, ok := p.(ToolCallPart)
		if !ok || tc.ID != toolCallID {
			continue
		}
		tc.Approval = &Approval{ID: approvalID, NeedsApproval: true}
		tc.State = ToolCallApprovalRequested
		msg.Parts[i] = tc
		out[idx] = msg
		return out
	}
	return out
}

// updateToolCallApprovalResponse records an approval decision by approvalID,
// searching all messages, and advances state to approval-responded. A
// response for an unknown approvalID is a no-op.
func updateToolCallApprovalResponse(messages []Message, approvalID string, approved bool) []Message {
	out := cloneMessages(messages)
	for mi, msg := range out {
		for i, p := range msg.Parts {
			tc, ok := p.(ToolCallPart)
			if !ok || tc.Approval == nil || tc.Approval.ID != approvalID {
				continue
			}
			a := *tc.Approval
			a.Approved = &approved
			tc.Approval = &a
			tc.State = ToolCallApprovalResponded
			msg.Parts[i] = tc
			out[mi] = msg
			return out
		}
	}
	return out
}

// updateToolResultPart upserts a ToolResultPart on messageID, keyed by
// toolCallID; toolCallID must reference an existing ToolCallPart in the
// same message, which the processor enforces at the call site.
func updateToolResultPart(messages []Message, messageID, toolCallID, content string, state ToolResultState, errText string) []Message {
	out := cloneMessages(messages)
	idx := findMessageIndex(out, messageID)
	if idx < 0 {
		return out
	}
	msg := out[idx]
	for i, p := range msg.Parts {
		tr, ok := p.(ToolResultPart)
		if !ok || tr.ToolCallID != toolCallID {
			continue
		}
		tr.Content = content
		tr.State = state
		tr.Error = errText
		msg.Parts[i] = tr
		out[idx] = msg
		return out
	}
	msg.Parts = append(msg.Parts, ToolResultPart{
		ToolCallID: toolCallID,
		Content:    content,
		State:      state,
		Error:      errText,
	})
	out[idx] = msg
	return out
}
