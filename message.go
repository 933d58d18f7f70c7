package streamchat

import "time"

// Message is an ordered record in a conversation: an id, a role, and an
// ordered, possibly heterogeneous sequence of Parts. External code holds
// read-only snapshots delivered via Client's OnMessagesChange callback;
// Parts are mutated only by Processor during ProcessChunk or by
// AddToolResult/AddToolApprovalResponse.
type Message struct {
	ID        string
	Role      Role
	Parts     []Part
	CreatedAt time.Time
}

// clone returns a shallow copy of m with its own Parts slice header, so
// callers can append/replace without affecting other snapshots.
func (m Message) clone() Message {
	parts := make([]Part, len(m.Parts))
	copy(parts, m.Parts)
	m.Parts = parts
	return m
}

// lastPart returns the message's final part, or nil if the message has none.
func (m Message) lastPart() Part {
	if len(m.Parts) == 0 {
		return nil
	}
	return m.Parts[len(m.Parts)-1]
}

// findMessageIndex returns the index of the message with the given id, or -1.
func findMessageIndex(messages []Message, id string) int {
	for i := range messages {
		if messages[i].ID == id {
			return i
		}
	}
	return -1
}

// cloneMessages returns a new slice with new Message value copies (each with
// its own Parts backing array), preserving the "messages are immutable
// snapshots" policy from the concurrency model: mutators never write through
// a caller-held slice or Message value.
func cloneMessages(messages []Message) []Message {
	out := make([]Message, len(messages))
	for i, m := range messages {
		out[i] = m.clone()
	}
	return out
}
