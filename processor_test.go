package streamchat_test

import (
	"testing"

	"github.com/streamchat/streamchat"
	"github.com/streamchat/streamchat/transport/inprocess"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func idGen(prefix string) func() string {
	n := 0
	return func() string {
		n++
		return prefix + string(rune('0'+n))
	}
}

func process(t *testing.T, p *streamchat.Processor, events []streamchat.Event) {
	t.Helper()
	require.NoError(t, p.Process(inprocess.NewSliceStream(events)))
}

func TestProcessor_TextMessage_AccumulatesDeltas(t *testing.T) {
	t.Parallel()
	var updates []string
	p := streamchat.NewProcessor(streamchat.Hooks{
		OnTextUpdate: func(_, content string) { updates = append(updates, content) },
	})

	process(t, p, []streamchat.Event{
		streamchat.EventTextMessageStart{MessageID: "m1", Role: streamchat.RoleAssistant},
		streamchat.EventTextMessageContent{MessageID: "m1", Delta: "Hel"},
		streamchat.EventTextMessageContent{MessageID: "m1", Delta: "lo"},
		streamchat.EventTextMessageEnd{MessageID: "m1"},
		streamchat.EventRunFinished{FinishReason: "stop"},
	})

	messages := p.GetMessages()
	require.Len(t, messages, 1)
	assert.Equal(t, streamchat.RoleAssistant, messages[0].Role)
	require.Len(t, messages[0].Parts, 1)
	assert.Equal(t, "Hello", messages[0].Parts[0].(streamchat.TextPart).Content)
	assert.Equal(t, []string{"Hel", "Hello"}, updates)
	assert.Equal(t, "stop", p.FinishReason())
	assert.False(t, p.HasError())
}

func TestProcessor_LazyAssistantMessage_NeverCreatedWithoutContent(t *testing.T) {
	t.Parallel()
	p := streamchat.NewProcessor(streamchat.Hooks{})
	p.PrepareAssistantMessage()
	process(t, p, []streamchat.Event{
		streamchat.EventRunFinished{FinishReason: "stop"},
	})
	assert.Empty(t, p.GetMessages(), "a turn with no content must not leave an empty message behind")
}

func TestProcessor_PrepareAssistantMessage_RebindsIDOnFirstEvent(t *testing.T) {
	t.Parallel()
	p := streamchat.NewProcessor(streamchat.Hooks{})
	pendingID := p.PrepareAssistantMessage()
	require.NotEmpty(t, pendingID)

	process(t, p, []streamchat.Event{
		streamchat.EventTextMessageStart{MessageID: "server-assigned", Role: streamchat.RoleAssistant},
		streamchat.EventTextMessageContent{MessageID: "server-assigned", Delta: "hi"},
		streamchat.EventTextMessageEnd{MessageID: "server-assigned"},
		streamchat.EventRunFinished{FinishReason: "stop"},
	})

	messages := p.GetMessages()
	require.Len(t, messages, 1)
	assert.Equal(t, "server-assigned", messages[0].ID, "the rebind must land on the server's own id")
}

func TestProcessor_ToolCall_LifecycleAndSegmentReset(t *testing.T) {
	t.Parallel()
	var states []streamchat.ToolCallState
	p := streamchat.NewProcessor(streamchat.Hooks{
		OnToolCallStateChange: func(_, _ string, state streamchat.ToolCallState, _ string) {
			states = append(states, state)
		},
	})

	process(t, p, []streamchat.Event{
		streamchat.EventTextMessageStart{MessageID: "m1", Role: streamchat.RoleAssistant},
		streamchat.EventTextMessageContent{MessageID: "m1", Delta: "Let me check that."},
		streamchat.EventToolCallStart{ToolCallID: "t1", ToolName: "search", ParentMessageID: "m1"},
		streamchat.EventToolCallArgs{ToolCallID: "t1", Delta: `{"q":`},
		streamchat.EventToolCallArgs{ToolCallID: "t1", Delta: `"go"}`},
		streamchat.EventToolCallEnd{ToolCallID: "t1"},
		streamchat.EventTextMessageContent{MessageID: "m1", Delta: "Found it."},
		streamchat.EventTextMessageEnd{MessageID: "m1"},
		streamchat.EventRunFinished{FinishReason: "stop"},
	})

	messages := p.GetMessages()
	require.Len(t, messages, 1)
	require.Len(t, messages[0].Parts, 3, "text, then tool call, then a fresh text segment after the tool call")
	assert.Equal(t, "Let me check that.", messages[0].Parts[0].(streamchat.TextPart).Content)
	tc := messages[0].Parts[1].(streamchat.ToolCallPart)
	assert.Equal(t, "search", tc.Name)
	assert.Equal(t, `{"q":"go"}`, tc.Arguments)
	assert.Equal(t, streamchat.ToolCallInputComplete, tc.State)
	assert.Equal(t, "Found it.", messages[0].Parts[2].(streamchat.TextPart).Content)

	assert.Equal(t, []streamchat.ToolCallState{
		streamchat.ToolCallAwaitingInput,
		streamchat.ToolCallInputStreaming,
		streamchat.ToolCallInputStreaming,
		streamchat.ToolCallInputComplete,
	}, states)
}

func TestProcessor_ToolCalls_InterleavedAcrossDistinctIDsResolveIndependently(t *testing.T) {
	t.Parallel()
	p := streamchat.NewProcessor(streamchat.Hooks{})
	process(t, p, []streamchat.Event{
		streamchat.EventToolCallStart{ToolCallID: "t1", ToolName: "search", ParentMessageID: "m1"},
		streamchat.EventToolCallStart{ToolCallID: "t2", ToolName: "lookup", ParentMessageID: "m1"},
		streamchat.EventToolCallArgs{ToolCallID: "t2", Delta: `{"id":`},
		streamchat.EventToolCallArgs{ToolCallID: "t1", Delta: `{"q":`},
		streamchat.EventToolCallArgs{ToolCallID: "t1", Delta: `"go"}`},
		streamchat.EventToolCallEnd{ToolCallID: "t1"},
		streamchat.EventToolCallArgs{ToolCallID: "t2", Delta: `42}`},
		streamchat.EventToolCallEnd{ToolCallID: "t2"},
		streamchat.EventRunFinished{FinishReason: "tool-calls"},
	})

	messages := p.GetMessages()
	require.Len(t, messages, 1)
	require.Len(t, messages[0].Parts, 2, "each tool call keeps its own part regardless of interleaved deltas")

	t1 := messages[0].Parts[0].(streamchat.ToolCallPart)
	assert.Equal(t, "search", t1.Name)
	assert.Equal(t, `{"q":"go"}`, t1.Arguments)
	assert.Equal(t, streamchat.ToolCallInputComplete, t1.State)

	t2 := messages[0].Parts[1].(streamchat.ToolCallPart)
	assert.Equal(t, "lookup", t2.Name)
	assert.Equal(t, `{"id":42}`, t2.Arguments)
	assert.Equal(t, streamchat.ToolCallInputComplete, t2.State)

	assert.False(t, p.AreAllToolsComplete(), "both calls finished their input but neither has produced output yet")

	require.NoError(t, p.AddToolResult("t1", "3 results", "3 results", ""))
	assert.False(t, p.AreAllToolsComplete(), "t2 is still outstanding")

	require.NoError(t, p.AddToolResult("t2", map[string]any{"name": "go"}, "go", ""))
	assert.True(t, p.AreAllToolsComplete())
}

func TestProcessor_AreAllToolsComplete_ScopedToCurrentTurn(t *testing.T) {
	t.Parallel()
	p := streamchat.NewProcessor(streamchat.Hooks{})
	process(t, p, []streamchat.Event{
		streamchat.EventToolCallStart{ToolCallID: "t1", ToolName: "search", ParentMessageID: "m1"},
		streamchat.EventToolCallEnd{ToolCallID: "t1"},
		streamchat.EventRunFinished{FinishReason: "tool-calls"},
	})
	require.NoError(t, p.AddToolResult("t1", "3 results", "3 results", ""))
	assert.True(t, p.AreAllToolsComplete(), "the first turn's tool call is fully resolved")

	p.PrepareAssistantMessage()
	process(t, p, []streamchat.Event{
		streamchat.EventTextMessageStart{MessageID: "m2", Role: streamchat.RoleAssistant},
		streamchat.EventTextMessageContent{MessageID: "m2", Delta: "here you go"},
		streamchat.EventTextMessageEnd{MessageID: "m2"},
	})
	assert.True(t, p.AreAllToolsComplete(), "a turn that introduces no tool calls has nothing outstanding")

	p.PrepareAssistantMessage()
	process(t, p, []streamchat.Event{
		streamchat.EventToolCallStart{ToolCallID: "t2", ToolName: "lookup", ParentMessageID: "m3"},
		streamchat.EventToolCallEnd{ToolCallID: "t2"},
		streamchat.EventRunFinished{FinishReason: "tool-calls"},
	})
	assert.False(t, p.AreAllToolsComplete(), "t2 belongs to the new turn and has not produced output yet, regardless of t1's earlier resolution")
}

func TestProcessor_ToolCallEnd_WithResult_AppendsToolResultPart(t *testing.T) {
	t.Parallel()
	p := streamchat.NewProcessor(streamchat.Hooks{})
	process(t, p, []streamchat.Event{
		streamchat.EventToolCallStart{ToolCallID: "t1", ToolName: "search", ParentMessageID: "m1"},
		streamchat.EventToolCallArgs{ToolCallID: "t1", Delta: `{}`},
		streamchat.EventToolCallEnd{ToolCallID: "t1", Result: []byte(`{"count":3}`)},
		streamchat.EventRunFinished{FinishReason: "stop"},
	})

	messages := p.GetMessages()
	require.Len(t, messages, 1)
	require.Len(t, messages[0].Parts, 2)
	tc := messages[0].Parts[0].(streamchat.ToolCallPart)
	assert.NotNil(t, tc.Output)
	tr := messages[0].Parts[1].(streamchat.ToolResultPart)
	assert.Equal(t, "t1", tr.ToolCallID)
	assert.Equal(t, streamchat.ToolResultComplete, tr.State)
	assert.JSONEq(t, `{"count":3}`, tr.Content)
}

func TestProcessor_RunFinished_SafetyNet_ForceCompletesDanglingToolCalls(t *testing.T) {
	t.Parallel()
	p := streamchat.NewProcessor(streamchat.Hooks{})
	process(t, p, []streamchat.Event{
		streamchat.EventToolCallStart{ToolCallID: "t1", ToolName: "search", ParentMessageID: "m1"},
		streamchat.EventToolCallArgs{ToolCallID: "t1", Delta: `{"q":"go"}`},
		// No EventToolCallEnd: the adapter cut off mid-stream.
		streamchat.EventRunFinished{FinishReason: "stop"},
	})

	messages := p.GetMessages()
	require.Len(t, messages, 1)
	tc := messages[0].Parts[0].(streamchat.ToolCallPart)
	assert.Equal(t, streamchat.ToolCallInputComplete, tc.State, "run finished must force-complete an unterminated tool call")
}

func TestProcessor_RunError_FiresOnErrorAndSkipsWhitespacePrune(t *testing.T) {
	t.Parallel()
	var gotErr error
	p := streamchat.NewProcessor(streamchat.Hooks{
		OnError: func(err error) { gotErr = err },
	})
	process(t, p, []streamchat.Event{
		streamchat.EventTextMessageStart{MessageID: "m1", Role: streamchat.RoleAssistant},
		streamchat.EventTextMessageContent{MessageID: "m1", Delta: "   "},
		streamchat.EventRunError{Message: "upstream exploded", Code: "rate_limited"},
	})

	require.Error(t, gotErr)
	assert.Contains(t, gotErr.Error(), "upstream exploded")
	assert.True(t, p.HasError())
	// An errored turn keeps its (whitespace-only) message rather than pruning it,
	// since the partial content is diagnostic.
	require.Len(t, p.GetMessages(), 1)
}

func TestProcessor_FinalizeStream_PrunesWhitespaceOnlyTrailingMessage(t *testing.T) {
	t.Parallel()
	p := streamchat.NewProcessor(streamchat.Hooks{})
	process(t, p, []streamchat.Event{
		streamchat.EventTextMessageStart{MessageID: "m1", Role: streamchat.RoleAssistant},
		streamchat.EventTextMessageContent{MessageID: "m1", Delta: "  \n"},
		streamchat.EventTextMessageEnd{MessageID: "m1"},
		streamchat.EventRunFinished{FinishReason: "stop"},
	})
	assert.Empty(t, p.GetMessages(), "a whitespace-only assistant message must be pruned on stream end")
}

func TestProcessor_StepFinished_TracksThinkingDeltaAndContent(t *testing.T) {
	t.Parallel()
	var thoughts []string
	p := streamchat.NewProcessor(streamchat.Hooks{
		OnThinkingUpdate: func(_, content string) { thoughts = append(thoughts, content) },
	})
	process(t, p, []streamchat.Event{
		streamchat.EventStepFinished{MessageID: "m1", Delta: "step one"},
		streamchat.EventStepFinished{MessageID: "m1", Delta: ", step two"},
		streamchat.EventStepFinished{MessageID: "m1", Content: "step one, step two, replaced wholesale"},
		streamchat.EventTextMessageStart{MessageID: "m1", Role: streamchat.RoleAssistant},
		streamchat.EventTextMessageContent{MessageID: "m1", Delta: "answer"},
		streamchat.EventTextMessageEnd{MessageID: "m1"},
		streamchat.EventRunFinished{FinishReason: "stop"},
	})

	messages := p.GetMessages()
	require.Len(t, messages, 1)
	require.Len(t, messages[0].Parts, 2)
	assert.Equal(t, "step one, step two, replaced wholesale", messages[0].Parts[0].(streamchat.ThinkingPart).Content)
	assert.Equal(t, []string{
		"step one",
		"step one, step two",
		"step one, step two, replaced wholesale",
	}, thoughts)
}

func TestProcessor_Custom_ApprovalRequested_UpdatesStateAndFiresHook(t *testing.T) {
	t.Parallel()
	var approvalID string
	p := streamchat.NewProcessor(streamchat.Hooks{
		OnApprovalRequest: func(_, _ string, _ any, approval string) { approvalID = approval },
	})
	process(t, p, []streamchat.Event{
		streamchat.EventToolCallStart{ToolCallID: "t1", ToolName: "delete_file", ParentMessageID: "m1"},
		streamchat.EventCustom{Name: streamchat.CustomApprovalRequested, Data: streamchat.CustomApprovalRequestedData{
			ToolCallID: "t1", ToolName: "delete_file", ApprovalID: "a1",
		}},
	})

	messages := p.GetMessages()
	tc := messages[0].Parts[0].(streamchat.ToolCallPart)
	require.NotNil(t, tc.Approval)
	assert.Equal(t, "a1", tc.Approval.ID)
	assert.Equal(t, streamchat.ToolCallApprovalRequested, tc.State)
	assert.Equal(t, "a1", approvalID)
}

func TestProcessor_AddToolResult_UnknownIDReturnsError(t *testing.T) {
	t.Parallel()
	p := streamchat.NewProcessor(streamchat.Hooks{})
	err := p.AddToolResult("does-not-exist", nil, "", "")
	assert.ErrorIs(t, err, streamchat.ErrUnknownToolCall)
}

func TestProcessor_AreAllToolsComplete(t *testing.T) {
	t.Parallel()
	p := streamchat.NewProcessor(streamchat.Hooks{})
	process(t, p, []streamchat.Event{
		streamchat.EventToolCallStart{ToolCallID: "t1", ToolName: "search", ParentMessageID: "m1"},
		streamchat.EventToolCallEnd{ToolCallID: "t1"},
	})
	assert.False(t, p.AreAllToolsComplete(), "input-complete without output is still outstanding")

	require.NoError(t, p.AddToolResult("t1", map[string]any{"ok": true}, "ok", ""))
	assert.True(t, p.AreAllToolsComplete())
}

func TestProcessor_RemoveMessagesAfter_TruncatesAndDropsOrphanState(t *testing.T) {
	t.Parallel()
	p := streamchat.NewProcessor(streamchat.Hooks{})
	p.AddUserMessage([]streamchat.Part{streamchat.TextPart{Content: "hi"}})
	process(t, p, []streamchat.Event{
		streamchat.EventTextMessageStart{MessageID: "m1", Role: streamchat.RoleAssistant},
		streamchat.EventTextMessageContent{MessageID: "m1", Delta: "hello"},
		streamchat.EventTextMessageEnd{MessageID: "m1"},
		streamchat.EventRunFinished{FinishReason: "stop"},
	})
	require.Len(t, p.GetMessages(), 2)

	firstID := p.GetMessages()[0].ID
	p.RemoveMessagesAfter(firstID)
	assert.Len(t, p.GetMessages(), 1)
}

func TestProcessor_ClearMessages_ResetsEverything(t *testing.T) {
	t.Parallel()
	p := streamchat.NewProcessor(streamchat.Hooks{})
	p.AddUserMessage([]streamchat.Part{streamchat.TextPart{Content: "hi"}})
	p.ClearMessages()
	assert.Empty(t, p.GetMessages())
	assert.Empty(t, p.FinishReason())
	assert.False(t, p.HasError())
}

func TestProcessor_SetMessages_RebuildsToolCallRouting(t *testing.T) {
	t.Parallel()
	p := streamchat.NewProcessor(streamchat.Hooks{})
	p.SetMessages([]streamchat.Message{
		{ID: "m1", Role: streamchat.RoleAssistant, Parts: []streamchat.Part{
			streamchat.ToolCallPart{ID: "t1", Name: "search", State: streamchat.ToolCallInputComplete},
		}},
	})

	require.NoError(t, p.AddToolResult("t1", "found", "found", ""))
	messages := p.GetMessages()
	require.Len(t, messages[0].Parts, 2)
	assert.Equal(t, "t1", messages[0].Parts[1].(streamchat.ToolResultPart).ToolCallID)
}

func TestProcessor_WithIDGenerator_UsesProvidedIDsForUserMessages(t *testing.T) {
	t.Parallel()
	p := streamchat.NewProcessor(streamchat.Hooks{}, streamchat.WithIDGenerator(idGen("id")))
	msg := p.AddUserMessage([]streamchat.Part{streamchat.TextPart{Content: "hi"}})
	assert.Equal(t, "id1", msg.ID)
}

func TestProcessor_Recording_ReplayProducesIdenticalMessages(t *testing.T) {
	t.Parallel()
	events := []streamchat.Event{
		streamchat.EventTextMessageStart{MessageID: "m1", Role: streamchat.RoleAssistant},
		streamchat.EventTextMessageContent{MessageID: "m1", Delta: "hello"},
		streamchat.EventTextMessageEnd{MessageID: "m1"},
		streamchat.EventRunFinished{FinishReason: "stop"},
	}

	p := streamchat.NewProcessor(streamchat.Hooks{})
	p.StartRecording()
	process(t, p, events)
	rec, ok := p.GetRecording()
	require.True(t, ok)
	assert.Len(t, rec.Events, len(events))

	result := streamchat.Replay(rec, streamchat.Hooks{})
	assert.Equal(t, p.GetMessages(), result.Messages)
	assert.Equal(t, p.FinishReason(), result.FinishReason)
	assert.Equal(t, p.HasError(), result.HasError)
}

func TestToolCallPart_ParsedArguments_TolerantOfTruncation(t *testing.T) {
	t.Parallel()
	tc := streamchat.ToolCallPart{Arguments: `{"q":"go`}
	parsed, ok := tc.ParsedArguments().(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "go", parsed["q"])
}
