package streamchat_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/streamchat/streamchat"
	"github.com/streamchat/streamchat/mock"
	"github.com/streamchat/streamchat/transport/inprocess"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSession(subscribe func(ctx context.Context) (streamchat.Stream, error)) *mock.Session {
	return &mock.Session{
		SubscribeFn: subscribe,
		SendFn:      func(ctx context.Context, messages []streamchat.Message, data any) error { return nil },
	}
}

func TestClient_SendMessage_ReachesReadyOnCleanRun(t *testing.T) {
	t.Parallel()
	events := []streamchat.Event{
		streamchat.EventTextMessageStart{MessageID: "m1", Role: streamchat.RoleAssistant},
		streamchat.EventTextMessageContent{MessageID: "m1", Delta: "hello"},
		streamchat.EventTextMessageEnd{MessageID: "m1"},
		streamchat.EventRunFinished{FinishReason: "stop"},
	}
	session := newTestSession(func(ctx context.Context) (streamchat.Stream, error) {
		return inprocess.NewSliceStream(events), nil
	})

	var statuses []streamchat.ClientStatus
	client := streamchat.NewClient(session, streamchat.Hooks{}, streamchat.WithOnStatusChange(func(s streamchat.ClientStatus) {
		statuses = append(statuses, s)
	}))

	require.NoError(t, client.SendMessage(context.Background(), []streamchat.Part{streamchat.TextPart{Content: "hi"}}, nil))

	assert.Equal(t, streamchat.StatusReady, client.Status())
	assert.Equal(t, []streamchat.ClientStatus{
		streamchat.StatusSubmitted,
		streamchat.StatusStreaming,
		streamchat.StatusReady,
	}, statuses)

	messages := client.Messages()
	require.Len(t, messages, 2, "user message plus assistant reply")
	assert.Equal(t, streamchat.RoleUser, messages[0].Role)
	assert.Equal(t, streamchat.RoleAssistant, messages[1].Role)
}

func TestClient_SendMessage_SubscribeFailure_SetsStatusError(t *testing.T) {
	t.Parallel()
	session := newTestSession(func(ctx context.Context) (streamchat.Stream, error) {
		return nil, assertAnError{}
	})
	client := streamchat.NewClient(session, streamchat.Hooks{})

	err := client.SendMessage(context.Background(), []streamchat.Part{streamchat.TextPart{Content: "hi"}}, nil)
	assert.Error(t, err)
	assert.Equal(t, streamchat.StatusError, client.Status())
}

func TestClient_Reload_WithoutPriorUserMessage_ReturnsError(t *testing.T) {
	t.Parallel()
	session := newTestSession(func(ctx context.Context) (streamchat.Stream, error) {
		t.Fatal("Reload with no user message must not subscribe")
		return nil, nil
	})
	client := streamchat.NewClient(session, streamchat.Hooks{})

	err := client.Reload(context.Background(), nil)
	assert.ErrorIs(t, err, streamchat.ErrUnknownMessage)
}

func TestClient_Reload_TruncatesAfterLastUserMessageAndResubmits(t *testing.T) {
	t.Parallel()
	firstTurn := []streamchat.Event{
		streamchat.EventTextMessageStart{MessageID: "m1", Role: streamchat.RoleAssistant},
		streamchat.EventTextMessageContent{MessageID: "m1", Delta: "first answer"},
		streamchat.EventTextMessageEnd{MessageID: "m1"},
		streamchat.EventRunFinished{FinishReason: "stop"},
	}
	secondTurn := []streamchat.Event{
		streamchat.EventTextMessageStart{MessageID: "m2", Role: streamchat.RoleAssistant},
		streamchat.EventTextMessageContent{MessageID: "m2", Delta: "regenerated answer"},
		streamchat.EventTextMessageEnd{MessageID: "m2"},
		streamchat.EventRunFinished{FinishReason: "stop"},
	}
	var calls int32
	session := newTestSession(func(ctx context.Context) (streamchat.Stream, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			return inprocess.NewSliceStream(firstTurn), nil
		}
		return inprocess.NewSliceStream(secondTurn), nil
	})
	client := streamchat.NewClient(session, streamchat.Hooks{})

	require.NoError(t, client.SendMessage(context.Background(), []streamchat.Part{streamchat.TextPart{Content: "hi"}}, nil))
	require.Len(t, client.Messages(), 2)

	require.NoError(t, client.Reload(context.Background(), nil))
	messages := client.Messages()
	require.Len(t, messages, 2, "reload drops the old reply and appends exactly one new one")
	assert.Equal(t, "m2", messages[1].ID)
}

func TestClient_ClientTool_DispatchedAndAutoContinuesTurn(t *testing.T) {
	t.Parallel()
	firstTurn := []streamchat.Event{
		streamchat.EventToolCallStart{ToolCallID: "t1", ToolName: "search", ParentMessageID: "m1"},
		streamchat.EventToolCallArgs{ToolCallID: "t1", Delta: `{"q":"go"}`},
		streamchat.EventToolCallEnd{ToolCallID: "t1"},
		streamchat.EventCustom{Name: streamchat.CustomToolInputAvailable, Data: streamchat.CustomToolInputAvailableData{
			ToolCallID: "t1", ToolName: "search", Input: map[string]any{"q": "go"},
		}},
		streamchat.EventRunFinished{FinishReason: "tool-calls"},
	}
	secondTurn := []streamchat.Event{
		streamchat.EventTextMessageStart{MessageID: "m2", Role: streamchat.RoleAssistant},
		streamchat.EventTextMessageContent{MessageID: "m2", Delta: "here is what I found"},
		streamchat.EventTextMessageEnd{MessageID: "m2"},
		streamchat.EventRunFinished{FinishReason: "stop"},
	}

	var calls int32
	secondSubscribed := make(chan struct{})
	session := newTestSession(func(ctx context.Context) (streamchat.Stream, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			return inprocess.NewSliceStream(firstTurn), nil
		}
		close(secondSubscribed)
		return inprocess.NewSliceStream(secondTurn), nil
	})

	var toolInvoked int32
	tool := func(ctx context.Context, input any) (any, error) {
		atomic.AddInt32(&toolInvoked, 1)
		return "3 results", nil
	}

	client := streamchat.NewClient(session, streamchat.Hooks{},
		streamchat.WithClientTool("search", tool),
		streamchat.WithAutoContinue(true),
	)

	require.NoError(t, client.SendMessage(context.Background(), []streamchat.Part{streamchat.TextPart{Content: "search for go"}}, nil))
	assert.Equal(t, int32(1), atomic.LoadInt32(&toolInvoked))

	select {
	case <-secondSubscribed:
	case <-time.After(2 * time.Second):
		t.Fatal("auto-continue never resubmitted after the tool result landed")
	}

	require.Eventually(t, func() bool {
		return client.Status() == streamchat.StatusReady
	}, time.Second, 5*time.Millisecond)

	messages := client.Messages()
	require.Len(t, messages, 3, "user message, the tool-call turn, and the auto-continued reply")
	toolCall := messages[1].Parts[0].(streamchat.ToolCallPart)
	assert.Equal(t, "3 results", toolCall.Output)
	assert.Equal(t, "here is what I found", messages[2].Parts[0].(streamchat.TextPart).Content)
}

func TestClient_AddToolApprovalResponse_ForwardsToProcessor(t *testing.T) {
	t.Parallel()
	session := newTestSession(func(ctx context.Context) (streamchat.Stream, error) {
		return inprocess.NewSliceStream([]streamchat.Event{
			streamchat.EventToolCallStart{ToolCallID: "t1", ToolName: "delete_file", ParentMessageID: "m1"},
			streamchat.EventCustom{Name: streamchat.CustomApprovalRequested, Data: streamchat.CustomApprovalRequestedData{
				ToolCallID: "t1", ToolName: "delete_file", ApprovalID: "a1",
			}},
			streamchat.EventRunFinished{FinishReason: "tool-calls"},
		}), nil
	})
	client := streamchat.NewClient(session, streamchat.Hooks{})
	require.NoError(t, client.SendMessage(context.Background(), []streamchat.Part{streamchat.TextPart{Content: "delete it"}}, nil))

	client.AddToolApprovalResponse("a1", true)

	tc := client.Messages()[1].Parts[0].(streamchat.ToolCallPart)
	require.NotNil(t, tc.Approval)
	require.NotNil(t, tc.Approval.Approved)
	assert.True(t, *tc.Approval.Approved)
	assert.Equal(t, streamchat.ToolCallApprovalResponded, tc.State)
}

func TestClient_Reload_DuringBlockedNext_DiscardsStaleEvent(t *testing.T) {
	t.Parallel()
	nextCalled := make(chan struct{})
	release := make(chan struct{})

	staleEvent := streamchat.EventTextMessageContent{MessageID: "stale", Delta: "should never appear"}
	secondTurn := []streamchat.Event{
		streamchat.EventTextMessageStart{MessageID: "m2", Role: streamchat.RoleAssistant},
		streamchat.EventTextMessageContent{MessageID: "m2", Delta: "fresh answer"},
		streamchat.EventTextMessageEnd{MessageID: "m2"},
		streamchat.EventRunFinished{FinishReason: "stop"},
	}

	var calls int32
	session := newTestSession(func(ctx context.Context) (streamchat.Stream, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			return &mock.Stream{NextFn: func() (streamchat.Event, error) {
				close(nextCalled)
				<-release
				return staleEvent, nil
			}}, nil
		}
		return inprocess.NewSliceStream(secondTurn), nil
	})
	client := streamchat.NewClient(session, streamchat.Hooks{})

	firstDone := make(chan error, 1)
	go func() {
		firstDone <- client.SendMessage(context.Background(), []streamchat.Part{streamchat.TextPart{Content: "hi"}}, nil)
	}()

	select {
	case <-nextCalled:
	case <-time.After(2 * time.Second):
		t.Fatal("first stream's Next was never called")
	}

	// Reload runs its own submit to completion (second stream is a clean
	// SliceStream) while the first stream's Next call is still blocked on
	// release, simulating a chunk arriving after supersession.
	require.NoError(t, client.Reload(context.Background(), nil))

	close(release)

	select {
	case err := <-firstDone:
		assert.NoError(t, err, "a superseded submit reports success, not an error")
	case <-time.After(2 * time.Second):
		t.Fatal("superseded submit never returned after its stale event unblocked")
	}

	require.Eventually(t, func() bool {
		return client.Status() == streamchat.StatusReady
	}, time.Second, 5*time.Millisecond)

	messages := client.Messages()
	require.Len(t, messages, 2, "user message plus the second turn's reply only; the stale chunk must not appear")
	assert.Equal(t, "m2", messages[1].ID)
	assert.Equal(t, "fresh answer", messages[1].Parts[0].(streamchat.TextPart).Content)
}

func TestClient_Stop_UnblocksSendMessageWithoutError(t *testing.T) {
	t.Parallel()
	started := make(chan struct{})
	session := newTestSession(func(ctx context.Context) (streamchat.Stream, error) {
		return &mock.Stream{NextFn: func() (streamchat.Event, error) {
			close(started)
			<-ctx.Done()
			return nil, ctx.Err()
		}}, nil
	})
	client := streamchat.NewClient(session, streamchat.Hooks{})

	done := make(chan error, 1)
	go func() {
		done <- client.SendMessage(context.Background(), []streamchat.Part{streamchat.TextPart{Content: "hi"}}, nil)
	}()

	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("stream never started")
	}
	client.Stop()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not unblock SendMessage")
	}
}
