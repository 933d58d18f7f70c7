package streamchat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// ClientTool executes a client-side tool call and returns its result. Errors
// are recorded on the ToolResultPart rather than aborting the run.
type ClientTool func(ctx context.Context, input any) (output any, err error)

// ClientOption configures a Client at construction time.
type ClientOption func(*Client)

// WithClientTool registers a ClientTool under name; a CUSTOM
// tool-input-available event naming it is dispatched automatically.
func WithClientTool(name string, tool ClientTool) ClientOption {
	return func(c *Client) { c.clientTools[name] = tool }
}

// WithProcessorOptions forwards options to the underlying Processor.
func WithProcessorOptions(opts ...ProcessorOption) ClientOption {
	return func(c *Client) { c.processorOpts = append(c.processorOpts, opts...) }
}

// WithAutoContinue enables automatically resubmitting the conversation once
// every client-executed tool in a turn has produced a result, so the model
// sees the results without the caller manually calling Reload.
func WithAutoContinue(enabled bool) ClientOption {
	return func(c *Client) { c.autoContinue = enabled }
}

// WithOnStatusChange registers a callback fired on every ClientStatus
// transition.
func WithOnStatusChange(fn func(ClientStatus)) ClientOption {
	return func(c *Client) { c.onStatusChange = fn }
}

// Client is the session orchestrator: it owns a Processor and a Session,
// submits user turns, drains the resulting event stream through the
// processor, dispatches client-executed tools, and exposes a small
// ready/submitted/streaming/error status machine. A generation counter lets
// a later submit/Reload supersede an in-flight turn instead of racing it.
type Client struct {
	session Session

	mu             sync.Mutex
	status         ClientStatus
	onStatusChange func(ClientStatus)
	cancel         context.CancelFunc

	processor     *Processor
	processorOpts []ProcessorOption
	clientTools   map[string]ClientTool
	autoContinue  bool

	generation          atomic.Uint64
	toolGroup           *errgroup.Group
	continuationPending atomic.Bool
}

// NewClient creates a Client. hooks are forwarded to the underlying
// Processor; Client adds its own OnToolCall dispatch on top of any
// caller-supplied one.
func NewClient(session Session, hooks Hooks, opts ...ClientOption) *Client {
	c := &Client{
		session:     session,
		status:      StatusReady,
		clientTools: make(map[string]ClientTool),
	}
	for _, opt := range opts {
		opt(c)
	}

	userOnToolCall := hooks.OnToolCall
	hooks.OnToolCall = func(toolCallID, toolName string, input any) {
		if userOnToolCall != nil {
			userOnToolCall(toolCallID, toolName, input)
		}
		c.dispatchClientTool(toolCallID, toolName, input)
	}
	c.processor = NewProcessor(hooks, c.processorOpts...)
	return c
}

// Status returns the client's current status.
func (c *Client) Status() ClientStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Messages returns a snapshot of the conversation.
func (c *Client) Messages() []Message { return c.processor.GetMessages() }

// Processor exposes the underlying Processor for callers that need direct
// access (approval responses, recording).
func (c *Client) Processor() *Processor { return c.processor }

func (c *Client) setStatus(s ClientStatus) {
	c.mu.Lock()
	c.status = s
	cb := c.onStatusChange
	c.mu.Unlock()
	if cb != nil {
		cb(s)
	}
}

// SendMessage appends a user message built from parts and submits the
// conversation for a response.
func (c *Client) SendMessage(ctx context.Context, parts []Part, data any) error {
	c.processor.AddUserMessage(parts)
	return c.submit(ctx, data)
}

// Reload drops every message after the most recent user message and
// resubmits, superseding any in-flight stream.
func (c *Client) Reload(ctx context.Context, data any) error {
	messages := c.processor.GetMessages()
	var lastUserID string
	for _, m := range messages {
		if m.Role == RoleUser {
			lastUserID = m.ID
		}
	}
	if lastUserID == "" {
		return fmt.Errorf("streamchat: reload: %w", ErrUnknownMessage)
	}
	c.processor.RemoveMessagesAfter(lastUserID)
	return c.submit(ctx, data)
}

// Stop cancels the in-flight stream, if any. Already-committed messages are
// left as they are: events still pending on the cancelled stream are not
// applied, and the processor's end-of-stream finalization (tool-call safety
// net, whitespace pruning) does not run for it.
func (c *Client) Stop() {
	c.mu.Lock()
	cancel := c.cancel
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// AddToolResult forwards to the underlying Processor and, when
// auto-continue is enabled and every tool call is now resolved, resubmits.
func (c *Client) AddToolResult(ctx context.Context, toolCallID string, output any, content, errText string) error {
	if err := c.processor.AddToolResult(toolCallID, output, content, errText); err != nil {
		return err
	}
	c.maybeAutoContinue(ctx, nil)
	return nil
}

// AddToolApprovalResponse forwards to the underlying Processor.
func (c *Client) AddToolApprovalResponse(approvalID string, approved bool) {
	c.processor.AddToolApprovalResponse(approvalID, approved)
}

func (c *Client) dispatchClientTool(toolCallID, toolName string, input any) {
	tool, ok := c.clientTools[toolName]
	if !ok {
		return
	}
	c.mu.Lock()
	group := c.toolGroup
	c.mu.Unlock()
	if group == nil {
		return
	}
	group.Go(func() error {
		output, err := tool(context.Background(), input)
		if err != nil {
			_ = c.processor.AddToolResult(toolCallID, nil, err.Error(), err.Error())
			return nil // a failed client tool does not abort the run
		}
		_ = c.processor.AddToolResult(toolCallID, output, fmt.Sprint(output), "")
		return nil
	})
}

// maybeAutoContinue resubmits the conversation once a turn's tool calls have
// all been resolved with a result. It only fires when the conversation's
// last message actually ends in a ToolResultPart (so a tool-free turn, or a
// turn whose last tool call is still awaiting a client tool, never
// triggers it), and continuationPending guards against re-entry: a
// resubmit's own end-of-turn check must not queue another resubmit before
// the first one has finished.
func (c *Client) maybeAutoContinue(ctx context.Context, data any) {
	if !c.autoContinue {
		return
	}
	if c.Status() != StatusReady {
		return
	}
	if !c.lastPartIsToolResult() {
		return
	}
	if !c.processor.AreAllToolsComplete() {
		return
	}
	if !c.continuationPending.CompareAndSwap(false, true) {
		return
	}
	go func() {
		defer c.continuationPending.Store(false)
		_ = c.submit(ctx, data)
	}()
}

// lastPartIsToolResult reports whether the conversation's last message ends
// in a ToolResultPart, the signal that a tool-executing turn is actually
// ready for a model round-trip rather than still waiting on a client tool.
func (c *Client) lastPartIsToolResult() bool {
	messages := c.processor.GetMessages()
	if len(messages) == 0 {
		return false
	}
	last := messages[len(messages)-1]
	if len(last.Parts) == 0 {
		return false
	}
	_, ok := last.Parts[len(last.Parts)-1].(ToolResultPart)
	return ok
}

// submit drives one turn: subscribe to the session, start the connection's
// send in parallel, and drain events through the processor until the
// stream ends. A later submit/Reload increments the generation counter,
// making this turn's late-arriving events a silent no-op: supersede,
// don't cancel-and-race.
func (c *Client) submit(ctx context.Context, data any) error {
	gen := c.generation.Add(1)

	sctx, cancel := context.WithCancel(ctx)
	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
	}
	c.cancel = cancel
	c.mu.Unlock()

	c.setStatus(StatusSubmitted)
	stream, err := c.session.Subscribe(sctx)
	if err != nil {
		cancel()
		c.setStatus(StatusError)
		return fmt.Errorf("streamchat: subscribe: %w", err)
	}

	c.processor.PrepareAssistantMessage()
	toolGroup, _ := errgroup.WithContext(sctx)
	c.mu.Lock()
	c.toolGroup = toolGroup
	c.mu.Unlock()

	var g errgroup.Group
	g.Go(func() error {
		return c.session.Send(sctx, c.processor.GetMessages(), data)
	})
	g.Go(func() error {
		c.setStatus(StatusStreaming)
		return c.drain(stream, gen)
	})

	runErr := g.Wait()
	cancel()

	if c.generation.Load() != gen {
		return nil // superseded by a later submit/Reload
	}

	toolErr := toolGroup.Wait()

	switch {
	case runErr != nil && !errors.Is(runErr, context.Canceled):
		c.setStatus(StatusError)
		return runErr
	case toolErr != nil:
		c.setStatus(StatusError)
		return toolErr
	case c.processor.HasError():
		c.setStatus(StatusError)
	default:
		c.setStatus(StatusReady)
		c.maybeAutoContinue(ctx, data)
	}
	return nil
}

func (c *Client) drain(stream Stream, gen uint64) error {
	defer stream.Close()
	for {
		if c.generation.Load() != gen {
			return nil
		}
		evt, err := stream.Next()
		if c.generation.Load() != gen {
			return nil // superseded while stream.Next was blocked
		}
		if errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("streamchat: %w: %w", ErrTransport, err)
		}
		c.processor.ProcessChunk(evt)
		switch evt.(type) {
		case EventRunFinished, EventRunError:
			return nil
		}
	}
}
