// Command streamchat is a minimal terminal client demonstrating the
// streamchat SDK end to end: it POSTs a conversation to an SSE endpoint,
// drains the resulting event stream through a Processor via a Client, and
// prints assistant text as it arrives.
//
// Usage:
//
//	streamchat --endpoint https://example.com/chat
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
	"github.com/streamchat/streamchat"
	"github.com/streamchat/streamchat/transport/sse"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "streamchat: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var endpoint string

	cmd := &cobra.Command{
		Use:   "streamchat",
		Short: "Terminal client for a streamchat-compatible endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), endpoint)
		},
	}
	cmd.Flags().StringVar(&endpoint, "endpoint", os.Getenv("STREAMCHAT_ENDPOINT"), "SSE chat endpoint URL")
	return cmd
}

func run(ctx context.Context, endpoint string) error {
	if endpoint == "" {
		return fmt.Errorf("--endpoint (or STREAMCHAT_ENDPOINT) is required")
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	sessionID := fmt.Sprintf("%d", time.Now().UnixNano())

	conn := &sse.Connection{Endpoint: endpoint}
	session := streamchat.NewDefaultSession(conn)

	var currentLine string
	hooks := streamchat.Hooks{
		OnTextUpdate: func(messageID, content string) {
			fmt.Fprint(os.Stdout, "\r"+content)
			currentLine = content
		},
		OnStreamEnd: func(streamchat.Message) {
			if currentLine != "" {
				fmt.Fprintln(os.Stdout)
				currentLine = ""
			}
		},
		OnError: func(err error) {
			fmt.Fprintf(os.Stderr, "\nstreamchat: %v\n", err)
		},
		OnToolCallStateChange: func(messageID, toolCallID string, state streamchat.ToolCallState, args string) {
			fmt.Fprintf(os.Stderr, "\n[tool %s: %s]\n", toolCallID, state)
		},
	}

	client := streamchat.NewClient(session, hooks)

	fmt.Fprintf(os.Stderr, "session %s connected to %s\n", sessionID, endpoint)
	fmt.Fprintln(os.Stderr, "type a message and press enter; Ctrl-C to quit")

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if ctx.Err() != nil {
			break
		}
		text := scanner.Text()
		if text == "" {
			continue
		}
		if err := client.SendMessage(ctx, []streamchat.Part{streamchat.TextPart{Content: text}}, nil); err != nil {
			fmt.Fprintf(os.Stderr, "streamchat: %v\n", err)
		}
	}
	return scanner.Err()
}
