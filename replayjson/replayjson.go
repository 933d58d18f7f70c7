// Package replayjson persists a streamchat.Recording to disk using a
// versioned envelope and an atomic write-to-temp-then-rename Save.
package replayjson

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/streamchat/streamchat"
	"github.com/streamchat/streamchat/eventwire"
)

// envelope is the v1 wire format for a persisted recording.
type envelope struct {
	Version int               `json:"version"`
	Events  []json.RawMessage `json:"events"`
	Result  *resultDTO        `json:"result,omitempty"`
}

type resultDTO struct {
	Messages     json.RawMessage `json:"messages"`
	FinishReason string          `json:"finishReason"`
	HasError     bool            `json:"hasError"`
}

// Marshal serializes a Recording to JSON in v1 envelope format.
func Marshal(rec streamchat.Recording) ([]byte, error) {
	env := envelope{Version: 1, Events: make([]json.RawMessage, len(rec.Events))}
	for i, evt := range rec.Events {
		raw, err := eventwire.Marshal(evt)
		if err != nil {
			return nil, fmt.Errorf("replayjson: event %d: %w", i, err)
		}
		env.Events[i] = raw
	}
	if rec.Result != nil {
		msgRaw, err := eventwire.MarshalMessages(rec.Result.Messages)
		if err != nil {
			return nil, fmt.Errorf("replayjson: result messages: %w", err)
		}
		env.Result = &resultDTO{
			Messages:     msgRaw,
			FinishReason: rec.Result.FinishReason,
			HasError:     rec.Result.HasError,
		}
	}
	return json.MarshalIndent(env, "", "  ")
}

// Unmarshal deserializes a Recording from JSON in v1 envelope format.
func Unmarshal(data []byte) (streamchat.Recording, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return streamchat.Recording{}, fmt.Errorf("replayjson: unmarshal envelope: %w", err)
	}
	if env.Version != 1 {
		return streamchat.Recording{}, fmt.Errorf("replayjson: unsupported envelope version: %d", env.Version)
	}
	events := make([]streamchat.Event, len(env.Events))
	for i, raw := range env.Events {
		evt, err := eventwire.Unmarshal(raw)
		if err != nil {
			return streamchat.Recording{}, fmt.Errorf("replayjson: event %d: %w", i, err)
		}
		events[i] = evt
	}
	rec := streamchat.Recording{Version: env.Version, Events: events}
	if env.Result != nil {
		messages, err := eventwire.UnmarshalMessages(env.Result.Messages)
		if err != nil {
			return streamchat.Recording{}, fmt.Errorf("replayjson: result messages: %w", err)
		}
		rec.Result = &streamchat.ProcessorResult{
			Messages:     messages,
			FinishReason: env.Result.FinishReason,
			HasError:     env.Result.HasError,
		}
	}
	return rec, nil
}

// Save writes a Recording to a JSON file, creating parent directories as
// needed, using a write-to-temp-then-rename sequence so a crash mid-write
// never leaves a truncated file at path.
func Save(path string, rec streamchat.Recording) error {
	data, err := Marshal(rec)
	if err != nil {
		return fmt.Errorf("replayjson: marshal: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("replayjson: create directories: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("replayjson: write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replayjson: rename temp file: %w", err)
	}
	return nil
}

// Load reads a Recording from a JSON file.
func Load(path string) (streamchat.Recording, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return streamchat.Recording{}, fmt.Errorf("replayjson: read file: %w", err)
	}
	return Unmarshal(data)
}
