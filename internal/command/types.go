package command

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Command is a requested state change for one room.
// RoomID may be empty for commands whose handler may create a room.
type Command struct {
	ID      string         `json:"id"`
	Name    string         `json:"name"`
	RoomID  string         `json:"roomId,omitempty"`
	Payload map[string]any `json:"payload"`
}

// Event is an immutable fact produced by a successful command.
type Event struct {
	ID            string         `json:"id"`
	CorrelationID string         `json:"correlationId"`
	Name          string         `json:"name"`
	RoomID        string         `json:"roomId"`
	UserID        string         `json:"userId"`
	Payload       map[string]any `json:"payload"`
	Restricted    bool           `json:"restricted"`
	Timestamp     time.Time      `json:"timestamp"`
}

// Draft is an event as emitted by a handler. The processor stamps the ids,
// room and timestamp. An empty UserID means the acting user.
type Draft struct {
	Name       string
	Payload    any
	UserID     string
	Restricted bool
}

// Emit is shorthand for a draft attributed to the actor.
func Emit(name string, payload any) Draft {
	return Draft{Name: name, Payload: payload}
}

// Handler describes how one command is executed against a room.
type Handler[T any] struct {
	CanCreateRoom bool
	PreCondition  func(room T, cmd Command, actorID string) error
	Fn            func(ctx context.Context, room T, cmd Command, actorID string) ([]Draft, error)
}

// Applier folds one event into the next room value. It must not modify room.
type Applier[T any] func(room T, evt Event) (T, error)

// Result is what a successful command leaves behind.
type Result[T any] struct {
	Events []Event
	Room   T
}

// Decode fills v from a command or event payload.
func Decode(payload map[string]any, v any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode payload: %w", err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("failed to decode payload: %w", err)
	}
	return nil
}

// Encode turns a typed payload into the generic map carried by events.
// A nil payload becomes an empty map.
func Encode(v any) (map[string]any, error) {
	if v == nil {
		return map[string]any{}, nil
	}
	if m, ok := v.(map[string]any); ok {
		out := make(map[string]any, len(m))
		for k, val := range m {
			out[k] = val
		}
		return out, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode payload: %w", err)
	}
	out := map[string]any{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("payload must encode to an object: %w", err)
	}
	if out == nil {
		out = map[string]any{}
	}
	return out, nil
}
