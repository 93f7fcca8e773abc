package room

import (
	"errors"

	"github.com/example/room-sessions/internal/command"
)

// Definitions returns every room schema, handler and applier for the registry.
func Definitions(deps Deps) (command.Definitions[Room], error) {
	if deps.Passwords == nil || deps.Tokens == nil {
		return command.Definitions[Room]{}, errors.New("room definitions need a password hasher and a token issuer")
	}

	handlers := deps.handlers()
	for _, group := range []map[string]command.Handler[Room]{deps.storyHandlers(), deps.estimationHandlers()} {
		for name, h := range group {
			handlers[name] = h
		}
	}

	return command.Definitions[Room]{
		Schemas:  schemas(),
		Handlers: handlers,
		Appliers: appliers(),
	}, nil
}

// NewRegistry builds the registry for room commands.
func NewRegistry(deps Deps) (*command.Registry[Room], error) {
	defs, err := Definitions(deps)
	if err != nil {
		return nil, err
	}
	return command.NewRegistry(defs)
}

// Public returns evt as it may leave the server. Password hashes are removed.
func Public(evt command.Event) command.Event {
	if evt.Name != EventPasswordSet {
		return evt
	}
	redacted := make(map[string]any, len(evt.Payload))
	for k, v := range evt.Payload {
		if k != "password" {
			redacted[k] = v
		}
	}
	evt.Payload = redacted
	return evt
}

// PublicAll applies Public to every event.
func PublicAll(events []command.Event) []command.Event {
	out := make([]command.Event, len(events))
	for i, evt := range events {
		out[i] = Public(evt)
	}
	return out
}
