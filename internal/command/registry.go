package command

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrDuplicateCommand = errors.New("command is already registered")
	ErrDuplicateEvent   = errors.New("event is already registered")
	ErrDuplicateSchema  = errors.New("schema is already registered")
	ErrHandlerFnMissing = errors.New("command handler has no fn")
	ErrNameRequired     = errors.New("name is required")
)

// Definitions is one module's contribution to a registry.
type Definitions[T any] struct {
	Schemas  map[string]Schema
	Handlers map[string]Handler[T]
	Appliers map[string]Applier[T]
}

// Registry maps command names to schemas and handlers, and event names to
// appliers. It is never modified after NewRegistry returns, so lookups need
// no locking.
type Registry[T any] struct {
	schemas  map[string]Schema
	handlers map[string]Handler[T]
	appliers map[string]Applier[T]
}

// NewRegistry merges defs into a registry. A name defined twice is an error.
func NewRegistry[T any](defs ...Definitions[T]) (*Registry[T], error) {
	r := &Registry[T]{
		schemas:  make(map[string]Schema),
		handlers: make(map[string]Handler[T]),
		appliers: make(map[string]Applier[T]),
	}
	for _, def := range defs {
		for name, schema := range def.Schemas {
			if err := checkName(name); err != nil {
				return nil, err
			}
			if _, exists := r.schemas[name]; exists {
				return nil, fmt.Errorf("%w: %s", ErrDuplicateSchema, name)
			}
			r.schemas[name] = schema
		}
		for name, handler := range def.Handlers {
			if err := checkName(name); err != nil {
				return nil, err
			}
			if handler.Fn == nil {
				return nil, fmt.Errorf("%w: %s", ErrHandlerFnMissing, name)
			}
			if _, exists := r.handlers[name]; exists {
				return nil, fmt.Errorf("%w: %s", ErrDuplicateCommand, name)
			}
			r.handlers[name] = handler
		}
		for name, applier := range def.Appliers {
			if err := checkName(name); err != nil {
				return nil, err
			}
			if applier == nil {
				return nil, fmt.Errorf("event applier is nil: %s", name)
			}
			if _, exists := r.appliers[name]; exists {
				return nil, fmt.Errorf("%w: %s", ErrDuplicateEvent, name)
			}
			r.appliers[name] = applier
		}
	}
	return r, nil
}

// MustRegistry is NewRegistry for static definitions known to be valid.
func MustRegistry[T any](defs ...Definitions[T]) *Registry[T] {
	r, err := NewRegistry(defs...)
	if err != nil {
		panic(err)
	}
	return r
}

func checkName(name string) error {
	if strings.TrimSpace(name) == "" {
		return ErrNameRequired
	}
	return nil
}

func (r *Registry[T]) Schema(name string) (Schema, bool) {
	s, ok := r.schemas[name]
	return s, ok
}

func (r *Registry[T]) CommandHandler(name string) (Handler[T], bool) {
	h, ok := r.handlers[name]
	return h, ok
}

func (r *Registry[T]) EventApplier(name string) (Applier[T], bool) {
	a, ok := r.appliers[name]
	return a, ok
}

// CommandNames lists registered command handlers in sorted order.
func (r *Registry[T]) CommandNames() []string {
	return sortedKeys(r.handlers)
}

// EventNames lists registered event appliers in sorted order.
func (r *Registry[T]) EventNames() []string {
	return sortedKeys(r.appliers)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
