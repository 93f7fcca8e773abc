package command

import (
	"context"
	"fmt"
	"time"

	"github.com/example/room-sessions/internal/gate"
	"github.com/example/room-sessions/internal/infrastructure/store"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const tracerName = "github.com/example/room-sessions/internal/command"

// Aggregate is a room value the processor can fold events into.
// A pristine aggregate was created for the current command and has never
// been stored; Settle returns it marked as stored.
type Aggregate[T any] interface {
	store.Aggregate
	IsPristine() bool
	Settle() T
}

// Factory builds the pristine aggregate for a room that does not exist yet.
type Factory[T any] func(id string, now time.Time) T

// Processor validates commands, runs their handlers and persists the folded
// result. Commands for the same room never interleave.
type Processor[T Aggregate[T]] struct {
	registry *Registry[T]
	store    store.Store[T]
	factory  Factory[T]
	gate     *gate.Gate
	now      func() time.Time
	logger   *zap.Logger
	tracer   trace.Tracer
}

type Option[T Aggregate[T]] func(*Processor[T])

// WithClock sets the clock used for event timestamps and new rooms.
func WithClock[T Aggregate[T]](now func() time.Time) Option[T] {
	return func(p *Processor[T]) { p.now = now }
}

func WithLogger[T Aggregate[T]](logger *zap.Logger) Option[T] {
	return func(p *Processor[T]) { p.logger = logger }
}

// WithGate shares a gate between processors writing the same store.
func WithGate[T Aggregate[T]](g *gate.Gate) Option[T] {
	return func(p *Processor[T]) { p.gate = g }
}

func NewProcessor[T Aggregate[T]](registry *Registry[T], s store.Store[T], factory Factory[T], opts ...Option[T]) *Processor[T] {
	p := &Processor[T]{
		registry: registry,
		store:    s,
		factory:  factory,
		gate:     gate.New(),
		now:      time.Now,
		logger:   zap.NewNop(),
		tracer:   otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// CommitFunc observes a saved command result. It runs while the room is
// still locked, so calls for the same room happen in the order the commands
// were applied.
type CommitFunc[T any] func(ctx context.Context, res Result[T])

// Process runs cmd on behalf of actorID. On success the produced events are
// returned in the order they were applied. On failure the error is a *Error
// and nothing was persisted.
func (p *Processor[T]) Process(ctx context.Context, cmd Command, actorID string) (Result[T], error) {
	return p.ProcessThen(ctx, cmd, actorID, nil)
}

// ProcessThen is Process with onCommit called after a successful save that
// produced events.
func (p *Processor[T]) ProcessThen(ctx context.Context, cmd Command, actorID string, onCommit CommitFunc[T]) (Result[T], error) {
	if cmd.ID == "" {
		cmd.ID = uuid.NewString()
	}

	ctx, span := p.tracer.Start(ctx, "command.process", trace.WithAttributes(
		attribute.String("command.id", cmd.ID),
		attribute.String("command.name", cmd.Name),
		attribute.String("command.room_id", cmd.RoomID),
	))
	defer span.End()

	start := p.now()
	res, err := p.process(ctx, cmd, actorID, onCommit)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		p.logRejection(cmd, actorID, err)
		return Result[T]{}, err
	}

	span.SetAttributes(
		attribute.String("room.id", res.Room.GetID()),
		attribute.Int("events.count", len(res.Events)),
	)
	p.logger.Debug("command processed",
		zap.String("command", cmd.Name),
		zap.String("room_id", res.Room.GetID()),
		zap.String("user_id", actorID),
		zap.Int("events", len(res.Events)),
		zap.Int("version", res.Room.GetVersion()),
		zap.Duration("took", p.now().Sub(start)),
	)
	return res, nil
}

func (p *Processor[T]) process(ctx context.Context, cmd Command, actorID string, onCommit CommitFunc[T]) (Result[T], error) {
	if err := p.validate(cmd); err != nil {
		return Result[T]{}, err
	}

	handler, ok := p.registry.CommandHandler(cmd.Name)
	if !ok {
		return Result[T]{}, newError(KindNoHandler, cmd.Name, nil, "No command handler found for %s", cmd.Name)
	}

	if cmd.Payload == nil {
		cmd.Payload = map[string]any{}
	}

	if cmd.RoomID == "" {
		if !handler.CanCreateRoom {
			return Result[T]{}, newError(KindRoomRequired, cmd.Name, nil,
				"Command %q only wants to get handled for an existing room", cmd.Name)
		}
		cmd.RoomID = DeriveRoomID(cmd)
	} else {
		cmd.RoomID = SanitizeRoomID(cmd.RoomID)
		if cmd.RoomID == "" {
			return Result[T]{}, validationError(cmd.Name, "Room id must contain at least one letter or digit")
		}
	}

	res, err := gate.Exclusive(ctx, p.gate, cmd.RoomID, func(ctx context.Context) (Result[T], error) {
		res, err := p.handle(ctx, cmd, handler, actorID)
		if err == nil && onCommit != nil && len(res.Events) > 0 {
			onCommit(ctx, res)
		}
		return res, err
	})
	if err != nil && KindOf(err) == "" {
		// Only the gate returns bare errors: the context ended while queued.
		return Result[T]{}, cancelled(cmd.Name, err)
	}
	return res, err
}

func (p *Processor[T]) validate(cmd Command) error {
	if cmd.Name == "" {
		return validationError("", "Command must contain a name")
	}
	schema, ok := p.registry.Schema(cmd.Name)
	if !ok {
		return validationError(cmd.Name, fmt.Sprintf("Cannot validate command, no matching schema found for %q", cmd.Name))
	}
	if err := schema.Validate(cmd.Payload); err != nil {
		return validationError(cmd.Name, err.Error())
	}
	return nil
}

// handle runs while the room's gate is held.
func (p *Processor[T]) handle(ctx context.Context, cmd Command, handler Handler[T], actorID string) (Result[T], error) {
	room, found, err := p.store.GetByID(ctx, cmd.RoomID)
	if err != nil {
		return Result[T]{}, newError(KindStore, cmd.Name, err, "Could not load room %q: %s", cmd.RoomID, err.Error())
	}
	if !found {
		if !handler.CanCreateRoom {
			return Result[T]{}, newError(KindRoomExistence, cmd.Name, nil,
				"Room %q does not exist. (%q)", cmd.RoomID, cmd.Name)
		}
		room = p.factory(cmd.RoomID, p.now())
	}

	if handler.PreCondition != nil {
		if err := handler.PreCondition(room, cmd, actorID); err != nil {
			return Result[T]{}, wrapUserError(KindPrecondition, "Precondition", cmd.Name, err)
		}
	}

	drafts, err := handler.Fn(ctx, room, cmd, actorID)
	if err != nil {
		return Result[T]{}, wrapUserError(KindHandler, "Handler", cmd.Name, err)
	}

	events, err := p.stamp(cmd, actorID, drafts)
	if err != nil {
		return Result[T]{}, err
	}

	next, err := p.fold(cmd, room, events)
	if err != nil {
		return Result[T]{}, err
	}

	// No events means no change. A pristine room stays unsaved.
	if len(events) == 0 {
		return Result[T]{Events: events, Room: room}, nil
	}

	next = next.Settle()
	if err := ctx.Err(); err != nil {
		return Result[T]{}, cancelled(cmd.Name, err)
	}
	if err := p.store.Save(ctx, next); err != nil {
		return Result[T]{}, newError(KindStore, cmd.Name, err, "Could not save room %q: %s", cmd.RoomID, err.Error())
	}
	return Result[T]{Events: events, Room: next}, nil
}

// stamp turns handler drafts into events addressed to the command's room.
func (p *Processor[T]) stamp(cmd Command, actorID string, drafts []Draft) ([]Event, error) {
	now := p.now()
	events := make([]Event, 0, len(drafts))
	for _, d := range drafts {
		payload, err := Encode(d.Payload)
		if err != nil {
			return nil, newError(KindHandler, cmd.Name, err, "Handler Error during %q: event %s: %s", cmd.Name, d.Name, err.Error())
		}
		userID := d.UserID
		if userID == "" {
			userID = actorID
		}
		events = append(events, Event{
			ID:            uuid.NewString(),
			CorrelationID: cmd.ID,
			Name:          d.Name,
			RoomID:        cmd.RoomID,
			UserID:        userID,
			Payload:       payload,
			Restricted:    d.Restricted,
			Timestamp:     now,
		})
	}
	return events, nil
}

// fold applies events in order. The input room is left untouched, so a
// failure part way through discards everything.
func (p *Processor[T]) fold(cmd Command, room T, events []Event) (T, error) {
	next := room
	for _, evt := range events {
		apply, ok := p.registry.EventApplier(evt.Name)
		if !ok {
			return room, newError(KindUnknownEvent, cmd.Name, nil, "Cannot apply unknown event %s", evt.Name)
		}
		var err error
		next, err = apply(next, evt)
		if err != nil {
			return room, newError(KindHandler, cmd.Name, err, "Could not apply event %s during %q: %s", evt.Name, cmd.Name, err.Error())
		}
	}
	return next, nil
}

func (p *Processor[T]) logRejection(cmd Command, actorID string, err error) {
	fields := []zap.Field{
		zap.String("command", cmd.Name),
		zap.String("command_id", cmd.ID),
		zap.String("room_id", cmd.RoomID),
		zap.String("user_id", actorID),
		zap.Error(err),
	}

	kind := KindOf(err)
	fields = append(fields, zap.String("kind", string(kind)))
	if kind.Internal() {
		p.logger.Error("command failed", fields...)
		return
	}
	p.logger.Warn("command rejected", fields...)
}
