package session

import (
	"context"

	"github.com/example/room-sessions/internal/command"
	"github.com/example/room-sessions/internal/domain/room"
	"go.uber.org/zap"
)

// Processor executes room commands. onCommit runs before the next command
// of the same room starts.
type Processor interface {
	ProcessThen(ctx context.Context, cmd command.Command, actorID string, onCommit command.CommitFunc[room.Room]) (command.Result[room.Room], error)
}

// Publisher forwards produced events to the outside world.
type Publisher interface {
	Publish(ctx context.Context, events []command.Event) error
}

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, []command.Event) error { return nil }

// Dispatcher runs commands and hands the outcome to connected clients.
type Dispatcher struct {
	processor Processor
	hub       *Hub
	publisher Publisher
	logger    *zap.Logger
}

func NewDispatcher(processor Processor, hub *Hub, publisher Publisher, logger *zap.Logger) *Dispatcher {
	if publisher == nil {
		publisher = noopPublisher{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{processor: processor, hub: hub, publisher: publisher, logger: logger}
}

// Dispatch processes cmd for actorID. Produced events are delivered to the
// room and published with password hashes removed, before any later command
// of the room is applied. A rejection is sent to the actor only. The
// returned result carries the redacted events.
func (d *Dispatcher) Dispatch(ctx context.Context, cmd command.Command, actorID string) (command.Result[room.Room], error) {
	return d.dispatch(ctx, cmd, actorID, nil)
}

// dispatch is Dispatch for a command read from origin. A joinedRoom of the
// actor subscribes origin to the room and rejections go to origin.
func (d *Dispatcher) dispatch(ctx context.Context, cmd command.Command, actorID string, origin *Subscription) (command.Result[room.Room], error) {
	res, err := d.processor.ProcessThen(ctx, cmd, actorID, func(ctx context.Context, res command.Result[room.Room]) {
		d.commit(ctx, cmd, actorID, origin, res)
	})
	if err != nil {
		if origin != nil {
			d.hub.RejectTo(origin, cmd, err)
		} else {
			d.hub.Reject(actorID, command.SanitizeRoomID(cmd.RoomID), cmd, err)
		}
		return res, err
	}

	res.Events = room.PublicAll(res.Events)
	return res, nil
}

// commit runs while the room is locked.
func (d *Dispatcher) commit(ctx context.Context, cmd command.Command, actorID string, origin *Subscription, res command.Result[room.Room]) {
	events := room.PublicAll(res.Events)

	if origin != nil {
		for _, evt := range events {
			if evt.Name == room.EventJoinedRoom && evt.UserID == actorID && evt.RoomID == origin.roomID {
				d.hub.Join(origin)
			}
		}
	}

	d.hub.Deliver(events)

	for _, evt := range events {
		switch evt.Name {
		case room.EventLeftRoom:
			d.hub.Leave(evt.RoomID, evt.UserID)
		case room.EventKicked:
			var ref room.UserRef
			if err := command.Decode(evt.Payload, &ref); err == nil {
				d.hub.Leave(evt.RoomID, ref.UserID)
			}
		}
	}

	if err := d.publisher.Publish(ctx, events); err != nil {
		// The room is saved at this point.
		d.logger.Error("failed to publish events",
			zap.String("roomId", res.Room.ID),
			zap.String("command", cmd.Name),
			zap.Int("events", len(events)),
			zap.Error(err),
		)
	}
}
