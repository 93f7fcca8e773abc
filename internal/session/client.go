package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/example/room-sessions/internal/command"
	"github.com/example/room-sessions/internal/domain/room"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 << 10
)

var (
	ErrRoomRequired = errors.New("a room id is required to open a session")
	ErrRoomMismatch = errors.New("command is addressed to another room")
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// Browsers connect from the web client's origin.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeWS upgrades the request and serves the connection until it closes.
func (d *Dispatcher) ServeWS(w http.ResponseWriter, r *http.Request, roomID, userID string) error {
	roomID = command.SanitizeRoomID(roomID)
	if roomID == "" {
		return ErrRoomRequired
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	d.Serve(r.Context(), conn, roomID, userID)
	return nil
}

// Serve reads commands from conn and dispatches them for userID in roomID.
// The connection receives room events once a joinRoom sent through it
// succeeds. Commands without a room id are addressed to the session's room;
// commands for any other room are rejected. When the user's last joined
// connection closes, a connectionLost leave is dispatched.
func (d *Dispatcher) Serve(ctx context.Context, conn *websocket.Conn, roomID, userID string) {
	sub := d.hub.Register(roomID, userID, conn)
	log := d.logger.With(zap.String("roomId", roomID), zap.String("userId", userID))
	log.Debug("session opened")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go d.keepAlive(ctx, sub)

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var cmd command.Command
		if err := conn.ReadJSON(&cmd); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn("session read failed", zap.Error(err))
			}
			break
		}
		if cmd.RoomID != "" && command.SanitizeRoomID(cmd.RoomID) != roomID {
			d.hub.RejectTo(sub, cmd, roomMismatch(cmd, roomID))
			continue
		}
		cmd.RoomID = roomID
		// Rejections already reached the client through the hub.
		_, _ = d.dispatch(context.WithoutCancel(ctx), cmd, userID, sub)
	}

	cancel()
	_ = conn.Close()
	if !d.hub.Unregister(sub) {
		log.Debug("session closed")
		return
	}
	d.connectionLost(context.WithoutCancel(ctx), roomID, userID, log)
}

func roomMismatch(cmd command.Command, roomID string) *command.Error {
	return &command.Error{
		Kind:    command.KindValidation,
		Command: cmd.Name,
		Message: fmt.Sprintf("Command validation Error during %q: room %q is not the room of this session (%q)", cmd.Name, cmd.RoomID, roomID),
		Err:     ErrRoomMismatch,
	}
}

func (d *Dispatcher) connectionLost(ctx context.Context, roomID, userID string, log *zap.Logger) {
	_, err := d.Dispatch(ctx, command.Command{
		Name:    room.CmdLeaveRoom,
		RoomID:  roomID,
		Payload: map[string]any{"connectionLost": true},
	}, userID)
	if err != nil {
		log.Warn("failed to record lost connection", zap.Error(err))
		return
	}
	log.Debug("session closed, user disconnected")
}

func (d *Dispatcher) keepAlive(ctx context.Context, sub *Subscription) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := sub.ping(time.Now()); err != nil {
				return
			}
		}
	}
}
