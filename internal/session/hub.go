package session

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/example/room-sessions/internal/command"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// EventCommandRejected is sent to the actor of a command that was not applied.
const EventCommandRejected = "commandRejected"

const writeWait = 10 * time.Second

// Conn is the part of *websocket.Conn the hub writes to.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// Rejected is the payload of a commandRejected event.
type Rejected struct {
	Command command.Command `json:"command"`
	Reason  string          `json:"reason"`
	Kind    command.Kind    `json:"kind"`
}

// Subscription is one websocket connection of a user to a room. It receives
// room events only after its user joined the room through it.
type Subscription struct {
	roomID string
	userID string
	conn   Conn
	mu     sync.Mutex

	// Guarded by the hub's mutex.
	joined bool
	closed bool
}

// write sends a websocket message guarded by the subscriber's mutex and write deadline.
func (s *Subscription) write(now time.Time, data []byte) error {
	if s == nil || s.conn == nil {
		return errors.New("subscriber closed")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.conn.SetWriteDeadline(now.Add(writeWait)); err != nil {
		return err
	}
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

func (s *Subscription) ping(now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteControl(websocket.PingMessage, nil, now.Add(writeWait))
}

// Hub tracks the open connections of every room and fans events out to the
// joined ones.
type Hub struct {
	mu     sync.Mutex
	rooms  map[string]map[*Subscription]struct{}
	logger *zap.Logger
	now    func() time.Time
}

func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		rooms:  make(map[string]map[*Subscription]struct{}),
		logger: logger,
		now:    time.Now,
	}
}

// Register tracks conn as a connection of userID to roomID. It receives
// nothing until Join is called for it.
func (h *Hub) Register(roomID, userID string, conn Conn) *Subscription {
	sub := &Subscription{roomID: roomID, userID: userID, conn: conn}

	h.mu.Lock()
	defer h.mu.Unlock()
	subs, ok := h.rooms[roomID]
	if !ok {
		subs = make(map[*Subscription]struct{})
		h.rooms[roomID] = subs
	}
	subs[sub] = struct{}{}
	return sub
}

// Join subscribes sub to the events of its room.
func (h *Hub) Join(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.rooms[sub.roomID][sub]; ok {
		sub.joined = true
	}
}

// Leave unsubscribes every connection of userID to roomID. The connections
// stay open and can join again.
func (h *Hub) Leave(roomID, userID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.rooms[roomID] {
		if sub.userID == userID {
			sub.joined = false
		}
	}
}

// Unregister removes sub. It reports whether sub was joined and was the
// last joined connection of its user to the room.
func (h *Hub) Unregister(sub *Subscription) (lastMember bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	subs := h.rooms[sub.roomID]
	if _, ok := subs[sub]; !ok {
		return false
	}
	delete(subs, sub)
	if len(subs) == 0 {
		delete(h.rooms, sub.roomID)
	}
	if !sub.joined {
		return false
	}
	for other := range subs {
		if other.userID == sub.userID && other.joined && !other.closed {
			return false
		}
	}
	return true
}

// Count returns the number of usable connections to roomID, joined or not.
func (h *Hub) Count(roomID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for sub := range h.rooms[roomID] {
		if !sub.closed {
			n++
		}
	}
	return n
}

// Joined reports whether sub currently receives room events.
func (h *Hub) Joined(sub *Subscription) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return sub.joined && !sub.closed
}

// Deliver sends events to the joined connections of their room. Restricted
// events only reach the connections of the event's user.
func (h *Hub) Deliver(events []command.Event) {
	for _, evt := range events {
		data, err := json.Marshal(evt)
		if err != nil {
			h.logger.Error("failed to marshal event", zap.String("event", evt.Name), zap.Error(err))
			continue
		}
		for _, sub := range h.recipients(evt) {
			h.send(sub, data)
		}
	}
}

// Reject tells the joined connections of actorID that cmd was not applied.
func (h *Hub) Reject(actorID, roomID string, cmd command.Command, cause error) {
	evt, ok := h.rejection(actorID, roomID, cmd, cause)
	if !ok {
		return
	}
	h.Deliver([]command.Event{evt})
}

// RejectTo tells sub that the command it sent was not applied. sub need not
// be joined.
func (h *Hub) RejectTo(sub *Subscription, cmd command.Command, cause error) {
	evt, ok := h.rejection(sub.userID, sub.roomID, cmd, cause)
	if !ok {
		return
	}
	data, err := json.Marshal(evt)
	if err != nil {
		h.logger.Error("failed to marshal event", zap.String("event", evt.Name), zap.Error(err))
		return
	}
	h.send(sub, data)
}

func (h *Hub) rejection(actorID, roomID string, cmd command.Command, cause error) (command.Event, bool) {
	payload, err := command.Encode(Rejected{
		Command: cmd,
		Reason:  cause.Error(),
		Kind:    command.KindOf(cause),
	})
	if err != nil {
		h.logger.Error("failed to encode rejection", zap.String("command", cmd.Name), zap.Error(err))
		return command.Event{}, false
	}
	return command.Event{
		ID:            uuid.NewString(),
		CorrelationID: cmd.ID,
		Name:          EventCommandRejected,
		RoomID:        roomID,
		UserID:        actorID,
		Payload:       payload,
		Restricted:    true,
		Timestamp:     h.now(),
	}, true
}

// send writes data to sub. A failed connection is closed and skipped from
// then on; its read loop unregisters it.
func (h *Hub) send(sub *Subscription, data []byte) {
	if err := sub.write(h.now(), data); err != nil {
		h.logger.Warn("failed to send event",
			zap.String("roomId", sub.roomID),
			zap.String("userId", sub.userID),
			zap.Error(err),
		)
		h.mu.Lock()
		sub.closed = true
		h.mu.Unlock()
		_ = sub.conn.Close()
	}
}

func (h *Hub) recipients(evt command.Event) []*Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()

	subs := make([]*Subscription, 0, len(h.rooms[evt.RoomID]))
	for sub := range h.rooms[evt.RoomID] {
		if !sub.joined || sub.closed {
			continue
		}
		if evt.Restricted && sub.userID != evt.UserID {
			continue
		}
		subs = append(subs, sub)
	}
	return subs
}
