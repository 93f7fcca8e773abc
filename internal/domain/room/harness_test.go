package room

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/example/room-sessions/internal/auth"
	"github.com/example/room-sessions/internal/command"
	"github.com/example/room-sessions/internal/infrastructure/store"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var testNow = time.Date(2024, 6, 3, 14, 0, 0, 0, time.UTC)

type harness struct {
	t         *testing.T
	processor *command.Processor[Room]
	store     *store.MemoryStore[Room]
	tokens    *auth.JWTService
	passwords *auth.PasswordHasher
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	var seq atomic.Int64
	h := &harness{
		t:         t,
		store:     store.NewMemoryStore[Room](AggregateType),
		tokens:    auth.NewJWTService("room-test-secret", time.Hour),
		passwords: auth.NewPasswordHasher(bcrypt.MinCost),
	}
	registry, err := NewRegistry(Deps{
		Passwords: h.passwords,
		Tokens:    h.tokens,
		NewID:     func() string { return fmt.Sprintf("story-%d", seq.Add(1)) },
	})
	require.NoError(t, err)

	h.processor = command.NewProcessor(registry, h.store, New,
		command.WithClock[Room](func() time.Time { return testNow }))
	return h
}

func (h *harness) process(roomID, userID, name string, payload map[string]any) (command.Result[Room], error) {
	return h.processor.Process(context.Background(), command.Command{
		ID:      fmt.Sprintf("cmd-%s-%d", name, time.Now().UnixNano()),
		Name:    name,
		RoomID:  roomID,
		Payload: payload,
	}, userID)
}

// must processes a command that is expected to succeed.
func (h *harness) must(roomID, userID, name string, payload map[string]any) command.Result[Room] {
	h.t.Helper()
	res, err := h.process(roomID, userID, name, payload)
	require.NoError(h.t, err)
	return res
}

// room returns the stored room.
func (h *harness) room(roomID string) Room {
	h.t.Helper()
	r, found, err := h.store.GetByID(context.Background(), roomID)
	require.NoError(h.t, err)
	require.True(h.t, found, "room %s not stored", roomID)
	return r
}

// oneUserRoom creates a room joined by a single user.
func (h *harness) oneUserRoom(roomID, userID string) Room {
	h.t.Helper()
	return h.must(roomID, userID, CmdJoinRoom, map[string]any{"username": "first"}).Room
}

func eventNames(events []command.Event) []string {
	names := make([]string, len(events))
	for i, evt := range events {
		names[i] = evt.Name
	}
	return names
}
