package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/example/room-sessions/internal/command"
	"github.com/example/room-sessions/internal/domain/room"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dial(t *testing.T, f *fixture, roomID, userID string) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = f.dispatcher.ServeWS(w, r, r.URL.Query().Get("roomId"), r.URL.Query().Get("userId"))
	}))
	t.Cleanup(srv.Close)

	target := "ws" + strings.TrimPrefix(srv.URL, "http") + "?roomId=" + url.QueryEscape(roomID) + "&userId=" + url.QueryEscape(userID)
	conn, _, err := websocket.DefaultDialer.Dial(target, nil)
	require.NoError(t, err)
	return conn
}

func readEvents(t *testing.T, conn *websocket.Conn, n int) []command.Event {
	t.Helper()
	events := make([]command.Event, 0, n)
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for len(events) < n {
		var evt command.Event
		require.NoError(t, conn.ReadJSON(&evt))
		events = append(events, evt)
	}
	return events
}

func TestServe_JoinOverWebsocket(t *testing.T) {
	f := newFixture(t)
	conn := dial(t, f, "Super Team", "alice")
	defer conn.Close()

	// The command carries no room id; the session's room is used.
	require.NoError(t, conn.WriteJSON(command.Command{ID: "c1", Name: room.CmdJoinRoom, Payload: map[string]any{}}))

	events := readEvents(t, conn, 4)
	assert.Equal(t, []string{room.EventRoomCreated, room.EventJoinedRoom, room.EventStoryAdded, room.EventStorySelected}, names(events))
	assert.Equal(t, "super-team", events[0].RoomID)
}

func TestServe_RejectionOverWebsocket(t *testing.T) {
	f := newFixture(t)
	conn := dial(t, f, "room-1", "alice")
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(command.Command{ID: "c1", Name: "doesNotExist"}))

	events := readEvents(t, conn, 1)
	assert.Equal(t, EventCommandRejected, events[0].Name)
	assert.Equal(t, "c1", events[0].CorrelationID)
	assert.Equal(t, string(command.KindValidation), events[0].Payload["kind"])
}

func TestServe_CloseMarksUserDisconnected(t *testing.T) {
	f := newFixture(t)
	conn := dial(t, f, "room-1", "alice")

	require.NoError(t, conn.WriteJSON(command.Command{ID: "c1", Name: room.CmdJoinRoom}))
	readEvents(t, conn, 4)
	require.NoError(t, conn.Close())

	require.Eventually(t, func() bool {
		r, found, err := f.rooms.GetByID(context.Background(), "room-1")
		return err == nil && found && r.Users["alice"].Disconnected
	}, 5*time.Second, 10*time.Millisecond)
	assert.Eventually(t, func() bool { return f.hub.Count("room-1") == 0 }, time.Second, 10*time.Millisecond)
}

// assertSilent fails if conn receives anything within a short wait. The
// connection is unusable afterwards.
func assertSilent(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	var evt command.Event
	err := conn.ReadJSON(&evt)
	assert.Error(t, err, "unexpected %s", evt.Name)
}

func TestServe_OutsiderReceivesNothing(t *testing.T) {
	f := newFixture(t)
	_, err := f.dispatch("secret", "alice", room.CmdJoinRoom, nil)
	require.NoError(t, err)
	_, err = f.dispatch("secret", "alice", room.CmdSetPassword, map[string]any{"password": "hunter2"})
	require.NoError(t, err)

	eve := dial(t, f, "secret", "eve")
	defer eve.Close()
	require.Eventually(t, func() bool { return f.hub.Count("secret") == 1 }, time.Second, 10*time.Millisecond)

	_, err = f.dispatch("secret", "alice", room.CmdAddStory, map[string]any{"title": "confidential roadmap"})
	require.NoError(t, err)

	assertSilent(t, eve)
}

func TestServe_WrongPasswordStaysOutside(t *testing.T) {
	f := newFixture(t)
	_, err := f.dispatch("secret", "alice", room.CmdJoinRoom, nil)
	require.NoError(t, err)
	_, err = f.dispatch("secret", "alice", room.CmdSetPassword, map[string]any{"password": "hunter2"})
	require.NoError(t, err)

	eve := dial(t, f, "secret", "eve")
	defer eve.Close()
	require.NoError(t, eve.WriteJSON(command.Command{ID: "c1", Name: room.CmdJoinRoom, Payload: map[string]any{"password": "guess"}}))

	events := readEvents(t, eve, 1)
	assert.Equal(t, EventCommandRejected, events[0].Name)
	assert.Equal(t, string(command.KindAuthorization), events[0].Payload["kind"])

	_, err = f.dispatch("secret", "alice", room.CmdAddStory, map[string]any{"title": "confidential roadmap"})
	require.NoError(t, err)
	assertSilent(t, eve)
}

func TestServe_PasswordJoinSubscribes(t *testing.T) {
	f := newFixture(t)
	_, err := f.dispatch("secret", "alice", room.CmdJoinRoom, nil)
	require.NoError(t, err)
	_, err = f.dispatch("secret", "alice", room.CmdSetPassword, map[string]any{"password": "hunter2"})
	require.NoError(t, err)

	bob := dial(t, f, "secret", "bob")
	defer bob.Close()
	require.NoError(t, bob.WriteJSON(command.Command{ID: "c1", Name: room.CmdJoinRoom, Payload: map[string]any{"password": "hunter2"}}))
	assert.Equal(t, []string{room.EventJoinedRoom, room.EventTokenIssued}, names(readEvents(t, bob, 2)))

	_, err = f.dispatch("secret", "alice", room.CmdAddStory, map[string]any{"title": "roadmap"})
	require.NoError(t, err)
	assert.Equal(t, []string{room.EventStoryAdded}, names(readEvents(t, bob, 1)))
}

func TestServe_CommandForAnotherRoomIsRejected(t *testing.T) {
	f := newFixture(t)
	conn := dial(t, f, "room-a", "alice")
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(command.Command{
		ID: "c1", Name: room.CmdSetUsername, RoomID: "room-b", Payload: map[string]any{"username": "Al"},
	}))

	events := readEvents(t, conn, 1)
	assert.Equal(t, EventCommandRejected, events[0].Name)
	assert.Equal(t, "c1", events[0].CorrelationID)
	assert.Equal(t, "room-a", events[0].RoomID)
	assert.Equal(t, string(command.KindValidation), events[0].Payload["kind"])
	_, found, err := f.rooms.GetByID(context.Background(), "room-b")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestServe_UnjoinedCloseRecordsNothing(t *testing.T) {
	f := newFixture(t)
	_, err := f.dispatch("room-1", "alice", room.CmdJoinRoom, nil)
	require.NoError(t, err)

	idle := dial(t, f, "room-1", "alice")
	require.Eventually(t, func() bool { return f.hub.Count("room-1") == 1 }, time.Second, 10*time.Millisecond)
	require.NoError(t, idle.Close())
	require.Eventually(t, func() bool { return f.hub.Count("room-1") == 0 }, time.Second, 10*time.Millisecond)

	r, _, err := f.rooms.GetByID(context.Background(), "room-1")
	require.NoError(t, err)
	assert.False(t, r.Users["alice"].Disconnected)
}
