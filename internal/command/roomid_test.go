package command

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeRoomID(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"super team", "super-team"},
		{"Super Team", "super-team"},
		{"  super   team  ", "super-team"},
		{"super\tteam", "super-team"},
		{"team#1!", "team1"},
		{"rm_abc.def-1", "rm_abc.def-1"},
		{"", ""},
		{"!!!", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeRoomID(tt.in))
		})
	}
}

func TestSanitizeRoomID_Idempotent(t *testing.T) {
	once := SanitizeRoomID("My Fancy  Room")
	assert.Equal(t, once, SanitizeRoomID(once))
}

func TestDeriveRoomID(t *testing.T) {
	a := DeriveRoomID(Command{ID: "cmd-1"})
	b := DeriveRoomID(Command{ID: "cmd-1"})
	c := DeriveRoomID(Command{ID: "cmd-2"})

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	_, err := uuid.Parse(a)
	require.NoError(t, err)
	assert.Equal(t, a, SanitizeRoomID(a))
}
