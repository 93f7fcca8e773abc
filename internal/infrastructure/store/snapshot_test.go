package store

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testRoom struct {
	ID      string   `json:"id"`
	Version int      `json:"version"`
	Title   string   `json:"title"`
	Tags    []string `json:"tags,omitempty"`
}

func (r testRoom) GetID() string   { return r.ID }
func (r testRoom) GetVersion() int { return r.Version }

func fixedCodec() Codec[testRoom] {
	c := NewCodec[testRoom]("Room")
	c.Now = func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) }
	return c
}

func TestCodec_Snapshot(t *testing.T) {
	snap, err := fixedCodec().Snapshot(testRoom{ID: "room-1", Version: 4, Title: "sprint"})

	require.NoError(t, err)
	assert.Equal(t, "room-1", snap.AggregateID)
	assert.Equal(t, "Room", snap.AggregateType)
	assert.Equal(t, 4, snap.Version)
	assert.JSONEq(t, `{"id":"room-1","version":4,"title":"sprint"}`, string(snap.State))
	assert.Equal(t, time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC), snap.CreatedAt)
}

func TestCodec_SnapshotRequiresID(t *testing.T) {
	_, err := fixedCodec().Snapshot(testRoom{Version: 1})

	assert.ErrorIs(t, err, ErrNoID)
}

func TestCodec_MarshalUnmarshal(t *testing.T) {
	codec := fixedCodec()
	original := testRoom{ID: "room-1", Version: 2, Title: "planning", Tags: []string{"a", "b"}}

	data, err := codec.Marshal(original)
	require.NoError(t, err)

	restored, snap, err := codec.Unmarshal(data)
	require.NoError(t, err)
	assert.Equal(t, original, restored)
	assert.Equal(t, 2, snap.Version)
	assert.Equal(t, "Room", snap.AggregateType)
}

func TestCodec_UnmarshalGarbage(t *testing.T) {
	_, _, err := fixedCodec().Unmarshal([]byte("not json"))

	assert.Error(t, err)
}

func TestSnapshot_JSONFieldNames(t *testing.T) {
	snap := Snapshot{
		AggregateID:   "room-1",
		AggregateType: "Room",
		Version:       10,
		State:         json.RawMessage(`{}`),
		CreatedAt:     time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	data, err := json.Marshal(snap)
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"aggregate_id": "room-1",
		"aggregate_type": "Room",
		"version": 10,
		"state": {},
		"created_at": "2024-01-01T00:00:00Z"
	}`, string(data))
}
