package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runStoreContract exercises the behaviour every backend must share.
func runStoreContract(t *testing.T, s Store[testRoom]) {
	ctx := context.Background()

	t.Run("missing id is not found", func(t *testing.T) {
		_, found, err := s.GetByID(ctx, "nope")
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("save then load", func(t *testing.T) {
		room := testRoom{ID: "contract-1", Version: 1, Title: "first"}
		require.NoError(t, s.Save(ctx, room))

		loaded, found, err := s.GetByID(ctx, "contract-1")
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, room, loaded)
	})

	t.Run("newer version replaces", func(t *testing.T) {
		require.NoError(t, s.Save(ctx, testRoom{ID: "contract-2", Version: 1, Title: "old"}))
		require.NoError(t, s.Save(ctx, testRoom{ID: "contract-2", Version: 3, Title: "new"}))

		loaded, _, err := s.GetByID(ctx, "contract-2")
		require.NoError(t, err)
		assert.Equal(t, "new", loaded.Title)
		assert.Equal(t, 3, loaded.Version)
	})

	t.Run("older version is rejected", func(t *testing.T) {
		require.NoError(t, s.Save(ctx, testRoom{ID: "contract-3", Version: 5, Title: "current"}))

		err := s.Save(ctx, testRoom{ID: "contract-3", Version: 4, Title: "stale"})
		assert.ErrorIs(t, err, ErrStaleVersion)

		loaded, _, err := s.GetByID(ctx, "contract-3")
		require.NoError(t, err)
		assert.Equal(t, "current", loaded.Title)
	})

	t.Run("loaded values do not alias saved ones", func(t *testing.T) {
		room := testRoom{ID: "contract-4", Version: 1, Tags: []string{"x"}}
		require.NoError(t, s.Save(ctx, room))
		room.Tags[0] = "mutated"

		loaded, _, err := s.GetByID(ctx, "contract-4")
		require.NoError(t, err)
		assert.Equal(t, []string{"x"}, loaded.Tags)

		loaded.Tags[0] = "changed again"
		again, _, err := s.GetByID(ctx, "contract-4")
		require.NoError(t, err)
		assert.Equal(t, []string{"x"}, again.Tags)
	})

	t.Run("empty id is rejected", func(t *testing.T) {
		assert.ErrorIs(t, s.Save(ctx, testRoom{Version: 1}), ErrNoID)
	})
}
