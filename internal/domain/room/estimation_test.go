package room

import (
	"testing"

	"github.com/example/room-sessions/internal/command"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// twoUserRoom has two connected estimators and the sample story selected.
func twoUserRoom(t *testing.T) *harness {
	h := newHarness(t)
	h.oneUserRoom("room-1", "user-1")
	h.must("room-1", "user-2", CmdJoinRoom, map[string]any{"username": "second"})
	return h
}

func estimate(storyID string, value float64) map[string]any {
	return map[string]any{"storyId": storyID, "value": value}
}

func TestGiveStoryEstimate(t *testing.T) {
	h := twoUserRoom(t)

	res := h.must("room-1", "user-1", CmdGiveStoryEstimate, estimate("story-1", 5))

	assert.Equal(t, []string{EventStoryEstimateGiven}, eventNames(res.Events))
	assert.Equal(t, map[string]any{"storyId": "story-1", "value": 5.0}, res.Events[0].Payload)
	s := h.room("room-1").Stories["story-1"]
	assert.Equal(t, Estimation{Value: 5}, s.Estimations["user-1"])
	assert.False(t, s.Revealed)
}

func TestGiveStoryEstimate_AutoRevealWithConsensus(t *testing.T) {
	h := twoUserRoom(t)
	h.must("room-1", "user-1", CmdGiveStoryEstimate, estimate("story-1", 5))

	res := h.must("room-1", "user-2", CmdGiveStoryEstimate, estimate("story-1", 5))

	assert.Equal(t, []string{EventStoryEstimateGiven, EventRevealed, EventConsensusAchieved}, eventNames(res.Events))
	assert.Equal(t, map[string]any{"storyId": "story-1", "manually": false}, res.Events[1].Payload)
	assert.Equal(t, map[string]any{"storyId": "story-1", "value": 5.0}, res.Events[2].Payload)

	s := h.room("room-1").Stories["story-1"]
	assert.True(t, s.Revealed)
	require.NotNil(t, s.Consensus)
	assert.Equal(t, 5.0, *s.Consensus)
}

func TestGiveStoryEstimate_AutoRevealWithoutConsensus(t *testing.T) {
	h := twoUserRoom(t)
	h.must("room-1", "user-1", CmdGiveStoryEstimate, estimate("story-1", 3))

	res := h.must("room-1", "user-2", CmdGiveStoryEstimate, estimate("story-1", 8))

	assert.Equal(t, []string{EventStoryEstimateGiven, EventRevealed}, eventNames(res.Events))
	assert.Nil(t, h.room("room-1").Stories["story-1"].Consensus)
}

func TestGiveStoryEstimate_DisconnectedAndExcludedUsersNotAwaited(t *testing.T) {
	h := twoUserRoom(t)
	h.must("room-1", "user-3", CmdJoinRoom, nil)
	h.must("room-1", "user-2", CmdLeaveRoom, map[string]any{"connectionLost": true})
	h.must("room-1", "user-1", CmdToggleExclude, map[string]any{"userId": "user-3"})

	res := h.must("room-1", "user-1", CmdGiveStoryEstimate, estimate("story-1", 2))

	assert.Contains(t, eventNames(res.Events), EventRevealed)
}

func TestGiveStoryEstimate_NoAutoReveal(t *testing.T) {
	h := twoUserRoom(t)
	h.must("room-1", "user-1", CmdSetRoomConfig, map[string]any{"autoReveal": false})
	h.must("room-1", "user-1", CmdGiveStoryEstimate, estimate("story-1", 5))

	res := h.must("room-1", "user-2", CmdGiveStoryEstimate, estimate("story-1", 5))

	assert.Equal(t, []string{EventStoryEstimateGiven}, eventNames(res.Events))
}

func TestGiveStoryEstimate_Confidence(t *testing.T) {
	h := twoUserRoom(t)
	payload := map[string]any{"storyId": "story-1", "value": 5.0, "confidence": 1.0}

	h.must("room-1", "user-1", CmdGiveStoryEstimate, payload)
	assert.Equal(t, 0, h.room("room-1").Stories["story-1"].Estimations["user-1"].Confidence,
		"confidence is dropped unless the room asks for it")

	h.must("room-1", "user-1", CmdSetRoomConfig, map[string]any{"withConfidence": true})
	h.must("room-1", "user-1", CmdGiveStoryEstimate, payload)
	assert.Equal(t, 1, h.room("room-1").Stories["story-1"].Estimations["user-1"].Confidence)
}

func TestGiveStoryEstimate_Preconditions(t *testing.T) {
	h := twoUserRoom(t)
	h.must("room-1", "user-1", CmdAddStory, map[string]any{"title": "other"})

	_, err := h.process("room-1", "user-1", CmdGiveStoryEstimate, estimate("story-2", 5))
	assert.EqualError(t, err, `Precondition Error during "giveStoryEstimate": Can only give estimation for currently selected story!`)

	_, err = h.process("room-1", "user-1", CmdGiveStoryEstimate, estimate("story-1", 4))
	assert.EqualError(t, err, `Precondition Error during "giveStoryEstimate": Estimation value 4 is not part of the card configuration`)

	h.must("room-1", "user-1", CmdToggleExclude, map[string]any{"userId": "user-2"})
	_, err = h.process("room-1", "user-2", CmdGiveStoryEstimate, estimate("story-1", 5))
	assert.EqualError(t, err, `Precondition Error during "giveStoryEstimate": Users marked as excluded cannot give estimations!`)

	h.must("room-1", "user-1", CmdReveal, map[string]any{"storyId": "story-1"})
	_, err = h.process("room-1", "user-1", CmdGiveStoryEstimate, estimate("story-1", 5))
	assert.EqualError(t, err, `Precondition Error during "giveStoryEstimate": You cannot give an estimate for a story that was revealed!`)
}

func TestGiveStoryEstimate_ValueMustBeNumber(t *testing.T) {
	h := twoUserRoom(t)

	_, err := h.process("room-1", "user-1", CmdGiveStoryEstimate, map[string]any{"storyId": "story-1", "value": "five"})

	assert.Equal(t, command.KindValidation, command.KindOf(err))
	assert.EqualError(t, err, `Command validation Error during "giveStoryEstimate": Invalid type for property "value": expected number`)
}

func TestClearStoryEstimate(t *testing.T) {
	h := twoUserRoom(t)
	h.must("room-1", "user-1", CmdGiveStoryEstimate, estimate("story-1", 5))

	res := h.must("room-1", "user-1", CmdClearStoryEstimate, map[string]any{"storyId": "story-1"})

	assert.Equal(t, []string{EventStoryEstimateCleared}, eventNames(res.Events))
	assert.Empty(t, h.room("room-1").Stories["story-1"].Estimations)
}

func TestClearStoryEstimate_Preconditions(t *testing.T) {
	h := twoUserRoom(t)
	h.must("room-1", "user-1", CmdAddStory, map[string]any{"title": "other"})

	_, err := h.process("room-1", "user-1", CmdClearStoryEstimate, map[string]any{"storyId": "story-2"})
	assert.EqualError(t, err, `Precondition Error during "clearStoryEstimate": Can only clear estimation for currently selected story!`)

	h.must("room-1", "user-1", CmdToggleExclude, map[string]any{"userId": "user-2"})
	_, err = h.process("room-1", "user-2", CmdClearStoryEstimate, map[string]any{"storyId": "story-1"})
	assert.EqualError(t, err, `Precondition Error during "clearStoryEstimate": Users marked as excluded cannot clear estimations!`)

	h.must("room-1", "user-1", CmdReveal, map[string]any{"storyId": "story-1"})
	_, err = h.process("room-1", "user-1", CmdClearStoryEstimate, map[string]any{"storyId": "story-1"})
	assert.EqualError(t, err, `Precondition Error during "clearStoryEstimate": You cannot clear your estimate for a story that was revealed!`)
}

func TestReveal(t *testing.T) {
	h := twoUserRoom(t)
	h.must("room-1", "user-1", CmdGiveStoryEstimate, estimate("story-1", 8))

	res := h.must("room-1", "user-2", CmdReveal, map[string]any{"storyId": "story-1"})

	assert.Equal(t, []string{EventRevealed, EventConsensusAchieved}, eventNames(res.Events))
	assert.Equal(t, true, res.Events[0].Payload["manually"])

	_, err := h.process("room-1", "user-2", CmdReveal, map[string]any{"storyId": "story-1"})
	assert.EqualError(t, err, `Precondition Error during "reveal": Story story-1 is already revealed`)

	_, err = h.process("room-1", "user-2", CmdReveal, map[string]any{"storyId": "story-9"})
	assert.EqualError(t, err, `Precondition Error during "reveal": Can only reveal currently selected story!`)
}

func TestNewEstimationRound(t *testing.T) {
	h := twoUserRoom(t)
	h.must("room-1", "user-1", CmdGiveStoryEstimate, estimate("story-1", 5))
	h.must("room-1", "user-2", CmdGiveStoryEstimate, estimate("story-1", 5))
	require.True(t, h.room("room-1").Stories["story-1"].Revealed)

	h.must("room-1", "user-1", CmdNewEstimationRound, map[string]any{"storyId": "story-1"})

	s := h.room("room-1").Stories["story-1"]
	assert.False(t, s.Revealed)
	assert.Empty(t, s.Estimations)
	assert.Nil(t, s.Consensus)
}

func TestSetCardConfig(t *testing.T) {
	h := twoUserRoom(t)
	deck := []any{
		map[string]any{"label": "S", "value": 1.0, "color": "#aaa"},
		map[string]any{"label": "M", "value": 2.0, "color": "#bbb"},
		map[string]any{"label": "L", "value": 3.0, "color": "#ccc"},
	}

	h.must("room-1", "user-1", CmdSetCardConfig, map[string]any{"cardConfig": deck})

	r := h.room("room-1")
	require.Len(t, r.Cards(), 3)
	assert.Equal(t, Card{Label: "M", Value: 2, Color: "#bbb"}, r.Cards()[1])

	_, err := h.process("room-1", "user-1", CmdGiveStoryEstimate, estimate("story-1", 5))
	assert.Contains(t, err.Error(), "not part of the card configuration")
	h.must("room-1", "user-1", CmdGiveStoryEstimate, estimate("story-1", 2))
}

func TestSetCardConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		deck []any
		kind command.Kind
		want string
	}{
		{
			name: "empty deck",
			deck: []any{},
			kind: command.KindValidation,
			want: `Command validation Error during "setCardConfig": Invalid value for property "cardConfig": failed rule "min"`,
		},
		{
			name: "duplicate value",
			deck: []any{
				map[string]any{"label": "a", "value": 1.0},
				map[string]any{"label": "b", "value": 1.0},
			},
			kind: command.KindPrecondition,
			want: `Precondition Error during "setCardConfig": Card configuration must not contain duplicate values`,
		},
		{
			name: "missing label",
			deck: []any{map[string]any{"value": 1.0}},
			kind: command.KindPrecondition,
			want: `Precondition Error during "setCardConfig": Every card needs a label`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.oneUserRoom("room-1", "user-1")

			_, err := h.process("room-1", "user-1", CmdSetCardConfig, map[string]any{"cardConfig": tt.deck})

			assert.Equal(t, tt.kind, command.KindOf(err))
			assert.EqualError(t, err, tt.want)
		})
	}
}

func TestSetRoomConfig_KeepsUnsetFlags(t *testing.T) {
	h := twoUserRoom(t)
	h.must("room-1", "user-1", CmdSetRoomConfig, map[string]any{"withConfidence": true})

	r := h.room("room-1")
	assert.True(t, r.WithConfidence)
	assert.True(t, r.AutoReveal)
}
