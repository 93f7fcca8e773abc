package room

import (
	"context"
	"errors"
	"fmt"

	"github.com/example/room-sessions/internal/command"
	"github.com/samber/lo"
)

func (d Deps) estimationHandlers() map[string]command.Handler[Room] {
	return map[string]command.Handler[Room]{
		CmdGiveStoryEstimate: {
			PreCondition: member(func(r Room, p estimatePayload, actorID string) error {
				if p.StoryID != r.SelectedStory {
					return errors.New("Can only give estimation for currently selected story!")
				}
				if r.Stories[p.StoryID].Revealed {
					return errors.New("You cannot give an estimate for a story that was revealed!")
				}
				if r.Users[actorID].Excluded {
					return errors.New("Users marked as excluded cannot give estimations!")
				}
				if !lo.ContainsBy(r.Cards(), func(c Card) bool { return c.Value == p.Value }) {
					return fmt.Errorf("Estimation value %v is not part of the card configuration", p.Value)
				}
				return nil
			}),
			Fn: handle(func(ctx context.Context, r Room, p estimatePayload, actorID string) ([]command.Draft, error) {
				given := StoryEstimateGiven{StoryID: p.StoryID, Value: p.Value}
				if r.WithConfidence {
					given.Confidence = p.Confidence
				}
				drafts := []command.Draft{command.Emit(EventStoryEstimateGiven, given)}

				story := r.Stories[p.StoryID].clone()
				story.Estimations[actorID] = Estimation{Value: given.Value, Confidence: given.Confidence}
				if r.AutoReveal && allEstimated(r, story) {
					drafts = append(drafts, revealDrafts(story, false)...)
				}
				return drafts, nil
			}),
		},
		CmdClearStoryEstimate: {
			PreCondition: member(func(r Room, p storyPayload, actorID string) error {
				if p.StoryID != r.SelectedStory {
					return errors.New("Can only clear estimation for currently selected story!")
				}
				if r.Stories[p.StoryID].Revealed {
					return errors.New("You cannot clear your estimate for a story that was revealed!")
				}
				if r.Users[actorID].Excluded {
					return errors.New("Users marked as excluded cannot clear estimations!")
				}
				return nil
			}),
			Fn: emitStoryRef(EventStoryEstimateCleared),
		},
		CmdReveal: {
			PreCondition: member(func(r Room, p storyPayload, actorID string) error {
				if p.StoryID != r.SelectedStory {
					return errors.New("Can only reveal currently selected story!")
				}
				if r.Stories[p.StoryID].Revealed {
					return fmt.Errorf("Story %s is already revealed", p.StoryID)
				}
				return nil
			}),
			Fn: handle(func(ctx context.Context, r Room, p storyPayload, actorID string) ([]command.Draft, error) {
				return revealDrafts(r.Stories[p.StoryID], true), nil
			}),
		},
		CmdNewEstimationRound: {
			PreCondition: member(func(r Room, p storyPayload, actorID string) error {
				return activeStory(r, p.StoryID, "start a new estimation round for")
			}),
			Fn: emitStoryRef(EventNewEstimationRoundStarted),
		},
		CmdSetCardConfig: {
			PreCondition: member(func(r Room, p cardConfigPayload, actorID string) error {
				for _, c := range p.CardConfig {
					if c.Label == "" {
						return errors.New("Every card needs a label")
					}
				}
				values := lo.Map(p.CardConfig, func(c Card, _ int) float64 { return c.Value })
				if len(lo.Uniq(values)) != len(values) {
					return errors.New("Card configuration must not contain duplicate values")
				}
				return nil
			}),
			Fn: handle(func(ctx context.Context, r Room, p cardConfigPayload, actorID string) ([]command.Draft, error) {
				return []command.Draft{command.Emit(EventCardConfigSet, CardConfigSet{CardConfig: p.CardConfig})}, nil
			}),
		},
		CmdSetRoomConfig: {
			PreCondition: member[roomConfigPayload](nil),
			Fn: handle(func(ctx context.Context, r Room, p roomConfigPayload, actorID string) ([]command.Draft, error) {
				return []command.Draft{command.Emit(EventRoomConfigSet, RoomConfigSet{
					AutoReveal:     lo.FromPtrOr(p.AutoReveal, r.AutoReveal),
					WithConfidence: lo.FromPtrOr(p.WithConfidence, r.WithConfidence),
				})}, nil
			}),
		},
	}
}

// allEstimated reports whether every connected, included user has estimated story.
func allEstimated(r Room, story Story) bool {
	estimators := r.Estimators()
	return len(estimators) > 0 && lo.EveryBy(estimators, func(u User) bool {
		_, ok := story.Estimations[u.ID]
		return ok
	})
}

// revealDrafts reveals story and reports a consensus when every estimate agrees.
func revealDrafts(story Story, manually bool) []command.Draft {
	drafts := []command.Draft{command.Emit(EventRevealed, Revealed{StoryID: story.ID, Manually: manually})}
	if value, ok := consensus(story); ok {
		drafts = append(drafts, command.Emit(EventConsensusAchieved, ConsensusAchieved{StoryID: story.ID, Value: value}))
	}
	return drafts
}

func consensus(story Story) (float64, bool) {
	values := lo.Uniq(lo.MapToSlice(story.Estimations, func(_ string, e Estimation) float64 { return e.Value }))
	if len(values) != 1 {
		return 0, false
	}
	return values[0], true
}
