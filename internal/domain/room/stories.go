package room

import (
	"context"
	"fmt"

	"github.com/example/room-sessions/internal/command"
	"github.com/samber/lo"
)

func (d Deps) storyHandlers() map[string]command.Handler[Room] {
	return map[string]command.Handler[Room]{
		CmdAddStory: {
			PreCondition: member[storyPayload](nil),
			Fn: handle(func(ctx context.Context, r Room, p storyPayload, actorID string) ([]command.Draft, error) {
				storyID := d.newID()
				drafts := []command.Draft{
					command.Emit(EventStoryAdded, StoryAdded{StoryID: storyID, Title: p.Title, Description: p.Description}),
				}
				if r.SelectedStory == "" {
					drafts = append(drafts, command.Emit(EventStorySelected, StoryRef{StoryID: storyID}))
				}
				return drafts, nil
			}),
		},
		CmdChangeStory: {
			PreCondition: member(func(r Room, p storyPayload, actorID string) error {
				return activeStory(r, p.StoryID, "change")
			}),
			Fn: handle(func(ctx context.Context, r Room, p storyPayload, actorID string) ([]command.Draft, error) {
				return []command.Draft{
					command.Emit(EventStoryChanged, StoryChanged{StoryID: p.StoryID, Title: p.Title, Description: p.Description}),
				}, nil
			}),
		},
		CmdSelectStory: {
			PreCondition: member(func(r Room, p storyPayload, actorID string) error {
				return activeStory(r, p.StoryID, "select")
			}),
			Fn: emitStoryRef(EventStorySelected),
		},
		CmdTrashStory: {
			PreCondition: member(func(r Room, p storyPayload, actorID string) error {
				return activeStory(r, p.StoryID, "trash")
			}),
			Fn: emitStoryRef(EventStoryTrashed),
		},
		CmdRestoreStory: {
			PreCondition: member(func(r Room, p storyPayload, actorID string) error {
				s, err := existingStory(r, p.StoryID, "restore")
				if err != nil {
					return err
				}
				if !s.Trashed {
					return fmt.Errorf("Cannot restore story %s which is not trashed", p.StoryID)
				}
				return nil
			}),
			Fn: emitStoryRef(EventStoryRestored),
		},
		CmdDeleteStory: {
			PreCondition: member(func(r Room, p storyPayload, actorID string) error {
				s, err := existingStory(r, p.StoryID, "delete")
				if err != nil {
					return err
				}
				if !s.Trashed {
					return fmt.Errorf("Cannot delete story %s which is not trashed", p.StoryID)
				}
				return nil
			}),
			Fn: emitStoryRef(EventStoryDeleted),
		},
		CmdSetSortOrder: {
			PreCondition: member(func(r Room, p sortOrderPayload, actorID string) error {
				active := r.ActiveStoryIDs()
				if len(p.SortOrder) != len(active) ||
					len(lo.Uniq(p.SortOrder)) != len(p.SortOrder) ||
					!lo.Every(active, p.SortOrder) {
					return errSortOrderMismatch
				}
				return nil
			}),
			Fn: handle(func(ctx context.Context, r Room, p sortOrderPayload, actorID string) ([]command.Draft, error) {
				return []command.Draft{command.Emit(EventSortOrderSet, SortOrderSet{SortOrder: p.SortOrder})}, nil
			}),
		},
	}
}

func emitStoryRef(name string) handlerFn {
	return handle(func(ctx context.Context, r Room, p storyPayload, actorID string) ([]command.Draft, error) {
		return []command.Draft{command.Emit(name, StoryRef{StoryID: p.StoryID})}, nil
	})
}
