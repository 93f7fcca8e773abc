package room

import (
	"fmt"

	"github.com/example/room-sessions/internal/command"
)

// mutation changes next in place. next is always a private clone.
type mutation func(next *Room, evt command.Event) error

// applier turns a mutation into a command.Applier that leaves its input
// untouched and advances version and activity time.
func applier(m mutation) command.Applier[Room] {
	return func(r Room, evt command.Event) (Room, error) {
		next := r.Clone()
		if err := m(&next, evt); err != nil {
			return r, err
		}
		next.Version++
		next.LastActivity = evt.Timestamp
		return next, nil
	}
}

// withPayload decodes the event payload into P before mutating.
func withPayload[P any](fn func(next *Room, evt command.Event, p P) error) mutation {
	return func(next *Room, evt command.Event) error {
		var p P
		if err := command.Decode(evt.Payload, &p); err != nil {
			return err
		}
		return fn(next, evt, p)
	}
}

func (r *Room) updateUser(userID string, fn func(u *User)) {
	u := r.Users[userID]
	u.ID = userID
	fn(&u)
	r.Users[userID] = u
}

func (r *Room) updateStory(storyID string, fn func(s *Story)) error {
	s, ok := r.Stories[storyID]
	if !ok {
		return fmt.Errorf("story %s not found in room %s", storyID, r.ID)
	}
	fn(&s)
	r.Stories[storyID] = s
	return nil
}

func appliers() map[string]command.Applier[Room] {
	return map[string]command.Applier[Room]{
		EventRoomCreated: applier(func(next *Room, evt command.Event) error {
			next.Created = evt.Timestamp
			return nil
		}),
		EventJoinedRoom: applier(func(next *Room, evt command.Event) error {
			next.updateUser(evt.UserID, func(u *User) { u.Disconnected = false })
			return nil
		}),
		EventLeftRoom: applier(func(next *Room, evt command.Event) error {
			delete(next.Users, evt.UserID)
			return nil
		}),
		EventConnectionLost: applier(func(next *Room, evt command.Event) error {
			if next.HasUser(evt.UserID) {
				next.updateUser(evt.UserID, func(u *User) { u.Disconnected = true })
			}
			return nil
		}),
		EventKicked: applier(withPayload(func(next *Room, evt command.Event, p UserRef) error {
			delete(next.Users, p.UserID)
			return nil
		})),
		EventUsernameSet: applier(withPayload(func(next *Room, evt command.Event, p UsernameSet) error {
			next.updateUser(evt.UserID, func(u *User) { u.Username = p.Username })
			return nil
		})),
		EventEmailSet: applier(withPayload(func(next *Room, evt command.Event, p EmailSet) error {
			next.updateUser(evt.UserID, func(u *User) {
				u.Email = p.Email
				u.EmailHash = p.EmailHash
			})
			return nil
		})),
		EventAvatarSet: applier(withPayload(func(next *Room, evt command.Event, p AvatarSet) error {
			next.updateUser(evt.UserID, func(u *User) {
				avatar := p.Avatar
				u.Avatar = &avatar
			})
			return nil
		})),
		EventExcludedFromEstimations: applier(withPayload(func(next *Room, evt command.Event, p UserRef) error {
			next.updateUser(p.UserID, func(u *User) { u.Excluded = true })
			return nil
		})),
		EventIncludedInEstimations: applier(withPayload(func(next *Room, evt command.Event, p UserRef) error {
			next.updateUser(p.UserID, func(u *User) { u.Excluded = false })
			return nil
		})),
		// The token only matters to the client; the room records nothing.
		EventTokenIssued: applier(func(next *Room, evt command.Event) error { return nil }),
		EventStoryAdded: applier(withPayload(func(next *Room, evt command.Event, p StoryAdded) error {
			next.Stories[p.StoryID] = Story{
				ID:          p.StoryID,
				Title:       p.Title,
				Description: p.Description,
				Created:     evt.Timestamp,
				SortOrder:   next.nextSortOrder(),
				Estimations: map[string]Estimation{},
			}
			return nil
		})),
		EventStoryChanged: applier(withPayload(func(next *Room, evt command.Event, p StoryChanged) error {
			return next.updateStory(p.StoryID, func(s *Story) {
				s.Title = p.Title
				s.Description = p.Description
			})
		})),
		EventStorySelected: applier(withPayload(func(next *Room, evt command.Event, p StoryRef) error {
			next.SelectedStory = p.StoryID
			return nil
		})),
		EventStoryTrashed: applier(withPayload(func(next *Room, evt command.Event, p StoryRef) error {
			if next.SelectedStory == p.StoryID {
				next.SelectedStory = ""
			}
			return next.updateStory(p.StoryID, func(s *Story) { s.Trashed = true })
		})),
		EventStoryRestored: applier(withPayload(func(next *Room, evt command.Event, p StoryRef) error {
			return next.updateStory(p.StoryID, func(s *Story) { s.Trashed = false })
		})),
		EventStoryDeleted: applier(withPayload(func(next *Room, evt command.Event, p StoryRef) error {
			delete(next.Stories, p.StoryID)
			return nil
		})),
		EventSortOrderSet: applier(withPayload(func(next *Room, evt command.Event, p SortOrderSet) error {
			for i, id := range p.SortOrder {
				if err := next.updateStory(id, func(s *Story) { s.SortOrder = i }); err != nil {
					return err
				}
			}
			return nil
		})),
		EventStoryEstimateGiven: applier(withPayload(func(next *Room, evt command.Event, p StoryEstimateGiven) error {
			return next.updateStory(p.StoryID, func(s *Story) {
				s.Estimations[evt.UserID] = Estimation{Value: p.Value, Confidence: p.Confidence}
			})
		})),
		EventStoryEstimateCleared: applier(withPayload(func(next *Room, evt command.Event, p StoryRef) error {
			return next.updateStory(p.StoryID, func(s *Story) { delete(s.Estimations, evt.UserID) })
		})),
		EventRevealed: applier(withPayload(func(next *Room, evt command.Event, p Revealed) error {
			return next.updateStory(p.StoryID, func(s *Story) { s.Revealed = true })
		})),
		EventConsensusAchieved: applier(withPayload(func(next *Room, evt command.Event, p ConsensusAchieved) error {
			return next.updateStory(p.StoryID, func(s *Story) {
				value := p.Value
				s.Consensus = &value
			})
		})),
		EventNewEstimationRoundStarted: applier(withPayload(func(next *Room, evt command.Event, p StoryRef) error {
			return next.updateStory(p.StoryID, func(s *Story) {
				s.Estimations = map[string]Estimation{}
				s.Revealed = false
				s.Consensus = nil
			})
		})),
		EventCardConfigSet: applier(withPayload(func(next *Room, evt command.Event, p CardConfigSet) error {
			next.CardConfig = p.CardConfig
			return nil
		})),
		EventRoomConfigSet: applier(withPayload(func(next *Room, evt command.Event, p RoomConfigSet) error {
			next.AutoReveal = p.AutoReveal
			next.WithConfidence = p.WithConfidence
			return nil
		})),
		EventPasswordSet: applier(withPayload(func(next *Room, evt command.Event, p PasswordSet) error {
			next.Password = p.Password
			return nil
		})),
		EventPasswordCleared: applier(func(next *Room, evt command.Event) error {
			next.Password = ""
			return nil
		}),
	}
}
