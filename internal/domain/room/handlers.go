package room

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/example/room-sessions/internal/command"
	"github.com/google/uuid"
)

// PasswordHasher hashes and checks room passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Check(password, hash string) bool
}

// TokenIssuer hands out and checks room tokens for password protected rooms.
type TokenIssuer interface {
	Issue(userID, roomID string) (string, error)
	Validate(token, userID, roomID string) error
}

// Deps are the collaborators room handlers need.
type Deps struct {
	Passwords PasswordHasher
	Tokens    TokenIssuer
	NewID     func() string
}

const (
	sampleStoryTitle       = "Welcome to your new room"
	sampleStoryDescription = "This is a sample story. Select it, pick a card and reveal the estimates together."
)

var errSortOrderMismatch = errors.New("Sort order must list every active story exactly once")

type (
	precondition = func(r Room, cmd command.Command, actorID string) error
	handlerFn    = func(ctx context.Context, r Room, cmd command.Command, actorID string) ([]command.Draft, error)
)

// member decodes the payload and runs check once the actor is known to be
// in the room.
func member[P any](check func(r Room, p P, actorID string) error) precondition {
	return func(r Room, cmd command.Command, actorID string) error {
		if !r.HasUser(actorID) {
			return fmt.Errorf("Given user %s does not belong to room %s", actorID, r.ID)
		}
		if check == nil {
			return nil
		}
		var p P
		if err := command.Decode(cmd.Payload, &p); err != nil {
			return err
		}
		return check(r, p, actorID)
	}
}

func handle[P any](fn func(ctx context.Context, r Room, p P, actorID string) ([]command.Draft, error)) handlerFn {
	return func(ctx context.Context, r Room, cmd command.Command, actorID string) ([]command.Draft, error) {
		var p P
		if err := command.Decode(cmd.Payload, &p); err != nil {
			return nil, err
		}
		return fn(ctx, r, p, actorID)
	}
}

// EmailHash is the gravatar hash of an email address.
func EmailHash(email string) string {
	sum := md5.Sum([]byte(strings.ToLower(strings.TrimSpace(email))))
	return hex.EncodeToString(sum[:])
}

func emailSet(email string) command.Draft {
	return command.Emit(EventEmailSet, EmailSet{Email: email, EmailHash: EmailHash(email)})
}

func existingStory(r Room, storyID, verb string) (Story, error) {
	s, ok := r.Stories[storyID]
	if !ok {
		return s, fmt.Errorf("Cannot %s unknown story %s", verb, storyID)
	}
	return s, nil
}

func activeStory(r Room, storyID, verb string) error {
	s, err := existingStory(r, storyID, verb)
	if err != nil {
		return err
	}
	if s.Trashed {
		return fmt.Errorf("Cannot %s trashed story %s", verb, storyID)
	}
	return nil
}

func (d Deps) newID() string {
	if d.NewID != nil {
		return d.NewID()
	}
	return uuid.NewString()
}

func (d Deps) handlers() map[string]command.Handler[Room] {
	return map[string]command.Handler[Room]{
		CmdJoinRoom: {
			CanCreateRoom: true,
			PreCondition:  d.joinPrecondition,
			Fn:            handle(d.join),
		},
		CmdLeaveRoom: {
			PreCondition: member[leaveRoomPayload](nil),
			Fn: handle(func(ctx context.Context, r Room, p leaveRoomPayload, actorID string) ([]command.Draft, error) {
				if p.ConnectionLost {
					return []command.Draft{command.Emit(EventConnectionLost, nil)}, nil
				}
				return []command.Draft{command.Emit(EventLeftRoom, nil)}, nil
			}),
		},
		CmdKick: {
			PreCondition: member(func(r Room, p userPayload, actorID string) error {
				if p.UserID == actorID {
					return errors.New("Users cannot kick themselves!")
				}
				target, ok := r.Users[p.UserID]
				if !ok {
					return errors.New("Can only kick user that belongs to the same room!")
				}
				if !target.Disconnected {
					return errors.New("Can only kick disconnected users!")
				}
				return nil
			}),
			Fn: handle(func(ctx context.Context, r Room, p userPayload, actorID string) ([]command.Draft, error) {
				return []command.Draft{command.Emit(EventKicked, UserRef{UserID: p.UserID})}, nil
			}),
		},
		CmdSetUsername: {
			PreCondition: member[setUsernamePayload](nil),
			Fn: handle(func(ctx context.Context, r Room, p setUsernamePayload, actorID string) ([]command.Draft, error) {
				return []command.Draft{command.Emit(EventUsernameSet, UsernameSet{Username: p.Username})}, nil
			}),
		},
		CmdSetEmail: {
			PreCondition: member[setEmailPayload](nil),
			Fn: handle(func(ctx context.Context, r Room, p setEmailPayload, actorID string) ([]command.Draft, error) {
				return []command.Draft{emailSet(p.Email)}, nil
			}),
		},
		CmdSetAvatar: {
			PreCondition: member[setAvatarPayload](nil),
			Fn: handle(func(ctx context.Context, r Room, p setAvatarPayload, actorID string) ([]command.Draft, error) {
				return []command.Draft{command.Emit(EventAvatarSet, AvatarSet{Avatar: p.Avatar})}, nil
			}),
		},
		CmdToggleExclude: {
			PreCondition: member(func(r Room, p userPayload, actorID string) error {
				if !r.HasUser(p.UserID) {
					return errors.New("Can only exclude or include users that belong to the same room!")
				}
				return nil
			}),
			Fn: handle(func(ctx context.Context, r Room, p userPayload, actorID string) ([]command.Draft, error) {
				name := EventExcludedFromEstimations
				if r.Users[p.UserID].Excluded {
					name = EventIncludedInEstimations
				}
				return []command.Draft{command.Emit(name, UserRef{UserID: p.UserID})}, nil
			}),
		},
		CmdSetPassword: {
			PreCondition: member[passwordPayload](nil),
			Fn:           handle(d.setPassword),
		},
	}
}

func (d Deps) joinPrecondition(r Room, cmd command.Command, actorID string) error {
	if r.IsPristine() || !r.PasswordProtected() {
		return nil
	}
	var p joinRoomPayload
	if err := command.Decode(cmd.Payload, &p); err != nil {
		return err
	}
	if p.Token != "" {
		if err := d.Tokens.Validate(p.Token, actorID, r.ID); err != nil {
			return fmt.Errorf("%w: %w", command.ErrNotAuthorized, err)
		}
		return nil
	}
	if p.Password != "" && d.Passwords.Check(p.Password, r.Password) {
		return nil
	}
	return command.ErrNotAuthorized
}

func (d Deps) join(ctx context.Context, r Room, p joinRoomPayload, actorID string) ([]command.Draft, error) {
	var drafts []command.Draft
	if r.IsPristine() {
		// A password sent along when creating the room is ignored.
		drafts = append(drafts, command.Draft{Name: EventRoomCreated, Restricted: true})
	}

	joining := r.Users[actorID]
	joining.ID = actorID
	joining.Disconnected = false
	if p.Username != "" {
		joining.Username = p.Username
	}
	if p.Email != "" {
		joining.Email = p.Email
	}
	if p.Avatar != nil {
		avatar := *p.Avatar
		joining.Avatar = &avatar
	}

	users := make([]User, 0, len(r.Users)+1)
	for _, u := range r.UserList() {
		if u.ID != actorID {
			users = append(users, u)
		}
	}
	users = append(users, joining)

	drafts = append(drafts, command.Emit(EventJoinedRoom, JoinedRoom{
		Stories:           r.StoryList(),
		SelectedStory:     r.SelectedStory,
		Users:             users,
		CardConfig:        r.Cards(),
		AutoReveal:        r.AutoReveal,
		WithConfidence:    r.WithConfidence,
		PasswordProtected: r.PasswordProtected(),
	}))

	if p.Username != "" {
		drafts = append(drafts, command.Emit(EventUsernameSet, UsernameSet{Username: p.Username}))
	}
	if p.Email != "" {
		drafts = append(drafts, emailSet(p.Email))
	}
	if p.Avatar != nil {
		drafts = append(drafts, command.Emit(EventAvatarSet, AvatarSet{Avatar: *p.Avatar}))
	}

	if !r.IsPristine() && r.PasswordProtected() && p.Token == "" {
		token, err := d.Tokens.Issue(actorID, r.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to issue token: %w", err)
		}
		drafts = append(drafts, command.Draft{Name: EventTokenIssued, Payload: TokenIssued{Token: token}, Restricted: true})
	}

	if r.IsPristine() {
		storyID := d.newID()
		drafts = append(drafts,
			command.Emit(EventStoryAdded, StoryAdded{StoryID: storyID, Title: sampleStoryTitle, Description: sampleStoryDescription}),
			command.Emit(EventStorySelected, StoryRef{StoryID: storyID}),
		)
	}
	return drafts, nil
}

func (d Deps) setPassword(ctx context.Context, r Room, p passwordPayload, actorID string) ([]command.Draft, error) {
	if p.Password == "" {
		return []command.Draft{command.Emit(EventPasswordCleared, nil)}, nil
	}
	hash, err := d.Passwords.Hash(p.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	token, err := d.Tokens.Issue(actorID, r.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}
	return []command.Draft{
		command.Emit(EventPasswordSet, PasswordSet{Password: hash}),
		{Name: EventTokenIssued, Payload: TokenIssued{Token: token}, Restricted: true},
	}, nil
}
