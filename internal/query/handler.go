package query

import (
	"context"
	"errors"
	"sort"

	"github.com/example/room-sessions/internal/command"
	"github.com/example/room-sessions/internal/domain/room"
	"github.com/example/room-sessions/internal/infrastructure/store"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// ErrForbidden is returned when a viewer may not see a protected room.
var ErrForbidden = errors.New("not allowed to view this room")

// TokenValidator checks a room token issued to userID for roomID.
type TokenValidator interface {
	Validate(token, userID, roomID string) error
}

// Viewer is who asks for a room.
type Viewer struct {
	UserID string
	Token  string
}

type Handler struct {
	rooms  store.Store[room.Room]
	tokens TokenValidator
	logger *zap.Logger
}

func NewHandler(rooms store.Store[room.Room], tokens TokenValidator, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{rooms: rooms, tokens: tokens, logger: logger}
}

// GetRoom loads a room by its (unsanitized) id. A password protected room is
// only shown to its members and to viewers holding a room token issued to
// them for this room.
func (h *Handler) GetRoom(ctx context.Context, roomID string, viewer Viewer) (*RoomReadModel, bool, error) {
	id := command.SanitizeRoomID(roomID)
	if id == "" {
		return nil, false, nil
	}
	r, found, err := h.rooms.GetByID(ctx, id)
	if err != nil {
		h.logger.Error("failed to load room", zap.String("roomId", id), zap.Error(err))
		return nil, false, err
	}
	if !found {
		return nil, false, nil
	}
	if !h.canView(r, viewer) {
		return nil, true, ErrForbidden
	}
	return NewRoomReadModel(r), true, nil
}

func (h *Handler) canView(r room.Room, viewer Viewer) bool {
	if !r.PasswordProtected() {
		return true
	}
	if viewer.UserID == "" {
		return false
	}
	if r.HasUser(viewer.UserID) {
		return true
	}
	if viewer.Token == "" || h.tokens == nil {
		return false
	}
	if err := h.tokens.Validate(viewer.Token, viewer.UserID, r.ID); err != nil {
		h.logger.Debug("room token rejected", zap.String("roomId", r.ID), zap.String("userId", viewer.UserID), zap.Error(err))
		return false
	}
	return true
}

// NewRoomReadModel projects r into its read model.
func NewRoomReadModel(r room.Room) *RoomReadModel {
	return &RoomReadModel{
		ID:      r.ID,
		Version: r.Version,
		Users: lo.Map(r.UserList(), func(u room.User, _ int) UserReadModel {
			return UserReadModel{
				ID:           u.ID,
				Username:     u.Username,
				EmailHash:    u.EmailHash,
				Avatar:       u.Avatar,
				Disconnected: u.Disconnected,
				Excluded:     u.Excluded,
			}
		}),
		Stories:       lo.Map(r.StoryList(), func(s room.Story, _ int) StoryReadModel { return newStoryReadModel(s) }),
		SelectedStory: r.SelectedStory,
		CardConfig: lo.Map(r.Cards(), func(c room.Card, _ int) CardReadModel {
			return CardReadModel{Label: c.Label, Value: c.Value, Color: c.Color}
		}),
		AutoReveal:        r.AutoReveal,
		WithConfidence:    r.WithConfidence,
		PasswordProtected: r.PasswordProtected(),
		Created:           r.Created,
		LastActivity:      r.LastActivity,
	}
}

func newStoryReadModel(s room.Story) StoryReadModel {
	estimatedBy := lo.Keys(s.Estimations)
	sort.Strings(estimatedBy)

	m := StoryReadModel{
		ID:          s.ID,
		Title:       s.Title,
		Description: s.Description,
		CreatedAt:   s.Created,
		SortOrder:   s.SortOrder,
		Trashed:     s.Trashed,
		Revealed:    s.Revealed,
		EstimatedBy: estimatedBy,
		Consensus:   s.Consensus,
	}
	if s.Revealed {
		m.Estimations = lo.MapValues(s.Estimations, func(e room.Estimation, _ string) float64 { return e.Value })
	}
	return m
}
