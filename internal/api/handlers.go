package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/example/room-sessions/internal/api/middleware"
	"github.com/example/room-sessions/internal/command"
	"github.com/example/room-sessions/internal/domain/room"
	"github.com/example/room-sessions/internal/query"
	"github.com/example/room-sessions/internal/session"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Dispatcher runs commands and serves websocket sessions.
type Dispatcher interface {
	Dispatch(ctx context.Context, cmd command.Command, actorID string) (command.Result[room.Room], error)
	ServeWS(w http.ResponseWriter, r *http.Request, roomID, userID string) error
}

type Handlers struct {
	dispatcher   Dispatcher
	queryHandler *query.Handler
	logger       *zap.Logger
}

func NewHandlers(dispatcher Dispatcher, queryHandler *query.Handler, logger *zap.Logger) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{
		dispatcher:   dispatcher,
		queryHandler: queryHandler,
		logger:       logger,
	}
}

// CommandResponse is returned for an applied command.
type CommandResponse struct {
	Events []command.Event      `json:"events"`
	Room   *query.RoomReadModel `json:"room"`
}

type rejection struct {
	Kind    command.Kind `json:"kind"`
	Command string       `json:"command,omitempty"`
	Message string       `json:"message"`
}

// PostCommand endpoint POST /api/commands
func (h *Handlers) PostCommand(c *gin.Context) {
	var cmd command.Command
	if err := c.ShouldBindJSON(&cmd); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": rejection{Kind: command.KindValidation, Message: err.Error()}})
		return
	}

	res, err := h.dispatcher.Dispatch(c.Request.Context(), cmd, middleware.GetActorID(c))
	if err != nil {
		respondRejection(c, cmd, err)
		return
	}

	c.JSON(http.StatusOK, CommandResponse{Events: res.Events, Room: query.NewRoomReadModel(res.Room)})
}

// GetRoom endpoint GET /api/rooms/:roomId
// Protected rooms need a member's user id or a room token (X-Room-Token).
func (h *Handlers) GetRoom(c *gin.Context) {
	viewer := query.Viewer{
		UserID: middleware.ExtractActor(c.Request),
		Token:  middleware.ExtractRoomToken(c.Request),
	}
	view, found, err := h.queryHandler.GetRoom(c.Request.Context(), c.Param("roomId"), viewer)
	if errors.Is(err, query.ErrForbidden) {
		c.JSON(http.StatusForbidden, gin.H{"error": gin.H{"message": "Not Authorized!"}})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": gin.H{"message": "could not load room"}})
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": gin.H{"message": "room not found"}})
		return
	}
	c.JSON(http.StatusOK, view)
}

// ServeWS endpoint GET /ws?roomId=&userId=
func (h *Handlers) ServeWS(c *gin.Context) {
	err := h.dispatcher.ServeWS(c.Writer, c.Request, c.Query("roomId"), middleware.GetActorID(c))
	if errors.Is(err, session.ErrRoomRequired) {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"message": err.Error()}})
		return
	}
	if err != nil {
		// The upgrader has already answered the client.
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
	}
}

// Health endpoint GET /healthz
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func respondRejection(c *gin.Context, cmd command.Command, err error) {
	kind := command.KindOf(err)
	body := rejection{Kind: kind, Command: cmd.Name, Message: err.Error()}
	if kind.Internal() {
		// Internal failures are logged by the processor; clients get no detail.
		body.Message = "internal error"
	}
	c.JSON(statusFor(kind), gin.H{"error": body})
}

func statusFor(kind command.Kind) int {
	switch kind {
	case command.KindValidation, command.KindRoomRequired:
		return http.StatusBadRequest
	case command.KindRoomExistence:
		return http.StatusNotFound
	case command.KindAuthorization:
		return http.StatusForbidden
	case command.KindPrecondition, command.KindHandler:
		return http.StatusConflict
	case command.KindCancelled:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
