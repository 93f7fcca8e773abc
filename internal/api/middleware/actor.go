package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	ActorHeader     = "X-User-ID"
	ActorQuery      = "userId"
	RoomTokenHeader = "X-Room-Token"
	actorKey     = "actorId"
	maxActorSize = 128
)

// respondError writes a JSON error response and stops the chain.
func respondError(c *gin.Context, message string, status int) {
	c.AbortWithStatusJSON(status, gin.H{"error": gin.H{"message": message}})
}

// ExtractActor reads the acting user from the X-User-ID header, falling back
// to the userId query parameter (browsers cannot set headers on websockets).
func ExtractActor(r *http.Request) string {
	if actor := strings.TrimSpace(r.Header.Get(ActorHeader)); actor != "" {
		return actor
	}
	return strings.TrimSpace(r.URL.Query().Get(ActorQuery))
}

// ExtractRoomToken reads a room token from the X-Room-Token header or a
// Bearer authorization.
func ExtractRoomToken(r *http.Request) string {
	if token := strings.TrimSpace(r.Header.Get(RoomTokenHeader)); token != "" {
		return token
	}
	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}

// RequireActor rejects requests that do not name their user.
func RequireActor() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := ExtractActor(c.Request)
		if actor == "" {
			respondError(c, "missing user id", http.StatusUnauthorized)
			return
		}
		if len(actor) > maxActorSize {
			respondError(c, "user id too long", http.StatusBadRequest)
			return
		}
		c.Set(actorKey, actor)
		c.Next()
	}
}

// GetActorID returns the user id stored by RequireActor.
func GetActorID(c *gin.Context) string {
	return c.GetString(actorKey)
}
