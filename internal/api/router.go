package api

import (
	"github.com/example/room-sessions/internal/api/middleware"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func NewRouter(handlers *Handlers, logger *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(logger))

	r.GET("/healthz", handlers.Health)

	api := r.Group("/api")
	{
		api.POST("/commands", middleware.RequireActor(), handlers.PostCommand)
		api.GET("/rooms/:roomId", handlers.GetRoom)
	}

	r.GET("/ws", middleware.RequireActor(), handlers.ServeWS)
	return r
}
