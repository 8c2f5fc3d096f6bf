package main

import (
	"github.com/gin-gonic/gin"

	"codeberg.org/sajtmaskin/server/api/rest/generate"
	"codeberg.org/sajtmaskin/server/api/rest/health"
	"codeberg.org/sajtmaskin/server/api/rest/projects"
	"codeberg.org/sajtmaskin/server/api/ws"
)

// sets up all API routes and middleware
func RegisterRoutes(router *gin.Engine, server *Server) {
	router.Use(CORSMiddleware())
	router.GET("/health", health.Handler)

	v1 := router.Group("/api/v1")

	{
		v1.GET("/ping", health.PingHandler)

		projects.RegisterRoutes(v1, server.projectRepo)
		generate.RegisterRoutes(v1, server.services.Coordinator, server.projectRepo, server.hub)

		v1.GET("/ws/progress", ws.ProgressHandler(server.hub, server.projectRepo))
	}
}
