package projects

import (
	"github.com/gin-gonic/gin"

	"codeberg.org/sajtmaskin/server/internal/auth"
	"codeberg.org/sajtmaskin/server/internal/projects"
)

func RegisterRoutes(router *gin.RouterGroup, projectRepo *projects.Repository) {
	group := router.Group("/projects")
	group.Use(auth.AuthMiddleware())
	{
		group.POST("", CreateProjectHandler(projectRepo))
		group.GET("", ListProjectsHandler(projectRepo))
		group.GET("/:id", GetProjectHandler(projectRepo))
		group.PATCH("/:id", UpdateProjectHandler(projectRepo))
		group.DELETE("/:id", DeleteProjectHandler(projectRepo))
	}
}
