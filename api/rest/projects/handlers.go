package projects

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"codeberg.org/sajtmaskin/server/api/rest/pagination"
	"codeberg.org/sajtmaskin/server/internal/auth"
	apierrors "codeberg.org/sajtmaskin/server/internal/errors"
	"codeberg.org/sajtmaskin/server/internal/projects"
)

// CreateProjectHandler creates a new project for the authenticated user
func CreateProjectHandler(projectRepo *projects.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := auth.GetUserID(c)
		if !ok {
			apierrors.Unauthorized(c, "")
			return
		}

		var req projects.CreateProjectRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			apierrors.ValidationError(c, err)
			return
		}

		project, err := projectRepo.Create(c.Request.Context(), userID, req)
		if err != nil {
			apierrors.InternalError(c, "failed to create project", err)
			return
		}

		c.JSON(http.StatusCreated, project)
	}
}

// ListProjectsHandler lists the authenticated user's projects
func ListProjectsHandler(projectRepo *projects.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := auth.GetUserID(c)
		if !ok {
			apierrors.Unauthorized(c, "")
			return
		}

		limit, _ := strconv.Atoi(c.Query("limit"))
		offset, _ := strconv.Atoi(c.Query("offset"))
		params := pagination.DefaultParams(limit, offset, 20, 100)

		list, total, err := projectRepo.List(c.Request.Context(), userID, params.Limit, params.Offset)
		if err != nil {
			apierrors.InternalError(c, "failed to list projects", err)
			return
		}

		if list == nil {
			list = []projects.Project{}
		}

		c.JSON(http.StatusOK, gin.H{
			"projects":   list,
			"pagination": pagination.NewMeta(params, total),
		})
	}
}

// GetProjectHandler gets a single project by ID
func GetProjectHandler(projectRepo *projects.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := auth.GetUserID(c)
		if !ok {
			apierrors.Unauthorized(c, "")
			return
		}

		projectID, ok := apierrors.ValidatePathUUID(c, "id")
		if !ok {
			return
		}

		project, err := projectRepo.Get(c.Request.Context(), projectID, userID)
		if err != nil {
			if errors.Is(err, projects.ErrProjectNotFound) {
				apierrors.ProjectNotFound(c)
				return
			}

			apierrors.InternalError(c, "failed to load project", err)
			return
		}

		c.JSON(http.StatusOK, project)
	}
}

// UpdateProjectHandler updates a project's metadata
func UpdateProjectHandler(projectRepo *projects.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := auth.GetUserID(c)
		if !ok {
			apierrors.Unauthorized(c, "")
			return
		}

		projectID, ok := apierrors.ValidatePathUUID(c, "id")
		if !ok {
			return
		}

		var req projects.UpdateProjectRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			apierrors.ValidationError(c, err)
			return
		}

		project, err := projectRepo.Update(c.Request.Context(), projectID, userID, req)
		if err != nil {
			if errors.Is(err, projects.ErrProjectNotFound) {
				apierrors.ProjectNotFound(c)
				return
			}

			apierrors.InternalError(c, "failed to update project", err)
			return
		}

		c.JSON(http.StatusOK, project)
	}
}

// DeleteProjectHandler deletes a project
func DeleteProjectHandler(projectRepo *projects.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := auth.GetUserID(c)
		if !ok {
			apierrors.Unauthorized(c, "")
			return
		}

		projectID, ok := apierrors.ValidatePathUUID(c, "id")
		if !ok {
			return
		}

		if err := projectRepo.Delete(c.Request.Context(), projectID, userID); err != nil {
			if errors.Is(err, projects.ErrProjectNotFound) {
				apierrors.ProjectNotFound(c)
				return
			}

			apierrors.InternalError(c, "failed to delete project", err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "project deleted"})
	}
}
