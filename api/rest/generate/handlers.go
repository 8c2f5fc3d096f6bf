package generate

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"codeberg.org/sajtmaskin/server/internal/auth"
	"codeberg.org/sajtmaskin/server/internal/coordinator"
	apierrors "codeberg.org/sajtmaskin/server/internal/errors"
	"codeberg.org/sajtmaskin/server/internal/lock"
	"codeberg.org/sajtmaskin/server/internal/logger"
	"codeberg.org/sajtmaskin/server/internal/progress"
	"codeberg.org/sajtmaskin/server/internal/projects"
	"codeberg.org/sajtmaskin/server/internal/v0"
)

// GenerateHandler godoc
// @Summary Generate or refine a project's site
// @Description Submits a natural-language instruction to the generation service
// @Tags generate
// @Accept json
// @Produce json
// @Param id path string true "Project ID"
// @Param request body GenerateRequest true "Generation request"
// @Success 200 {object} GenerateResponse
// @Failure 400 {object} apierrors.ErrorResponse
// @Failure 404 {object} apierrors.ErrorResponse
// @Failure 502 {object} apierrors.ErrorResponse
// @Router /api/v1/projects/{id}/generate [post]
func GenerateHandler(coord *coordinator.Coordinator, projectRepo *projects.Repository, hub *progress.Hub) gin.HandlerFunc {
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

		var req GenerateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			apierrors.ValidationError(c, err)
			return
		}

		// ownership check doubles as the source of the project's current
		// conversation and code state
		project, err := projectRepo.Get(c.Request.Context(), projectID, userID)
		if err != nil {
			if errors.Is(err, projects.ErrProjectNotFound) {
				apierrors.ProjectNotFound(c)
				return
			}

			apierrors.InternalError(c, "failed to load project", err)
			return
		}

		result, err := coord.Submit(c.Request.Context(), coordinator.Request{
			ProjectID:  project.ID,
			Category:   project.Category,
			Prompt:     req.Prompt,
			TemplateID: project.TemplateID,
			Quality:    req.Quality,
			ChatID:     project.ChatID,
			Code:       project.Code,
			Files:      req.Files,
		}, hub.Callbacks(project.ID))

		if err != nil {
			respondSubmitError(c, hub, project.ID, err)
			return
		}

		hub.Complete(project.ID, result)

		c.JSON(http.StatusOK, completedResponse(result))
	}
}

// Suppressed submissions are not errors to the client: a double-click or a
// concurrent tab should see a calm status, never a failure banner.
func respondSubmitError(c *gin.Context, hub *progress.Hub, projectID string, err error) {
	switch {
	case errors.Is(err, lock.ErrAlreadyRunning), errors.Is(err, lock.ErrContention):
		c.JSON(http.StatusOK, GenerateResponse{Status: StatusInProgress})

	case errors.Is(err, lock.ErrCooldown), errors.Is(err, coordinator.ErrDuplicate):
		c.JSON(http.StatusOK, GenerateResponse{Status: StatusDuplicate})

	default:
		var transportErr *v0.TransportError
		if errors.As(err, &transportErr) {
			hub.Fail(projectID, apierrors.CodeGenerationFailed, transportErr.Message)
			apierrors.GenerationFailed(c, "generation failed", err)
			return
		}

		hub.Fail(projectID, apierrors.CodeServerError, "generation could not be processed")
		apierrors.InternalError(c, "failed to process generation request", err)
	}
}

// VersionsHandler godoc
// @Summary List a project's generation history
// @Tags generate
// @Produce json
// @Param id path string true "Project ID"
// @Success 200 {object} map[string]any
// @Failure 404 {object} apierrors.ErrorResponse
// @Router /api/v1/projects/{id}/versions [get]
func VersionsHandler(projectRepo *projects.Repository) gin.HandlerFunc {
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

		if _, err := projectRepo.Get(c.Request.Context(), projectID, userID); err != nil {
			if errors.Is(err, projects.ErrProjectNotFound) {
				apierrors.ProjectNotFound(c)
				return
			}

			apierrors.InternalError(c, "failed to load project", err)
			return
		}

		versions, err := projectRepo.ListVersions(c.Request.Context(), projectID, 50)
		if err != nil {
			apierrors.InternalError(c, "failed to list versions", err)
			return
		}

		if versions == nil {
			versions = []projects.Version{}
		}

		logger.Debug("listed versions", "project_id", projectID, "count", len(versions))

		c.JSON(http.StatusOK, gin.H{"versions": versions})
	}
}
