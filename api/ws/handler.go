package ws

import (
	"context"
	goerrors "errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"codeberg.org/sajtmaskin/server/internal/auth"
	"codeberg.org/sajtmaskin/server/internal/errors"
	"codeberg.org/sajtmaskin/server/internal/logger"
	"codeberg.org/sajtmaskin/server/internal/progress"
	"codeberg.org/sajtmaskin/server/internal/projects"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     progress.CheckOrigin,
}

// ProgressHandler upgrades the connection and attaches the caller to the
// project's progress feed. Browsers cannot set an Authorization header on a
// websocket request, so the JWT is carried in a query parameter.
func ProgressHandler(hub *progress.Hub, projectRepo *projects.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		var params ConnectParams
		if err := c.ShouldBindQuery(&params); err != nil {
			errors.BadRequest(c, "invalid parameters", err)
			return
		}

		claims, err := auth.ValidateJWT(params.Token)
		if err != nil {
			errors.Unauthorized(c, "invalid or expired token")
			return
		}

		if !errors.IsValidUUID(params.ProjectID) {
			errors.BadRequest(c, "invalid project_id format", nil)
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
		defer cancel()

		// only the project's owner may follow its feed
		if _, err := projectRepo.Get(ctx, params.ProjectID, claims.UserID); err != nil {
			if goerrors.Is(err, projects.ErrProjectNotFound) {
				errors.ProjectNotFound(c)
				return
			}

			errors.InternalError(c, "failed to load project", err)
			return
		}

		if !hub.CanAcceptWatcher(params.ProjectID) {
			errors.TooManyRequests(c, progress.ErrProjectFull.Error())
			return
		}

		watcherID, err := progress.GenerateWatcherID()
		if err != nil {
			errors.InternalError(c, "failed to generate watcher ID", err)
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.ErrorErr(err, "failed to upgrade connection",
				"project_id", params.ProjectID,
				"ip", c.ClientIP(),
			)

			return
		}

		watcher := progress.NewWatcher(watcherID, params.ProjectID, conn, hub)

		hub.Register <- watcher

		go watcher.WritePump()
		go watcher.ReadPump()

		logger.Info("progress feed connection established",
			"watcher_id", watcherID,
			"project_id", params.ProjectID,
			"user_id", claims.UserID,
		)
	}
}
