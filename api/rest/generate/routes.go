package generate

import (
	"time"

	"github.com/gin-gonic/gin"
	limiter "github.com/ulule/limiter/v3"
	mgin "github.com/ulule/limiter/v3/drivers/middleware/gin"
	memorystore "github.com/ulule/limiter/v3/drivers/store/memory"

	"codeberg.org/sajtmaskin/server/internal/auth"
	"codeberg.org/sajtmaskin/server/internal/coordinator"
	"codeberg.org/sajtmaskin/server/internal/progress"
	"codeberg.org/sajtmaskin/server/internal/projects"
)

// generation is expensive upstream; keep the per-client rate low
var generateRate = limiter.Rate{
	Period: time.Minute,
	Limit:  10,
}

func RegisterRoutes(router *gin.RouterGroup, coord *coordinator.Coordinator, projectRepo *projects.Repository, hub *progress.Hub) {
	rateMiddleware := mgin.NewMiddleware(limiter.New(memorystore.NewStore(), generateRate))

	group := router.Group("/projects/:id")
	group.Use(auth.AuthMiddleware())
	{
		group.POST("/generate", rateMiddleware, GenerateHandler(coord, projectRepo, hub))
		group.GET("/versions", VersionsHandler(projectRepo))
	}
}
