package routes

import (
	"github.com/labstack/echo/v4"
	"github.com/mushee/scorelib/cmd/scorelib/container"
	"github.com/mushee/scorelib/cmd/scorelib/handlers"
	"github.com/mushee/scorelib/cmd/scorelib/middleware"
	commonmw "github.com/mushee/scorelib/common/middleware"
)

// RegisterScoreRoutes registers upload and catalog read routes
func RegisterScoreRoutes(e *echo.Echo, c *container.Container) {
	h := handlers.NewScoreHandler(c.IngestService, c.ScoreService, c.Components.Logger)

	// Rate limiting applies to ingestion only; reads are cheap.
	var uploadGuards []echo.MiddlewareFunc
	if rl := c.Components.Config.RateLimit; rl.Enabled {
		uploadGuards = append(uploadGuards,
			commonmw.GlobalRateLimitMiddleware(c.RateLimiter, int64(rl.GlobalLimit), rl.WindowSeconds),
			commonmw.UserRateLimitMiddleware(c.RateLimiter, int64(rl.UserLimit), rl.WindowSeconds),
		)
	}

	scores := e.Group("/api/v1/scores")
	scores.Use(middleware.ExtractUserID())
	{
		scores.POST("", h.Upload, uploadGuards...)        // POST /api/v1/scores
		scores.GET("/:id", h.Get)                         // GET /api/v1/scores/{score_id}
		scores.POST("/:id/download-url", h.DownloadURL)   // POST /api/v1/scores/{score_id}/download-url
	}
}
