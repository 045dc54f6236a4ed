package routes

import (
	"github.com/labstack/echo/v4"
	"github.com/mushee/scorelib/cmd/scorelib/container"
	"github.com/mushee/scorelib/cmd/scorelib/handlers"
	"github.com/mushee/scorelib/cmd/scorelib/middleware"
)

// RegisterInternalRoutes registers the shared-secret operator surface
func RegisterInternalRoutes(e *echo.Echo, c *container.Container) {
	h := handlers.NewInternalHandler(c.ScoreService, c.Components.Logger)

	internal := e.Group("/api/v1/internal")
	internal.Use(middleware.RequireInternal())
	{
		internal.PATCH("/scores/:id/metadata", h.CorrectMetadata) // PATCH /api/v1/internal/scores/{score_id}/metadata
		internal.DELETE("/users/:user_id", h.PurgeUser)           // DELETE /api/v1/internal/users/{user_id}
	}
}
