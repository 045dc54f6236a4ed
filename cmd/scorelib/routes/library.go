package routes

import (
	"github.com/labstack/echo/v4"
	"github.com/mushee/scorelib/cmd/scorelib/container"
	"github.com/mushee/scorelib/cmd/scorelib/handlers"
	"github.com/mushee/scorelib/cmd/scorelib/middleware"
)

// RegisterLibraryRoutes registers per-user library routes
func RegisterLibraryRoutes(e *echo.Echo, c *container.Container) {
	h := handlers.NewLibraryHandler(c.LibraryService, c.Components.Logger)

	library := e.Group("/api/v1/library")
	library.Use(middleware.ExtractUserID())
	{
		library.GET("", h.List)                  // GET /api/v1/library?page=1&sort_by=title
		library.POST("/:score_id", h.Add)        // POST /api/v1/library/{score_id}
		library.DELETE("/:score_id", h.Remove)   // DELETE /api/v1/library/{score_id}
	}
}
