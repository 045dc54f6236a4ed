package routes

import (
	"github.com/labstack/echo/v4"
	"github.com/mushee/scorelib/cmd/scorelib/container"
	"github.com/mushee/scorelib/cmd/scorelib/handlers"
)

// RegisterBlobRoutes registers the signed blob read route. No identity
// middleware here: the URL signature is the whole authorization.
func RegisterBlobRoutes(e *echo.Echo, c *container.Container) {
	h := handlers.NewBlobHandler(c.BlobService, c.Components.Logger)

	blobs := e.Group("/api/v1/blobs")
	{
		blobs.GET("/:fingerprint", h.Get) // GET /api/v1/blobs/{fingerprint}?exp=...&sig=...
	}
}
