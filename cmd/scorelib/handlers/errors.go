package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/mushee/scorelib/cmd/scorelib/service"
	"github.com/mushee/scorelib/common/logger"
)

// boundary maps service error kinds to their external surface. The
// client message is fixed per code; whatever detail the service
// wrapped stays in the logs.
var boundary = []struct {
	kind    error
	status  int
	code    string
	message string
}{
	{service.ErrInvalidFileFormat, http.StatusBadRequest, "invalid_file_format", "Only .musicxml, .xml and .mxl files are accepted."},
	{service.ErrFileTooLarge, http.StatusRequestEntityTooLarge, "file_too_large", "File exceeds the maximum upload size."},
	{service.ErrInvalidContent, http.StatusUnprocessableEntity, "invalid_content", "File content is not a valid MusicXML document."},
	{service.ErrAlreadyInLibrary, http.StatusConflict, "already_in_library", "This score is already in your library."},
	{service.ErrUnauthorized, http.StatusUnauthorized, "unauthorized", "Authentication required."},
	{service.ErrForbidden, http.StatusForbidden, "forbidden", "You do not have access to this score."},
	{service.ErrNotFound, http.StatusNotFound, "not_found", "Score not found."},
	{service.ErrInvalidRequest, http.StatusBadRequest, "invalid_request", "Request is invalid."},
}

// writeError renders a service failure. Anything outside the boundary
// taxonomy is an internal error: logged with full detail, surfaced
// with none.
func writeError(c echo.Context, log *logger.Logger, err error) error {
	for _, b := range boundary {
		if errors.Is(err, b.kind) {
			return c.JSON(b.status, map[string]interface{}{
				"error":   b.code,
				"message": b.message,
			})
		}
	}

	log.Error("request failed",
		"method", c.Request().Method,
		"path", c.Path(),
		"error", err,
	)
	return c.JSON(http.StatusInternalServerError, map[string]interface{}{
		"error":   "internal_error",
		"message": "Something went wrong. Please try again.",
	})
}
