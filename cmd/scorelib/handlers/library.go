package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/mushee/scorelib/cmd/scorelib/middleware"
	"github.com/mushee/scorelib/cmd/scorelib/models"
	"github.com/mushee/scorelib/cmd/scorelib/service"
	"github.com/mushee/scorelib/common/logger"
)

// LibraryHandler handles per-user library endpoints
type LibraryHandler struct {
	library *service.LibraryService
	log     *logger.Logger
}

// NewLibraryHandler creates a new library handler
func NewLibraryHandler(library *service.LibraryService, log *logger.Logger) *LibraryHandler {
	return &LibraryHandler{
		library: library,
		log:     log,
	}
}

// List handles GET /api/v1/library
// Query params: page, page_size, sort_by (title|composer|added_at|created_at), sort_dir (asc|desc).
func (h *LibraryHandler) List(c echo.Context) error {
	userID := middleware.GetUserID(c)
	if userID == "" {
		return writeError(c, h.log, service.ErrUnauthorized)
	}

	page := models.ListPage{
		Page:     intQuery(c, "page"),
		PageSize: intQuery(c, "page_size"),
		SortBy:   c.QueryParam("sort_by"),
		SortDir:  c.QueryParam("sort_dir"),
	}

	result, err := h.library.List(c.Request().Context(), userID, page)
	if err != nil {
		return writeError(c, h.log, err)
	}

	return c.JSON(http.StatusOK, result)
}

// Add handles POST /api/v1/library/:score_id
func (h *LibraryHandler) Add(c echo.Context) error {
	userID := middleware.GetUserID(c)
	if userID == "" {
		return writeError(c, h.log, service.ErrUnauthorized)
	}

	scoreID, err := uuid.Parse(c.Param("score_id"))
	if err != nil {
		return writeError(c, h.log, fmt.Errorf("%w: invalid score id", service.ErrInvalidRequest))
	}

	entry, err := h.library.Add(c.Request().Context(), userID, scoreID)
	if err != nil {
		return writeError(c, h.log, err)
	}

	return c.JSON(http.StatusCreated, entry)
}

// Remove handles DELETE /api/v1/library/:score_id
func (h *LibraryHandler) Remove(c echo.Context) error {
	userID := middleware.GetUserID(c)
	if userID == "" {
		return writeError(c, h.log, service.ErrUnauthorized)
	}

	scoreID, err := uuid.Parse(c.Param("score_id"))
	if err != nil {
		return writeError(c, h.log, fmt.Errorf("%w: invalid score id", service.ErrInvalidRequest))
	}

	if err := h.library.Remove(c.Request().Context(), userID, scoreID); err != nil {
		return writeError(c, h.log, err)
	}

	return c.NoContent(http.StatusNoContent)
}

// intQuery parses an integer query param, zero when absent or bad;
// the service layer normalizes from there.
func intQuery(c echo.Context, name string) int {
	v, err := strconv.Atoi(c.QueryParam(name))
	if err != nil {
		return 0
	}
	return v
}
