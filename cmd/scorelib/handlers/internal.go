package handlers

import (
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/mushee/scorelib/cmd/scorelib/service"
	"github.com/mushee/scorelib/common/logger"
)

// maxPatchBytes bounds a correction patch body. Three short string
// fields never need more.
const maxPatchBytes = 64 * 1024

// InternalHandler serves the shared-secret internal surface: metadata
// corrections by operators and user purges driven by the external
// accounts system.
type InternalHandler struct {
	scores *service.ScoreService
	log    *logger.Logger
}

// NewInternalHandler creates a new internal handler
func NewInternalHandler(scores *service.ScoreService, log *logger.Logger) *InternalHandler {
	return &InternalHandler{
		scores: scores,
		log:    log,
	}
}

// CorrectMetadata handles PATCH /api/v1/internal/scores/:id/metadata
// Body is an RFC 6902 patch restricted to /title, /composer, /subtitle.
func (h *InternalHandler) CorrectMetadata(c echo.Context) error {
	scoreID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return writeError(c, h.log, fmt.Errorf("%w: invalid score id", service.ErrInvalidRequest))
	}

	patch, err := io.ReadAll(io.LimitReader(c.Request().Body, maxPatchBytes))
	if err != nil {
		return writeError(c, h.log, fmt.Errorf("failed to read patch body: %w", err))
	}

	score, err := h.scores.CorrectMetadata(c.Request().Context(), scoreID, patch)
	if err != nil {
		return writeError(c, h.log, err)
	}

	return c.JSON(http.StatusOK, score)
}

// PurgeUser handles DELETE /api/v1/internal/users/:user_id
func (h *InternalHandler) PurgeUser(c echo.Context) error {
	result, err := h.scores.PurgeUser(c.Request().Context(), c.Param("user_id"))
	if err != nil {
		return writeError(c, h.log, err)
	}

	return c.JSON(http.StatusOK, result)
}
