package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/mushee/scorelib/cmd/scorelib/middleware"
	"github.com/mushee/scorelib/cmd/scorelib/models"
	"github.com/mushee/scorelib/cmd/scorelib/service"
	"github.com/mushee/scorelib/common/logger"
)

// ScoreHandler handles upload and catalog read endpoints
type ScoreHandler struct {
	ingest *service.IngestService
	scores *service.ScoreService
	log    *logger.Logger
}

// NewScoreHandler creates a new score handler
func NewScoreHandler(ingest *service.IngestService, scores *service.ScoreService, log *logger.Logger) *ScoreHandler {
	return &ScoreHandler{
		ingest: ingest,
		scores: scores,
		log:    log,
	}
}

// Upload handles POST /api/v1/scores
// Multipart upload with the file in the "file" field. Returns 201 for
// new content, 200 for known content added to this library, 409 when
// the caller already holds it.
func (h *ScoreHandler) Upload(c echo.Context) error {
	userID := middleware.GetUserID(c)
	if userID == "" {
		return writeError(c, h.log, service.ErrUnauthorized)
	}

	file, err := c.FormFile("file")
	if err != nil {
		return writeError(c, h.log, fmt.Errorf("%w: multipart field %q is required", service.ErrInvalidRequest, "file"))
	}

	src, err := file.Open()
	if err != nil {
		return writeError(c, h.log, fmt.Errorf("failed to open upload: %w", err))
	}
	defer src.Close()

	result, err := h.ingest.Upload(c.Request().Context(), userID, file.Filename, file.Size, src)
	if err != nil {
		return writeError(c, h.log, err)
	}

	if result.Outcome == models.OutcomeAlreadyInLibrary {
		return c.JSON(http.StatusConflict, map[string]interface{}{
			"error":    "already_in_library",
			"message":  "This score is already in your library.",
			"score":    result.Score,
			"added_at": result.AddedAt,
		})
	}

	status := http.StatusOK
	if result.Outcome == models.OutcomeCreated {
		status = http.StatusCreated
	}
	return c.JSON(status, result)
}

// Get handles GET /api/v1/scores/:id
// Anonymous requests are allowed through; the read policy decides
// whether they see anything.
func (h *ScoreHandler) Get(c echo.Context) error {
	scoreID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return writeError(c, h.log, fmt.Errorf("%w: invalid score id", service.ErrInvalidRequest))
	}

	score, err := h.scores.Get(c.Request().Context(), middleware.GetUserID(c), scoreID)
	if err != nil {
		return writeError(c, h.log, err)
	}

	return c.JSON(http.StatusOK, score)
}

// DownloadURL handles POST /api/v1/scores/:id/download-url
// Mints a signed, expiring blob URL for a score the caller may read.
// An optional ttl_seconds in the body shortens or extends the window;
// zero or absent means the configured default.
func (h *ScoreHandler) DownloadURL(c echo.Context) error {
	scoreID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return writeError(c, h.log, fmt.Errorf("%w: invalid score id", service.ErrInvalidRequest))
	}

	var req struct {
		TTLSeconds int64 `json:"ttl_seconds"`
	}
	if err := c.Bind(&req); err != nil {
		req.TTLSeconds = 0
	}

	url, err := h.scores.MintDownloadURL(
		c.Request().Context(),
		middleware.GetUserID(c),
		scoreID,
		time.Duration(req.TTLSeconds)*time.Second,
	)
	if err != nil {
		return writeError(c, h.log, err)
	}

	return c.JSON(http.StatusOK, url)
}
