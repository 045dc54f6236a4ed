package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/mushee/scorelib/cmd/scorelib/service"
	"github.com/mushee/scorelib/common/fingerprint"
	"github.com/mushee/scorelib/common/logger"
)

// BlobHandler serves blob content through capability URLs
type BlobHandler struct {
	blobs *service.BlobService
	log   *logger.Logger
}

// NewBlobHandler creates a new blob handler
func NewBlobHandler(blobs *service.BlobService, log *logger.Logger) *BlobHandler {
	return &BlobHandler{
		blobs: blobs,
		log:   log,
	}
}

// Get handles GET /api/v1/blobs/:fingerprint?exp=...&sig=...
// No session: the signature is the authorization. Anyone holding an
// unexpired signed URL can read exactly this one blob.
func (h *BlobHandler) Get(c echo.Context) error {
	fp := c.Param("fingerprint")
	if !fingerprint.Valid(fp) {
		return writeError(c, h.log, fmt.Errorf("%w: invalid fingerprint", service.ErrInvalidRequest))
	}

	exp, err := strconv.ParseInt(c.QueryParam("exp"), 10, 64)
	if err != nil {
		return writeError(c, h.log, fmt.Errorf("%w: missing or invalid exp", service.ErrInvalidRequest))
	}

	if err := h.blobs.VerifyReadURL(fp, exp, c.QueryParam("sig")); err != nil {
		return writeError(c, h.log, err)
	}

	content, mediaType, err := h.blobs.Content(c.Request().Context(), fp)
	if err != nil {
		return writeError(c, h.log, err)
	}

	return c.Blob(http.StatusOK, mediaType, content)
}
