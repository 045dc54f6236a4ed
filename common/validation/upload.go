package validation

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

var (
	// ErrUnsupportedExtension marks filenames outside the accepted set.
	ErrUnsupportedExtension = errors.New("unsupported file extension")
	// ErrFileTooLarge marks uploads past the configured size limit.
	ErrFileTooLarge = errors.New("file exceeds size limit")
)

// allowedExtensions is the accepted notation file set. Matching is
// case-insensitive on the final extension only.
var allowedExtensions = map[string]bool{
	".musicxml": true,
	".xml":      true,
	".mxl":      true,
}

// UploadValidator gates uploads before any bytes are read
type UploadValidator struct {
	maxBytes int64
}

// NewUploadValidator creates a new upload validator
func NewUploadValidator(maxBytes int64) *UploadValidator {
	return &UploadValidator{maxBytes: maxBytes}
}

// Validate checks filename and declared size. It runs before the body
// is read so rejected uploads cost nothing.
func (v *UploadValidator) Validate(filename string, size int64) error {
	ext := Extension(filename)
	if !allowedExtensions[ext] {
		return fmt.Errorf("%w: %q", ErrUnsupportedExtension, ext)
	}

	if size > v.maxBytes {
		return fmt.Errorf("%w: %d bytes (limit %d)", ErrFileTooLarge, size, v.maxBytes)
	}

	return nil
}

// MaxBytes returns the configured upload size limit.
func (v *UploadValidator) MaxBytes() int64 {
	return v.maxBytes
}

// Extension returns the lower-cased final extension of filename.
func Extension(filename string) string {
	return strings.ToLower(filepath.Ext(filename))
}

// IsCompressed reports whether filename names a compressed container.
func IsCompressed(filename string) bool {
	return Extension(filename) == ".mxl"
}

// MediaType maps an upload filename to the media type stored with its
// blob. Unknown extensions never reach here; the validator gates first.
func MediaType(filename string) string {
	if IsCompressed(filename) {
		return "application/vnd.recordare.musicxml"
	}
	return "application/vnd.recordare.musicxml+xml"
}
