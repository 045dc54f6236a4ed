package service

import "errors"

// Boundary error kinds. Services wrap these with fmt.Errorf("%w: ...")
// so handlers can classify with errors.Is while internal detail stays
// in the log line, never in the response.
var (
	// ErrInvalidFileFormat rejects uploads by extension before any read.
	ErrInvalidFileFormat = errors.New("invalid file format")
	// ErrInvalidContent covers every parse failure: malformed, unsafe,
	// or over the parse deadline. Clients see one opaque kind.
	ErrInvalidContent = errors.New("invalid content")
	// ErrFileTooLarge rejects oversize uploads, declared or actual.
	ErrFileTooLarge = errors.New("file too large")
	// ErrAlreadyInLibrary marks a duplicate library add.
	ErrAlreadyInLibrary = errors.New("already in library")
	// ErrUnauthorized marks requests with no caller identity.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden marks reads denied by the access policy and
	// capability URLs that fail verification.
	ErrForbidden = errors.New("forbidden")
	// ErrNotFound marks lookups of absent scores or associations.
	ErrNotFound = errors.New("not found")
	// ErrInvalidRequest marks malformed request payloads.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrBlobMismatch marks a stored blob whose size disagrees with a
	// re-upload of the same fingerprint. Should never happen; treated
	// as an internal error and logged loudly.
	ErrBlobMismatch = errors.New("blob content mismatch")
)
